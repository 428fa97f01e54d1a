package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/routineflow-backend/internal/catalog"
	"github.com/yungbote/routineflow-backend/internal/data/repos"
	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type RoutineService interface {
	Active(dbc dbctx.Context, userID uuid.UUID) (*types.Routine, error)
	ByWeek(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*types.Routine, error)
}

type routineService struct {
	log      *logger.Logger
	cat      *catalog.Catalog
	routines repos.RoutineRepo
	blocks   repos.RoutineBlockRepo
}

func NewRoutineService(log *logger.Logger, cat *catalog.Catalog, routines repos.RoutineRepo, blocks repos.RoutineBlockRepo) RoutineService {
	return &routineService{
		log:      log.With("service", "RoutineService"),
		cat:      cat,
		routines: routines,
		blocks:   blocks,
	}
}

func (s *routineService) noRoutine(err error) error {
	return apierr.NotFound(CodeNoActiveRoutine, err).
		WithMessage(s.cat.Message("no_routine", "no active routine"))
}

func (s *routineService) Active(dbc dbctx.Context, userID uuid.UUID) (*types.Routine, error) {
	r, err := s.routines.GetActive(dbc, userID)
	if err != nil {
		s.log.Error("active routine lookup failed", "step", "get_active", "user_id", userID, "error", err)
		return nil, err
	}
	if r == nil {
		return nil, s.noRoutine(fmt.Errorf("no active routine for user %s", userID))
	}
	return s.withBlocks(dbc, r)
}

func (s *routineService) ByWeek(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*types.Routine, error) {
	week, err := ParseWeekStart(weekStart)
	if err != nil {
		return nil, apierr.BadRequest(CodeInvalidRequest, err)
	}
	r, err := s.routines.GetByWeek(dbc, userID, week)
	if err != nil {
		s.log.Error("routine lookup failed", "step", "get_by_week", "user_id", userID, "week_start", week, "error", err)
		return nil, err
	}
	if r == nil {
		return nil, s.noRoutine(fmt.Errorf("no routine for week %s", week))
	}
	return s.withBlocks(dbc, r)
}

// withBlocks attaches blocks ordered by day then start time.
func (s *routineService) withBlocks(dbc dbctx.Context, r *types.Routine) (*types.Routine, error) {
	blocks, err := s.blocks.ListByRoutine(dbc, r.ID)
	if err != nil {
		s.log.Error("block listing failed", "step", "list_blocks", "routine_id", r.ID, "error", err)
		return nil, err
	}
	r.Blocks = blocks
	return r, nil
}
