package services

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/routineflow-backend/internal/data/repos"
	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type Overview struct {
	Profile         *types.Profile   `json:"profile"`
	Quota           *QuotaStatus     `json:"quota"`
	GenerationUsage *GenerationUsage `json:"generation_usage"`
	Progress        *ProgressView    `json:"progress"`
	WeekStart       string           `json:"week_start"`
}

type OverviewService interface {
	Get(dbc dbctx.Context, userID uuid.UUID, email string) (*Overview, error)
}

type overviewService struct {
	log          *logger.Logger
	cal          Calendar
	profiles     repos.ProfileRepo
	quota        QuotaService
	generation   GenerationService
	gamification GamificationService
}

func NewOverviewService(
	log *logger.Logger,
	cal Calendar,
	profiles repos.ProfileRepo,
	quota QuotaService,
	generation GenerationService,
	gamification GamificationService,
) OverviewService {
	return &overviewService{
		log:          log.With("service", "OverviewService"),
		cal:          cal,
		profiles:     profiles,
		quota:        quota,
		generation:   generation,
		gamification: gamification,
	}
}

// Get creates the profile on first call, then loads the rest concurrently.
func (s *overviewService) Get(dbc dbctx.Context, userID uuid.UUID, email string) (*Overview, error) {
	profile, err := s.profiles.Ensure(dbc, userID, email, "")
	if err != nil {
		s.log.Error("profile ensure failed", "step", "overview", "user_id", userID, "error", err)
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	out := &Overview{Profile: profile, WeekStart: s.cal.WeekStart()}

	g, gctx := errgroup.WithContext(ctxutil.Default(dbc.Ctx))
	g.SetLimit(3)
	inner := dbctx.Context{Ctx: gctx}
	g.Go(func() error {
		q, err := s.quota.Check(inner, userID)
		if err != nil {
			return fmt.Errorf("quota: %w", err)
		}
		out.Quota = q
		return nil
	})
	g.Go(func() error {
		u, err := s.generation.Usage(inner, userID, out.WeekStart)
		if err != nil {
			return fmt.Errorf("generation usage: %w", err)
		}
		out.GenerationUsage = u
		return nil
	})
	g.Go(func() error {
		p, err := s.gamification.Progress(inner, userID)
		if err != nil {
			return fmt.Errorf("progress: %w", err)
		}
		out.Progress = p
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Error("overview load failed", "step", "overview", "user_id", userID, "error", err)
		return nil, err
	}
	return out, nil
}
