package services

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/routineflow-backend/internal/catalog"
	"github.com/yungbote/routineflow-backend/internal/data/repos"
	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/realtime"
	"github.com/yungbote/routineflow-backend/internal/realtime/bus"
)

const feedbackWindow = 7 * 24 * time.Hour

type FeedbackInput struct {
	BlockID string  `json:"block_id"`
	Worked  *bool   `json:"worked"`
	Notes   *string `json:"notes"`
}

type FeedbackResult struct {
	Feedback      *types.RoutineFeedback `json:"feedback"`
	PointsAwarded int                    `json:"points_awarded"`
}

type AutoAdjustResult struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	AdjustmentsMade int      `json:"adjustments_made"`
	Adjustments     []string `json:"adjustments"`
	// Remaining is a count for capped plans and "unlimited" otherwise.
	Remaining       any      `json:"adjustments_remaining"`
}

type FeedbackService interface {
	Submit(dbc dbctx.Context, userID uuid.UUID, in FeedbackInput) (*FeedbackResult, error)
	AutoAdjust(dbc dbctx.Context, userID uuid.UUID) (*AutoAdjustResult, error)
}

type feedbackService struct {
	db           *gorm.DB
	log          *logger.Logger
	cat          *catalog.Catalog
	runner       AdjustmentRunner
	gamification GamificationService
	feedback     repos.FeedbackRepo
	routines     repos.RoutineRepo
	blocks       repos.RoutineBlockRepo
	events       bus.Bus
	now          func() time.Time
}

func NewFeedbackService(
	db *gorm.DB,
	log *logger.Logger,
	cat *catalog.Catalog,
	runner AdjustmentRunner,
	gamification GamificationService,
	feedback repos.FeedbackRepo,
	routines repos.RoutineRepo,
	blocks repos.RoutineBlockRepo,
	events bus.Bus,
) FeedbackService {
	return &feedbackService{
		db:           db,
		log:          log.With("service", "FeedbackService"),
		cat:          cat,
		runner:       runner,
		gamification: gamification,
		feedback:     feedback,
		routines:     routines,
		blocks:       blocks,
		events:       events,
		now:          time.Now,
	}
}

func (s *feedbackService) Submit(dbc dbctx.Context, userID uuid.UUID, in FeedbackInput) (*FeedbackResult, error) {
	blockID, err := uuid.Parse(strings.TrimSpace(in.BlockID))
	if err != nil {
		return nil, invalid("block_id must be a UUID")
	}
	if in.Worked == nil {
		return nil, invalid("worked is required")
	}
	var notes *string
	if in.Notes != nil {
		n := strings.TrimSpace(*in.Notes)
		if utf8.RuneCountInString(n) > maxDescriptionLen {
			return nil, invalid("notes longer than %d characters", maxDescriptionLen)
		}
		if n != "" {
			notes = &n
		}
	}
	block, err := s.blocks.GetOwned(dbc, userID, blockID)
	if err != nil {
		s.log.Error("block lookup failed", "step", "submit", "block_id", blockID, "error", err)
		return nil, err
	}
	if block == nil {
		return nil, apierr.NotFound(CodeBlockNotFound, fmt.Errorf("block %s not found", blockID))
	}

	out := &FeedbackResult{}
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		row, err := s.feedback.Create(inner, &types.RoutineFeedback{
			UserID:  userID,
			BlockID: blockID,
			Worked:  *in.Worked,
			Notes:   notes,
		})
		if err != nil {
			return fmt.Errorf("insert feedback: %w", err)
		}
		if _, err := s.gamification.AwardPoints(inner, userID, s.cat.Points.Feedback); err != nil {
			return fmt.Errorf("award feedback points: %w", err)
		}
		out.Feedback = row
		out.PointsAwarded = s.cat.Points.Feedback
		return nil
	})
	if err != nil {
		s.log.Error("feedback submit failed", "step", "submit", "user_id", userID, "error", err)
		return nil, err
	}
	return out, nil
}

// shiftBlock moves a block to the next half hour keeping its duration. ok is false when the
// block cannot move without crossing into 23:00.
func shiftBlock(start, end string) (string, string, bool) {
	s, ok1 := minutesOf(start)
	e, ok2 := minutesOf(end)
	if !ok1 || !ok2 || e <= s {
		return "", "", false
	}
	h, m := s/60, s%60
	var next int
	if m >= 30 {
		next = (h + 1) * 60
	} else {
		next = h*60 + 30
	}
	if next/60 >= 23 {
		return "", "", false
	}
	newEnd := next + (e - s)
	if newEnd >= 24*60 {
		return "", "", false
	}
	ns, ne := formatMinutes(next), formatMinutes(newEnd)
	if !ValidTime(ns) || !ValidTime(ne) {
		return "", "", false
	}
	return ns, ne, true
}

type plannedShift struct {
	block    *types.RoutineBlock
	newStart string
	newEnd   string
}

func (s *feedbackService) AutoAdjust(dbc dbctx.Context, userID uuid.UUID) (*AutoAdjustResult, error) {
	negative, err := s.feedback.ListNegativeSince(dbc, userID, s.now().Add(-feedbackWindow))
	if err != nil {
		s.log.Error("feedback listing failed", "step", "auto_adjust", "user_id", userID, "error", err)
		return nil, err
	}
	if len(negative) == 0 {
		return &AutoAdjustResult{
			Success:     true,
			Message:     "Nenhum ajuste necessário. Sua rotina está funcionando bem!",
			Adjustments: []string{},
		}, nil
	}

	routine, err := s.routines.GetActive(dbc, userID)
	if err != nil {
		s.log.Error("active routine lookup failed", "step", "auto_adjust", "user_id", userID, "error", err)
		return nil, err
	}
	if routine == nil {
		return nil, apierr.NotFound(CodeNoActiveRoutine, fmt.Errorf("no active routine for user %s", userID)).
			WithMessage(s.cat.Message("no_routine", "no active routine"))
	}
	blocks, err := s.blocks.ListByRoutine(dbc, routine.ID)
	if err != nil {
		s.log.Error("block listing failed", "step", "auto_adjust", "routine_id", routine.ID, "error", err)
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.RoutineBlock, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	var plan []plannedShift
	seen := map[uuid.UUID]bool{}
	for _, f := range negative {
		b, ok := byID[f.BlockID]
		if !ok || seen[b.ID] || b.IsFixed {
			continue
		}
		seen[b.ID] = true
		ns, ne, ok := shiftBlock(b.StartTime, b.EndTime)
		if !ok {
			continue
		}
		plan = append(plan, plannedShift{block: b, newStart: ns, newEnd: ne})
	}

	adjustments := make([]string, 0, len(plan))
	run, err := s.runner.Run(dbc, userID, RegisterInput{
		Source:      types.SourceAI,
		RoutineID:   &routine.ID,
		Description: "Ajuste automático baseado em feedback",
	}, func(inner dbctx.Context) (*uuid.UUID, error) {
		err := inTx(s.db, inner, func(txc dbctx.Context) error {
			for _, p := range plan {
				if err := s.blocks.UpdateTimes(txc, p.block.ID, p.newStart, p.newEnd); err != nil {
					return fmt.Errorf("update block %s: %w", p.block.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, p := range plan {
			adjustments = append(adjustments, fmt.Sprintf("Bloco \"%s\" movido de %s para %s", p.block.Title, p.block.StartTime, p.newStart))
		}
		return &routine.ID, nil
	})
	if err != nil {
		return nil, err
	}

	res := &AutoAdjustResult{
		Success:         true,
		AdjustmentsMade: len(adjustments),
		Adjustments:     adjustments,
	}
	if len(adjustments) > 0 {
		res.Message = "Rotina ajustada com base no seu feedback!"
	} else {
		res.Message = "Nenhum ajuste necessário no momento."
	}
	if reg := run.Registration; reg != nil {
		if reg.Remaining != nil {
			res.Remaining = *reg.Remaining
		} else {
			res.Remaining = "unlimited"
		}
	}
	if len(adjustments) > 0 {
		publish(s.log, s.events, ctxutil.Default(dbc.Ctx), realtime.NewEvent(realtime.EventRoutineAdjusted, userID, map[string]any{
			"routine_id":  routine.ID,
			"adjustments": len(adjustments),
			"source":      string(types.SourceAI),
		}))
	}
	return res, nil
}
