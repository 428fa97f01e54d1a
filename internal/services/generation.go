package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/routineflow-backend/internal/catalog"
	"github.com/yungbote/routineflow-backend/internal/data/repos"
	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/observability"
	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/llm"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/realtime"
	"github.com/yungbote/routineflow-backend/internal/realtime/bus"
)

type GenerateResult struct {
	Success     bool            `json:"success"`
	RoutineID   uuid.UUID       `json:"routine_id"`
	BlocksCount int             `json:"blocks_count"`
	Version     int             `json:"version"`
	WeekStart   string          `json:"week_start"`
	// Adjustment is set when the generation went through the adjustment runner.
	Adjustment  *RegisterResult `json:"adjustment,omitempty"`
}

// GenerationUsage reports the monthly generation cap. Limit is nil for unlimited plans.
type GenerationUsage struct {
	Used               int    `json:"used"`
	Limit              *int   `json:"limit"`
	CanGenerate        bool   `json:"canGenerate"`
	CanGenerateForWeek bool   `json:"canGenerateForWeek"`
	Plan               string `json:"plan"`
}

type GenerationService interface {
	Generate(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*GenerateResult, error)
	Regenerate(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*GenerateResult, error)
	Usage(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*GenerationUsage, error)
}

type generationService struct {
	db            *gorm.DB
	log           *logger.Logger
	cat           *catalog.Catalog
	cal           Calendar
	llm           llm.Client
	runner        AdjustmentRunner
	profiles      repos.ProfileRepo
	questionnaire repos.QuestionnaireRepo
	routines      repos.RoutineRepo
	blocks        repos.RoutineBlockRepo
	generations   repos.GenerationRepo
	events        bus.Bus
}

func NewGenerationService(
	db *gorm.DB,
	log *logger.Logger,
	cat *catalog.Catalog,
	cal Calendar,
	llmClient llm.Client,
	runner AdjustmentRunner,
	profiles repos.ProfileRepo,
	questionnaire repos.QuestionnaireRepo,
	routines repos.RoutineRepo,
	blocks repos.RoutineBlockRepo,
	generations repos.GenerationRepo,
	events bus.Bus,
) GenerationService {
	return &generationService{
		db:            db,
		log:           log.With("service", "GenerationService"),
		cat:           cat,
		cal:           cal,
		llm:           llmClient,
		runner:        runner,
		profiles:      profiles,
		questionnaire: questionnaire,
		routines:      routines,
		blocks:        blocks,
		generations:   generations,
		events:        events,
	}
}

func (s *generationService) Generate(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*GenerateResult, error) {
	week, err := ParseWeekStart(weekStart)
	if err != nil {
		return nil, apierr.BadRequest(CodeInvalidRequest, err)
	}
	return s.generate(dbc, userID, week)
}

func (s *generationService) Regenerate(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*GenerateResult, error) {
	week, err := ParseWeekStart(weekStart)
	if err != nil {
		return nil, apierr.BadRequest(CodeInvalidRequest, err)
	}
	var res *GenerateResult
	run, err := s.runner.Run(dbc, userID, RegisterInput{
		Source:      types.SourceRegenerate,
		Description: "Rotina regenerada para a semana " + week,
	}, func(inner dbctx.Context) (*uuid.UUID, error) {
		r, err := s.generate(inner, userID, week)
		if err != nil {
			return nil, err
		}
		res = r
		return &r.RoutineID, nil
	})
	if err != nil {
		return nil, err
	}
	res.Adjustment = run.Registration
	return res, nil
}

func (s *generationService) Usage(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*GenerationUsage, error) {
	week := ""
	if weekStart != "" {
		w, err := ParseWeekStart(weekStart)
		if err != nil {
			return nil, apierr.BadRequest(CodeInvalidRequest, err)
		}
		week = w
	}
	profile, err := s.profiles.GetByUserID(dbc, userID)
	if err != nil {
		s.log.Error("profile lookup failed", "step", "usage", "user_id", userID, "error", err)
		return nil, err
	}
	if profile == nil {
		return nil, apierr.NotFound(CodeProfileNotFound, fmt.Errorf("no profile for user %s", userID)).
			WithMessage(s.cat.Message("profile_not_found", "profile not found"))
	}
	return s.usage(dbc, userID, profile.Plan, week)
}

func (s *generationService) usage(dbc dbctx.Context, userID uuid.UUID, plan types.Plan, week string) (*GenerationUsage, error) {
	used, err := s.generations.CountSince(dbc, userID, s.cal.MonthStart())
	if err != nil {
		return nil, fmt.Errorf("count generations: %w", err)
	}
	u := &GenerationUsage{Used: used, Plan: plan.String()}
	limit := s.cat.GenerationLimit(plan)
	if limit == catalog.Unlimited {
		u.CanGenerate = true
		u.CanGenerateForWeek = true
		return u, nil
	}
	u.Limit = &limit
	u.CanGenerate = used < limit
	u.CanGenerateForWeek = u.CanGenerate
	if !u.CanGenerateForWeek && week != "" {
		exists, err := s.generations.ExistsForWeek(dbc, userID, week)
		if err != nil {
			return nil, fmt.Errorf("lookup generation: %w", err)
		}
		u.CanGenerateForWeek = exists
	}
	return u, nil
}

func (s *generationService) generate(dbc dbctx.Context, userID uuid.UUID, week string) (*GenerateResult, error) {
	ctx := ctxutil.Default(dbc.Ctx)

	profile, err := s.profiles.GetByUserID(dbc, userID)
	if err != nil {
		s.log.Error("profile lookup failed", "step", "load_profile", "user_id", userID, "error", err)
		return nil, err
	}
	if profile == nil {
		return nil, apierr.NotFound(CodeProfileNotFound, fmt.Errorf("no profile for user %s", userID)).
			WithMessage(s.cat.Message("profile_not_found", "profile not found"))
	}
	q, err := s.questionnaire.GetByUserID(dbc, userID)
	if err != nil {
		s.log.Error("questionnaire lookup failed", "step", "load_questionnaire", "user_id", userID, "error", err)
		return nil, err
	}
	if q == nil {
		return nil, apierr.BadRequest(CodeOnboardingIncomplete, fmt.Errorf("no questionnaire for user %s", userID)).
			WithMessage(s.cat.Message("onboarding_incomplete", "complete onboarding first"))
	}

	if err := s.checkCap(dbc, userID, profile.Plan, week); err != nil {
		return nil, err
	}
	observability.Current().ObserveQuota("generation", profile.Plan.String(), "allowed")

	if s.llm == nil {
		return nil, s.mapLLMError(userID, fmt.Errorf("%w: no LLM client configured", llm.ErrUnavailable))
	}
	prompt, err := s.cat.UserPrompt(q)
	if err != nil {
		s.log.Error("prompt render failed", "step", "build_prompt", "user_id", userID, "error", err)
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	temp := s.cat.Generation.Temperature
	text, err := s.llm.Complete(ctx, llm.Request{
		System:      s.cat.Generation.SystemPrompt,
		User:        prompt,
		Temperature: &temp,
		JSON:        true,
	})
	if err != nil {
		observability.Current().IncGeneration(llm.Outcome(err))
		return nil, s.mapLLMError(userID, err)
	}

	drafts, err := ParseBlocks(text)
	if err != nil {
		observability.Current().IncGeneration("invalid_output")
		s.log.Error("model output not parseable", "step", "parse", "user_id", userID, "error", err)
		return nil, apierr.New(http.StatusBadGateway, CodeInvalidLLMOutput, err)
	}
	blocks, err := ValidateBlocks(drafts)
	if err != nil {
		observability.Current().IncGeneration("invalid_output")
		s.log.Error("model output failed validation", "step", "validate", "user_id", userID, "blocks", len(drafts), "error", err)
		return nil, apierr.New(http.StatusBadGateway, CodeInvalidLLMOutput, err)
	}
	for _, b := range blocks {
		if outsideWindow(b, q.WakeTime, q.SleepTime) {
			s.log.Warn("block outside wake window",
				"user_id", userID,
				"day_of_week", b.DayOfWeek,
				"start_time", b.StartTime,
				"end_time", b.EndTime,
			)
		}
	}

	var routine *types.Routine
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		// The profile lock serializes generations of one user; the cap is re-read under it.
		locked, err := s.profiles.GetByUserIDForUpdate(inner, userID)
		if err != nil {
			return fmt.Errorf("lock profile: %w", err)
		}
		if locked == nil {
			return apierr.NotFound(CodeProfileNotFound, fmt.Errorf("no profile for user %s", userID))
		}
		if err := s.checkCap(inner, userID, locked.Plan, week); err != nil {
			return err
		}
		if err := s.routines.DeactivateAll(inner, userID); err != nil {
			return fmt.Errorf("deactivate routines: %w", err)
		}
		r, err := s.routines.Activate(inner, userID, week)
		if err != nil {
			return fmt.Errorf("activate routine: %w", err)
		}
		if err := s.blocks.Replace(inner, r.ID, blocks); err != nil {
			return fmt.Errorf("replace blocks: %w", err)
		}
		if err := s.generations.Record(inner, userID, week, r.ID); err != nil {
			return fmt.Errorf("record generation: %w", err)
		}
		if err := s.profiles.MarkOnboardingCompleted(inner, userID); err != nil {
			return fmt.Errorf("mark onboarding: %w", err)
		}
		routine = r
		return nil
	})
	if err != nil {
		if _, ok := apierr.As(err); ok {
			return nil, err
		}
		observability.Current().IncGeneration("error")
		s.log.Error("routine persist failed", "step", "persist", "user_id", userID, "week_start", week, "error", err)
		return nil, err
	}

	observability.Current().IncGeneration("ok")
	s.log.Info("routine generated", "user_id", userID, "routine_id", routine.ID, "week_start", week, "blocks", len(blocks), "version", routine.Version)
	publish(s.log, s.events, ctx, realtime.NewEvent(realtime.EventRoutineGenerated, userID, map[string]any{
		"routine_id":   routine.ID,
		"week_start":   week,
		"blocks_count": len(blocks),
		"version":      routine.Version,
	}))
	return &GenerateResult{
		Success:     true,
		RoutineID:   routine.ID,
		BlocksCount: len(blocks),
		Version:     routine.Version,
		WeekStart:   week,
	}, nil
}

// checkCap returns 403 upgrade_required when the plan's monthly generations are used up and
// week has not been generated before.
func (s *generationService) checkCap(dbc dbctx.Context, userID uuid.UUID, plan types.Plan, week string) error {
	usage, err := s.usage(dbc, userID, plan, week)
	if err != nil {
		s.log.Error("generation usage failed", "step", "generation_cap", "user_id", userID, "error", err)
		return err
	}
	if usage.CanGenerateForWeek {
		return nil
	}
	observability.Current().ObserveQuota("generation", plan.String(), "blocked")
	return apierr.Forbidden(CodeUpgradeRequired, fmt.Errorf("generation limit reached")).
		WithMessage(s.cat.Message("generation_limit", "generation limit reached")).
		WithDetails(map[string]any{"upgrade_required": true, "used": usage.Used, "limit": usage.Limit})
}

func (s *generationService) mapLLMError(userID uuid.UUID, err error) error {
	s.log.Error("LLM call failed", "step", "llm_call", "user_id", userID, "outcome", llm.Outcome(err), "error", err)
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		return apierr.New(http.StatusTooManyRequests, CodeRateLimited, err).
			WithMessage(s.cat.Message("rate_limited", "rate limited"))
	case errors.Is(err, llm.ErrCreditsExhausted):
		return apierr.New(http.StatusPaymentRequired, CodeCreditsExhausted, err).
			WithMessage(s.cat.Message("credits_exhausted", "credits exhausted"))
	case errors.Is(err, llm.ErrEmptyResponse):
		return apierr.New(http.StatusBadGateway, CodeInvalidLLMOutput, err)
	}
	return apierr.New(http.StatusBadGateway, CodeLLMUnavailable, err)
}
