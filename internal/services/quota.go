package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/routineflow-backend/internal/catalog"
	"github.com/yungbote/routineflow-backend/internal/data/repos"
	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/observability"
	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/realtime"
	"github.com/yungbote/routineflow-backend/internal/realtime/bus"
)

const (
	maxDescriptionLen = 1000
	maxSourceLen      = 50
)

type AdjustmentAction string

const (
	ActionCheck    AdjustmentAction = "check"
	ActionRegister AdjustmentAction = "register"
)

// AdjustmentRequest is the raw validate-adjustment body.
type AdjustmentRequest struct {
	Action      string `json:"action"`
	Source      string `json:"source"`
	RoutineID   string `json:"routine_id"`
	Description string `json:"description"`
}

type RegisterInput struct {
	Source      types.AdjustmentSource
	RoutineID   *uuid.UUID
	Description string
}

// QuotaStatus is the adjustment quota as reported to clients. Limit and Remaining are nil for
// unlimited plans.
type QuotaStatus struct {
	CanAdjust        bool   `json:"canAdjust"`
	AdjustmentsUsed  int    `json:"adjustmentsUsed"`
	AdjustmentsLimit *int   `json:"adjustmentsLimit"`
	Remaining        *int   `json:"remaining"`
	Plan             string `json:"plan"`
	Message          string `json:"message"`
}

type RegisterResult struct {
	Success bool `json:"success"`
	QuotaStatus
}

type QuotaService interface {
	ParseRequest(req AdjustmentRequest) (AdjustmentAction, RegisterInput, error)
	Check(dbc dbctx.Context, userID uuid.UUID) (*QuotaStatus, error)
	Register(dbc dbctx.Context, userID uuid.UUID, in RegisterInput) (*RegisterResult, error)
}

type quotaService struct {
	db          *gorm.DB
	log         *logger.Logger
	cat         *catalog.Catalog
	cal         Calendar
	profiles    repos.ProfileRepo
	adjustments repos.AdjustmentRepo
	events      bus.Bus
}

func NewQuotaService(
	db *gorm.DB,
	log *logger.Logger,
	cat *catalog.Catalog,
	cal Calendar,
	profiles repos.ProfileRepo,
	adjustments repos.AdjustmentRepo,
	events bus.Bus,
) QuotaService {
	return &quotaService{
		db:          db,
		log:         log.With("service", "QuotaService"),
		cat:         cat,
		cal:         cal,
		profiles:    profiles,
		adjustments: adjustments,
		events:      events,
	}
}

func (s *quotaService) badRequest(key, def string, err error) error {
	return apierr.BadRequest(CodeInvalidRequest, err).WithMessage(s.cat.Message(key, def))
}

func (s *quotaService) ParseRequest(req AdjustmentRequest) (AdjustmentAction, RegisterInput, error) {
	var in RegisterInput
	action := AdjustmentAction(strings.TrimSpace(req.Action))
	if action != ActionCheck && action != ActionRegister {
		return "", in, s.badRequest("invalid_action", "invalid action", fmt.Errorf("invalid action %q", req.Action))
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = string(types.SourceManual)
	}
	if utf8.RuneCountInString(source) > maxSourceLen || !types.AdjustmentSource(source).Valid() {
		return "", in, s.badRequest("invalid_source", "invalid source", fmt.Errorf("invalid source %q", source))
	}
	in.Source = types.AdjustmentSource(source)

	if raw := strings.TrimSpace(req.RoutineID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return "", in, s.badRequest("invalid_routine_id", "invalid routine_id", err)
		}
		in.RoutineID = &id
	}

	desc := strings.TrimSpace(req.Description)
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return "", in, s.badRequest("description_too_long", "description too long", fmt.Errorf("description has %d chars", utf8.RuneCountInString(desc)))
	}
	in.Description = desc
	return action, in, nil
}

func (s *quotaService) status(plan types.Plan, used int) QuotaStatus {
	st := QuotaStatus{AdjustmentsUsed: used, Plan: plan.String()}
	limit := s.cat.AdjustmentLimit(plan)
	if limit == catalog.Unlimited {
		st.CanAdjust = true
		st.Message = "Ajustes ilimitados no seu plano."
		return st
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	st.AdjustmentsLimit = &limit
	st.Remaining = &remaining
	st.CanAdjust = remaining > 0
	if st.CanAdjust {
		st.Message = fmt.Sprintf("Você tem %d ajuste(s) restante(s) este mês.", remaining)
	} else {
		st.Message = s.cat.Message("limit_reached", "Você atingiu o limite de ajustes do seu plano. Faça upgrade para continuar.")
	}
	return st
}

func (s *quotaService) profileNotFound(userID uuid.UUID) error {
	return apierr.NotFound(CodeProfileNotFound, fmt.Errorf("no profile for user %s", userID)).
		WithMessage(s.cat.Message("profile_not_found", "profile not found"))
}

// Check is read-only.
func (s *quotaService) Check(dbc dbctx.Context, userID uuid.UUID) (*QuotaStatus, error) {
	profile, err := s.profiles.GetByUserID(dbc, userID)
	if err != nil {
		s.log.Error("profile lookup failed", "step", "check", "user_id", userID, "error", err)
		return nil, err
	}
	if profile == nil {
		return nil, s.profileNotFound(userID)
	}
	used, err := s.adjustments.CountSince(dbc, userID, s.cal.MonthStart())
	if err != nil {
		s.log.Error("adjustment count failed", "step", "check", "user_id", userID, "error", err)
		return nil, err
	}
	st := s.status(profile.Plan, used)
	outcome := "allowed"
	if !st.CanAdjust {
		outcome = "blocked"
	}
	observability.Current().ObserveQuota("adjustment", profile.Plan.String(), outcome)
	return &st, nil
}

// limitReached carries the blocked quota in the error body.
func limitReached(st QuotaStatus) error {
	return apierr.Forbidden(CodeLimitReached, fmt.Errorf("adjustment limit reached")).
		WithMessage(st.Message).
		WithDetails(map[string]any{
			"success":          false,
			"canAdjust":        false,
			"remaining":        0,
			"adjustmentsUsed":  st.AdjustmentsUsed,
			"adjustmentsLimit": st.AdjustmentsLimit,
			"plan":             st.Plan,
			"upgrade_required": true,
		})
}

// Register recounts and inserts with the profile row locked, so concurrent registrations for one
// user serialize and the limit cannot be overshot.
func (s *quotaService) Register(dbc dbctx.Context, userID uuid.UUID, in RegisterInput) (*RegisterResult, error) {
	if in.Source == "" {
		in.Source = types.SourceManual
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = "Ajuste " + string(in.Source)
	}

	var (
		result RegisterResult
		plan   types.Plan
	)
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		profile, err := s.profiles.GetByUserIDForUpdate(inner, userID)
		if err != nil {
			return fmt.Errorf("lock profile: %w", err)
		}
		if profile == nil {
			return s.profileNotFound(userID)
		}
		plan = profile.Plan
		used, err := s.adjustments.CountSince(inner, userID, s.cal.MonthStart())
		if err != nil {
			return fmt.Errorf("count adjustments: %w", err)
		}
		if st := s.status(plan, used); !st.CanAdjust {
			return limitReached(st)
		}
		if _, err := s.adjustments.Create(inner, &types.RoutineAdjustment{
			UserID:      userID,
			RoutineID:   in.RoutineID,
			Source:      in.Source,
			Description: desc,
		}); err != nil {
			return fmt.Errorf("insert adjustment: %w", err)
		}
		result = RegisterResult{Success: true, QuotaStatus: s.status(plan, used+1)}
		return nil
	})
	if err != nil {
		if ae, ok := apierr.As(err); ok && ae.Code == CodeLimitReached {
			observability.Current().ObserveQuota("adjustment", plan.String(), "blocked")
			return nil, err
		}
		if _, ok := apierr.As(err); !ok {
			s.log.Error("adjustment register failed", "step", "register", "user_id", userID, "error", err)
		}
		return nil, err
	}

	if result.Remaining != nil {
		result.Message = fmt.Sprintf("Ajuste registrado. %d ajuste(s) restante(s).", *result.Remaining)
	} else {
		result.Message = "Ajuste registrado."
	}
	observability.Current().ObserveQuota("adjustment", plan.String(), "registered")
	publish(s.log, s.events, dbc.Ctx, realtime.NewEvent(realtime.EventQuotaRegistered, userID, map[string]any{
		"source":    string(in.Source),
		"remaining": result.Remaining,
	}))
	return &result, nil
}
