package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/locker"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

// AdjustmentFunc returns the routine it touched, if any, for the audit row.
type AdjustmentFunc func(dbc dbctx.Context) (*uuid.UUID, error)

type RunResult struct {
	// Registration is nil when the action succeeded but registering it failed.
	Registration *RegisterResult
}

// AdjustmentRunner wraps a routine-changing action in check, act, register.
type AdjustmentRunner interface {
	Run(dbc dbctx.Context, userID uuid.UUID, in RegisterInput, action AdjustmentFunc) (*RunResult, error)
}

type adjustmentRunner struct {
	log     *logger.Logger
	quota   QuotaService
	locks   locker.Locker
	lockTTL time.Duration
	message func(key, def string) string
}

func NewAdjustmentRunner(log *logger.Logger, quota QuotaService, locks locker.Locker, lockTTL time.Duration, message func(key, def string) string) AdjustmentRunner {
	if lockTTL <= 0 {
		lockTTL = 3 * time.Minute
	}
	if locks == nil {
		locks = locker.NewLocal()
	}
	if message == nil {
		message = func(_, def string) string { return def }
	}
	return &adjustmentRunner{
		log:     log.With("service", "AdjustmentRunner"),
		quota:   quota,
		locks:   locks,
		lockTTL: lockTTL,
		message: message,
	}
}

func (r *adjustmentRunner) Run(dbc dbctx.Context, userID uuid.UUID, in RegisterInput, action AdjustmentFunc) (*RunResult, error) {
	ctx := ctxutil.Default(dbc.Ctx)
	release, err := r.locks.Acquire(ctx, "adjust:"+userID.String(), r.lockTTL)
	if err != nil {
		if errors.Is(err, locker.ErrHeld) {
			return nil, apierr.Conflict(CodeAdjustmentInProgress, err).
				WithMessage(r.message("adjustment_in_progress", "an adjustment is already in progress"))
		}
		return nil, fmt.Errorf("acquire adjustment lock: %w", err)
	}
	defer release()

	st, err := r.quota.Check(dbc, userID)
	if err != nil {
		return nil, err
	}
	if !st.CanAdjust {
		return nil, limitReached(*st)
	}

	routineID, actErr := action(dbc)
	if routineID != nil && in.RoutineID == nil {
		in.RoutineID = routineID
	}

	reg, regErr := r.quota.Register(dbc, userID, in)
	if regErr != nil {
		if actErr == nil {
			r.log.Error("adjustment applied but not registered",
				"step", "register",
				"user_id", userID,
				"source", string(in.Source),
				"error", regErr,
			)
			return &RunResult{}, nil
		}
		r.log.Warn("failed adjustment not registered", "step", "register", "user_id", userID, "error", regErr)
	}
	if actErr != nil {
		return nil, actErr
	}
	return &RunResult{Registration: reg}, nil
}
