package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/realtime"
	"github.com/yungbote/routineflow-backend/internal/realtime/bus"
)

// Stable error codes returned to clients.
const (
	CodeUnauthorized         = "unauthorized"
	CodeInvalidRequest       = "invalid_request"
	CodeProfileNotFound      = "profile_not_found"
	CodeBlockNotFound        = "block_not_found"
	CodeOnboardingIncomplete = "onboarding_incomplete"
	CodeLimitReached         = "LIMIT_REACHED"
	CodeUpgradeRequired      = "upgrade_required"
	CodeRateLimited          = "rate_limited"
	CodeCreditsExhausted     = "credits_exhausted"
	CodeLLMUnavailable       = "llm_unavailable"
	CodeInvalidLLMOutput     = "invalid_llm_output"
	CodeAdjustmentInProgress = "adjustment_in_progress"
	CodeNoActiveRoutine      = "no_active_routine"
	CodeBillingUnavailable   = "billing_unavailable"
	CodeInternal             = "internal"
)

// inTx runs fn inside a transaction on dbc.Tx (or db). With neither set, fn runs directly.
func inTx(db *gorm.DB, dbc dbctx.Context, fn func(inner dbctx.Context) error) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = db
	}
	if transaction == nil {
		return fn(dbc)
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx)).Transaction(func(txx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: txx})
	})
}

// RequireUser returns the authenticated caller from ctx.
func RequireUser(ctx context.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, CodeUnauthorized, errors.New("not authenticated"))
	}
	return rd, nil
}

func publish(log *logger.Logger, b bus.Bus, ctx context.Context, evt realtime.Event) {
	if b == nil {
		return
	}
	if err := b.Publish(ctxutil.Default(ctx), evt); err != nil && log != nil {
		log.Warn("event publish failed", "step", "publish", "type", string(evt.Type), "error", err)
	}
}
