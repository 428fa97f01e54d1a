package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/routineflow-backend/internal/http/response"
	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/services"
)

type SubscriptionHandler struct {
	log           *logger.Logger
	subscriptions services.SubscriptionService
}

func NewSubscriptionHandler(log *logger.Logger, subscriptions services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{log: log.With("handler", "SubscriptionHandler"), subscriptions: subscriptions}
}

// POST /api/subscription/check
func (h *SubscriptionHandler) Check(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	st, err := h.subscriptions.Check(dbcOf(c), rd.UserID, rd.Email)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, st)
}

// POST /api/subscription/portal
func (h *SubscriptionHandler) Portal(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	url, err := h.subscriptions.Portal(dbcOf(c), rd.Email)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"url": url})
}

// POST /api/stripe/webhook (public, verified by signature)
func (h *SubscriptionHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		response.Fail(c, h.log, apierr.BadRequest(services.CodeInvalidRequest, err))
		return
	}
	sig := c.GetHeader("Stripe-Signature")
	if sig == "" {
		response.Fail(c, h.log, apierr.New(http.StatusBadRequest, "invalid_signature", errors.New("missing Stripe-Signature header")))
		return
	}
	if err := h.subscriptions.HandleWebhook(c.Request.Context(), payload, sig); err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"received": true})
}
