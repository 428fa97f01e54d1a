package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/routineflow-backend/internal/http/response"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/services"
)

type AdjustmentHandler struct {
	log   *logger.Logger
	quota services.QuotaService
}

func NewAdjustmentHandler(log *logger.Logger, quota services.QuotaService) *AdjustmentHandler {
	return &AdjustmentHandler{log: log.With("handler", "AdjustmentHandler"), quota: quota}
}

// POST /api/adjustments/validate
func (h *AdjustmentHandler) Validate(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	var req services.AdjustmentRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Fail(c, h.log, err)
		return
	}
	action, in, err := h.quota.ParseRequest(req)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	if action == services.ActionCheck {
		st, err := h.quota.Check(dbcOf(c), rd.UserID)
		if err != nil {
			response.Fail(c, h.log, err)
			return
		}
		response.RespondOK(c, st)
		return
	}
	res, err := h.quota.Register(dbcOf(c), rd.UserID, in)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/adjustments/status
func (h *AdjustmentHandler) Status(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	st, err := h.quota.Check(dbcOf(c), rd.UserID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, st)
}
