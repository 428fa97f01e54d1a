package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/routineflow-backend/internal/http/response"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/services"
)

type FeedbackHandler struct {
	log      *logger.Logger
	feedback services.FeedbackService
}

func NewFeedbackHandler(log *logger.Logger, feedback services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{log: log.With("handler", "FeedbackHandler"), feedback: feedback}
}

// POST /api/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	var in services.FeedbackInput
	if err := bindJSON(c, &in, false); err != nil {
		response.Fail(c, h.log, err)
		return
	}
	res, err := h.feedback.Submit(dbcOf(c), rd.UserID, in)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}
