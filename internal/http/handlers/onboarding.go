package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/routineflow-backend/internal/http/response"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/services"
)

type OnboardingHandler struct {
	log        *logger.Logger
	onboarding services.OnboardingService
}

func NewOnboardingHandler(log *logger.Logger, onboarding services.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{log: log.With("handler", "OnboardingHandler"), onboarding: onboarding}
}

// GET /api/onboarding
func (h *OnboardingHandler) Get(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	q, err := h.onboarding.Get(dbcOf(c), rd.UserID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"questionnaire": q})
}

// PUT /api/onboarding
func (h *OnboardingHandler) Save(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	var in services.OnboardingInput
	if err := bindJSON(c, &in, false); err != nil {
		response.Fail(c, h.log, err)
		return
	}
	res, err := h.onboarding.Save(dbcOf(c), rd.UserID, rd.Email, in)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}
