package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/routineflow-backend/internal/http/response"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/services"
)

type MeHandler struct {
	log      *logger.Logger
	overview services.OverviewService
}

func NewMeHandler(log *logger.Logger, overview services.OverviewService) *MeHandler {
	return &MeHandler{log: log.With("handler", "MeHandler"), overview: overview}
}

// GET /api/me
func (h *MeHandler) GetMe(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	me, err := h.overview.Get(dbcOf(c), rd.UserID, rd.Email)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}
