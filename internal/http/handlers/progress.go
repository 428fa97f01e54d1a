package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/routineflow-backend/internal/http/response"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/services"
)

type ProgressHandler struct {
	log          *logger.Logger
	gamification services.GamificationService
}

func NewProgressHandler(log *logger.Logger, gamification services.GamificationService) *ProgressHandler {
	return &ProgressHandler{log: log.With("handler", "ProgressHandler"), gamification: gamification}
}

// POST /api/progress/checklist
func (h *ProgressHandler) InitChecklist(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	n, err := h.gamification.InitChecklist(dbcOf(c), rd.UserID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"initialized": n})
}

type blockStatusRequest struct {
	Status string `json:"status"`
}

// PUT /api/progress/blocks/:id
func (h *ProgressHandler) UpdateBlockStatus(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	blockID, err := paramUUID(c, "id")
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	var req blockStatusRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Fail(c, h.log, err)
		return
	}
	res, err := h.gamification.UpdateBlockStatus(dbcOf(c), rd.UserID, blockID, req.Status)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/progress/login
func (h *ProgressHandler) Login(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	res, err := h.gamification.Login(dbcOf(c), rd.UserID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/progress
func (h *ProgressHandler) Get(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	view, err := h.gamification.Progress(dbcOf(c), rd.UserID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, view)
}
