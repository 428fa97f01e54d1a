package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/routineflow-backend/internal/http/response"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/services"
)

type RoutineHandler struct {
	log        *logger.Logger
	generation services.GenerationService
	routines   services.RoutineService
	feedback   services.FeedbackService
}

func NewRoutineHandler(
	log *logger.Logger,
	generation services.GenerationService,
	routines services.RoutineService,
	feedback services.FeedbackService,
) *RoutineHandler {
	return &RoutineHandler{
		log:        log.With("handler", "RoutineHandler"),
		generation: generation,
		routines:   routines,
		feedback:   feedback,
	}
}

type generateRequest struct {
	WeekStart string `json:"week_start"`
}

// POST /api/routines/generate
func (h *RoutineHandler) Generate(c *gin.Context) {
	h.generate(c, h.generation.Generate)
}

// POST /api/routines/regenerate
func (h *RoutineHandler) Regenerate(c *gin.Context) {
	h.generate(c, h.generation.Regenerate)
}

func (h *RoutineHandler) generate(c *gin.Context, run func(dbctx.Context, uuid.UUID, string) (*services.GenerateResult, error)) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	var req generateRequest
	if err := bindJSON(c, &req, true); err != nil {
		response.Fail(c, h.log, err)
		return
	}
	res, err := run(dbcOf(c), rd.UserID, req.WeekStart)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/routines/generation-usage?week_start=
func (h *RoutineHandler) Usage(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	usage, err := h.generation.Usage(dbcOf(c), rd.UserID, c.Query("week_start"))
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, usage)
}

// GET /api/routines/active
func (h *RoutineHandler) Active(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	routine, err := h.routines.Active(dbcOf(c), rd.UserID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"routine": routine})
}

// GET /api/routines?week_start=
func (h *RoutineHandler) ByWeek(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	routine, err := h.routines.ByWeek(dbcOf(c), rd.UserID, c.Query("week_start"))
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"routine": routine})
}

// POST /api/routines/auto-adjust
func (h *RoutineHandler) AutoAdjust(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	res, err := h.feedback.AutoAdjust(dbcOf(c), rd.UserID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}
