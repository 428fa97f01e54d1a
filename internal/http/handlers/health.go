package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

// Pinger is satisfied by the Postgres service.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	log *logger.Logger
	db  Pinger
}

func NewHealthHandler(log *logger.Logger, db Pinger) *HealthHandler {
	return &HealthHandler{log: log.With("handler", "HealthHandler"), db: db}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("health check failed", "step", "db_ping", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}
