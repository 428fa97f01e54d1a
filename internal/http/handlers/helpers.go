package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/services"
)

const maxBodyBytes = 64 << 10

func dbcOf(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

func caller(c *gin.Context) (*ctxutil.RequestData, error) {
	return services.RequireUser(c.Request.Context())
}

// bindJSON decodes the body into dst. An empty body leaves dst untouched when allowEmpty is set.
func bindJSON(c *gin.Context, dst any, allowEmpty bool) error {
	if c.Request.ContentLength == 0 && allowEmpty {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		return apierr.BadRequest(services.CodeInvalidRequest, fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierr.BadRequest(services.CodeInvalidRequest, errors.New(name+" must be a UUID"))
	}
	return id, nil
}
