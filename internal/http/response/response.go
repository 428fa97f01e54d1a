package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

const codeInternal = "internal"

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Fail writes err as an error response. Errors without an apierr.Error in their chain become
// a 500 with a generic message; the cause is only logged.
func Fail(c *gin.Context, log *logger.Logger, err error) {
	ae, ok := apierr.As(err)
	if !ok {
		ae = apierr.New(http.StatusInternalServerError, codeInternal, err)
	}
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError && log != nil {
		fields := []interface{}{"method", c.Request.Method, "path", c.FullPath(), "status", status, "code", ae.Code, "error", err}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			fields = append(fields, "request_id", td.RequestID)
		}
		log.Error("request failed", fields...)
	}

	body := gin.H{}
	for k, v := range ae.Details {
		body[k] = v
	}
	body["error"] = APIError{Message: ae.PublicMessage(), Code: ae.Code}
	c.AbortWithStatusJSON(status, body)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
