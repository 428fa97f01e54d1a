package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type stubAuth struct{ userID uuid.UUID }

func (s stubAuth) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	if token != "good" {
		return ctx, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("bad token"))
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: s.userID, TokenString: token}), nil
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	userID := uuid.New()
	r := gin.New()
	r.Use(NewAuthMiddleware(log, stubAuth{userID: userID}).RequireAuth())
	r.GET("/me", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID.String())
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic Zm9vOmJhcg==", http.StatusUnauthorized},
		{"rejected", "Bearer bad", http.StatusUnauthorized},
		{"accepted", "bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status: want=%d got=%d body=%s", tc.want, rec.Code, rec.Body.String())
			}
			if tc.want == http.StatusOK && rec.Body.String() != userID.String() {
				t.Fatalf("user: want=%s got=%s", userID, rec.Body.String())
			}
		})
	}
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	reqID := rec.Header().Get(headerRequestID)
	if _, err := ulid.ParseStrict(reqID); err != nil {
		t.Fatalf("generated request id should be a ULID, got=%q: %v", reqID, err)
	}
	if seen == nil || seen.RequestID != reqID || seen.TraceID == "" {
		t.Fatalf("trace data: %+v", seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(headerRequestID); got != "req-123" {
		t.Fatalf("caller request id: want=req-123 got=%q", got)
	}
}
