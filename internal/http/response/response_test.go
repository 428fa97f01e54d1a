package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

func serve(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, lerr := logger.New("test")
	if lerr != nil {
		t.Fatalf("logger: %v", lerr)
	}
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { Fail(c, log, err) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	return rec.Code, body
}

func TestFailHidesInternalCause(t *testing.T) {
	code, body := serve(t, errors.New("pq: connection refused on 10.0.0.3"))
	if code != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", code)
	}
	e := body["error"].(map[string]any)
	if e["code"] != "internal" || e["message"] != "Internal Server Error" {
		t.Fatalf("error body: %v", e)
	}
}

func TestFailMergesDetails(t *testing.T) {
	err := apierr.Forbidden("LIMIT_REACHED", errors.New("monthly limit reached")).
		WithMessage("Limite atingido").
		WithDetails(map[string]any{"success": false, "remaining": 0, "upgrade_required": true, "error": "dropped"})
	code, body := serve(t, err)
	if code != http.StatusForbidden {
		t.Fatalf("status: want=403 got=%d", code)
	}
	if body["success"] != false || body["upgrade_required"] != true || body["remaining"] != float64(0) {
		t.Fatalf("details not merged: %v", body)
	}
	e := body["error"].(map[string]any)
	if e["code"] != "LIMIT_REACHED" || e["message"] != "Limite atingido" {
		t.Fatalf("error body: %v", e)
	}
}
