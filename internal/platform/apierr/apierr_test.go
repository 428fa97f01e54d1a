package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsThroughWrapping(t *testing.T) {
	base := Forbidden("LIMIT_REACHED", errors.New("monthly limit reached"))
	wrapped := fmt.Errorf("register: %w", base)

	ae, ok := As(wrapped)
	if !ok {
		t.Fatalf("As: expected match")
	}
	if ae.Code != "LIMIT_REACHED" {
		t.Fatalf("code: want=LIMIT_REACHED got=%s", ae.Code)
	}
	if got := StatusOf(wrapped); got != http.StatusForbidden {
		t.Fatalf("StatusOf: want=403 got=%d", got)
	}
	if got := StatusOf(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("StatusOf plain: want=500 got=%d", got)
	}
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	base := Forbidden("upgrade_required", nil)
	withD := base.WithDetails(map[string]any{"upgrade_required": true})
	if base.Details != nil {
		t.Fatalf("original mutated: %v", base.Details)
	}
	if withD.Details["upgrade_required"] != true {
		t.Fatalf("details: got=%v", withD.Details)
	}
	if withD.Error() != "upgrade_required" {
		t.Fatalf("Error(): want=upgrade_required got=%s", withD.Error())
	}
}

func TestPublicMessage(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{BadRequest("invalid_request", errors.New("week_start is required")), "week_start is required"},
		{New(http.StatusBadGateway, "llm_unavailable", errors.New("dial tcp 10.0.0.1: refused")), "Bad Gateway"},
		{Forbidden("LIMIT_REACHED", errors.New("count=3")).WithMessage("Limite atingido"), "Limite atingido"},
		{NotFound("profile_not_found", nil), "Not Found"},
	}
	for _, tc := range cases {
		if got := tc.err.PublicMessage(); got != tc.want {
			t.Fatalf("PublicMessage(%s): want=%q got=%q", tc.err.Code, tc.want, got)
		}
	}
}
