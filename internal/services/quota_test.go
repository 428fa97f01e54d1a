package services

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/realtime"
)

func TestQuotaCheck(t *testing.T) {
	cases := []struct {
		name          string
		plan          types.Plan
		used          int
		wantCan       bool
		wantRemaining int
	}{
		{"free unused", types.PlanFree, 0, true, 3},
		{"free two used", types.PlanFree, 2, true, 1},
		{"free exhausted", types.PlanFree, 3, false, 0},
		{"free over limit", types.PlanFree, 5, false, 0},
		{"pro", types.PlanPro, 40, true, -1},
		{"annual", types.PlanAnnual, 0, true, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			userID := h.st.addProfile(tc.plan)
			h.st.addAdjustments(userID, tc.used, h.cal.Now())

			st, err := h.quota.Check(testDBC(), userID)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if st.CanAdjust != tc.wantCan {
				t.Fatalf("canAdjust: want=%v got=%v", tc.wantCan, st.CanAdjust)
			}
			if st.AdjustmentsUsed != tc.used {
				t.Fatalf("used: want=%d got=%d", tc.used, st.AdjustmentsUsed)
			}
			if tc.wantRemaining < 0 {
				if st.Remaining != nil || st.AdjustmentsLimit != nil {
					t.Fatalf("unlimited plan: want nil limit/remaining got=%v/%v", st.AdjustmentsLimit, st.Remaining)
				}
				return
			}
			if st.Remaining == nil || *st.Remaining != tc.wantRemaining {
				t.Fatalf("remaining: want=%d got=%v", tc.wantRemaining, st.Remaining)
			}
		})
	}
}

func TestQuotaCheckIsReadOnly(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)
	h.st.addAdjustments(userID, 1, h.cal.Now())

	first, err := h.quota.Check(testDBC(), userID)
	if err != nil {
		t.Fatalf("first Check: %v", err)
	}
	second, err := h.quota.Check(testDBC(), userID)
	if err != nil {
		t.Fatalf("second Check: %v", err)
	}
	if first.Remaining == nil || second.Remaining == nil || *first.Remaining != *second.Remaining {
		t.Fatalf("remaining: want equal got=%v/%v", first.Remaining, second.Remaining)
	}
	if first.AdjustmentsUsed != second.AdjustmentsUsed || second.AdjustmentsUsed != 1 {
		t.Fatalf("used: want=1 got=%d/%d", first.AdjustmentsUsed, second.AdjustmentsUsed)
	}
	h.st.mu.Lock()
	rows := len(h.st.adjustments)
	h.st.mu.Unlock()
	if rows != 1 {
		t.Fatalf("audit rows: want=1 got=%d", rows)
	}
}

func TestQuotaCheckIgnoresPreviousMonth(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)
	h.st.addAdjustments(userID, 3, h.cal.MonthStart().Add(-time.Minute))
	h.st.addAdjustments(userID, 1, h.cal.MonthStart())

	st, err := h.quota.Check(testDBC(), userID)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if st.AdjustmentsUsed != 1 || !st.CanAdjust {
		t.Fatalf("month boundary: want used=1 can=true got used=%d can=%v", st.AdjustmentsUsed, st.CanAdjust)
	}
}

func TestQuotaCheckMissingProfile(t *testing.T) {
	h := newHarness(t)
	_, err := h.quota.Check(testDBC(), uuid.New())
	if got := apierr.StatusOf(err); got != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d (%v)", http.StatusNotFound, got, err)
	}
}

func TestQuotaRegister(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)
	h.st.addAdjustments(userID, 2, h.cal.Now())

	res, err := h.quota.Register(testDBC(), userID, RegisterInput{Source: types.SourceManual})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !res.Success || res.CanAdjust || res.Remaining == nil || *res.Remaining != 0 {
		t.Fatalf("register result: %+v", res)
	}
	if !strings.Contains(res.Message, "0 ajuste(s) restante(s)") {
		t.Fatalf("message: got=%q", res.Message)
	}
	h.st.mu.Lock()
	last := h.st.adjustments[len(h.st.adjustments)-1]
	h.st.mu.Unlock()
	if last.Description != "Ajuste manual" {
		t.Fatalf("default description: want=%q got=%q", "Ajuste manual", last.Description)
	}
	if got := h.events.types(); len(got) != 1 || got[0] != realtime.EventQuotaRegistered {
		t.Fatalf("events: got=%v", got)
	}

	_, err = h.quota.Register(testDBC(), userID, RegisterInput{Source: types.SourceManual})
	ae, ok := apierr.As(err)
	if !ok || ae.Status != http.StatusForbidden || ae.Code != CodeLimitReached {
		t.Fatalf("over limit: want 403 %s got=%v", CodeLimitReached, err)
	}
	if ae.Details["upgrade_required"] != true || ae.Details["remaining"] != 0 {
		t.Fatalf("limit details: got=%v", ae.Details)
	}
	if n := h.st.adjustmentCount(userID); n != 3 {
		t.Fatalf("rows after blocked register: want=3 got=%d", n)
	}
}

func TestQuotaRegisterConcurrentNeverOvershoots(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)

	// The fake has no row lock, so serialize the way FOR UPDATE does.
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			_, _ = h.quota.Register(testDBC(), userID, RegisterInput{Source: types.SourceManual})
		}()
	}
	wg.Wait()
	if n := h.st.adjustmentCount(userID); n != 3 {
		t.Fatalf("rows: want=3 got=%d", n)
	}
}

func TestQuotaParseRequest(t *testing.T) {
	h := newHarness(t)
	cases := []struct {
		name    string
		req     AdjustmentRequest
		wantErr bool
		want    AdjustmentAction
	}{
		{"check", AdjustmentRequest{Action: "check"}, false, ActionCheck},
		{"register with routine", AdjustmentRequest{Action: "register", Source: "ai", RoutineID: uuid.NewString()}, false, ActionRegister},
		{"bad action", AdjustmentRequest{Action: "delete"}, true, ""},
		{"bad source", AdjustmentRequest{Action: "check", Source: "robot"}, true, ""},
		{"long source", AdjustmentRequest{Action: "check", Source: strings.Repeat("a", 51)}, true, ""},
		{"bad routine id", AdjustmentRequest{Action: "register", RoutineID: "nope"}, true, ""},
		{"long description", AdjustmentRequest{Action: "register", Description: strings.Repeat("é", 1001)}, true, ""},
		{"max description", AdjustmentRequest{Action: "register", Description: strings.Repeat("é", 1000)}, false, ActionRegister},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, in, err := h.quota.ParseRequest(tc.req)
			if tc.wantErr {
				if apierr.StatusOf(err) != http.StatusBadRequest {
					t.Fatalf("want 400 got=%v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRequest: %v", err)
			}
			if action != tc.want {
				t.Fatalf("action: want=%s got=%s", tc.want, action)
			}
			if tc.req.Source == "" && in.Source != types.SourceManual {
				t.Fatalf("default source: got=%s", in.Source)
			}
			if tc.req.RoutineID != "" && (in.RoutineID == nil || in.RoutineID.String() != tc.req.RoutineID) {
				t.Fatalf("routine id: got=%v", in.RoutineID)
			}
		})
	}
}

func TestQuotaRegisterPropagatesInsertFailure(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)
	boom := errors.New("insert failed")
	q := NewQuotaService(nil, testLogger(t), h.cat, h.cal, fakeProfiles{h.st}, fakeAdjustments{s: h.st, err: boom}, nil)
	if _, err := q.Register(testDBC(), userID, RegisterInput{}); !errors.Is(err, boom) {
		t.Fatalf("want %v got=%v", boom, err)
	}
}
