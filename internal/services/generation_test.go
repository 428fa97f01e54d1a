package services

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/llm"
	"github.com/yungbote/routineflow-backend/internal/realtime"
)

const validReply = `{"blocks":[
{"day_of_week":0,"block_type":"focus","title":"Estudo","description":"","start_time":"08:00","end_time":"09:30","is_fixed":false,"priority":2},
{"day_of_week":1,"block_type":"fixed","title":"Trabalho","start_time":"09:00","end_time":"18:00","is_fixed":true},
{"day_of_week":1,"block_type":"rest","title":"Pausa","start_time":"12:00","end_time":"12:30"}
]}`

func seedQuestionnaire(h *harness, userID uuid.UUID) {
	h.st.mu.Lock()
	defer h.st.mu.Unlock()
	h.st.questionnaire[userID] = &types.QuestionnaireResponse{
		ID:            uuid.New(),
		UserID:        userID,
		WakeTime:      "07:00",
		SleepTime:     "23:00",
		WorkHours:     "09:00-18:00",
		EnergyPeak:    "morning",
		FocusDuration: 50,
		MainGoals:     datatypes.NewJSONSlice([]string{"saúde"}),
		Priorities:    datatypes.NewJSONSlice([]string{"estudo"}),
	}
}

func TestGenerateRoutine(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)
	seedQuestionnaire(h, userID)
	old := h.st.addRoutine(userID, "2026-03-08")
	h.llm.reply = validReply

	res, err := h.generation.Generate(testDBC(), userID, "2026-03-15")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Success || res.BlocksCount != 3 || res.Version != 1 {
		t.Fatalf("result: %+v", res)
	}
	if h.llm.last.System == "" || !h.llm.last.JSON || h.llm.last.Temperature == nil || *h.llm.last.Temperature != 0.7 {
		t.Fatalf("llm request: %+v", h.llm.last)
	}

	active, err := h.routine.Active(testDBC(), userID)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.ID != res.RoutineID || active.ID == old.ID {
		t.Fatalf("active routine: want=%s got=%s", res.RoutineID, active.ID)
	}
	if len(active.Blocks) != 3 || active.Blocks[0].DayOfWeek != 0 {
		t.Fatalf("blocks: got=%d", len(active.Blocks))
	}
	h.st.mu.Lock()
	onboarded := h.st.profiles[userID].OnboardingCompleted
	h.st.mu.Unlock()
	if !onboarded {
		t.Fatalf("profile should be marked onboarded")
	}
	if got := h.events.types(); len(got) != 1 || got[0] != realtime.EventRoutineGenerated {
		t.Fatalf("events: got=%v", got)
	}

	again, err := h.generation.Generate(testDBC(), userID, "2026-03-15")
	if err != nil {
		t.Fatalf("Generate again: %v", err)
	}
	if again.RoutineID != res.RoutineID || again.Version != 2 {
		t.Fatalf("regenerating a week: want same routine version 2 got=%+v", again)
	}
	active, _ = h.routine.Active(testDBC(), userID)
	if len(active.Blocks) != 3 {
		t.Fatalf("blocks should be replaced, not appended: got=%d", len(active.Blocks))
	}
}

func TestGenerateValidation(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)

	for _, week := range []string{"", "2026-3-15", "15/03/2026", "2026-02-30"} {
		if _, err := h.generation.Generate(testDBC(), userID, week); apierr.StatusOf(err) != http.StatusBadRequest {
			t.Fatalf("week_start %q: want 400 got=%v", week, err)
		}
	}
	_, err := h.generation.Generate(testDBC(), userID, "2026-03-15")
	if ae, ok := apierr.As(err); !ok || ae.Code != CodeOnboardingIncomplete {
		t.Fatalf("no questionnaire: want %s got=%v", CodeOnboardingIncomplete, err)
	}
	if _, err := h.generation.Generate(testDBC(), uuid.New(), "2026-03-15"); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("no profile: want 404 got=%v", err)
	}
	if h.llm.calls != 0 {
		t.Fatalf("llm called %d times on invalid input", h.llm.calls)
	}
}

func TestGenerateUpstreamErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reply  string
		status int
		code   string
	}{
		{"rate limited", fmt.Errorf("%w: http 429", llm.ErrRateLimited), "", http.StatusTooManyRequests, CodeRateLimited},
		{"credits", fmt.Errorf("%w: http 402", llm.ErrCreditsExhausted), "", http.StatusPaymentRequired, CodeCreditsExhausted},
		{"unavailable", fmt.Errorf("%w: breaker open", llm.ErrUnavailable), "", http.StatusBadGateway, CodeLLMUnavailable},
		{"garbage", nil, "desculpe, não consigo", http.StatusBadGateway, CodeInvalidLLMOutput},
		{"one bad block", nil, `{"blocks":[{"day_of_week":1,"block_type":"focus","title":"A","start_time":"10:00","end_time":"09:00"}]}`, http.StatusBadGateway, CodeInvalidLLMOutput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			userID := h.st.addProfile(types.PlanFree)
			seedQuestionnaire(h, userID)
			h.llm.err = tc.err
			h.llm.reply = tc.reply

			_, err := h.generation.Generate(testDBC(), userID, "2026-03-15")
			ae, ok := apierr.As(err)
			if !ok || ae.Status != tc.status || ae.Code != tc.code {
				t.Fatalf("want %d %s got=%v", tc.status, tc.code, err)
			}
			h.st.mu.Lock()
			defer h.st.mu.Unlock()
			if len(h.st.routines) != 0 || len(h.st.blocks) != 0 || len(h.st.generations) != 0 {
				t.Fatalf("nothing should be written on failure")
			}
		})
	}
}

func TestGenerationCap(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)
	seedQuestionnaire(h, userID)
	h.llm.reply = validReply

	weeks := []string{"2026-03-01", "2026-03-08", "2026-03-15"}
	for _, w := range weeks {
		if _, err := h.generation.Generate(testDBC(), userID, w); err != nil {
			t.Fatalf("Generate %s: %v", w, err)
		}
	}
	_, err := h.generation.Generate(testDBC(), userID, "2026-03-22")
	if ae, ok := apierr.As(err); !ok || ae.Code != CodeUpgradeRequired || ae.Details["upgrade_required"] != true {
		t.Fatalf("fourth week: want %s got=%v", CodeUpgradeRequired, err)
	}
	if _, err := h.generation.Generate(testDBC(), userID, "2026-03-08"); err != nil {
		t.Fatalf("already generated week should be exempt: %v", err)
	}

	u, err := h.generation.Usage(testDBC(), userID, "2026-03-22")
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if u.Used != 3 || u.CanGenerate || u.CanGenerateForWeek || u.Limit == nil || *u.Limit != 3 {
		t.Fatalf("usage: %+v", u)
	}
	u, _ = h.generation.Usage(testDBC(), userID, "2026-03-08")
	if !u.CanGenerateForWeek {
		t.Fatalf("usage for generated week: %+v", u)
	}
}

func TestGenerationCapRecheckedBeforePersist(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)
	seedQuestionnaire(h, userID)
	h.llm.reply = validReply
	h.llm.onCall = func() {
		h.st.mu.Lock()
		defer h.st.mu.Unlock()
		for _, w := range []string{"2026-03-01", "2026-03-08", "2026-03-15"} {
			h.st.generations = append(h.st.generations, &types.RoutineGeneration{ID: uuid.New(), UserID: userID, WeekStart: w, CreatedAt: h.st.now()})
		}
	}

	_, err := h.generation.Generate(testDBC(), userID, "2026-03-22")
	if ae, ok := apierr.As(err); !ok || ae.Code != CodeUpgradeRequired {
		t.Fatalf("cap filled during the LLM call: want %s got=%v", CodeUpgradeRequired, err)
	}
	if h.llm.calls != 1 {
		t.Fatalf("llm calls: want=1 got=%d", h.llm.calls)
	}
	if r, _ := h.routine.ByWeek(testDBC(), userID, "2026-03-22"); r != nil {
		t.Fatalf("blocked generation must not persist a routine: %+v", r)
	}
}

func TestGenerationCapResetsMonthly(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)
	h.st.mu.Lock()
	for _, w := range []string{"2026-02-01", "2026-02-08", "2026-02-15"} {
		h.st.generations = append(h.st.generations, &types.RoutineGeneration{UserID: userID, WeekStart: w, CreatedAt: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)})
	}
	h.st.mu.Unlock()
	u, err := h.generation.Usage(testDBC(), userID, "")
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if u.Used != 0 || !u.CanGenerate {
		t.Fatalf("new month usage: %+v", u)
	}
}

func TestRegenerateConsumesAdjustment(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)
	seedQuestionnaire(h, userID)
	h.llm.reply = validReply

	res, err := h.generation.Regenerate(testDBC(), userID, "2026-03-15")
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if res.Adjustment == nil || *res.Adjustment.Remaining != 2 {
		t.Fatalf("adjustment: %+v", res.Adjustment)
	}
	h.st.mu.Lock()
	row := h.st.adjustments[0]
	h.st.mu.Unlock()
	if row.Source != types.SourceRegenerate || row.RoutineID == nil || *row.RoutineID != res.RoutineID {
		t.Fatalf("audit row: %+v", row)
	}
}

func TestRegisterStillConsumesOnFailedRegenerate(t *testing.T) {
	h := newHarness(t)
	userID := h.st.addProfile(types.PlanFree)
	seedQuestionnaire(h, userID)
	h.llm.err = fmt.Errorf("%w: http 429", llm.ErrRateLimited)

	if _, err := h.generation.Regenerate(testDBC(), userID, "2026-03-15"); apierr.StatusOf(err) != http.StatusTooManyRequests {
		t.Fatalf("want 429 got=%v", err)
	}
	if n := h.st.adjustmentCount(userID); n != 1 {
		t.Fatalf("adjustment rows: want=1 got=%d", n)
	}
}
