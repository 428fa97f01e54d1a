package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/routineflow-backend/internal/catalog"
	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/llm"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/realtime"
)

// store is an in-memory stand-in for every repo the services use.
type store struct {
	mu            sync.Mutex
	profiles      map[uuid.UUID]*types.Profile
	questionnaire map[uuid.UUID]*types.QuestionnaireResponse
	versions      []*types.OnboardingVersion
	routines      []*types.Routine
	blocks        []*types.RoutineBlock
	adjustments   []*types.RoutineAdjustment
	generations   []*types.RoutineGeneration
	feedback      []*types.RoutineFeedback
	statuses      []*types.BlockStatus
	daily         map[string]*types.DailyProgress
	gamification  map[uuid.UUID]*types.UserGamification
	now           func() time.Time
}

func newStore(now time.Time) *store {
	return &store{
		profiles:      map[uuid.UUID]*types.Profile{},
		questionnaire: map[uuid.UUID]*types.QuestionnaireResponse{},
		daily:         map[string]*types.DailyProgress{},
		gamification:  map[uuid.UUID]*types.UserGamification{},
		now:           func() time.Time { return now },
	}
}

func (s *store) addProfile(plan types.Plan) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.profiles[id] = &types.Profile{ID: uuid.New(), UserID: id, Email: id.String() + "@example.com", Plan: plan}
	return id
}

func (s *store) addAdjustments(userID uuid.UUID, n int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.adjustments = append(s.adjustments, &types.RoutineAdjustment{ID: uuid.New(), UserID: userID, Source: types.SourceManual, CreatedAt: at})
	}
}

func (s *store) addRoutine(userID uuid.UUID, week string, blocks ...*types.RoutineBlock) *types.Routine {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &types.Routine{ID: uuid.New(), UserID: userID, WeekStart: week, IsActive: true, Version: 1}
	s.routines = append(s.routines, r)
	for _, b := range blocks {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.RoutineID = r.ID
		s.blocks = append(s.blocks, b)
	}
	return r
}

func (s *store) adjustmentCount(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.adjustments {
		if a.UserID == userID {
			n++
		}
	}
	return n
}

type fakeProfiles struct{ s *store }

func (f fakeProfiles) Ensure(_ dbctx.Context, userID uuid.UUID, email, name string) (*types.Profile, error) {
	f.s.mu.Lock()
	if _, ok := f.s.profiles[userID]; !ok {
		f.s.profiles[userID] = &types.Profile{ID: uuid.New(), UserID: userID, Email: email, Name: name, Plan: types.PlanFree, AdjustmentsLimit: 3}
	}
	f.s.mu.Unlock()
	return f.GetByUserID(dbctx.Context{}, userID)
}

func (f fakeProfiles) GetByUserID(_ dbctx.Context, userID uuid.UUID) (*types.Profile, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f fakeProfiles) GetByUserIDForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.Profile, error) {
	return f.GetByUserID(dbc, userID)
}

func (f fakeProfiles) GetByEmail(_ dbctx.Context, email string) (*types.Profile, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, p := range f.s.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeProfiles) UpdatePlan(_ dbctx.Context, userID uuid.UUID, plan types.Plan, limit int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if p, ok := f.s.profiles[userID]; ok {
		p.Plan = plan
		p.AdjustmentsLimit = limit
	}
	return nil
}

func (f fakeProfiles) MarkOnboardingCompleted(_ dbctx.Context, userID uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if p, ok := f.s.profiles[userID]; ok {
		p.OnboardingCompleted = true
	}
	return nil
}

type fakeQuestionnaire struct{ s *store }

func (f fakeQuestionnaire) GetByUserID(_ dbctx.Context, userID uuid.UUID) (*types.QuestionnaireResponse, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.questionnaire[userID], nil
}

func (f fakeQuestionnaire) Upsert(_ dbctx.Context, row *types.QuestionnaireResponse) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	_, existed := f.s.questionnaire[row.UserID]
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	f.s.questionnaire[row.UserID] = row
	return existed, nil
}

type fakeVersions struct{ s *store }

func (f fakeVersions) Append(_ dbctx.Context, row *types.OnboardingVersion) (*types.OnboardingVersion, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	max := 0
	for _, v := range f.s.versions {
		if v.UserID == row.UserID && v.Version > max {
			max = v.Version
		}
	}
	row.ID = uuid.New()
	row.Version = max + 1
	f.s.versions = append(f.s.versions, row)
	return row, nil
}

func (f fakeVersions) Latest(_ dbctx.Context, userID uuid.UUID) (*types.OnboardingVersion, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out *types.OnboardingVersion
	for _, v := range f.s.versions {
		if v.UserID == userID && (out == nil || v.Version > out.Version) {
			out = v
		}
	}
	return out, nil
}

type fakeRoutines struct{ s *store }

func (f fakeRoutines) GetActive(_ dbctx.Context, userID uuid.UUID) (*types.Routine, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.routines {
		if r.UserID == userID && r.IsActive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeRoutines) GetByWeek(_ dbctx.Context, userID uuid.UUID, week string) (*types.Routine, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.routines {
		if r.UserID == userID && r.WeekStart == week {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeRoutines) DeactivateAll(_ dbctx.Context, userID uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.routines {
		if r.UserID == userID {
			r.IsActive = false
		}
	}
	return nil
}

func (f fakeRoutines) Activate(_ dbctx.Context, userID uuid.UUID, week string) (*types.Routine, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.routines {
		if r.UserID == userID && r.WeekStart == week {
			r.IsActive = true
			r.Version++
			cp := *r
			return &cp, nil
		}
	}
	r := &types.Routine{ID: uuid.New(), UserID: userID, WeekStart: week, IsActive: true, Version: 1}
	f.s.routines = append(f.s.routines, r)
	cp := *r
	return &cp, nil
}

type fakeBlocks struct{ s *store }

func (f fakeBlocks) list(match func(b *types.RoutineBlock) bool) []*types.RoutineBlock {
	var out []*types.RoutineBlock
	for _, b := range f.s.blocks {
		if match(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (f fakeBlocks) ListByRoutine(_ dbctx.Context, routineID uuid.UUID) ([]*types.RoutineBlock, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.list(func(b *types.RoutineBlock) bool { return b.RoutineID == routineID }), nil
}

func (f fakeBlocks) ListByRoutineAndDay(_ dbctx.Context, routineID uuid.UUID, day int) ([]*types.RoutineBlock, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.list(func(b *types.RoutineBlock) bool { return b.RoutineID == routineID && b.DayOfWeek == day }), nil
}

func (f fakeBlocks) GetOwned(_ dbctx.Context, userID, blockID uuid.UUID) (*types.RoutineBlock, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	owned := map[uuid.UUID]bool{}
	for _, r := range f.s.routines {
		if r.UserID == userID {
			owned[r.ID] = true
		}
	}
	for _, b := range f.s.blocks {
		if b.ID == blockID && owned[b.RoutineID] {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeBlocks) Replace(_ dbctx.Context, routineID uuid.UUID, blocks []*types.RoutineBlock) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	kept := f.s.blocks[:0]
	for _, b := range f.s.blocks {
		if b.RoutineID != routineID {
			kept = append(kept, b)
		}
	}
	f.s.blocks = kept
	for _, b := range blocks {
		b.ID = uuid.New()
		b.RoutineID = routineID
		f.s.blocks = append(f.s.blocks, b)
	}
	return nil
}

func (f fakeBlocks) UpdateTimes(_ dbctx.Context, blockID uuid.UUID, start, end string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, b := range f.s.blocks {
		if b.ID == blockID {
			b.StartTime, b.EndTime = start, end
		}
	}
	return nil
}

type fakeAdjustments struct {
	s   *store
	err error
}

func (f fakeAdjustments) CountSince(_ dbctx.Context, userID uuid.UUID, since time.Time) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for _, a := range f.s.adjustments {
		if a.UserID == userID && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f fakeAdjustments) Create(_ dbctx.Context, row *types.RoutineAdjustment) (*types.RoutineAdjustment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	row.ID = uuid.New()
	row.CreatedAt = f.s.now()
	f.s.adjustments = append(f.s.adjustments, row)
	return row, nil
}

type fakeGenerations struct{ s *store }

func (f fakeGenerations) CountSince(_ dbctx.Context, userID uuid.UUID, since time.Time) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for _, g := range f.s.generations {
		if g.UserID == userID && !g.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f fakeGenerations) ExistsForWeek(_ dbctx.Context, userID uuid.UUID, week string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, g := range f.s.generations {
		if g.UserID == userID && g.WeekStart == week {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeGenerations) Record(dbc dbctx.Context, userID uuid.UUID, week string, routineID uuid.UUID) error {
	if ok, _ := f.ExistsForWeek(dbc, userID, week); ok {
		return nil
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	rid := routineID
	f.s.generations = append(f.s.generations, &types.RoutineGeneration{ID: uuid.New(), UserID: userID, WeekStart: week, RoutineID: &rid, CreatedAt: f.s.now()})
	return nil
}

type fakeFeedback struct{ s *store }

func (f fakeFeedback) Create(_ dbctx.Context, row *types.RoutineFeedback) (*types.RoutineFeedback, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	row.ID = uuid.New()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = f.s.now()
	}
	f.s.feedback = append(f.s.feedback, row)
	return row, nil
}

func (f fakeFeedback) ListNegativeSince(_ dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.RoutineFeedback, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*types.RoutineFeedback
	for _, fb := range f.s.feedback {
		if fb.UserID == userID && !fb.Worked && fb.CreatedAt.After(since) {
			out = append(out, fb)
		}
	}
	return out, nil
}

type fakeStatuses struct{ s *store }

func (f fakeStatuses) ListByDate(_ dbctx.Context, userID uuid.UUID, date string) ([]*types.BlockStatus, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*types.BlockStatus
	for _, st := range f.s.statuses {
		if st.UserID == userID && st.Date == date {
			cp := *st
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f fakeStatuses) EnsurePending(_ dbctx.Context, userID uuid.UUID, date string, ids []uuid.UUID) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	created := 0
	for _, id := range ids {
		found := false
		for _, st := range f.s.statuses {
			if st.UserID == userID && st.BlockID == id && st.Date == date {
				found = true
			}
		}
		if !found {
			f.s.statuses = append(f.s.statuses, &types.BlockStatus{ID: uuid.New(), UserID: userID, BlockID: id, Date: date, Status: types.StatusPending})
			created++
		}
	}
	return created, nil
}

func (f fakeStatuses) Set(_ dbctx.Context, userID, blockID uuid.UUID, date string, status types.BlockStatusValue) (*types.BlockStatus, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, st := range f.s.statuses {
		if st.UserID == userID && st.BlockID == blockID && st.Date == date {
			st.Status = status
			cp := *st
			return &cp, nil
		}
	}
	st := &types.BlockStatus{ID: uuid.New(), UserID: userID, BlockID: blockID, Date: date, Status: status}
	f.s.statuses = append(f.s.statuses, st)
	cp := *st
	return &cp, nil
}

type fakeDaily struct{ s *store }

func (f fakeDaily) Get(_ dbctx.Context, userID uuid.UUID, date string) (*types.DailyProgress, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if dp, ok := f.s.daily[userID.String()+date]; ok {
		cp := *dp
		return &cp, nil
	}
	return nil, nil
}

func (f fakeDaily) Upsert(_ dbctx.Context, row *types.DailyProgress) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cp := *row
	f.s.daily[row.UserID.String()+row.Date] = &cp
	return nil
}

type fakeGamification struct{ s *store }

func (f fakeGamification) Ensure(dbc dbctx.Context, userID uuid.UUID) (*types.UserGamification, error) {
	f.s.mu.Lock()
	if _, ok := f.s.gamification[userID]; !ok {
		f.s.gamification[userID] = &types.UserGamification{ID: uuid.New(), UserID: userID, CurrentLevel: "iniciante", StreakMinimumPercentage: 70}
	}
	f.s.mu.Unlock()
	return f.Get(dbc, userID)
}

func (f fakeGamification) Get(_ dbctx.Context, userID uuid.UUID) (*types.UserGamification, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	g, ok := f.s.gamification[userID]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (f fakeGamification) GetForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.UserGamification, error) {
	return f.Get(dbc, userID)
}

func (f fakeGamification) Save(_ dbctx.Context, row *types.UserGamification) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cp := *row
	f.s.gamification[row.UserID] = &cp
	return nil
}

// fakeLLM returns a fixed reply or error and counts calls.
type fakeLLM struct {
	mu     sync.Mutex
	reply  string
	err    error
	calls  int
	last   llm.Request
	// onCall runs inside Complete, standing in for work racing with the call.
	onCall func()
}

func (f *fakeLLM) Provider() string { return "fake" }

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	if f.onCall != nil {
		f.onCall()
	}
	return f.reply, f.err
}

type recordingBus struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (b *recordingBus) Publish(_ context.Context, evt realtime.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, func(realtime.Event)) error { return nil }

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) types() []realtime.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]realtime.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	return catalog.Load(nil)
}

// fixedCalendar pins "now" to 2026-03-18 10:00 UTC, a Wednesday.
func fixedCalendar() Calendar {
	now := time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)
	return Calendar{Loc: time.UTC, Now: func() time.Time { return now }}
}

func testDBC() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }

type harness struct {
	st     *store
	cat    *catalog.Catalog
	cal    Calendar
	events *recordingBus
	llm    *fakeLLM

	quota        QuotaService
	runner       AdjustmentRunner
	generation   GenerationService
	routine      RoutineService
	onboarding   OnboardingService
	gamification GamificationService
	feedback     FeedbackService
	overview     OverviewService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := testLogger(t)
	cal := fixedCalendar()
	h := &harness{
		st:     newStore(cal.Now()),
		cat:    testCatalog(t),
		cal:    cal,
		events: &recordingBus{},
		llm:    &fakeLLM{},
	}
	h.quota = NewQuotaService(nil, log, h.cat, cal, fakeProfiles{h.st}, fakeAdjustments{s: h.st}, h.events)
	h.runner = NewAdjustmentRunner(log, h.quota, nil, time.Minute, h.cat.Message)
	h.generation = NewGenerationService(nil, log, h.cat, cal, h.llm, h.runner,
		fakeProfiles{h.st}, fakeQuestionnaire{h.st}, fakeRoutines{h.st}, fakeBlocks{h.st}, fakeGenerations{h.st}, h.events)
	h.routine = NewRoutineService(log, h.cat, fakeRoutines{h.st}, fakeBlocks{h.st})
	h.onboarding = NewOnboardingService(nil, log, fakeProfiles{h.st}, fakeQuestionnaire{h.st}, fakeVersions{h.st}, fakeGamification{h.st})
	h.gamification = NewGamificationService(nil, log, h.cat, cal,
		fakeRoutines{h.st}, fakeBlocks{h.st}, fakeStatuses{h.st}, fakeDaily{h.st}, fakeGamification{h.st})
	h.feedback = NewFeedbackService(nil, log, h.cat, h.runner, h.gamification,
		fakeFeedback{h.st}, fakeRoutines{h.st}, fakeBlocks{h.st}, h.events)
	h.overview = NewOverviewService(log, cal, fakeProfiles{h.st}, h.quota, h.generation, h.gamification)
	return h
}
