package usage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/routineflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/routineflow-backend/internal/domain"
)

func TestAdjustmentCountSince(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := testutil.DBC(tx)

	p := testutil.SeedProfile(t, ctx, tx, types.PlanFree)
	monthStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	testutil.SeedAdjustment(t, ctx, tx, p.UserID, monthStart.Add(-time.Hour))
	testutil.SeedAdjustment(t, ctx, tx, p.UserID, monthStart)
	testutil.SeedAdjustment(t, ctx, tx, p.UserID, monthStart.Add(48*time.Hour))

	repo := NewAdjustmentRepo(db, testutil.Logger(t))
	got, err := repo.CountSince(dbc, p.UserID, monthStart)
	if err != nil {
		t.Fatalf("CountSince: %v", err)
	}
	if got != 2 {
		t.Fatalf("CountSince: want=2 got=%d", got)
	}

	row, err := repo.Create(dbc, &types.RoutineAdjustment{UserID: p.UserID, Source: types.SourceAI, Description: "x"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if string(row.Changes) != "{}" {
		t.Fatalf("Create: default changes want={} got=%s", string(row.Changes))
	}
}

func TestGenerationRecordIsOncePerWeek(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := testutil.DBC(tx)

	p := testutil.SeedProfile(t, ctx, tx, types.PlanFree)
	repo := NewGenerationRepo(db, testutil.Logger(t))

	for i := 0; i < 3; i++ {
		if err := repo.Record(dbc, p.UserID, "2025-01-05", uuid.New()); err != nil {
			t.Fatalf("Record #%d: %v", i, err)
		}
	}
	if err := repo.Record(dbc, p.UserID, "2025-01-12", uuid.New()); err != nil {
		t.Fatalf("Record other week: %v", err)
	}

	count, err := repo.CountSince(dbc, p.UserID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountSince: %v", err)
	}
	if count != 2 {
		t.Fatalf("CountSince: want=2 got=%d", count)
	}
	exists, err := repo.ExistsForWeek(dbc, p.UserID, "2025-01-05")
	if err != nil || !exists {
		t.Fatalf("ExistsForWeek: want=true got=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsForWeek(dbc, p.UserID, "2025-02-02")
	if err != nil || exists {
		t.Fatalf("ExistsForWeek (missing): want=false got=%v err=%v", exists, err)
	}
}
