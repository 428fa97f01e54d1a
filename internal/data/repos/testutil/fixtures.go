package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/routineflow-backend/internal/domain"
)

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, plan types.Plan) *types.Profile {
	tb.Helper()
	userID := uuid.New()
	p := &types.Profile{
		ID:               uuid.New(),
		UserID:           userID,
		Email:            userID.String() + "@example.com",
		Name:             "Test User",
		Plan:             plan,
		AdjustmentsLimit: 3,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

func SeedRoutine(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, weekStart string, active bool) *types.Routine {
	tb.Helper()
	r := &types.Routine{
		ID:        uuid.New(),
		UserID:    userID,
		WeekStart: weekStart,
		IsActive:  active,
		Version:   1,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed routine: %v", err)
	}
	return r
}

func SeedBlock(tb testing.TB, ctx context.Context, tx *gorm.DB, routineID uuid.UUID, day int, start, end string) *types.RoutineBlock {
	tb.Helper()
	b := &types.RoutineBlock{
		ID:        uuid.New(),
		RoutineID: routineID,
		DayOfWeek: day,
		BlockType: types.BlockFocus,
		Title:     "Deep work",
		StartTime: start,
		EndTime:   end,
		Priority:  3,
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed block: %v", err)
	}
	return b
}

func SeedAdjustment(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, createdAt time.Time) *types.RoutineAdjustment {
	tb.Helper()
	a := &types.RoutineAdjustment{
		ID:          uuid.New(),
		UserID:      userID,
		Source:      types.SourceManual,
		Description: "seed",
		Changes:     []byte("{}"),
		CreatedAt:   createdAt,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed adjustment: %v", err)
	}
	return a
}
