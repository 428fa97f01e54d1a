package usage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type GenerationRepo interface {
	CountSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int, error)
	ExistsForWeek(dbc dbctx.Context, userID uuid.UUID, weekStart string) (bool, error)
	// Record inserts the (user, week) row once; later calls for the same week are no-ops.
	Record(dbc dbctx.Context, userID uuid.UUID, weekStart string, routineID uuid.UUID) error
}

type generationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRepo {
	return &generationRepo{db: db, log: baseLog.With("repo", "GenerationRepo")}
}

func (r *generationRepo) CountSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.RoutineGeneration{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *generationRepo) ExistsForWeek(dbc dbctx.Context, userID uuid.UUID, weekStart string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.RoutineGeneration{}).
		Where("user_id = ? AND week_start = ?", userID, weekStart).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *generationRepo) Record(dbc dbctx.Context, userID uuid.UUID, weekStart string, routineID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	rid := routineID
	row := &types.RoutineGeneration{
		ID:        uuid.New(),
		UserID:    userID,
		WeekStart: weekStart,
		RoutineID: &rid,
		CreatedAt: time.Now().UTC(),
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_start"}},
			DoNothing: true,
		}).
		Create(row).Error
}
