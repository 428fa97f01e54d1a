package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type DailyProgressRepo interface {
	Get(dbc dbctx.Context, userID uuid.UUID, date string) (*types.DailyProgress, error)
	Upsert(dbc dbctx.Context, row *types.DailyProgress) error
}

type dailyProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDailyProgressRepo(db *gorm.DB, baseLog *logger.Logger) DailyProgressRepo {
	return &dailyProgressRepo{db: db, log: baseLog.With("repo", "DailyProgressRepo")}
}

func (r *dailyProgressRepo) Get(dbc dbctx.Context, userID uuid.UUID, date string) (*types.DailyProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.DailyProgress
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *dailyProgressRepo) Upsert(dbc dbctx.Context, row *types.DailyProgress) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"blocks_total",
				"blocks_completed",
				"blocks_skipped",
				"completion_percentage",
				"streak_maintained",
				"valid_day_awarded",
				"updated_at",
			}),
		}).
		Create(row).Error
}
