package usage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type AdjustmentRepo interface {
	CountSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int, error)
	Create(dbc dbctx.Context, row *types.RoutineAdjustment) (*types.RoutineAdjustment, error)
}

type adjustmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdjustmentRepo(db *gorm.DB, baseLog *logger.Logger) AdjustmentRepo {
	return &adjustmentRepo{db: db, log: baseLog.With("repo", "AdjustmentRepo")}
}

func (r *adjustmentRepo) CountSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.RoutineAdjustment{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *adjustmentRepo) Create(dbc dbctx.Context, row *types.RoutineAdjustment) (*types.RoutineAdjustment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if len(row.Changes) == 0 {
		row.Changes = datatypes.JSON([]byte("{}"))
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}
