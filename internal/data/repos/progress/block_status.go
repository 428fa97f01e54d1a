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

type BlockStatusRepo interface {
	ListByDate(dbc dbctx.Context, userID uuid.UUID, date string) ([]*types.BlockStatus, error)
	// EnsurePending inserts a pending row for each block without a status on date.
	EnsurePending(dbc dbctx.Context, userID uuid.UUID, date string, blockIDs []uuid.UUID) (int, error)
	// Set writes the status for (user, block, date), creating the row when needed.
	Set(dbc dbctx.Context, userID, blockID uuid.UUID, date string, status types.BlockStatusValue) (*types.BlockStatus, error)
}

type blockStatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBlockStatusRepo(db *gorm.DB, baseLog *logger.Logger) BlockStatusRepo {
	return &blockStatusRepo{db: db, log: baseLog.With("repo", "BlockStatusRepo")}
}

func (r *blockStatusRepo) ListByDate(dbc dbctx.Context, userID uuid.UUID, date string) ([]*types.BlockStatus, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var results []*types.BlockStatus
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *blockStatusRepo) EnsurePending(dbc dbctx.Context, userID uuid.UUID, date string, blockIDs []uuid.UUID) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(blockIDs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([]*types.BlockStatus, 0, len(blockIDs))
	for _, id := range blockIDs {
		rows = append(rows, &types.BlockStatus{
			ID:        uuid.New(),
			UserID:    userID,
			BlockID:   id,
			Date:      date,
			Status:    types.StatusPending,
			CreatedAt: now,
		})
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "block_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *blockStatusRepo) Set(dbc dbctx.Context, userID, blockID uuid.UUID, date string, status types.BlockStatusValue) (*types.BlockStatus, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	var completedAt *time.Time
	if status == types.StatusCompleted {
		completedAt = &now
	}
	row := &types.BlockStatus{
		ID:          uuid.New(),
		UserID:      userID,
		BlockID:     blockID,
		Date:        date,
		Status:      status,
		CompletedAt: completedAt,
		CreatedAt:   now,
	}
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "block_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "completed_at"}),
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}
