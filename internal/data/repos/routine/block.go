package routine

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type RoutineBlockRepo interface {
	ListByRoutine(dbc dbctx.Context, routineID uuid.UUID) ([]*types.RoutineBlock, error)
	ListByRoutineAndDay(dbc dbctx.Context, routineID uuid.UUID, dayOfWeek int) ([]*types.RoutineBlock, error)
	// GetOwned returns the block only when it belongs to one of the user's routines.
	GetOwned(dbc dbctx.Context, userID, blockID uuid.UUID) (*types.RoutineBlock, error)
	// Replace deletes every block of the routine and inserts blocks in its place.
	Replace(dbc dbctx.Context, routineID uuid.UUID, blocks []*types.RoutineBlock) error
	UpdateTimes(dbc dbctx.Context, blockID uuid.UUID, startTime, endTime string) error
}

type routineBlockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoutineBlockRepo(db *gorm.DB, baseLog *logger.Logger) RoutineBlockRepo {
	return &routineBlockRepo{db: db, log: baseLog.With("repo", "RoutineBlockRepo")}
}

func (r *routineBlockRepo) ListByRoutine(dbc dbctx.Context, routineID uuid.UUID) ([]*types.RoutineBlock, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var results []*types.RoutineBlock
	if err := t.WithContext(dbc.Ctx).
		Where("routine_id = ?", routineID).
		Order("day_of_week ASC, start_time ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *routineBlockRepo) ListByRoutineAndDay(dbc dbctx.Context, routineID uuid.UUID, dayOfWeek int) ([]*types.RoutineBlock, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var results []*types.RoutineBlock
	if err := t.WithContext(dbc.Ctx).
		Where("routine_id = ? AND day_of_week = ?", routineID, dayOfWeek).
		Order("start_time ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *routineBlockRepo) GetOwned(dbc dbctx.Context, userID, blockID uuid.UUID) (*types.RoutineBlock, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.RoutineBlock
	if err := t.WithContext(dbc.Ctx).
		Joins("JOIN routines ON routines.id = routine_blocks.routine_id").
		Where("routine_blocks.id = ? AND routines.user_id = ?", blockID, userID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *routineBlockRepo) Replace(dbc dbctx.Context, routineID uuid.UUID, blocks []*types.RoutineBlock) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(dbc.Ctx).
		Where("routine_id = ?", routineID).
		Delete(&types.RoutineBlock{}).Error; err != nil {
		return err
	}
	if len(blocks) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, b := range blocks {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.RoutineID = routineID
		b.CreatedAt = now
	}
	return t.WithContext(dbc.Ctx).CreateInBatches(blocks, 100).Error
}

func (r *routineBlockRepo) UpdateTimes(dbc dbctx.Context, blockID uuid.UUID, startTime, endTime string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.RoutineBlock{}).
		Where("id = ?", blockID).
		Updates(map[string]any{
			"start_time": startTime,
			"end_time":   endTime,
		}).Error
}
