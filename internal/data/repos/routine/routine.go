package routine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/routineflow-backend/internal/data/db"
	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type RoutineRepo interface {
	GetActive(dbc dbctx.Context, userID uuid.UUID) (*types.Routine, error)
	GetByWeek(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*types.Routine, error)
	// DeactivateAll clears is_active on every routine of the user.
	DeactivateAll(dbc dbctx.Context, userID uuid.UUID) error
	// Activate creates the (user, week) routine or reactivates it with version+1.
	Activate(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*types.Routine, error)
}

type routineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoutineRepo(db *gorm.DB, baseLog *logger.Logger) RoutineRepo {
	return &routineRepo{db: db, log: baseLog.With("repo", "RoutineRepo")}
}

func (r *routineRepo) GetActive(dbc dbctx.Context, userID uuid.UUID) (*types.Routine, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Routine
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("week_start DESC").
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *routineRepo) GetByWeek(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*types.Routine, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Routine
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND week_start = ?", userID, weekStart).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *routineRepo) DeactivateAll(dbc dbctx.Context, userID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Routine{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *routineRepo) Activate(dbc dbctx.Context, userID uuid.UUID, weekStart string) (*types.Routine, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	existing, err := r.GetByWeek(dbc, userID, weekStart)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if existing == nil {
		row := &types.Routine{
			ID:        uuid.New(),
			UserID:    userID,
			WeekStart: weekStart,
			IsActive:  true,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		created, err := r.create(dbc, row)
		if err != nil {
			return nil, err
		}
		if created {
			return row, nil
		}
		// Lost the insert race for (user_id, week_start): reactivate the winner's row.
		existing, err = r.GetByWeek(dbc, userID, weekStart)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("routine for week %s vanished after unique violation", weekStart)
		}
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Routine{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"is_active":  true,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		}).Error; err != nil {
		return nil, err
	}
	existing.IsActive = true
	existing.Version++
	existing.UpdatedAt = now
	return existing, nil
}

// create inserts row and reports false when a concurrent insert already holds the
// (user_id, week_start) key. Inside a transaction the insert runs under a savepoint so the
// transaction stays usable after the violation.
func (r *routineRepo) create(dbc dbctx.Context, row *types.Routine) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	const sp = "routine_activate"
	if dbc.Tx != nil {
		if err := t.SavePoint(sp).Error; err != nil {
			return false, err
		}
	}
	err := t.WithContext(dbc.Ctx).Create(row).Error
	if err == nil {
		return true, nil
	}
	if !db.IsUniqueViolation(err) {
		return false, err
	}
	if dbc.Tx != nil {
		if rbErr := t.RollbackTo(sp).Error; rbErr != nil {
			return false, rbErr
		}
	}
	r.log.Warn("routine insert lost race, reusing existing row", "user_id", row.UserID, "week_start", row.WeekStart)
	return false, nil
}
