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

type GamificationRepo interface {
	// Ensure creates the user's row with defaults when missing and returns it.
	Ensure(dbc dbctx.Context, userID uuid.UUID) (*types.UserGamification, error)
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserGamification, error)
	GetForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.UserGamification, error)
	Save(dbc dbctx.Context, row *types.UserGamification) error
}

type gamificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGamificationRepo(db *gorm.DB, baseLog *logger.Logger) GamificationRepo {
	return &gamificationRepo{db: db, log: baseLog.With("repo", "GamificationRepo")}
}

func (r *gamificationRepo) Ensure(dbc dbctx.Context, userID uuid.UUID) (*types.UserGamification, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	row := &types.UserGamification{
		ID:                      uuid.New(),
		UserID:                  userID,
		CurrentLevel:            "iniciante",
		StreakMinimumPercentage: 70,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.Get(dbc, userID)
}

func (r *gamificationRepo) Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserGamification, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.first(t.WithContext(dbc.Ctx).Where("user_id = ?", userID))
}

func (r *gamificationRepo) GetForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.UserGamification, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.first(t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID))
}

func (r *gamificationRepo) first(q *gorm.DB) (*types.UserGamification, error) {
	var row types.UserGamification
	if err := q.Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *gamificationRepo) Save(dbc dbctx.Context, row *types.UserGamification) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.UserGamification{}).
		Where("user_id = ?", row.UserID).
		Updates(map[string]any{
			"current_streak":   row.CurrentStreak,
			"longest_streak":   row.LongestStreak,
			"total_points":     row.TotalPoints,
			"current_level":    row.CurrentLevel,
			"last_active_date": row.LastActiveDate,
			"last_login_date":  row.LastLoginDate,
			"updated_at":       time.Now().UTC(),
		}).Error
}
