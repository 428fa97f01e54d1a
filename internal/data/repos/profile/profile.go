package profile

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type ProfileRepo interface {
	Ensure(dbc dbctx.Context, userID uuid.UUID, email, name string) (*types.Profile, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Profile, error)
	// GetByUserIDForUpdate locks the profile row until the surrounding transaction ends.
	GetByUserIDForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.Profile, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.Profile, error)
	UpdatePlan(dbc dbctx.Context, userID uuid.UUID, plan types.Plan, adjustmentsLimit int) error
	MarkOnboardingCompleted(dbc dbctx.Context, userID uuid.UUID) error
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (r *profileRepo) Ensure(dbc dbctx.Context, userID uuid.UUID, email, name string) (*types.Profile, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	now := time.Now().UTC()
	row := &types.Profile{
		ID:               uuid.New(),
		UserID:           userID,
		Email:            strings.ToLower(strings.TrimSpace(email)),
		Name:             strings.TrimSpace(name),
		Plan:             types.PlanFree,
		AdjustmentsLimit: 3,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetByUserID(dbc, userID)
}

func (r *profileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Profile, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.first(t.WithContext(dbc.Ctx).Where("user_id = ?", userID))
}

func (r *profileRepo) GetByUserIDForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.Profile, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.first(t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID))
}

func (r *profileRepo) GetByEmail(dbc dbctx.Context, email string) (*types.Profile, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	return r.first(t.WithContext(dbc.Ctx).Where("email = ?", email))
}

func (r *profileRepo) first(q *gorm.DB) (*types.Profile, error) {
	var row types.Profile
	if err := q.Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *profileRepo) UpdatePlan(dbc dbctx.Context, userID uuid.UUID, plan types.Plan, adjustmentsLimit int) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"plan":              plan,
			"adjustments_limit": adjustmentsLimit,
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (r *profileRepo) MarkOnboardingCompleted(dbc dbctx.Context, userID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"onboarding_completed": true,
			"updated_at":           time.Now().UTC(),
		}).Error
}
