package onboarding

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type OnboardingVersionRepo interface {
	// Append stores a snapshot with version = previous max + 1.
	Append(dbc dbctx.Context, row *types.OnboardingVersion) (*types.OnboardingVersion, error)
	Latest(dbc dbctx.Context, userID uuid.UUID) (*types.OnboardingVersion, error)
}

type onboardingVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOnboardingVersionRepo(db *gorm.DB, baseLog *logger.Logger) OnboardingVersionRepo {
	return &onboardingVersionRepo{db: db, log: baseLog.With("repo", "OnboardingVersionRepo")}
}

func (r *onboardingVersionRepo) Append(dbc dbctx.Context, row *types.OnboardingVersion) (*types.OnboardingVersion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var maxVersion int
	if err := t.WithContext(dbc.Ctx).
		Model(&types.OnboardingVersion{}).
		Where("user_id = ?", row.UserID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Version = maxVersion + 1
	row.CreatedAt = time.Now().UTC()
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *onboardingVersionRepo) Latest(dbc dbctx.Context, userID uuid.UUID) (*types.OnboardingVersion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.OnboardingVersion
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("version DESC").
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}
