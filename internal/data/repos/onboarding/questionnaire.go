package onboarding

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type QuestionnaireRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.QuestionnaireResponse, error)
	// Upsert inserts or overwrites the user's answers and reports whether a row already existed.
	Upsert(dbc dbctx.Context, row *types.QuestionnaireResponse) (existed bool, err error)
}

type questionnaireRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionnaireRepo(db *gorm.DB, baseLog *logger.Logger) QuestionnaireRepo {
	return &questionnaireRepo{db: db, log: baseLog.With("repo", "QuestionnaireRepo")}
}

func (r *questionnaireRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.QuestionnaireResponse, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.QuestionnaireResponse
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *questionnaireRepo) Upsert(dbc dbctx.Context, row *types.QuestionnaireResponse) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.UserID == uuid.Nil {
		return false, nil
	}
	existing, err := r.GetByUserID(dbc, row.UserID)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if existing != nil {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	} else {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	err = t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"wake_time",
				"sleep_time",
				"has_fixed_work",
				"work_days",
				"work_hours",
				"fixed_commitments",
				"main_goals",
				"energy_peak",
				"focus_duration",
				"priorities",
				"updated_at",
			}),
		}).
		Create(row).Error
	return existing != nil, err
}
