package feedback

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type FeedbackRepo interface {
	Create(dbc dbctx.Context, row *types.RoutineFeedback) (*types.RoutineFeedback, error)
	// ListNegativeSince returns worked=false feedback newer than since, newest first.
	ListNegativeSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.RoutineFeedback, error)
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{db: db, log: baseLog.With("repo", "FeedbackRepo")}
}

func (r *feedbackRepo) Create(dbc dbctx.Context, row *types.RoutineFeedback) (*types.RoutineFeedback, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *feedbackRepo) ListNegativeSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.RoutineFeedback, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var results []*types.RoutineFeedback
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND worked = ? AND created_at >= ?", userID, false, since).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
