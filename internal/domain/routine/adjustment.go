package routine

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AdjustmentSource identifies what consumed a quota unit.
type AdjustmentSource string

const (
	SourceManual       AdjustmentSource = "manual"
	SourceAI           AdjustmentSource = "ai"
	SourceReOnboarding AdjustmentSource = "re_onboarding"
	SourceRegenerate   AdjustmentSource = "regenerate"
)

func (s AdjustmentSource) Valid() bool {
	switch s {
	case SourceManual, SourceAI, SourceReOnboarding, SourceRegenerate:
		return true
	}
	return false
}

// RoutineAdjustment is an append-only audit row; rows created this month are the adjustment quota.
type RoutineAdjustment struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_routine_adjustments_user_created,priority:1" json:"user_id"`
	RoutineID   *uuid.UUID       `gorm:"type:uuid;index" json:"routine_id,omitempty"`
	Source      AdjustmentSource `gorm:"type:text;not null" json:"source"`
	Description string           `gorm:"not null;default:''" json:"description"`
	Changes     datatypes.JSON   `gorm:"type:jsonb;not null;default:'{}'" json:"changes"`
	CreatedAt   time.Time        `gorm:"not null;default:now();index:idx_routine_adjustments_user_created,priority:2" json:"created_at"`
}

func (RoutineAdjustment) TableName() string { return "routine_adjustments" }

// RoutineGeneration records that a week was generated. One row per (user, week_start);
// regenerating the same week does not add a row.
type RoutineGeneration struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_routine_generations_user_week,priority:1" json:"user_id"`
	WeekStart string     `gorm:"column:week_start;type:varchar(10);not null;uniqueIndex:idx_routine_generations_user_week,priority:2" json:"week_start"`
	RoutineID *uuid.UUID `gorm:"type:uuid" json:"routine_id,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now();index" json:"created_at"`
}

func (RoutineGeneration) TableName() string { return "routine_generations" }

// RoutineFeedback is the user's verdict on whether a block worked.
type RoutineFeedback struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_routine_feedback_user_created,priority:1" json:"user_id"`
	BlockID   uuid.UUID `gorm:"type:uuid;not null;index" json:"block_id"`
	Worked    bool      `gorm:"not null" json:"worked"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now();index:idx_routine_feedback_user_created,priority:2" json:"created_at"`
}

func (RoutineFeedback) TableName() string { return "routine_feedback" }
