package progress

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the day key used by block_status and daily_progress.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusSkipped:
		return true
	}
	return false
}

// BlockStatus tracks one block on one day.
type BlockStatus struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_block_status_user_block_date,priority:1" json:"user_id"`
	BlockID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_block_status_user_block_date,priority:2" json:"block_id"`
	Date        string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_block_status_user_block_date,priority:3" json:"date"`
	Status      Status     `gorm:"type:text;not null;default:'pending'" json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (BlockStatus) TableName() string { return "block_status" }

// DailyProgress is derived from the day's BlockStatus rows on every status change.
type DailyProgress struct {
	ID                   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_daily_progress_user_date,priority:1" json:"user_id"`
	Date                 string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_progress_user_date,priority:2" json:"date"`
	BlocksTotal          int       `gorm:"not null;default:0" json:"blocks_total"`
	BlocksCompleted      int       `gorm:"not null;default:0" json:"blocks_completed"`
	BlocksSkipped        int       `gorm:"not null;default:0" json:"blocks_skipped"`
	CompletionPercentage int       `gorm:"not null;default:0" json:"completion_percentage"`
	StreakMaintained     bool      `gorm:"not null;default:false" json:"streak_maintained"`
	// ValidDayAwarded stays true once the valid-day bonus has been paid for Date.
	ValidDayAwarded      bool      `gorm:"not null;default:false" json:"valid_day_awarded"`
	CreatedAt            time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt            time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DailyProgress) TableName() string { return "daily_progress" }

// UserGamification holds streak and points state, one row per user.
type UserGamification struct {
	ID                      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID                  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CurrentStreak           int       `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak           int       `gorm:"not null;default:0" json:"longest_streak"`
	TotalPoints             int       `gorm:"not null;default:0" json:"total_points"`
	CurrentLevel            string    `gorm:"not null;default:'iniciante'" json:"current_level"`
	LastActiveDate          *string   `gorm:"type:varchar(10)" json:"last_active_date,omitempty"`
	LastLoginDate           *string   `gorm:"type:varchar(10)" json:"last_login_date,omitempty"`
	StreakMinimumPercentage int       `gorm:"not null;default:70" json:"streak_minimum_percentage"`
	CreatedAt               time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt               time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserGamification) TableName() string { return "user_gamification" }
