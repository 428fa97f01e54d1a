package routine

import (
	"time"

	"github.com/google/uuid"
)

// WeekStartLayout is the calendar-week key format (yyyy-MM-dd).
const WeekStartLayout = "2006-01-02"

// Routine is one user's schedule for a calendar week.
// At most one routine per user is active; (user_id, week_start) is unique.
type Routine struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_routines_user_week,priority:1" json:"user_id"`
	WeekStart string    `gorm:"column:week_start;type:varchar(10);not null;uniqueIndex:idx_routines_user_week,priority:2" json:"week_start"`
	IsActive  bool      `gorm:"column:is_active;not null;default:false;index" json:"is_active"`
	Version   int       `gorm:"not null;default:1" json:"version"`

	Blocks []*RoutineBlock `gorm:"foreignKey:RoutineID" json:"blocks,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Routine) TableName() string { return "routines" }

type BlockType string

const (
	BlockFocus    BlockType = "focus"
	BlockRest     BlockType = "rest"
	BlockPersonal BlockType = "personal"
	BlockFixed    BlockType = "fixed"
)

func (b BlockType) Valid() bool {
	switch b {
	case BlockFocus, BlockRest, BlockPersonal, BlockFixed:
		return true
	}
	return false
}

// RoutineBlock is a single interval within a routine. Blocks are replaced wholesale on generation.
type RoutineBlock struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RoutineID   uuid.UUID `gorm:"type:uuid;not null;index" json:"routine_id"`
	DayOfWeek   int       `gorm:"column:day_of_week;not null" json:"day_of_week"`
	BlockType   BlockType `gorm:"column:block_type;type:text;not null" json:"block_type"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null;default:''" json:"description"`
	StartTime   string    `gorm:"column:start_time;not null" json:"start_time"`
	EndTime     string    `gorm:"column:end_time;not null" json:"end_time"`
	IsFixed     bool      `gorm:"column:is_fixed;not null;default:false" json:"is_fixed"`
	Priority    int       `gorm:"not null;default:1" json:"priority"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (RoutineBlock) TableName() string { return "routine_blocks" }
