package onboarding

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FixedCommitment is an immovable weekly appointment captured during onboarding.
type FixedCommitment struct {
	Day   int    `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
	Title string `json:"title"`
}

// QuestionnaireResponse holds the onboarding answers, one row per user.
type QuestionnaireResponse struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	WakeTime         string                               `gorm:"column:wake_time;not null" json:"wake_time"`
	SleepTime        string                               `gorm:"column:sleep_time;not null" json:"sleep_time"`
	HasFixedWork     bool                                 `gorm:"column:has_fixed_work;not null;default:false" json:"has_fixed_work"`
	WorkDays         datatypes.JSONSlice[int]             `gorm:"column:work_days;type:jsonb;not null;default:'[]'" json:"work_days"`
	WorkHours        string                               `gorm:"column:work_hours;not null;default:''" json:"work_hours"`
	FixedCommitments datatypes.JSONSlice[FixedCommitment] `gorm:"column:fixed_commitments;type:jsonb;not null;default:'[]'" json:"fixed_commitments"`
	MainGoals        datatypes.JSONSlice[string]          `gorm:"column:main_goals;type:jsonb;not null;default:'[]'" json:"main_goals"`
	EnergyPeak       string                               `gorm:"column:energy_peak;not null" json:"energy_peak"`
	FocusDuration    int                                  `gorm:"column:focus_duration;not null" json:"focus_duration"`
	Priorities       datatypes.JSONSlice[string]          `gorm:"column:priorities;type:jsonb;not null;default:'[]'" json:"priorities"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (QuestionnaireResponse) TableName() string { return "questionnaire_responses" }

const (
	SourceOnboarding   = "onboarding"
	SourceReOnboarding = "re_onboarding"
)

// OnboardingVersion is an append-only snapshot of every saved questionnaire.
type OnboardingVersion struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_onboarding_versions_user_version,priority:1" json:"user_id"`
	Version   int            `gorm:"not null;index:idx_onboarding_versions_user_version,priority:2" json:"version"`
	Source    string         `gorm:"not null" json:"source"`
	Responses datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"responses"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (OnboardingVersion) TableName() string { return "onboarding_versions" }
