package profile

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Plan is the subscription tier stored on the profile.
type Plan string

const (
	PlanFree   Plan = "free"
	PlanPro    Plan = "pro"
	PlanAnnual Plan = "annual"
)

// ParsePlan maps a stored or external value onto a known plan. Unknown values are treated as free.
func ParsePlan(s string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(s))) {
	case PlanPro:
		return PlanPro
	case PlanAnnual:
		return PlanAnnual
	default:
		return PlanFree
	}
}

func (p Plan) IsPaid() bool { return p == PlanPro || p == PlanAnnual }

func (p Plan) String() string { return string(p) }

// Profile is one row per user. AdjustmentsUsed/AdjustmentsLimit are legacy display
// fields; quota decisions count routine_adjustments rows instead.
type Profile struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	Email string `gorm:"column:email;not null;default:'';index" json:"email"`
	Name  string `gorm:"column:name;not null;default:''" json:"name"`
	Plan  Plan   `gorm:"column:plan;type:text;not null;default:'free'" json:"plan"`

	AdjustmentsUsed     int  `gorm:"column:adjustments_used;not null;default:0" json:"adjustments_used"`
	AdjustmentsLimit    int  `gorm:"column:adjustments_limit;not null;default:3" json:"adjustments_limit"`
	OnboardingCompleted bool `gorm:"column:onboarding_completed;not null;default:false" json:"onboarding_completed"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
