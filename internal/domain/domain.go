package domain

import (
	"github.com/yungbote/routineflow-backend/internal/domain/onboarding"
	"github.com/yungbote/routineflow-backend/internal/domain/profile"
	"github.com/yungbote/routineflow-backend/internal/domain/progress"
	"github.com/yungbote/routineflow-backend/internal/domain/routine"
)

type (
	Plan    = profile.Plan
	Profile = profile.Profile

	FixedCommitment       = onboarding.FixedCommitment
	QuestionnaireResponse = onboarding.QuestionnaireResponse
	OnboardingVersion     = onboarding.OnboardingVersion

	Routine           = routine.Routine
	RoutineBlock      = routine.RoutineBlock
	BlockType         = routine.BlockType
	AdjustmentSource  = routine.AdjustmentSource
	RoutineAdjustment = routine.RoutineAdjustment
	RoutineGeneration = routine.RoutineGeneration
	RoutineFeedback   = routine.RoutineFeedback

	BlockStatusValue = progress.Status
	BlockStatus      = progress.BlockStatus
	DailyProgress    = progress.DailyProgress
	UserGamification = progress.UserGamification
)

const (
	PlanFree   = profile.PlanFree
	PlanPro    = profile.PlanPro
	PlanAnnual = profile.PlanAnnual

	BlockFocus    = routine.BlockFocus
	BlockRest     = routine.BlockRest
	BlockPersonal = routine.BlockPersonal
	BlockFixed    = routine.BlockFixed

	SourceManual       = routine.SourceManual
	SourceAI           = routine.SourceAI
	SourceReOnboarding = routine.SourceReOnboarding
	SourceRegenerate   = routine.SourceRegenerate

	StatusPending   = progress.StatusPending
	StatusCompleted = progress.StatusCompleted
	StatusSkipped   = progress.StatusSkipped

	WeekStartLayout = routine.WeekStartLayout
	DateLayout      = progress.DateLayout
)

func ParsePlan(s string) Plan { return profile.ParsePlan(s) }

// All returns every persisted model, in migration order.
func All() []any {
	return []any{
		&Profile{},
		&QuestionnaireResponse{},
		&OnboardingVersion{},
		&Routine{},
		&RoutineBlock{},
		&RoutineAdjustment{},
		&RoutineGeneration{},
		&RoutineFeedback{},
		&BlockStatus{},
		&DailyProgress{},
		&UserGamification{},
	}
}
