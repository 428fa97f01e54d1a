package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/routineflow-backend/internal/data/repos/feedback"
	"github.com/yungbote/routineflow-backend/internal/data/repos/onboarding"
	"github.com/yungbote/routineflow-backend/internal/data/repos/profile"
	"github.com/yungbote/routineflow-backend/internal/data/repos/progress"
	"github.com/yungbote/routineflow-backend/internal/data/repos/routine"
	"github.com/yungbote/routineflow-backend/internal/data/repos/usage"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type ProfileRepo = profile.ProfileRepo

type QuestionnaireRepo = onboarding.QuestionnaireRepo
type OnboardingVersionRepo = onboarding.OnboardingVersionRepo

type RoutineRepo = routine.RoutineRepo
type RoutineBlockRepo = routine.RoutineBlockRepo

type AdjustmentRepo = usage.AdjustmentRepo
type GenerationRepo = usage.GenerationRepo

type FeedbackRepo = feedback.FeedbackRepo

type BlockStatusRepo = progress.BlockStatusRepo
type DailyProgressRepo = progress.DailyProgressRepo
type GamificationRepo = progress.GamificationRepo

func NewProfileRepo(db *gorm.DB, log *logger.Logger) ProfileRepo {
	return profile.NewProfileRepo(db, log)
}

func NewQuestionnaireRepo(db *gorm.DB, log *logger.Logger) QuestionnaireRepo {
	return onboarding.NewQuestionnaireRepo(db, log)
}

func NewOnboardingVersionRepo(db *gorm.DB, log *logger.Logger) OnboardingVersionRepo {
	return onboarding.NewOnboardingVersionRepo(db, log)
}

func NewRoutineRepo(db *gorm.DB, log *logger.Logger) RoutineRepo {
	return routine.NewRoutineRepo(db, log)
}

func NewRoutineBlockRepo(db *gorm.DB, log *logger.Logger) RoutineBlockRepo {
	return routine.NewRoutineBlockRepo(db, log)
}

func NewAdjustmentRepo(db *gorm.DB, log *logger.Logger) AdjustmentRepo {
	return usage.NewAdjustmentRepo(db, log)
}

func NewGenerationRepo(db *gorm.DB, log *logger.Logger) GenerationRepo {
	return usage.NewGenerationRepo(db, log)
}

func NewFeedbackRepo(db *gorm.DB, log *logger.Logger) FeedbackRepo {
	return feedback.NewFeedbackRepo(db, log)
}

func NewBlockStatusRepo(db *gorm.DB, log *logger.Logger) BlockStatusRepo {
	return progress.NewBlockStatusRepo(db, log)
}

func NewDailyProgressRepo(db *gorm.DB, log *logger.Logger) DailyProgressRepo {
	return progress.NewDailyProgressRepo(db, log)
}

func NewGamificationRepo(db *gorm.DB, log *logger.Logger) GamificationRepo {
	return progress.NewGamificationRepo(db, log)
}
