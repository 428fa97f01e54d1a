package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/routineflow-backend/internal/data/repos"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type Repos struct {
	Profile           repos.ProfileRepo
	Questionnaire     repos.QuestionnaireRepo
	OnboardingVersion repos.OnboardingVersionRepo
	Routine           repos.RoutineRepo
	RoutineBlock      repos.RoutineBlockRepo
	Adjustment        repos.AdjustmentRepo
	Generation        repos.GenerationRepo
	Feedback          repos.FeedbackRepo
	BlockStatus       repos.BlockStatusRepo
	DailyProgress     repos.DailyProgressRepo
	Gamification      repos.GamificationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Profile:           repos.NewProfileRepo(db, log),
		Questionnaire:     repos.NewQuestionnaireRepo(db, log),
		OnboardingVersion: repos.NewOnboardingVersionRepo(db, log),
		Routine:           repos.NewRoutineRepo(db, log),
		RoutineBlock:      repos.NewRoutineBlockRepo(db, log),
		Adjustment:        repos.NewAdjustmentRepo(db, log),
		Generation:        repos.NewGenerationRepo(db, log),
		Feedback:          repos.NewFeedbackRepo(db, log),
		BlockStatus:       repos.NewBlockStatusRepo(db, log),
		DailyProgress:     repos.NewDailyProgressRepo(db, log),
		Gamification:      repos.NewGamificationRepo(db, log),
	}
}
