package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/routineflow-backend/internal/catalog"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/services"
)

type Services struct {
	Auth         services.AuthService
	Quota        services.QuotaService
	Runner       services.AdjustmentRunner
	Generation   services.GenerationService
	Routine      services.RoutineService
	Onboarding   services.OnboardingService
	Gamification services.GamificationService
	Feedback     services.FeedbackService
	Subscription services.SubscriptionService
	Overview     services.OverviewService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, cat *catalog.Catalog, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")

	cal, err := services.NewCalendar(cfg.Timezone)
	if err != nil {
		return Services{}, fmt.Errorf("init calendar: %w", err)
	}

	auth := services.NewAuthService(log, cfg.JWTSecretKey, cfg.JWTIssuer, cfg.JWTAudience)
	quota := services.NewQuotaService(db, log, cat, cal, r.Profile, r.Adjustment, c.Bus)
	runner := services.NewAdjustmentRunner(log, quota, c.Locker, cfg.LockTTL, cat.Message)
	generation := services.NewGenerationService(db, log, cat, cal, c.LLM, runner,
		r.Profile, r.Questionnaire, r.Routine, r.RoutineBlock, r.Generation, c.Bus)
	routine := services.NewRoutineService(log, cat, r.Routine, r.RoutineBlock)
	onboarding := services.NewOnboardingService(db, log, r.Profile, r.Questionnaire, r.OnboardingVersion, r.Gamification)
	gamification := services.NewGamificationService(db, log, cat, cal,
		r.Routine, r.RoutineBlock, r.BlockStatus, r.DailyProgress, r.Gamification)
	feedback := services.NewFeedbackService(db, log, cat, runner, gamification,
		r.Feedback, r.Routine, r.RoutineBlock, c.Bus)
	subscription := services.NewSubscriptionService(log, c.Billing, r.Profile, c.Bus,
		cfg.StripeProductPlans, cfg.PortalReturnURL)
	overview := services.NewOverviewService(log, cal, r.Profile, quota, generation, gamification)

	return Services{
		Auth:         auth,
		Quota:        quota,
		Runner:       runner,
		Generation:   generation,
		Routine:      routine,
		Onboarding:   onboarding,
		Gamification: gamification,
		Feedback:     feedback,
		Subscription: subscription,
		Overview:     overview,
	}, nil
}
