package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/routineflow-backend/internal/data/db"
	"github.com/yungbote/routineflow-backend/internal/http"
	httpH "github.com/yungbote/routineflow-backend/internal/http/handlers"
	httpMW "github.com/yungbote/routineflow-backend/internal/http/middleware"
	"github.com/yungbote/routineflow-backend/internal/observability"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Adjustment   *httpH.AdjustmentHandler
	Routine      *httpH.RoutineHandler
	Onboarding   *httpH.OnboardingHandler
	Progress     *httpH.ProgressHandler
	Feedback     *httpH.FeedbackHandler
	Subscription *httpH.SubscriptionHandler
	Me           *httpH.MeHandler
}

func wireHandlers(log *logger.Logger, services Services, pg *db.PostgresService) Handlers {
	log.Info("Wiring handlers...")
	var pinger httpH.Pinger
	if pg != nil {
		pinger = pg
	}
	return Handlers{
		Health:       httpH.NewHealthHandler(log, pinger),
		Adjustment:   httpH.NewAdjustmentHandler(log, services.Quota),
		Routine:      httpH.NewRoutineHandler(log, services.Generation, services.Routine, services.Feedback),
		Onboarding:   httpH.NewOnboardingHandler(log, services.Onboarding),
		Progress:     httpH.NewProgressHandler(log, services.Gamification),
		Feedback:     httpH.NewFeedbackHandler(log, services.Feedback),
		Subscription: httpH.NewSubscriptionHandler(log, services.Subscription),
		Me:           httpH.NewMeHandler(log, services.Overview),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	serviceName := ""
	if observability.TracingEnabled() {
		serviceName = "routineflow"
	}
	return http.NewRouter(http.RouterConfig{
		Log:                 log,
		ServiceName:         serviceName,
		AllowedOrigins:      cfg.AllowedOrigins,
		Metrics:             observability.Current(),
		AuthMiddleware:      middleware.Auth,
		AdjustmentHandler:   handlers.Adjustment,
		RoutineHandler:      handlers.Routine,
		OnboardingHandler:   handlers.Onboarding,
		ProgressHandler:     handlers.Progress,
		FeedbackHandler:     handlers.Feedback,
		SubscriptionHandler: handlers.Subscription,
		MeHandler:           handlers.Me,
		HealthHandler:       handlers.Health,
	})
}
