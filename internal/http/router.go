package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/routineflow-backend/internal/http/handlers"
	httpMW "github.com/yungbote/routineflow-backend/internal/http/middleware"
	"github.com/yungbote/routineflow-backend/internal/observability"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	AdjustmentHandler   *httpH.AdjustmentHandler
	RoutineHandler      *httpH.RoutineHandler
	OnboardingHandler   *httpH.OnboardingHandler
	ProgressHandler     *httpH.ProgressHandler
	FeedbackHandler     *httpH.FeedbackHandler
	SubscriptionHandler *httpH.SubscriptionHandler
	MeHandler           *httpH.MeHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Stripe (public, signature verified)
		if cfg.SubscriptionHandler != nil {
			api.POST("/stripe/webhook", cfg.SubscriptionHandler.Webhook)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// User (Me)
		if cfg.MeHandler != nil {
			protected.GET("/me", cfg.MeHandler.GetMe)
		}

		// Adjustment quota
		if cfg.AdjustmentHandler != nil {
			protected.POST("/adjustments/validate", cfg.AdjustmentHandler.Validate)
			protected.GET("/adjustments/status", cfg.AdjustmentHandler.Status)
		}

		// Routines
		if cfg.RoutineHandler != nil {
			protected.GET("/routines", cfg.RoutineHandler.ByWeek)
			protected.GET("/routines/active", cfg.RoutineHandler.Active)
			protected.GET("/routines/generation-usage", cfg.RoutineHandler.Usage)
			protected.POST("/routines/generate", cfg.RoutineHandler.Generate)
			protected.POST("/routines/regenerate", cfg.RoutineHandler.Regenerate)
			protected.POST("/routines/auto-adjust", cfg.RoutineHandler.AutoAdjust)
		}

		// Onboarding
		if cfg.OnboardingHandler != nil {
			protected.GET("/onboarding", cfg.OnboardingHandler.Get)
			protected.PUT("/onboarding", cfg.OnboardingHandler.Save)
		}

		// Progress + gamification
		if cfg.ProgressHandler != nil {
			protected.GET("/progress", cfg.ProgressHandler.Get)
			protected.POST("/progress/checklist", cfg.ProgressHandler.InitChecklist)
			protected.PUT("/progress/blocks/:id", cfg.ProgressHandler.UpdateBlockStatus)
			protected.POST("/progress/login", cfg.ProgressHandler.Login)
		}

		// Feedback
		if cfg.FeedbackHandler != nil {
			protected.POST("/feedback", cfg.FeedbackHandler.Submit)
		}

		// Subscription
		if cfg.SubscriptionHandler != nil {
			protected.POST("/subscription/check", cfg.SubscriptionHandler.Check)
			protected.POST("/subscription/portal", cfg.SubscriptionHandler.Portal)
		}
	}

	return r
}
