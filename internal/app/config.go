package app

import (
	"strings"
	"time"

	"github.com/yungbote/routineflow-backend/internal/platform/envutil"
	"github.com/yungbote/routineflow-backend/internal/platform/llm"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/services"
)

type Config struct {
	Port        string
	Environment string
	Version     string
	Timezone    string

	JWTSecretKey string
	JWTIssuer    string
	JWTAudience  string

	RedisAddr     string
	RedisPassword string
	RedisChannel  string
	LockTTL       time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeProductPlans  map[string]string
	PortalReturnURL     string

	AllowedOrigins []string
}

// minLockTTL is the adjustment lock floor when the LLM budget is short.
const minLockTTL = 3 * time.Minute

// defaultLockTTL outlives the slowest regenerate: the full LLM retry budget plus a minute for
// the prompt and the persist transaction.
func defaultLockTTL() time.Duration {
	ttl := llm.ConfigFromEnv("", 0).Budget() + time.Minute
	if ttl < minLockTTL {
		return minLockTTL
	}
	return ttl
}

func LoadConfig(log *logger.Logger, version string) Config {
	lockTTL := defaultLockTTL()
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     version,
		Timezone:    envutil.String("APP_TIMEZONE", "UTC"),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:    envutil.String("JWT_ISSUER", ""),
		JWTAudience:  envutil.String("JWT_AUDIENCE", "authenticated"),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisChannel:  envutil.String("REDIS_CHANNEL", ""),
		LockTTL:       envutil.Seconds("ADJUSTMENT_LOCK_TTL_SECONDS", lockTTL),

		StripeSecretKey:     envutil.String("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: envutil.String("STRIPE_WEBHOOK_SECRET", ""),
		PortalReturnURL:     envutil.String("STRIPE_PORTAL_RETURN_URL", "http://localhost:5173/settings"),

		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
	}
	cfg.StripeProductPlans = services.ParseProductPlans(envutil.List("STRIPE_PRODUCT_PLANS", nil))

	if log != nil {
		if cfg.JWTSecretKey == "" {
			log.Warn("JWT_SECRET_KEY not set; every authenticated route will answer 401")
		}
		if cfg.LockTTL < lockTTL {
			log.Warn("ADJUSTMENT_LOCK_TTL_SECONDS is shorter than the LLM retry budget; a slow regenerate can outlive its lock",
				"lock_ttl", cfg.LockTTL.String(),
				"llm_budget", lockTTL.String(),
			)
		}
		if cfg.StripeSecretKey == "" {
			log.Warn("STRIPE_SECRET_KEY not set; subscription endpoints will answer 503")
		}
	}
	return cfg
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
