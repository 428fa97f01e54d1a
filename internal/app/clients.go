package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/routineflow-backend/internal/catalog"
	"github.com/yungbote/routineflow-backend/internal/platform/billing"
	"github.com/yungbote/routineflow-backend/internal/platform/llm"
	"github.com/yungbote/routineflow-backend/internal/platform/locker"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/realtime/bus"
)

type Clients struct {
	Redis   goredis.UniversalClient
	Bus     bus.Bus
	Locker  locker.Locker
	LLM     llm.Client
	Billing billing.Client
}

// wireClients builds the outbound clients. Redis, the LLM and Stripe are optional: without
// them the app falls back to in-process locks, a no-op bus, and 502/503 answers.
func wireClients(ctx context.Context, log *logger.Logger, cfg Config, cat *catalog.Catalog) (Clients, error) {
	log.Info("Wiring clients...")
	out := Clients{Bus: bus.NewNoop(), Locker: locker.NewLocal()}

	// Redis
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		b, err := bus.NewRedisBus(log, rdb, cfg.RedisChannel)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis bus: %w", err)
		}
		out.Redis = rdb
		out.Bus = b
		out.Locker = locker.NewRedisLocker(log, rdb, "")
	} else {
		log.Warn("REDIS_ADDR not set; using in-process adjustment locks and no event bus")
	}

	// LLM
	llmCfg := llm.ConfigFromEnv(cat.Generation.Model, cat.Generation.Temperature)
	client, err := llm.New(ctx, log, llmCfg)
	if err != nil {
		log.Warn("LLM client disabled; routine generation will answer 502", "error", err)
	} else {
		out.LLM = client
	}

	// Stripe
	bc, err := billing.NewStripeClient(log, cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	switch {
	case errors.Is(err, billing.ErrNotConfigured):
	case err != nil:
		out.Close()
		return Clients{}, fmt.Errorf("init stripe client: %w", err)
	default:
		out.Billing = bc
	}

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
