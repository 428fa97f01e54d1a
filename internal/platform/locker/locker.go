package locker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

// ErrHeld is returned when another holder owns the key.
var ErrHeld = errors.New("lock held")

// Locker hands out short-lived exclusive keys. release is always safe to call.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type redisLocker struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

// Only the owner may delete the key.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(log *logger.Logger, rdb goredis.UniversalClient, prefix string) Locker {
	if prefix == "" {
		prefix = "routineflow:lock:"
	}
	return &redisLocker{log: log.With("client", "RedisLocker"), rdb: rdb, prefix: prefix}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	full := l.prefix + key
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return func() {}, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return func() {}, ErrHeld
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be done.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{full}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
				l.log.Warn("lock release failed", "key", full, "error", err)
			}
		})
	}, nil
}

type localLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewLocal returns an in-process locker for single-instance deployments and tests.
func NewLocal() Locker {
	return &localLocker{held: map[string]time.Time{}, now: time.Now}
}

func (l *localLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if exp, ok := l.held[key]; ok && (ttl <= 0 || now.Before(exp)) {
		return func() {}, ErrHeld
	}
	exp := now.Add(ttl)
	l.held[key] = exp
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if cur, ok := l.held[key]; ok && cur.Equal(exp) {
				delete(l.held, key)
			}
		})
	}, nil
}
