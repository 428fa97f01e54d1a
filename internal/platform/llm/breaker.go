package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yungbote/routineflow-backend/internal/observability"
	"github.com/yungbote/routineflow-backend/internal/platform/envutil"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	Interval            time.Duration
	HalfOpenRequests    uint32
}

func BreakerSettingsFromEnv() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: uint32(envutil.Int("LLM_BREAKER_FAILURES", 5)),
		OpenTimeout:         envutil.Seconds("LLM_BREAKER_OPEN_SECONDS", 30*time.Second),
		Interval:            envutil.Seconds("LLM_BREAKER_INTERVAL_SECONDS", 60*time.Second),
		HalfOpenRequests:    1,
	}
}

type breakerClient struct {
	log  *logger.Logger
	next Client
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker fails fast once the backend keeps failing. Quota and credit errors from the
// upstream, and caller cancellations, do not count as failures.
func WithBreaker(log *logger.Logger, next Client, s BreakerSettings) Client {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 1
	}
	name := "llm_" + next.Provider()
	blog := log.With("client", "LLMBreaker", "breaker", name)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenRequests,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrRateLimited) ||
				errors.Is(err, ErrCreditsExhausted) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			blog.Warn("LLM breaker state changed", "from", from.String(), "to", to.String())
			observability.Current().ObserveBreakerTransition(name, from.String(), to.String())
		},
	})
	return &breakerClient{log: blog, next: next, cb: cb}
}

func (b *breakerClient) Provider() string { return b.next.Provider() }

func (b *breakerClient) Complete(ctx context.Context, req Request) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", err
	}
	text, _ := out.(string)
	return text, nil
}
