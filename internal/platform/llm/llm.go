package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yungbote/routineflow-backend/internal/pkg/httpx"
	"github.com/yungbote/routineflow-backend/internal/platform/envutil"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

// Request is a single system+user chat turn.
type Request struct {
	System      string
	User        string
	Model       string
	Temperature *float64
	// JSON asks the backend for a JSON response when it supports it.
	JSON        bool
}

type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
}

var (
	ErrRateLimited      = errors.New("llm: rate limited")
	ErrCreditsExhausted = errors.New("llm: credits exhausted")
	ErrUnavailable      = errors.New("llm: unavailable")
	ErrEmptyResponse    = errors.New("llm: empty response")
)

// Outcome buckets an error for metrics and breaker accounting.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrCreditsExhausted):
		return "credits_exhausted"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// classify maps upstream HTTP failures onto the sentinel errors, keeping the original as the cause.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch httpx.StatusCode(err) {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %w", ErrCreditsExhausted, err)
	}
	return err
}

type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// ConfigFromEnv reads LLM_* (and GEMINI_API_KEY for the genai provider).
func ConfigFromEnv(defaultModel string, defaultTemperature float64) Config {
	cfg := Config{
		Provider:    strings.ToLower(envutil.String("LLM_PROVIDER", "openai")),
		APIKey:      envutil.String("LLM_API_KEY", ""),
		BaseURL:     strings.TrimRight(envutil.String("LLM_BASE_URL", "https://ai.gateway.lovable.dev"), "/"),
		Model:       envutil.String("LLM_MODEL", defaultModel),
		Temperature: envutil.Float("LLM_TEMPERATURE", defaultTemperature),
		Timeout:     envutil.Seconds("LLM_TIMEOUT_SECONDS", 120*time.Second),
		MaxRetries:  envutil.Int("LLM_MAX_RETRIES", 2),
	}
	if cfg.Provider == ProviderGenAI && cfg.APIKey == "" {
		cfg.APIKey = envutil.String("GEMINI_API_KEY", "")
	}
	return cfg
}

// maxRetrySleep caps a single backoff sleep between attempts.
const maxRetrySleep = 10 * time.Second

// Budget is the longest a single Complete call can run: every attempt timing out plus the
// backoff sleeps between attempts at their jittered maximum.
func (c Config) Budget() time.Duration {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}
	total := timeout * time.Duration(retries+1)
	backoff := time.Second
	for i := 0; i < retries; i++ {
		sleep := backoff
		if sleep > maxRetrySleep {
			sleep = maxRetrySleep
		}
		total += sleep + sleep/5
		backoff *= 2
	}
	return total
}

const (
	ProviderOpenAI = "openai"
	ProviderGenAI  = "genai"
)

// New builds the configured backend wrapped in a circuit breaker.
func New(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing LLM_API_KEY")
	}
	var (
		base Client
		err  error
	)
	switch cfg.Provider {
	case ProviderOpenAI, "":
		base, err = NewOpenAIClient(log, cfg)
	case ProviderGenAI:
		base, err = NewGenAIClient(ctx, log, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithBreaker(log, base, BreakerSettingsFromEnv()), nil
}
