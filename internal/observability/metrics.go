package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/yungbote/routineflow-backend/internal/platform/envutil"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

const meterName = "github.com/yungbote/routineflow-backend"

// Metrics holds the service instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	provider *sdkmetric.MeterProvider

	apiRequests   metric.Int64Counter
	apiLatency    metric.Float64Histogram
	apiInflight   metric.Int64UpDownCounter
	llmRequests   metric.Int64Counter
	llmLatency    metric.Float64Histogram
	quotaDecision metric.Int64Counter
	breakerState  metric.Int64Counter
	generations   metric.Int64Counter
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process-wide instance, or nil when metrics are off.
func Current() *Metrics {
	return instance
}

// Init builds the meter provider from env. OTLP/HTTP when an endpoint is configured, stdout otherwise.
func Init(ctx context.Context, log *logger.Logger, cfg OtelConfig) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		exp, err := buildMetricExporter(ctx, log)
		if err != nil {
			if log != nil {
				log.Warn("metrics exporter init failed; metrics disabled", "error", err)
			}
			return
		}
		interval := envutil.Seconds("METRICS_EXPORT_INTERVAL_SECONDS", 30*time.Second)
		reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))
		m, err := NewWithReader(reader, sdkmetric.WithResource(buildResource(ctx, log, cfg)))
		if err != nil {
			if log != nil {
				log.Warn("metrics instrument init failed; metrics disabled", "error", err)
			}
			return
		}
		instance = m
		if log != nil {
			log.Info("metrics initialized", "interval", interval.String(), "endpoint", otlpEndpoint())
		}
	})
	return instance
}

func buildMetricExporter(ctx context.Context, log *logger.Logger) (sdkmetric.Exporter, error) {
	endpoint := otlpEndpoint()
	if endpoint == "" {
		if log != nil {
			log.Warn("metrics using stdout exporter (no OTLP endpoint configured)")
		}
		return stdoutmetric.New()
	}
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false) {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if h := otlpHeaders(); h != nil {
		opts = append(opts, otlpmetrichttp.WithHeaders(h))
	}
	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return exp, nil
}

// NewWithReader builds instruments on a fresh provider fed by reader.
func NewWithReader(reader sdkmetric.Reader, opts ...sdkmetric.Option) (*Metrics, error) {
	opts = append(opts, sdkmetric.WithReader(reader))
	mp := sdkmetric.NewMeterProvider(opts...)
	meter := mp.Meter(meterName)

	m := &Metrics{provider: mp}
	var err error
	if m.apiRequests, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests by method, route and status")); err != nil {
		return nil, err
	}
	if m.apiLatency, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.apiInflight, err = meter.Int64UpDownCounter("http.server.inflight"); err != nil {
		return nil, err
	}
	if m.llmRequests, err = meter.Int64Counter("llm.requests",
		metric.WithDescription("LLM calls by provider, model and outcome")); err != nil {
		return nil, err
	}
	if m.llmLatency, err = meter.Float64Histogram("llm.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.quotaDecision, err = meter.Int64Counter("quota.decisions",
		metric.WithDescription("Quota checks and registrations by kind and outcome")); err != nil {
		return nil, err
	}
	if m.breakerState, err = meter.Int64Counter("llm.breaker.transitions"); err != nil {
		return nil, err
	}
	if m.generations, err = meter.Int64Counter("routine.generations"); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	ctx := context.Background()
	m.apiRequests.Add(ctx, 1, attrs)
	m.apiLatency.Record(ctx, dur.Seconds(), attrs)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(context.Background(), 1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(context.Background(), -1)
}

// ObserveLLMRequest records one logical LLM call (after retries). outcome is ok, rate_limited,
// credits_exhausted, breaker_open or error.
func (m *Metrics) ObserveLLMRequest(provider, model, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	)
	ctx := context.Background()
	m.llmRequests.Add(ctx, 1, attrs)
	m.llmLatency.Record(ctx, dur.Seconds(), attrs)
}

// ObserveQuota records a quota decision. kind is adjustment or generation; outcome is allowed,
// blocked or registered.
func (m *Metrics) ObserveQuota(kind, plan, outcome string) {
	if m == nil {
		return
	}
	m.quotaDecision.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("plan", plan),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) ObserveBreakerTransition(name, from, to string) {
	if m == nil {
		return
	}
	m.breakerState.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *Metrics) IncGeneration(status string) {
	if m == nil {
		return
	}
	m.generations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}
