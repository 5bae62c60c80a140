package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records propwatch metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordIntercept records a wrapper installation of the given property kind.
	RecordIntercept(ctx context.Context, kind string)

	// RecordDetach records a property restoration.
	RecordDetach(ctx context.Context)

	// RecordNotify records one fan-out with its subscriber count, duration
	// and number of failed subscribers.
	RecordNotify(ctx context.Context, phase string, subscribers int, duration time.Duration, failures int)

	// RecordObserve adjusts the number of live observation nodes by delta.
	RecordObserve(ctx context.Context, delta int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	intercepts    metric.Int64Counter
	detaches      metric.Int64Counter
	notifies      metric.Int64Counter
	notifyLatency metric.Float64Histogram
	failures      metric.Int64Counter
	observed      metric.Int64UpDownCounter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("propwatch")

	intercepts, err := meter.Int64Counter("propwatch.intercept.count",
		metric.WithDescription("Number of installed property wrappers"),
	)
	if err != nil {
		return nil, err
	}

	detaches, err := meter.Int64Counter("propwatch.detach.count",
		metric.WithDescription("Number of restored properties"),
	)
	if err != nil {
		return nil, err
	}

	notifies, err := meter.Int64Counter("propwatch.notify.count",
		metric.WithDescription("Number of subscriber fan-outs"),
	)
	if err != nil {
		return nil, err
	}

	notifyLatency, err := meter.Float64Histogram("propwatch.notify.latency_ms",
		metric.WithDescription("Fan-out latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("propwatch.callback.failures",
		metric.WithDescription("Number of subscriber callbacks that failed"),
	)
	if err != nil {
		return nil, err
	}

	observed, err := meter.Int64UpDownCounter("propwatch.observe.active",
		metric.WithDescription("Number of live observation nodes"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		intercepts:    intercepts,
		detaches:      detaches,
		notifies:      notifies,
		notifyLatency: notifyLatency,
		failures:      failures,
		observed:      observed,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordIntercept(ctx context.Context, kind string) {
	m.intercepts.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *otelMetrics) RecordDetach(ctx context.Context) {
	m.detaches.Add(ctx, 1)
}

func (m *otelMetrics) RecordNotify(ctx context.Context, phase string, subscribers int, duration time.Duration, failures int) {
	attrs := metric.WithAttributes(attribute.String("phase", phase))
	m.notifies.Add(ctx, 1, attrs)
	m.notifyLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if failures > 0 {
		m.failures.Add(ctx, int64(failures), attrs)
	}
}

func (m *otelMetrics) RecordObserve(ctx context.Context, delta int64) {
	m.observed.Add(ctx, delta)
}
