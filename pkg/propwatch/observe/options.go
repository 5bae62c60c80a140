package observe

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/propwatch/pkg/propwatch/identity"
	"github.com/randalmurphal/propwatch/pkg/propwatch/journal"
	"github.com/randalmurphal/propwatch/pkg/propwatch/observability"
)

// Option configures an Observer.
type Option func(*Observer)

// WithLogger sets the logger. Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(o *Observer) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: observability.NoopMetrics{}
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *Observer) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithSpans sets the span manager. Default: observability.NoopSpanManager{}
func WithSpans(s observability.SpanManager) Option {
	return func(o *Observer) {
		if s != nil {
			o.spans = s
		}
	}
}

// WithJournal records every originating event in store.
func WithJournal(store journal.Store) Option {
	return func(o *Observer) {
		o.journal = store
	}
}

// WithContext sets the context used for metrics, spans and journal writes.
// Default: context.Background()
func WithContext(ctx context.Context) Option {
	return func(o *Observer) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithRegistry sets the identity registry.
// Default: a registry with a mark key private to the observer.
func WithRegistry(r *identity.Registry) Option {
	return func(o *Observer) {
		if r != nil {
			o.ids = r
		}
	}
}
