package propwatch

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/propwatch/pkg/propwatch/journal"
	"github.com/randalmurphal/propwatch/pkg/propwatch/observability"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by interception and observation.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Default: observability.NoopMetrics{}
//
// Example:
//
//	engine := propwatch.New(propwatch.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithSpans sets the span manager. Default: observability.NoopSpanManager{}
func WithSpans(s observability.SpanManager) Option {
	return func(e *Engine) {
		if s != nil {
			e.spans = s
		}
	}
}

// WithJournal records observation events in store. The engine closes the
// store on Close.
func WithJournal(store journal.Store) Option {
	return func(e *Engine) {
		e.journal = store
	}
}

// WithContext sets the context used for metrics, spans and journal writes.
// Default: context.Background()
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		if ctx != nil {
			e.ctx = ctx
		}
	}
}

// WithWarningHandler receives soft failures such as
// *PropertyNotSettableWarning. They are logged either way.
func WithWarningHandler(fn func(error)) Option {
	return func(e *Engine) {
		e.onWarning = fn
	}
}
