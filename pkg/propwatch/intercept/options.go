package intercept

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/propwatch/pkg/propwatch/identity"
	"github.com/randalmurphal/propwatch/pkg/propwatch/observability"
)

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithLogger sets the logger for lifecycle and subscriber failure logs.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interceptor) {
		i.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics{}
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(i *Interceptor) {
		if m != nil {
			i.metrics = m
		}
	}
}

// WithSpans sets the span manager used around subscriber fan-outs.
// Default: observability.NoopSpanManager{}
func WithSpans(s observability.SpanManager) Option {
	return func(i *Interceptor) {
		if s != nil {
			i.spans = s
		}
	}
}

// WithContext sets the context used for metrics and spans.
// Default: context.Background()
func WithContext(ctx context.Context) Option {
	return func(i *Interceptor) {
		if ctx != nil {
			i.ctx = ctx
		}
	}
}

// WithWarningHandler receives soft failures such as
// *PropertyNotSettableWarning. Warnings are logged either way.
func WithWarningHandler(fn func(error)) Option {
	return func(i *Interceptor) {
		i.onWarning = fn
	}
}

// WithRegistry sets the identity registry.
// Default: a registry with a mark key private to the interceptor.
func WithRegistry(r *identity.Registry) Option {
	return func(i *Interceptor) {
		if r != nil {
			i.ids = r
		}
	}
}

// SubscribeOption configures one subscription.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	this any
	set  bool
}

// WithThis runs the callback with this bound to v instead of the target.
func WithThis(v any) SubscribeOption {
	return func(c *subscribeConfig) {
		c.this = v
		c.set = true
	}
}

// WithoutThis runs the callback with a nil this.
func WithoutThis() SubscribeOption {
	return WithThis(nil)
}
