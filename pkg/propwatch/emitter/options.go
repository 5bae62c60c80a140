package emitter

import (
	"log/slog"

	"github.com/randalmurphal/propwatch/pkg/propwatch/observability"
)

// Option configures an Emitter.
type Option func(*Emitter)

// WithLogger sets the logger. Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Default: observability.NoopMetrics{}
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Emitter) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithParent sets the emitter bubbling events are re-dispatched on.
func WithParent(parent *Emitter) Option {
	return func(e *Emitter) {
		e.parent = parent
	}
}

// WithPropagator replaces parent bubbling with fn.
func WithPropagator(fn func(e *Event)) Option {
	return func(e *Emitter) {
		e.propagate = fn
	}
}

// WithOnDestroy sets a hook run by Destroy after every listener is removed.
func WithOnDestroy(fn func() error) Option {
	return func(e *Emitter) {
		e.onDestroy = fn
	}
}

// OnOption configures a single registration.
type OnOption func(*onConfig)

type onConfig struct {
	this    any
	hasThis bool
}

// WithThis sets the receiver passed to the handler.
// Default: the emitter the handler was registered on.
func WithThis(v any) OnOption {
	return func(c *onConfig) {
		c.this = v
		c.hasThis = true
	}
}

// EmitOption configures an emitted event.
type EmitOption func(*Event)

// WithBubbles sets whether the event propagates. Default: true
func WithBubbles(b bool) EmitOption {
	return func(e *Event) {
		e.Bubbles = b
	}
}

// WithCancelable sets whether Cancel stops the event. Default: true
func WithCancelable(b bool) EmitOption {
	return func(e *Event) {
		e.Cancelable = b
	}
}

// WithOnCancel sets the function Cancel calls.
func WithOnCancel(fn func(e *Event)) EmitOption {
	return func(e *Event) {
		e.OnCancel = fn
	}
}

// Async dispatches the event on a new goroutine. Emit returns immediately;
// Wait blocks until the dispatch finished.
func Async() EmitOption {
	return func(e *Event) {
		e.async = true
	}
}
