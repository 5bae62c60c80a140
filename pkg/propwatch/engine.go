package propwatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/randalmurphal/propwatch/pkg/propwatch/config"
	"github.com/randalmurphal/propwatch/pkg/propwatch/identity"
	"github.com/randalmurphal/propwatch/pkg/propwatch/intercept"
	"github.com/randalmurphal/propwatch/pkg/propwatch/journal"
	"github.com/randalmurphal/propwatch/pkg/propwatch/object"
	"github.com/randalmurphal/propwatch/pkg/propwatch/observability"
	"github.com/randalmurphal/propwatch/pkg/propwatch/observe"
)

// Engine owns the interception and observation tables of one application.
// Engines are independent: tearing one down never affects another.
type Engine struct {
	interceptor *intercept.Interceptor
	observer    *observe.Observer

	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	journal   journal.Store
	ctx       context.Context
	onWarning func(error)

	closeOnce sync.Once
	closeErr  error
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}

	icOpts := []intercept.Option{
		intercept.WithLogger(e.logger),
		intercept.WithMetrics(e.metrics),
		intercept.WithSpans(e.spans),
		intercept.WithContext(e.ctx),
	}
	if e.onWarning != nil {
		icOpts = append(icOpts, intercept.WithWarningHandler(e.onWarning))
	}
	e.interceptor = intercept.New(icOpts...)

	e.observer = observe.New(
		observe.WithLogger(e.logger),
		observe.WithMetrics(e.metrics),
		observe.WithSpans(e.spans),
		observe.WithJournal(e.journal),
		observe.WithContext(e.ctx),
	)
	return e
}

// NewFromSettings builds an Engine from settings. Logs go to stderr in the
// configured format and level; opts are applied last and may override any
// of it.
func NewFromSettings(s config.Settings, opts ...Option) (*Engine, error) {
	return newFromSettings(s, os.Stderr, opts...)
}

func newFromSettings(s config.Settings, logOut io.Writer, opts ...Option) (*Engine, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	level, err := s.Level()
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(s.LogFormat, config.FormatJSON) {
		handler = slog.NewJSONHandler(logOut, handlerOpts)
	} else {
		handler = slog.NewTextHandler(logOut, handlerOpts)
	}

	base := []Option{WithLogger(slog.New(handler))}
	if s.Metrics {
		base = append(base, WithMetrics(observability.NewMetricsRecorder()))
	}
	if s.Tracing {
		base = append(base, WithSpans(observability.NewSpanManager()))
	}
	if s.Journal.Enabled {
		store, err := openJournal(s.Journal)
		if err != nil {
			return nil, err
		}
		base = append(base, WithJournal(store))
	}

	return New(append(base, opts...)...), nil
}

func openJournal(s config.JournalSettings) (journal.Store, error) {
	switch s.Driver {
	case config.DriverSQLite:
		store, err := journal.NewSQLiteStore(s.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		return store, nil
	default:
		return journal.NewMemoryStore(), nil
	}
}

// Interceptor returns the engine's interceptor.
func (e *Engine) Interceptor() *intercept.Interceptor { return e.interceptor }

// Observer returns the engine's observer.
func (e *Engine) Observer() *observe.Observer { return e.observer }

// Journal returns the configured journal, or nil.
func (e *Engine) Journal() journal.Store { return e.journal }

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Intercept wraps the property name of target. See intercept.Interceptor.
func (e *Engine) Intercept(target any, name string) (identity.ID, error) {
	return e.interceptor.Intercept(target, name)
}

// Detach restores the property name of target.
func (e *Engine) Detach(target any, name string) error {
	return e.interceptor.Detach(target, name)
}

// DetachAll restores every intercepted property of target.
func (e *Engine) DetachAll(target any) error {
	return e.interceptor.DetachAll(target)
}

// Before subscribes cb to run before name is written or called,
// intercepting it first when needed.
func (e *Engine) Before(target any, name string, cb intercept.Callback, opts ...intercept.SubscribeOption) (intercept.Unsubscribe, error) {
	return e.interceptor.Before(target, name, cb, opts...)
}

// After subscribes cb to run after name is written or called,
// intercepting it first when needed.
func (e *Engine) After(target any, name string, cb intercept.Callback, opts ...intercept.SubscribeOption) (intercept.Unsubscribe, error) {
	return e.interceptor.After(target, name, cb, opts...)
}

// Observe returns the proxy view of target and subscribes listener to
// every property.
func (e *Engine) Observe(target any, listener observe.Listener) (observe.View, error) {
	return e.observer.Observe(target, listener)
}

// ObserveProperty returns the proxy view of target and subscribes listener
// to name.
func (e *Engine) ObserveProperty(target any, name string, listener observe.Listener) (observe.View, error) {
	return e.observer.ObserveProperty(target, name, listener)
}

// ObserveObject is Observe for objects.
func (e *Engine) ObserveObject(target any, listener observe.Listener) (*observe.Proxy, error) {
	return e.observer.ObserveObject(target, listener)
}

// ObserveArray is Observe for arrays.
func (e *Engine) ObserveArray(target any, listener observe.Listener) (*observe.ArrayProxy, error) {
	return e.observer.ObserveArray(target, listener)
}

// Unobserve tears down the view and returns the original.
func (e *Engine) Unobserve(v observe.View) (object.Target, error) {
	return e.observer.Unobserve(v)
}

// Close closes the journal. Interception and observation keep working;
// later events are simply not journaled. Calls after the first return
// the first result.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		if e.journal == nil {
			return
		}
		if err := e.journal.Close(); err != nil {
			e.closeErr = fmt.Errorf("close journal: %w", err)
		}
	})
	return e.closeErr
}
