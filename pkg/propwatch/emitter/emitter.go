package emitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/randalmurphal/propwatch/pkg/propwatch/observability"
	"github.com/randalmurphal/propwatch/pkg/propwatch/subscription"
)

// Wildcard is the event name whose handlers receive every event.
const Wildcard = "*"

// Handler handles an event. this is the emitter the handler was registered
// on unless WithThis set another receiver.
type Handler func(this any, e *Event)

// Off removes a registration. Calls after the first are no-ops.
type Off = subscription.Unsubscribe

// Emitter dispatches named events to registered handlers.
// It is safe for concurrent use.
type Emitter struct {
	id string

	mu         sync.Mutex
	handlers   map[string]*subscription.List[Handler]
	defaults   map[string]func(e *Event)
	offs       map[subscription.Handle]Off
	seq        subscription.Sequence
	destroying bool
	destroyed  bool

	parent    *Emitter
	propagate func(e *Event)
	onDestroy func() error
	logger    *slog.Logger
	metrics   observability.MetricsRecorder

	pending sync.WaitGroup
}

// New creates an Emitter.
func New(opts ...Option) *Emitter {
	e := &Emitter{
		id:       "em-" + uuid.New().String(),
		handlers: make(map[string]*subscription.List[Handler]),
		defaults: make(map[string]func(*Event)),
		offs:     make(map[subscription.Handle]Off),
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the emitter identifier used in logs.
func (e *Emitter) ID() string {
	return e.id
}

// On registers handler for each space-separated name in names. The
// returned Off removes every registration made by the call.
func (e *Emitter) On(names string, handler Handler, opts ...OnOption) (Off, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	events := strings.Fields(names)
	if len(events) == 0 {
		return nil, ErrNoEventName
	}

	cfg := onConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	this := any(e)
	if cfg.hasThis {
		this = cfg.this
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroying || e.destroyed {
		return nil, ErrDestroyed
	}

	offs := make([]Off, 0, len(events))
	for _, name := range events {
		offs = append(offs, e.addLocked(name, handler, this))
	}
	if len(offs) == 1 {
		return offs[0], nil
	}
	return subscription.OneShot(func() {
		for _, off := range offs {
			off()
		}
	}), nil
}

func (e *Emitter) addLocked(name string, handler Handler, this any) Off {
	list := e.handlers[name]
	if list == nil {
		list = &subscription.List[Handler]{}
		e.handlers[name] = list
	}
	h := e.seq.Next()
	list.Add(subscription.Entry[Handler]{Handle: h, Callback: handler, Context: this})

	off := subscription.OneShot(func() {
		list.Remove(h)
		e.mu.Lock()
		delete(e.offs, h)
		e.mu.Unlock()
	})
	e.offs[h] = off
	return off
}

// Once is On with a handler that removes itself before its first run.
func (e *Emitter) Once(names string, handler Handler, opts ...OnOption) (Off, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	var (
		fired atomic.Bool
		mu    sync.Mutex
		off   Off
	)
	wrapped := func(this any, ev *Event) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		mu.Lock()
		remove := off
		mu.Unlock()
		if remove != nil {
			remove()
		}
		handler(this, ev)
	}

	mu.Lock()
	defer mu.Unlock()
	var err error
	off, err = e.On(names, wrapped, opts...)
	return off, err
}

// RemoveEvent removes every handler registered for name.
func (e *Emitter) RemoveEvent(name string) {
	e.mu.Lock()
	list := e.handlers[name]
	e.mu.Unlock()
	if list != nil {
		list.Clear()
	}
}

// RemoveAll removes every handler.
func (e *Emitter) RemoveAll() {
	e.mu.Lock()
	lists := slices.Collect(maps.Values(e.handlers))
	e.mu.Unlock()
	for _, list := range lists {
		list.Clear()
	}
}

// SetDefault sets the default action of typ. It runs after the handlers
// unless one called PreventDefault; cancelling the event inside it stops
// bubbling. A nil fn removes the default action.
func (e *Emitter) SetDefault(typ string, fn func(ev *Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn == nil {
		delete(e.defaults, typ)
		return
	}
	e.defaults[typ] = fn
}

// Handlers returns the number of handlers registered for name.
func (e *Emitter) Handlers(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if list := e.handlers[name]; list != nil {
		return list.Len()
	}
	return 0
}

// Emit creates an event of type name and dispatches it.
func (e *Emitter) Emit(name string, detail any, opts ...EmitOption) error {
	ev := NewEvent(name, detail, opts...)
	ev.Target = e
	return e.EmitEvent(ev)
}

// EmitEvent dispatches an existing event on e. Events that originated on
// another emitter are dispatched with AtTarget false.
func (e *Emitter) EmitEvent(ev *Event) error {
	return e.emitEvent(ev, ev.Async())
}

// emitEvent dispatches ev, on a new goroutine when async is set.
func (e *Emitter) emitEvent(ev *Event, async bool) error {
	e.mu.Lock()
	destroyed := e.destroyed
	e.mu.Unlock()
	if destroyed {
		return ErrDestroyed
	}

	if ev.Target == nil {
		ev.Target = e
	}
	ev.AtTarget = ev.Target == e
	ev.Current = e

	if async {
		e.pending.Add(1)
		go func() {
			defer e.pending.Done()
			e.dispatch(ev)
		}()
		return nil
	}
	e.dispatch(ev)
	return nil
}

// Wait blocks until every asynchronous dispatch started by e has finished.
func (e *Emitter) Wait() {
	e.pending.Wait()
}

// Destroy removes every handler registered through On, runs the destroy
// hook and makes later On and Emit calls fail with ErrDestroyed.
func (e *Emitter) Destroy() error {
	e.mu.Lock()
	if e.destroying || e.destroyed {
		e.mu.Unlock()
		return ErrDestroyed
	}
	e.destroying = true
	handles := slices.Sorted(maps.Keys(e.offs))
	offs := make([]Off, len(handles))
	for i, h := range handles {
		offs[i] = e.offs[h]
	}
	e.mu.Unlock()

	for _, off := range offs {
		if err := subscription.Guard(func() error { off(); return nil }); err != nil {
			e.logger.Warn("off failed during destroy",
				slog.String("emitter_id", e.id),
				slog.String("error", err.Error()),
			)
		}
	}

	var hookErr error
	if e.onDestroy != nil {
		hookErr = subscription.Guard(e.onDestroy)
	}

	e.mu.Lock()
	e.handlers = make(map[string]*subscription.List[Handler])
	e.defaults = make(map[string]func(*Event))
	e.destroying = false
	e.destroyed = true
	e.mu.Unlock()

	if hookErr != nil {
		return fmt.Errorf("destroy hook: %w", hookErr)
	}
	return nil
}

// Destroyed reports whether Destroy completed.
func (e *Emitter) Destroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

func (e *Emitter) dispatch(ev *Event) {
	e.mu.Lock()
	var entries, wildcard []subscription.Entry[Handler]
	if list := e.handlers[ev.Type]; list != nil {
		entries = list.Snapshot()
	}
	if list := e.handlers[Wildcard]; list != nil && ev.Type != Wildcard {
		wildcard = list.Snapshot()
	}
	def := e.defaults[ev.Type]
	e.mu.Unlock()

	done := observability.TimedOperation()
	failures := 0
	for _, entry := range entries {
		if ev.Canceled() {
			break
		}
		failures += e.invoke(entry, ev)
	}
	propagate := !ev.Canceled()

	if def != nil && !ev.DefaultPrevented() {
		if err := subscription.Guard(func() error { def(ev); return nil }); err != nil {
			failures++
			observability.LogCallbackFailure(e.logger, e.id, ev.Type, "default", err)
		}
		propagate = !ev.Canceled()
	}

	for _, entry := range wildcard {
		failures += e.invoke(entry, ev)
	}
	e.metrics.RecordNotify(context.Background(), "emit", len(entries)+len(wildcard), done(), failures)

	if propagate && ev.Bubbles {
		e.bubble(ev)
	}
}

func (e *Emitter) invoke(entry subscription.Entry[Handler], ev *Event) int {
	err := subscription.Guard(func() error {
		entry.Callback(entry.Context, ev)
		return nil
	})
	if err == nil {
		return 0
	}
	observability.LogCallbackFailure(e.logger, e.id, ev.Type, "emit", err)
	return 1
}

func (e *Emitter) bubble(ev *Event) {
	if e.propagate != nil {
		if err := subscription.Guard(func() error { e.propagate(ev); return nil }); err != nil {
			observability.LogCallbackFailure(e.logger, e.id, ev.Type, "propagate", err)
		}
		return
	}
	if e.parent == nil {
		return
	}
	// Bubbling continues on this goroutine; an async event is not
	// re-scheduled by the parent.
	err := e.parent.emitEvent(ev, false)
	if err != nil && !errors.Is(err, ErrDestroyed) {
		e.logger.Warn("bubble failed",
			slog.String("emitter_id", e.id),
			slog.String("event", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
