// Package emitter provides named-event dispatch with cancellation, default
// actions and bubbling to a parent emitter.
//
// The interception and observation packages never depend on it; it is the
// application-level collaborator that observation events are usually
// forwarded to (see propwatch.Forward).
//
// Basic usage:
//
//	em := emitter.New()
//	off, err := em.On("save load", func(this any, e *emitter.Event) {
//	    fmt.Println(e.Type, e.Detail)
//	})
//	em.Emit("save", doc)
//	off()
//
// Events bubble to the parent set with WithParent unless a handler cancels
// them. A default action set with SetDefault runs after the handlers unless
// one of them called PreventDefault.
package emitter

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event is a message dispatched by an Emitter.
type Event struct {
	// ID uniquely identifies the event.
	ID string
	// Type is the event name.
	Type string
	// Detail is the payload.
	Detail any
	// Target is the emitter that first dispatched the event.
	Target *Emitter
	// Current is the emitter currently dispatching the event.
	Current *Emitter
	// AtTarget is true while the event is dispatched by its target.
	AtTarget bool
	// Timestamp is when the event was created.
	Timestamp time.Time
	// Bubbles allows propagation to the parent emitter. Default: true
	Bubbles bool
	// Cancelable allows Cancel to stop dispatch. Default: true
	Cancelable bool
	// OnCancel is called by Cancel.
	OnCancel func(e *Event)

	async            bool
	canceled         atomic.Bool
	defaultPrevented atomic.Bool
}

// NewEvent creates an event of type typ carrying detail.
func NewEvent(typ string, detail any, opts ...EmitOption) *Event {
	e := &Event{
		ID:         uuid.New().String(),
		Type:       typ,
		Detail:     detail,
		AtTarget:   true,
		Timestamp:  time.Now(),
		Bubbles:    true,
		Cancelable: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cancel stops the remaining handlers and bubbling when the event is
// cancelable, then calls OnCancel.
func (e *Event) Cancel() {
	if e.Cancelable {
		e.canceled.Store(true)
	}
	if e.OnCancel != nil {
		e.OnCancel(e)
	}
}

// Canceled reports whether Cancel stopped the event.
func (e *Event) Canceled() bool {
	return e.canceled.Load()
}

// PreventDefault suppresses the default action of the event type.
func (e *Event) PreventDefault() {
	e.defaultPrevented.Store(true)
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented.Load()
}

// Async reports whether the event is dispatched off the caller's goroutine.
func (e *Event) Async() bool {
	return e.async
}
