// Package subscription implements ordered per-phase callback lists with
// handle-based removal and isolated fan-out.
//
// Go function values cannot be compared, so every subscription is given a
// Handle when it is added. The Unsubscribe closure returned to callers
// removes the first entry carrying that handle and does nothing afterwards.
package subscription

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Phase is the notification point relative to the real operation.
type Phase string

const (
	Before Phase = "before"
	After  Phase = "after"
)

// Valid reports whether p is Before or After.
func (p Phase) Valid() bool {
	return p == Before || p == After
}

// Handle identifies one subscription.
type Handle uint64

// Sequence mints handles. The zero value is ready to use.
type Sequence struct {
	n atomic.Uint64
}

// Next returns a fresh handle. Handles are never zero.
func (s *Sequence) Next() Handle {
	return Handle(s.n.Add(1))
}

// Entry is a callback with the context it runs under.
type Entry[F any] struct {
	Handle   Handle
	Callback F
	Context  any
}

// List is an ordered, concurrency-safe subscription list.
type List[F any] struct {
	mu      sync.Mutex
	entries []Entry[F]
}

// Add appends e.
func (l *List[F]) Add(e Entry[F]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Remove deletes the first entry with handle h and reports whether one was found.
func (l *List[F]) Remove(h Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.Handle == h {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the entries in insertion order.
func (l *List[F]) Snapshot() []Entry[F] {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return nil
	}
	return append([]Entry[F](nil), l.entries...)
}

// Len returns the number of entries.
func (l *List[F]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear removes every entry.
func (l *List[F]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Unsubscribe removes one subscription. Calls after the first are no-ops.
type Unsubscribe func()

// OneShot wraps remove so it runs at most once.
func OneShot(remove func()) Unsubscribe {
	var once sync.Once
	return func() { once.Do(remove) }
}

// PanicError captures a panic raised by a callback.
type PanicError struct {
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("callback panicked: %v", e.Value)
}

// Fanout calls invoke for every entry in order. Errors returned by invoke
// and panics raised inside it are handed to onFailure and never stop the
// remaining entries. The number of failures is returned.
//
// Callers pass a snapshot, so subscriptions added or removed by a callback
// take effect from the next fan-out.
func Fanout[F any](entries []Entry[F], invoke func(Entry[F]) error, onFailure func(Entry[F], error)) int {
	failures := 0
	for _, e := range entries {
		if err := Guard(func() error { return invoke(e) }); err != nil {
			failures++
			if onFailure != nil {
				onFailure(e, err)
			}
		}
	}
	return failures
}

// Guard runs fn and converts a panic raised inside it into a *PanicError.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()
	return fn()
}
