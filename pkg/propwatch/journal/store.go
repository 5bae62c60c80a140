// Package journal records observed changes and calls for later inspection.
//
// The observer appends one Entry per originating change or call. Bubbled
// copies of a nested change are not journaled again. Journal failures are
// logged by the observer and never disturb the observed object.
package journal

import (
	"context"
	"errors"
	"time"
)

// Store persists journal entries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores e. The store assigns the next sequence number for
	// e.TargetID and fills Timestamp when it is zero.
	Append(ctx context.Context, e Entry) error

	// List returns the entries of a target ordered by sequence.
	// Returns an empty slice (not error) for unknown targets.
	List(ctx context.Context, targetID string) ([]Entry, error)

	// Count returns the total number of stored entries.
	Count(ctx context.Context) (int, error)

	// DeleteTarget removes every entry of a target.
	DeleteTarget(ctx context.Context, targetID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Entry is one journaled observation.
type Entry struct {
	TargetID string
	Sequence int64
	// Kind is "change" or "call".
	Kind string
	// Type is the change type, e.g. "literalProperty" or "arrayMethod".
	Type string
	// Name is the property name as reported to listeners.
	Name string
	// Payload is the JSON encoded change.
	Payload   []byte
	Timestamp time.Time
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("journal store closed")
