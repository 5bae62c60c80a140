package emitter

import "errors"

// Sentinel errors for emitter operations.
var (
	// ErrDestroyed indicates Destroy was already called.
	ErrDestroyed = errors.New("emitter destroyed")

	// ErrNilHandler indicates On or Once was given a nil handler.
	ErrNilHandler = errors.New("nil event handler")

	// ErrNoEventName indicates On or Once was given no event name.
	ErrNoEventName = errors.New("no event name")
)
