package object

import (
	"errors"
	"fmt"
)

// Sentinel errors for property operations.
var (
	// ErrFrozen indicates the object or array no longer accepts changes.
	ErrFrozen = errors.New("target is frozen")

	// ErrNotWritable indicates a data property is read-only or an accessor has no setter.
	ErrNotWritable = errors.New("property is not writable")

	// ErrNotConfigurable indicates a property cannot be redefined or deleted.
	ErrNotConfigurable = errors.New("property is not configurable")

	// ErrNoSuchProperty indicates the object has no own property with that name.
	ErrNoSuchProperty = errors.New("no such property")

	// ErrNotCallable indicates the property value is not a Func.
	ErrNotCallable = errors.New("property is not callable")

	// ErrIndexOutOfRange indicates an array index outside [0, Len()).
	ErrIndexOutOfRange = errors.New("index out of range")
)

// PropertyError wraps a property operation failure with the property name.
type PropertyError struct {
	// Property is the property name (or index, for arrays).
	Property string
	// Op is the operation that failed ("get", "set", "define", "delete", "call").
	Op string
	// Err is the underlying sentinel.
	Err error
}

// Error implements the error interface.
func (e *PropertyError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Property, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *PropertyError) Unwrap() error {
	return e.Err
}

func propErr(op, name string, err error) error {
	return &PropertyError{Property: name, Op: op, Err: err}
}
