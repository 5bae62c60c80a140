package identity

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/randalmurphal/propwatch/pkg/propwatch/object"
)

// ID is an opaque per-target token.
type ID string

// SharedMark is the mark key holding an identifier shared by every registry.
const SharedMark = "propwatch.id"

// ErrUnsupportedTarget is returned for values that cannot carry marks.
var ErrUnsupportedTarget = errors.New("unsupported target")

// UnsupportedTargetError reports a value that cannot be identified.
type UnsupportedTargetError struct {
	Value any
}

// Error implements the error interface.
func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("identity: cannot identify value of type %T", e.Value)
}

// Unwrap returns ErrUnsupportedTarget.
func (e *UnsupportedTargetError) Unwrap() error {
	return ErrUnsupportedTarget
}

// Registry mints and remembers identifiers under one mark key.
type Registry struct {
	mark   string
	prefix string
	mu     sync.Mutex
}

// NewRegistry creates a registry storing its identifiers under mark.
// Minted identifiers look like "<prefix>-<uuid>".
func NewRegistry(mark, prefix string) *Registry {
	return &Registry{mark: mark, prefix: prefix}
}

// NewScopedRegistry creates a registry whose mark key is unique to it, so
// that several registries with the same scope never share identifiers
// unless the target was stamped.
func NewScopedRegistry(scope, prefix string) *Registry {
	return NewRegistry(scope+"/"+uuid.New().String(), prefix)
}

// MarkKey returns the hidden mark key owned by the registry.
func (r *Registry) MarkKey() string {
	return r.mark
}

// Identify returns the identifier of v, minting one on first use.
// A registry mark wins over a shared mark; a shared mark is adopted as the
// registry's own so that both stay in agreement.
func (r *Registry) Identify(v any) (ID, error) {
	t, ok := v.(object.Target)
	if !ok {
		return "", &UnsupportedTargetError{Value: v}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := t.Mark(r.mark); ok {
		return ID(id), nil
	}
	if id, ok := t.Mark(SharedMark); ok {
		t.SetMark(r.mark, id)
		return ID(id), nil
	}
	id := r.mint()
	t.SetMark(r.mark, string(id))
	return id, nil
}

// Lookup returns the identifier v carries for this registry without minting.
func (r *Registry) Lookup(v any) (ID, bool) {
	t, ok := v.(object.Target)
	if !ok {
		return "", false
	}
	id, ok := t.Mark(r.mark)
	return ID(id), ok
}

// Release removes the registry's mark from v. Shared marks are kept.
func (r *Registry) Release(v any) {
	if t, ok := v.(object.Target); ok {
		r.mu.Lock()
		t.DeleteMark(r.mark)
		r.mu.Unlock()
	}
}

func (r *Registry) mint() ID {
	return ID(fmt.Sprintf("%s-%s", r.prefix, uuid.New().String()))
}

var stampMu sync.Mutex

// Stamp gives v a shared identifier, or returns the one it already has.
func Stamp(v any) (ID, error) {
	t, ok := v.(object.Target)
	if !ok {
		return "", &UnsupportedTargetError{Value: v}
	}

	stampMu.Lock()
	defer stampMu.Unlock()

	if id, ok := t.Mark(SharedMark); ok {
		return ID(id), nil
	}
	id := ID(uuid.New().String())
	t.SetMark(SharedMark, string(id))
	return id, nil
}
