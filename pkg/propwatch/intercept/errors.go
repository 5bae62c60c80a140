package intercept

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/propwatch/pkg/propwatch/identity"
	"github.com/randalmurphal/propwatch/pkg/propwatch/object"
)

// Sentinel errors for subscription arguments.
var (
	// ErrInvalidPhase indicates a phase other than before or after.
	ErrInvalidPhase = errors.New("invalid phase")

	// ErrNilCallback indicates a nil subscriber.
	ErrNilCallback = errors.New("nil callback")
)

// NonConfigurablePropertyError reports a property whose descriptor cannot
// be replaced.
type NonConfigurablePropertyError struct {
	Property string
}

// Error implements the error interface.
func (e *NonConfigurablePropertyError) Error() string {
	return fmt.Sprintf("property %q is not configurable", e.Property)
}

// Unwrap returns object.ErrNotConfigurable.
func (e *NonConfigurablePropertyError) Unwrap() error {
	return object.ErrNotConfigurable
}

// PropertyNotSettableWarning reports an accessor intercepted without a
// setter. Intercept still succeeds; writes are simply not observed.
type PropertyNotSettableWarning struct {
	TargetID identity.ID
	Property string
}

// Error implements the error interface.
func (w *PropertyNotSettableWarning) Error() string {
	return fmt.Sprintf("property %q of %s has no setter, writes are not intercepted", w.Property, w.TargetID)
}
