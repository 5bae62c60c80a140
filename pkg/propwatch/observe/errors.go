package observe

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/propwatch/pkg/propwatch/identity"
)

// ErrNotObserved is returned for views that were never observed or have
// already been unobserved.
var ErrNotObserved = errors.New("not observed")

// InvalidTargetError reports a value that is neither an object nor an array.
type InvalidTargetError struct {
	Value any
}

// Error implements the error interface.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("observe cannot be applied to type %T", e.Value)
}

// Unwrap returns identity.ErrUnsupportedTarget.
func (e *InvalidTargetError) Unwrap() error {
	return identity.ErrUnsupportedTarget
}

// FrozenTargetError reports an immutable target.
type FrozenTargetError struct {
	Value any
}

// Error implements the error interface.
func (e *FrozenTargetError) Error() string {
	return fmt.Sprintf("cannot observe changes in frozen %T", e.Value)
}
