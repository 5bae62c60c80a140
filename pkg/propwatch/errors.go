package propwatch

import (
	"github.com/randalmurphal/propwatch/pkg/propwatch/emitter"
	"github.com/randalmurphal/propwatch/pkg/propwatch/identity"
	"github.com/randalmurphal/propwatch/pkg/propwatch/intercept"
	"github.com/randalmurphal/propwatch/pkg/propwatch/journal"
	"github.com/randalmurphal/propwatch/pkg/propwatch/object"
	"github.com/randalmurphal/propwatch/pkg/propwatch/observe"
)

// Re-exported sentinels so callers can match with errors.Is without
// importing the subpackages.
var (
	ErrUnsupportedTarget = identity.ErrUnsupportedTarget
	ErrNotConfigurable   = object.ErrNotConfigurable
	ErrNoSuchProperty    = object.ErrNoSuchProperty
	ErrFrozen            = object.ErrFrozen
	ErrNotObserved       = observe.ErrNotObserved
	ErrInvalidPhase      = intercept.ErrInvalidPhase
	ErrNilCallback       = intercept.ErrNilCallback
	ErrStoreClosed       = journal.ErrStoreClosed
	ErrDestroyed         = emitter.ErrDestroyed
)

// Re-exported error types.
type (
	UnsupportedTargetError       = identity.UnsupportedTargetError
	NonConfigurablePropertyError = intercept.NonConfigurablePropertyError
	PropertyNotSettableWarning   = intercept.PropertyNotSettableWarning
	InvalidTargetError           = observe.InvalidTargetError
	FrozenTargetError            = observe.FrozenTargetError
	PropertyError                = object.PropertyError
)
