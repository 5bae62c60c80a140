package propwatch

import (
	"github.com/randalmurphal/propwatch/pkg/propwatch/emitter"
	"github.com/randalmurphal/propwatch/pkg/propwatch/observe"
)

// Forward returns an observation listener that re-emits every event on em.
// The event type is the kind ("change" or "call") and the detail is the
// observe.Change. Events are dropped once em is destroyed.
func Forward(em *emitter.Emitter, opts ...emitter.EmitOption) observe.Listener {
	return func(kind observe.Kind, c observe.Change) {
		_ = em.Emit(string(kind), c, opts...)
	}
}
