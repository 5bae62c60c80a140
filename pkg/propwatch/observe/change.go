package observe

import "encoding/json"

// Kind is the event kind delivered to listeners.
type Kind string

const (
	KindChange Kind = "change"
	KindCall   Kind = "call"
)

// ChangeType describes what produced an event.
type ChangeType string

const (
	LiteralProperty  ChangeType = "literalProperty"
	FunctionProperty ChangeType = "functionProperty"
	ObjectProperty   ChangeType = "objectProperty"
	ArrayProperty    ChangeType = "arrayProperty"
	ArrayMethod      ChangeType = "arrayMethod"
	ArrayValue       ChangeType = "arrayValue"
)

// Change is the payload of an observation event.
type Change struct {
	Type ChangeType
	// Name is the property or method name. Bubbled events carry the full
	// path, e.g. "x.y" or "list[2]". Empty for arrayValue at the origin.
	Name string
	// Index is the element position of an arrayValue change.
	Index int
	Prev  any
	Curr  any
	// Args holds call arguments for functionProperty and arrayMethod.
	Args []any
}

// Listener receives observation events. A panicking listener is logged and
// does not stop the others.
type Listener func(kind Kind, c Change)

// MarshalJSON encodes the change with only the fields its type uses.
func (c Change) MarshalJSON() ([]byte, error) {
	m := map[string]any{"type": c.Type}
	if c.Name != "" {
		m["name"] = c.Name
	}
	switch c.Type {
	case ArrayValue:
		m["index"] = c.Index
		m["prev"] = c.Prev
		m["curr"] = c.Curr
	case FunctionProperty:
		m["args"] = argsOrEmpty(c.Args)
	case ArrayMethod:
		m["args"] = argsOrEmpty(c.Args)
		m["prev"] = c.Prev
		m["curr"] = c.Curr
	default:
		m["prev"] = c.Prev
		m["curr"] = c.Curr
	}
	return json.Marshal(m)
}

func argsOrEmpty(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}
