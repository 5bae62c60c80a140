// Package object provides the dynamic property model that propwatch instruments.
//
// Go values cannot have their fields redefined at runtime, so instrumented
// targets expose a small capability interface instead: hidden identity marks
// (Target) and descriptor-level property definition (Definer). Object and
// Array are the two implementations shipped with the module.
//
// Accessor bodies and methods always run without the owning object's lock
// held, so they may freely read or write the same object.
package object

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync"
)

// Func is the function value type. A data property holding a Func is a method.
// this is the receiver the function was invoked on.
type Func func(this any, args ...any) any

// AsFunc reports whether v is callable and returns it as a Func.
func AsFunc(v any) (Func, bool) {
	switch f := v.(type) {
	case Func:
		return f, f != nil
	case func(any, ...any) any:
		return f, f != nil
	}
	return nil, false
}

// Descriptor describes one own property.
// A descriptor with Get or Set is an accessor; otherwise it is a data property.
type Descriptor struct {
	Value        any
	Get          func() any
	Set          func(v any) error
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// IsAccessor reports whether the descriptor defines a getter or setter.
func (d Descriptor) IsAccessor() bool {
	return d.Get != nil || d.Set != nil
}

// DataProperty returns a writable, enumerable, configurable data descriptor.
func DataProperty(v any) Descriptor {
	return Descriptor{Value: v, Writable: true, Enumerable: true, Configurable: true}
}

// Target is anything that can carry hidden identity marks.
type Target interface {
	Mark(key string) (string, bool)
	SetMark(key, value string)
	DeleteMark(key string)
	Frozen() bool
}

// Definer is a Target whose own properties can be inspected and redefined.
type Definer interface {
	Target
	OwnProperty(name string) (Descriptor, bool)
	DefineProperty(name string, d Descriptor) error
}

// marks holds non-enumerable identity markers.
type marks struct {
	markMu sync.Mutex
	values map[string]string
}

// Mark returns the marker stored under key.
func (m *marks) Mark(key string) (string, bool) {
	m.markMu.Lock()
	defer m.markMu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// SetMark stores a marker under key.
func (m *marks) SetMark(key, value string) {
	m.markMu.Lock()
	defer m.markMu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
}

// DeleteMark removes the marker stored under key.
func (m *marks) DeleteMark(key string) {
	m.markMu.Lock()
	defer m.markMu.Unlock()
	delete(m.values, key)
}

// Object is an ordered, concurrency-safe property bag.
type Object struct {
	marks

	mu     sync.RWMutex
	keys   []string
	props  map[string]*Descriptor
	frozen bool
}

var (
	_ Definer = (*Object)(nil)
	_ Target  = (*Array)(nil)
)

// New creates an empty object.
func New() *Object {
	return &Object{props: make(map[string]*Descriptor)}
}

// FromMap builds an object from m. Keys are added in sorted order, nested
// maps become *Object and slices become *Array.
func FromMap(m map[string]any) *Object {
	o := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.keys = append(o.keys, k)
		d := DataProperty(From(m[k]))
		o.props[k] = &d
	}
	return o
}

// From converts plain Go containers into the dynamic model.
// map[string]any becomes *Object, []any becomes *Array; other values are returned as is.
func From(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return FromMap(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = From(item)
		}
		return &Array{items: items}
	}
	return v
}

// IsTarget reports whether v can be identified and observed.
func IsTarget(v any) bool {
	_, ok := v.(Target)
	return ok
}

// OwnProperty returns a copy of the descriptor for name.
func (o *Object) OwnProperty(name string) (Descriptor, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	d, ok := o.props[name]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// Has reports whether name is defined. Objects have no prototype chain,
// so Has and HasOwn agree.
func (o *Object) Has(name string) bool { return o.HasOwn(name) }

// HasOwn reports whether name is an own property.
func (o *Object) HasOwn(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.props[name]
	return ok
}

// Keys returns the enumerable own property names in insertion order.
func (o *Object) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	keys := make([]string, 0, len(o.keys))
	for _, k := range o.keys {
		if o.props[k].Enumerable {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of own properties, enumerable or not.
func (o *Object) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.keys)
}

// Get returns the value of name, invoking its getter for accessors.
// Missing properties read as nil.
func (o *Object) Get(name string) any {
	v, _ := o.Lookup(name)
	return v
}

// Lookup is Get with a presence flag.
func (o *Object) Lookup(name string) (any, bool) {
	o.mu.RLock()
	d, ok := o.props[name]
	if !ok {
		o.mu.RUnlock()
		return nil, false
	}
	accessor, get, v := d.IsAccessor(), d.Get, d.Value
	o.mu.RUnlock()

	if !accessor {
		return v, true
	}
	if get == nil {
		return nil, true
	}
	return get(), true
}

// Set assigns v to name. Accessors delegate to their setter; missing
// properties are added unless the object is frozen.
func (o *Object) Set(name string, v any) error {
	o.mu.Lock()
	d, ok := o.props[name]
	if !ok {
		if o.frozen {
			o.mu.Unlock()
			return propErr("set", name, ErrFrozen)
		}
		nd := DataProperty(v)
		o.props[name] = &nd
		o.keys = append(o.keys, name)
		o.mu.Unlock()
		return nil
	}

	if d.IsAccessor() {
		set := d.Set
		o.mu.Unlock()
		if set == nil {
			return propErr("set", name, ErrNotWritable)
		}
		return set(v)
	}

	if !d.Writable {
		o.mu.Unlock()
		return propErr("set", name, ErrNotWritable)
	}
	d.Value = v
	o.mu.Unlock()
	return nil
}

// Call invokes the method stored under name with the object as receiver.
func (o *Object) Call(name string, args ...any) (any, error) {
	v, ok := o.Lookup(name)
	if !ok {
		return nil, propErr("call", name, ErrNoSuchProperty)
	}
	fn, ok := AsFunc(v)
	if !ok {
		return nil, propErr("call", name, ErrNotCallable)
	}
	return fn(o, args...), nil
}

// DefineProperty installs d under name, replacing any configurable property.
func (o *Object) DefineProperty(name string, d Descriptor) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	existing, ok := o.props[name]
	if !ok {
		if o.frozen {
			return propErr("define", name, ErrFrozen)
		}
		nd := d
		o.props[name] = &nd
		o.keys = append(o.keys, name)
		return nil
	}
	if !existing.Configurable {
		return propErr("define", name, ErrNotConfigurable)
	}
	*existing = d
	return nil
}

// Delete removes a configurable own property. Deleting a missing property is a no-op.
func (o *Object) Delete(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	d, ok := o.props[name]
	if !ok {
		return nil
	}
	if !d.Configurable {
		return propErr("delete", name, ErrNotConfigurable)
	}
	delete(o.props, name)
	for i, k := range o.keys {
		if k == name {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Freeze makes every property non-configurable and every data property
// read-only, and stops new properties from being added.
func (o *Object) Freeze() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frozen = true
	for _, d := range o.props {
		d.Configurable = false
		if !d.IsAccessor() {
			d.Writable = false
		}
	}
}

// Frozen reports whether Freeze was called.
func (o *Object) Frozen() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.frozen
}

// Clone returns a deep copy of the object's own properties.
// Accessors are copied by reference; marks and frozen state are not copied.
// The object graph must be acyclic.
func (o *Object) Clone() *Object {
	o.mu.RLock()
	keys := append([]string(nil), o.keys...)
	descs := make([]Descriptor, len(keys))
	for i, k := range keys {
		descs[i] = *o.props[k]
	}
	o.mu.RUnlock()

	c := New()
	for i, k := range keys {
		d := descs[i]
		if !d.IsAccessor() {
			d.Value = Clone(d.Value)
		}
		c.keys = append(c.keys, k)
		c.props[k] = &d
	}
	return c
}

// Clone deep-copies *Object and *Array values and returns anything else unchanged.
func Clone(v any) any {
	switch val := v.(type) {
	case *Object:
		return val.Clone()
	case *Array:
		return val.Clone()
	}
	return v
}

// MarshalJSON encodes the enumerable own properties in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.Get(k))
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
