package observe

import (
	"github.com/randalmurphal/propwatch/pkg/propwatch/identity"
	"github.com/randalmurphal/propwatch/pkg/propwatch/object"
)

// Proxy is the observed view of an object. Reads of observed properties are
// live against the original; writes go to the original and notify listeners.
type Proxy struct {
	o *Observer
	n *node
}

var (
	_ View = (*Proxy)(nil)
	_ View = (*ArrayProxy)(nil)
)

// ID returns the observation identity of the original.
func (p *Proxy) ID() identity.ID { return p.n.id }

// Original returns the observed object.
func (p *Proxy) Original() object.Target { return p.n.obj }

// Get returns the value of name. Object and array properties come back as
// *Proxy and *ArrayProxy views; function properties come back as an
// object.Func that calls through Call.
func (p *Proxy) Get(name string) any {
	b, ok := p.o.bindingOf(p.n, name)
	if !ok {
		if v, ok := p.extra(name); ok {
			return v
		}
		return p.n.obj.Get(name)
	}

	switch b.typ {
	case FunctionProperty:
		return object.Func(func(_ any, args ...any) any {
			res, _ := p.Call(name, args...)
			return res
		})
	case ObjectProperty, ArrayProperty:
		if c := p.o.child(p.n, b); c != nil {
			return c.view()
		}
	}
	return p.n.obj.Get(name)
}

// Set assigns v to name. Observed properties are written to the original
// and notify listeners; any other name is kept on the proxy until Unobserve.
func (p *Proxy) Set(name string, v any) error {
	v = unwrap(v)
	b, ok := p.o.bindingOf(p.n, name)
	if !ok {
		return p.setExtra(name, v)
	}

	prev := p.n.obj.Get(name)
	if err := p.n.obj.Set(name, v); err != nil {
		return err
	}
	if b.typ == ObjectProperty || b.typ == ArrayProperty {
		p.o.mu.Lock()
		p.o.dropChildLocked(p.n, b)
		p.o.mu.Unlock()
	}
	p.o.originate(p.n, name, KindChange, Change{Type: b.typ, Name: name, Prev: prev, Curr: v})
	return nil
}

// Call invokes the function property name with the original as receiver
// and returns its result. Observed functions notify a call event after
// they return.
func (p *Proxy) Call(name string, args ...any) (any, error) {
	b, ok := p.o.bindingOf(p.n, name)
	if !ok || b.typ != FunctionProperty {
		if v, ok := p.extra(name); ok {
			fn, ok := object.AsFunc(v)
			if !ok {
				return nil, &object.PropertyError{Op: "call", Property: name, Err: object.ErrNotCallable}
			}
			return fn(p, args...), nil
		}
		return p.n.obj.Call(name, args...)
	}

	fn, ok := object.AsFunc(p.n.obj.Get(name))
	if !ok {
		return nil, &object.PropertyError{Op: "call", Property: name, Err: object.ErrNotCallable}
	}
	res := fn(p.n.obj, args...)
	p.o.originate(p.n, name, KindCall, Change{
		Type: FunctionProperty,
		Name: name,
		Args: append([]any(nil), args...),
	})
	return res, nil
}

// Keys returns the observed property names followed by proxy-only names.
func (p *Proxy) Keys() []string {
	p.o.mu.Lock()
	keys := append([]string(nil), p.n.order...)
	extra := p.n.extra
	p.o.mu.Unlock()

	if extra == nil {
		return keys
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range extra.Keys() {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

// Object returns the view of an object property.
func (p *Proxy) Object(name string) (*Proxy, bool) {
	c, ok := p.Get(name).(*Proxy)
	return c, ok
}

// Array returns the view of an array property.
func (p *Proxy) Array(name string) (*ArrayProxy, bool) {
	c, ok := p.Get(name).(*ArrayProxy)
	return c, ok
}

// Observe subscribes listener to every property, observing properties
// added to the original since the view was built.
func (p *Proxy) Observe(listener Listener) error {
	_, err := p.o.Observe(p, listener)
	return err
}

// ObserveProperty subscribes listener to name.
func (p *Proxy) ObserveProperty(name string, listener Listener) error {
	_, err := p.o.ObserveProperty(p, name, listener)
	return err
}

// Listen subscribes listener to name, or to every property when name is
// empty, and returns a function that removes it.
func (p *Proxy) Listen(name string, listener Listener) Unsubscribe {
	if name == "" {
		p.o.bindAll(p.n)
	} else {
		p.o.bind(p.n, name)
	}
	return p.o.addListener(p.n, name, listener)
}

func (p *Proxy) extra(name string) (any, bool) {
	p.o.mu.Lock()
	extra := p.n.extra
	p.o.mu.Unlock()
	if extra == nil {
		return nil, false
	}
	return extra.Lookup(name)
}

func (p *Proxy) setExtra(name string, v any) error {
	p.o.mu.Lock()
	if p.n.extra == nil {
		p.n.extra = object.New()
	}
	extra := p.n.extra
	p.o.mu.Unlock()
	return extra.Set(name, v)
}

// unwrap replaces views with the value they observe.
func unwrap(v any) any {
	switch t := v.(type) {
	case *Proxy:
		return t.n.obj
	case *ArrayProxy:
		return t.n.arr
	}
	return v
}
