package observe

import (
	"strconv"

	"github.com/randalmurphal/propwatch/pkg/propwatch/identity"
	"github.com/randalmurphal/propwatch/pkg/propwatch/object"
)

// ArrayProxy is the observed view of an array. Reads go straight to the
// original, so Len and At always mirror it. Elements are returned as they
// are; objects stored in an array are not observed.
type ArrayProxy struct {
	o *Observer
	n *node
}

// ID returns the observation identity of the original.
func (a *ArrayProxy) ID() identity.ID { return a.n.id }

// Original returns the observed array.
func (a *ArrayProxy) Original() object.Target { return a.n.arr }

// Len returns the length of the original.
func (a *ArrayProxy) Len() int { return a.n.arr.Len() }

// At returns the element at i.
func (a *ArrayProxy) At(i int) any { return a.n.arr.At(i) }

// Values returns a snapshot of the elements.
func (a *ArrayProxy) Values() []any { return a.n.arr.Values() }

// SetAt assigns v at index i and notifies an arrayValue change.
func (a *ArrayProxy) SetAt(i int, v any) error {
	v = unwrap(v)
	prev := a.n.arr.At(i)
	if err := a.n.arr.SetAt(i, v); err != nil {
		return err
	}
	a.o.originate(a.n, strconv.Itoa(i), KindChange, Change{
		Type:  ArrayValue,
		Index: i,
		Prev:  prev,
		Curr:  v,
	})
	return nil
}

// SetLength truncates or pads the original and notifies a length change.
func (a *ArrayProxy) SetLength(n int) error {
	prev := a.n.arr.Len()
	if err := a.n.arr.SetLength(n); err != nil {
		return err
	}
	if prev != n {
		a.lengthChanged(prev, n)
	}
	return nil
}

// Push appends values and returns the new length.
func (a *ArrayProxy) Push(values ...any) int {
	var n int
	a.mutate("push", values, func() { n = a.n.arr.Push(unwrapAll(values)...) })
	return n
}

// Pop removes and returns the last element.
func (a *ArrayProxy) Pop() any {
	var v any
	a.mutate("pop", nil, func() { v = a.n.arr.Pop() })
	return v
}

// Shift removes and returns the first element.
func (a *ArrayProxy) Shift() any {
	var v any
	a.mutate("shift", nil, func() { v = a.n.arr.Shift() })
	return v
}

// Unshift prepends values and returns the new length.
func (a *ArrayProxy) Unshift(values ...any) int {
	var n int
	a.mutate("unshift", values, func() { n = a.n.arr.Unshift(unwrapAll(values)...) })
	return n
}

// Splice removes deleteCount elements at start, inserts items and returns
// the removed elements.
func (a *ArrayProxy) Splice(start, deleteCount int, items ...any) []any {
	var removed []any
	args := append([]any{start, deleteCount}, items...)
	a.mutate("splice", args, func() { removed = a.n.arr.Splice(start, deleteCount, unwrapAll(items)...) })
	return removed
}

// Reverse reverses the original in place.
func (a *ArrayProxy) Reverse() {
	a.mutate("reverse", nil, a.n.arr.Reverse)
}

// Sort stably sorts the original with less.
func (a *ArrayProxy) Sort(less func(x, y any) bool) {
	a.mutate("sort", nil, func() { a.n.arr.Sort(less) })
}

// Fill assigns v to every index in [start, end).
func (a *ArrayProxy) Fill(v any, start, end int) {
	a.mutate("fill", []any{v, start, end}, func() { a.n.arr.Fill(unwrap(v), start, end) })
}

// CopyWithin copies [start, end) to target.
func (a *ArrayProxy) CopyWithin(target, start, end int) {
	a.mutate("copyWithin", []any{target, start, end}, func() { a.n.arr.CopyWithin(target, start, end) })
}

// Observe subscribes listener to every method call and element change.
func (a *ArrayProxy) Observe(listener Listener) error {
	_, err := a.o.Observe(a, listener)
	return err
}

// ObserveProperty subscribes listener to a method name, "length" or an index.
func (a *ArrayProxy) ObserveProperty(name string, listener Listener) error {
	_, err := a.o.ObserveProperty(a, name, listener)
	return err
}

// Listen subscribes listener to name, or to everything when name is empty,
// and returns a function that removes it.
func (a *ArrayProxy) Listen(name string, listener Listener) Unsubscribe {
	return a.o.addListener(a.n, name, listener)
}

// mutate runs op against the original and notifies the arrayMethod call,
// followed by a length change when op changed the length.
func (a *ArrayProxy) mutate(name string, args []any, op func()) {
	prev := a.n.arr.Values()
	op()
	curr := a.n.arr.Values()

	if args == nil {
		args = []any{}
	}
	a.o.originate(a.n, name, KindCall, Change{
		Type: ArrayMethod,
		Name: name,
		Prev: prev,
		Curr: curr,
		Args: args,
	})
	if len(prev) != len(curr) {
		a.lengthChanged(len(prev), len(curr))
	}
}

func (a *ArrayProxy) lengthChanged(prev, curr int) {
	a.o.originate(a.n, "length", KindChange, Change{
		Type: LiteralProperty,
		Name: "length",
		Prev: prev,
		Curr: curr,
	})
}

func unwrapAll(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = unwrap(v)
	}
	return out
}
