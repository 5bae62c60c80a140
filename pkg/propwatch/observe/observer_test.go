package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/propwatch/pkg/propwatch/identity"
	"github.com/randalmurphal/propwatch/pkg/propwatch/journal"
	"github.com/randalmurphal/propwatch/pkg/propwatch/object"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestObserver(opts ...Option) *Observer {
	return New(append([]Option{WithLogger(quietLogger())}, opts...)...)
}

type event struct {
	kind Kind
	c    Change
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) listen(kind Kind, c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: kind, c: c})
}

func (r *recorder) all() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func TestObserve_LiteralScenario(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"a": 1})

	var rec recorder
	p, err := ob.ObserveObject(obj, rec.listen)
	require.NoError(t, err)

	require.NoError(t, p.Set("a", 5))

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, KindChange, events[0].kind)
	assert.Equal(t, Change{Type: LiteralProperty, Name: "a", Prev: 1, Curr: 5}, events[0].c)
	assert.Equal(t, 5, obj.Get("a"))
	assert.Equal(t, 5, p.Get("a"))
}

func TestObserve_ReadsAreLive(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"a": 1})

	p, err := ob.ObserveObject(obj, nil)
	require.NoError(t, err)

	require.NoError(t, obj.Set("a", 2))
	assert.Equal(t, 2, p.Get("a"))
}

func TestObserve_NestedBubbling(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"x": map[string]any{"y": 1}})

	var all, direct, path recorder
	p, err := ob.ObserveObject(obj, all.listen)
	require.NoError(t, err)
	p.Listen("x", direct.listen)
	p.Listen("x.y", path.listen)

	x, ok := p.Object("x")
	require.True(t, ok)
	require.NoError(t, x.Set("y", 2))

	want := Change{Type: ObjectProperty, Name: "x.y", Prev: 1, Curr: 2}
	for name, rec := range map[string]*recorder{"wildcard": &all, "parent": &direct, "path": &path} {
		events := rec.all()
		require.Len(t, events, 1, name)
		assert.Equal(t, KindChange, events[0].kind, name)
		assert.Equal(t, want, events[0].c, name)
	}
	assert.Equal(t, 2, obj.Get("x").(*object.Object).Get("y"))
}

func TestObserve_DeepBubbling(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{
		"x": map[string]any{"y": map[string]any{"z": "a"}},
	})

	var rec recorder
	p, err := ob.ObserveObject(obj, rec.listen)
	require.NoError(t, err)

	x, ok := p.Object("x")
	require.True(t, ok)
	y, ok := x.Object("y")
	require.True(t, ok)
	require.NoError(t, y.Set("z", "b"))

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, "x.y.z", events[0].c.Name)
	assert.Equal(t, ObjectProperty, events[0].c.Type)
	assert.Equal(t, "a", events[0].c.Prev)
	assert.Equal(t, "b", events[0].c.Curr)
}

func TestObserve_FunctionCall(t *testing.T) {
	ob := newTestObserver()
	var receiver any
	obj := object.FromMap(map[string]any{
		"greet": object.Func(func(this any, args ...any) any {
			receiver = this
			return fmt.Sprintf("hi %v", args[0])
		}),
	})

	var rec recorder
	p, err := ob.ObserveObject(obj, rec.listen)
	require.NoError(t, err)

	got, err := p.Call("greet", "bob")
	require.NoError(t, err)
	assert.Equal(t, "hi bob", got)
	assert.Same(t, obj, receiver)

	fn, ok := p.Get("greet").(object.Func)
	require.True(t, ok)
	assert.Equal(t, "hi ann", fn(nil, "ann"))

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, KindCall, events[0].kind)
	assert.Equal(t, Change{Type: FunctionProperty, Name: "greet", Args: []any{"bob"}}, events[0].c)
	assert.Equal(t, []any{"ann"}, events[1].c.Args)
}

func TestObserve_NestedCallKeepsKind(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{
		"svc": map[string]any{
			"ping": object.Func(func(any, ...any) any { return "pong" }),
		},
	})

	var rec recorder
	p, err := ob.ObserveObject(obj, rec.listen)
	require.NoError(t, err)

	svc, ok := p.Object("svc")
	require.True(t, ok)
	got, err := svc.Call("ping", 1)
	require.NoError(t, err)
	assert.Equal(t, "pong", got)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, KindCall, events[0].kind)
	assert.Equal(t, Change{Type: FunctionProperty, Name: "svc.ping", Args: []any{1}}, events[0].c)
}

func TestObserve_CallErrors(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"a": 1})

	p, err := ob.ObserveObject(obj, nil)
	require.NoError(t, err)

	_, err = p.Call("a")
	assert.ErrorIs(t, err, object.ErrNotCallable)

	_, err = p.Call("missing")
	assert.ErrorIs(t, err, object.ErrNoSuchProperty)
}

func TestObserve_ArrayProperty(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"list": []any{1, 2}})

	var rec recorder
	p, err := ob.ObserveObject(obj, rec.listen)
	require.NoError(t, err)

	list, ok := p.Array("list")
	require.True(t, ok)

	assert.Equal(t, 3, list.Push(3))
	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, KindCall, events[0].kind)
	assert.Equal(t, Change{
		Type: ArrayMethod,
		Name: "list.push",
		Prev: []any{1, 2},
		Curr: []any{1, 2, 3},
		Args: []any{3},
	}, events[0].c)
	assert.Equal(t, KindChange, events[1].kind)
	assert.Equal(t, Change{Type: LiteralProperty, Name: "list.length", Prev: 2, Curr: 3}, events[1].c)

	require.NoError(t, list.SetAt(0, 9))
	events = rec.all()
	require.Len(t, events, 3)
	assert.Equal(t, Change{Type: ArrayValue, Name: "list[0]", Index: 0, Prev: 1, Curr: 9}, events[2].c)
	assert.Equal(t, 9, obj.Get("list").(*object.Array).At(0))
}

func TestArrayProxy_MethodEvents(t *testing.T) {
	tests := []struct {
		name       string
		op         func(a *ArrayProxy)
		wantArgs   []any
		wantValues []any
		wantLength bool
	}{
		{"push", func(a *ArrayProxy) { a.Push(4) }, []any{4}, []any{3, 1, 2, 4}, true},
		{"pop", func(a *ArrayProxy) { a.Pop() }, []any{}, []any{3, 1}, true},
		{"shift", func(a *ArrayProxy) { a.Shift() }, []any{}, []any{1, 2}, true},
		{"unshift", func(a *ArrayProxy) { a.Unshift(0) }, []any{0}, []any{0, 3, 1, 2}, true},
		{"splice", func(a *ArrayProxy) { a.Splice(1, 1, "x", "y") }, []any{1, 1, "x", "y"}, []any{3, "x", "y", 2}, true},
		{"reverse", func(a *ArrayProxy) { a.Reverse() }, []any{}, []any{2, 1, 3}, false},
		{"sort", func(a *ArrayProxy) { a.Sort(func(x, y any) bool { return x.(int) < y.(int) }) }, []any{}, []any{1, 2, 3}, false},
		{"fill", func(a *ArrayProxy) { a.Fill(0, 0, 2) }, []any{0, 0, 2}, []any{0, 0, 2}, false},
		{"copyWithin", func(a *ArrayProxy) { a.CopyWithin(0, 1, 3) }, []any{0, 1, 3}, []any{1, 2, 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ob := newTestObserver()
			arr := object.NewArray(3, 1, 2)

			var rec recorder
			a, err := ob.ObserveArray(arr, rec.listen)
			require.NoError(t, err)

			tt.op(a)

			assert.Equal(t, tt.wantValues, arr.Values())
			events := rec.all()
			want := 1
			if tt.wantLength {
				want = 2
			}
			require.Len(t, events, want)
			assert.Equal(t, KindCall, events[0].kind)
			assert.Equal(t, ArrayMethod, events[0].c.Type)
			assert.Equal(t, tt.name, events[0].c.Name)
			assert.Equal(t, tt.wantArgs, events[0].c.Args)
			assert.Equal(t, []any{3, 1, 2}, events[0].c.Prev)
			assert.Equal(t, tt.wantValues, events[0].c.Curr)
			if tt.wantLength {
				assert.Equal(t, "length", events[1].c.Name)
				assert.Equal(t, 3, events[1].c.Prev)
				assert.Equal(t, len(tt.wantValues), events[1].c.Curr)
			}
		})
	}
}

func TestArrayProxy_ScopedListeners(t *testing.T) {
	ob := newTestObserver()
	arr := object.NewArray("a", "b")

	a, err := ob.ObserveArray(arr, nil)
	require.NoError(t, err)

	var length, index, push recorder
	require.NoError(t, a.ObserveProperty("length", length.listen))
	require.NoError(t, a.ObserveProperty("1", index.listen))
	unsubscribe := a.Listen("push", push.listen)

	a.Push("c")
	require.NoError(t, a.SetAt(1, "B"))
	unsubscribe()
	a.Push("d")

	assert.Len(t, length.all(), 2)
	require.Len(t, index.all(), 1)
	assert.Equal(t, Change{Type: ArrayValue, Index: 1, Prev: "b", Curr: "B"}, index.all()[0].c)
	assert.Len(t, push.all(), 1)
}

func TestArrayProxy_SetLength(t *testing.T) {
	ob := newTestObserver()
	arr := object.NewArray(1, 2, 3)

	var rec recorder
	a, err := ob.ObserveArray(arr, rec.listen)
	require.NoError(t, err)

	require.NoError(t, a.SetLength(1))
	require.NoError(t, a.SetLength(1))
	assert.ErrorIs(t, a.SetLength(-1), object.ErrIndexOutOfRange)
	assert.ErrorIs(t, a.SetAt(5, 0), object.ErrIndexOutOfRange)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, Change{Type: LiteralProperty, Name: "length", Prev: 3, Curr: 1}, events[0].c)
	assert.Equal(t, 1, a.Len())
}

func TestArrayProxy_SortComparatorReadsView(t *testing.T) {
	ob := newTestObserver()

	var rec recorder
	a, err := ob.ObserveArray(object.NewArray(3, 1, 2), rec.listen)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Sort(func(x, y any) bool {
			_ = a.Len()
			return x.(int) < y.(int)
		})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Sort blocked while less read the view")
	}

	assert.Equal(t, []any{1, 2, 3}, a.Values())
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, "sort", events[0].c.Name)
	assert.Equal(t, []any{3, 1, 2}, events[0].c.Prev)
}

func TestObserve_ReassignmentRebuildsChild(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"x": map[string]any{"y": 1}})
	oldX := obj.Get("x")

	var rec recorder
	p, err := ob.ObserveObject(obj, rec.listen)
	require.NoError(t, err)

	stale, ok := p.Object("x")
	require.True(t, ok)
	assert.Equal(t, 2, ob.Nodes())

	newX := object.FromMap(map[string]any{"y": 10})
	require.NoError(t, p.Set("x", newX))

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, Change{Type: ObjectProperty, Name: "x", Prev: oldX, Curr: newX}, events[0].c)
	assert.Equal(t, 1, ob.Nodes())

	// The detached child no longer reports to the parent.
	require.NoError(t, stale.Set("y", 2))
	assert.Len(t, rec.all(), 1)

	fresh, ok := p.Object("x")
	require.True(t, ok)
	assert.Same(t, newX, fresh.Original())
	require.NoError(t, fresh.Set("y", 11))

	events = rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, Change{Type: ObjectProperty, Name: "x.y", Prev: 10, Curr: 11}, events[1].c)
}

func TestObserve_OriginalReassignmentRebuildsChild(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"x": map[string]any{"y": 1}})

	p, err := ob.ObserveObject(obj, nil)
	require.NoError(t, err)
	_, ok := p.Object("x")
	require.True(t, ok)

	other := object.FromMap(map[string]any{"y": 2})
	require.NoError(t, obj.Set("x", other))

	x, ok := p.Object("x")
	require.True(t, ok)
	assert.Same(t, other, x.Original())
	assert.Equal(t, 2, x.Get("y"))
}

func TestObserve_ObjectPropertyBecomesLiteral(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"x": map[string]any{"y": 1}})

	p, err := ob.ObserveObject(obj, nil)
	require.NoError(t, err)

	require.NoError(t, p.Set("x", 5))
	assert.Equal(t, 5, p.Get("x"))
	_, ok := p.Object("x")
	assert.False(t, ok)
}

func TestObserve_SetAcceptsViews(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"x": map[string]any{"y": 1}})
	other := object.FromMap(map[string]any{"y": 2})

	p, err := ob.ObserveObject(obj, nil)
	require.NoError(t, err)
	op, err := ob.ObserveObject(other, nil)
	require.NoError(t, err)

	require.NoError(t, p.Set("x", op))
	assert.Same(t, other, obj.Get("x"))
}

func TestUnobserve_PreservesAdditions(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"a": 1})

	var rec recorder
	p, err := ob.ObserveObject(obj, rec.listen)
	require.NoError(t, err)

	require.NoError(t, p.Set("newProp", 9))
	assert.Empty(t, rec.all())
	assert.False(t, obj.HasOwn("newProp"))
	assert.Equal(t, 9, p.Get("newProp"))
	assert.Equal(t, []string{"a", "newProp"}, p.Keys())

	got, err := ob.Unobserve(p)
	require.NoError(t, err)
	assert.Same(t, obj, got)
	assert.Equal(t, 9, obj.Get("newProp"))
}

func TestUnobserve_OriginalWins(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"a": 1})

	p, err := ob.ObserveObject(obj, nil)
	require.NoError(t, err)

	require.NoError(t, p.Set("late", "proxy"))
	require.NoError(t, obj.Set("late", "original"))

	_, err = ob.Unobserve(p)
	require.NoError(t, err)
	assert.Equal(t, "original", obj.Get("late"))
}

func TestUnobserve_DeepCopiesAdditions(t *testing.T) {
	ob := newTestObserver()
	obj := object.New()

	p, err := ob.ObserveObject(obj, nil)
	require.NoError(t, err)

	added := object.FromMap(map[string]any{"k": "v"})
	require.NoError(t, p.Set("cfg", added))

	_, err = ob.Unobserve(p)
	require.NoError(t, err)
	copied, ok := obj.Get("cfg").(*object.Object)
	require.True(t, ok)
	assert.NotSame(t, added, copied)
	assert.Equal(t, "v", copied.Get("k"))
}

func TestUnobserve_ClearsEverything(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"a": 1, "x": map[string]any{"y": 1}})

	var rec recorder
	p, err := ob.ObserveObject(obj, rec.listen)
	require.NoError(t, err)
	_, ok := p.Object("x")
	require.True(t, ok)
	require.Equal(t, 2, ob.Nodes())

	_, err = ob.Unobserve(p)
	require.NoError(t, err)
	assert.Equal(t, 0, ob.Nodes())

	_, marked := obj.Mark(ob.ids.MarkKey())
	assert.False(t, marked)

	require.NoError(t, p.Set("a", 2))
	assert.Empty(t, rec.all())

	_, err = ob.Unobserve(p)
	assert.ErrorIs(t, err, ErrNotObserved)
	_, err = ob.Observe(p, rec.listen)
	assert.ErrorIs(t, err, ErrNotObserved)

	// Observing the original again starts a fresh node.
	again, err := ob.ObserveObject(obj, nil)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID(), again.ID())
}

func TestObserve_Errors(t *testing.T) {
	ob := newTestObserver()

	_, err := ob.Observe(5, nil)
	var invalid *InvalidTargetError
	require.ErrorAs(t, err, &invalid)
	assert.ErrorIs(t, err, identity.ErrUnsupportedTarget)
	assert.Contains(t, err.Error(), "int")

	_, err = ob.Observe((*object.Object)(nil), nil)
	assert.ErrorAs(t, err, &invalid)

	frozen := object.FromMap(map[string]any{"a": 1})
	frozen.Freeze()
	_, err = ob.Observe(frozen, nil)
	var frozenErr *FrozenTargetError
	assert.ErrorAs(t, err, &frozenErr)

	frozenArr := object.NewArray(1)
	frozenArr.Freeze()
	_, err = ob.Observe(frozenArr, nil)
	assert.ErrorAs(t, err, &frozenErr)

	foreign, err := newTestObserver().ObserveObject(object.New(), nil)
	require.NoError(t, err)
	_, err = ob.Unobserve(foreign)
	assert.ErrorIs(t, err, ErrNotObserved)
	_, err = ob.Unobserve(nil)
	assert.ErrorIs(t, err, ErrNotObserved)

	_, err = ob.ObserveArray(object.New(), nil)
	assert.ErrorAs(t, err, &invalid)
	_, err = ob.ObserveObject(object.NewArray(), nil)
	assert.ErrorAs(t, err, &invalid)
}

func TestObserve_FrozenChildIsNotWrapped(t *testing.T) {
	ob := newTestObserver()
	inner := object.FromMap(map[string]any{"y": 1})
	inner.Freeze()
	obj := object.New()
	require.NoError(t, obj.Set("x", inner))

	p, err := ob.ObserveObject(obj, nil)
	require.NoError(t, err)

	assert.Same(t, inner, p.Get("x"))
	assert.Equal(t, 1, ob.Nodes())
}

func TestObserve_CyclicGraph(t *testing.T) {
	ob := newTestObserver()
	a := object.FromMap(map[string]any{"z": 1})
	b := object.FromMap(map[string]any{"n": 1})
	require.NoError(t, a.Set("b", b))
	require.NoError(t, b.Set("a", a))

	var rec recorder
	p, err := ob.ObserveObject(a, rec.listen)
	require.NoError(t, err)
	bp, ok := p.Object("b")
	require.True(t, ok)

	// The back edge to an ancestor is left unwrapped.
	_, ok = bp.Object("a")
	assert.False(t, ok)
	assert.Same(t, a, bp.Get("a"))
	assert.Equal(t, 2, ob.Nodes())

	require.NoError(t, p.Set("z", 2))
	require.NoError(t, bp.Set("n", 2))

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, "z", events[0].c.Name)
	assert.Equal(t, "b.n", events[1].c.Name)
}

func TestObserve_LongCycle(t *testing.T) {
	ob := newTestObserver()
	a := object.FromMap(map[string]any{"v": 1})
	b := object.New()
	c := object.New()
	require.NoError(t, a.Set("b", b))
	require.NoError(t, b.Set("c", c))
	require.NoError(t, c.Set("a", a))

	var rec recorder
	p, err := ob.ObserveObject(a, rec.listen)
	require.NoError(t, err)
	bp, ok := p.Object("b")
	require.True(t, ok)
	cp, ok := bp.Object("c")
	require.True(t, ok)
	_, ok = cp.Object("a")
	assert.False(t, ok)

	require.NoError(t, p.Set("v", 2))
	require.NoError(t, cp.Set("x", 1))
	require.NoError(t, cp.Set("a", 3))

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, "v", events[0].c.Name)
	assert.Equal(t, "b.c.a", events[1].c.Name)
}

func TestObserve_SameObjectSameView(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"a": 1})

	p1, err := ob.Observe(obj, nil)
	require.NoError(t, err)
	p2, err := ob.Observe(obj, nil)
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, ob.Nodes())
}

func TestObserve_ReobservePicksUpAdditions(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"a": 1})

	var rec recorder
	p, err := ob.ObserveObject(obj, rec.listen)
	require.NoError(t, err)

	require.NoError(t, obj.Set("b", 2))
	assert.Equal(t, []string{"a"}, p.Keys())

	require.NoError(t, p.Observe(nil))
	assert.Equal(t, []string{"a", "b"}, p.Keys())

	require.NoError(t, p.Set("b", 3))
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].c.Name)
}

func TestObserveProperty_Scoped(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"a": 1, "b": 2})

	var rec recorder
	v, err := ob.ObserveProperty(obj, "a", rec.listen)
	require.NoError(t, err)
	p := v.(*Proxy)

	require.NoError(t, p.Set("a", 10))
	require.NoError(t, p.ObserveProperty("b", nil))
	require.NoError(t, p.Set("b", 20))

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].c.Name)
	assert.Equal(t, 20, obj.Get("b"))
}

func TestProxy_ListenUnsubscribe(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"a": 1})

	p, err := ob.ObserveObject(obj, nil)
	require.NoError(t, err)

	var rec recorder
	unsubscribe := p.Listen("a", rec.listen)
	require.NoError(t, p.Set("a", 2))
	unsubscribe()
	unsubscribe()
	require.NoError(t, p.Set("a", 3))

	assert.Len(t, rec.all(), 1)
}

func TestObserve_ListenerPanicIsolated(t *testing.T) {
	var buf bytes.Buffer
	ob := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	obj := object.FromMap(map[string]any{"a": 1})

	p, err := ob.ObserveObject(obj, func(Kind, Change) { panic("boom") })
	require.NoError(t, err)
	var rec recorder
	require.NoError(t, p.Observe(rec.listen))

	require.NotPanics(t, func() {
		require.NoError(t, p.Set("a", 2))
	})
	assert.Len(t, rec.all(), 1)
	assert.Equal(t, 2, obj.Get("a"))
	assert.Contains(t, buf.String(), "subscriber failed")
	assert.Contains(t, buf.String(), "boom")
}

func TestObserve_ListenerMayReenter(t *testing.T) {
	ob := newTestObserver()
	obj := object.FromMap(map[string]any{"a": 1, "b": 0})

	var p *Proxy
	listener := func(_ Kind, c Change) {
		if c.Name == "a" {
			_ = p.Set("b", p.Get("b").(int)+1)
		}
	}
	var err error
	p, err = ob.ObserveObject(obj, listener)
	require.NoError(t, err)

	require.NoError(t, p.Set("a", 2))
	assert.Equal(t, 1, obj.Get("b"))
}

func TestObserve_Journal(t *testing.T) {
	store := journal.NewMemoryStore()
	ob := newTestObserver(WithJournal(store))
	obj := object.FromMap(map[string]any{"a": 1, "x": map[string]any{"y": 1}})

	p, err := ob.ObserveObject(obj, nil)
	require.NoError(t, err)
	x, ok := p.Object("x")
	require.True(t, ok)

	require.NoError(t, x.Set("y", 2))
	require.NoError(t, p.Set("a", 5))
	require.NoError(t, p.Set("a", 6))

	ctx := context.Background()
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	child, err := store.List(ctx, string(x.ID()))
	require.NoError(t, err)
	require.Len(t, child, 1)
	assert.Equal(t, "y", child[0].Name)
	assert.Equal(t, "literalProperty", child[0].Type)
	assert.Equal(t, "change", child[0].Kind)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(child[0].Payload, &payload))
	assert.Equal(t, map[string]any{"type": "literalProperty", "name": "y", "prev": 1.0, "curr": 2.0}, payload)

	root, err := store.List(ctx, string(p.ID()))
	require.NoError(t, err)
	require.Len(t, root, 2)
	assert.Equal(t, int64(1), root[0].Sequence)
	assert.Equal(t, int64(2), root[1].Sequence)
}

func TestObserve_JournalFailureDoesNotDisturb(t *testing.T) {
	var buf bytes.Buffer
	store := journal.NewMemoryStore()
	require.NoError(t, store.Close())
	ob := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))), WithJournal(store))
	obj := object.FromMap(map[string]any{"a": 1})

	var rec recorder
	p, err := ob.ObserveObject(obj, rec.listen)
	require.NoError(t, err)

	require.NoError(t, p.Set("a", 2))
	assert.Len(t, rec.all(), 1)
	assert.Equal(t, 2, obj.Get("a"))
	assert.Contains(t, buf.String(), "journal failed")
}

func TestObserve_ConcurrentWrites(t *testing.T) {
	ob := newTestObserver()
	m := make(map[string]any)
	for i := 0; i < 8; i++ {
		m[fmt.Sprintf("p%d", i)] = 0
	}
	obj := object.FromMap(m)

	var notified atomic.Int64
	p, err := ob.ObserveObject(obj, func(Kind, Change) { notified.Add(1) })
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("p%d", i)
			for j := 1; j <= 50; j++ {
				_ = p.Set(name, j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(8*50), notified.Load())
	for i := 0; i < 8; i++ {
		assert.Equal(t, 50, obj.Get(fmt.Sprintf("p%d", i)))
	}
}
