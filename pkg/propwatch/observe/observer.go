package observe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/propwatch/pkg/propwatch/identity"
	"github.com/randalmurphal/propwatch/pkg/propwatch/journal"
	"github.com/randalmurphal/propwatch/pkg/propwatch/object"
	"github.com/randalmurphal/propwatch/pkg/propwatch/observability"
	"github.com/randalmurphal/propwatch/pkg/propwatch/subscription"
)

// Unsubscribe removes one listener. Calls after the first are no-ops.
type Unsubscribe = subscription.Unsubscribe

// View is a proxy returned by Observe: a *Proxy or an *ArrayProxy.
type View interface {
	ID() identity.ID
	Original() object.Target
}

// binding is the classification of one observed object property.
type binding struct {
	name string
	typ  ChangeType

	// Object and array bindings only.
	child    *node
	childRef any
	unlisten Unsubscribe
}

// node is the observation state of one object or array.
type node struct {
	id  identity.ID
	obj *object.Object
	arr *object.Array

	order     []string
	bindings  map[string]*binding
	extra     *object.Object
	listeners map[string]*subscription.List[Listener]
	all       subscription.List[Listener]

	// rooted is set when a caller observed the node directly.
	rooted bool
	// parents counts the bindings linking each parent node to this one.
	parents map[*node]int
	closed  bool

	proxy    *Proxy
	arrProxy *ArrayProxy
}

func (n *node) target() object.Target {
	if n.arr != nil {
		return n.arr
	}
	return n.obj
}

func (n *node) view() View {
	if n.arr != nil {
		return n.arrProxy
	}
	return n.proxy
}

// Observer owns the observation tables of one engine.
// It is safe for concurrent use.
type Observer struct {
	// mu guards node structure. Listeners, accessors and methods never run
	// while it is held.
	mu    sync.Mutex
	ids   *identity.Registry
	nodes *identity.Table[*node]
	seq   subscription.Sequence

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	journal journal.Store
	ctx     context.Context
}

// New creates an Observer.
func New(opts ...Option) *Observer {
	o := &Observer{
		ids:     identity.NewScopedRegistry("propwatch.observe", "obs"),
		nodes:   identity.NewTable[*node](),
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Observe returns the proxy view of target and subscribes listener to every
// property. target may be an *object.Object, an *object.Array or a view
// returned earlier, in which case properties added to the original since
// are observed too. A nil listener only builds the view.
func (o *Observer) Observe(target any, listener Listener) (View, error) {
	n, err := o.root(target)
	if err != nil {
		return nil, err
	}
	if listener != nil {
		o.addListener(n, "", listener)
	}
	if n.obj == nil {
		observability.LogObserve(o.logger, string(n.id), n.arr.Len())
		return n.view(), nil
	}
	o.bindAll(n)
	o.mu.Lock()
	bound := len(n.order)
	o.mu.Unlock()
	observability.LogObserve(o.logger, string(n.id), bound)
	return n.view(), nil
}

// ObserveProperty returns the proxy view of target and subscribes listener
// to name only. For arrays name is a method name, "length" or an index.
func (o *Observer) ObserveProperty(target any, name string, listener Listener) (View, error) {
	n, err := o.root(target)
	if err != nil {
		return nil, err
	}
	if n.obj != nil {
		o.bind(n, name)
	}
	if listener != nil {
		o.addListener(n, name, listener)
	}
	return n.view(), nil
}

// ObserveObject is Observe for objects.
func (o *Observer) ObserveObject(target any, listener Listener) (*Proxy, error) {
	v, err := o.Observe(target, listener)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*Proxy)
	if !ok {
		return nil, &InvalidTargetError{Value: target}
	}
	return p, nil
}

// ObserveArray is Observe for arrays.
func (o *Observer) ObserveArray(target any, listener Listener) (*ArrayProxy, error) {
	v, err := o.Observe(target, listener)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*ArrayProxy)
	if !ok {
		return nil, &InvalidTargetError{Value: target}
	}
	return p, nil
}

// Unobserve copies properties that exist only on the view onto the
// original, drops every listener of the view, tears down child views no
// other view uses and frees the table entry. It returns the original.
func (o *Observer) Unobserve(v View) (object.Target, error) {
	n, ok := o.nodeOfView(v)
	if !ok {
		return nil, ErrNotObserved
	}

	restored := 0
	if n.obj != nil {
		o.mu.Lock()
		extra := n.extra
		o.mu.Unlock()
		if extra != nil {
			for _, k := range extra.Keys() {
				if n.obj.HasOwn(k) {
					continue
				}
				if err := n.obj.Set(k, object.Clone(extra.Get(k))); err != nil {
					return nil, fmt.Errorf("restore %q: %w", k, err)
				}
				restored++
			}
		}
	}

	o.mu.Lock()
	o.closeLocked(n)
	o.mu.Unlock()

	observability.LogUnobserve(o.logger, string(n.id), restored)
	return n.target(), nil
}

// Nodes returns the number of live observation nodes.
func (o *Observer) Nodes() int {
	return o.nodes.Len()
}

func (o *Observer) nodeOfView(v View) (*node, bool) {
	var n *node
	switch p := v.(type) {
	case *Proxy:
		if p != nil && p.o == o {
			n = p.n
		}
	case *ArrayProxy:
		if p != nil && p.o == o {
			n = p.n
		}
	}
	if n == nil {
		return nil, false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if n.closed {
		return nil, false
	}
	return n, true
}

// root resolves target to a node the caller observes directly.
func (o *Observer) root(target any) (*node, error) {
	switch t := target.(type) {
	case *Proxy, *ArrayProxy:
		n, ok := o.nodeOfView(t.(View))
		if !ok {
			return nil, ErrNotObserved
		}
		return n, nil
	case *object.Object:
		if t == nil {
			return nil, &InvalidTargetError{Value: target}
		}
		return o.rootTarget(t)
	case *object.Array:
		if t == nil {
			return nil, &InvalidTargetError{Value: target}
		}
		return o.rootTarget(t)
	default:
		return nil, &InvalidTargetError{Value: target}
	}
}

func (o *Observer) rootTarget(t object.Target) (*node, error) {
	if t.Frozen() {
		return nil, &FrozenTargetError{Value: t}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	n, err := o.nodeForLocked(t)
	if err != nil {
		return nil, err
	}
	n.rooted = true
	return n, nil
}

func (o *Observer) nodeForLocked(t object.Target) (*node, error) {
	id, err := o.ids.Identify(t)
	if err != nil {
		return nil, err
	}
	created := false
	n := o.nodes.GetOrCreate(id, func() *node {
		created = true
		n := &node{
			id:        id,
			bindings:  make(map[string]*binding),
			listeners: make(map[string]*subscription.List[Listener]),
			parents:   make(map[*node]int),
		}
		switch v := t.(type) {
		case *object.Object:
			n.obj = v
			n.proxy = &Proxy{o: o, n: n}
		case *object.Array:
			n.arr = v
			n.arrProxy = &ArrayProxy{o: o, n: n}
		}
		return n
	})
	if created {
		o.metrics.RecordObserve(o.ctx, 1)
	}
	return n, nil
}

func (o *Observer) closeLocked(n *node) {
	if n.closed {
		return
	}
	n.closed = true
	for _, b := range n.bindings {
		o.dropChildLocked(n, b)
	}
	for _, l := range n.listeners {
		l.Clear()
	}
	n.all.Clear()
	o.nodes.Delete(n.id)
	o.ids.Release(n.target())
	o.metrics.RecordObserve(o.ctx, -1)
}

// dropChildLocked detaches the current child of b and closes it when
// nothing else holds it.
func (o *Observer) dropChildLocked(n *node, b *binding) {
	c := b.child
	if c == nil {
		return
	}
	if b.unlisten != nil {
		b.unlisten()
	}
	b.child, b.childRef, b.unlisten = nil, nil, nil
	c.parents[n]--
	if c.parents[n] <= 0 {
		delete(c.parents, n)
	}
	if len(c.parents) == 0 && !c.rooted {
		o.closeLocked(c)
	}
}

// bindAll binds every enumerable own property of an object node.
func (o *Observer) bindAll(n *node) {
	keys := n.obj.Keys()
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = n.obj.Get(k)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for i, k := range keys {
		o.bindLocked(n, k, values[i])
	}
}

// bind binds name when the original has it. Listeners may still be
// registered under names that are not bound, e.g. nested "x.y" paths.
func (o *Observer) bind(n *node, name string) {
	if !n.obj.HasOwn(name) {
		return
	}
	v := n.obj.Get(name)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bindLocked(n, name, v)
}

func (o *Observer) bindLocked(n *node, name string, v any) {
	if n.closed {
		return
	}
	if _, ok := n.bindings[name]; ok {
		return
	}
	n.bindings[name] = &binding{name: name, typ: classify(v)}
	n.order = append(n.order, name)
}

func classify(v any) ChangeType {
	switch v.(type) {
	case *object.Object:
		return ObjectProperty
	case *object.Array:
		return ArrayProperty
	}
	if _, ok := object.AsFunc(v); ok {
		return FunctionProperty
	}
	return LiteralProperty
}

func (o *Observer) bindingOf(n *node, name string) (*binding, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := n.bindings[name]
	return b, ok
}

func (o *Observer) addListener(n *node, name string, l Listener) Unsubscribe {
	o.mu.Lock()
	defer o.mu.Unlock()

	list := &n.all
	if name != "" {
		list = n.listeners[name]
		if list == nil {
			list = &subscription.List[Listener]{}
			n.listeners[name] = list
		}
	}
	h := o.seq.Next()
	list.Add(subscription.Entry[Listener]{Handle: h, Callback: l})
	return subscription.OneShot(func() { list.Remove(h) })
}

// child returns the live child node for an object or array binding,
// rebuilding it when the original now references a different value.
func (o *Observer) child(n *node, b *binding) *node {
	cur := n.obj.Get(b.name)
	var target object.Target
	switch v := cur.(type) {
	case *object.Object:
		target = v
	case *object.Array:
		target = v
	}

	o.mu.Lock()
	if b.child != nil && !b.child.closed && b.childRef == cur {
		c := b.child
		o.mu.Unlock()
		return c
	}
	o.dropChildLocked(n, b)
	if target == nil || target.Frozen() || n.closed {
		o.mu.Unlock()
		return nil
	}
	c, err := o.nodeForLocked(target)
	if err != nil || ancestorLocked(c, n) {
		o.mu.Unlock()
		return nil
	}
	c.parents[n]++
	b.child, b.childRef = c, cur
	b.unlisten = o.bubbleLocked(n, b.name, c)
	o.mu.Unlock()

	if c.obj != nil {
		o.bindAll(c)
	}
	return c
}

// ancestorLocked reports whether a is n or reachable from n through parent
// links. Linking such a node as a child of n would close a cycle.
func ancestorLocked(a, n *node) bool {
	seen := map[*node]bool{}
	stack := []*node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == a {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for p := range cur.parents {
			stack = append(stack, p)
		}
	}
	return false
}

// bubbleLocked forwards every event of child c to parent n under prop.
func (o *Observer) bubbleLocked(n *node, prop string, c *node) Unsubscribe {
	var forward Listener
	if c.arr != nil {
		forward = func(kind Kind, ch Change) {
			msg := ch
			if ch.Type == ArrayValue {
				msg.Name = fmt.Sprintf("%s[%d]", prop, ch.Index)
			} else {
				msg.Name = prop + "." + ch.Name
			}
			o.emit(n, prop, kind, msg, false)
		}
	} else {
		forward = func(kind Kind, ch Change) {
			msg := ch
			msg.Name = prop + "." + ch.Name
			if kind == KindChange {
				msg.Type = ObjectProperty
			}
			o.emit(n, prop, kind, msg, false)
			o.emit(n, msg.Name, kind, msg, true)
		}
	}
	h := o.seq.Next()
	c.all.Add(subscription.Entry[Listener]{Handle: h, Callback: forward})
	list := &c.all
	return subscription.OneShot(func() { list.Remove(h) })
}

// originate journals an event and delivers it. Bubbled copies go through
// emit only.
func (o *Observer) originate(n *node, key string, kind Kind, c Change) {
	o.record(n, kind, c)
	o.emit(n, key, kind, c, false)
}

// emit delivers an event to the direct listeners of key and, unless
// directOnly, to the wildcard listeners.
func (o *Observer) emit(n *node, key string, kind Kind, c Change, directOnly bool) {
	o.mu.Lock()
	var entries []subscription.Entry[Listener]
	if l := n.listeners[key]; l != nil {
		entries = l.Snapshot()
	}
	if !directOnly {
		entries = append(entries, n.all.Snapshot()...)
	}
	o.mu.Unlock()
	if len(entries) == 0 {
		return
	}

	done := observability.TimedOperation()
	ctx, span := o.spans.StartFanoutSpan(o.ctx, string(kind), string(n.id), key)
	failures := subscription.Fanout(entries,
		func(e subscription.Entry[Listener]) error {
			e.Callback(kind, c)
			return nil
		},
		func(_ subscription.Entry[Listener], err error) {
			observability.LogCallbackFailure(o.logger, string(n.id), key, string(kind), err)
			o.spans.AddSpanEvent(ctx, "listener.failed", attribute.String("error", err.Error()))
		},
	)

	var spanErr error
	if failures > 0 {
		spanErr = fmt.Errorf("%d of %d listeners failed", failures, len(entries))
	}
	o.spans.EndSpanWithError(span, spanErr)
	o.metrics.RecordNotify(ctx, string(kind), len(entries), done(), failures)
}

func (o *Observer) record(n *node, kind Kind, c Change) {
	if o.journal == nil {
		return
	}
	payload, err := json.Marshal(c)
	if err != nil {
		observability.LogJournalError(o.logger, string(n.id), "encode", err)
		payload, _ = json.Marshal(Change{Type: c.Type, Name: c.Name, Index: c.Index})
	}
	name := c.Name
	if c.Type == ArrayValue {
		name = fmt.Sprintf("[%d]", c.Index)
	}
	err = o.journal.Append(o.ctx, journal.Entry{
		TargetID: string(n.id),
		Kind:     string(kind),
		Type:     string(c.Type),
		Name:     name,
		Payload:  payload,
	})
	if err != nil {
		observability.LogJournalError(o.logger, string(n.id), "append", err)
	}
}
