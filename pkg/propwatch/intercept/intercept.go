package intercept

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/propwatch/pkg/propwatch/identity"
	"github.com/randalmurphal/propwatch/pkg/propwatch/object"
	"github.com/randalmurphal/propwatch/pkg/propwatch/observability"
	"github.com/randalmurphal/propwatch/pkg/propwatch/subscription"
)

// Kind classifies an intercepted property.
type Kind int

const (
	KindValue Kind = iota
	KindAccessor
	KindMethod
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindAccessor:
		return "accessor"
	case KindMethod:
		return "method"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Phase aliases subscription.Phase so callers need only this package.
type Phase = subscription.Phase

const (
	Before = subscription.Before
	After  = subscription.After
)

// Callback is a subscriber. For value and accessor properties args is
// [current, next] before the write and [previous, next] after it. For
// methods args is the call's argument list in both phases. Callbacks must
// not modify args.
type Callback func(this any, args []any) error

// Unsubscribe removes one subscription. Calls after the first are no-ops.
type Unsubscribe = subscription.Unsubscribe

// record is the interception state of one (target, property) pair.
type record struct {
	name     string
	kind     Kind
	original object.Descriptor
	// installed is false for accessors without a setter.
	installed bool

	mu    sync.Mutex
	value any

	before subscription.List[Callback]
	after  subscription.List[Callback]
}

func (r *record) list(p Phase) *subscription.List[Callback] {
	if p == After {
		return &r.after
	}
	return &r.before
}

func (r *record) load() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

func (r *record) swap(v any) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.value
	r.value = v
	return prev
}

// bucket holds every record of one target.
type bucket struct {
	target  object.Definer
	records map[string]*record
}

// Interceptor owns the interception tables of one engine.
// It is safe for concurrent use.
type Interceptor struct {
	// mu serializes structural changes: intercept, detach and subscribe.
	// It is never held while wrappers or subscribers run.
	mu      sync.Mutex
	ids     *identity.Registry
	buckets *identity.Table[*bucket]
	seq     subscription.Sequence

	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	ctx       context.Context
	onWarning func(error)
}

// New creates an Interceptor.
func New(opts ...Option) *Interceptor {
	i := &Interceptor{
		ids:     identity.NewScopedRegistry("propwatch.intercept", "icp"),
		buckets: identity.NewTable[*bucket](),
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Intercept wraps the own property name of target and returns the target's
// identity. Intercepting an already intercepted property changes nothing.
func (i *Interceptor) Intercept(target any, name string) (identity.ID, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id, _, err := i.interceptLocked(target, name)
	return id, err
}

func (i *Interceptor) interceptLocked(target any, name string) (identity.ID, *record, error) {
	t, ok := target.(object.Definer)
	if !ok {
		return "", nil, &identity.UnsupportedTargetError{Value: target}
	}

	if id, ok := i.ids.Lookup(t); ok {
		if b, ok := i.buckets.Get(id); ok {
			if rec, ok := b.records[name]; ok {
				return id, rec, nil
			}
		}
	}

	d, ok := t.OwnProperty(name)
	if !ok {
		return "", nil, &object.PropertyError{Property: name, Op: "intercept", Err: object.ErrNoSuchProperty}
	}
	if !d.Configurable {
		return "", nil, &NonConfigurablePropertyError{Property: name}
	}

	id, err := i.ids.Identify(t)
	if err != nil {
		return "", nil, err
	}

	rec := &record{name: name, original: d}
	switch fn, isFunc := object.AsFunc(d.Value); {
	case d.IsAccessor():
		rec.kind = KindAccessor
		if d.Set != nil {
			err = t.DefineProperty(name, i.accessorWrapper(id, rec))
			rec.installed = err == nil
		}
	case isFunc:
		rec.kind = KindMethod
		err = t.DefineProperty(name, i.methodWrapper(id, t, fn, rec))
		rec.installed = err == nil
	default:
		rec.kind = KindValue
		rec.value = d.Value
		err = t.DefineProperty(name, i.valueWrapper(id, rec))
		rec.installed = err == nil
	}
	if err != nil {
		i.releaseIfEmpty(t, id)
		return "", nil, err
	}

	b := i.buckets.GetOrCreate(id, func() *bucket {
		return &bucket{target: t, records: make(map[string]*record)}
	})
	b.records[name] = rec

	observability.LogIntercept(i.logger, string(id), name, rec.kind.String())
	i.metrics.RecordIntercept(i.ctx, rec.kind.String())

	if rec.kind == KindAccessor && !rec.installed {
		w := &PropertyNotSettableWarning{TargetID: id, Property: name}
		observability.LogNotSettable(i.logger, string(id), name)
		if i.onWarning != nil {
			i.onWarning(w)
		}
	}
	return id, rec, nil
}

func (i *Interceptor) methodWrapper(id identity.ID, t object.Definer, fn object.Func, rec *record) object.Descriptor {
	wrapper := object.Func(func(_ any, args ...any) any {
		captured := append([]any(nil), args...)
		i.fire(id, rec, Before, captured)
		result := fn(t, args...)
		if rec.after.Len() > 0 {
			i.fire(id, rec, After, captured)
		}
		return result
	})
	return object.Descriptor{
		Value:        wrapper,
		Writable:     rec.original.Writable,
		Enumerable:   rec.original.Enumerable,
		Configurable: true,
	}
}

func (i *Interceptor) valueWrapper(id identity.ID, rec *record) object.Descriptor {
	return object.Descriptor{
		Get: rec.load,
		Set: func(next any) error {
			if !rec.original.Writable {
				return &object.PropertyError{Property: rec.name, Op: "set", Err: object.ErrNotWritable}
			}
			i.fire(id, rec, Before, []any{rec.load(), next})
			prev := rec.swap(next)
			i.fire(id, rec, After, []any{prev, next})
			return nil
		},
		Enumerable:   rec.original.Enumerable,
		Configurable: true,
	}
}

func (i *Interceptor) accessorWrapper(id identity.ID, rec *record) object.Descriptor {
	get := rec.original.Get
	if get == nil {
		get = func() any { return nil }
	}
	set := rec.original.Set
	return object.Descriptor{
		Get: get,
		Set: func(next any) error {
			prev := get()
			i.fire(id, rec, Before, []any{prev, next})
			if err := set(next); err != nil {
				return err
			}
			i.fire(id, rec, After, []any{prev, next})
			return nil
		},
		Enumerable:   rec.original.Enumerable,
		Configurable: true,
	}
}

// Detach restores the original descriptor of name and drops its
// subscriptions. Detaching a property that is not intercepted is a no-op.
func (i *Interceptor) Detach(target any, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	id, b, ok := i.bucketOf(target)
	if !ok {
		return nil
	}
	return i.detachLocked(id, b, name)
}

func (i *Interceptor) detachLocked(id identity.ID, b *bucket, name string) error {
	rec, ok := b.records[name]
	if !ok {
		return nil
	}

	if rec.installed {
		d := rec.original
		if rec.kind == KindValue {
			d.Value = rec.load()
		}
		if err := b.target.DefineProperty(name, d); err != nil {
			return fmt.Errorf("restore %q: %w", name, err)
		}
	}

	rec.before.Clear()
	rec.after.Clear()
	delete(b.records, name)

	observability.LogDetach(i.logger, string(id), name)
	i.metrics.RecordDetach(i.ctx)
	return nil
}

// DetachAll detaches every intercepted property of target, then removes its
// identity mark and frees its table entry.
func (i *Interceptor) DetachAll(target any) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	id, b, ok := i.bucketOf(target)
	if !ok {
		return nil
	}

	names := make([]string, 0, len(b.records))
	for name := range b.records {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := i.detachLocked(id, b, name); err != nil {
			return err
		}
	}
	i.releaseIfEmpty(b.target, id)
	return nil
}

func (i *Interceptor) releaseIfEmpty(t object.Definer, id identity.ID) {
	if b, ok := i.buckets.Get(id); ok && len(b.records) > 0 {
		return
	}
	i.buckets.Delete(id)
	i.ids.Release(t)
}

// Subscribe adds cb to the phase list of name, intercepting the property
// first when needed. The callback runs with this bound to the target unless
// WithThis or WithoutThis says otherwise.
func (i *Interceptor) Subscribe(target any, name string, phase Phase, cb Callback, opts ...SubscribeOption) (Unsubscribe, error) {
	if !phase.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPhase, phase)
	}
	if cb == nil {
		return nil, ErrNilCallback
	}

	cfg := subscribeConfig{this: target}
	for _, opt := range opts {
		opt(&cfg)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	_, rec, err := i.interceptLocked(target, name)
	if err != nil {
		return nil, err
	}

	h := i.seq.Next()
	list := rec.list(phase)
	list.Add(subscription.Entry[Callback]{Handle: h, Callback: cb, Context: cfg.this})
	return subscription.OneShot(func() { list.Remove(h) }), nil
}

// Before subscribes cb to the before phase of name.
func (i *Interceptor) Before(target any, name string, cb Callback, opts ...SubscribeOption) (Unsubscribe, error) {
	return i.Subscribe(target, name, Before, cb, opts...)
}

// After subscribes cb to the after phase of name.
func (i *Interceptor) After(target any, name string, cb Callback, opts ...SubscribeOption) (Unsubscribe, error) {
	return i.Subscribe(target, name, After, cb, opts...)
}

// Notify fans args out to the phase subscribers of name. It does nothing
// when the property is not intercepted.
func (i *Interceptor) Notify(target any, name string, phase Phase, args []any) {
	id, rec, ok := i.recordOf(target, name)
	if !ok {
		return
	}
	i.fire(id, rec, phase, args)
}

// fire runs one fan-out. Subscriber failures are logged, counted and
// recorded on the fan-out span.
func (i *Interceptor) fire(id identity.ID, rec *record, phase Phase, args []any) {
	entries := rec.list(phase).Snapshot()
	if len(entries) == 0 {
		return
	}

	done := observability.TimedOperation()
	ctx, span := i.spans.StartFanoutSpan(i.ctx, string(phase), string(id), rec.name)

	failures := subscription.Fanout(entries,
		func(e subscription.Entry[Callback]) error {
			return e.Callback(e.Context, args)
		},
		func(_ subscription.Entry[Callback], err error) {
			observability.LogCallbackFailure(i.logger, string(id), rec.name, string(phase), err)
			i.spans.AddSpanEvent(ctx, "subscriber.failed", attribute.String("error", err.Error()))
		},
	)

	var spanErr error
	if failures > 0 {
		spanErr = fmt.Errorf("%d of %d subscribers failed", failures, len(entries))
	}
	i.spans.EndSpanWithError(span, spanErr)
	i.metrics.RecordNotify(ctx, string(phase), len(entries), done(), failures)
}

// Intercepted reports whether name is intercepted on target.
func (i *Interceptor) Intercepted(target any, name string) bool {
	_, _, ok := i.recordOf(target, name)
	return ok
}

// KindOf returns the classification recorded for name.
func (i *Interceptor) KindOf(target any, name string) (Kind, bool) {
	_, rec, ok := i.recordOf(target, name)
	if !ok {
		return 0, false
	}
	return rec.kind, true
}

// Subscribers returns the number of phase subscribers of name.
func (i *Interceptor) Subscribers(target any, name string, phase Phase) int {
	_, rec, ok := i.recordOf(target, name)
	if !ok {
		return 0
	}
	return rec.list(phase).Len()
}

// Targets returns the number of targets with at least one table entry.
func (i *Interceptor) Targets() int {
	return i.buckets.Len()
}

func (i *Interceptor) bucketOf(target any) (identity.ID, *bucket, bool) {
	id, ok := i.ids.Lookup(target)
	if !ok {
		return "", nil, false
	}
	b, ok := i.buckets.Get(id)
	return id, b, ok
}

func (i *Interceptor) recordOf(target any, name string) (identity.ID, *record, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id, b, ok := i.bucketOf(target)
	if !ok {
		return "", nil, false
	}
	rec, ok := b.records[name]
	return id, rec, ok
}
