/*
Package propwatch instruments properties of dynamic objects so that callers
can react to reads, writes and calls as they happen.

# Overview

Two mechanisms are provided, both owned by an Engine:

  - Interception wraps a single own property of an object in place. Methods,
    plain values and accessors each get a wrapper that notifies "before" and
    "after" subscribers around the real operation. Detach restores the
    original descriptor.
  - Observation builds a proxy view over an object or array. Writes and
    calls through the view reach the original and notify listeners with
    "change" and "call" events. Nested objects and arrays are observed
    lazily and their events bubble to the parent with dotted ("x.y") or
    indexed ("list[2]") names.

Objects are *object.Object and *object.Array values from the object package.

# Basic Usage

Intercept a method and count calls:

	obj := object.New()
	_ = obj.Set("greet", object.Func(func(this any, args ...any) any { return "hi" }))

	engine := propwatch.New()
	calls := 0
	_, err := engine.Before(obj, "greet", func(this any, args []any) error {
	    calls++
	    return nil
	})
	if err != nil {
	    log.Fatal(err)
	}
	res, _ := obj.Call("greet") // "hi", calls == 1

Observe an object:

	obj := object.FromMap(map[string]any{"a": 1})
	view, err := engine.ObserveObject(obj, func(kind observe.Kind, c observe.Change) {
	    fmt.Println(kind, c.Name, c.Prev, c.Curr)
	})
	_ = view.Set("a", 5) // prints "change a 1 5"
	original, _ := engine.Unobserve(view)

# Subscribers

Subscriber and listener failures never reach the code that triggered them.
Errors and panics are logged at Warn and counted by the metrics recorder;
the remaining subscribers still run. Subscribers always run without any
engine lock held and may re-enter the engine.

# Configuration

NewFromSettings builds an engine from config.Settings, which can be loaded
from YAML or JSON:

	settings, err := config.FromFile("propwatch.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	engine, err := propwatch.NewFromSettings(settings)
	if err != nil {
	    log.Fatal(err)
	}
	defer engine.Close()

# Journal

With a journal.Store configured every change and call that originates on an
observed object is appended to the journal. Bubbled copies are not
recorded. Journal failures are logged and never affect the observed object.

# Events

Forward bridges observation events onto an emitter.Emitter so that
application code can use cancellation, default actions and bubbling.
*/
package propwatch
