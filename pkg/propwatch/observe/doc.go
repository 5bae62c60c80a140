/*
Package observe builds deep read/write proxy views over objects and arrays
and reports every write and call made through them.

	obs := observe.New()
	p, err := obs.ObserveObject(obj, func(kind observe.Kind, c observe.Change) {
	    fmt.Println(kind, c.Name, c.Prev, c.Curr)
	})
	_ = p.Set("a", 5) // change a 1 5

A Proxy exposes the enumerable own properties the original had when it was
first observed. Observing the proxy again picks up properties added since.
Each property is classified once:

  - literal values read and write through to the original and report
    change events of type literalProperty
  - functions run against the original and report a call event of type
    functionProperty after they return
  - nested objects and arrays are wrapped in child proxies whose events
    bubble to the parent under dotted (x.y) or indexed (list[2]) names

Child proxies are built on first access and rebuilt whenever the parent
property is reassigned, so a proxy never reports on a value the original no
longer references.

An ArrayProxy mirrors its array live. Every mutating method reports a call
event of type arrayMethod with the contents before and after, plus a change
event for length when the length moved. Index writes report arrayValue.

Writes to names the proxy does not observe are kept on the proxy only.
Unobserve copies them onto the original, drops every listener and frees the
proxy's table entry.

The object graph reachable from an observed target must be acyclic.
*/
package observe
