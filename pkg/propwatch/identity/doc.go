// Package identity assigns stable opaque identifiers to instrumented targets.
//
// Each subsystem owns a Registry with its own hidden mark key. A Registry
// never mints two identifiers for the same target: the first call to
// Identify stores the identifier on the target as a non-enumerable mark and
// every later call returns it.
//
//	reg := identity.NewRegistry("propwatch.intercept", "icp")
//	id, err := reg.Identify(obj)
//
// Subsystems that must agree on one identifier for a target can Stamp it
// first. A stamped identifier is adopted by every Registry and survives
// Release, which only removes the registry's own mark.
//
// Table is a generic, concurrency-safe map keyed by ID that subsystems use
// to hold their per-target state.
package identity
