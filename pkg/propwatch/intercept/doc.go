/*
Package intercept installs notifying wrappers around individual properties.

An Interceptor classifies a property once, when it is first intercepted, and
replaces its descriptor with a wrapper matching that classification:

  - KindMethod: calls fire before-subscribers with the argument list, run the
    original function with the original object as receiver, then fire
    after-subscribers with the same arguments. The return value is passed
    through unchanged.
  - KindValue: the value moves into the wrapper. Writes fire before with
    (current, next), store next, then fire after with (previous, next).
  - KindAccessor: reads pass through to the original getter. Writes fire
    before and after around the original setter. An accessor without a
    setter is recorded but left untouched and a PropertyNotSettableWarning
    is reported.

Subscriber failures, returned errors and panics alike, are logged and
suppressed. They never reach the code that touched the property and never
stop the remaining subscribers.

	ic := intercept.New(intercept.WithLogger(logger))
	unsub, err := ic.Before(obj, "greet", func(this any, args []any) error {
	    fmt.Println("greet called with", args)
	    return nil
	})
	defer unsub()

Detach restores the original descriptor exactly. Unsubscribing never
detaches on its own.
*/
package intercept
