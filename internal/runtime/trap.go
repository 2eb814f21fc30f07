package runtime

import "fmt"

// Trap is a runtime fault the language defines as fatal: integer division
// by zero, a dereference of a dead object, a handle of the wrong kind.
// Builtins raise it with panic; the engine recovers it at the entry
// boundary and returns it as an error.
type Trap struct {
	Msg string
}

func (t *Trap) Error() string { return "runtime trap: " + t.Msg }

func trapf(format string, args ...any) *Trap {
	return &Trap{Msg: fmt.Sprintf(format, args...)}
}

// Raise panics with a trap. Engines use it for faults they detect
// themselves, such as a Trap block.
func Raise(format string, args ...any) {
	panic(trapf(format, args...))
}

// AsTrap converts a recovered panic value into a trap. Non-trap panics are
// re-raised.
func AsTrap(r any) *Trap {
	if t, ok := r.(*Trap); ok {
		return t
	}
	panic(r)
}
