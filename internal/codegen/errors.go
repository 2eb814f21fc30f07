package codegen

import (
	"fmt"

	"github.com/bolide-lang/bolide/internal/ast"
)

// ErrorKind classifies a compile error.
type ErrorKind int

const (
	Structural ErrorKind = iota // undefined name, bad arity, unknown field or method
	TypeError                   // unsupported operator or conversion
	Lifetime                    // lifetime clause or borrow violation
	Move                        // use of a moved binding
)

var errorKindNames = [...]string{
	Structural: "structural",
	TypeError:  "type",
	Lifetime:   "lifetime",
	Move:       "move",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "unknown"
}

// Error is a compile error with function and position context.
type Error struct {
	Kind ErrorKind
	Func string // enclosing function; empty at module level
	Pos  ast.Pos
	Msg  string
}

func (e *Error) Error() string {
	s := ""
	if e.Pos.IsValid() {
		s = e.Pos.String() + ": "
	}
	if e.Func != "" {
		s += "in " + e.Func + ": "
	}
	return s + e.Kind.String() + " error: " + e.Msg
}

// bailout carries the first error up to Generate.
type bailout struct{ err error }

func (g *generator) errorf(kind ErrorKind, pos ast.Pos, format string, args ...interface{}) {
	panic(bailout{&Error{Kind: kind, Func: g.curFunc, Pos: pos, Msg: fmt.Sprintf(format, args...)}})
}
