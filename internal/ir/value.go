package ir

import (
	"fmt"

	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

// ID is a unique identifier for Values and Blocks within a Func.
type ID int32

// Value represents a single computation.
type Value struct {
	// ID is a unique identifier within the containing Func.
	ID ID

	// Op is the operation this value computes.
	Op Op

	// Type is the word class of the result; rtabi.Void for no result.
	Type rtabi.Class

	// Args are the input values to this operation.
	Args []*Value

	// Block is the basic block that contains this value.
	Block *Block

	// AuxInt holds an auxiliary integer (constant, offset, slot, predicate).
	AuxInt int64

	// AuxFloat holds the constant of OpConstF.
	AuxFloat float64

	// Aux holds a callee name, a data name, *Sig or *CSig.
	Aux interface{}

	// Uses tracks the number of references to this value.
	Uses int32

	// Pos is the source position associated with this value.
	Pos ast.Pos
}

// String returns a short string representation of the value (e.g., "v5").
func (v *Value) String() string {
	return fmt.Sprintf("v%d", v.ID)
}

// LongString returns a detailed string representation including op, type, and args.
func (v *Value) LongString() string {
	return formatValue(v)
}

// AddArg appends a value to the argument list and increments the arg's use count.
func (v *Value) AddArg(arg *Value) {
	v.Args = append(v.Args, arg)
	arg.Uses++
}

// SetArgs replaces the argument list, adjusting use counts.
func (v *Value) SetArgs(args []*Value) {
	for _, old := range v.Args {
		old.Uses--
	}
	v.Args = args
	for _, arg := range args {
		arg.Uses++
	}
}

// ReplaceArg replaces the argument at index i, adjusting use counts.
func (v *Value) ReplaceArg(i int, new *Value) {
	old := v.Args[i]
	old.Uses--
	v.Args[i] = new
	new.Uses++
}

// IsPure returns true if this value's op has no side effects.
func (v *Value) IsPure() bool {
	return v.Op.IsPure()
}

// Callee returns the symbol named by a direct or runtime call.
func (v *Value) Callee() string {
	s, _ := v.Aux.(string)
	return s
}

// Sig is the signature of an indirect call.
type Sig struct {
	Params []rtabi.Class
	Result rtabi.Class
}

func (s *Sig) String() string {
	return fmt.Sprintf("%v -> %s", s.Params, s.Result)
}

// CArg describes how one word crosses the C boundary.
type CArg struct {
	Bits    int  // 0 for void
	Float   bool // float (32) or double (64)
	Signed  bool
	Pointer bool
}

func (a CArg) String() string {
	switch {
	case a.Bits == 0:
		return "void"
	case a.Pointer:
		return "ptr"
	case a.Float:
		return fmt.Sprintf("f%d", a.Bits)
	case a.Signed:
		return fmt.Sprintf("i%d", a.Bits)
	}
	return fmt.Sprintf("u%d", a.Bits)
}

// CSig is the C signature of a foreign call site. Variadic calls list the
// promoted types of every actual argument; Fixed counts the declared ones.
type CSig struct {
	Name     string
	Params   []CArg
	Result   CArg
	Variadic bool
	Fixed    int
}

func (s *CSig) String() string {
	return fmt.Sprintf("%s%v -> %s", s.Name, s.Params, s.Result)
}
