// Package ir implements the low-level intermediate representation produced
// by the Bolide code generator and consumed by the JIT and AOT backends.
//
// Every value is one 64-bit word of class I64 or F64. Pointers, booleans and
// handles travel as I64. Locals live in stack slots addressed through
// OpSlot, so the IR carries no phi nodes.
package ir

// Op represents an IR operation code.
type Op int

const (
	OpInvalid Op = iota

	// Constants
	OpConst  // integer constant; AuxInt = value
	OpConstF // float constant; AuxFloat = value
	OpArg    // function argument; AuxInt = param index

	// Integer arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv // signed, traps on zero divisor
	OpRem // signed, traps on zero divisor
	OpNeg
	OpAnd
	OpOr
	OpXor

	// Float arithmetic
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFNeg
	OpFloor

	// Comparison; AuxInt = Cond; result is I64 0 or 1
	OpCmp
	OpFCmp

	// Conversion
	OpIToF    // int → float
	OpFToI    // float → int, truncating
	OpFBits   // float bits → I64 word
	OpBitsF   // I64 word → float bits
	OpSExt    // sign-extend the low AuxInt bits
	OpZExt    // zero-extend the low AuxInt bits
	OpFDemote // round to float32 precision

	// Memory
	OpSlot     // address of stack slot; AuxInt = word index
	OpLoad     // load word; Args[0] = address; AuxInt = byte offset
	OpStore    // store word; Args[0] = address, Args[1] = value; AuxInt = byte offset; void
	OpData     // address of a module data object; Aux = name
	OpFuncAddr // address of a function; Aux = name

	// Calls
	OpCall    // direct call; Aux = callee name; Args = arguments
	OpCallRT  // runtime call; Aux = runtime symbol; Args = arguments
	OpCallInd // indirect call; Args[0] = function pointer; Aux = *Sig
	OpCallFFI // foreign call; Args[0] = symbol address; Aux = *CSig

	opCount // sentinel; must be last
)

// OpInfo holds metadata about an operation.
type OpInfo struct {
	Name   string // human-readable name
	IsPure bool   // no side effects; removable when unused
	IsVoid bool   // produces no value
}

var opInfoTable = [opCount]OpInfo{
	OpInvalid: {Name: "Invalid"},

	OpConst:  {Name: "Const", IsPure: true},
	OpConstF: {Name: "ConstF", IsPure: true},
	OpArg:    {Name: "Arg", IsPure: true},

	OpAdd: {Name: "Add", IsPure: true},
	OpSub: {Name: "Sub", IsPure: true},
	OpMul: {Name: "Mul", IsPure: true},
	OpDiv: {Name: "Div"}, // may trap
	OpRem: {Name: "Rem"}, // may trap
	OpNeg: {Name: "Neg", IsPure: true},
	OpAnd: {Name: "And", IsPure: true},
	OpOr:  {Name: "Or", IsPure: true},
	OpXor: {Name: "Xor", IsPure: true},

	OpFAdd:  {Name: "FAdd", IsPure: true},
	OpFSub:  {Name: "FSub", IsPure: true},
	OpFMul:  {Name: "FMul", IsPure: true},
	OpFDiv:  {Name: "FDiv", IsPure: true},
	OpFNeg:  {Name: "FNeg", IsPure: true},
	OpFloor: {Name: "Floor", IsPure: true},

	OpCmp:  {Name: "Cmp", IsPure: true},
	OpFCmp: {Name: "FCmp", IsPure: true},

	OpIToF:    {Name: "IToF", IsPure: true},
	OpFToI:    {Name: "FToI", IsPure: true},
	OpFBits:   {Name: "FBits", IsPure: true},
	OpBitsF:   {Name: "BitsF", IsPure: true},
	OpSExt:    {Name: "SExt", IsPure: true},
	OpZExt:    {Name: "ZExt", IsPure: true},
	OpFDemote: {Name: "FDemote", IsPure: true},

	OpSlot:     {Name: "Slot", IsPure: true},
	OpLoad:     {Name: "Load"},
	OpStore:    {Name: "Store", IsVoid: true},
	OpData:     {Name: "Data", IsPure: true},
	OpFuncAddr: {Name: "FuncAddr", IsPure: true},

	OpCall:    {Name: "Call"},
	OpCallRT:  {Name: "CallRT"},
	OpCallInd: {Name: "CallInd"},
	OpCallFFI: {Name: "CallFFI"},
}

// String returns the human-readable name of the op.
func (o Op) String() string {
	return o.Info().Name
}

// Info returns the OpInfo for this op.
func (o Op) Info() OpInfo {
	if o >= 0 && int(o) < len(opInfoTable) {
		return opInfoTable[o]
	}
	return OpInfo{Name: "unknown"}
}

// IsPure returns true if this op has no side effects.
func (o Op) IsPure() bool { return o.Info().IsPure }

// IsVoid returns true if this op never produces a value.
func (o Op) IsVoid() bool { return o.Info().IsVoid }

// IsCall reports whether o transfers control to other code.
func (o Op) IsCall() bool {
	switch o {
	case OpCall, OpCallRT, OpCallInd, OpCallFFI:
		return true
	}
	return false
}

// Cond is a comparison predicate, stored in AuxInt of OpCmp and OpFCmp.
type Cond int64

const (
	CondEQ Cond = iota
	CondNE
	CondLT
	CondLE
	CondGT
	CondGE
)

var condNames = [...]string{
	CondEQ: "eq", CondNE: "ne", CondLT: "lt", CondLE: "le", CondGT: "gt", CondGE: "ge",
}

func (c Cond) String() string {
	if c >= 0 && int(c) < len(condNames) {
		return condNames[c]
	}
	return "?"
}

// Eval applies the predicate to a three-way comparison result.
func (c Cond) Eval(cmp int) bool {
	switch c {
	case CondEQ:
		return cmp == 0
	case CondNE:
		return cmp != 0
	case CondLT:
		return cmp < 0
	case CondLE:
		return cmp <= 0
	case CondGT:
		return cmp > 0
	case CondGE:
		return cmp >= 0
	}
	return false
}
