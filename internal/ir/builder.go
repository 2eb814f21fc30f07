package ir

import (
	"fmt"

	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Builder appends values to a function. Block is the current insertion
// block; it is nil after a terminator, and emitting into a nil block opens
// a fresh block with no predecessors that the dead-block pass removes.
type Builder struct {
	Func  *Func
	Block *Block
	Pos   ast.Pos
}

// NewBuilder returns a builder positioned at the entry of f.
func NewBuilder(f *Func) *Builder {
	return &Builder{Func: f, Block: f.Entry}
}

func (b *Builder) cur() *Block {
	if b.Block == nil {
		b.Block = b.Func.NewBlock(BlockPlain)
	}
	return b.Block
}

func (b *Builder) value(op Op, class rtabi.Class, args ...*Value) *Value {
	return b.Func.NewValuePos(b.cur(), op, class, b.Pos, args...)
}

// Const emits an integer constant.
func (b *Builder) Const(n int64) *Value {
	v := b.value(OpConst, rtabi.I64)
	v.AuxInt = n
	return v
}

// ConstF emits a float constant.
func (b *Builder) ConstF(x float64) *Value {
	v := b.value(OpConstF, rtabi.F64)
	v.AuxFloat = x
	return v
}

// Arg emits a reference to parameter i.
func (b *Builder) Arg(i int) *Value {
	v := b.value(OpArg, wordClass(b.Func.Params[i]))
	v.AuxInt = int64(i)
	return v
}

// Bin emits a binary arithmetic op; the result has the class of x.
func (b *Builder) Bin(op Op, x, y *Value) *Value {
	return b.value(op, x.Type, x, y)
}

// Un emits a unary op whose result class follows the op.
func (b *Builder) Un(op Op, x *Value) *Value {
	class := x.Type
	switch op {
	case OpIToF, OpBitsF:
		class = rtabi.F64
	case OpFToI, OpFBits:
		class = rtabi.I64
	}
	return b.value(op, class, x)
}

// Ext emits a sign or zero extension of the low bits of x.
func (b *Builder) Ext(op Op, x *Value, bits int) *Value {
	v := b.value(op, rtabi.I64, x)
	v.AuxInt = int64(bits)
	return v
}

// Cmp emits an integer comparison yielding 0 or 1.
func (b *Builder) Cmp(c Cond, x, y *Value) *Value {
	v := b.value(OpCmp, rtabi.I64, x, y)
	v.AuxInt = int64(c)
	return v
}

// FCmp emits a float comparison yielding 0 or 1.
func (b *Builder) FCmp(c Cond, x, y *Value) *Value {
	v := b.value(OpFCmp, rtabi.I64, x, y)
	v.AuxInt = int64(c)
	return v
}

// Slot emits the address of frame word idx.
func (b *Builder) Slot(idx int) *Value {
	v := b.value(OpSlot, rtabi.I64)
	v.AuxInt = int64(idx)
	return v
}

// Load emits a load of a word of the given class at addr+off.
func (b *Builder) Load(addr *Value, off int64, class rtabi.Class) *Value {
	v := b.value(OpLoad, class, addr)
	v.AuxInt = off
	return v
}

// Store emits a store of val at addr+off.
func (b *Builder) Store(addr *Value, off int64, val *Value) {
	v := b.value(OpStore, rtabi.Void, addr, val)
	v.AuxInt = off
}

// Data emits the address of a module data object.
func (b *Builder) Data(name string) *Value {
	v := b.value(OpData, rtabi.I64)
	v.Aux = name
	return v
}

// FuncAddr emits the address of a module function.
func (b *Builder) FuncAddr(name string) *Value {
	v := b.value(OpFuncAddr, rtabi.I64)
	v.Aux = name
	return v
}

// Call emits a direct call to a module function.
func (b *Builder) Call(name string, result rtabi.Class, args ...*Value) *Value {
	v := b.value(OpCall, wordClass(result), args...)
	v.Aux = name
	return v
}

// CallRT emits a call to a runtime function. It panics on a name missing
// from the runtime manifest; callers only use names they declare.
func (b *Builder) CallRT(name string, args ...*Value) *Value {
	sig, ok := rtabi.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("ir: unknown runtime function %s", name))
	}
	v := b.value(OpCallRT, wordClass(sig.Result), args...)
	v.Aux = name
	return v
}

// CallInd emits a call through a function pointer.
func (b *Builder) CallInd(sig *Sig, fn *Value, args ...*Value) *Value {
	v := b.value(OpCallInd, wordClass(sig.Result), append([]*Value{fn}, args...)...)
	v.Aux = sig
	return v
}

// CallFFI emits a foreign call through a resolved symbol address.
func (b *Builder) CallFFI(sig *CSig, fn *Value, args ...*Value) *Value {
	class := rtabi.I64
	switch {
	case sig.Result.Bits == 0:
		class = rtabi.Void
	case sig.Result.Float:
		class = rtabi.F64
	}
	v := b.value(OpCallFFI, class, append([]*Value{fn}, args...)...)
	v.Aux = sig
	return v
}

// NewBlock creates a block without changing the insertion point.
func (b *Builder) NewBlock() *Block {
	return b.Func.NewBlock(BlockPlain)
}

// SetBlock moves the insertion point to blk.
func (b *Builder) SetBlock(blk *Block) {
	b.Block = blk
}

// Jump terminates the current block with an edge to target.
func (b *Builder) Jump(target *Block) {
	blk := b.cur()
	blk.Kind = BlockPlain
	blk.AddSucc(target)
	b.Block = nil
}

// If terminates the current block with a conditional branch.
func (b *Builder) If(cond *Value, then, els *Block) {
	blk := b.cur()
	blk.Kind = BlockIf
	blk.SetControl(cond)
	blk.AddSucc(then)
	blk.AddSucc(els)
	b.Block = nil
}

// Ret terminates the current block with a return of v (nil for void).
func (b *Builder) Ret(v *Value) {
	blk := b.cur()
	blk.Kind = BlockReturn
	if v != nil {
		blk.SetControl(v)
	}
	b.Block = nil
}

// Trap terminates the current block with a runtime fault.
func (b *Builder) Trap(reason string) {
	blk := b.cur()
	blk.Kind = BlockTrap
	blk.Reason = reason
	b.Block = nil
}

// Finish terminates every block left open. Void functions return; others
// return the zero word of their result class.
func (b *Builder) Finish() {
	for _, blk := range b.Func.Blocks {
		if blk.Kind != BlockPlain || len(blk.Succs) > 0 {
			continue
		}
		b.Block = blk
		switch b.Func.Result {
		case rtabi.Void:
			b.Ret(nil)
		case rtabi.F64:
			b.Ret(b.ConstF(0))
		default:
			b.Ret(b.Const(0))
		}
	}
	b.Block = nil
}
