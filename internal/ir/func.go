package ir

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Func represents an IR function.
type Func struct {
	// Name is the link name of the function.
	Name string

	// Params are the word classes of the parameters; ParamNames is parallel
	// and only used for printing.
	Params     []rtabi.Class
	ParamNames []string

	// Result is the word class of the result, rtabi.Void for none.
	Result rtabi.Class

	// Slots is the frame size in words. OpSlot indexes into it.
	Slots int

	// Blocks is the list of basic blocks. Blocks[0] is always the entry block.
	Blocks []*Block

	// Entry is the entry block (same as Blocks[0]).
	Entry *Block

	// Private functions (trampolines, constructors) are not exported by AOT.
	Private bool

	nextValueID ID
	nextBlockID ID
}

// NewFunc creates a new function with an empty entry block.
func NewFunc(name string, params []rtabi.Class, result rtabi.Class) *Func {
	f := &Func{
		Name:   name,
		Params: params,
		Result: result,
	}
	f.Entry = f.NewBlock(BlockPlain)
	return f
}

// NewBlock creates a new basic block with the given kind and appends it to the function.
func (f *Func) NewBlock(kind BlockKind) *Block {
	b := &Block{
		ID:   f.nextBlockID,
		Kind: kind,
		Func: f,
	}
	f.nextBlockID++
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewValue creates a new Value in the given block.
func (f *Func) NewValue(b *Block, op Op, typ rtabi.Class, args ...*Value) *Value {
	v := &Value{
		ID:    f.nextValueID,
		Op:    op,
		Type:  typ,
		Block: b,
	}
	f.nextValueID++
	for _, arg := range args {
		v.AddArg(arg)
	}
	b.Values = append(b.Values, v)
	return v
}

// NewValuePos creates a new Value with source position in the given block.
func (f *Func) NewValuePos(b *Block, op Op, typ rtabi.Class, pos ast.Pos, args ...*Value) *Value {
	v := f.NewValue(b, op, typ, args...)
	v.Pos = pos
	return v
}

// NewSlot reserves n contiguous frame words and returns the index of the first.
func (f *Func) NewSlot(n int) int {
	idx := f.Slots
	f.Slots += n
	return idx
}

// NumBlocks returns the number of blocks in the function.
func (f *Func) NumBlocks() int { return len(f.Blocks) }

// NumValueIDs returns one more than the largest value ID ever allocated.
func (f *Func) NumValueIDs() int { return int(f.nextValueID) }

// NumValues returns the total number of values across all blocks.
func (f *Func) NumValues() int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Values)
	}
	return n
}
