package jit

import (
	"math"

	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/runtime"
)

func f64(w uint64) float64 { return math.Float64frombits(w) }

func bits(x float64) uint64 { return math.Float64bits(x) }

func flag(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// frame is the state of one activation.
type frame struct {
	fn   *function
	t    *runtime.Task
	args []uint64
	regs []uint64 // indexed by value ID
	base uint64   // address of slot 0
}

// call runs fn with args on task t.
func (e *Engine) call(t *runtime.Task, fn *function, args []uint64) uint64 {
	fr := &frame{
		fn:   fn,
		t:    t,
		args: args,
		regs: make([]uint64, fn.f.NumValueIDs()),
	}
	if fn.f.Slots > 0 {
		fr.base = e.rt.Alloc(int64(fn.f.Slots) * rtabi.WordSize)
		defer e.rt.Free(fr.base)
	}

	b := fn.f.Entry
	for {
		for _, v := range b.Values {
			fr.regs[v.ID] = e.eval(fr, v)
		}
		switch b.Kind {
		case ir.BlockPlain:
			if len(b.Succs) == 0 {
				runtime.Raise("%s: block %s falls off the end", fn.f.Name, b)
			}
			b = b.Succs[0]
		case ir.BlockIf:
			if fr.regs[b.Controls[0].ID] != 0 {
				b = b.Succs[0]
			} else {
				b = b.Succs[1]
			}
		case ir.BlockReturn:
			if len(b.Controls) > 0 && b.Controls[0] != nil {
				return fr.regs[b.Controls[0].ID]
			}
			return 0
		case ir.BlockTrap:
			runtime.Raise("%s", b.Reason)
		default:
			runtime.Raise("%s: block %s has kind %s", fn.f.Name, b, b.Kind)
		}
	}
}

func (fr *frame) arg(v *ir.Value, i int) uint64 { return fr.regs[v.Args[i].ID] }

// operands collects the words of v.Args[from:].
func (fr *frame) operands(v *ir.Value, from int) []uint64 {
	if len(v.Args) <= from {
		return nil
	}
	out := make([]uint64, len(v.Args)-from)
	for i, a := range v.Args[from:] {
		out[i] = fr.regs[a.ID]
	}
	return out
}

func (e *Engine) eval(fr *frame, v *ir.Value) uint64 {
	switch v.Op {
	case ir.OpConst:
		return uint64(v.AuxInt)
	case ir.OpConstF:
		return bits(v.AuxFloat)
	case ir.OpArg:
		if i := int(v.AuxInt); i < len(fr.args) {
			return fr.args[i]
		}
		return 0

	case ir.OpAdd:
		return fr.arg(v, 0) + fr.arg(v, 1)
	case ir.OpSub:
		return fr.arg(v, 0) - fr.arg(v, 1)
	case ir.OpMul:
		return uint64(int64(fr.arg(v, 0)) * int64(fr.arg(v, 1)))
	case ir.OpDiv, ir.OpRem:
		x, y := int64(fr.arg(v, 0)), int64(fr.arg(v, 1))
		if y == 0 {
			runtime.Raise("integer division by zero")
		}
		if v.Op == ir.OpDiv {
			return uint64(x / y)
		}
		return uint64(x % y)
	case ir.OpNeg:
		return uint64(-int64(fr.arg(v, 0)))
	case ir.OpAnd:
		return fr.arg(v, 0) & fr.arg(v, 1)
	case ir.OpOr:
		return fr.arg(v, 0) | fr.arg(v, 1)
	case ir.OpXor:
		return fr.arg(v, 0) ^ fr.arg(v, 1)

	case ir.OpFAdd:
		return bits(f64(fr.arg(v, 0)) + f64(fr.arg(v, 1)))
	case ir.OpFSub:
		return bits(f64(fr.arg(v, 0)) - f64(fr.arg(v, 1)))
	case ir.OpFMul:
		return bits(f64(fr.arg(v, 0)) * f64(fr.arg(v, 1)))
	case ir.OpFDiv:
		return bits(f64(fr.arg(v, 0)) / f64(fr.arg(v, 1)))
	case ir.OpFNeg:
		return bits(-f64(fr.arg(v, 0)))
	case ir.OpFloor:
		return bits(math.Floor(f64(fr.arg(v, 0))))

	case ir.OpCmp:
		x, y := int64(fr.arg(v, 0)), int64(fr.arg(v, 1))
		cmp := 0
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
		return flag(ir.Cond(v.AuxInt).Eval(cmp))
	case ir.OpFCmp:
		x, y := f64(fr.arg(v, 0)), f64(fr.arg(v, 1))
		c := ir.Cond(v.AuxInt)
		if math.IsNaN(x) || math.IsNaN(y) {
			return flag(c == ir.CondNE)
		}
		cmp := 0
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
		return flag(c.Eval(cmp))

	case ir.OpIToF:
		return bits(float64(int64(fr.arg(v, 0))))
	case ir.OpFToI:
		return uint64(int64(f64(fr.arg(v, 0))))
	case ir.OpFBits, ir.OpBitsF:
		return fr.arg(v, 0)
	case ir.OpSExt:
		shift := 64 - uint(v.AuxInt)
		return uint64(int64(fr.arg(v, 0)<<shift) >> shift)
	case ir.OpZExt:
		if v.AuxInt >= 64 {
			return fr.arg(v, 0)
		}
		return fr.arg(v, 0) & (1<<uint(v.AuxInt) - 1)
	case ir.OpFDemote:
		return bits(float64(float32(f64(fr.arg(v, 0)))))

	case ir.OpSlot:
		return fr.base + uint64(v.AuxInt)*rtabi.WordSize
	case ir.OpLoad:
		return e.rt.Heap().Load(fr.arg(v, 0) + uint64(v.AuxInt))
	case ir.OpStore:
		e.rt.Heap().Store(fr.arg(v, 0)+uint64(v.AuxInt), fr.arg(v, 1))
		return 0
	case ir.OpData, ir.OpFuncAddr:
		return fr.fn.links[v.ID].word

	case ir.OpCall:
		return e.call(fr.t, fr.fn.links[v.ID].callee, fr.operands(v, 0))
	case ir.OpCallRT:
		return fr.fn.links[v.ID].builtin(fr.t, fr.operands(v, 0))
	case ir.OpCallInd:
		return e.Invoke(fr.t, fr.arg(v, 0), fr.operands(v, 1)...)
	case ir.OpCallFFI:
		return e.rt.CallForeign(fr.arg(v, 0), v.Aux.(*ir.CSig), fr.operands(v, 1))
	}
	runtime.Raise("%s: cannot execute %s", fr.fn.f.Name, v.LongString())
	return 0
}
