package llvm

import (
	"fmt"

	ll "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

// funcLowerer holds the state of lowering one function.
type funcLowerer struct {
	g  *generator
	f  *ir.Func
	fn *ll.Func

	blocks map[*ir.Block]*ll.Block
	cur    *ll.Block
	label  string // name of the IR block being lowered
	splits int

	vals      []value.Value // indexed by value ID
	frame     *ll.InstAlloca
	frameType *types.ArrayType
	trap      *ll.Block
}

func i64(n int64) *constant.Int { return constant.NewInt(types.I64, n) }

// blockName returns the LLVM label for an IR block.
// The entry block is "entry", others are "bN".
func blockName(b *ir.Block) string {
	if b == b.Func.Entry {
		return "entry"
	}
	return fmt.Sprintf("b%d", b.ID)
}

func (g *generator) lowerFunc(f *ir.Func) error {
	l := &funcLowerer{
		g:      g,
		f:      f,
		fn:     g.funcs[f.Name],
		blocks: make(map[*ir.Block]*ll.Block, len(f.Blocks)),
		vals:   make([]value.Value, f.NumValueIDs()),
	}
	// Dominators come first in reverse post-order, so every operand is
	// lowered before its uses. Unreachable blocks are dropped.
	order := ir.ReversePostOrder(f)
	for _, b := range order {
		l.blocks[b] = l.fn.NewBlock(blockName(b))
	}

	l.cur = l.blocks[f.Entry]
	if f.Slots > 0 {
		l.frameType = types.NewArray(uint64(f.Slots), types.I64)
		l.frame = l.cur.NewAlloca(l.frameType)
		l.cur.NewStore(constant.NewZeroInitializer(l.frameType), l.frame)
	}

	for _, b := range order {
		l.cur = l.blocks[b]
		l.label = blockName(b)
		for _, v := range b.Values {
			if err := l.lowerValue(v); err != nil {
				return errors.Wrap(err, v.LongString())
			}
		}
		l.lowerTerminator(b)
	}
	return nil
}

func (l *funcLowerer) arg(v *ir.Value, i int) value.Value { return l.vals[v.Args[i].ID] }

// word converts a declared pointer back to an i64 word.
func (l *funcLowerer) word(x value.Value) value.Value {
	if isPointer(x.Type()) {
		return l.cur.NewPtrToInt(x, types.I64)
	}
	return x
}

// coerce converts a word to a declared parameter type.
func (l *funcLowerer) coerce(x value.Value, to types.Type) value.Value {
	if isPointer(to) && !isPointer(x.Type()) {
		return l.cur.NewIntToPtr(x, to)
	}
	return x
}

// addr returns a typed pointer to the word at base+off.
func (l *funcLowerer) addr(base value.Value, off int64, elem types.Type) value.Value {
	if off != 0 {
		base = l.cur.NewAdd(base, i64(off))
	}
	return l.cur.NewIntToPtr(base, types.NewPointer(elem))
}

func (l *funcLowerer) call(callee value.Value, sig *types.FuncType, args []*ir.Value) value.Value {
	vals := make([]value.Value, len(args))
	for i, a := range args {
		vals[i] = l.vals[a.ID]
		if i < len(sig.Params) {
			vals[i] = l.coerce(vals[i], sig.Params[i])
		}
	}
	res := l.cur.NewCall(callee, vals...)
	if sig.RetType.Equal(types.Void) {
		return nil
	}
	return l.word(res)
}

func (l *funcLowerer) lowerValue(v *ir.Value) error {
	b := l.cur
	var res value.Value
	switch v.Op {
	case ir.OpConst:
		res = i64(v.AuxInt)
	case ir.OpConstF:
		res = constant.NewFloat(types.Double, v.AuxFloat)
	case ir.OpArg:
		i := int(v.AuxInt)
		if i < 0 || i >= len(l.fn.Params) {
			return errors.Errorf("argument %d out of range", i)
		}
		res = l.word(l.fn.Params[i])

	case ir.OpAdd:
		res = b.NewAdd(l.arg(v, 0), l.arg(v, 1))
	case ir.OpSub:
		res = b.NewSub(l.arg(v, 0), l.arg(v, 1))
	case ir.OpMul:
		res = b.NewMul(l.arg(v, 0), l.arg(v, 1))
	case ir.OpDiv, ir.OpRem:
		x, y := l.arg(v, 0), l.arg(v, 1)
		l.checkDivisor(y)
		if v.Op == ir.OpDiv {
			res = l.cur.NewSDiv(x, y)
		} else {
			res = l.cur.NewSRem(x, y)
		}
	case ir.OpNeg:
		res = b.NewSub(i64(0), l.arg(v, 0))
	case ir.OpAnd:
		res = b.NewAnd(l.arg(v, 0), l.arg(v, 1))
	case ir.OpOr:
		res = b.NewOr(l.arg(v, 0), l.arg(v, 1))
	case ir.OpXor:
		res = b.NewXor(l.arg(v, 0), l.arg(v, 1))

	case ir.OpFAdd:
		res = b.NewFAdd(l.arg(v, 0), l.arg(v, 1))
	case ir.OpFSub:
		res = b.NewFSub(l.arg(v, 0), l.arg(v, 1))
	case ir.OpFMul:
		res = b.NewFMul(l.arg(v, 0), l.arg(v, 1))
	case ir.OpFDiv:
		res = b.NewFDiv(l.arg(v, 0), l.arg(v, 1))
	case ir.OpFNeg:
		res = b.NewFNeg(l.arg(v, 0))
	case ir.OpFloor:
		floor := l.g.intrinsic("llvm.floor.f64", types.Double, types.Double)
		res = b.NewCall(floor, l.arg(v, 0))

	case ir.OpCmp:
		res = b.NewZExt(b.NewICmp(ipred(ir.Cond(v.AuxInt)), l.arg(v, 0), l.arg(v, 1)), types.I64)
	case ir.OpFCmp:
		res = b.NewZExt(b.NewFCmp(fpred(ir.Cond(v.AuxInt)), l.arg(v, 0), l.arg(v, 1)), types.I64)

	case ir.OpIToF:
		res = b.NewSIToFP(l.arg(v, 0), types.Double)
	case ir.OpFToI:
		res = b.NewFPToSI(l.arg(v, 0), types.I64)
	case ir.OpFBits:
		res = b.NewBitCast(l.arg(v, 0), types.I64)
	case ir.OpBitsF:
		res = b.NewBitCast(l.arg(v, 0), types.Double)
	case ir.OpSExt, ir.OpZExt:
		x := l.arg(v, 0)
		if v.AuxInt >= 64 {
			res = x
			break
		}
		narrow := b.NewTrunc(x, types.NewInt(uint64(v.AuxInt)))
		if v.Op == ir.OpSExt {
			res = b.NewSExt(narrow, types.I64)
		} else {
			res = b.NewZExt(narrow, types.I64)
		}
	case ir.OpFDemote:
		res = b.NewFPExt(b.NewFPTrunc(l.arg(v, 0), types.Float), types.Double)

	case ir.OpSlot:
		if l.frame == nil || v.AuxInt >= int64(l.f.Slots) {
			return errors.Errorf("slot %d out of range", v.AuxInt)
		}
		p := b.NewGetElementPtr(l.frameType, l.frame, i64(0), i64(v.AuxInt))
		res = b.NewPtrToInt(p, types.I64)
	case ir.OpLoad:
		elem := llvmType(v.Type)
		res = b.NewLoad(elem, l.addr(l.arg(v, 0), v.AuxInt, elem))
	case ir.OpStore:
		val := l.arg(v, 1)
		b.NewStore(val, l.addr(l.arg(v, 0), v.AuxInt, val.Type()))
	case ir.OpData:
		glob, ok := l.g.data[v.Callee()]
		if !ok {
			return errors.Errorf("undefined data object %s", v.Callee())
		}
		res = constant.NewPtrToInt(glob, types.I64)
	case ir.OpFuncAddr:
		fn, ok := l.g.funcs[v.Callee()]
		if !ok {
			return errors.Errorf("undefined function %s", v.Callee())
		}
		res = constant.NewPtrToInt(fn, types.I64)

	case ir.OpCall:
		fn, ok := l.g.funcs[v.Callee()]
		if !ok {
			return errors.Errorf("undefined function %s", v.Callee())
		}
		callee := l.g.src.Func(v.Callee())
		res = l.call(fn, funcType(callee.Result, callee.Params), v.Args)
	case ir.OpCallRT:
		fn, err := l.g.runtimeFunc(v.Callee())
		if err != nil {
			return err
		}
		sig, _ := rtabi.Lookup(v.Callee())
		res = l.call(fn, funcType(sig.Result, sig.Params), v.Args)
	case ir.OpCallInd:
		sig, ok := v.Aux.(*ir.Sig)
		if !ok {
			return errors.New("indirect call without signature")
		}
		ft := funcType(sig.Result, sig.Params)
		fp := b.NewIntToPtr(l.arg(v, 0), types.NewPointer(ft))
		res = l.call(fp, ft, v.Args[1:])
	case ir.OpCallFFI:
		csig, ok := v.Aux.(*ir.CSig)
		if !ok {
			return errors.New("foreign call without C signature")
		}
		res = l.callForeign(csig, v)

	default:
		return errors.Errorf("cannot lower %s", v.Op)
	}
	l.vals[v.ID] = res
	return nil
}

// callForeign narrows each word to its C type, calls through the symbol
// address and widens the result back to a word.
func (l *funcLowerer) callForeign(sig *ir.CSig, v *ir.Value) value.Value {
	ft := cFuncType(sig)
	fp := l.cur.NewIntToPtr(l.arg(v, 0), types.NewPointer(ft))
	args := make([]value.Value, 0, len(v.Args)-1)
	for i, a := range v.Args[1:] {
		x := l.vals[a.ID]
		if i < len(sig.Params) {
			x = l.toC(x, sig.Params[i])
		}
		args = append(args, x)
	}
	res := l.cur.NewCall(fp, args...)
	return l.fromC(res, sig.Result)
}

func (l *funcLowerer) toC(x value.Value, a ir.CArg) value.Value {
	t := cType(a)
	switch {
	case a.Pointer:
		return l.coerce(x, t)
	case a.Float:
		if !x.Type().Equal(types.Double) {
			x = l.cur.NewBitCast(x, types.Double)
		}
		if a.Bits == 32 {
			return l.cur.NewFPTrunc(x, types.Float)
		}
		return x
	}
	if intBits(t) < 64 {
		return l.cur.NewTrunc(x, t)
	}
	return x
}

func (l *funcLowerer) fromC(x value.Value, a ir.CArg) value.Value {
	switch {
	case a.Bits == 0:
		return nil
	case a.Pointer:
		return l.word(x)
	case a.Float && a.Bits == 32:
		return l.cur.NewFPExt(x, types.Double)
	case a.Float:
		return x
	case a.Bits < 64 && a.Signed:
		return l.cur.NewSExt(x, types.I64)
	case a.Bits < 64:
		return l.cur.NewZExt(x, types.I64)
	}
	return x
}

// checkDivisor branches to the trap block when y is zero. Lowering
// continues in a fresh block.
func (l *funcLowerer) checkDivisor(y value.Value) {
	if c, ok := y.(*constant.Int); ok && c.X.Sign() != 0 {
		return
	}
	isZero := l.cur.NewICmp(enum.IPredEQ, y, i64(0))
	l.splits++
	next := l.fn.NewBlock(fmt.Sprintf("%s.%d", l.label, l.splits))
	l.cur.NewCondBr(isZero, l.trapBlock(), next)
	l.cur = next
}

// trapBlock returns the function's shared trap block.
func (l *funcLowerer) trapBlock() *ll.Block {
	if l.trap == nil {
		l.trap = l.fn.NewBlock("trap")
		l.trap.NewCall(l.g.intrinsic("llvm.trap", types.Void))
		l.trap.NewUnreachable()
	}
	return l.trap
}

func (l *funcLowerer) lowerTerminator(b *ir.Block) {
	switch b.Kind {
	case ir.BlockPlain:
		if len(b.Succs) == 0 {
			l.cur.NewUnreachable()
			return
		}
		l.cur.NewBr(l.blocks[b.Succs[0]])
	case ir.BlockIf:
		cond := l.cur.NewICmp(enum.IPredNE, l.vals[b.Controls[0].ID], i64(0))
		l.cur.NewCondBr(cond, l.blocks[b.Succs[0]], l.blocks[b.Succs[1]])
	case ir.BlockReturn:
		l.lowerReturn(b)
	case ir.BlockTrap:
		l.cur.NewBr(l.trapBlock())
	default:
		l.cur.NewUnreachable()
	}
}

func (l *funcLowerer) lowerReturn(b *ir.Block) {
	rt := llvmType(l.f.Result)
	switch {
	case l.f.Result == rtabi.Void:
		l.cur.NewRet(nil)
	case len(b.Controls) > 0 && b.Controls[0] != nil:
		l.cur.NewRet(l.coerce(l.vals[b.Controls[0].ID], rt))
	case l.f.Result == rtabi.F64:
		l.cur.NewRet(constant.NewFloat(types.Double, 0))
	case l.f.Result == rtabi.Ptr:
		l.cur.NewRet(constant.NewNull(bytePtr))
	default:
		l.cur.NewRet(i64(0))
	}
}

func ipred(c ir.Cond) enum.IPred {
	switch c {
	case ir.CondNE:
		return enum.IPredNE
	case ir.CondLT:
		return enum.IPredSLT
	case ir.CondLE:
		return enum.IPredSLE
	case ir.CondGT:
		return enum.IPredSGT
	case ir.CondGE:
		return enum.IPredSGE
	}
	return enum.IPredEQ
}

// fpred maps a condition to an ordered predicate, except NE which is true
// when either operand is NaN.
func fpred(c ir.Cond) enum.FPred {
	switch c {
	case ir.CondNE:
		return enum.FPredUNE
	case ir.CondLT:
		return enum.FPredOLT
	case ir.CondLE:
		return enum.FPredOLE
	case ir.CondGT:
		return enum.FPredOGT
	case ir.CondGE:
		return enum.FPredOGE
	}
	return enum.FPredOEQ
}
