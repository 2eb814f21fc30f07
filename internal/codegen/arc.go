package codegen

import (
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/types"
)

// operand is the result of lowering an expression.
//
// A temp operand is owned by the current statement and sits in s.temps
// until a binding absorbs it or the statement ends. Any other operand is
// borrowed: its word belongs to a binding, a container or the caller.
type operand struct {
	v    *ir.Value
	t    types.Type
	temp bool

	// from is the binding a lifetime-function result borrows from.
	from *variable

	// fut is the spawn target of a future operand.
	fut *funcInfo
}

func borrowed(v *ir.Value, t types.Type) operand { return operand{v: v, t: t} }

// track records v as an owned temporary of type t. Values of types that
// are not reference counted come back as plain operands.
func (s *fnState) track(v *ir.Value, t types.Type) operand {
	op := operand{v: v, t: t}
	if s.arc && s.g.isRC(t) {
		s.temps = append(s.temps, temp{v: v, t: t})
		op.temp = true
	}
	return op
}

// untrack removes v from the temporaries; it reports whether v was there.
func (s *fnState) untrack(v *ir.Value) bool {
	for i := len(s.temps) - 1; i >= 0; i-- {
		if s.temps[i].v == v {
			s.temps = append(s.temps[:i], s.temps[i+1:]...)
			return true
		}
	}
	return false
}

// own returns a word the caller owns: temporaries are absorbed, borrowed
// references are cloned.
func (s *fnState) own(op operand) *ir.Value {
	if !s.arc || !s.g.isRC(op.t) {
		return op.v
	}
	if op.temp && s.untrack(op.v) {
		return op.v
	}
	return s.b.CallRT(types.RCPrefix(op.t)+"_clone", op.v)
}

// release drops one strong reference to v.
func (s *fnState) release(v *ir.Value, t types.Type) {
	if !s.arc || !s.g.isRC(t) || s.dead() {
		return
	}
	s.b.CallRT(types.RCPrefix(t)+"_release", v)
}

// mark returns the current temporary watermark.
func (s *fnState) mark() int { return len(s.temps) }

// releaseTemps releases the temporaries created since mark, newest first.
func (s *fnState) releaseTemps(mark int) {
	if mark > len(s.temps) {
		mark = len(s.temps)
	}
	for i := len(s.temps) - 1; i >= mark; i-- {
		s.release(s.temps[i].v, s.temps[i].t)
	}
	s.temps = s.temps[:mark]
}

// releaseIfChanged releases cur unless it is still the word held in
// the orig slot, which the caller owns.
func (s *fnState) releaseIfChanged(cur *ir.Value, orig int, t types.Type) {
	if !s.arc || !s.g.isRC(t) || s.dead() {
		return
	}
	s.releaseUnless(cur, s.loadSlot(orig, t), t)
}

// releaseUnless releases cur when it differs from keep.
func (s *fnState) releaseUnless(cur, keep *ir.Value, t types.Type) {
	if !s.arc || !s.g.isRC(t) || s.dead() {
		return
	}
	changed := s.b.Cmp(ir.CondNE, cur, keep)
	rel, join := s.b.NewBlock(), s.b.NewBlock()
	s.b.If(changed, rel, join)
	s.b.SetBlock(rel)
	s.release(cur, t)
	s.b.Jump(join)
	s.b.SetBlock(join)
}

// drop ends the life of binding v at scope exit.
func (s *fnState) drop(v *variable) {
	if s.dead() || !s.arc {
		return
	}
	switch {
	case v.ref >= 0:
		// The current value goes back to the caller.
	case isWeak(v.typ):
		if v.owned {
			s.b.CallRT("object_weak_release", s.load(v))
		}
	case v.orig >= 0:
		s.releaseIfChanged(s.load(v), v.orig, v.typ)
	case v.owned:
		s.release(s.load(v), v.typ)
	}
}

// assignVar stores op into v, releasing what v held before.
func (s *fnState) assignVar(v *variable, op operand) {
	switch {
	case isWeak(v.typ):
		nv := op.v
		if s.arc {
			s.b.CallRT("object_weak_retain", nv)
			old := s.load(v)
			s.store(v, nv)
			if v.owned {
				s.b.CallRT("object_weak_release", old)
			}
			break
		}
		s.store(v, nv)
	case v.orig >= 0:
		nv := s.own(op)
		old := s.load(v)
		s.store(v, nv)
		s.releaseIfChanged(old, v.orig, v.typ)
	case v.owned:
		nv := s.own(op)
		old := s.load(v)
		s.store(v, nv)
		s.release(old, v.typ)
	default:
		s.store(v, op.v)
	}
	v.moved = false
}

// initVar stores the first value of a fresh binding.
func (s *fnState) initVar(v *variable, op operand) {
	switch {
	case isWeak(v.typ):
		v.owned = s.arc
		if s.arc {
			s.b.CallRT("object_weak_retain", op.v)
		}
		s.store(v, op.v)
	case op.from != nil:
		v.borrowOf = op.from
		s.store(v, op.v)
	case s.arc && s.g.isRC(v.typ):
		v.owned = true
		s.store(v, s.own(op))
	default:
		s.store(v, op.v)
	}
}

func isWeak(t types.Type) bool {
	_, ok := t.(*types.Weak)
	return ok
}

func isUnowned(t types.Type) bool {
	_, ok := t.(*types.Unowned)
	return ok
}

// toWord converts v to the I64 word stored in containers, channels and
// spawn environments.
func (s *fnState) toWord(v *ir.Value) *ir.Value {
	if v.Type == rtabi.F64 {
		return s.b.Un(ir.OpFBits, v)
	}
	return v
}

// fromWord reinterprets a container word as a value of type t.
func (s *fnState) fromWord(w *ir.Value, t types.Type) *ir.Value {
	if types.IsFloat(t) && w.Type == rtabi.I64 {
		return s.b.Un(ir.OpBitsF, w)
	}
	return w
}
