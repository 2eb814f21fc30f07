package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/types"
)

// variable is a named binding living in a frame slot.
type variable struct {
	name string
	typ  types.Type // declared type, weak and unowned wrappers kept
	slot int

	// owned bindings are released when their scope ends.
	owned bool

	// orig is the slot holding the value a borrow or ref parameter arrived
	// with; the caller owns that value. -1 for other bindings.
	orig int

	// ref is the slot holding the caller's slot address of a ref
	// parameter; -1 for other bindings.
	ref int

	moved bool

	// loop is the loop depth the binding was declared at.
	loop int

	// borrowOf is the binding a lifetime-function result was derived from.
	borrowOf *variable

	// future is the spawn target when the binding holds a future.
	future *funcInfo
}

// scope is one lexical block of bindings.
type scope struct {
	vars  []*variable
	names map[string]*variable
}

// temp is an owned value produced inside the current statement.
type temp struct {
	v *ir.Value
	t types.Type
}

// fnState is the lowering state of one function body.
type fnState struct {
	g      *generator
	fn     *funcInfo
	f      *ir.Func
	b      *ir.Builder
	module string

	// arc is false inside functions with a lifetime clause, where no
	// retain or release is emitted.
	arc bool

	scopes []*scope
	temps  []temp
	loop   int // depth of enclosing loops

	// unwind holds the exit actions of the enclosing pool, await and
	// for-in blocks, innermost last.
	unwind []func()

	// sources maps a binding to the binding it was derived from, for
	// lifetime checking.
	sources map[string]string
}

// compileFunc lowers the body of fi.
func (g *generator) compileFunc(fi *funcInfo) {
	g.curFunc = fi.name
	s := &fnState{
		g:       g,
		fn:      fi,
		f:       fi.ir,
		b:       ir.NewBuilder(fi.ir),
		module:  fi.module,
		arc:     !fi.hasLifetime(),
		sources: make(map[string]string),
	}
	if fi.hasLifetime() {
		s.checkClause()
	}
	s.pushScope()
	for i, p := range fi.params {
		s.bindParam(i, p)
	}
	s.stmts(fi.def.Body)
	if !s.dead() {
		s.ret(s.zero(fi.result), nil)
	}
	s.b.Finish()
	logger.LogCodeGen("ir", fi.link, fi.ir.NumValues())
}

// zero returns the zero word of t, or nil for none.
func (s *fnState) zero(t types.Type) *ir.Value {
	switch types.ValueClass(t) {
	case rtabi.Void:
		return nil
	case rtabi.F64:
		return s.b.ConstF(0)
	}
	return s.b.Const(0)
}

func (s *fnState) dead() bool { return s.b.Block == nil }

func (s *fnState) errorf(kind ErrorKind, pos ast.Pos, format string, args ...interface{}) {
	s.g.errorf(kind, pos, format, args...)
}

// ----------------------------------------------------------------------------
// Slots and bindings

func wordClass(t types.Type) rtabi.Class {
	return ir.WordClass(types.ValueClass(t))
}

func (s *fnState) newSlot() int { return s.f.NewSlot(1) }

func (s *fnState) loadSlot(slot int, t types.Type) *ir.Value {
	class := wordClass(t)
	if class == rtabi.Void {
		class = rtabi.I64
	}
	return s.b.Load(s.b.Slot(slot), 0, class)
}

func (s *fnState) storeSlot(slot int, v *ir.Value) {
	s.b.Store(s.b.Slot(slot), 0, v)
}

func (s *fnState) load(v *variable) *ir.Value { return s.loadSlot(v.slot, v.typ) }

func (s *fnState) store(v *variable, val *ir.Value) { s.storeSlot(v.slot, val) }

func (s *fnState) pushScope() {
	s.scopes = append(s.scopes, &scope{names: make(map[string]*variable)})
}

// popScope checks borrows against the bindings going out of scope and
// releases them.
func (s *fnState) popScope(pos ast.Pos) {
	sc := s.scopes[len(s.scopes)-1]
	s.checkBorrows(sc, pos)
	if !s.dead() {
		for i := len(sc.vars) - 1; i >= 0; i-- {
			s.drop(sc.vars[i])
		}
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// declare binds name in the innermost scope. Redeclaring a name in the
// same scope shadows the old binding, which is released first.
func (s *fnState) declare(name string, t types.Type) *variable {
	sc := s.scopes[len(s.scopes)-1]
	if old := sc.names[name]; old != nil && !s.dead() {
		s.drop(old)
	}
	v := &variable{name: name, typ: t, slot: s.newSlot(), orig: -1, ref: -1, loop: s.loop}
	sc.vars = append(sc.vars, v)
	sc.names[name] = v
	return v
}

// lookup finds the innermost binding of name.
func (s *fnState) lookup(name string) *variable {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v := s.scopes[i].names[name]; v != nil {
			return v
		}
	}
	return nil
}

// bindParam spills parameter i into a slot. Borrowed and ref parameters
// remember their incoming value so that only values the callee created
// are released.
func (s *fnState) bindParam(i int, p ast.Param) {
	v := s.declare(p.Name, p.Type)
	arg := s.b.Arg(i)
	rc := s.arc && s.g.isRC(p.Type)
	switch p.Mode {
	case ast.Ref:
		v.ref = s.newSlot()
		s.storeSlot(v.ref, arg)
		cur := s.b.Load(arg, 0, wordClass(p.Type))
		s.store(v, cur)
		v.orig = s.newSlot()
		s.storeSlot(v.orig, cur)
	case ast.Owned:
		s.store(v, arg)
		v.owned = rc
	default:
		s.store(v, arg)
		if rc {
			v.orig = s.newSlot()
			s.storeSlot(v.orig, arg)
		}
	}
}

// writeBack stores the current value of every ref parameter into the
// caller's slot.
func (s *fnState) writeBack() {
	if len(s.scopes) == 0 {
		return
	}
	for _, v := range s.scopes[0].vars {
		if v.ref >= 0 {
			addr := s.loadSlot(v.ref, types.Typ[types.Ptr])
			s.b.Store(addr, 0, s.load(v))
		}
	}
}

// ret releases every temporary and binding except keep, writes back ref
// parameters and returns val.
func (s *fnState) ret(val *ir.Value, keep *variable) {
	for i := len(s.temps) - 1; i >= 0; i-- {
		s.release(s.temps[i].v, s.temps[i].t)
	}
	for i := len(s.unwind) - 1; i >= 0; i-- {
		s.unwind[i]()
	}
	for i := len(s.scopes) - 1; i >= 0; i-- {
		sc := s.scopes[i]
		for j := len(sc.vars) - 1; j >= 0; j-- {
			if sc.vars[j] != keep {
				s.drop(sc.vars[j])
			}
		}
	}
	s.writeBack()
	s.b.Ret(val)
}

// stmts lowers a statement list, stopping at unreachable code.
func (s *fnState) stmts(list []ast.Stmt) {
	for _, st := range list {
		if s.dead() {
			return
		}
		s.stmt(st)
	}
}

// block lowers list in a fresh scope.
func (s *fnState) block(list []ast.Stmt, pos ast.Pos) {
	s.pushScope()
	s.stmts(list)
	s.popScope(pos)
}

// branch terminates the current block with a jump to target unless it is
// already terminated.
func (s *fnState) branch(target *ir.Block) {
	if !s.dead() {
		s.b.Jump(target)
	}
}

// enter makes blk current, or marks the rest of the code unreachable when
// nothing jumps to it.
func (s *fnState) enter(blk *ir.Block) {
	if blk.NumPreds() == 0 {
		s.b.SetBlock(nil)
		return
	}
	s.b.SetBlock(blk)
}
