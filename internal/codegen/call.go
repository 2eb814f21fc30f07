package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/types"
)

// call lowers a call expression. Resolution order matches callType.
func (s *fnState) call(e *ast.Call, hint types.Type) operand {
	switch fun := e.Fun.(type) {
	case *ast.Ident:
		if v := s.lookup(fun.Name); v != nil {
			return s.callValue(v, e)
		}
		if fi := s.g.lookupFunc(s.module, fun.Name); fi != nil {
			return s.callFunc(fi, nil, nil, e.Args, e.Pos())
		}
		if c := s.g.lookupClass(s.module, fun.Name); c != nil {
			return s.construct(c, e.Args, e.Pos())
		}
		if st, ok := s.g.structs[fun.Name]; ok {
			return s.newStruct(st, e.Args, e.Pos())
		}
		if x := s.g.externs[fun.Name]; x != nil {
			return s.callExtern(x, e.Args, e.Pos())
		}
		return s.intrinsic(fun.Name, e, hint)

	case *ast.Member:
		if mod, ok := s.moduleRef(fun.X); ok {
			if fi := s.g.funcs[qualify(mod, fun.Name)]; fi != nil {
				return s.callFunc(fi, nil, nil, e.Args, e.Pos())
			}
			if c := s.g.classes[qualify(mod, fun.Name)]; c != nil {
				return s.construct(c, e.Args, e.Pos())
			}
			s.errorf(Structural, e.Pos(), "undefined function %s.%s", mod, fun.Name)
		}
		if _, ok := s.typeOf(fun.X).(*types.Class); ok && s.structOf(s.typeOf(fun.X)) == nil {
			self := s.expr(fun.X)
			m := s.classOf(self.t, fun.Pos()).method(fun.Name)
			if m == nil {
				s.errorf(Structural, e.Pos(), "class %s has no method %s", self.t, fun.Name)
			}
			return s.callFunc(m, &self, s.rootVar(fun.X), e.Args, e.Pos())
		}
		return s.method(fun, e.Args)
	}
	s.errorf(TypeError, e.Pos(), "expression is not callable")
	return operand{}
}

// callValue calls through a function-typed binding. Arguments are
// borrowed.
func (s *fnState) callValue(v *variable, e *ast.Call) operand {
	ft, ok := v.typ.(*types.Func)
	if !ok {
		s.errorf(TypeError, e.Pos(), "%s is not a function", v.name)
	}
	if len(e.Args) != len(ft.Params()) {
		s.errorf(Structural, e.Pos(), "%s takes %d arguments, got %d", v.name, len(ft.Params()), len(e.Args))
	}
	sig := &ir.Sig{Result: types.ValueClass(ft.Result())}
	args := make([]*ir.Value, len(e.Args))
	for i, a := range e.Args {
		pt := ft.Params()[i]
		args[i] = s.coerce(s.exprHint(a, pt), pt, a.Pos()).v
		class := types.ValueClass(pt)
		if class == rtabi.Void {
			class = rtabi.I64
		}
		sig.Params = append(sig.Params, class)
	}
	res := s.b.CallInd(sig, s.load(v), args...)
	if sig.Result == rtabi.Void {
		return borrowed(s.b.Const(0), tNone)
	}
	return s.track(res, ft.Result())
}

// refArg is a caller binding passed by address.
type refArg struct {
	v    *variable
	slot int
}

// callFunc calls a user function or method. self is the receiver of a
// method call and selfVar its root binding, if any.
func (s *fnState) callFunc(fi *funcInfo, self *operand, selfVar *variable, args []ast.Expr, pos ast.Pos) operand {
	if fi.async {
		return s.spawn(fi, self, args, pos)
	}
	off := 0
	if self != nil {
		off = 1
	}
	if len(args) != len(fi.params)-off {
		s.errorf(Structural, pos, "%s takes %d arguments, got %d", fi.name, len(fi.params)-off, len(args))
	}
	clause := fi.clauseParam()
	var (
		vals []*ir.Value
		refs []refArg
		from *variable
	)
	if self != nil {
		vals = append(vals, self.v)
		if clause == 0 {
			from = selfVar
		}
	}
	for i, a := range args {
		p := fi.params[i+off]
		switch p.Mode {
		case ast.Ref:
			r := s.refArg(a, p, pos)
			vals = append(vals, s.b.Slot(r.slot))
			refs = append(refs, r)
		case ast.Owned:
			vals = append(vals, s.moveArg(a, p.Type))
		default:
			vals = append(vals, s.coerce(s.exprHint(a, p.Type), p.Type, a.Pos()).v)
		}
		if i+off == clause {
			from = s.rootVar(a)
		}
	}

	res := s.b.Call(fi.link, fi.resultClass(), vals...)
	for _, r := range refs {
		s.refReturn(r, fi)
	}

	switch {
	case fi.result == nil || types.IsKind(fi.result, types.None):
		return borrowed(s.b.Const(0), tNone)
	case fi.hasLifetime():
		op := borrowed(res, fi.result)
		op.from = from
		return op
	}
	return s.track(res, fi.result)
}

// refArg spills the binding named by a into a fresh slot whose address
// the callee receives.
func (s *fnState) refArg(a ast.Expr, p ast.Param, pos ast.Pos) refArg {
	id, ok := a.(*ast.Ident)
	var v *variable
	if ok {
		v = s.lookup(id.Name)
	}
	if v == nil {
		s.errorf(Structural, a.Pos(), "argument for ref parameter %s must be a variable", p.Name)
	}
	if v.moved {
		s.errorf(Move, a.Pos(), "use of moved variable %s", v.name)
	}
	if !types.Identical(types.Deref(v.typ), types.Deref(p.Type)) {
		s.errorf(TypeError, a.Pos(), "cannot pass %s %s to ref parameter of type %s", v.name, v.typ, p.Type)
	}
	slot := s.newSlot()
	s.storeSlot(slot, s.load(v))
	return refArg{v: v, slot: slot}
}

// refReturn copies the value a callee left in a ref slot back into the
// binding. The callee owns a value it stored; the old value is released
// when it was replaced.
func (s *fnState) refReturn(r refArg, callee *funcInfo) {
	nv := s.loadSlot(r.slot, r.v.typ)
	if !callee.hasLifetime() && s.g.isRC(r.v.typ) {
		old := s.load(r.v)
		switch {
		case r.v.orig >= 0:
			changed := s.b.Cmp(ir.CondNE, old, nv)
			rel, join := s.b.NewBlock(), s.b.NewBlock()
			s.b.If(changed, rel, join)
			s.b.SetBlock(rel)
			s.releaseIfChanged(old, r.v.orig, r.v.typ)
			s.b.Jump(join)
			s.b.SetBlock(join)
		case r.v.owned:
			s.releaseUnless(old, nv, r.v.typ)
		}
	}
	s.store(r.v, nv)
}

// moveArg returns an owned word for an owned parameter. A local binding
// that owns its value gives it up; anything else is cloned.
func (s *fnState) moveArg(a ast.Expr, want types.Type) *ir.Value {
	if id, ok := a.(*ast.Ident); ok {
		v := s.lookup(id.Name)
		if v != nil && s.arc && v.owned && v.ref < 0 && v.orig < 0 && !isWeak(v.typ) && v.loop == s.loop {
			if v.moved {
				s.errorf(Move, a.Pos(), "use of moved variable %s", v.name)
			}
			cur := s.load(v)
			op := s.coerce(borrowed(cur, v.typ), want, a.Pos())
			if op.v == cur {
				s.store(v, s.b.Const(0))
				v.moved = true
				return cur
			}
		}
	}
	op := s.coerce(s.exprHint(a, want), want, a.Pos())
	return s.own(op)
}

// construct calls the constructor of c. Missing trailing arguments take
// the field defaults, evaluated in the module declaring the field.
func (s *fnState) construct(c *classInfo, args []ast.Expr, pos ast.Pos) operand {
	if len(args) > len(c.fields) {
		s.errorf(Structural, pos, "%s has %d fields, got %d arguments", c.name, len(c.fields), len(args))
	}
	vals := make([]*ir.Value, len(c.fields))
	for i, f := range c.fields {
		var op operand
		switch {
		case i < len(args):
			op = s.coerce(s.exprHint(args[i], f.typ), f.typ, args[i].Pos())
		case f.def != nil:
			saved := s.module
			s.module = f.module
			op = s.coerce(s.exprHint(f.def, f.typ), f.typ, pos)
			s.module = saved
		default:
			s.errorf(Structural, pos, "missing argument for field %s of %s", f.name, c.name)
		}
		if s.g.isRC(f.typ) {
			vals[i] = s.own(op)
		} else {
			vals[i] = op.v
		}
	}
	res := s.b.Call(c.ctor.link, rtabi.Ptr, vals...)
	return s.track(res, c.ctor.result)
}

// newStruct allocates an extern struct and stores its fields.
func (s *fnState) newStruct(st *ast.ExternStruct, args []ast.Expr, pos ast.Pos) operand {
	if len(args) != len(st.Fields) {
		s.errorf(Structural, pos, "struct %s has %d fields, got %d arguments", st.Name, len(st.Fields), len(args))
	}
	size := types.FieldOffset(len(st.Fields))
	p := s.b.CallRT(rtabi.FnAlloc, s.b.Const(size))
	for i, a := range args {
		off, ft := s.structField(st, st.Fields[i].Name, pos)
		s.b.Store(p, off, s.coerce(s.exprHint(a, ft), ft, a.Pos()).v)
	}
	return borrowed(p, types.NewClass(st.Name))
}
