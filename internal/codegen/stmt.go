package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/types"
)

// stmt lowers one statement. Temporaries it creates are released when it
// completes.
func (s *fnState) stmt(st ast.Stmt) {
	s.b.Pos = st.Pos()
	m := s.mark()
	switch st := st.(type) {
	case *ast.VarDecl:
		s.varDecl(st)
	case *ast.Assign:
		s.assign(st)
	case *ast.ExprStmt:
		s.exprStmt(st)
	case *ast.Return:
		s.returnStmt(st)
	case *ast.If:
		s.ifStmt(st)
	case *ast.While:
		s.whileStmt(st)
	case *ast.For:
		s.forStmt(st)
	case *ast.Pool:
		s.poolStmt(st)
	case *ast.AwaitScope:
		s.awaitScope(st)
	case *ast.Send:
		s.send(st)
	case *ast.Select:
		s.selectStmt(st)
	case *ast.AsyncSelect:
		s.asyncSelect(st)
	case *ast.FuncDef, *ast.ClassDef, *ast.Import, *ast.ExternBlock:
		// Declared at module level.
	default:
		s.errorf(Structural, st.Pos(), "unsupported statement %T", st)
	}
	if s.dead() {
		if m < len(s.temps) {
			s.temps = s.temps[:m]
		}
		return
	}
	s.releaseTemps(m)
}

// settle makes op an owned temporary, so that it survives bindings being
// released before it is stored.
func (s *fnState) settle(op operand, t types.Type) operand {
	if op.temp || op.from != nil || !s.arc || !s.g.isRC(t) {
		return op
	}
	return s.track(s.own(op), op.t)
}

func (s *fnState) varDecl(st *ast.VarDecl) {
	if len(st.Names) > 1 {
		s.destructure(st)
		return
	}
	t := st.Type
	var op operand
	switch {
	case st.Value != nil:
		op = s.exprHint(st.Value, t)
		if t == nil {
			t = op.t
			if types.IsKind(t, types.None) {
				s.errorf(TypeError, st.Pos(), "cannot infer the type of %s from none", st.Name())
			}
		}
		fut := op.fut
		if fut == nil {
			fut = s.futureTarget(st.Value)
		}
		from := op.from
		op = s.coerce(op, t, st.Value.Pos())
		op.fut, op.from = fut, from
	case t == nil:
		s.errorf(TypeError, st.Pos(), "variable %s needs a type or a value", st.Name())
	default:
		op = s.zeroValue(t)
	}
	if !isWeak(t) {
		op = s.settle(op, t)
	}
	v := s.declare(st.Name(), t)
	s.initVar(v, op)
	v.future = op.fut
	if st.Value != nil {
		s.noteSource(v.name, st.Value)
	}
}

// destructure binds the elements of a tuple to several names.
func (s *fnState) destructure(st *ast.VarDecl) {
	if st.Value == nil {
		s.errorf(Structural, st.Pos(), "destructuring declaration needs a value")
	}
	tup := s.expr(st.Value)
	tt, ok := tup.t.(*types.Tuple)
	if !ok {
		s.errorf(TypeError, st.Pos(), "cannot destructure %s", tup.t)
	}
	if tt.Len() != len(st.Names) {
		s.errorf(TypeError, st.Pos(), "cannot destructure %s into %d names", tt, len(st.Names))
	}
	elems := make([]operand, tt.Len())
	for i := range elems {
		et := tt.At(i)
		w := s.b.CallRT("tuple_get", tup.v, s.b.Const(int64(i)))
		elems[i] = s.settle(borrowed(s.fromWord(w, et), et), et)
	}
	for i, name := range st.Names {
		v := s.declare(name, tt.At(i))
		s.initVar(v, elems[i])
		s.noteSource(name, st.Value)
	}
}

func (s *fnState) assign(st *ast.Assign) {
	switch target := st.Target.(type) {
	case *ast.Ident:
		v := s.lookup(target.Name)
		if v == nil {
			s.errorf(Structural, target.Pos(), "undefined: %s", target.Name)
		}
		op := s.exprHint(st.Value, types.Deref(v.typ))
		from := op.from
		if v.borrowOf != nil && from == nil {
			s.errorf(Lifetime, st.Pos(), "cannot assign a new value to %s, which borrows from %s", v.name, v.borrowOf.name)
		}
		val := s.coerce(op, v.typ, st.Value.Pos())
		if from != nil && !v.owned && v.orig < 0 {
			// A binding that never owned its value keeps the borrowed word.
			s.store(v, val.v)
			v.moved = false
		} else {
			s.assignVar(v, val)
		}
		if from != nil {
			v.borrowOf = from
		}
		s.noteSource(v.name, st.Value)

	case *ast.Member:
		if _, ok := s.moduleRef(target.X); ok {
			s.errorf(Structural, target.Pos(), "cannot assign to module member %s", target.Name)
		}
		obj := s.expr(target.X)
		if sd := s.structOf(obj.t); sd != nil {
			off, ft := s.structField(sd, target.Name, target.Pos())
			s.b.Store(obj.v, off, s.coerce(s.exprHint(st.Value, ft), ft, st.Value.Pos()).v)
			return
		}
		c := s.classOf(obj.t, target.Pos())
		f, ok := c.field(target.Name)
		if !ok {
			s.errorf(Structural, target.Pos(), "class %s has no field %s", c.name, target.Name)
		}
		val := s.coerce(s.exprHint(st.Value, types.Deref(f.typ)), f.typ, st.Value.Pos())
		s.storeField(obj.v, f, val)

	case *ast.Index:
		s.assignIndex(target, st.Value)

	default:
		s.errorf(Structural, st.Pos(), "cannot assign to %T", st.Target)
	}
}

// storeField replaces field f of obj with val.
func (s *fnState) storeField(obj *ir.Value, f fieldInfo, val operand) {
	switch {
	case isWeak(f.typ):
		if s.arc {
			s.b.CallRT("object_weak_retain", val.v)
			old := s.b.Load(obj, f.offset, rtabi.I64)
			s.b.Store(obj, f.offset, val.v)
			s.b.CallRT("object_weak_release", old)
			return
		}
		s.b.Store(obj, f.offset, val.v)
	case s.arc && s.g.isRC(f.typ):
		nv := s.own(val)
		old := s.b.Load(obj, f.offset, rtabi.I64)
		s.b.Store(obj, f.offset, nv)
		s.release(old, f.typ)
	default:
		s.b.Store(obj, f.offset, val.v)
	}
}

func (s *fnState) assignIndex(target *ast.Index, value ast.Expr) {
	x := s.expr(target.X)
	switch t := x.t.(type) {
	case *types.List:
		i := s.coerce(s.expr(target.Index), tInt, target.Pos())
		v := s.coerce(s.exprHint(value, t.Elem()), t.Elem(), value.Pos())
		s.b.CallRT("list_set", x.v, i.v, s.toWord(s.own(v)))
	case *types.Dict:
		k := s.coerce(s.exprHint(target.Index, t.Key()), t.Key(), target.Pos())
		kw := s.toWord(s.own(k))
		v := s.coerce(s.exprHint(value, t.Value()), t.Value(), value.Pos())
		s.b.CallRT("dict_set", x.v, kw, s.toWord(s.own(v)))
	case *types.Tuple:
		et := s.indexType(target)
		i := s.coerce(s.expr(target.Index), tInt, target.Pos())
		v := s.coerce(s.exprHint(value, et), et, value.Pos())
		s.b.CallRT(rtabi.FnTupleSet, x.v, i.v, s.toWord(s.own(v)), s.b.Const(int64(s.g.tagOf(et))))
	default:
		s.errorf(TypeError, target.Pos(), "cannot assign to an element of %s", x.t)
	}
}

func (s *fnState) exprStmt(st *ast.ExprStmt) {
	x := s.expr(st.X)
	if types.IsKind(x.t, types.Future) {
		switch st.X.(type) {
		case *ast.Spawn, *ast.Call:
			// Nobody can await the task; the handle is dropped.
			s.b.CallRT(rtabi.FnCoroutineFree, x.v)
		}
	}
}

func (s *fnState) returnStmt(st *ast.Return) {
	result := s.fn.result
	if result == nil || types.IsKind(result, types.None) {
		if st.Value != nil {
			if x := s.expr(st.Value); !types.IsKind(x.t, types.None) {
				s.errorf(TypeError, st.Pos(), "%s returns no value", s.fn.name)
			}
		}
		s.ret(s.zero(result), nil)
		return
	}
	if st.Value == nil {
		s.errorf(TypeError, st.Pos(), "%s must return a %s", s.fn.name, result)
	}
	if s.fn.hasLifetime() {
		s.checkReturn(st.Value)
		s.ret(s.coerce(s.exprHint(st.Value, result), result, st.Value.Pos()).v, nil)
		return
	}
	if id, ok := st.Value.(*ast.Ident); ok {
		v := s.lookup(id.Name)
		if v != nil && v.owned && !isWeak(v.typ) && v.ref < 0 && v.orig < 0 && !v.moved {
			cur := s.load(v)
			if op := s.coerce(borrowed(cur, v.typ), result, st.Value.Pos()); op.v == cur {
				s.ret(cur, v)
				return
			}
		}
	}
	op := s.coerce(s.exprHint(st.Value, result), result, st.Value.Pos())
	s.ret(s.own(op), nil)
}

// ----------------------------------------------------------------------------
// Control flow

// movedSet returns the bindings currently marked moved.
func (s *fnState) movedSet() map[*variable]bool {
	set := make(map[*variable]bool)
	for _, sc := range s.scopes {
		for _, v := range sc.vars {
			if v.moved {
				set[v] = true
			}
		}
	}
	return set
}

// restoreMoved resets the moved marks to set.
func (s *fnState) restoreMoved(set map[*variable]bool) {
	for _, sc := range s.scopes {
		for _, v := range sc.vars {
			v.moved = set[v]
		}
	}
}

// cond evaluates a branch condition and releases its temporaries.
func (s *fnState) cond(e ast.Expr) *ir.Value {
	m := s.mark()
	c := s.truth(s.expr(e))
	s.releaseTemps(m)
	return c
}

func (s *fnState) ifStmt(st *ast.If) {
	end := s.b.NewBlock()
	before := s.movedSet()
	after := make(map[*variable]bool)
	arm := func(body []ast.Stmt) {
		s.restoreMoved(before)
		s.block(body, st.Pos())
		if !s.dead() {
			for v := range s.movedSet() {
				after[v] = true
			}
		}
		s.branch(end)
	}

	c := s.cond(st.Cond)
	then, els := s.b.NewBlock(), s.b.NewBlock()
	s.b.If(c, then, els)
	s.b.SetBlock(then)
	arm(st.Then)

	s.b.SetBlock(els)
	for _, elif := range st.Elifs {
		s.restoreMoved(before)
		c := s.cond(elif.Cond)
		then, next := s.b.NewBlock(), s.b.NewBlock()
		s.b.If(c, then, next)
		s.b.SetBlock(then)
		arm(elif.Body)
		s.b.SetBlock(next)
	}
	arm(st.Else)

	s.restoreMoved(before)
	for v := range after {
		v.moved = true
	}
	s.enter(end)
}

func (s *fnState) whileStmt(st *ast.While) {
	head, body, exit := s.b.NewBlock(), s.b.NewBlock(), s.b.NewBlock()
	s.b.Jump(head)
	s.b.SetBlock(head)
	s.b.If(s.cond(st.Cond), body, exit)
	s.b.SetBlock(body)
	s.loop++
	s.block(st.Body, st.Pos())
	s.loop--
	s.branch(head)
	s.b.SetBlock(exit)
}

func (s *fnState) forStmt(st *ast.For) {
	if call, ok := st.Iter.(*ast.Call); ok {
		if id, ok := call.Fun.(*ast.Ident); ok && id.Name == "range" && s.lookup("range") == nil && s.g.lookupFunc(s.module, "range") == nil {
			s.forRange(st, call)
			return
		}
	}
	it := s.expr(st.Iter)
	switch t := it.t.(type) {
	case *types.List:
		if len(st.Vars) != 1 {
			s.errorf(Structural, st.Pos(), "for over a list binds one variable")
		}
		s.forList(st, it, t.Elem(), nil)
	case *types.Dict:
		if len(st.Vars) > 2 {
			s.errorf(Structural, st.Pos(), "for over a dict binds a key and optionally a value")
		}
		keys := s.track(s.b.CallRT("dict_iter", it.v), types.NewList(t.Key()))
		s.forList(st, keys, t.Key(), &it)
	default:
		s.errorf(TypeError, st.Iter.Pos(), "cannot iterate over %s", it.t)
	}
}

// forRange lowers for i in range([start,] stop[, step]).
func (s *fnState) forRange(st *ast.For, call *ast.Call) {
	if len(st.Vars) != 1 {
		s.errorf(Structural, st.Pos(), "for over a range binds one variable")
	}
	args := call.Args
	if len(args) < 1 || len(args) > 3 {
		s.errorf(Structural, call.Pos(), "range takes 1 to 3 arguments, got %d", len(args))
	}
	if len(args) == 3 {
		if lit, ok := args[2].(*ast.IntLit); ok && lit.Value == 0 {
			s.errorf(Structural, args[2].Pos(), "range step must not be zero")
		}
	}
	intArg := func(i int) *ir.Value { return s.coerce(s.expr(args[i]), tInt, args[i].Pos()).v }
	start, stop, step := s.b.Const(0), (*ir.Value)(nil), s.b.Const(1)
	if len(args) == 1 {
		stop = intArg(0)
	} else {
		start, stop = intArg(0), intArg(1)
		if len(args) == 3 {
			step = intArg(2)
		}
	}
	stopSlot, stepSlot := s.newSlot(), s.newSlot()
	s.storeSlot(stopSlot, stop)
	s.storeSlot(stepSlot, step)

	s.pushScope()
	v := s.declare(st.Vars[0], tInt)
	s.store(v, start)

	head, body, exit := s.b.NewBlock(), s.b.NewBlock(), s.b.NewBlock()
	s.b.Jump(head)
	s.b.SetBlock(head)
	cur, lim, inc := s.load(v), s.loadSlot(stopSlot, tInt), s.loadSlot(stepSlot, tInt)
	up := s.b.Cmp(ir.CondGT, inc, s.b.Const(0))
	down := s.b.Bin(ir.OpXor, up, s.b.Const(1))
	more := s.b.Bin(ir.OpOr,
		s.b.Bin(ir.OpAnd, up, s.b.Cmp(ir.CondLT, cur, lim)),
		s.b.Bin(ir.OpAnd, down, s.b.Cmp(ir.CondGT, cur, lim)))
	s.b.If(more, body, exit)

	s.b.SetBlock(body)
	s.loop++
	s.block(st.Body, st.Pos())
	s.loop--
	if !s.dead() {
		s.store(v, s.b.Bin(ir.OpAdd, s.load(v), s.loadSlot(stepSlot, tInt)))
		s.b.Jump(head)
	}
	s.b.SetBlock(exit)
	s.popScope(st.Pos())
}

// forList iterates over the elements of list. When dict is set, list holds
// its keys and a second loop variable binds the values.
func (s *fnState) forList(st *ast.For, list operand, elem types.Type, dict *operand) {
	held := func(op operand) int {
		slot := s.newSlot()
		s.storeSlot(slot, s.own(op))
		return slot
	}
	lslot := held(list)
	dslot := -1
	var dt *types.Dict
	if dict != nil {
		dt = dict.t.(*types.Dict)
		dslot = held(*dict)
	}
	n := s.b.CallRT("list_len", s.loadSlot(lslot, list.t))
	nslot, islot := s.newSlot(), s.newSlot()
	s.storeSlot(nslot, n)
	s.storeSlot(islot, s.b.Const(0))

	head, body, exit := s.b.NewBlock(), s.b.NewBlock(), s.b.NewBlock()
	s.b.Jump(head)
	s.b.SetBlock(head)
	s.b.If(s.b.Cmp(ir.CondLT, s.loadSlot(islot, tInt), s.loadSlot(nslot, tInt)), body, exit)

	// The iterated clones are released on loop exit and on a return
	// from the body.
	leave := func() {
		s.release(s.loadSlot(lslot, list.t), list.t)
		if dict != nil {
			s.release(s.loadSlot(dslot, dict.t), dict.t)
		}
	}
	s.unwind = append(s.unwind, leave)

	s.b.SetBlock(body)
	s.loop++
	s.pushScope()
	w := s.b.CallRT("list_get", s.loadSlot(lslot, list.t), s.loadSlot(islot, tInt))
	k := s.declare(st.Vars[0], elem)
	s.initVar(k, borrowed(s.fromWord(w, elem), elem))
	if dict != nil && len(st.Vars) == 2 {
		vt := dt.Value()
		val := s.b.CallRT("dict_get", s.loadSlot(dslot, dict.t), w)
		v := s.declare(st.Vars[1], vt)
		s.initVar(v, borrowed(s.fromWord(val, vt), vt))
	}
	s.stmts(st.Body)
	s.popScope(st.Pos())
	s.loop--
	if !s.dead() {
		s.storeSlot(islot, s.b.Bin(ir.OpAdd, s.loadSlot(islot, tInt), s.b.Const(1)))
		s.b.Jump(head)
	}

	s.unwind = s.unwind[:len(s.unwind)-1]

	s.b.SetBlock(exit)
	leave()
}

func (s *fnState) poolStmt(st *ast.Pool) {
	m := s.mark()
	n := s.coerce(s.expr(st.Size), tInt, st.Size.Pos())
	p := s.b.CallRT("pool_create", n.v)
	s.releaseTemps(m)
	slot := s.newSlot()
	s.storeSlot(slot, p)
	s.b.CallRT("pool_enter", p)
	leave := func() {
		s.b.CallRT("pool_exit")
		s.b.CallRT("pool_destroy", s.loadSlot(slot, tPtr))
	}
	s.unwind = append(s.unwind, leave)
	s.block(st.Body, st.Pos())
	s.unwind = s.unwind[:len(s.unwind)-1]
	if !s.dead() {
		leave()
	}
}

func (s *fnState) awaitScope(st *ast.AwaitScope) {
	s.b.CallRT(rtabi.FnScopeEnter)
	leave := func() { s.b.CallRT(rtabi.FnScopeExit) }
	s.unwind = append(s.unwind, leave)
	s.block(st.Body, st.Pos())
	s.unwind = s.unwind[:len(s.unwind)-1]
	if !s.dead() {
		leave()
	}
}

func (s *fnState) send(st *ast.Send) {
	ch := s.expr(st.Chan)
	ct, ok := ch.t.(*types.Channel)
	if !ok {
		s.errorf(TypeError, st.Chan.Pos(), "cannot send on %s", ch.t)
	}
	v := s.coerce(s.exprHint(st.Value, ct.Elem()), ct.Elem(), st.Value.Pos())
	s.b.CallRT("channel_send", ch.v, s.toWord(s.own(v)))
}
