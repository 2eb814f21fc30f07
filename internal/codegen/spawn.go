package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/types"
)

// needsTrampoline reports whether tasks running fi need an adapter: the
// runtime starts a task with at most one argument, the environment, and
// expects a result word.
func needsTrampoline(fi *funcInfo) bool {
	return len(fi.params) > 0 || types.ValueClass(fi.result) == rtabi.Void
}

// synthesizeTrampolines creates the adapters of every async function and
// every spawn target found in items. It returns how many exist.
func (g *generator) synthesizeTrampolines(items []item) int {
	for _, fi := range g.funcList {
		if fi.async && needsTrampoline(fi) {
			g.trampoline(fi)
		}
	}
	for _, it := range items {
		module := it.module
		ast.Walk(it.stmt, func(n ast.Node) bool {
			if sp, ok := n.(*ast.Spawn); ok {
				if fi := g.lookupFunc(module, sp.Func); fi != nil && needsTrampoline(fi) {
					g.trampoline(fi)
				}
			}
			return true
		})
	}
	return len(g.trampolines)
}

// trampoline returns the adapter that unpacks an environment block into
// the parameters of fi, calls it and releases the borrowed arguments.
// Environment words are owned by the task.
func (g *generator) trampoline(fi *funcInfo) string {
	if name, ok := g.trampolines[fi.link]; ok {
		return name
	}
	name := "__tramp_" + fi.link
	g.trampolines[fi.link] = name

	result := fi.resultClass()
	if result == rtabi.Void {
		result = rtabi.I64
	}
	f := ir.NewFunc(name, []rtabi.Class{rtabi.Ptr}, result)
	f.ParamNames = []string{"env"}
	f.Private = true
	if err := g.mod.AddFunc(f); err != nil {
		g.errorf(Structural, ast.Pos{}, "%v", err)
	}

	b := ir.NewBuilder(f)
	env := b.Arg(0)
	word := func(i int) *ir.Value { return b.Load(env, int64(i)*rtabi.WordSize, rtabi.I64) }
	args := make([]*ir.Value, len(fi.params))
	for i, p := range fi.params {
		w := word(i)
		if paramClass(p) == rtabi.F64 {
			w = b.Un(ir.OpBitsF, w)
		}
		args[i] = w
	}
	res := b.Call(fi.link, fi.resultClass(), args...)
	for i, p := range fi.params {
		if p.Mode != ast.Owned && g.isRC(p.Type) {
			b.CallRT(types.RCPrefix(p.Type)+"_release", word(i))
		}
	}
	if fi.resultClass() == rtabi.Void {
		res = b.Const(0)
	}
	b.Ret(res)
	b.Finish()
	logger.LogCodeGen("trampoline", name, f.NumValues())
	return name
}

// spawn starts fi as a task and returns its future. Arguments are copied
// into an environment block the task owns. The task goes to the active
// worker pool when there is one.
func (s *fnState) spawn(fi *funcInfo, self *operand, args []ast.Expr, pos ast.Pos) operand {
	if fi.hasLifetime() {
		s.errorf(Lifetime, pos, "cannot spawn %s: its result borrows from its arguments", fi.name)
	}
	off := 0
	if self != nil {
		off = 1
	}
	if len(args) != len(fi.params)-off {
		s.errorf(Structural, pos, "%s takes %d arguments, got %d", fi.name, len(fi.params)-off, len(args))
	}

	var words []*ir.Value
	if self != nil {
		words = append(words, s.own(*self))
	}
	for i, a := range args {
		p := fi.params[i+off]
		if p.Mode == ast.Ref {
			s.errorf(Structural, a.Pos(), "cannot spawn %s: parameter %s is passed by reference", fi.name, p.Name)
		}
		op := s.coerce(s.exprHint(a, p.Type), p.Type, a.Pos())
		w := op.v
		if s.g.isRC(p.Type) {
			w = s.own(op)
		}
		words = append(words, s.toWord(w))
	}

	target := fi.link
	if needsTrampoline(fi) {
		target = s.g.trampoline(fi)
	}
	var env *ir.Value
	if len(words) > 0 {
		env = s.b.CallRT(rtabi.FnAlloc, s.b.Const(int64(len(words))*rtabi.WordSize))
		for i, w := range words {
			s.b.Store(env, int64(i)*rtabi.WordSize, w)
		}
	}

	sfx := types.SpawnSuffix(fi.result)
	fn := s.b.FuncAddr(target)
	slot := s.newSlot()
	start := func(prefix string) {
		name := prefix + "_spawn_" + sfx
		callArgs := []*ir.Value{fn}
		if env != nil {
			name += "_with_env"
			callArgs = append(callArgs, env)
		}
		s.storeSlot(slot, s.b.CallRT(name, callArgs...))
	}
	pooled, plain, join := s.b.NewBlock(), s.b.NewBlock(), s.b.NewBlock()
	s.b.If(s.b.CallRT(rtabi.FnPoolIsActive), pooled, plain)
	s.b.SetBlock(pooled)
	start("pool")
	s.b.Jump(join)
	s.b.SetBlock(plain)
	start("coroutine")
	s.b.Jump(join)
	s.b.SetBlock(join)

	h := s.loadSlot(slot, tFuture)
	s.b.CallRT(rtabi.FnScopeRegister, h)
	op := borrowed(h, tFuture)
	op.fut = fi
	return op
}

// awaitHandle waits for h and frees it. A binding holding the handle is
// cleared so that a second await yields zero instead of a freed handle.
func (s *fnState) awaitHandle(x ast.Expr, h *ir.Value, rt types.Type) operand {
	res := s.b.CallRT("coroutine_await_"+types.SpawnSuffix(rt), h)
	s.b.CallRT(rtabi.FnCoroutineFree, h)
	if id, ok := x.(*ast.Ident); ok {
		if v := s.lookup(id.Name); v != nil {
			s.store(v, s.b.Const(0))
		}
	}
	return s.track(res, rt)
}

func (s *fnState) await(e *ast.Await) operand {
	rt := s.awaitType(e.X)
	h := s.future(e.X, e.Pos())
	return s.awaitHandle(e.X, h.v, rt)
}

// awaitAll starts or collects every future first, then waits for them in
// order and packs the results into a tuple.
func (s *fnState) awaitAll(e *ast.AwaitAll) operand {
	hs := make([]*ir.Value, len(e.Exprs))
	elems := make([]types.Type, len(e.Exprs))
	for i, x := range e.Exprs {
		elems[i] = s.awaitType(x)
		hs[i] = s.future(x, x.Pos()).v
	}
	words := make([]*ir.Value, len(e.Exprs))
	for i, x := range e.Exprs {
		r := s.awaitHandle(x, hs[i], elems[i])
		words[i] = s.toWord(s.own(r))
	}
	t := types.NewTuple(elems...)
	tup := s.track(s.b.CallRT(rtabi.FnTupleNew, s.b.Const(int64(len(words)))), t)
	for i, w := range words {
		s.b.CallRT(rtabi.FnTupleSet, tup.v, s.b.Const(int64(i)), w, s.b.Const(int64(s.g.tagOf(elems[i]))))
	}
	return tup
}

// asyncSelect runs the body of the first future to finish. The others
// are cancelled; every handle is freed before the winning body runs.
func (s *fnState) asyncSelect(st *ast.AsyncSelect) {
	n := len(st.Branches)
	if n == 0 {
		return
	}
	hs := make([]*ir.Value, n)
	rts := make([]types.Type, n)
	for i, br := range st.Branches {
		rts[i] = s.awaitType(br.Expr)
		hs[i] = s.future(br.Expr, br.Expr.Pos()).v
	}
	size := s.b.Const(int64(n) * rtabi.WordSize)
	arr := s.b.CallRT(rtabi.FnAlloc, size)
	for i, h := range hs {
		s.b.Store(arr, int64(i)*rtabi.WordSize, h)
	}
	idx := s.b.CallRT(rtabi.FnSelectFirst, arr, s.b.Const(int64(n)))

	cleanup := func(winner int) {
		for i, h := range hs {
			if i != winner {
				s.b.CallRT("coroutine_cancel", h)
			}
			s.b.CallRT(rtabi.FnCoroutineFree, h)
		}
		s.b.CallRT(rtabi.FnFree, arr, size)
	}

	end := s.b.NewBlock()
	for i, br := range st.Branches {
		body, next := s.b.NewBlock(), s.b.NewBlock()
		s.b.If(s.b.Cmp(ir.CondEQ, idx, s.b.Const(int64(i))), body, next)
		s.b.SetBlock(body)
		s.pushScope()
		if br.Var != "" {
			m := s.mark()
			r := s.track(s.b.CallRT("coroutine_await_"+types.SpawnSuffix(rts[i]), hs[i]), rts[i])
			v := s.declare(br.Var, rts[i])
			s.initVar(v, r)
			s.releaseTemps(m)
		}
		cleanup(i)
		s.stmts(br.Body)
		s.popScope(st.Pos())
		s.branch(end)
		s.b.SetBlock(next)
	}
	cleanup(-1)
	s.b.Jump(end)
	s.enter(end)
}
