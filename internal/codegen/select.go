package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/types"
)

// selectStmt waits on the receive branches of a channel select. A default
// branch makes the wait non-blocking; a timeout branch bounds it.
func (s *fnState) selectStmt(st *ast.Select) {
	var (
		recvs    []ast.SelectBranch
		elems    []types.Type
		chans    []*ir.Value
		timeout  *ast.SelectBranch
		fallback *ast.SelectBranch
	)
	for i := range st.Branches {
		br := &st.Branches[i]
		switch br.Kind {
		case ast.SelectRecv:
			ch := s.expr(br.Chan)
			ct, ok := ch.t.(*types.Channel)
			if !ok {
				s.errorf(TypeError, br.Chan.Pos(), "cannot receive from %s", ch.t)
			}
			recvs = append(recvs, *br)
			elems = append(elems, ct.Elem())
			chans = append(chans, ch.v)
		case ast.SelectTimeout:
			if timeout != nil {
				s.errorf(Structural, st.Pos(), "select has more than one timeout branch")
			}
			timeout = br
		case ast.SelectDefault:
			if fallback != nil {
				s.errorf(Structural, st.Pos(), "select has more than one default branch")
			}
			fallback = br
		}
	}
	if len(recvs) == 0 {
		s.selectNoChannels(st, timeout, fallback)
		return
	}

	// A default branch wins over a timeout.
	wait := s.b.Const(rtabi.SelectForever)
	switch {
	case fallback != nil:
		wait = s.b.Const(rtabi.SelectNoWait)
	case timeout != nil:
		wait = s.coerce(s.expr(timeout.Duration), tInt, timeout.Duration.Pos()).v
	}

	n := int64(len(recvs))
	size := s.b.Const(n * rtabi.WordSize)
	arr := s.b.CallRT(rtabi.FnAlloc, size)
	for i, ch := range chans {
		s.b.Store(arr, int64(i)*rtabi.WordSize, ch)
	}
	out := s.newSlot()
	s.storeSlot(out, s.b.Const(0))
	idx := s.b.CallRT(rtabi.FnChannelSelect, arr, s.b.Const(n), wait, s.b.Slot(out))
	s.b.CallRT(rtabi.FnFree, arr, size)

	end := s.b.NewBlock()
	arm := func(code int64, bind func(), body []ast.Stmt) {
		blk, next := s.b.NewBlock(), s.b.NewBlock()
		s.b.If(s.b.Cmp(ir.CondEQ, idx, s.b.Const(code)), blk, next)
		s.b.SetBlock(blk)
		s.pushScope()
		if bind != nil {
			bind()
		}
		s.stmts(body)
		s.popScope(st.Pos())
		s.branch(end)
		s.b.SetBlock(next)
	}
	for i, br := range recvs {
		et, name := elems[i], br.Var
		bind := func() {
			w := s.loadSlot(out, tInt)
			if name == "" {
				s.release(s.fromWord(w, et), et)
				return
			}
			m := s.mark()
			v := s.declare(name, et)
			s.initVar(v, s.track(s.fromWord(w, et), et))
			s.releaseTemps(m)
		}
		arm(int64(i), bind, br.Body)
	}
	if timeout != nil {
		arm(rtabi.SelectTimeout, nil, timeout.Body)
	}
	if fallback != nil {
		arm(rtabi.SelectDefault, nil, fallback.Body)
	}
	s.b.Jump(end)
	s.enter(end)
}

// selectNoChannels lowers a select without receive branches: the default
// body runs at once, otherwise the timeout body runs after its duration.
func (s *fnState) selectNoChannels(st *ast.Select, timeout, fallback *ast.SelectBranch) {
	switch {
	case fallback != nil:
		s.block(fallback.Body, st.Pos())
	case timeout != nil:
		ms := s.coerce(s.expr(timeout.Duration), tInt, timeout.Duration.Pos())
		s.b.CallRT("thread_sleep", ms.v)
		s.block(timeout.Body, st.Pos())
	}
}
