package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/types"
)

// intrinsic lowers a call to a builtin function.
func (s *fnState) intrinsic(name string, e *ast.Call, hint types.Type) operand {
	args := e.Args
	arity := func(min, max int) {
		if len(args) < min || len(args) > max {
			s.errorf(Structural, e.Pos(), "%s: wrong number of arguments (%d)", name, len(args))
		}
	}
	switch name {
	case "print":
		s.print(args)
		return borrowed(s.b.Const(0), tNone)

	case "str":
		arity(1, 1)
		return s.toStr(s.expr(args[0]))

	case "int":
		arity(1, 1)
		return s.toInt(s.expr(args[0]), e.Pos())

	case "float":
		arity(1, 1)
		x := s.expr(args[0])
		switch {
		case types.IsFloat(x.t):
			return x
		case isIntLike(x.t):
			return borrowed(s.b.Un(ir.OpIToF, x.v), tFloat)
		case types.IsString(x.t):
			return borrowed(s.b.CallRT("string_to_float", x.v), tFloat)
		case types.IsBigInt(x.t), types.IsDecimal(x.t):
			return borrowed(s.b.CallRT(types.RCPrefix(x.t)+"_to_f64", x.v), tFloat)
		case types.IsDynamic(x.t):
			return borrowed(s.b.CallRT("dynamic_to_float", x.v), tFloat)
		}
		s.errorf(TypeError, e.Pos(), "cannot convert %s to float", x.t)

	case "bigint", "decimal":
		arity(1, 1)
		t := tBigInt
		if name == "decimal" {
			t = tDecimal
		}
		x := s.expr(args[0])
		if types.IsString(x.t) {
			return s.track(s.b.CallRT(name+"_from_str", x.v), t)
		}
		if types.IsDynamic(x.t) {
			x = s.unbox(x, tInt, e.Pos())
		}
		return s.toExact(x, t, e.Pos())

	case "input":
		arity(0, 1)
		if len(args) == 0 {
			return s.track(s.b.CallRT("input"), tStr)
		}
		p := s.coerce(s.expr(args[0]), tStr, e.Pos())
		return s.track(s.b.CallRT("input_prompt", p.v), tStr)

	case "len":
		arity(1, 1)
		return s.length(s.expr(args[0]), e.Pos())

	case "sleep":
		arity(1, 1)
		ms := s.coerce(s.expr(args[0]), tInt, e.Pos())
		s.b.CallRT("thread_sleep", ms.v)
		return borrowed(s.b.Const(0), tNone)

	case "cancel":
		arity(1, 1)
		h := s.future(args[0], e.Pos())
		s.b.CallRT("coroutine_cancel", h.v)
		return borrowed(s.b.Const(0), tNone)

	case "is_cancelled":
		arity(0, 1)
		if len(args) == 0 {
			return borrowed(s.b.CallRT("thread_current_cancelled"), tBool)
		}
		h := s.future(args[0], e.Pos())
		return borrowed(s.b.CallRT("thread_is_cancelled", h.v), tBool)

	case "join":
		arity(1, 1)
		rt := s.awaitType(args[0])
		h := s.future(args[0], e.Pos())
		res := s.b.CallRT("thread_join_"+types.SpawnSuffix(rt), h.v)
		s.b.CallRT("thread_handle_free", h.v)
		return s.track(s.fromWord(res, rt), rt)

	case "channel":
		arity(0, 1)
		t, _ := s.intrinsicType(name, e, hint)
		ch := t.(*types.Channel)
		tag := s.b.Const(int64(s.g.tagOf(ch.Elem())))
		if len(args) == 0 {
			return borrowed(s.b.CallRT("channel_create", tag), ch)
		}
		n := s.coerce(s.expr(args[0]), tInt, e.Pos())
		return borrowed(s.b.CallRT("channel_create_buffered", tag, n.v), ch)

	case "rc_strong_count", "rc_weak_count":
		arity(1, 1)
		x := s.rawRef(args[0])
		if _, ok := x.t.(*types.Class); !ok {
			s.errorf(TypeError, e.Pos(), "%s expects an object, got %s", name, x.t)
		}
		return borrowed(s.b.CallRT(name, x.v), tInt)

	default:
		s.errorf(Structural, e.Pos(), "undefined function %s", name)
	}
	return operand{}
}

// print writes its arguments separated by spaces and a newline.
func (s *fnState) print(args []ast.Expr) {
	if len(args) == 0 {
		s.b.CallRT("print_string", s.track(s.stringLit(""), tStr).v)
		return
	}
	if len(args) > 1 {
		line := s.toStr(s.expr(args[0]))
		sep := s.track(s.stringLit(" "), tStr)
		for _, a := range args[1:] {
			line = s.track(s.b.CallRT("string_concat", line.v, sep.v), tStr)
			line = s.track(s.b.CallRT("string_concat", line.v, s.toStr(s.expr(a)).v), tStr)
		}
		s.b.CallRT("print_string", line.v)
		return
	}
	x := s.expr(args[0])
	switch t := x.t.(type) {
	case *types.Basic:
		switch t.Kind() {
		case types.Float:
			s.b.CallRT("print_float", x.v)
		case types.Bool:
			s.b.CallRT("print_bool", x.v)
		case types.Str:
			s.b.CallRT("print_string", x.v)
		case types.BigInt:
			s.b.CallRT("print_bigint", x.v)
		case types.Decimal:
			s.b.CallRT("print_decimal", x.v)
		case types.Dynamic:
			s.b.CallRT("print_dynamic", x.v)
		case types.None:
			s.b.CallRT("print_string", s.track(s.stringLit("none"), tStr).v)
		default:
			s.b.CallRT("print_int", x.v)
		}
	case *types.List:
		s.b.CallRT("print_list", x.v)
	case *types.Dict:
		s.b.CallRT("print_dict", x.v)
	case *types.Tuple:
		s.b.CallRT("print_tuple", x.v)
	case *types.Class:
		s.b.CallRT("print_string", s.toStr(x).v)
	default:
		s.b.CallRT("print_int", x.v)
	}
}

func (s *fnState) toInt(x operand, pos ast.Pos) operand {
	switch {
	case types.IsKind(x.t, types.Int):
		return x
	case isIntLike(x.t):
		return borrowed(x.v, tInt)
	case types.IsFloat(x.t):
		return borrowed(s.b.Un(ir.OpFToI, x.v), tInt)
	case types.IsString(x.t):
		return borrowed(s.b.CallRT("string_to_int", x.v), tInt)
	case types.IsBigInt(x.t), types.IsDecimal(x.t):
		return borrowed(s.b.CallRT(types.RCPrefix(x.t)+"_to_i64", x.v), tInt)
	case types.IsDynamic(x.t):
		return borrowed(s.b.CallRT("dynamic_to_int", x.v), tInt)
	}
	s.errorf(TypeError, pos, "cannot convert %s to int", x.t)
	return operand{}
}

// toExact converts x to bigint or decimal, keeping ownership tracking.
func (s *fnState) toExact(x operand, t types.Type, pos ast.Pos) operand {
	v := s.exact(x, t, pos)
	if v == x.v {
		return x
	}
	return operand{v: v, t: t, temp: s.arc}
}

func (s *fnState) length(x operand, pos ast.Pos) operand {
	var fn string
	switch {
	case types.IsString(x.t):
		fn = "string_len"
	default:
		switch x.t.(type) {
		case *types.List:
			fn = "list_len"
		case *types.Dict:
			fn = "dict_len"
		case *types.Tuple:
			fn = "tuple_len"
		default:
			s.errorf(TypeError, pos, "len of %s", x.t)
		}
	}
	return borrowed(s.b.CallRT(fn, x.v), tInt)
}

// future lowers e, which must produce a task handle.
func (s *fnState) future(e ast.Expr, pos ast.Pos) operand {
	h := s.expr(e)
	if !types.IsKind(h.t, types.Future) {
		s.errorf(TypeError, pos, "expected a future, got %s", h.t)
	}
	return h
}

// method lowers a builtin method call on a list, dict, tuple, channel,
// string, future, bigint or decimal receiver.
func (s *fnState) method(fun *ast.Member, args []ast.Expr) operand {
	recv := s.expr(fun.X)
	name, pos := fun.Name, fun.Pos()
	rt, ok := methodType(recv.t, name)
	if !ok {
		s.errorf(Structural, pos, "%s has no method %s", recv.t, name)
	}
	want := func(n int) {
		if len(args) != n {
			s.errorf(Structural, pos, "%s.%s takes %d arguments, got %d", recv.t, name, n, len(args))
		}
	}
	arg := func(i int, t types.Type) operand {
		return s.coerce(s.exprHint(args[i], t), t, args[i].Pos())
	}
	// owned converts argument i to a container word the callee consumes.
	owned := func(i int, t types.Type) *ir.Value {
		return s.toWord(s.own(arg(i, t)))
	}
	none := borrowed(s.b.Const(0), tNone)
	rtcall := func(fn string, args ...*ir.Value) *ir.Value {
		return s.b.CallRT(fn, append([]*ir.Value{recv.v}, args...)...)
	}

	switch t := recv.t.(type) {
	case *types.List:
		elem := t.Elem()
		switch name {
		case "push":
			want(1)
			rtcall("list_push", owned(0, elem))
			return none
		case "pop":
			want(0)
			return s.track(s.fromWord(rtcall("list_pop"), elem), elem)
		case "get":
			want(1)
			return borrowed(s.fromWord(rtcall("list_get", arg(0, tInt).v), elem), elem)
		case "set":
			want(2)
			i := arg(0, tInt)
			rtcall("list_set", i.v, owned(1, elem))
			return none
		case "insert":
			want(2)
			i := arg(0, tInt)
			rtcall("list_insert", i.v, owned(1, elem))
			return none
		case "remove":
			want(1)
			return s.track(s.fromWord(rtcall("list_remove", arg(0, tInt).v), elem), elem)
		case "first", "last":
			want(0)
			return borrowed(s.fromWord(rtcall("list_"+name), elem), elem)
		case "clear", "reverse", "sort":
			want(0)
			rtcall("list_" + name)
			return none
		case "extend":
			want(1)
			rtcall("list_extend", arg(0, t).v)
			return none
		case "len", "is_empty":
			want(0)
			return borrowed(rtcall("list_"+name), rt)
		case "contains", "index_of", "count":
			want(1)
			return borrowed(rtcall("list_"+name, s.toWord(arg(0, elem).v)), rt)
		case "sum":
			want(0)
			if !types.IsKind(elem, types.Int) {
				s.errorf(TypeError, pos, "sum of %s", t)
			}
			return borrowed(rtcall("list_sum_int"), tInt)
		case "slice":
			want(2)
			a, b := arg(0, tInt), arg(1, tInt)
			return s.track(rtcall("list_slice", a.v, b.v), t)
		case "copy", "clone":
			want(0)
			return s.track(rtcall("list_copy"), t)
		case "join":
			want(1)
			return s.track(rtcall("list_join", arg(0, tStr).v), tStr)
		}

	case *types.Dict:
		kt, vt := t.Key(), t.Value()
		switch name {
		case "get":
			want(1)
			k := arg(0, kt)
			return borrowed(s.fromWord(rtcall("dict_get", s.toWord(k.v)), vt), vt)
		case "get_or":
			want(2)
			k, d := arg(0, kt), arg(1, vt)
			return borrowed(s.fromWord(rtcall("dict_get_or", s.toWord(k.v), s.toWord(d.v)), vt), vt)
		case "set":
			want(2)
			k := owned(0, kt)
			rtcall("dict_set", k, owned(1, vt))
			return none
		case "remove":
			want(1)
			k := arg(0, kt)
			return s.track(s.fromWord(rtcall("dict_remove", s.toWord(k.v)), vt), vt)
		case "contains":
			want(1)
			return borrowed(rtcall("dict_contains", s.toWord(arg(0, kt).v)), tBool)
		case "len", "is_empty":
			want(0)
			return borrowed(rtcall("dict_"+name), rt)
		case "clear":
			want(0)
			rtcall("dict_clear")
			return none
		case "keys", "values", "items":
			want(0)
			return s.track(rtcall("dict_"+name), rt)
		case "copy", "clone":
			want(0)
			return s.track(rtcall("dict_copy"), t)
		}

	case *types.Tuple:
		want(0)
		return borrowed(rtcall("tuple_len"), tInt)

	case *types.Channel:
		switch name {
		case "recv":
			want(0)
			return s.recv(recv, pos)
		case "send":
			want(1)
			return borrowed(rtcall("channel_send", owned(0, t.Elem())), tBool)
		case "close", "is_closed":
			want(0)
			return borrowed(rtcall("channel_"+name), rt)
		}

	case *types.Basic:
		switch t.Kind() {
		case types.Str:
			switch name {
			case "len", "upper", "lower", "trim":
				want(0)
				return s.track(rtcall("string_"+name), rt)
			case "find", "contains", "starts_with", "ends_with", "split":
				want(1)
				return s.track(rtcall("string_"+name, arg(0, tStr).v), rt)
			case "replace":
				want(2)
				a, b := arg(0, tStr), arg(1, tStr)
				return s.track(rtcall("string_replace", a.v, b.v), tStr)
			case "slice":
				want(2)
				a, b := arg(0, tInt), arg(1, tInt)
				return s.track(rtcall("string_slice", a.v, b.v), tStr)
			case "repeat", "char_at":
				want(1)
				return s.track(rtcall("string_"+name, arg(0, tInt).v), tStr)
			}
		case types.Future:
			want(0)
			switch name {
			case "cancel":
				rtcall("coroutine_cancel")
				return none
			case "is_cancelled":
				return borrowed(rtcall("thread_is_cancelled"), tBool)
			case "is_done":
				return borrowed(rtcall("coroutine_is_done"), tBool)
			}
		case types.BigInt:
			switch name {
			case "abs":
				want(0)
				return s.track(rtcall("bigint_abs"), tBigInt)
			case "pow":
				want(1)
				return s.track(rtcall("bigint_pow", arg(0, tInt).v), tBigInt)
			}
		case types.Decimal:
			switch name {
			case "round":
				if len(args) > 1 {
					want(1)
				}
				places := s.b.Const(0)
				if len(args) == 1 {
					places = arg(0, tInt).v
				}
				return s.track(rtcall("decimal_round", places), tDecimal)
			case "floor", "ceil", "abs":
				want(0)
				return s.track(rtcall("decimal_"+name), tDecimal)
			}
		}
	}
	s.errorf(Structural, pos, "%s has no method %s", recv.t, name)
	return operand{}
}
