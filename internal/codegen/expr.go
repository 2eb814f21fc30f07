package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/types"
)

func (s *fnState) expr(e ast.Expr) operand { return s.exprHint(e, nil) }

// exprHint lowers e. hint is the type the context expects, or nil.
func (s *fnState) exprHint(e ast.Expr, hint types.Type) operand {
	s.b.Pos = e.Pos()
	switch e := e.(type) {
	case *ast.IntLit:
		return borrowed(s.b.Const(e.Value), tInt)
	case *ast.FloatLit:
		return borrowed(s.b.ConstF(e.Value), tFloat)
	case *ast.BoolLit:
		return borrowed(s.b.Const(boolInt(e.Value)), tBool)
	case *ast.NoneLit:
		return borrowed(s.b.Const(0), tNone)
	case *ast.StringLit:
		return s.track(s.stringLit(e.Value), tStr)
	case *ast.BigIntLit:
		return s.parseExact("bigint", e.Value)
	case *ast.DecimalLit:
		return s.parseExact("decimal", e.Value)
	case *ast.Ident:
		return s.ident(e)
	case *ast.Binary:
		return s.binary(e)
	case *ast.Unary:
		return s.unary(e)
	case *ast.Call:
		return s.call(e, hint)
	case *ast.Index:
		return s.index(e)
	case *ast.Member:
		return s.member(e)
	case *ast.ListLit:
		return s.listLit(e, hint)
	case *ast.DictLit:
		return s.dictLit(e, hint)
	case *ast.TupleLit:
		return s.tupleLit(e, hint)
	case *ast.Spawn:
		fi := s.g.lookupFunc(s.module, e.Func)
		if fi == nil {
			s.errorf(Structural, e.Pos(), "spawn of undefined function %s", e.Func)
		}
		return s.spawn(fi, nil, e.Args, e.Pos())
	case *ast.Await:
		return s.await(e)
	case *ast.AwaitAll:
		return s.awaitAll(e)
	case *ast.Recv:
		return s.recv(s.expr(e.Chan), e.Pos())
	}
	s.errorf(Structural, e.Pos(), "unsupported expression %T", e)
	return operand{}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// stringLit returns a new reference to the interned string s.
func (s *fnState) stringLit(str string) *ir.Value {
	return s.b.CallRT(rtabi.FnStringLiteral, s.b.Data(s.g.literal(str)), s.b.Const(int64(len(str))))
}

// parseExact builds a bigint or decimal from its literal spelling.
func (s *fnState) parseExact(prefix, lit string) operand {
	str := s.stringLit(lit)
	v := s.b.CallRT(prefix+"_from_str", str)
	s.release(str, tStr)
	if prefix == "bigint" {
		return s.track(v, tBigInt)
	}
	return s.track(v, tDecimal)
}

func (s *fnState) ident(e *ast.Ident) operand {
	v := s.lookup(e.Name)
	if v == nil {
		if fi := s.g.lookupFunc(s.module, e.Name); fi != nil {
			return borrowed(s.b.FuncAddr(s.funcValue(fi)), fi.funcType())
		}
		s.errorf(Structural, e.Pos(), "undefined: %s", e.Name)
	}
	if v.moved {
		s.errorf(Move, e.Pos(), "use of moved variable %s", e.Name)
	}
	val := s.load(v)
	switch t := v.typ.(type) {
	case *types.Weak:
		if !s.arc {
			return borrowed(val, t.Base())
		}
		return s.track(s.b.CallRT("object_weak_upgrade", val), t.Base())
	case *types.Unowned:
		return borrowed(val, t.Base())
	}
	op := borrowed(val, v.typ)
	op.fut = v.future
	return op
}

// funcValue returns the symbol a function value points at.
func (s *fnState) funcValue(fi *funcInfo) string {
	return fi.link
}

// rawRef lowers e without upgrading weak references.
func (s *fnState) rawRef(e ast.Expr) operand {
	if id, ok := e.(*ast.Ident); ok {
		if v := s.lookup(id.Name); v != nil && types.IsNonOwning(v.typ) {
			return borrowed(s.load(v), types.Deref(v.typ))
		}
	}
	return s.expr(e)
}

// rootVar returns the binding at the root of an identifier, member and
// index chain, or nil.
func (s *fnState) rootVar(e ast.Expr) *variable {
	switch e := e.(type) {
	case *ast.Ident:
		return s.lookup(e.Name)
	case *ast.Member:
		return s.rootVar(e.X)
	case *ast.Index:
		return s.rootVar(e.X)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Operators

func (s *fnState) binary(e *ast.Binary) operand {
	xt, yt := s.typeOf(e.X), s.typeOf(e.Y)
	if c, ok := xt.(*types.Class); ok {
		if m := s.operatorMethod(c, e.Op, e.Pos()); m != nil {
			self := s.expr(e.X)
			return s.callFunc(m, &self, s.rootVar(e.X), []ast.Expr{e.Y}, e.Pos())
		}
		if e.Op == ast.Eq || e.Op == ast.Ne {
			x, y := s.expr(e.X), s.expr(e.Y)
			return borrowed(s.b.Cmp(cmpCond(e.Op), x.v, y.v), tBool)
		}
		s.errorf(TypeError, e.Pos(), "operator %s not defined on class %s", e.Op, c.Name())
	}

	if e.Op == ast.And || e.Op == ast.Or {
		x := s.truth(s.expr(e.X))
		y := s.truth(s.expr(e.Y))
		op := ir.OpAnd
		if e.Op == ast.Or {
			op = ir.OpOr
		}
		return borrowed(s.b.Bin(op, x, y), tBool)
	}

	dom := promote(xt, yt, ast.Add)
	if e.Op.IsComparison() && types.IsString(xt) != types.IsString(yt) && !types.IsDynamic(dom) {
		s.errorf(TypeError, e.Pos(), "cannot compare %s with %s", xt, yt)
	}
	switch {
	case types.IsString(dom):
		return s.stringOp(e, s.expr(e.X), s.expr(e.Y))
	case types.IsDynamic(dom):
		return s.dynamicOp(e, s.box(s.expr(e.X), e.Pos()), s.box(s.expr(e.Y), e.Pos()))
	case types.IsBigInt(dom), types.IsDecimal(dom):
		x := s.exact(s.expr(e.X), dom, e.Pos())
		y := s.exact(s.expr(e.Y), dom, e.Pos())
		return s.exactOp(e, types.RCPrefix(dom), x, y, dom)
	case types.IsFloat(dom):
		return s.floatOp(e, s.toFloat(s.expr(e.X)), s.toFloat(s.expr(e.Y)))
	}
	x, y := s.expr(e.X), s.expr(e.Y)
	if !isIntLike(x.t) || !isIntLike(y.t) {
		s.errorf(TypeError, e.Pos(), "operator %s not defined on %s and %s", e.Op, x.t, y.t)
	}
	return s.intOp(e, x.v, y.v)
}

func isIntLike(t types.Type) bool {
	return types.IsKind(t, types.Int) || types.IsKind(t, types.Bool) || types.IsKind(t, types.None)
}

func cmpCond(op ast.BinOp) ir.Cond {
	switch op {
	case ast.Ne:
		return ir.CondNE
	case ast.Lt:
		return ir.CondLT
	case ast.Le:
		return ir.CondLE
	case ast.Gt:
		return ir.CondGT
	case ast.Ge:
		return ir.CondGE
	}
	return ir.CondEQ
}

var intOps = map[ast.BinOp]ir.Op{
	ast.Add: ir.OpAdd,
	ast.Sub: ir.OpSub,
	ast.Mul: ir.OpMul,
	ast.Div: ir.OpDiv,
	ast.Mod: ir.OpRem,
}

var floatOps = map[ast.BinOp]ir.Op{
	ast.Add: ir.OpFAdd,
	ast.Sub: ir.OpFSub,
	ast.Mul: ir.OpFMul,
	ast.Div: ir.OpFDiv,
}

var exactOps = map[ast.BinOp]string{
	ast.Add: "add", ast.Sub: "sub", ast.Mul: "mul", ast.Div: "div", ast.Mod: "rem",
	ast.Eq: "eq", ast.Ne: "ne", ast.Lt: "lt", ast.Le: "le", ast.Gt: "gt", ast.Ge: "ge",
}

func (s *fnState) intOp(e *ast.Binary, x, y *ir.Value) operand {
	if e.Op.IsComparison() {
		return borrowed(s.b.Cmp(cmpCond(e.Op), x, y), tBool)
	}
	return borrowed(s.b.Bin(intOps[e.Op], x, y), tInt)
}

func (s *fnState) floatOp(e *ast.Binary, x, y *ir.Value) operand {
	if e.Op.IsComparison() {
		return borrowed(s.b.FCmp(cmpCond(e.Op), x, y), tBool)
	}
	if e.Op == ast.Mod {
		// a - floor(a/b)*b
		q := s.b.Un(ir.OpFloor, s.b.Bin(ir.OpFDiv, x, y))
		return borrowed(s.b.Bin(ir.OpFSub, x, s.b.Bin(ir.OpFMul, q, y)), tFloat)
	}
	return borrowed(s.b.Bin(floatOps[e.Op], x, y), tFloat)
}

func (s *fnState) exactOp(e *ast.Binary, prefix string, x, y *ir.Value, t types.Type) operand {
	v := s.b.CallRT(prefix+"_"+exactOps[e.Op], x, y)
	if e.Op.IsComparison() {
		return borrowed(v, tBool)
	}
	return s.track(v, t)
}

func (s *fnState) stringOp(e *ast.Binary, x, y operand) operand {
	switch {
	case e.Op == ast.Add:
		xs, ys := s.toStr(x), s.toStr(y)
		return s.track(s.b.CallRT("string_concat", xs.v, ys.v), tStr)
	case e.Op.IsComparison():
		return borrowed(s.b.CallRT("string_"+exactOps[e.Op], x.v, y.v), tBool)
	}
	s.errorf(TypeError, e.Pos(), "operator %s not defined on str", e.Op)
	return operand{}
}

func (s *fnState) dynamicOp(e *ast.Binary, x, y operand) operand {
	not := func(v *ir.Value) operand { return borrowed(s.b.Bin(ir.OpXor, v, s.b.Const(1)), tBool) }
	switch e.Op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div:
		return s.track(s.b.CallRT("dynamic_"+exactOps[e.Op], x.v, y.v), tDynamic)
	case ast.Eq:
		return borrowed(s.b.CallRT("dynamic_eq", x.v, y.v), tBool)
	case ast.Ne:
		return not(s.b.CallRT("dynamic_eq", x.v, y.v))
	case ast.Lt:
		return borrowed(s.b.CallRT("dynamic_lt", x.v, y.v), tBool)
	case ast.Gt:
		return borrowed(s.b.CallRT("dynamic_lt", y.v, x.v), tBool)
	case ast.Le:
		return not(s.b.CallRT("dynamic_lt", y.v, x.v))
	case ast.Ge:
		return not(s.b.CallRT("dynamic_lt", x.v, y.v))
	}
	s.errorf(TypeError, e.Pos(), "operator %s not defined on dynamic", e.Op)
	return operand{}
}

func (s *fnState) unary(e *ast.Unary) operand {
	x := s.expr(e.X)
	if e.Op == ast.Not {
		return borrowed(s.b.Cmp(ir.CondEQ, s.truth(x), s.b.Const(0)), tBool)
	}
	switch {
	case types.IsFloat(x.t):
		return borrowed(s.b.Un(ir.OpFNeg, x.v), tFloat)
	case types.IsBigInt(x.t), types.IsDecimal(x.t):
		return s.track(s.b.CallRT(types.RCPrefix(x.t)+"_neg", x.v), x.t)
	case types.IsDynamic(x.t):
		zero := s.track(s.b.CallRT("dynamic_from_int", s.b.Const(0)), tDynamic)
		return s.track(s.b.CallRT("dynamic_sub", zero.v, x.v), tDynamic)
	case isIntLike(x.t):
		return borrowed(s.b.Un(ir.OpNeg, x.v), tInt)
	}
	s.errorf(TypeError, e.Pos(), "operator - not defined on %s", x.t)
	return operand{}
}

// truth returns x as a 0/1 word.
func (s *fnState) truth(x operand) *ir.Value {
	switch {
	case types.IsKind(x.t, types.Bool):
		return x.v
	case types.IsFloat(x.t):
		return s.b.FCmp(ir.CondNE, x.v, s.b.ConstF(0))
	case types.IsDynamic(x.t):
		return s.b.CallRT("dynamic_to_bool", x.v)
	case types.IsString(x.t):
		return s.b.Cmp(ir.CondNE, s.b.CallRT("string_len", x.v), s.b.Const(0))
	}
	return s.b.Cmp(ir.CondNE, x.v, s.b.Const(0))
}

// ----------------------------------------------------------------------------
// Conversions

// toFloat widens an int operand.
func (s *fnState) toFloat(x operand) *ir.Value {
	if x.v.Type == rtabi.F64 {
		return x.v
	}
	return s.b.Un(ir.OpIToF, x.v)
}

// exact converts x to the bigint or decimal type t.
func (s *fnState) exact(x operand, t types.Type, pos ast.Pos) *ir.Value {
	if types.Identical(x.t, t) {
		return x.v
	}
	prefix := types.RCPrefix(t)
	switch {
	case isIntLike(x.t):
		return s.track(s.b.CallRT(prefix+"_from_i64", x.v), t).v
	case types.IsFloat(x.t):
		return s.track(s.b.CallRT(prefix+"_from_f64", x.v), t).v
	case types.IsBigInt(x.t) && types.IsDecimal(t):
		str := s.track(s.b.CallRT("string_from_bigint", x.v), tStr)
		return s.track(s.b.CallRT("decimal_from_str", str.v), t).v
	case types.IsDecimal(x.t) && types.IsBigInt(t):
		return s.track(s.b.CallRT("bigint_from_i64", s.b.CallRT("decimal_to_i64", x.v)), t).v
	}
	s.errorf(TypeError, pos, "cannot convert %s to %s", x.t, t)
	return nil
}

// toStr formats x as a string operand.
func (s *fnState) toStr(x operand) operand {
	switch t := x.t.(type) {
	case *types.Basic:
		switch t.Kind() {
		case types.Str:
			return x
		case types.Int:
			return s.track(s.b.CallRT("string_from_int", x.v), tStr)
		case types.Float:
			return s.track(s.b.CallRT("string_from_float", x.v), tStr)
		case types.Bool:
			return s.track(s.b.CallRT("string_from_bool", x.v), tStr)
		case types.BigInt:
			return s.track(s.b.CallRT("string_from_bigint", x.v), tStr)
		case types.Decimal:
			return s.track(s.b.CallRT("string_from_decimal", x.v), tStr)
		case types.Dynamic:
			return s.track(s.b.CallRT("dynamic_to_string", x.v), tStr)
		case types.None:
			return s.track(s.stringLit("none"), tStr)
		}
	case *types.List:
		return s.track(s.b.CallRT("list_to_string", x.v), tStr)
	case *types.Dict:
		return s.track(s.b.CallRT("dict_to_string", x.v), tStr)
	case *types.Tuple:
		return s.track(s.b.CallRT("tuple_to_string", x.v), tStr)
	case *types.Class:
		return s.track(s.stringLit("<"+t.Name()+">"), tStr)
	}
	return s.track(s.b.CallRT("string_from_int", x.v), tStr)
}

// box wraps x into a dynamic value.
func (s *fnState) box(x operand, pos ast.Pos) operand {
	var v *ir.Value
	switch t := x.t.(type) {
	case *types.Basic:
		switch t.Kind() {
		case types.Dynamic:
			return x
		case types.Int:
			v = s.b.CallRT("dynamic_from_int", x.v)
		case types.Float:
			v = s.b.CallRT("dynamic_from_float", x.v)
		case types.Bool:
			v = s.b.CallRT("dynamic_from_bool", x.v)
		case types.None:
			v = s.b.CallRT("dynamic_from_none")
		case types.Str:
			v = s.b.CallRT("dynamic_from_string", s.own(x))
		case types.BigInt:
			v = s.b.CallRT("dynamic_from_bigint", s.own(x))
		case types.Decimal:
			v = s.b.CallRT("dynamic_from_decimal", s.own(x))
		}
	case *types.List:
		v = s.b.CallRT("dynamic_from_list", s.own(x))
	}
	if v == nil {
		s.errorf(TypeError, pos, "cannot convert %s to dynamic", x.t)
	}
	return s.track(v, tDynamic)
}

// coerce converts x to want where the language converts implicitly.
func (s *fnState) coerce(x operand, want types.Type, pos ast.Pos) operand {
	if want == nil {
		return x
	}
	w := types.Deref(want)
	if types.Identical(x.t, w) {
		return x
	}
	switch {
	case types.IsKind(x.t, types.None):
		return operand{v: x.v, t: w}
	case types.IsFloat(w) && isIntLike(x.t):
		return borrowed(s.b.Un(ir.OpIToF, x.v), tFloat)
	case isIntLike(w) && isIntLike(x.t):
		x.t = w
		return x
	case (types.IsBigInt(w) || types.IsDecimal(w)) && !types.IsDynamic(x.t):
		return s.track(s.exactOwned(x, w, pos), w)
	case types.IsDynamic(w):
		return s.box(x, pos)
	case types.IsDynamic(x.t):
		return s.unbox(x, w, pos)
	}
	if c, ok := w.(*types.Class); ok {
		if xc, ok := x.t.(*types.Class); ok {
			if s.classOf(xc, pos).isA(s.classOf(c, pos)) {
				x.t = w
				return x
			}
		}
	}
	if types.ValueClass(x.t) == types.ValueClass(w) && types.RCPrefix(x.t) == types.RCPrefix(w) {
		if types.IsKind(w, types.Ptr) || types.IsKind(w, types.Future) || types.IsKind(w, types.FuncAny) || sameShape(x.t, w) {
			x.t = w
			return x
		}
	}
	s.errorf(TypeError, pos, "cannot use %s as %s", x.t, w)
	return operand{}
}

// exactOwned returns a new reference to x converted to bigint or decimal.
func (s *fnState) exactOwned(x operand, t types.Type, pos ast.Pos) *ir.Value {
	v := s.exact(x, t, pos)
	if v == x.v {
		return s.own(x)
	}
	s.untrack(v)
	return v
}

// unbox extracts a statically typed value from a dynamic.
func (s *fnState) unbox(x operand, want types.Type, pos ast.Pos) operand {
	switch {
	case types.IsKind(want, types.Int):
		return borrowed(s.b.CallRT("dynamic_to_int", x.v), tInt)
	case types.IsKind(want, types.Bool):
		return borrowed(s.b.CallRT("dynamic_to_bool", x.v), tBool)
	case types.IsFloat(want):
		return borrowed(s.b.CallRT("dynamic_to_float", x.v), tFloat)
	case types.IsString(want):
		return s.track(s.b.CallRT("dynamic_to_string", x.v), tStr)
	}
	s.errorf(TypeError, pos, "cannot convert dynamic to %s", want)
	return operand{}
}

// sameShape reports whether two container types differ only in ways the
// runtime does not observe, such as a parameter declared with a function
// type of the same arity.
func sameShape(x, y types.Type) bool {
	switch x := x.(type) {
	case *types.Func:
		y, ok := y.(*types.Func)
		return ok && len(x.Params()) == len(y.Params())
	case *types.Channel:
		_, ok := y.(*types.Channel)
		return ok
	}
	return false
}

// ----------------------------------------------------------------------------
// Access

func (s *fnState) index(e *ast.Index) operand {
	x := s.expr(e.X)
	switch t := x.t.(type) {
	case *types.List:
		i := s.coerce(s.expr(e.Index), tInt, e.Pos())
		w := s.b.CallRT("list_get", x.v, i.v)
		return borrowed(s.fromWord(w, t.Elem()), t.Elem())
	case *types.Dict:
		k := s.coerce(s.exprHint(e.Index, t.Key()), t.Key(), e.Pos())
		w := s.b.CallRT("dict_get", x.v, s.toWord(k.v))
		return borrowed(s.fromWord(w, t.Value()), t.Value())
	case *types.Tuple:
		elem := s.indexType(e)
		i := s.coerce(s.expr(e.Index), tInt, e.Pos())
		w := s.b.CallRT("tuple_get", x.v, i.v)
		return borrowed(s.fromWord(w, elem), elem)
	case *types.Basic:
		if t.Kind() == types.Str {
			i := s.coerce(s.expr(e.Index), tInt, e.Pos())
			return s.track(s.b.CallRT("string_char_at", x.v, i.v), tStr)
		}
	}
	s.errorf(TypeError, e.Pos(), "cannot index %s", x.t)
	return operand{}
}

func (s *fnState) member(e *ast.Member) operand {
	if mod, ok := s.moduleRef(e.X); ok {
		fi := s.g.funcs[qualify(mod, e.Name)]
		if fi == nil {
			s.errorf(Structural, e.Pos(), "undefined: %s.%s", mod, e.Name)
		}
		return borrowed(s.b.FuncAddr(fi.link), fi.funcType())
	}
	x := s.expr(e.X)
	if st := s.structOf(x.t); st != nil {
		off, ft := s.structField(st, e.Name, e.Pos())
		return borrowed(s.b.Load(x.v, off, wordClass(ft)), ft)
	}
	c := s.classOf(x.t, e.Pos())
	f, ok := c.field(e.Name)
	if !ok {
		s.errorf(Structural, e.Pos(), "class %s has no field %s", c.name, e.Name)
	}
	val := s.b.Load(x.v, f.offset, wordClass(f.typ))
	switch t := f.typ.(type) {
	case *types.Weak:
		if !s.arc {
			return borrowed(val, t.Base())
		}
		return s.track(s.b.CallRT("object_weak_upgrade", val), t.Base())
	case *types.Unowned:
		return borrowed(val, t.Base())
	}
	return borrowed(val, f.typ)
}

// ----------------------------------------------------------------------------
// Literals

func (s *fnState) listLit(e *ast.ListLit, hint types.Type) operand {
	t := s.typeOfHint(e, hint).(*types.List)
	l := s.track(s.b.CallRT("list_new", s.b.Const(int64(s.g.tagOf(t.Elem())))), t)
	for _, x := range e.Elems {
		op := s.coerce(s.exprHint(x, t.Elem()), t.Elem(), x.Pos())
		s.b.CallRT("list_push", l.v, s.toWord(s.own(op)))
	}
	return l
}

func (s *fnState) dictLit(e *ast.DictLit, hint types.Type) operand {
	t := s.typeOfHint(e, hint).(*types.Dict)
	kt, vt := t.Key(), t.Value()
	d := s.track(s.b.CallRT("dict_new", s.b.Const(int64(s.g.tagOf(kt))), s.b.Const(int64(s.g.tagOf(vt)))), t)
	for i := range e.Keys {
		k := s.coerce(s.exprHint(e.Keys[i], kt), kt, e.Keys[i].Pos())
		kw := s.toWord(s.own(k))
		v := s.coerce(s.exprHint(e.Values[i], vt), vt, e.Values[i].Pos())
		s.b.CallRT("dict_set", d.v, kw, s.toWord(s.own(v)))
	}
	return d
}

func (s *fnState) tupleLit(e *ast.TupleLit, hint types.Type) operand {
	ht, _ := hint.(*types.Tuple)
	if ht != nil && ht.Len() != len(e.Elems) {
		ht = nil
	}
	elems := make([]types.Type, len(e.Elems))
	vals := make([]*ir.Value, len(e.Elems))
	for i, x := range e.Elems {
		var want types.Type
		if ht != nil {
			want = ht.At(i)
		}
		op := s.coerce(s.exprHint(x, want), want, x.Pos())
		elems[i] = op.t
		vals[i] = s.toWord(s.own(op))
	}
	t := types.NewTuple(elems...)
	tup := s.track(s.b.CallRT(rtabi.FnTupleNew, s.b.Const(int64(len(vals)))), t)
	for i, v := range vals {
		s.b.CallRT(rtabi.FnTupleSet, tup.v, s.b.Const(int64(i)), v, s.b.Const(int64(s.g.tagOf(elems[i]))))
	}
	return tup
}

// zeroValue returns the value of a binding declared without initializer.
func (s *fnState) zeroValue(t types.Type) operand {
	switch t := types.Deref(t).(type) {
	case *types.Basic:
		switch t.Kind() {
		case types.Str:
			return s.track(s.stringLit(""), tStr)
		case types.BigInt, types.Decimal:
			return s.track(s.b.CallRT(types.RCPrefix(t)+"_from_i64", s.b.Const(0)), t)
		case types.Dynamic:
			return s.track(s.b.CallRT("dynamic_from_none"), t)
		case types.Float:
			return borrowed(s.b.ConstF(0), t)
		}
	case *types.List:
		return s.track(s.b.CallRT("list_new", s.b.Const(int64(s.g.tagOf(t.Elem())))), t)
	case *types.Dict:
		return s.track(s.b.CallRT("dict_new", s.b.Const(int64(s.g.tagOf(t.Key()))), s.b.Const(int64(s.g.tagOf(t.Value())))), t)
	}
	return borrowed(s.b.Const(0), t)
}

// recv receives one value from channel ch; the value is owned.
func (s *fnState) recv(ch operand, pos ast.Pos) operand {
	c, ok := ch.t.(*types.Channel)
	if !ok {
		s.errorf(TypeError, pos, "cannot receive from %s", ch.t)
	}
	w := s.b.CallRT("channel_recv", ch.v)
	return s.track(s.fromWord(w, c.Elem()), c.Elem())
}
