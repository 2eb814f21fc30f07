package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/types"
)

var (
	tInt     = types.Typ[types.Int]
	tFloat   = types.Typ[types.Float]
	tBool    = types.Typ[types.Bool]
	tStr     = types.Typ[types.Str]
	tBigInt  = types.Typ[types.BigInt]
	tDecimal = types.Typ[types.Decimal]
	tDynamic = types.Typ[types.Dynamic]
	tPtr     = types.Typ[types.Ptr]
	tFuture  = types.Typ[types.Future]
	tNone    = types.Typ[types.None]
)

// typeOf infers the static type of e without emitting code. Reads through
// weak and unowned references yield the referenced type.
func (s *fnState) typeOf(e ast.Expr) types.Type {
	return s.typeOfHint(e, nil)
}

// typeOfHint is typeOf for an expression whose expected type is known,
// which decides the element types of empty literals and channels.
func (s *fnState) typeOfHint(e ast.Expr, hint types.Type) types.Type {
	switch e := e.(type) {
	case *ast.IntLit:
		return tInt
	case *ast.FloatLit:
		return tFloat
	case *ast.BoolLit:
		return tBool
	case *ast.StringLit:
		return tStr
	case *ast.BigIntLit:
		return tBigInt
	case *ast.DecimalLit:
		return tDecimal
	case *ast.NoneLit:
		return tNone
	case *ast.Ident:
		if v := s.lookup(e.Name); v != nil {
			return types.Deref(v.typ)
		}
		if fi := s.g.lookupFunc(s.module, e.Name); fi != nil {
			return fi.funcType()
		}
		s.errorf(Structural, e.Pos(), "undefined: %s", e.Name)
	case *ast.Binary:
		return s.binaryType(e)
	case *ast.Unary:
		if e.Op == ast.Not {
			return tBool
		}
		return s.typeOf(e.X)
	case *ast.Call:
		return s.callType(e, hint)
	case *ast.Index:
		return s.indexType(e)
	case *ast.Member:
		if mod, ok := s.moduleRef(e.X); ok {
			if fi := s.g.funcs[qualify(mod, e.Name)]; fi != nil {
				return fi.funcType()
			}
			s.errorf(Structural, e.Pos(), "undefined: %s.%s", mod, e.Name)
		}
		xt := s.typeOf(e.X)
		if st := s.structOf(xt); st != nil {
			_, ft := s.structField(st, e.Name, e.Pos())
			return ft
		}
		c := s.classOf(xt, e.Pos())
		f, ok := c.field(e.Name)
		if !ok {
			s.errorf(Structural, e.Pos(), "class %s has no field %s", c.name, e.Name)
		}
		return types.Deref(f.typ)
	case *ast.ListLit:
		if l, ok := hint.(*types.List); ok {
			return l
		}
		return types.NewList(s.unify(e.Elems, tInt))
	case *ast.DictLit:
		if d, ok := hint.(*types.Dict); ok {
			return d
		}
		return types.NewDict(s.unify(e.Keys, tStr), s.unify(e.Values, tInt))
	case *ast.TupleLit:
		elems := make([]types.Type, len(e.Elems))
		for i, x := range e.Elems {
			elems[i] = s.typeOf(x)
		}
		return types.NewTuple(elems...)
	case *ast.Spawn:
		return tFuture
	case *ast.Await:
		return s.awaitType(e.X)
	case *ast.AwaitAll:
		elems := make([]types.Type, len(e.Exprs))
		for i, x := range e.Exprs {
			elems[i] = s.awaitType(x)
		}
		return types.NewTuple(elems...)
	case *ast.Recv:
		if elem := types.Elem(s.typeOf(e.Chan)); elem != nil {
			return elem
		}
		return tInt
	}
	s.errorf(TypeError, e.Pos(), "cannot infer the type of %T", e)
	return nil
}

// unify returns the common type of list, def when it is empty and dynamic
// when the element types disagree.
func (s *fnState) unify(list []ast.Expr, def types.Type) types.Type {
	if len(list) == 0 {
		return def
	}
	t := s.typeOf(list[0])
	for _, x := range list[1:] {
		if !types.Identical(t, s.typeOf(x)) {
			return tDynamic
		}
	}
	return t
}

// binaryType applies the operand promotion rules.
func (s *fnState) binaryType(e *ast.Binary) types.Type {
	x, y := s.typeOf(e.X), s.typeOf(e.Y)
	if c, ok := x.(*types.Class); ok {
		if m := s.operatorMethod(c, e.Op, e.Pos()); m != nil {
			if m.result == nil {
				return tNone
			}
			return m.result
		}
	}
	if e.Op.IsComparison() || e.Op == ast.And || e.Op == ast.Or {
		return tBool
	}
	return promote(x, y, e.Op)
}

// promote returns the arithmetic result type of x op y.
func promote(x, y types.Type, op ast.BinOp) types.Type {
	either := func(k types.BasicKind) bool { return types.IsKind(x, k) || types.IsKind(y, k) }
	switch {
	case op == ast.Add && either(types.Str):
		return tStr
	case either(types.Dynamic):
		return tDynamic
	case either(types.BigInt):
		return tBigInt
	case either(types.Decimal):
		return tDecimal
	case either(types.Float):
		return tFloat
	}
	return tInt
}

// operatorMethod returns the overload of op defined on class c, or nil.
func (s *fnState) operatorMethod(t *types.Class, op ast.BinOp, pos ast.Pos) *funcInfo {
	name, ok := operatorNames[op]
	if !ok {
		return nil
	}
	return s.classOf(t, pos).method(name)
}

var operatorNames = map[ast.BinOp]string{
	ast.Add: "__add__",
	ast.Sub: "__sub__",
	ast.Mul: "__mul__",
	ast.Div: "__div__",
	ast.Mod: "__mod__",
	ast.Eq:  "__eq__",
	ast.Ne:  "__ne__",
	ast.Lt:  "__lt__",
	ast.Le:  "__le__",
	ast.Gt:  "__gt__",
	ast.Ge:  "__ge__",
}

func (s *fnState) indexType(e *ast.Index) types.Type {
	switch t := s.typeOf(e.X).(type) {
	case *types.List:
		return t.Elem()
	case *types.Dict:
		return t.Value()
	case *types.Tuple:
		if lit, ok := e.Index.(*ast.IntLit); ok {
			if lit.Value < 0 || int(lit.Value) >= t.Len() {
				s.errorf(TypeError, e.Pos(), "tuple index %d out of range for %s", lit.Value, t)
			}
			return t.At(int(lit.Value))
		}
		if elem := homogeneous(t); elem != nil {
			return elem
		}
		return tInt
	case *types.Basic:
		if t.Kind() == types.Str {
			return tStr
		}
	}
	s.errorf(TypeError, e.Pos(), "cannot index %s", s.typeOf(e.X))
	return nil
}

// homogeneous returns the element type shared by every element of t, or
// nil.
func homogeneous(t *types.Tuple) types.Type {
	if t.Len() == 0 {
		return nil
	}
	elem := t.At(0)
	for _, x := range t.Elems()[1:] {
		if !types.Identical(elem, x) {
			return nil
		}
	}
	return elem
}

// awaitType returns the result type of awaiting the future e produces.
func (s *fnState) awaitType(e ast.Expr) types.Type {
	if fi := s.futureTarget(e); fi != nil {
		if fi.result == nil {
			return tInt
		}
		return fi.result
	}
	return tInt
}

// futureTarget finds the function whose task e refers to, or nil.
func (s *fnState) futureTarget(e ast.Expr) *funcInfo {
	switch e := e.(type) {
	case *ast.Spawn:
		return s.g.lookupFunc(s.module, e.Func)
	case *ast.Call:
		if fi := s.calleeFunc(e); fi != nil && fi.async {
			return fi
		}
	case *ast.Ident:
		if v := s.lookup(e.Name); v != nil {
			return v.future
		}
	}
	return nil
}

// calleeFunc resolves the user function or method a call targets, or nil.
func (s *fnState) calleeFunc(e *ast.Call) *funcInfo {
	switch fun := e.Fun.(type) {
	case *ast.Ident:
		if s.lookup(fun.Name) != nil {
			return nil
		}
		return s.g.lookupFunc(s.module, fun.Name)
	case *ast.Member:
		if mod, ok := s.moduleRef(fun.X); ok {
			return s.g.funcs[qualify(mod, fun.Name)]
		}
		if c, ok := s.typeOf(fun.X).(*types.Class); ok {
			return s.classOf(c, fun.Pos()).method(fun.Name)
		}
	}
	return nil
}

// moduleRef reports whether e names an imported module rather than a
// value.
func (s *fnState) moduleRef(e ast.Expr) (string, bool) {
	id, ok := e.(*ast.Ident)
	if !ok || s.lookup(id.Name) != nil {
		return "", false
	}
	return id.Name, s.g.modules[id.Name]
}

// classOf returns the class of instance type t.
func (s *fnState) classOf(t types.Type, pos ast.Pos) *classInfo {
	if c, ok := types.Deref(t).(*types.Class); ok {
		if ci := s.g.classes[c.Name()]; ci != nil {
			return ci
		}
		if _, isStruct := s.g.structs[c.Name()]; isStruct {
			s.errorf(TypeError, pos, "extern struct %s has no Bolide fields or methods", c.Name())
		}
		s.errorf(Structural, pos, "undefined class %s", c.Name())
	}
	s.errorf(TypeError, pos, "%s is not a class instance", t)
	return nil
}

// callType returns the result type of a call.
func (s *fnState) callType(e *ast.Call, hint types.Type) types.Type {
	switch fun := e.Fun.(type) {
	case *ast.Ident:
		if v := s.lookup(fun.Name); v != nil {
			if ft, ok := v.typ.(*types.Func); ok {
				return orNone(ft.Result())
			}
			s.errorf(TypeError, e.Pos(), "%s is not a function", fun.Name)
		}
		if fi := s.g.lookupFunc(s.module, fun.Name); fi != nil {
			if fi.async {
				return tFuture
			}
			return orNone(fi.result)
		}
		if c := s.g.lookupClass(s.module, fun.Name); c != nil {
			return types.NewClass(c.name)
		}
		if _, ok := s.g.structs[fun.Name]; ok {
			return types.NewClass(fun.Name)
		}
		if x := s.g.externs[fun.Name]; x != nil {
			return cResultType(s.g.resolveC(x.decl.Result))
		}
		if t, ok := s.intrinsicType(fun.Name, e, hint); ok {
			return t
		}
		s.errorf(Structural, e.Pos(), "undefined function %s", fun.Name)
	case *ast.Member:
		if mod, ok := s.moduleRef(fun.X); ok {
			if fi := s.g.funcs[qualify(mod, fun.Name)]; fi != nil {
				if fi.async {
					return tFuture
				}
				return orNone(fi.result)
			}
			if c := s.g.classes[qualify(mod, fun.Name)]; c != nil {
				return types.NewClass(c.name)
			}
			s.errorf(Structural, e.Pos(), "undefined function %s.%s", mod, fun.Name)
		}
		recv := s.typeOf(fun.X)
		if c, ok := recv.(*types.Class); ok {
			m := s.classOf(c, fun.Pos()).method(fun.Name)
			if m == nil {
				s.errorf(Structural, e.Pos(), "class %s has no method %s", c.Name(), fun.Name)
			}
			if m.async {
				return tFuture
			}
			return orNone(m.result)
		}
		if t, ok := methodType(recv, fun.Name); ok {
			return t
		}
		s.errorf(Structural, e.Pos(), "%s has no method %s", recv, fun.Name)
	}
	s.errorf(TypeError, e.Pos(), "expression is not callable")
	return nil
}

func orNone(t types.Type) types.Type {
	if t == nil {
		return tNone
	}
	return t
}

// intrinsicType returns the result type of a builtin function call.
func (s *fnState) intrinsicType(name string, e *ast.Call, hint types.Type) (types.Type, bool) {
	switch name {
	case "int", "len", "rc_strong_count", "rc_weak_count":
		return tInt, true
	case "float":
		return tFloat, true
	case "str", "input":
		return tStr, true
	case "bigint":
		return tBigInt, true
	case "decimal":
		return tDecimal, true
	case "print", "sleep", "cancel":
		return tNone, true
	case "is_cancelled":
		return tBool, true
	case "join":
		if len(e.Args) == 1 {
			return s.awaitType(e.Args[0]), true
		}
		return tInt, true
	case "channel":
		if ch, ok := hint.(*types.Channel); ok {
			return ch, true
		}
		return types.NewChannel(tInt), true
	}
	return nil, false
}

// methodType returns the result type of a builtin method of recv.
func methodType(recv types.Type, name string) (types.Type, bool) {
	switch t := recv.(type) {
	case *types.List:
		switch name {
		case "pop", "get", "remove", "first", "last":
			return t.Elem(), true
		case "push", "set", "insert", "clear", "reverse", "sort", "extend":
			return tNone, true
		case "len", "index_of", "count", "sum":
			return tInt, true
		case "contains", "is_empty":
			return tBool, true
		case "slice", "copy", "clone":
			return t, true
		case "join":
			return tStr, true
		}
	case *types.Dict:
		switch name {
		case "get", "get_or", "remove":
			return t.Value(), true
		case "set", "clear":
			return tNone, true
		case "contains", "is_empty":
			return tBool, true
		case "len":
			return tInt, true
		case "keys":
			return types.NewList(t.Key()), true
		case "values":
			return types.NewList(t.Value()), true
		case "items":
			return types.NewList(types.NewTuple(t.Key(), t.Value())), true
		case "copy", "clone":
			return t, true
		}
	case *types.Tuple:
		if name == "len" {
			return tInt, true
		}
	case *types.Channel:
		switch name {
		case "recv":
			return t.Elem(), true
		case "send":
			return tBool, true
		case "close":
			return tNone, true
		case "is_closed":
			return tBool, true
		}
	case *types.Basic:
		switch t.Kind() {
		case types.Str:
			switch name {
			case "len", "find":
				return tInt, true
			case "upper", "lower", "trim", "replace", "slice", "repeat", "char_at":
				return tStr, true
			case "contains", "starts_with", "ends_with":
				return tBool, true
			case "split":
				return types.NewList(tStr), true
			}
		case types.Future:
			switch name {
			case "cancel":
				return tNone, true
			case "is_cancelled", "is_done":
				return tBool, true
			}
		case types.BigInt:
			switch name {
			case "abs", "pow":
				return tBigInt, true
			}
		case types.Decimal:
			switch name {
			case "round", "floor", "ceil", "abs":
				return tDecimal, true
			}
		}
	}
	return nil, false
}

// cResultType maps the result of a foreign function to a Bolide type.
func cResultType(t *ast.CType) types.Type {
	switch {
	case t == nil || t.Kind == ast.CVoid:
		return tNone
	case t.IsCString():
		return tStr
	case t.IsFloat():
		return tFloat
	case t.Kind == ast.CBool:
		return tBool
	case t.IsPointer():
		return tPtr
	}
	return tInt
}

// structOf returns the extern struct t names, or nil.
func (s *fnState) structOf(t types.Type) *ast.ExternStruct {
	if c, ok := t.(*types.Class); ok {
		return s.g.structs[c.Name()]
	}
	return nil
}

// structField returns the byte offset and Bolide type of a field of an
// extern struct.
func (s *fnState) structField(st *ast.ExternStruct, name string, pos ast.Pos) (int64, types.Type) {
	for i, f := range st.Fields {
		if f.Name == name {
			return types.FieldOffset(i), cValueType(f.Type)
		}
	}
	s.errorf(Structural, pos, "struct %s has no field %s", st.Name, name)
	return 0, nil
}

// cValueType maps a foreign field or result type to a Bolide type; char
// pointers stay raw pointers.
func cValueType(t *ast.CType) types.Type {
	if t != nil && t.IsCString() {
		return tPtr
	}
	return cResultType(t)
}
