package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/types"
)

// resolveC follows typedefs. Struct names stay named and are passed by
// address.
func (g *generator) resolveC(t *ast.CType) *ast.CType {
	for depth := 0; t != nil && t.Kind == ast.CNamed; depth++ {
		target, ok := g.typedefs[t.Name]
		if !ok {
			if _, isStruct := g.structs[t.Name]; !isStruct {
				g.errorf(TypeError, ast.Pos{}, "unknown foreign type %s", t.Name)
			}
			return t
		}
		if depth > len(g.typedefs) {
			g.errorf(TypeError, ast.Pos{}, "typedef cycle through %s", t.Name)
		}
		t = target
	}
	return t
}

func cArg(t *ast.CType) ir.CArg {
	if t == nil || t.Kind == ast.CVoid {
		return ir.CArg{}
	}
	return ir.CArg{Bits: t.Bits(), Float: t.IsFloat(), Signed: t.IsSigned(), Pointer: t.IsPointer()}
}

// callExtern calls a foreign function. The library is opened and the
// symbol resolved at the call site; the runtime caches both.
func (s *fnState) callExtern(x *externFunc, args []ast.Expr, pos ast.Pos) operand {
	decl := x.decl
	if len(args) < len(decl.Params) || (!decl.Variadic && len(args) != len(decl.Params)) {
		s.errorf(Structural, pos, "%s takes %d arguments, got %d", decl.Name, len(decl.Params), len(args))
	}
	sig := &ir.CSig{
		Name:     decl.Name,
		Result:   cArg(s.g.resolveC(decl.Result)),
		Variadic: decl.Variadic,
		Fixed:    len(decl.Params),
	}
	vals := make([]*ir.Value, len(args))
	for i, a := range args {
		var ct *ast.CType
		if i < len(decl.Params) {
			ct = s.g.resolveC(decl.Params[i].Type)
		}
		v, arg := s.foreignArg(a, ct)
		vals[i] = v
		sig.Params = append(sig.Params, arg)
	}

	lib := s.g.literal(x.lib)
	handle := s.b.CallRT(rtabi.FnFFILoad, s.b.Data(lib), s.b.Const(int64(len(x.lib))))
	sym := s.b.CallRT(rtabi.FnFFISymbol, handle, s.b.Data(s.g.literal(decl.Name)), s.b.Const(int64(len(decl.Name))))
	res := s.b.CallFFI(sig, sym, vals...)

	rt := s.g.resolveC(decl.Result)
	switch {
	case rt == nil || rt.Kind == ast.CVoid:
		return borrowed(s.b.Const(0), tNone)
	case rt.IsCString():
		return s.track(s.b.CallRT("string_from_cstr", res), tStr)
	case rt.IsFloat():
		return borrowed(res, tFloat)
	case rt.Kind == ast.CBool:
		return borrowed(s.b.Cmp(ir.CondNE, res, s.b.Const(0)), tBool)
	case rt.IsPointer():
		return borrowed(res, tPtr)
	case rt.Bits() < 64:
		op := ir.OpZExt
		if rt.IsSigned() {
			op = ir.OpSExt
		}
		return borrowed(s.b.Ext(op, res, rt.Bits()), tInt)
	}
	return borrowed(res, tInt)
}

// foreignArg converts one argument to its C form. ct is nil for the
// variadic tail, whose arguments get the default promotions.
func (s *fnState) foreignArg(a ast.Expr, ct *ast.CType) (*ir.Value, ir.CArg) {
	x := s.expr(a)
	if ct == nil {
		switch {
		case types.IsString(x.t):
			return s.b.CallRT(rtabi.FnStringAsCStr, x.v), ir.CArg{Bits: 64, Pointer: true}
		case types.IsFloat(x.t):
			return x.v, ir.CArg{Bits: 64, Float: true}
		case types.ValueClass(x.t) == rtabi.Ptr || types.IsKind(x.t, types.Ptr):
			return x.v, ir.CArg{Bits: 64, Pointer: true}
		}
		return s.toInt(x, a.Pos()).v, ir.CArg{Bits: 64, Signed: true}
	}
	arg := cArg(ct)
	switch {
	case ct.IsCString():
		if types.IsString(x.t) {
			return s.b.CallRT(rtabi.FnStringAsCStr, x.v), arg
		}
		if !types.IsKind(x.t, types.Ptr) && !types.IsKind(x.t, types.None) {
			s.errorf(TypeError, a.Pos(), "cannot pass %s as %s", x.t, ct)
		}
		return x.v, arg
	case ct.IsFloat():
		if !types.IsFloat(x.t) && !isIntLike(x.t) {
			s.errorf(TypeError, a.Pos(), "cannot pass %s as %s", x.t, ct)
		}
		v := s.toFloat(x)
		if ct.Bits() == 32 {
			v = s.b.Un(ir.OpFDemote, v)
		}
		return v, arg
	case ct.IsPointer():
		switch {
		case types.IsKind(x.t, types.Ptr), types.IsKind(x.t, types.None), types.IsKind(x.t, types.Int):
		case s.structOf(x.t) != nil:
		default:
			s.errorf(TypeError, a.Pos(), "cannot pass %s as %s", x.t, ct)
		}
		return x.v, arg
	}
	if !isIntLike(x.t) {
		s.errorf(TypeError, a.Pos(), "cannot pass %s as %s", x.t, ct)
	}
	v := x.v
	if bits := ct.Bits(); bits < 64 {
		op := ir.OpZExt
		if ct.IsSigned() {
			op = ir.OpSExt
		}
		v = s.b.Ext(op, v, bits)
	}
	return v, arg
}
