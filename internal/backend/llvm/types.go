package llvm

import (
	"github.com/llir/llvm/ir/types"

	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

// bytePtr is the declared type of Ptr-class parameters and results.
var bytePtr = types.NewPointer(types.I8)

// llvmType maps a word class to its LLVM type. Values never have class Ptr;
// only declarations do, and their words are converted at the call.
func llvmType(c rtabi.Class) types.Type {
	switch c {
	case rtabi.I64:
		return types.I64
	case rtabi.F64:
		return types.Double
	case rtabi.Ptr:
		return bytePtr
	}
	return types.Void
}

// funcType returns the LLVM signature of a function over word classes.
func funcType(result rtabi.Class, params []rtabi.Class) *types.FuncType {
	ps := make([]types.Type, len(params))
	for i, c := range params {
		ps[i] = llvmType(c)
	}
	return types.NewFunc(llvmType(result), ps...)
}

// cType maps one C boundary type to LLVM.
func cType(a ir.CArg) types.Type {
	switch {
	case a.Bits == 0:
		return types.Void
	case a.Pointer:
		return bytePtr
	case a.Float && a.Bits == 32:
		return types.Float
	case a.Float:
		return types.Double
	}
	return types.NewInt(uint64(a.Bits))
}

// cFuncType returns the C signature of a foreign call site. Variadic sites
// declare only the fixed parameters.
func cFuncType(sig *ir.CSig) *types.FuncType {
	n := len(sig.Params)
	if sig.Variadic && sig.Fixed < n {
		n = sig.Fixed
	}
	ps := make([]types.Type, n)
	for i := range ps {
		ps[i] = cType(sig.Params[i])
	}
	ft := types.NewFunc(cType(sig.Result), ps...)
	ft.Variadic = sig.Variadic
	return ft
}

func isPointer(t types.Type) bool {
	_, ok := t.(*types.PointerType)
	return ok
}

// intBits returns the width of an integer type, or 0.
func intBits(t types.Type) uint64 {
	if it, ok := t.(*types.IntType); ok {
		return it.BitSize
	}
	return 0
}
