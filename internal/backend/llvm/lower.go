// Package llvm lowers IR modules to LLVM IR for ahead-of-time compilation.
//
// IR words become i64 or double values. Addresses stay i64 and are turned
// into pointers with inttoptr at loads, stores and indirect calls. Runtime
// symbols are declared external and resolved by the linker against the
// runtime archive. The exported main runs runtime_init, the program entry
// and runtime_shutdown, and exits with the entry's result.
package llvm

import (
	"io"

	ll "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/pkg/errors"

	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Options control lowering.
type Options struct {
	// TargetTriple is written to the module. Empty means
	// rtabi.DefaultTargetTriple.
	TargetTriple string

	// SourceFile is recorded as the module's source filename.
	SourceFile string
}

// Output is the result of lowering: the LLVM module and the shared
// libraries the link step must add.
type Output struct {
	Module *ll.Module
	Libs   []string
}

// WriteTo writes the module as LLVM assembly.
func (o *Output) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, o.Module.String())
	return int64(n), errors.Wrap(err, "write llvm module")
}

type generator struct {
	src        *ir.Module
	m          *ll.Module
	funcs      map[string]*ll.Func
	runtime    map[string]*ll.Func
	intrinsics map[string]*ll.Func
	data       map[string]*ll.Global
}

// Lower translates mod into an LLVM module.
func Lower(mod *ir.Module, opts Options) (*Output, error) {
	logger.LogPhase("llvm")
	g := &generator{
		src:        mod,
		m:          ll.NewModule(),
		funcs:      make(map[string]*ll.Func, len(mod.Funcs)),
		runtime:    make(map[string]*ll.Func),
		intrinsics: make(map[string]*ll.Func),
		data:       make(map[string]*ll.Global, len(mod.Data)),
	}
	g.m.TargetTriple = opts.TargetTriple
	if g.m.TargetTriple == "" {
		g.m.TargetTriple = rtabi.DefaultTargetTriple
	}
	g.m.SourceFilename = opts.SourceFile

	for _, d := range mod.Data {
		g.declareData(d)
	}
	for _, f := range mod.Funcs {
		g.declareFunc(f)
	}
	for _, f := range mod.Funcs {
		if err := g.lowerFunc(f); err != nil {
			return nil, errors.Wrapf(err, "lower %s", f.Name)
		}
		logger.LogCodeGen("llvm", f.Name, f.NumValues())
	}
	if mod.Entry != "" {
		if err := g.emitMain(mod.Entry); err != nil {
			return nil, err
		}
	}

	logger.LogPhaseComplete("llvm", len(mod.Funcs))
	return &Output{Module: g.m, Libs: append([]string(nil), mod.Libs...)}, nil
}

// symbol returns the LLVM name of a module function. Names that would
// collide with main or a runtime symbol are moved aside.
func symbol(name string) string {
	if name == rtabi.EntrySymbol {
		return "bolide." + name
	}
	if _, ok := rtabi.Lookup(name); ok {
		return "bolide." + name
	}
	return name
}

func (g *generator) declareData(d *ir.Data) {
	var init constant.Constant
	if d.Words != nil {
		elems := make([]constant.Constant, len(d.Words))
		for i, w := range d.Words {
			elems[i] = constant.NewInt(types.I64, w)
		}
		init = constant.NewArray(types.NewArray(uint64(len(elems)), types.I64), elems...)
	} else {
		init = constant.NewCharArray(append([]byte(nil), d.Bytes...))
	}
	glob := g.m.NewGlobalDef(d.Name, init)
	glob.Immutable = true
	glob.Linkage = enum.LinkagePrivate
	g.data[d.Name] = glob
}

func (g *generator) declareFunc(f *ir.Func) {
	params := make([]*ll.Param, len(f.Params))
	for i, c := range f.Params {
		params[i] = ll.NewParam("", llvmType(c))
	}
	fn := g.m.NewFunc(symbol(f.Name), llvmType(f.Result), params...)
	if f.Private {
		fn.Linkage = enum.LinkageInternal
	}
	g.funcs[f.Name] = fn
}

// runtimeFunc declares a runtime symbol on first use.
func (g *generator) runtimeFunc(name string) (*ll.Func, error) {
	if fn, ok := g.runtime[name]; ok {
		return fn, nil
	}
	sig, ok := rtabi.Lookup(name)
	if !ok {
		return nil, errors.Errorf("unknown runtime symbol %s", name)
	}
	params := make([]*ll.Param, len(sig.Params))
	for i, c := range sig.Params {
		params[i] = ll.NewParam("", llvmType(c))
	}
	fn := g.m.NewFunc(name, llvmType(sig.Result), params...)
	g.runtime[name] = fn
	return fn, nil
}

// intrinsic declares an LLVM intrinsic on first use.
func (g *generator) intrinsic(name string, result types.Type, params ...types.Type) *ll.Func {
	if fn, ok := g.intrinsics[name]; ok {
		return fn
	}
	ps := make([]*ll.Param, len(params))
	for i, t := range params {
		ps[i] = ll.NewParam("", t)
	}
	fn := g.m.NewFunc(name, result, ps...)
	g.intrinsics[name] = fn
	return fn
}

// emitMain defines the exported entry symbol around the program entry.
func (g *generator) emitMain(entry string) error {
	user, ok := g.funcs[entry]
	if !ok {
		return errors.Errorf("entry function %s not found", entry)
	}
	initFn, err := g.runtimeFunc(rtabi.FnRuntimeInit)
	if err != nil {
		return err
	}
	finiFn, err := g.runtimeFunc(rtabi.FnRuntimeFini)
	if err != nil {
		return err
	}

	main := g.m.NewFunc(rtabi.EntrySymbol, types.I32)
	b := main.NewBlock("entry")
	b.NewCall(initFn)
	res := b.NewCall(user)
	b.NewCall(finiFn)
	if g.src.Func(entry).Result == rtabi.I64 {
		b.NewRet(b.NewTrunc(res, types.I32))
	} else {
		b.NewRet(constant.NewInt(types.I32, 0))
	}
	return nil
}
