// Package codegen lowers a merged Bolide program into the backend-neutral
// IR of package ir. It inserts the reference-counting operations of the
// ARC model, synthesizes spawn trampolines and class constructors, bridges
// extern declarations to foreign calls and enforces lifetime clauses.
package codegen

import (
	"fmt"

	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/types"
)

// Options configures Generate.
type Options struct {
	// Load returns the program named by an import path. Programs with
	// imports fail to compile when it is nil.
	Load func(path string) (*ast.Program, error)
}

// generator holds module-wide state for one Generate call.
type generator struct {
	opts Options
	mod  *ir.Module

	funcs     map[string]*funcInfo // keyed by qualified source name
	funcList  []*funcInfo
	classes   map[string]*classInfo
	classList []*classInfo
	externs   map[string]*externFunc
	structs   map[string]*ast.ExternStruct
	typedefs  map[string]*ast.CType
	modules   map[string]bool

	trampolines map[string]string // spawn target link name -> trampoline
	literals    map[string]string // string contents -> data object

	top []ast.Stmt // top-level statements of the main program

	curFunc string
}

// Generate compiles prog into an IR module whose entry function runs the
// top-level statements. The first error aborts compilation; no partial
// module is returned.
func Generate(prog *ast.Program, opts Options) (mod *ir.Module, err error) {
	g := &generator{
		opts:        opts,
		mod:         ir.NewModule(),
		funcs:       make(map[string]*funcInfo),
		classes:     make(map[string]*classInfo),
		externs:     make(map[string]*externFunc),
		structs:     make(map[string]*ast.ExternStruct),
		typedefs:    make(map[string]*ast.CType),
		modules:     make(map[string]bool),
		trampolines: make(map[string]string),
		literals:    make(map[string]string),
	}
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			mod, err = nil, b.err
		}
	}()
	g.run(prog)
	return g.mod, nil
}

func (g *generator) run(prog *ast.Program) {
	logger.LogPhase("import merging")
	items := g.mergeImports(prog)
	logger.LogPhaseComplete("import merging", len(items))

	logger.LogPhase("runtime symbols")
	logger.LogPhaseComplete("runtime symbols", len(rtabi.RuntimeFunctions()))

	logger.LogPhase("extern blocks")
	for _, it := range items {
		if eb, ok := it.stmt.(*ast.ExternBlock); ok {
			g.declareExterns(eb)
		}
	}
	logger.LogPhaseComplete("extern blocks", len(g.externs))

	logger.LogPhase("class layout")
	g.layoutClasses(items)
	logger.LogPhaseComplete("class layout", len(g.classList))

	logger.LogPhase("function declarations")
	g.declareFuncs(items)
	logger.LogPhaseComplete("function declarations", len(g.funcList))

	logger.LogPhase("spawn targets")
	n := g.synthesizeTrampolines(items)
	logger.LogPhaseComplete("spawn targets", n)

	logger.LogPhase("class constructors")
	for _, c := range g.classList {
		g.compileConstructor(c)
	}
	logger.LogPhaseComplete("class constructors", len(g.classList))

	logger.LogPhase("class methods")
	methods := 0
	for _, c := range g.classList {
		for _, name := range c.methodOrder {
			g.compileFunc(c.methods[name])
			methods++
		}
	}
	logger.LogPhaseComplete("class methods", methods)

	logger.LogPhase("function bodies")
	for _, fi := range g.funcList {
		if fi.class == nil {
			g.compileFunc(fi)
		}
	}
	g.compileEntry()
	logger.LogPhaseComplete("function bodies", len(g.mod.Funcs))
	g.curFunc = ""
}

// compileEntry wraps the top-level statements of the main program into
// the user entry function, which returns int.
func (g *generator) compileEntry() {
	fi := &funcInfo{
		name:   rtabi.UserEntry,
		link:   rtabi.UserEntry,
		result: types.Typ[types.Int],
		def:    &ast.FuncDef{Name: rtabi.UserEntry, Body: g.top},
	}
	g.declareIR(fi)
	g.compileFunc(fi)
	g.mod.Entry = rtabi.UserEntry
}

// isRC reports whether values of t are strong references managed by ARC.
// Extern structs are raw blocks and are not counted.
func (g *generator) isRC(t types.Type) bool {
	if c, ok := t.(*types.Class); ok {
		if _, isStruct := g.structs[c.Name()]; isStruct {
			return false
		}
	}
	return types.IsRC(t)
}

// tagOf returns the runtime tag used for container slots of type t.
func (g *generator) tagOf(t types.Type) rtabi.Tag {
	if types.IsClass(t) && !g.isRC(t) {
		return rtabi.TagNone
	}
	if types.IsKind(t, types.Bool) {
		return rtabi.TagBool
	}
	return types.TagOf(t)
}

// literal returns the data object holding the bytes of s.
func (g *generator) literal(s string) string {
	if name, ok := g.literals[s]; ok {
		return name
	}
	name := fmt.Sprintf("__str.%d", len(g.literals))
	g.literals[s] = name
	g.mod.AddData(&ir.Data{Name: name, Bytes: []byte(s)})
	return name
}
