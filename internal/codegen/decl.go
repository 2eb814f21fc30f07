package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/types"
)

// funcInfo describes a user function, method or class constructor.
type funcInfo struct {
	name     string // qualified source name, Class.method for methods
	link     string // IR symbol
	module   string
	def      *ast.FuncDef // nil for constructors
	params   []ast.Param  // self first for methods
	result   types.Type   // nil for none
	async    bool
	lifetime []string
	class    *classInfo // receiver class of a method, or the constructed class
	ctor     bool

	ir *ir.Func
}

func paramClass(p ast.Param) rtabi.Class {
	if p.Mode == ast.Ref {
		return rtabi.Ptr
	}
	if c := types.ValueClass(p.Type); c != rtabi.Void {
		return c
	}
	return rtabi.I64
}

func (fi *funcInfo) resultClass() rtabi.Class {
	return types.ValueClass(fi.result)
}

// sig returns the indirect-call signature of fi.
func (fi *funcInfo) sig() *ir.Sig {
	s := &ir.Sig{Result: fi.resultClass()}
	for _, p := range fi.params {
		s.Params = append(s.Params, paramClass(p))
	}
	return s
}

// funcType returns the source-level type of fi used as a value.
func (fi *funcInfo) funcType() *types.Func {
	params := make([]types.Type, len(fi.params))
	for i, p := range fi.params {
		params[i] = p.Type
	}
	return types.NewFunc(params, fi.result)
}

func (fi *funcInfo) hasLifetime() bool { return fi.lifetime != nil }

// clauseParam returns the index of the first parameter named in the
// lifetime clause, or -1.
func (fi *funcInfo) clauseParam() int {
	for i, p := range fi.params {
		for _, name := range fi.lifetime {
			if p.Name == name {
				return i
			}
		}
	}
	return -1
}

// externFunc is a foreign function and the library that provides it.
type externFunc struct {
	lib  string
	decl *ast.ExternFunc
}

func (g *generator) declareExterns(eb *ast.ExternBlock) {
	for _, st := range eb.Structs {
		g.structs[st.Name] = st
	}
	for _, td := range eb.Typedefs {
		g.typedefs[td.Name] = td.Target
	}
	for _, fn := range eb.Funcs {
		if _, dup := g.externs[fn.Name]; dup {
			g.errorf(Structural, eb.Pos(), "extern function %s declared twice", fn.Name)
		}
		g.externs[fn.Name] = &externFunc{lib: eb.Lib, decl: fn}
	}
	g.mod.AddLib(eb.Lib)
}

// normalizeParams gives untyped parameters the int type and drops an
// explicit leading self of a method.
func normalizeParams(params []ast.Param, method bool) []ast.Param {
	if method && len(params) > 0 && params[0].Name == "self" {
		params = params[1:]
	}
	out := make([]ast.Param, len(params))
	for i, p := range params {
		if p.Type == nil {
			p.Type = types.Typ[types.Int]
		}
		out[i] = p
	}
	return out
}

// declareFuncs registers every function, method and constructor and
// creates its IR function with the lowered signature.
func (g *generator) declareFuncs(items []item) {
	for _, it := range items {
		def, ok := it.stmt.(*ast.FuncDef)
		if !ok {
			continue
		}
		key := qualify(it.module, def.Name)
		if _, dup := g.funcs[key]; dup {
			g.errorf(Structural, def.Pos(), "function %s redeclared", key)
		}
		fi := &funcInfo{
			name:     key,
			link:     mangle(it.module, def.Name),
			module:   it.module,
			def:      def,
			params:   normalizeParams(def.Params, false),
			result:   def.Result,
			async:    def.Async,
			lifetime: def.Lifetime,
		}
		g.funcs[key] = fi
		g.funcList = append(g.funcList, fi)
		g.declareIR(fi)
	}

	for _, c := range g.classList {
		ctor := &funcInfo{
			name:   c.name,
			link:   c.link + "__new",
			module: c.module,
			result: types.NewClass(c.name),
			class:  c,
			ctor:   true,
		}
		for _, f := range c.fields {
			mode := ast.Owned
			if !g.isRC(f.typ) {
				mode = ast.Borrow
			}
			ctor.params = append(ctor.params, ast.Param{Name: f.name, Type: f.typ, Mode: mode})
		}
		c.ctor = ctor
		g.declareIR(ctor)

		self := ast.Param{Name: "self", Type: types.NewClass(c.name)}
		for _, m := range c.def.Methods {
			if _, dup := c.methods[m.Name]; dup {
				g.errorf(Structural, m.Pos(), "method %s.%s redeclared", c.name, m.Name)
			}
			fi := &funcInfo{
				name:     c.name + "." + m.Name,
				link:     c.link + "_" + m.Name,
				module:   c.module,
				def:      m,
				params:   append([]ast.Param{self}, normalizeParams(m.Params, true)...),
				result:   m.Result,
				async:    m.Async,
				lifetime: m.Lifetime,
				class:    c,
			}
			c.methods[m.Name] = fi
			c.methodOrder = append(c.methodOrder, m.Name)
			g.funcList = append(g.funcList, fi)
			g.declareIR(fi)
		}
	}
}

// declareIR creates the IR function of fi and adds it to the module.
func (g *generator) declareIR(fi *funcInfo) {
	params := make([]rtabi.Class, len(fi.params))
	names := make([]string, len(fi.params))
	for i, p := range fi.params {
		params[i] = paramClass(p)
		names[i] = p.Name
	}
	f := ir.NewFunc(fi.link, params, fi.resultClass())
	f.ParamNames = names
	f.Private = fi.ctor
	if err := g.mod.AddFunc(f); err != nil {
		pos := ast.Pos{}
		if fi.def != nil {
			pos = fi.def.Pos()
		}
		g.errorf(Structural, pos, "%v", err)
	}
	fi.ir = f
}

// lookupFunc resolves a function name seen in module.
func (g *generator) lookupFunc(module, name string) *funcInfo {
	if module != "" {
		if fi := g.funcs[qualify(module, name)]; fi != nil {
			return fi
		}
	}
	return g.funcs[name]
}

// lookupClass resolves a class name seen in module.
func (g *generator) lookupClass(module, name string) *classInfo {
	if module != "" {
		if c := g.classes[qualify(module, name)]; c != nil {
			return c
		}
	}
	return g.classes[name]
}
