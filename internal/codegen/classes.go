package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/types"
)

// fieldInfo is one 8-byte field slot of a class instance.
type fieldInfo struct {
	name   string
	typ    types.Type
	offset int64
	def    ast.Expr // default value, or nil
	module string   // module the default is evaluated in
}

// classInfo is the layout and method table of a class. Inherited fields
// come first, so a subclass instance is usable wherever its parent is.
type classInfo struct {
	name   string
	link   string
	module string
	def    *ast.ClassDef
	parent *classInfo

	fields []fieldInfo
	size   int64
	desc   string // descriptor data object

	ctor        *funcInfo
	methods     map[string]*funcInfo
	methodOrder []string
}

func (c *classInfo) field(name string) (fieldInfo, bool) {
	for _, f := range c.fields {
		if f.name == name {
			return f, true
		}
	}
	return fieldInfo{}, false
}

// method resolves name from c towards the root of its hierarchy.
func (c *classInfo) method(name string) *funcInfo {
	for k := c; k != nil; k = k.parent {
		if m := k.methods[name]; m != nil {
			return m
		}
	}
	return nil
}

// isA reports whether c is other or one of its subclasses.
func (c *classInfo) isA(other *classInfo) bool {
	for k := c; k != nil; k = k.parent {
		if k == other {
			return true
		}
	}
	return false
}

// layoutClasses orders classes parent first and computes their field
// tables and descriptors.
func (g *generator) layoutClasses(items []item) {
	var defs []item
	for _, it := range items {
		if cd, ok := it.stmt.(*ast.ClassDef); ok {
			key := qualify(it.module, cd.Name)
			if _, dup := g.classes[key]; dup {
				g.errorf(Structural, cd.Pos(), "class %s redeclared", key)
			}
			g.classes[key] = &classInfo{
				name:    key,
				link:    mangle(it.module, cd.Name),
				module:  it.module,
				def:     cd,
				methods: make(map[string]*funcInfo),
			}
			defs = append(defs, it)
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*classInfo]int)
	var visit func(c *classInfo)
	visit = func(c *classInfo) {
		switch state[c] {
		case done:
			return
		case visiting:
			g.errorf(Structural, c.def.Pos(), "inheritance cycle through class %s", c.name)
		}
		state[c] = visiting
		if c.def.Parent != "" {
			p := g.lookupClass(c.module, c.def.Parent)
			if p == nil {
				g.errorf(Structural, c.def.Pos(), "class %s: unknown parent class %s", c.name, c.def.Parent)
			}
			visit(p)
			c.parent = p
			c.fields = append(c.fields, p.fields...)
		}
		for _, f := range c.def.Fields {
			if _, dup := c.field(f.Name); dup {
				g.errorf(Structural, c.def.Pos(), "class %s: field %s redeclared", c.name, f.Name)
			}
			c.fields = append(c.fields, fieldInfo{
				name:   f.Name,
				typ:    f.Type,
				offset: types.FieldOffset(len(c.fields)),
				def:    f.Default,
				module: c.module,
			})
		}
		c.size = types.ClassSize(len(c.fields))
		state[c] = done
		g.classList = append(g.classList, c)
	}
	for _, it := range defs {
		visit(g.classes[qualify(it.module, it.stmt.(*ast.ClassDef).Name)])
	}

	for _, c := range g.classList {
		words := []int64{int64(len(c.fields))}
		for _, f := range c.fields {
			words = append(words, int64(g.tagOf(f.typ)))
		}
		c.desc = "__desc." + c.link
		g.mod.AddData(&ir.Data{Name: c.desc, Words: words})
	}
}

// compileConstructor emits the constructor of c: it allocates the
// instance and stores each argument into its field. Arguments arrive owned,
// so no retains are needed; weak fields take a weak reference instead.
func (g *generator) compileConstructor(c *classInfo) {
	g.curFunc = c.ctor.name
	b := ir.NewBuilder(c.ctor.ir)
	obj := b.CallRT(rtabi.FnObjectAlloc, b.Const(c.size), b.Data(c.desc))
	for i, f := range c.fields {
		arg := b.Arg(i)
		if _, weak := f.typ.(*types.Weak); weak {
			b.CallRT("object_weak_retain", arg)
		}
		b.Store(obj, f.offset, arg)
	}
	b.Ret(obj)
	b.Finish()
	logger.LogCodeGen("ir", c.ctor.link, c.ctor.ir.NumValues())
}
