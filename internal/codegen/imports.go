package codegen

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bolide-lang/bolide/internal/ast"
)

// item is a top-level declaration together with the module it came from;
// module is empty for the main program and for extern blocks.
type item struct {
	stmt   ast.Stmt
	module string
}

// mergeImports flattens prog and the programs it imports into one list of
// declarations. Each path is loaded once. Top-level statements of imported
// programs are dropped; those of the main program form the entry function.
func (g *generator) mergeImports(prog *ast.Program) []item {
	var items []item
	loaded := make(map[string]bool)

	var visit func(p *ast.Program, module string)
	visit = func(p *ast.Program, module string) {
		for _, st := range p.Stmts {
			switch st := st.(type) {
			case *ast.Import:
				alias := moduleName(st)
				g.modules[alias] = true
				if loaded[st.Path] {
					continue
				}
				loaded[st.Path] = true
				if g.opts.Load == nil {
					g.errorf(Structural, st.Pos(), "cannot import %q: no loader configured", st.Path)
				}
				sub, err := g.opts.Load(st.Path)
				if err != nil {
					panic(bailout{errors.Wrapf(err, "import %q", st.Path)})
				}
				visit(sub, alias)
			case *ast.FuncDef, *ast.ClassDef:
				items = append(items, item{stmt: st, module: module})
			case *ast.ExternBlock:
				items = append(items, item{stmt: st})
			default:
				if module == "" {
					g.top = append(g.top, st)
				}
			}
		}
	}
	visit(prog, "")
	return items
}

// moduleName returns the name an import is referred to by: its alias, or
// the base name of its path without extension.
func moduleName(imp *ast.Import) string {
	if imp.Alias != "" {
		return imp.Alias
	}
	base := filepath.Base(imp.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// qualify returns the registry key of name declared in module.
func qualify(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}

// mangle returns the link name of name declared in module.
func mangle(module, name string) string {
	if module == "" {
		return name
	}
	return module + "_" + name
}

// FileLoader returns an import loader reading JSON programs. Relative
// paths are tried against each root in order; a missing extension
// defaults to .json.
func FileLoader(roots ...string) func(path string) (*ast.Program, error) {
	return func(path string) (*ast.Program, error) {
		if filepath.Ext(path) == "" {
			path += ".json"
		}
		candidates := []string{path}
		if !filepath.IsAbs(path) {
			candidates = candidates[:0]
			for _, root := range roots {
				if root != "" {
					candidates = append(candidates, filepath.Join(root, path))
				}
			}
			candidates = append(candidates, path)
		}
		for _, c := range candidates {
			f, err := os.Open(c)
			if os.IsNotExist(err) {
				continue
			}
			if err != nil {
				return nil, errors.Wrap(err, "open module")
			}
			prog, err := ast.DecodeProgram(f, c)
			f.Close()
			return prog, err
		}
		return nil, errors.Errorf("module %s not found", path)
	}
}
