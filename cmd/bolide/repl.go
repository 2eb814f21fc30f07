package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/codegen"
	"github.com/bolide-lang/bolide/internal/ir"
	bolidert "github.com/bolide-lang/bolide/internal/runtime"
)

const replHelp = `Enter statements as JSON objects, for example
  {"kind": "expr", "x": {"kind": "int", "value": 42}}
Definitions (fn, class, extern, import) and let bindings are kept and
recompiled with every later input. Expressions print nonzero int results.

Commands:
  help         show this message
  clear        forget all definitions and bindings
  :ir          print the IR of the last compile
  exit, quit   leave the REPL`

// repl is an interactive session. Every input recompiles the whole
// accumulated program.
type repl struct {
	in     *bufio.Reader
	out    io.Writer
	prompt bool

	defs    []ast.Stmt // functions, classes, externs, imports
	globals []ast.Stmt // let bindings
	lastIR  string
}

// runREPL reads statements from in until EOF or exit. Prompts are shown
// only when interactive.
func runREPL(in io.Reader, out io.Writer, interactive bool) int {
	r := &repl{in: bufio.NewReader(in), out: out, prompt: interactive}
	if interactive {
		fmt.Fprintf(out, "Bolide %s REPL. Type help for commands.\n", Version)
	}
	for {
		src, ok := r.read()
		if !ok {
			return exitOK
		}
		switch strings.TrimSpace(src) {
		case "":
			continue
		case "exit", "quit":
			return exitOK
		case "help":
			fmt.Fprintln(out, replHelp)
			continue
		case "clear":
			r.defs, r.globals, r.lastIR = nil, nil, ""
			continue
		case ":ir":
			fmt.Fprint(out, r.lastIR)
			continue
		}
		r.eval(src)
	}
}

// read returns one complete input, continuing over lines until every
// brace and bracket is closed.
func (r *repl) read() (string, bool) {
	var sb strings.Builder
	depth := 0
	for {
		if r.prompt {
			if sb.Len() == 0 {
				fmt.Fprint(r.out, ">>> ")
			} else {
				fmt.Fprint(r.out, "... ")
			}
		}
		line, err := r.in.ReadString('\n')
		if line == "" && err != nil {
			if sb.Len() > 0 {
				return sb.String(), true
			}
			return "", false
		}
		sb.WriteString(line)
		depth += braceDepth(line)
		if depth <= 0 {
			return sb.String(), true
		}
	}
}

// braceDepth returns the change in nesting of {} and [] over s, ignoring
// brackets inside string literals.
func braceDepth(s string) int {
	depth := 0
	inString, escaped := false, false
	for _, c := range s {
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
		}
	}
	return depth
}

func (r *repl) errorf(format string, args ...any) {
	fmt.Fprintf(r.out, "error: "+format+"\n", args...)
}

func (r *repl) eval(src string) {
	prog, err := ast.ParseProgram([]byte("["+src+"]"), "<repl>")
	if err != nil {
		r.errorf("%v", err)
		return
	}
	for _, s := range prog.Stmts {
		switch s := s.(type) {
		case *ast.FuncDef, *ast.ClassDef, *ast.ExternBlock, *ast.Import:
			if _, err := r.compile(s, nil); err != nil {
				r.errorf("%v", err)
				continue
			}
			r.defs = append(r.defs, s)
		case *ast.VarDecl:
			if _, err := r.compile(nil, s); err != nil {
				r.errorf("%v", err)
				continue
			}
			r.globals = append(r.globals, s)
		case *ast.ExprStmt:
			r.evalExpr(s)
		default:
			r.run(s)
		}
	}
}

// evalExpr runs an expression statement. Int expressions are returned from
// the entry so their value can be shown; anything else runs as a statement.
func (r *repl) evalExpr(s *ast.ExprStmt) {
	mod, err := r.compile(nil, nil, &ast.Return{Value: s.X})
	if _, isCompileErr := err.(*codegen.Error); isCompileErr {
		r.run(s)
		return
	}
	if err != nil {
		r.errorf("%v", err)
		return
	}
	code, err := execute(mod, r.in, r.out)
	if err != nil {
		r.report(err)
		return
	}
	if code != 0 {
		fmt.Fprintln(r.out, code)
	}
}

func (r *repl) run(s ast.Stmt) {
	mod, err := r.compile(nil, nil, s)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	if _, err := execute(mod, r.in, r.out); err != nil {
		r.report(err)
	}
}

func (r *repl) report(err error) {
	if _, ok := err.(*bolidert.Trap); ok {
		fmt.Fprintln(r.out, err)
		return
	}
	r.errorf("%v", err)
}

// compile builds the accumulated program plus def, global and body.
func (r *repl) compile(def, global ast.Stmt, body ...ast.Stmt) (*ir.Module, error) {
	prog := &ast.Program{Path: "<repl>"}
	prog.Stmts = append(prog.Stmts, r.defs...)
	if def != nil {
		prog.Stmts = append(prog.Stmts, def)
	}
	prog.Stmts = append(prog.Stmts, r.globals...)
	if global != nil {
		prog.Stmts = append(prog.Stmts, global)
	}
	prog.Stmts = append(prog.Stmts, body...)

	mod, err := build(prog)
	if err != nil {
		return nil, err
	}
	r.lastIR = ir.SprintModule(mod)
	return mod, nil
}
