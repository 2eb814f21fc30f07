package llvm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/codegen"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

func lower(t *testing.T, mod *ir.Module) string {
	t.Helper()
	out, err := Lower(mod, Options{SourceFile: "test.json"})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.String()
}

func compile(t *testing.T, src string) *ir.Module {
	t.Helper()
	prog, err := ast.ParseProgram([]byte(src), "test.json")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	mod, err := codegen.Generate(prog, codegen.Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return mod
}

func assertContains(t *testing.T, text string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(text, w) {
			t.Errorf("output does not contain %q:\n%s", w, text)
		}
	}
}

func TestLowerProgram(t *testing.T) {
	mod := compile(t, `[
	  {"kind": "fn", "name": "add", "params": [{"name": "a", "type": "int"}, {"name": "b", "type": "int"}], "result": "int",
	   "body": [{"kind": "return", "value": {"kind": "binary", "op": "+",
	     "x": {"kind": "ident", "name": "a"}, "y": {"kind": "ident", "name": "b"}}}]},
	  {"kind": "expr", "x": {"kind": "call", "fun": {"kind": "ident", "name": "print"},
	   "args": [{"kind": "call", "fun": {"kind": "ident", "name": "add"},
	     "args": [{"kind": "int", "value": 3}, {"kind": "int", "value": 4}]}]}}
	]`)
	text := lower(t, mod)
	assertContains(t, text,
		`target triple = "`+rtabi.DefaultTargetTriple+`"`,
		"define i64 @add(",
		"define i64 @"+rtabi.UserEntry+"(",
		"define i32 @main()",
		"declare void @print_int(",
		"call void @runtime_init()",
		"call void @runtime_shutdown()",
		"alloca [",
	)
	if strings.Contains(text, "@llvm.trap") {
		t.Errorf("program without division or traps references llvm.trap:\n%s", text)
	}
}

func TestLowerDivisionGuard(t *testing.T) {
	f := ir.NewFunc("div", []rtabi.Class{rtabi.I64, rtabi.I64}, rtabi.I64)
	b := ir.NewBuilder(f)
	q := b.Bin(ir.OpDiv, b.Arg(0), b.Arg(1))
	b.Ret(b.Bin(ir.OpRem, q, b.Const(7)))
	mod := ir.NewModule()
	if err := mod.AddFunc(f); err != nil {
		t.Fatal(err)
	}

	text := lower(t, mod)
	assertContains(t, text, "sdiv i64", "srem i64", "call void @llvm.trap()", "unreachable")
	// Only the variable divisor is guarded.
	if n := strings.Count(text, "icmp eq i64"); n != 1 {
		t.Errorf("%d zero checks, want 1:\n%s", n, text)
	}
	if strings.Contains(text, "define i32 @main") {
		t.Error("module without entry defines main")
	}
}

func TestLowerMemoryAndPointers(t *testing.T) {
	tramp := ir.NewFunc("__tramp_f", []rtabi.Class{rtabi.Ptr}, rtabi.F64)
	tramp.Private = true
	b := ir.NewBuilder(tramp)
	env := b.Arg(0)
	x := b.Load(env, 8, rtabi.F64)
	b.Store(env, 16, x)
	b.Ret(b.Un(ir.OpFloor, x))

	f := ir.NewFunc("f", nil, rtabi.I64)
	b = ir.NewBuilder(f)
	sig := &ir.Sig{Params: []rtabi.Class{rtabi.Ptr}, Result: rtabi.F64}
	r := b.CallInd(sig, b.FuncAddr("__tramp_f"), b.Const(0))
	b.Ret(b.FCmp(ir.CondNE, r, r))

	mod := ir.NewModule()
	for _, fn := range []*ir.Func{tramp, f} {
		if err := mod.AddFunc(fn); err != nil {
			t.Fatal(err)
		}
	}
	text := lower(t, mod)
	assertContains(t, text,
		"define internal double @__tramp_f(i8*",
		"ptrtoint i8*",
		"inttoptr i64",
		"load double",
		"store double",
		"@llvm.floor.f64",
		"fcmp une double",
	)
}

func TestLowerForeignCall(t *testing.T) {
	mod := compile(t, `[
	  {"kind": "extern", "lib": "libc.so.6", "funcs": [
	    {"name": "abs", "params": [{"name": "x", "type": "c_int"}], "result": "c_int"}]},
	  {"kind": "expr", "x": {"kind": "call", "fun": {"kind": "ident", "name": "print"},
	   "args": [{"kind": "call", "fun": {"kind": "ident", "name": "abs"}, "args": [{"kind": "int", "value": -5}]}]}}
	]`)
	out, err := Lower(mod, Options{TargetTriple: "aarch64-apple-darwin"})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(out.Libs) != 1 || out.Libs[0] != "libc.so.6" {
		t.Errorf("Libs = %v, want [libc.so.6]", out.Libs)
	}
	text := out.Module.String()
	assertContains(t, text,
		`target triple = "aarch64-apple-darwin"`,
		"declare i8* @"+rtabi.FnFFILoad+"(",
		"trunc i64",
		"to i32",
		"sext i32",
	)
}

func TestSymbolCollisions(t *testing.T) {
	tests := []struct{ name, want string }{
		{"add", "add"},
		{"main", "bolide.main"},
		{"print_int", "bolide.print_int"},
		{"Point_sum", "Point_sum"},
	}
	for _, tt := range tests {
		if got := symbol(tt.name); got != tt.want {
			t.Errorf("symbol(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLowerErrors(t *testing.T) {
	f := ir.NewFunc("f", nil, rtabi.I64)
	b := ir.NewBuilder(f)
	b.Ret(b.Call("missing", rtabi.I64))
	mod := ir.NewModule()
	if err := mod.AddFunc(f); err != nil {
		t.Fatal(err)
	}
	if _, err := Lower(mod, Options{}); err == nil || !strings.Contains(err.Error(), "undefined function missing") {
		t.Errorf("Lower error = %v, want undefined function", err)
	}

	mod = ir.NewModule()
	mod.Entry = "nope"
	if _, err := Lower(mod, Options{}); err == nil {
		t.Error("Lower succeeded without the entry function")
	}
}
