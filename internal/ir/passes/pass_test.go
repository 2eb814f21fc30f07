package passes

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

func voidFunc() *ir.Func {
	f := ir.NewFunc("f", nil, rtabi.Void)
	f.Entry.Kind = ir.BlockReturn
	return f
}

func TestRunEmpty(t *testing.T) {
	if err := Run(voidFunc(), nil, Config{}); err != nil {
		t.Fatalf("Run with no passes: %v", err)
	}
}

func TestRunMultiplePasses(t *testing.T) {
	var order []string
	passes := []Pass{
		{Name: "first", Fn: func(*ir.Func) int { order = append(order, "first"); return 0 }},
		{Name: "second", Fn: func(*ir.Func) int { order = append(order, "second"); return 0 }},
	}

	if err := Run(voidFunc(), passes, Config{Verify: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("pass order = %v, want [first second]", order)
	}
}

func TestRunVerifyCatchesBrokenPass(t *testing.T) {
	breaker := Pass{Name: "breaker", Fn: func(f *ir.Func) int {
		f.Entry.Kind = ir.BlockPlain
		return 1
	}}
	err := Run(voidFunc(), []Pass{breaker}, Config{Verify: true})
	if err == nil || !strings.Contains(err.Error(), "verify after breaker") {
		t.Errorf("Run = %v, want verify-after error", err)
	}
}

func TestRunDumps(t *testing.T) {
	var buf bytes.Buffer
	noop := Pass{Name: "noop", Fn: func(*ir.Func) int { return 0 }}
	if err := Run(voidFunc(), []Pass{noop}, Config{DumpBefore: "*", DumpAfter: "noop", Out: &buf}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "--- before noop (f) ---") || !strings.Contains(out, "--- after noop (f) ---") {
		t.Errorf("dump output:\n%s", out)
	}

	buf.Reset()
	if err := Run(voidFunc(), []Pass{noop}, Config{DumpAfter: "*", DumpFunc: "other", Out: &buf}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("dump ignored the function filter:\n%s", buf.String())
	}
}
