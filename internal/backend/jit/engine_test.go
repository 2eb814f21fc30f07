package jit

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/runtime"
)

func newRuntime() (*runtime.Runtime, *bytes.Buffer) {
	var out bytes.Buffer
	rt := runtime.New(runtime.Options{Stdout: &out, Stdin: strings.NewReader("")})
	return rt, &out
}

func linkFuncs(t *testing.T, fns ...*ir.Func) (*Engine, *bytes.Buffer) {
	t.Helper()
	mod := ir.NewModule()
	for _, f := range fns {
		if err := mod.AddFunc(f); err != nil {
			t.Fatalf("AddFunc: %v", err)
		}
	}
	if err := ir.VerifyModule(mod); err != nil {
		t.Fatalf("VerifyModule: %v", err)
	}
	rt, out := newRuntime()
	e, err := New(mod, rt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, out
}

// fn fact(n: int) -> int { if n <= 1 { return 1 } return n * fact(n - 1) }
func factFunc() *ir.Func {
	f := ir.NewFunc("fact", []rtabi.Class{rtabi.I64}, rtabi.I64)
	b := ir.NewBuilder(f)
	n := b.Arg(0)
	base, rec := b.NewBlock(), b.NewBlock()
	b.If(b.Cmp(ir.CondLE, n, b.Const(1)), base, rec)
	b.SetBlock(base)
	b.Ret(b.Const(1))
	b.SetBlock(rec)
	m := b.Arg(0)
	r := b.Call("fact", rtabi.I64, b.Bin(ir.OpSub, m, b.Const(1)))
	b.Ret(b.Bin(ir.OpMul, m, r))
	b.Finish()
	return f
}

func TestCallRecursive(t *testing.T) {
	e, _ := linkFuncs(t, factFunc())
	tests := []struct{ n, want int64 }{{0, 1}, {1, 1}, {5, 120}, {10, 3628800}}
	for _, tt := range tests {
		got, err := e.Call("fact", uint64(tt.n))
		if err != nil {
			t.Fatalf("fact(%d): %v", tt.n, err)
		}
		if int64(got) != tt.want {
			t.Errorf("fact(%d) = %d, want %d", tt.n, int64(got), tt.want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ir.Builder) *ir.Value
		want  uint64
	}{
		{"neg", func(b *ir.Builder) *ir.Value { return b.Un(ir.OpNeg, b.Const(5)) }, uint64(1<<64 - 5)},
		{"rem", func(b *ir.Builder) *ir.Value { return b.Bin(ir.OpRem, b.Const(-7), b.Const(3)) }, uint64(1<<64 - 1)},
		{"sext8", func(b *ir.Builder) *ir.Value { return b.Ext(ir.OpSExt, b.Const(0xff), 8) }, uint64(1<<64 - 1)},
		{"zext8", func(b *ir.Builder) *ir.Value { return b.Ext(ir.OpZExt, b.Const(-1), 8) }, 0xff},
		{"ftoi", func(b *ir.Builder) *ir.Value { return b.Un(ir.OpFToI, b.ConstF(-2.75)) }, uint64(1<<64 - 2)},
		{"floor", func(b *ir.Builder) *ir.Value {
			return b.Un(ir.OpFToI, b.Un(ir.OpFloor, b.ConstF(-2.25)))
		}, uint64(1<<64 - 3)},
		{"fcmp nan", func(b *ir.Builder) *ir.Value {
			nan := b.ConstF(math.NaN())
			return b.FCmp(ir.CondEQ, nan, nan)
		}, 0},
		{"demote", func(b *ir.Builder) *ir.Value {
			return b.Un(ir.OpFBits, b.Un(ir.OpFDemote, b.ConstF(0.1)))
		}, math.Float64bits(float64(float32(0.1)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ir.NewFunc("f", nil, rtabi.I64)
			b := ir.NewBuilder(f)
			b.Ret(tt.build(b))
			e, _ := linkFuncs(t, f)
			got, err := e.Call("f")
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestDivisionByZeroTraps(t *testing.T) {
	f := ir.NewFunc("div", []rtabi.Class{rtabi.I64}, rtabi.I64)
	b := ir.NewBuilder(f)
	b.Ret(b.Bin(ir.OpDiv, b.Const(10), b.Arg(0)))
	e, _ := linkFuncs(t, f)

	if got, err := e.Call("div", 2); err != nil || got != 5 {
		t.Fatalf("div(2) = %d, %v", got, err)
	}
	_, err := e.Call("div", 0)
	trap, ok := err.(*runtime.Trap)
	if !ok {
		t.Fatalf("div(0) error = %v, want a trap", err)
	}
	if !strings.Contains(trap.Msg, "division by zero") {
		t.Errorf("trap message = %q", trap.Msg)
	}
}

// Slots are heap words: a callee can write through the address of a
// caller's slot.
func TestSlotsAndRefArguments(t *testing.T) {
	inc := ir.NewFunc("inc", []rtabi.Class{rtabi.Ptr}, rtabi.Void)
	b := ir.NewBuilder(inc)
	p := b.Arg(0)
	b.Store(p, 0, b.Bin(ir.OpAdd, b.Load(p, 0, rtabi.I64), b.Const(1)))
	b.Ret(nil)

	f := ir.NewFunc("f", nil, rtabi.I64)
	f.NewSlot(1)
	b = ir.NewBuilder(f)
	b.Store(b.Slot(0), 0, b.Const(41))
	b.Call("inc", rtabi.Void, b.Slot(0))
	b.Ret(b.Load(b.Slot(0), 0, rtabi.I64))

	e, _ := linkFuncs(t, inc, f)
	got, err := e.Call("f")
	if err != nil || got != 42 {
		t.Fatalf("f() = %d, %v; want 42", got, err)
	}
	if n := e.Runtime().Stats().Total(); n != 0 {
		t.Errorf("%d heap objects live after the call, want 0 (frames leak)", n)
	}
}

func TestIndirectCall(t *testing.T) {
	f := ir.NewFunc("f", nil, rtabi.I64)
	b := ir.NewBuilder(f)
	sig := &ir.Sig{Params: []rtabi.Class{rtabi.I64}, Result: rtabi.I64}
	b.Ret(b.CallInd(sig, b.FuncAddr("fact"), b.Const(4)))

	e, _ := linkFuncs(t, factFunc(), f)
	got, err := e.Call("f")
	if err != nil || got != 24 {
		t.Fatalf("f() = %d, %v; want 24", got, err)
	}

	_, err = e.Call("bad")
	if err == nil {
		t.Error("calling an unknown function succeeded")
	}
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Invoke of an untagged pointer did not trap")
			}
		}()
		e.Invoke(e.Runtime().Main(), 3)
	}()
}

func TestRuntimeCallsAndData(t *testing.T) {
	mod := ir.NewModule()
	mod.AddData(&ir.Data{Name: "__str.0", Bytes: []byte("hello")})
	f := ir.NewFunc(rtabi.UserEntry, nil, rtabi.I64)
	b := ir.NewBuilder(f)
	s := b.CallRT(rtabi.FnStringLiteral, b.Data("__str.0"), b.Const(5))
	b.CallRT("print_string", s)
	b.CallRT("string_release", s)
	b.CallRT("print_float", b.ConstF(1.5))
	b.Ret(b.Const(7))
	if err := mod.AddFunc(f); err != nil {
		t.Fatal(err)
	}
	mod.Entry = rtabi.UserEntry

	rt, out := newRuntime()
	e, err := New(mod, rt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	run, err := e.Entry()
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	code, err := run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
	if got, want := out.String(), "hello\n1.5\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if n := rt.Stats().Total(); n != 0 {
		t.Errorf("%d heap objects live after shutdown", n)
	}
}

func TestLinkErrors(t *testing.T) {
	f := ir.NewFunc("f", nil, rtabi.I64)
	b := ir.NewBuilder(f)
	b.Ret(b.Call("missing", rtabi.I64))
	mod := ir.NewModule()
	if err := mod.AddFunc(f); err != nil {
		t.Fatal(err)
	}
	rt, _ := newRuntime()
	if _, err := New(mod, rt); err == nil || !strings.Contains(err.Error(), "undefined function missing") {
		t.Errorf("New error = %v, want undefined function", err)
	}

	mod = ir.NewModule()
	mod.Entry = "nope"
	e, err := New(mod, rt)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Entry(); err == nil {
		t.Error("Entry succeeded without an entry function")
	}
}

func TestTrapBlockInEntry(t *testing.T) {
	f := ir.NewFunc(rtabi.UserEntry, nil, rtabi.I64)
	b := ir.NewBuilder(f)
	b.Trap("unreachable code")
	mod := ir.NewModule()
	if err := mod.AddFunc(f); err != nil {
		t.Fatal(err)
	}
	mod.Entry = rtabi.UserEntry
	rt, _ := newRuntime()
	e, err := New(mod, rt)
	if err != nil {
		t.Fatal(err)
	}
	run, _ := e.Entry()
	if _, err := run(); err == nil || !strings.Contains(err.Error(), "unreachable code") {
		t.Errorf("run error = %v, want the trap reason", err)
	}
}
