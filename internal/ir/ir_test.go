package ir

import (
	"strings"
	"testing"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// makeAddFunc builds: fn add(x: int, y: int) -> int { return x + y }
func makeAddFunc() *Func {
	f := NewFunc("add", []rtabi.Class{rtabi.I64, rtabi.I64}, rtabi.I64)
	f.ParamNames = []string{"x", "y"}
	b := NewBuilder(f)
	b.Ret(b.Bin(OpAdd, b.Arg(0), b.Arg(1)))
	return f
}

func TestManualConstruct(t *testing.T) {
	f := makeAddFunc()

	if f.NumBlocks() != 1 {
		t.Errorf("NumBlocks = %d, want 1", f.NumBlocks())
	}
	if f.NumValues() != 3 {
		t.Errorf("NumValues = %d, want 3", f.NumValues())
	}
	if f.Entry.Kind != BlockReturn {
		t.Errorf("entry Kind = %v, want ret", f.Entry.Kind)
	}
	add := f.Entry.Values[2]
	if add.Op != OpAdd || add.Uses != 1 {
		t.Errorf("value[2] = %s with %d uses", add.LongString(), add.Uses)
	}
	if err := Verify(f); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestPrintFormat(t *testing.T) {
	got := Sprint(makeAddFunc())
	want := `func add(x i64, y i64) i64:
  b0: (entry)
    v0 = Arg <i64> [0]
    v1 = Arg <i64> [1]
    v2 = Add <i64> v0 v1
    Return v2
`
	if got != want {
		t.Errorf("Sprint output mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrintBranches(t *testing.T) {
	// fn abs(n: int) -> int { if n < 0 { return -n } return n }
	f := NewFunc("abs", []rtabi.Class{rtabi.I64}, rtabi.I64)
	b := NewBuilder(f)
	n := b.Arg(0)
	neg, pos := b.NewBlock(), b.NewBlock()
	b.If(b.Cmp(CondLT, n, b.Const(0)), neg, pos)
	b.SetBlock(neg)
	b.Ret(b.Un(OpNeg, n))
	b.SetBlock(pos)
	b.Ret(n)

	out := Sprint(f)
	for _, want := range []string{
		"v2 = Cmp <i64> [lt] v0 v1",
		"If v2 -> b1 b2",
		"b1: <- b0",
		"v3 = Neg <i64> v0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if err := VerifyDom(f); err != nil {
		t.Errorf("VerifyDom: %v", err)
	}
}

func TestVerifyErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Func
		want  string
	}{
		{
			name: "float op on ints",
			build: func() *Func {
				f := NewFunc("f", nil, rtabi.F64)
				b := NewBuilder(f)
				x := b.Const(1)
				b.Ret(f.NewValue(f.Entry, OpFAdd, rtabi.F64, x, x))
				return f
			},
			want: "want f64",
		},
		{
			name: "unknown runtime function",
			build: func() *Func {
				f := NewFunc("f", nil, rtabi.Void)
				v := f.NewValue(f.Entry, OpCallRT, rtabi.Void)
				v.Aux = "no_such_symbol"
				f.Entry.Kind = BlockReturn
				return f
			},
			want: "unknown runtime function",
		},
		{
			name: "runtime arity",
			build: func() *Func {
				f := NewFunc("f", nil, rtabi.Void)
				v := f.NewValue(f.Entry, OpCallRT, rtabi.Void)
				v.Aux = "print_int"
				f.Entry.Kind = BlockReturn
				return f
			},
			want: "has 0 args, want 1",
		},
		{
			name: "wrong return class",
			build: func() *Func {
				f := NewFunc("f", nil, rtabi.I64)
				b := NewBuilder(f)
				b.Ret(b.ConstF(1.5))
				return f
			},
			want: "returns f64, want i64",
		},
		{
			name: "plain block without successor",
			build: func() *Func {
				return NewFunc("f", nil, rtabi.Void)
			},
			want: "plain block has 0 succs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.build())
			if err == nil {
				t.Fatal("expected verification error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestVerifyDomViolation(t *testing.T) {
	f := NewFunc("f", []rtabi.Class{rtabi.I64}, rtabi.I64)
	b := NewBuilder(f)
	then, els, merge := b.NewBlock(), b.NewBlock(), b.NewBlock()
	b.If(b.Arg(0), then, els)
	b.SetBlock(then)
	x := b.Const(7)
	b.Jump(merge)
	b.SetBlock(els)
	b.Jump(merge)
	b.SetBlock(merge)
	b.Ret(b.Bin(OpAdd, x, x))

	if err := Verify(f); err != nil {
		t.Fatalf("structural verify: %v", err)
	}
	err := VerifyDom(f)
	if err == nil || !strings.Contains(err.Error(), "does not dominate") {
		t.Errorf("VerifyDom = %v, want dominance violation", err)
	}
}

func TestFinishClosesBlocks(t *testing.T) {
	f := NewFunc("f", nil, rtabi.F64)
	b := NewBuilder(f)
	b.Trap("unreachable")
	b.Const(1) // opens an orphan block
	b.Finish()

	if len(f.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(f.Blocks))
	}
	orphan := f.Blocks[1]
	if orphan.Kind != BlockReturn || orphan.Controls[0].Op != OpConstF {
		t.Errorf("orphan block = %s %v", orphan.Kind, orphan.Controls)
	}
	if err := Verify(f); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifyModule(t *testing.T) {
	m := NewModule()
	if err := m.AddFunc(makeAddFunc()); err != nil {
		t.Fatal(err)
	}
	if err := m.AddFunc(makeAddFunc()); err == nil {
		t.Error("duplicate function accepted")
	}

	main := NewFunc("main", nil, rtabi.I64)
	b := NewBuilder(main)
	sum := b.Call("add", rtabi.I64, b.Const(1), b.Const(2))
	b.CallRT("print_int", sum)
	b.Call("missing", rtabi.Void)
	b.Ret(b.Const(0))
	if err := m.AddFunc(main); err != nil {
		t.Fatal(err)
	}
	m.Entry = "main"

	err := VerifyModule(m)
	if err == nil || !strings.Contains(err.Error(), `unknown function "missing"`) {
		t.Errorf("VerifyModule = %v, want unknown function error", err)
	}
	if got := m.RuntimeSymbols(); len(got) != 1 || got[0] != "print_int" {
		t.Errorf("RuntimeSymbols = %v", got)
	}
}

func TestDataContents(t *testing.T) {
	m := NewModule()
	d := m.AddData(&Data{Name: "desc.Box", Words: []int64{2, 1, 4}})
	if again := m.AddData(&Data{Name: "desc.Box"}); again != d {
		t.Error("AddData did not reuse the existing object")
	}
	buf := d.Contents()
	if d.Len() != 24 || len(buf) != 24 || buf[0] != 2 || buf[8] != 1 || buf[16] != 4 {
		t.Errorf("Contents = %v", buf)
	}
	m.AddLib("libm.so.6")
	m.AddLib("libm.so.6")
	if len(m.Libs) != 1 {
		t.Errorf("Libs = %v", m.Libs)
	}
}
