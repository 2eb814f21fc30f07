package passes

import (
	"testing"

	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

func TestDeadBlocks(t *testing.T) {
	f := ir.NewFunc("f", nil, rtabi.I64)
	b := ir.NewBuilder(f)
	join := b.NewBlock()
	b.Jump(join)
	// code after a return opens an orphan block that jumps to join
	b.SetBlock(join)
	b.Ret(b.Const(1))
	orphan := b.NewBlock()
	b.SetBlock(orphan)
	x := b.Const(2)
	b.Call("g", rtabi.Void, x)
	b.Jump(join)

	if n := DeadBlocks(f); n != 1 {
		t.Fatalf("DeadBlocks removed %d blocks, want 1", n)
	}
	if len(f.Blocks) != 2 {
		t.Errorf("%d blocks left, want 2", len(f.Blocks))
	}
	if len(join.Preds) != 1 || join.Preds[0] != f.Entry {
		t.Errorf("join preds = %v, want [b0]", join.Preds)
	}
	if x.Uses != 0 {
		t.Errorf("uses of removed argument = %d, want 0", x.Uses)
	}
	if err := ir.Verify(f); err != nil {
		t.Errorf("Verify after DeadBlocks: %v", err)
	}
}

func TestDeadValues(t *testing.T) {
	f := ir.NewFunc("f", []rtabi.Class{rtabi.I64}, rtabi.I64)
	b := ir.NewBuilder(f)
	arg := b.Arg(0)
	unused := b.Bin(ir.OpMul, b.Const(3), b.Const(4)) // chain of dead values
	_ = unused
	b.CallRT("print_int", arg) // impure, kept
	b.Bin(ir.OpDiv, arg, b.Const(0))
	b.Ret(arg)

	removed := DeadValues(f)
	if removed != 3 {
		t.Errorf("DeadValues removed %d, want 3", removed)
	}
	var ops []ir.Op
	for _, v := range f.Entry.Values {
		ops = append(ops, v.Op)
	}
	want := []ir.Op{ir.OpArg, ir.OpCallRT, ir.OpConst, ir.OpDiv}
	if len(ops) != len(want) {
		t.Fatalf("remaining ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op[%d] = %v, want %v", i, ops[i], want[i])
		}
	}
}

func TestDefaultPipeline(t *testing.T) {
	m := ir.NewModule()
	f := ir.NewFunc("main", nil, rtabi.I64)
	b := ir.NewBuilder(f)
	b.Const(9)
	b.Ret(b.Const(0))
	b.Const(1)
	b.Finish()
	if err := m.AddFunc(f); err != nil {
		t.Fatal(err)
	}
	m.Entry = "main"

	if err := RunModule(m, Default(), Config{Verify: true}); err != nil {
		t.Fatalf("RunModule: %v", err)
	}
	if len(f.Blocks) != 1 || len(f.Entry.Values) != 1 {
		t.Errorf("after pipeline:\n%s", ir.Sprint(f))
	}
}
