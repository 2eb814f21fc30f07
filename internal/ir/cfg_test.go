package ir

import (
	"testing"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

func voidFunc() *Func {
	return NewFunc("f", nil, rtabi.Void)
}

func TestDomLinearChain(t *testing.T) {
	f := voidFunc()
	b0 := f.Entry
	b1 := f.NewBlock(BlockPlain)
	b2 := f.NewBlock(BlockReturn)
	b0.AddSucc(b1)
	b1.AddSucc(b2)

	ComputeDom(f)

	if b0.Idom != nil || b1.Idom != b0 || b2.Idom != b1 {
		t.Errorf("idoms = %v %v %v", b0.Idom, b1.Idom, b2.Idom)
	}
}

// TestDomDiamond verifies:
//
//	b0
//	├→ b1 ─┐
//	└→ b2 ─┘
//	   b3
func TestDomDiamond(t *testing.T) {
	f := voidFunc()
	b := NewBuilder(f)
	b1, b2, b3 := b.NewBlock(), b.NewBlock(), b.NewBlock()
	b.If(b.Const(1), b1, b2)
	b.SetBlock(b1)
	b.Jump(b3)
	b.SetBlock(b2)
	b.Jump(b3)
	b.SetBlock(b3)
	b.Ret(nil)

	ComputeDom(f)

	for _, blk := range []*Block{b1, b2, b3} {
		if blk.Idom != f.Entry {
			t.Errorf("%s.Idom = %v, want b0", blk, blk.Idom)
		}
	}
	if len(f.Entry.Dominees) != 3 {
		t.Errorf("entry dominates %d blocks, want 3", len(f.Entry.Dominees))
	}
	if !Dominates(f.Entry, b3) || Dominates(b1, b3) {
		t.Error("Dominates disagrees with the diamond shape")
	}
}

// TestDomLoop verifies:
//
//	b0 → b1 → b2
//	      ↑    │
//	      └────┘
//	      b1 → b3
func TestDomLoop(t *testing.T) {
	f := voidFunc()
	b := NewBuilder(f)
	head, body, exit := b.NewBlock(), b.NewBlock(), b.NewBlock()
	b.Jump(head)
	b.SetBlock(head)
	b.If(b.Const(1), body, exit)
	b.SetBlock(body)
	b.Jump(head)
	b.SetBlock(exit)
	b.Ret(nil)

	ComputeDom(f)

	if head.Idom != f.Entry || body.Idom != head || exit.Idom != head {
		t.Errorf("idoms: head=%v body=%v exit=%v", head.Idom, body.Idom, exit.Idom)
	}
}

func TestReversePostOrderSkipsUnreachable(t *testing.T) {
	f := voidFunc()
	b := NewBuilder(f)
	next := b.NewBlock()
	dead := b.NewBlock()
	b.Jump(next)
	b.SetBlock(next)
	b.Ret(nil)
	dead.Kind = BlockReturn

	rpo := ReversePostOrder(f)
	if len(rpo) != 2 || rpo[0] != f.Entry || rpo[1] != next {
		t.Errorf("RPO = %v", rpo)
	}
	if Reachable(f)[dead] {
		t.Error("dead block reported reachable")
	}
}
