package ir

import "fmt"

// BlockKind describes how a basic block terminates.
type BlockKind int

const (
	BlockInvalid BlockKind = iota
	BlockPlain             // unconditional jump to Succs[0]
	BlockIf                // if Controls[0] != 0 then Succs[0] else Succs[1]
	BlockReturn            // function return; Controls[0] = return value (may be nil)
	BlockTrap              // runtime fault; Reason describes it; no successors
)

var blockKindNames = [...]string{
	BlockInvalid: "invalid",
	BlockPlain:   "plain",
	BlockIf:      "if",
	BlockReturn:  "ret",
	BlockTrap:    "trap",
}

// String returns the string representation of the block kind.
func (k BlockKind) String() string {
	if int(k) < len(blockKindNames) {
		return blockKindNames[k]
	}
	return "unknown"
}

// Block represents a basic block in the control flow graph.
type Block struct {
	// ID is a unique identifier within the containing Func.
	ID ID

	// Kind describes how this block terminates.
	Kind BlockKind

	// Controls holds the terminator's operand values.
	Controls []*Value

	// Succs lists the successor blocks; for BlockIf Succs[0] is the then edge.
	Succs []*Block

	// Preds lists the predecessor blocks in the CFG.
	Preds []*Block

	// Values is the ordered list of values computed in this block.
	Values []*Value

	// Func is the function containing this block.
	Func *Func

	// Reason is the message of a BlockTrap.
	Reason string

	// Dominance tree, filled by ComputeDom.
	Idom     *Block
	Dominees []*Block
}

// String returns a short string representation (e.g., "b3").
func (b *Block) String() string {
	return fmt.Sprintf("b%d", b.ID)
}

// AddSucc adds a successor block, updating both Succs and the successor's Preds.
func (b *Block) AddSucc(succ *Block) {
	b.Succs = append(b.Succs, succ)
	succ.Preds = append(succ.Preds, b)
}

// SetControl sets the branch/return control value.
func (b *Block) SetControl(v *Value) {
	for _, old := range b.Controls {
		if old != nil {
			old.Uses--
		}
	}
	b.Controls = []*Value{v}
	if v != nil {
		v.Uses++
	}
}

// Terminated reports whether the block already has its final kind.
func (b *Block) Terminated() bool {
	return b.Kind == BlockReturn || b.Kind == BlockTrap || len(b.Succs) > 0
}

// NumSuccs returns the number of successor blocks.
func (b *Block) NumSuccs() int { return len(b.Succs) }

// NumPreds returns the number of predecessor blocks.
func (b *Block) NumPreds() int { return len(b.Preds) }

// NumValues returns the number of values in this block.
func (b *Block) NumValues() int { return len(b.Values) }
