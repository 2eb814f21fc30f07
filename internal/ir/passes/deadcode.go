package passes

import "github.com/bolide-lang/bolide/internal/ir"

// DeadBlocks removes blocks unreachable from the entry and returns how many
// were removed.
func DeadBlocks(f *ir.Func) int {
	live := ir.Reachable(f)
	if len(live) == len(f.Blocks) {
		return 0
	}

	kept := f.Blocks[:0]
	removed := 0
	for _, b := range f.Blocks {
		if live[b] {
			kept = append(kept, b)
			continue
		}
		removed++
		for _, s := range b.Succs {
			s.Preds = removeBlock(s.Preds, b)
		}
		for _, v := range b.Values {
			for _, a := range v.Args {
				a.Uses--
			}
		}
		for _, c := range b.Controls {
			if c != nil {
				c.Uses--
			}
		}
		b.Succs, b.Values, b.Controls = nil, nil, nil
	}
	for i := len(kept); i < len(f.Blocks); i++ {
		f.Blocks[i] = nil
	}
	f.Blocks = kept
	return removed
}

func removeBlock(list []*ir.Block, b *ir.Block) []*ir.Block {
	out := list[:0]
	for _, x := range list {
		if x != b {
			out = append(out, x)
		}
	}
	return out
}

// DeadValues removes pure values that nothing uses, repeating until no
// more can be removed, and returns the number removed.
func DeadValues(f *ir.Func) int {
	removed := 0
	for changed := true; changed; {
		changed = false
		for _, b := range f.Blocks {
			kept := b.Values[:0]
			for _, v := range b.Values {
				if v.Uses == 0 && v.IsPure() {
					for _, a := range v.Args {
						a.Uses--
					}
					removed++
					changed = true
					continue
				}
				kept = append(kept, v)
			}
			for i := len(kept); i < len(b.Values); i++ {
				b.Values[i] = nil
			}
			b.Values = kept
		}
	}
	return removed
}
