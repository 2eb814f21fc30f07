package ir

// ReversePostOrder returns the blocks reachable from f.Entry in reverse
// post-order.
func ReversePostOrder(f *Func) []*Block {
	visited := make(map[*Block]bool, len(f.Blocks))
	order := make([]*Block, 0, len(f.Blocks))

	var dfs func(b *Block)
	dfs = func(b *Block) {
		visited[b] = true
		for _, s := range b.Succs {
			if !visited[s] {
				dfs(s)
			}
		}
		order = append(order, b)
	}
	dfs(f.Entry)

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// Reachable returns the set of blocks reachable from the entry.
func Reachable(f *Func) map[*Block]bool {
	set := make(map[*Block]bool, len(f.Blocks))
	for _, b := range ReversePostOrder(f) {
		set[b] = true
	}
	return set
}

// ComputeDom fills Block.Idom and Block.Dominees for the reachable blocks
// (Cooper, Harvey and Kennedy, "A Simple, Fast Dominance Algorithm").
func ComputeDom(f *Func) {
	rpo := ReversePostOrder(f)
	num := make(map[*Block]int, len(rpo))
	for i, b := range rpo {
		num[b] = i
	}
	for _, b := range f.Blocks {
		b.Idom = nil
		b.Dominees = nil
	}

	entry := rpo[0]
	entry.Idom = entry // sentinel while iterating

	intersect := func(a, b *Block) *Block {
		for a != b {
			for num[a] > num[b] {
				a = a.Idom
			}
			for num[b] > num[a] {
				b = b.Idom
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			var idom *Block
			for _, p := range b.Preds {
				if p.Idom == nil {
					continue
				}
				if idom == nil {
					idom = p
				} else {
					idom = intersect(p, idom)
				}
			}
			if idom != nil && b.Idom != idom {
				b.Idom = idom
				changed = true
			}
		}
	}

	entry.Idom = nil
	for _, b := range rpo {
		if b.Idom != nil {
			b.Idom.Dominees = append(b.Idom.Dominees, b)
		}
	}
}

// Dominates reports whether a dominates b. ComputeDom must have run.
func Dominates(a, b *Block) bool {
	for ; b != nil; b = b.Idom {
		if b == a {
			return true
		}
	}
	return false
}
