package runtime

import "github.com/bolide-lang/bolide/internal/rtabi"

// tupleObj is a fixed-length array of words. Each slot records the tag it
// was stored with, so destruction and printing work per element.
type tupleObj struct {
	items []uint64
	tags  []rtabi.Tag
}

func (rt *Runtime) newTuple(items []uint64, tags []rtabi.Tag) uint64 {
	return rt.heap.alloc(rtabi.TagTuple, &tupleObj{items: items, tags: tags}, nil).Addr()
}

func (rt *Runtime) tuple(h uint64) *tupleObj {
	if h == 0 {
		panic(trapf("null tuple"))
	}
	return rt.heap.get(h, rtabi.TagTuple).obj.(*tupleObj)
}

func (rt *Runtime) tupleNew(n int64) uint64 {
	if n < 0 {
		n = 0
	}
	return rt.newTuple(make([]uint64, n), make([]rtabi.Tag, n))
}

// tupleSet stores v with its tag, consuming it and releasing the old slot.
func (rt *Runtime) tupleSet(h uint64, i int64, v uint64, tag rtabi.Tag) {
	t := rt.tuple(h)
	if i < 0 || i >= int64(len(t.items)) {
		panic(trapf("tuple index %d out of range [0, %d)", i, len(t.items)))
	}
	old, oldTag := t.items[i], t.tags[i]
	t.items[i], t.tags[i] = v, tag
	rt.releaseTagged(oldTag, old)
}

// tupleGet returns the raw slot; the tuple keeps its reference.
func (rt *Runtime) tupleGet(h uint64, i int64) uint64 {
	t := rt.tuple(h)
	if i < 0 || i >= int64(len(t.items)) {
		panic(trapf("tuple index %d out of range [0, %d)", i, len(t.items)))
	}
	return t.items[i]
}
