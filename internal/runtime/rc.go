package runtime

import (
	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Retain adds a strong reference to the object at addr. Null and data
// addresses are ignored.
func (rt *Runtime) Retain(addr uint64) {
	c := rt.heap.lookup(addr)
	if c == nil || c.static {
		return
	}
	if c.strong.Add(1) == 1 {
		// Resurrection through a stale address.
		c.strong.Add(-1)
		panic(trapf("retain of destroyed %s %#x", c.tag, addr))
	}
}

// Release drops a strong reference. The last release destroys the payload,
// releasing everything it owns, and drops the implicit weak reference.
func (rt *Runtime) Release(addr uint64) {
	c := rt.heap.lookup(addr)
	if c == nil || c.static {
		return
	}
	n := c.strong.Add(-1)
	switch {
	case n > 0:
		return
	case n < 0:
		c.strong.Add(1)
		rt.overReleases.Add(1)
		if rt.opts.CheckLeaks {
			logger.Warn("Release of destroyed object", "tag", c.tag.String(), "addr", addr)
		} else {
			logger.Debug("Release of destroyed object ignored", "tag", c.tag.String(), "addr", addr)
		}
		return
	}
	c.setFlag(rtabi.FlagDropping)
	rt.destroy(c)
	c.setFlag(flagDestroyed)
	rt.heap.live[c.tag].Add(-1)
	rt.weakRelease(c)
}

// releaseTagged releases w when tag describes a reference-counted slot.
func (rt *Runtime) releaseTagged(tag rtabi.Tag, w uint64) {
	if w != 0 && tag.IsRC() {
		rt.Release(w)
	}
}

func (rt *Runtime) retainTagged(tag rtabi.Tag, w uint64) {
	if w != 0 && tag.IsRC() {
		rt.Retain(w)
	}
}

func (rt *Runtime) weakRelease(c *Cell) {
	if c.weak.Add(-1) == 0 {
		rt.heap.remove(c)
	}
}

// destroy releases what the payload of c owns.
func (rt *Runtime) destroy(c *Cell) {
	switch p := c.obj.(type) {
	case *strObj:
		if cs := p.cstr.Swap(0); cs != 0 {
			rt.Release(cs)
		}
	case *listObj:
		items := p.items
		p.items = nil
		for _, w := range items {
			rt.releaseTagged(p.elem, w)
		}
	case *dictObj:
		keys, vals := p.keys, p.vals
		p.reset()
		for i := range keys {
			rt.releaseTagged(p.keyTag, keys[i])
			rt.releaseTagged(p.valTag, vals[i])
		}
	case *tupleObj:
		for i, w := range p.items {
			p.items[i] = 0
			rt.releaseTagged(p.tags[i], w)
		}
	case *dynObj:
		if p.isRC() {
			rt.Release(p.word)
		}
	case *Future:
		p.dispose(rt)
	case *Channel:
		rt.drainChannel(p)
	case *Pool:
		p.shutdown()
	case *library:
		rt.closeLibrary(p)
	}
	if c.tag == rtabi.TagObject {
		rt.destroyObject(c)
	}
	c.obj = nil
}

// objectAlloc allocates a class instance of size bytes. desc is the
// address of the class descriptor: [field count, tag of field 0, ...].
func (rt *Runtime) objectAlloc(size int64, desc uint64) uint64 {
	if size < 0 || size > rtabi.AddrOffsetMask {
		panic(trapf("object size %d out of range", size))
	}
	c := rt.heap.alloc(rtabi.TagObject, nil, make([]byte, size))
	c.desc = desc
	return c.Addr()
}

func (rt *Runtime) destroyObject(c *Cell) {
	if c.desc == 0 {
		return
	}
	n := int(rt.heap.Load(c.desc + rtabi.DescCountOffset))
	for i := 0; i < n && (i+1)*rtabi.WordSize <= len(c.mem); i++ {
		tag := rtabi.Tag(rt.heap.Load(c.desc + rtabi.DescFieldsOffset + uint64(i*rtabi.WordSize)))
		off := uint64(i * rtabi.WordSize)
		w := rt.heap.Load(c.Addr() + off)
		if w != 0 && tag.IsRC() {
			rt.heap.Store(c.Addr()+off, 0)
			rt.Release(w)
		}
	}
}

// WeakRetain adds a weak reference to a live object.
func (rt *Runtime) WeakRetain(addr uint64) {
	if c := rt.heap.lookup(addr); c != nil && !c.static {
		c.weak.Add(1)
	}
}

// WeakRelease drops a weak reference.
func (rt *Runtime) WeakRelease(addr uint64) {
	if c := rt.heap.lookup(addr); c != nil && !c.static {
		rt.weakRelease(c)
	}
}

// WeakUpgrade returns addr with a new strong reference if the object is
// still alive, or 0.
func (rt *Runtime) WeakUpgrade(addr uint64) uint64 {
	c := rt.heap.lookup(addr)
	if c == nil {
		return 0
	}
	for {
		n := c.strong.Load()
		if n <= 0 {
			return 0
		}
		if c.strong.CompareAndSwap(n, n+1) {
			return addr
		}
	}
}

// IsAlive reports whether the object at addr has strong references.
func (rt *Runtime) IsAlive(addr uint64) bool {
	c := rt.heap.lookup(addr)
	return c != nil && c.strong.Load() > 0 && !c.hasFlag(flagDestroyed)
}

// StrongCount returns the strong count of the object at addr.
func (rt *Runtime) StrongCount(addr uint64) int64 {
	c := rt.heap.lookup(addr)
	if c == nil || c.hasFlag(flagDestroyed) {
		return 0
	}
	return int64(c.strong.Load())
}

// WeakCount returns the number of explicit weak references.
func (rt *Runtime) WeakCount(addr uint64) int64 {
	c := rt.heap.lookup(addr)
	if c == nil {
		return 0
	}
	n := int64(c.weak.Load())
	if c.strong.Load() > 0 {
		n--
	}
	return n
}

func (rt *Runtime) markMoved(addr uint64) {
	if c := rt.heap.lookup(addr); c != nil {
		c.setFlag(rtabi.FlagMoved)
	}
}

func (rt *Runtime) isMoved(addr uint64) bool {
	c := rt.heap.lookup(addr)
	return c != nil && c.hasFlag(rtabi.FlagMoved)
}

// alloc returns a zeroed raw block of size bytes.
func (rt *Runtime) alloc(size int64) uint64 {
	if size <= 0 {
		size = rtabi.WordSize
	}
	if size > rtabi.AddrOffsetMask {
		panic(trapf("allocation of %d bytes exceeds the block limit", size))
	}
	return rt.heap.alloc(rtabi.TagRaw, nil, make([]byte, size)).Addr()
}

// Alloc is alloc for engines that keep frames in the heap.
func (rt *Runtime) Alloc(size int64) uint64 { return rt.alloc(size) }

// Free releases a raw block.
func (rt *Runtime) Free(addr uint64) {
	c := rt.heap.lookup(addr)
	if c == nil || c.tag != rtabi.TagRaw || c.static {
		return
	}
	rt.Release(c.Addr())
}
