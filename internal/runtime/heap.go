package runtime

import (
	"encoding/binary"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Cell is one managed allocation. The header fields mirror the native
// object header: strong and weak counts, tag and flags. The weak count
// carries an implicit +1 while any strong reference exists, so the cell
// stays addressable for weak holders until the last weak is dropped.
type Cell struct {
	id     uint64
	tag    rtabi.Tag
	strong atomic.Int32
	weak   atomic.Int32
	flags  atomic.Uint32

	// static cells back module data objects and are never released.
	static bool

	mem  []byte // raw, object and cstring payloads
	desc uint64 // class descriptor of an object
	obj  any    // typed payload of every other tag
}

const flagDestroyed = 1 << 7

// Addr returns the address handed to generated code.
func (c *Cell) Addr() uint64 { return c.id << rtabi.AddrShift }

// Tag returns the payload kind.
func (c *Cell) Tag() rtabi.Tag { return c.tag }

func (c *Cell) hasFlag(f uint32) bool { return c.flags.Load()&f != 0 }

func (c *Cell) setFlag(f uint32) {
	for {
		old := c.flags.Load()
		if c.flags.CompareAndSwap(old, old|f) {
			return
		}
	}
}

// Heap is the handle table behind every address the runtime gives out.
// Addresses are id<<AddrShift | offset; id 0 is the null address.
type Heap struct {
	mu    sync.RWMutex
	cells map[uint64]*Cell
	next  atomic.Uint64
	live  [rtabi.NumTags]atomic.Int64
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{cells: make(map[uint64]*Cell)}
}

func splitAddr(addr uint64) (id uint64, off int) {
	return addr >> rtabi.AddrShift, int(addr & rtabi.AddrOffsetMask)
}

// alloc registers a new cell with one strong reference.
func (h *Heap) alloc(tag rtabi.Tag, obj any, mem []byte) *Cell {
	c := &Cell{id: h.next.Add(1), tag: tag, obj: obj, mem: mem}
	c.strong.Store(1)
	c.weak.Store(1)
	h.mu.Lock()
	h.cells[c.id] = c
	h.mu.Unlock()
	h.live[tag].Add(1)
	return c
}

// allocStatic registers a read-only raw cell that is never released.
func (h *Heap) allocStatic(mem []byte) *Cell {
	c := &Cell{id: h.next.Add(1), tag: rtabi.TagRaw, mem: mem, static: true}
	c.strong.Store(1)
	c.weak.Store(1)
	h.mu.Lock()
	h.cells[c.id] = c
	h.mu.Unlock()
	return c
}

// lookup returns the cell containing addr, or nil.
func (h *Heap) lookup(addr uint64) *Cell {
	if addr == 0 {
		return nil
	}
	id, _ := splitAddr(addr)
	h.mu.RLock()
	c := h.cells[id]
	h.mu.RUnlock()
	return c
}

// get returns the live cell at addr with the given tag or traps.
func (h *Heap) get(addr uint64, tag rtabi.Tag) *Cell {
	c := h.lookup(addr)
	switch {
	case c == nil:
		panic(trapf("invalid %s handle %#x", tag, addr))
	case c.tag != tag:
		panic(trapf("%s handle %#x used as %s", c.tag, addr, tag))
	case c.hasFlag(flagDestroyed):
		panic(trapf("use of destroyed %s %#x", tag, addr))
	}
	return c
}

func (h *Heap) remove(c *Cell) {
	h.mu.Lock()
	delete(h.cells, c.id)
	h.mu.Unlock()
}

// handles returns the addresses of the live cells tagged tag, oldest
// first.
func (h *Heap) handles(tag rtabi.Tag) []uint64 {
	var ids []uint64
	h.mu.RLock()
	for id, c := range h.cells {
		if c.tag == tag && !c.hasFlag(flagDestroyed) {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		ids[i] = id << rtabi.AddrShift
	}
	return ids
}

// Contains reports whether addr points into a registered cell.
func (h *Heap) Contains(addr uint64) bool {
	return h.lookup(addr) != nil
}

// memAt returns the byte window [off, off+n) of the raw memory at addr.
func (h *Heap) memAt(addr uint64, n int) []byte {
	c := h.lookup(addr)
	if c == nil || c.mem == nil {
		panic(trapf("invalid memory address %#x", addr))
	}
	if c.hasFlag(flagDestroyed) {
		panic(trapf("use after free at %#x", addr))
	}
	_, off := splitAddr(addr)
	if off+n > len(c.mem) {
		panic(trapf("access of %d bytes at %#x out of bounds (size %d)", n, addr, len(c.mem)))
	}
	return c.mem[off : off+n]
}

// Load reads the word at addr.
func (h *Heap) Load(addr uint64) uint64 {
	return binary.LittleEndian.Uint64(h.memAt(addr, rtabi.WordSize))
}

// Store writes the word at addr.
func (h *Heap) Store(addr, v uint64) {
	c := h.lookup(addr)
	if c != nil && c.static {
		panic(trapf("write to read-only data at %#x", addr))
	}
	binary.LittleEndian.PutUint64(h.memAt(addr, rtabi.WordSize), v)
}

// Bytes returns a copy of n bytes starting at addr.
func (h *Heap) Bytes(addr uint64, n int) []byte {
	if n == 0 {
		return nil
	}
	return append([]byte(nil), h.memAt(addr, n)...)
}

// Words reads n consecutive words starting at addr.
func (h *Heap) Words(addr uint64, n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = h.Load(addr + uint64(i*rtabi.WordSize))
	}
	return out
}

// Stats counts live payloads per tag.
type Stats map[rtabi.Tag]int64

// Total returns the number of live payloads of every tag.
func (s Stats) Total() int64 {
	var n int64
	for _, c := range s {
		n += c
	}
	return n
}

// Stats returns the live payload counts. Data objects are not counted.
func (h *Heap) Stats() Stats {
	s := make(Stats)
	for tag := range h.live {
		if n := h.live[tag].Load(); n != 0 {
			s[rtabi.Tag(tag)] = n
		}
	}
	return s
}
