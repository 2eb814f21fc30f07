package runtime

import (
	"math"
	"sort"
	"strings"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// listObj is a growable array of words. elem describes how elements are
// retained, released, compared and printed.
type listObj struct {
	elem  rtabi.Tag
	items []uint64
}

// newList wraps items, taking ownership of each.
func (rt *Runtime) newList(elem rtabi.Tag, items []uint64) uint64 {
	return rt.heap.alloc(rtabi.TagList, &listObj{elem: elem, items: items}, nil).Addr()
}

func (rt *Runtime) list(h uint64) *listObj {
	if h == 0 {
		panic(trapf("null list"))
	}
	return rt.heap.get(h, rtabi.TagList).obj.(*listObj)
}

// ListItems returns a copy of the elements of the list at h.
func (rt *Runtime) ListItems(h uint64) []uint64 {
	return append([]uint64(nil), rt.list(h).items...)
}

// listCopy returns a shallow copy holding new references to the elements.
func (rt *Runtime) listCopy(h uint64) uint64 {
	l := rt.list(h)
	items := append([]uint64(nil), l.items...)
	for _, w := range items {
		rt.retainTagged(l.elem, w)
	}
	return rt.newList(l.elem, items)
}

func (rt *Runtime) listGet(h uint64, i int64) uint64 {
	l := rt.list(h)
	if i < 0 || i >= int64(len(l.items)) {
		return 0
	}
	return l.items[i]
}

// listSet stores v, consuming it, and releases the replaced element.
func (rt *Runtime) listSet(h uint64, i int64, v uint64) {
	l := rt.list(h)
	if i < 0 || i >= int64(len(l.items)) {
		rt.releaseTagged(l.elem, v)
		return
	}
	old := l.items[i]
	l.items[i] = v
	rt.releaseTagged(l.elem, old)
}

func (rt *Runtime) listInsert(h uint64, i int64, v uint64) {
	l := rt.list(h)
	n := int64(len(l.items))
	i = max(0, min(i, n))
	l.items = append(l.items, 0)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = v
}

// listRemove removes and returns the element at i; the caller owns it.
func (rt *Runtime) listRemove(h uint64, i int64) uint64 {
	l := rt.list(h)
	if i < 0 || i >= int64(len(l.items)) {
		return 0
	}
	v := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	return v
}

func (rt *Runtime) listPop(h uint64) uint64 {
	l := rt.list(h)
	n := len(l.items)
	if n == 0 {
		return 0
	}
	v := l.items[n-1]
	l.items = l.items[:n-1]
	return v
}

func (rt *Runtime) listClear(h uint64) {
	l := rt.list(h)
	items := l.items
	l.items = nil
	for _, w := range items {
		rt.releaseTagged(l.elem, w)
	}
}

func (rt *Runtime) listReverse(h uint64) {
	items := rt.list(h).items
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

// listExtend appends new references to the elements of other.
func (rt *Runtime) listExtend(h, other uint64) {
	l, o := rt.list(h), rt.list(other)
	src := append([]uint64(nil), o.items...)
	for _, w := range src {
		rt.retainTagged(o.elem, w)
	}
	l.items = append(l.items, src...)
}

// wordEqual compares two slot words of the same tag by value.
func (rt *Runtime) wordEqual(tag rtabi.Tag, a, b uint64) bool {
	if a == b {
		return true
	}
	if a == 0 || b == 0 {
		return false
	}
	switch tag {
	case rtabi.TagFloat:
		return math.Float64frombits(a) == math.Float64frombits(b)
	case rtabi.TagString:
		return rt.String(a) == rt.String(b)
	case rtabi.TagBigInt:
		return rt.bigint(a).Cmp(rt.bigint(b)) == 0
	case rtabi.TagDecimal:
		return rt.decimal(a).Equal(rt.decimal(b))
	case rtabi.TagDynamic:
		return rt.dynamicEq(a, b)
	}
	return false
}

func (rt *Runtime) listIndexOf(h, v uint64) int64 {
	l := rt.list(h)
	for i, w := range l.items {
		if rt.wordEqual(l.elem, w, v) {
			return int64(i)
		}
	}
	return -1
}

func (rt *Runtime) listCount(h, v uint64) int64 {
	l := rt.list(h)
	var n int64
	for _, w := range l.items {
		if rt.wordEqual(l.elem, w, v) {
			n++
		}
	}
	return n
}

// listSort sorts ints, floats, bools, strings, bigints and decimals in
// ascending order. Other element kinds are left as they are.
func (rt *Runtime) listSort(h uint64) {
	l := rt.list(h)
	var less func(a, b uint64) bool
	switch l.elem {
	case rtabi.TagInt, rtabi.TagBool:
		less = func(a, b uint64) bool { return int64(a) < int64(b) }
	case rtabi.TagFloat:
		less = func(a, b uint64) bool { return math.Float64frombits(a) < math.Float64frombits(b) }
	case rtabi.TagString:
		less = func(a, b uint64) bool { return rt.String(a) < rt.String(b) }
	case rtabi.TagBigInt:
		less = func(a, b uint64) bool { return rt.bigint(a).Cmp(rt.bigint(b)) < 0 }
	case rtabi.TagDecimal:
		less = func(a, b uint64) bool { return rt.decimal(a).LessThan(rt.decimal(b)) }
	default:
		return
	}
	sort.SliceStable(l.items, func(i, j int) bool { return less(l.items[i], l.items[j]) })
}

func (rt *Runtime) listSlice(h uint64, start, end int64) uint64 {
	l := rt.list(h)
	lo, hi := clampRange(int64(len(l.items)), start, end)
	items := append([]uint64(nil), l.items[lo:hi]...)
	for _, w := range items {
		rt.retainTagged(l.elem, w)
	}
	return rt.newList(l.elem, items)
}

func (rt *Runtime) listSumInt(h uint64) int64 {
	var sum int64
	for _, w := range rt.list(h).items {
		sum += int64(w)
	}
	return sum
}

// listJoin formats every element and joins them with sep. Strings are
// not quoted.
func (rt *Runtime) listJoin(h, sep uint64) uint64 {
	l := rt.list(h)
	parts := make([]string, len(l.items))
	for i, w := range l.items {
		parts[i] = rt.format(l.elem, w, false)
	}
	return rt.newString(strings.Join(parts, rt.String(sep)))
}
