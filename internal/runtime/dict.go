package runtime

import (
	"math"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// dictKey is the hashable identity of a key word: strings, bigints and
// decimals hash by content, everything else by the word itself.
type dictKey struct {
	s string
	w uint64
}

// dictObj is an insertion-ordered hash map of words.
type dictObj struct {
	keyTag, valTag rtabi.Tag
	keys, vals     []uint64
	index          map[dictKey]int
}

func (d *dictObj) reset() {
	d.keys, d.vals = nil, nil
	d.index = make(map[dictKey]int)
}

func (rt *Runtime) newDict(keyTag, valTag rtabi.Tag) uint64 {
	d := &dictObj{keyTag: keyTag, valTag: valTag}
	d.reset()
	return rt.heap.alloc(rtabi.TagDict, d, nil).Addr()
}

func (rt *Runtime) dict(h uint64) *dictObj {
	if h == 0 {
		panic(trapf("null dict"))
	}
	return rt.heap.get(h, rtabi.TagDict).obj.(*dictObj)
}

func (rt *Runtime) keyOf(tag rtabi.Tag, w uint64) dictKey {
	if w == 0 {
		return dictKey{}
	}
	switch tag {
	case rtabi.TagString:
		return dictKey{s: "s" + rt.String(w)}
	case rtabi.TagBigInt:
		return dictKey{s: "b" + rt.bigint(w).String()}
	case rtabi.TagDecimal:
		return dictKey{s: "d" + rt.decimal(w).String()}
	case rtabi.TagFloat:
		if math.Float64frombits(w) == 0 {
			return dictKey{} // -0 and +0 are one key
		}
	}
	return dictKey{w: w}
}

func (rt *Runtime) dictFind(d *dictObj, k uint64) (int, bool) {
	i, ok := d.index[rt.keyOf(d.keyTag, k)]
	return i, ok
}

// dictSet consumes k and v. Overwriting keeps the stored key, releasing
// the passed one and the old value.
func (rt *Runtime) dictSet(h, k, v uint64) {
	d := rt.dict(h)
	if i, ok := rt.dictFind(d, k); ok {
		old := d.vals[i]
		d.vals[i] = v
		rt.releaseTagged(d.keyTag, k)
		rt.releaseTagged(d.valTag, old)
		return
	}
	d.index[rt.keyOf(d.keyTag, k)] = len(d.keys)
	d.keys = append(d.keys, k)
	d.vals = append(d.vals, v)
}

func (rt *Runtime) dictGet(h, k, def uint64) uint64 {
	d := rt.dict(h)
	if i, ok := rt.dictFind(d, k); ok {
		return d.vals[i]
	}
	return def
}

// dictRemove deletes k and returns its value, which the caller owns.
func (rt *Runtime) dictRemove(h, k uint64) uint64 {
	d := rt.dict(h)
	i, ok := rt.dictFind(d, k)
	if !ok {
		return 0
	}
	key, val := d.keys[i], d.vals[i]
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	delete(d.index, rt.keyOf(d.keyTag, key))
	for j := i; j < len(d.keys); j++ {
		d.index[rt.keyOf(d.keyTag, d.keys[j])] = j
	}
	rt.releaseTagged(d.keyTag, key)
	return val
}

func (rt *Runtime) dictClear(h uint64) {
	d := rt.dict(h)
	keys, vals := d.keys, d.vals
	d.reset()
	for i := range keys {
		rt.releaseTagged(d.keyTag, keys[i])
		rt.releaseTagged(d.valTag, vals[i])
	}
}

func (rt *Runtime) dictCopy(h uint64) uint64 {
	d := rt.dict(h)
	n := rt.newDict(d.keyTag, d.valTag)
	c := rt.dict(n)
	for i := range d.keys {
		rt.retainTagged(d.keyTag, d.keys[i])
		rt.retainTagged(d.valTag, d.vals[i])
		c.index[rt.keyOf(d.keyTag, d.keys[i])] = i
	}
	c.keys = append([]uint64(nil), d.keys...)
	c.vals = append([]uint64(nil), d.vals...)
	return n
}

// dictColumn returns a new list holding references to the keys or values.
func (rt *Runtime) dictColumn(h uint64, values bool) uint64 {
	d := rt.dict(h)
	tag, src := d.keyTag, d.keys
	if values {
		tag, src = d.valTag, d.vals
	}
	items := append([]uint64(nil), src...)
	for _, w := range items {
		rt.retainTagged(tag, w)
	}
	return rt.newList(tag, items)
}

// dictItems returns a list of (key, value) tuples.
func (rt *Runtime) dictItems(h uint64) uint64 {
	d := rt.dict(h)
	items := make([]uint64, len(d.keys))
	for i := range d.keys {
		rt.retainTagged(d.keyTag, d.keys[i])
		rt.retainTagged(d.valTag, d.vals[i])
		items[i] = rt.newTuple([]uint64{d.keys[i], d.vals[i]}, []rtabi.Tag{d.keyTag, d.valTag})
	}
	return rt.newList(rtabi.TagTuple, items)
}
