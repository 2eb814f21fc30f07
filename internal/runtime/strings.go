package runtime

import (
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// strObj is an immutable string payload. cstr is a NUL-terminated copy
// created on demand for foreign calls and owned by the string.
type strObj struct {
	s    string
	cstr atomic.Uint64
}

func (rt *Runtime) newString(s string) uint64 {
	return rt.heap.alloc(rtabi.TagString, &strObj{s: s}, nil).Addr()
}

// NewString allocates a string with one strong reference.
func (rt *Runtime) NewString(s string) uint64 { return rt.newString(s) }

// String returns the contents of the string at h; "" for null.
func (rt *Runtime) String(h uint64) string {
	if h == 0 {
		return ""
	}
	return rt.heap.get(h, rtabi.TagString).obj.(*strObj).s
}

func (rt *Runtime) stringLiteral(t *Task, ptr uint64, n int64) uint64 {
	return t.intern(string(rt.heap.Bytes(ptr, int(n))))
}

func (rt *Runtime) stringFromSlice(ptr uint64, n int64) uint64 {
	return rt.newString(string(rt.heap.Bytes(ptr, int(n))))
}

// FormatFloat formats x the way print shows floats: the shortest decimal
// that round-trips, without an exponent.
func FormatFloat(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "inf"
	case math.IsInf(x, -1):
		return "-inf"
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func formatBool(w uint64) string {
	if w != 0 {
		return "true"
	}
	return "false"
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return x
}

// asCStr returns the NUL-terminated copy of the string at h. The copy
// lives as long as the string.
func (rt *Runtime) asCStr(h uint64) uint64 {
	if h == 0 {
		return 0
	}
	so := rt.heap.get(h, rtabi.TagString).obj.(*strObj)
	if cs := so.cstr.Load(); cs != 0 {
		return cs
	}
	mem := make([]byte, len(so.s)+1)
	copy(mem, so.s)
	cs := rt.heap.alloc(rtabi.TagCString, nil, mem).Addr()
	if !so.cstr.CompareAndSwap(0, cs) {
		rt.Release(cs)
		return so.cstr.Load()
	}
	return cs
}

// stringFromCStr copies a NUL-terminated string. p is either a runtime
// address or a pointer returned by foreign code.
func (rt *Runtime) stringFromCStr(p uint64) uint64 {
	if p == 0 {
		return rt.newString("")
	}
	if c := rt.heap.lookup(p); c != nil && c.mem != nil {
		_, off := splitAddr(p)
		b := c.mem[off:]
		if i := strings.IndexByte(string(b), 0); i >= 0 {
			b = b[:i]
		}
		return rt.newString(string(b))
	}
	return rt.newString(foreignCString(wordPointer(p)))
}

func runeSlice(s string, start, end int64) string {
	rs := []rune(s)
	lo, hi := clampRange(int64(len(rs)), start, end)
	return string(rs[lo:hi])
}

// clampRange resolves negative indices from the end and clamps both
// bounds into [0, n]. An empty range has lo == hi.
func clampRange(n, start, end int64) (int, int) {
	fix := func(i int64) int64 {
		if i < 0 {
			i += n
		}
		return max(0, min(i, n))
	}
	lo, hi := fix(start), fix(end)
	if lo > hi {
		lo = hi
	}
	return int(lo), int(hi)
}

func (rt *Runtime) stringFind(h, sub uint64) int64 {
	s, needle := rt.String(h), rt.String(sub)
	i := strings.Index(s, needle)
	if i < 0 {
		return -1
	}
	return int64(utf8.RuneCountInString(s[:i]))
}

func (rt *Runtime) stringCharAt(h uint64, i int64) uint64 {
	rs := []rune(rt.String(h))
	if i < 0 {
		i += int64(len(rs))
	}
	if i < 0 || i >= int64(len(rs)) {
		return rt.newString("")
	}
	return rt.newString(string(rs[i]))
}

func (rt *Runtime) stringSplit(h, sep uint64) uint64 {
	s, d := rt.String(h), rt.String(sep)
	var parts []string
	if d == "" {
		parts = strings.Fields(s)
	} else {
		parts = strings.Split(s, d)
	}
	items := make([]uint64, len(parts))
	for i, p := range parts {
		items[i] = rt.newString(p)
	}
	return rt.newList(rtabi.TagString, items)
}

func (rt *Runtime) stringRepeat(h uint64, n int64) uint64 {
	if n <= 0 {
		return rt.newString("")
	}
	return rt.newString(strings.Repeat(rt.String(h), int(n)))
}

func (rt *Runtime) stringCompare(a, b uint64) int {
	return strings.Compare(rt.String(a), rt.String(b))
}
