package runtime

import (
	"math"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// dynObj is the tagged union behind the dynamic type. word holds the
// scalar, the float bits, or an owned reference.
type dynObj struct {
	kind int64
	word uint64
}

func (d *dynObj) isRC() bool {
	switch d.kind {
	case rtabi.DynBigInt, rtabi.DynDecimal, rtabi.DynString, rtabi.DynList:
		return d.word != 0
	}
	return false
}

// newDynamic boxes word, taking ownership of referenced payloads.
func (rt *Runtime) newDynamic(kind int64, word uint64) uint64 {
	return rt.heap.alloc(rtabi.TagDynamic, &dynObj{kind: kind, word: word}, nil).Addr()
}

func (rt *Runtime) dynamic(h uint64) *dynObj {
	if h == 0 {
		return &dynObj{kind: rtabi.DynNone}
	}
	return rt.heap.get(h, rtabi.TagDynamic).obj.(*dynObj)
}

func (rt *Runtime) dynToFloat(d *dynObj) float64 {
	switch d.kind {
	case rtabi.DynBool, rtabi.DynInt:
		return float64(int64(d.word))
	case rtabi.DynFloat:
		return math.Float64frombits(d.word)
	case rtabi.DynBigInt:
		return rt.bigintToF64(d.word)
	case rtabi.DynDecimal:
		return rt.decimal(d.word).InexactFloat64()
	case rtabi.DynString:
		return parseFloat(rt.String(d.word))
	}
	return 0
}

func (rt *Runtime) dynToInt(d *dynObj) int64 {
	switch d.kind {
	case rtabi.DynBool, rtabi.DynInt:
		return int64(d.word)
	case rtabi.DynFloat:
		return int64(math.Float64frombits(d.word))
	case rtabi.DynBigInt:
		return rt.bigint(d.word).Int64()
	case rtabi.DynDecimal:
		return rt.decimal(d.word).IntPart()
	case rtabi.DynString:
		return parseInt(rt.String(d.word))
	}
	return 0
}

func (rt *Runtime) dynTruthy(d *dynObj) bool {
	switch d.kind {
	case rtabi.DynBool, rtabi.DynInt:
		return d.word != 0
	case rtabi.DynFloat:
		return math.Float64frombits(d.word) != 0
	case rtabi.DynBigInt:
		return rt.bigint(d.word).Sign() != 0
	case rtabi.DynDecimal:
		return !rt.decimal(d.word).IsZero()
	case rtabi.DynString:
		return rt.String(d.word) != ""
	case rtabi.DynList:
		return d.word != 0 && len(rt.list(d.word).items) > 0
	}
	return false
}

// dynamicArith applies op with the promotion rules of the dynamic type:
// int op int stays int, bigint and decimal pairs stay exact, string + string
// concatenates, and every other mix computes in float. Integer division by
// zero yields none.
func (rt *Runtime) dynamicArith(op string, a, b uint64) uint64 {
	x, y := rt.dynamic(a), rt.dynamic(b)
	switch {
	case x.kind == rtabi.DynInt && y.kind == rtabi.DynInt:
		p, q := int64(x.word), int64(y.word)
		switch op {
		case "add":
			return rt.newDynamic(rtabi.DynInt, uint64(p+q))
		case "sub":
			return rt.newDynamic(rtabi.DynInt, uint64(p-q))
		case "mul":
			return rt.newDynamic(rtabi.DynInt, uint64(p*q))
		case "div":
			if q == 0 {
				return rt.newDynamic(rtabi.DynNone, 0)
			}
			return rt.newDynamic(rtabi.DynInt, uint64(p/q))
		}
	case x.kind == rtabi.DynBigInt && y.kind == rtabi.DynBigInt:
		if op == "div" && rt.bigint(y.word).Sign() == 0 {
			return rt.newDynamic(rtabi.DynNone, 0)
		}
		return rt.newDynamic(rtabi.DynBigInt, rt.bigintArith(op, x.word, y.word))
	case x.kind == rtabi.DynDecimal && y.kind == rtabi.DynDecimal:
		if op == "div" && rt.decimal(y.word).IsZero() {
			return rt.newDynamic(rtabi.DynNone, 0)
		}
		return rt.newDynamic(rtabi.DynDecimal, rt.decimalArith(op, x.word, y.word))
	case x.kind == rtabi.DynString && y.kind == rtabi.DynString && op == "add":
		return rt.newDynamic(rtabi.DynString, rt.newString(rt.String(x.word)+rt.String(y.word)))
	}
	p, q := rt.dynToFloat(x), rt.dynToFloat(y)
	var r float64
	switch op {
	case "add":
		r = p + q
	case "sub":
		r = p - q
	case "mul":
		r = p * q
	case "div":
		if q == 0 {
			return rt.newDynamic(rtabi.DynNone, 0)
		}
		r = p / q
	}
	return rt.newDynamic(rtabi.DynFloat, math.Float64bits(r))
}

func (rt *Runtime) dynamicEq(a, b uint64) bool {
	x, y := rt.dynamic(a), rt.dynamic(b)
	if x.kind != y.kind {
		return math.Abs(rt.dynToFloat(x)-rt.dynToFloat(y)) < 1e-10
	}
	switch x.kind {
	case rtabi.DynNone:
		return true
	case rtabi.DynBool, rtabi.DynInt:
		return x.word == y.word
	case rtabi.DynFloat:
		return math.Abs(math.Float64frombits(x.word)-math.Float64frombits(y.word)) < 1e-10
	case rtabi.DynBigInt:
		return rt.bigint(x.word).Cmp(rt.bigint(y.word)) == 0
	case rtabi.DynDecimal:
		return rt.decimal(x.word).Equal(rt.decimal(y.word))
	case rtabi.DynString:
		return rt.String(x.word) == rt.String(y.word)
	}
	return false
}

func (rt *Runtime) dynamicLt(a, b uint64) bool {
	x, y := rt.dynamic(a), rt.dynamic(b)
	switch {
	case x.kind == rtabi.DynInt && y.kind == rtabi.DynInt:
		return int64(x.word) < int64(y.word)
	case x.kind == rtabi.DynBigInt && y.kind == rtabi.DynBigInt:
		return rt.bigint(x.word).Cmp(rt.bigint(y.word)) < 0
	case x.kind == rtabi.DynDecimal && y.kind == rtabi.DynDecimal:
		return rt.decimal(x.word).LessThan(rt.decimal(y.word))
	case x.kind == rtabi.DynString && y.kind == rtabi.DynString:
		return rt.String(x.word) < rt.String(y.word)
	}
	return rt.dynToFloat(x) < rt.dynToFloat(y)
}
