package runtime

import (
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Big integers and decimals are immutable: every operation allocates a
// new object and leaves its operands untouched.

func (rt *Runtime) newBigInt(x *big.Int) uint64 {
	return rt.heap.alloc(rtabi.TagBigInt, x, nil).Addr()
}

func (rt *Runtime) bigint(h uint64) *big.Int {
	if h == 0 {
		return new(big.Int)
	}
	return rt.heap.get(h, rtabi.TagBigInt).obj.(*big.Int)
}

// BigInt returns a copy of the big integer at h.
func (rt *Runtime) BigInt(h uint64) *big.Int { return new(big.Int).Set(rt.bigint(h)) }

func (rt *Runtime) bigintArith(op string, a, b uint64) uint64 {
	x, y := rt.bigint(a), rt.bigint(b)
	z := new(big.Int)
	switch op {
	case "add":
		z.Add(x, y)
	case "sub":
		z.Sub(x, y)
	case "mul":
		z.Mul(x, y)
	case "div", "rem":
		if y.Sign() == 0 {
			panic(trapf("bigint division by zero"))
		}
		if op == "div" {
			z.Quo(x, y)
		} else {
			z.Rem(x, y)
		}
	}
	return rt.newBigInt(z)
}

func (rt *Runtime) bigintFromStr(h uint64) uint64 {
	s := strings.TrimSuffix(strings.TrimSpace(rt.String(h)), "n")
	z, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(trapf("invalid bigint %q", s))
	}
	return rt.newBigInt(z)
}

func (rt *Runtime) bigintFromF64(x float64) uint64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return rt.newBigInt(new(big.Int))
	}
	z, _ := big.NewFloat(math.Trunc(x)).Int(nil)
	return rt.newBigInt(z)
}

func (rt *Runtime) bigintToF64(h uint64) float64 {
	f, _ := new(big.Float).SetInt(rt.bigint(h)).Float64()
	return f
}

func (rt *Runtime) bigintPow(h uint64, e int64) uint64 {
	if e < 0 {
		return rt.newBigInt(new(big.Int))
	}
	return rt.newBigInt(new(big.Int).Exp(rt.bigint(h), big.NewInt(e), nil))
}

func (rt *Runtime) newDecimal(d decimal.Decimal) uint64 {
	return rt.heap.alloc(rtabi.TagDecimal, d, nil).Addr()
}

func (rt *Runtime) decimal(h uint64) decimal.Decimal {
	if h == 0 {
		return decimal.Zero
	}
	return rt.heap.get(h, rtabi.TagDecimal).obj.(decimal.Decimal)
}

// Decimal returns the decimal at h.
func (rt *Runtime) Decimal(h uint64) decimal.Decimal { return rt.decimal(h) }

func (rt *Runtime) decimalArith(op string, a, b uint64) uint64 {
	x, y := rt.decimal(a), rt.decimal(b)
	var z decimal.Decimal
	switch op {
	case "add":
		z = x.Add(y)
	case "sub":
		z = x.Sub(y)
	case "mul":
		z = x.Mul(y)
	case "div", "rem":
		if y.IsZero() {
			panic(trapf("decimal division by zero"))
		}
		if op == "div" {
			z = x.Div(y)
		} else {
			z = x.Mod(y)
		}
	}
	return rt.newDecimal(z)
}

func (rt *Runtime) decimalFromStr(h uint64) uint64 {
	s := strings.TrimSuffix(strings.TrimSpace(rt.String(h)), "d")
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(trapf("invalid decimal %q", s))
	}
	return rt.newDecimal(d)
}

func (rt *Runtime) decimalFromF64(x float64) uint64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return rt.newDecimal(decimal.Zero)
	}
	return rt.newDecimal(decimal.NewFromFloat(x))
}

func cmpWord(c int, cond string) uint64 {
	switch cond {
	case "eq":
		return boolWord(c == 0)
	case "ne":
		return boolWord(c != 0)
	case "lt":
		return boolWord(c < 0)
	case "le":
		return boolWord(c <= 0)
	case "gt":
		return boolWord(c > 0)
	case "ge":
		return boolWord(c >= 0)
	}
	return uint64(int64(c))
}
