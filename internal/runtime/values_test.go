package runtime

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

func TestStringBuiltins(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	hello := rt.NewString("héllo wörld")

	strTests := []struct {
		name string
		args []uint64
		want string
	}{
		{"string_upper", []uint64{hello}, "HÉLLO WÖRLD"},
		{"string_slice", []uint64{hello, 1, 4}, "éll"},
		{"string_slice", []uint64{hello, negWord(5), 11}, "wörld"},
		{"string_char_at", []uint64{hello, 7}, "ö"},
		{"string_char_at", []uint64{hello, 99}, ""},
		{"string_repeat", []uint64{rt.NewString("ab"), 3}, "ababab"},
		{"string_replace", []uint64{hello, rt.NewString("l"), rt.NewString("L")}, "héLLo wörLd"},
		{"string_trim", []uint64{rt.NewString("  x \n")}, "x"},
		{"string_from_int", []uint64{negWord(12)}, "-12"},
		{"string_from_float", []uint64{math.Float64bits(2.5)}, "2.5"},
		{"string_from_float", []uint64{math.Float64bits(3)}, "3"},
		{"string_from_bool", []uint64{1}, "true"},
	}
	for _, tt := range strTests {
		s := call(t, rt, tt.name, tt.args...)
		if got := rt.String(s); got != tt.want {
			t.Errorf("%s%v = %q, want %q", tt.name, tt.args, got, tt.want)
		}
		rt.Release(s)
	}

	wordTests := []struct {
		name string
		args []uint64
		want uint64
	}{
		{"string_len", []uint64{hello}, 11},
		{"string_find", []uint64{hello, rt.NewString("wö")}, 6},
		{"string_find", []uint64{hello, rt.NewString("zz")}, negWord(1)},
		{"string_contains", []uint64{hello, rt.NewString("llo")}, 1},
		{"string_starts_with", []uint64{hello, rt.NewString("hé")}, 1},
		{"string_ends_with", []uint64{hello, rt.NewString("x")}, 0},
		{"string_to_int", []uint64{rt.NewString(" 42 ")}, 42},
		{"string_to_int", []uint64{rt.NewString("nope")}, 0},
		{"string_to_float", []uint64{rt.NewString("1.25")}, math.Float64bits(1.25)},
		{"string_lt", []uint64{rt.NewString("abc"), rt.NewString("abd")}, 1},
		{"string_eq", []uint64{rt.NewString("abc"), rt.NewString("abc")}, 1},
	}
	for _, tt := range wordTests {
		if got := call(t, rt, tt.name, tt.args...); got != tt.want {
			t.Errorf("%s = %#x, want %#x", tt.name, got, tt.want)
		}
	}
}

func negWord(n int64) uint64 { return uint64(-n) }

func TestStringSplitAndJoin(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	s := rt.NewString("a,b,,c")
	sep := rt.NewString(",")
	parts := call(t, rt, "string_split", s, sep)
	if n := call(t, rt, "list_len", parts); n != 4 {
		t.Fatalf("split into %d parts, want 4", n)
	}
	dash := rt.NewString("-")
	joined := call(t, rt, "list_join", parts, dash)
	if got := rt.String(joined); got != "a-b--c" {
		t.Errorf("join = %q", got)
	}
	for _, h := range []uint64{s, sep, parts, dash, joined} {
		rt.Release(h)
	}
	expectEmptyHeap(t, rt)
}

func TestCStringConversion(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	s := rt.NewString("native")
	cs := call(t, rt, rtabi.FnStringAsCStr, s)
	if again := call(t, rt, rtabi.FnStringAsCStr, s); again != cs {
		t.Errorf("as_cstr not cached: %#x != %#x", again, cs)
	}
	if b := rt.heap.Bytes(cs, 7); string(b) != "native\x00" {
		t.Errorf("cstr bytes = %q", b)
	}
	back := call(t, rt, "string_from_cstr", cs)
	if got := rt.String(back); got != "native" {
		t.Errorf("from_cstr = %q", got)
	}
	rt.Release(back)
	rt.Release(s)
	expectEmptyHeap(t, rt)
}

func TestBigIntRoundTrip(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	const digits = "123456789012345678901234567890"
	src := rt.NewString(digits + "n")
	b := call(t, rt, "bigint_from_str", src)
	sq := call(t, rt, "bigint_mul", b, b)
	q := call(t, rt, "bigint_div", sq, b)
	if call(t, rt, "bigint_eq", q, b) != 1 {
		t.Error("(b*b)/b != b")
	}
	str := call(t, rt, "string_from_bigint", q)
	if got := rt.String(str); got != digits {
		t.Errorf("string_from_bigint = %q", got)
	}
	p := call(t, rt, "bigint_pow", call(t, rt, "bigint_from_i64", 2), 100)
	if got := rt.BigInt(p).String(); got != "1267650600228229401496703205376" {
		t.Errorf("2**100 = %s", got)
	}
	if got := int64(call(t, rt, "bigint_cmp", p, b)); got != 1 {
		t.Errorf("cmp = %d, want 1", got)
	}
}

func TestExactDivisionByZeroTraps(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	for _, name := range []string{"bigint_div", "bigint_rem", "decimal_div", "decimal_rem"} {
		t.Run(name, func(t *testing.T) {
			from := "bigint_from_i64"
			if name[0] == 'd' {
				from = "decimal_from_i64"
			}
			x := call(t, rt, from, 1)
			zero := call(t, rt, from, 0)
			defer func() {
				if _, ok := recover().(*Trap); !ok {
					t.Errorf("%s by zero did not trap", name)
				}
			}()
			call(t, rt, name, x, zero)
		})
	}
}

func TestDecimalArithmetic(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	a := call(t, rt, "decimal_from_str", rt.NewString("0.1d"))
	b := call(t, rt, "decimal_from_str", rt.NewString("0.2"))
	sum := call(t, rt, "decimal_add", a, b)
	if got := rt.Decimal(sum).String(); got != "0.3" {
		t.Errorf("0.1 + 0.2 = %s", got)
	}
	r := call(t, rt, "decimal_round", call(t, rt, "decimal_from_str", rt.NewString("2.345")), 2)
	if got := rt.Decimal(r).String(); got != "2.35" {
		t.Errorf("round = %s", got)
	}
	if got := call(t, rt, "decimal_to_f64", sum); math.Float64frombits(got) != 0.3 {
		t.Errorf("to_f64 = %v", math.Float64frombits(got))
	}
}

func TestListOperations(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	l := call(t, rt, "list_new", uint64(rtabi.TagInt))
	for _, v := range []uint64{3, 1, 2} {
		call(t, rt, "list_push", l, v)
	}
	call(t, rt, "list_sort", l)
	call(t, rt, "list_insert", l, 100, 9) // clamps to the end
	call(t, rt, "list_set", l, 0, 5)

	if got := rt.Format(rtabi.TagList, l); got != "[5, 2, 3, 9]" {
		t.Errorf("list = %s", got)
	}
	checks := []struct {
		name string
		args []uint64
		want uint64
	}{
		{"list_len", []uint64{l}, 4},
		{"list_get", []uint64{l, 2}, 3},
		{"list_get", []uint64{l, 10}, 0},
		{"list_first", []uint64{l}, 5},
		{"list_last", []uint64{l}, 9},
		{"list_index_of", []uint64{l, 3}, 2},
		{"list_contains", []uint64{l, 7}, 0},
		{"list_sum_int", []uint64{l}, 19},
		{"list_pop", []uint64{l}, 9},
		{"list_remove", []uint64{l, 0}, 5},
		{"list_len", []uint64{l}, 2},
	}
	for _, c := range checks {
		if got := call(t, rt, c.name, c.args...); got != c.want {
			t.Errorf("%s%v = %d, want %d", c.name, c.args, got, c.want)
		}
	}
	sl := call(t, rt, "list_slice", l, negWord(1), 2)
	if got := rt.Format(rtabi.TagList, sl); got != "[3]" {
		t.Errorf("slice = %s", got)
	}
	rt.Release(sl)
	rt.Release(l)
	expectEmptyHeap(t, rt)
}

func TestListOfStringsOwnership(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	l := call(t, rt, "list_new", uint64(rtabi.TagString))
	call(t, rt, "list_push", l, rt.NewString("b"))
	call(t, rt, "list_push", l, rt.NewString("a"))
	c := call(t, rt, "list_copy", l)
	call(t, rt, "list_sort", c)
	call(t, rt, "list_set", l, 0, rt.NewString("z"))
	call(t, rt, "list_set", l, 5, rt.NewString("dropped"))
	popped := call(t, rt, "list_pop", l)

	if got := rt.Format(rtabi.TagList, c); got != `["a", "b"]` {
		t.Errorf("copy = %s", got)
	}
	if got := rt.Format(rtabi.TagList, l); got != `["z"]` {
		t.Errorf("list = %s", got)
	}
	rt.Release(popped)
	rt.Release(c)
	rt.Release(l)
	expectEmptyHeap(t, rt)
}

func TestDictOperations(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	d := call(t, rt, "dict_new", uint64(rtabi.TagString), uint64(rtabi.TagInt))
	call(t, rt, "dict_set", d, rt.NewString("b"), 2)
	call(t, rt, "dict_set", d, rt.NewString("a"), 1)
	call(t, rt, "dict_set", d, rt.NewString("b"), 20) // overwrite keeps position

	key := rt.NewString("b")
	missing := rt.NewString("zz")
	checks := []struct {
		name string
		args []uint64
		want uint64
	}{
		{"dict_len", []uint64{d}, 2},
		{"dict_get", []uint64{d, key}, 20},
		{"dict_get_or", []uint64{d, missing, 7}, 7},
		{"dict_contains", []uint64{d, missing}, 0},
		{"dict_contains", []uint64{d, key}, 1},
	}
	for _, c := range checks {
		if got := call(t, rt, c.name, c.args...); got != c.want {
			t.Errorf("%s = %d, want %d", c.name, got, c.want)
		}
	}
	if got := rt.Format(rtabi.TagDict, d); got != `{"b": 20, "a": 1}` {
		t.Errorf("dict = %s", got)
	}
	items := call(t, rt, "dict_items", d)
	if got := rt.Format(rtabi.TagList, items); got != `[("b", 20), ("a", 1)]` {
		t.Errorf("items = %s", got)
	}
	if v := call(t, rt, "dict_remove", d, key); v != 20 {
		t.Errorf("remove = %d", v)
	}
	keys := call(t, rt, "dict_keys", d)
	if got := rt.Format(rtabi.TagList, keys); got != `["a"]` {
		t.Errorf("keys = %s", got)
	}
	for _, h := range []uint64{items, keys, key, missing, d} {
		rt.Release(h)
	}
	expectEmptyHeap(t, rt)
}

func TestTupleIndexOutOfRangeTraps(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	tup := call(t, rt, rtabi.FnTupleNew, 1)
	defer func() {
		if _, ok := recover().(*Trap); !ok {
			t.Error("tuple_get out of range did not trap")
		}
	}()
	call(t, rt, "tuple_get", tup, 1)
}

func TestDynamic(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	i := call(t, rt, "dynamic_from_int", 7)
	f := call(t, rt, "dynamic_from_float", math.Float64bits(0.5))
	zero := call(t, rt, "dynamic_from_int", 0)
	s := call(t, rt, "dynamic_from_string", rt.NewString("ab"))

	tests := []struct {
		name string
		a, b uint64
		want string
	}{
		{"dynamic_add", i, i, "14"},
		{"dynamic_add", i, f, "7.5"},
		{"dynamic_div", i, zero, "none"},
		{"dynamic_add", s, s, "abab"},
		{"dynamic_mul", f, f, "0.25"},
	}
	for _, tt := range tests {
		r := call(t, rt, tt.name, tt.a, tt.b)
		str := call(t, rt, "dynamic_to_string", r)
		if got := rt.String(str); got != tt.want {
			t.Errorf("%s = %s, want %s", tt.name, got, tt.want)
		}
		rt.Release(str)
		rt.Release(r)
	}
	if call(t, rt, "dynamic_lt", f, i) != 1 {
		t.Error("0.5 < 7 is false")
	}
	if call(t, rt, "dynamic_eq", i, call(t, rt, "dynamic_from_float", math.Float64bits(7))) != 1 {
		t.Error("7 != 7.0")
	}
	if call(t, rt, "dynamic_to_bool", zero) != 0 {
		t.Error("0 is truthy")
	}
	if got := call(t, rt, "dynamic_type_tag", s); int64(got) != rtabi.DynString {
		t.Errorf("type tag = %d", got)
	}
}

func TestFormat(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	tup := call(t, rt, rtabi.FnTupleNew, 3)
	call(t, rt, rtabi.FnTupleSet, tup, 0, 1, uint64(rtabi.TagInt))
	call(t, rt, rtabi.FnTupleSet, tup, 1, rt.NewString("x"), uint64(rtabi.TagString))
	call(t, rt, rtabi.FnTupleSet, tup, 2, 1, uint64(rtabi.TagBool))

	tests := []struct {
		tag  rtabi.Tag
		w    uint64
		want string
	}{
		{rtabi.TagInt, negWord(3), "-3"},
		{rtabi.TagFloat, math.Float64bits(0.1), "0.1"},
		{rtabi.TagFloat, math.Float64bits(math.Inf(-1)), "-inf"},
		{rtabi.TagBool, 0, "false"},
		{rtabi.TagString, 0, "null"},
		{rtabi.TagTuple, tup, `(1, "x", true)`},
		{rtabi.TagDynamic, call(t, rt, "dynamic_from_none"), "none"},
	}
	for _, tt := range tests {
		if got := rt.Format(tt.tag, tt.w); got != tt.want {
			t.Errorf("Format(%s, %#x) = %q, want %q", tt.tag, tt.w, got, tt.want)
		}
	}
}

func TestPrintAndInput(t *testing.T) {
	var out bytes.Buffer
	rt := New(Options{Stdout: &out, Stdin: strings.NewReader("alice\r\nbob\n")})
	call(t, rt, "print_int", 42)
	call(t, rt, "print_float", math.Float64bits(1.5))
	name := call(t, rt, "input_prompt", rt.NewString("name? "))
	call(t, rt, "print_string", name)
	next := call(t, rt, "input")
	if got := rt.String(next); got != "bob" {
		t.Errorf("input = %q", got)
	}
	if got, want := out.String(), "42\n1.5\nname? alice\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
