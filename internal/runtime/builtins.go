package runtime

import (
	"math"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Builtin is a runtime entry point. args holds one word per parameter of
// the function's rtabi signature; void functions return 0.
type Builtin func(t *Task, args []uint64) uint64

func f64(w uint64) float64 { return math.Float64frombits(w) }

func bits(x float64) uint64 { return math.Float64bits(x) }

func builtinTable() map[string]Builtin {
	m := make(map[string]Builtin, len(rtabi.RuntimeFunctions()))
	reg := func(name string, fn Builtin) {
		if _, dup := m[name]; dup {
			panic("runtime: duplicate builtin " + name)
		}
		m[name] = fn
	}
	void := func(name string, fn func(t *Task, a []uint64)) {
		reg(name, func(t *Task, a []uint64) uint64 {
			fn(t, a)
			return 0
		})
	}
	rcFamily := func(prefix string) {
		void(prefix+"_retain", func(t *Task, a []uint64) { t.rt.Retain(a[0]) })
		void(prefix+"_release", func(t *Task, a []uint64) { t.rt.Release(a[0]) })
		reg(prefix+"_clone", func(t *Task, a []uint64) uint64 {
			t.rt.Retain(a[0])
			return a[0]
		})
	}

	registerLifecycle(reg, void)
	registerObjects(reg, void, rcFamily)
	registerStrings(reg, rcFamily)
	registerNumeric(reg, rcFamily)
	registerContainers(reg, void, rcFamily)
	registerDynamic(reg, rcFamily)
	registerConcurrency(reg, void)
	return m
}

type (
	regFunc  func(string, Builtin)
	voidFunc func(string, func(*Task, []uint64))
)

func registerLifecycle(reg regFunc, void voidFunc) {
	void(rtabi.FnRuntimeInit, func(t *Task, a []uint64) { t.rt.init() })
	void(rtabi.FnRuntimeFini, func(t *Task, a []uint64) { t.rt.shutdown(t) })

	for name, tag := range map[string]rtabi.Tag{
		"print_int":     rtabi.TagInt,
		"print_float":   rtabi.TagFloat,
		"print_bool":    rtabi.TagBool,
		"print_string":  rtabi.TagString,
		"print_bigint":  rtabi.TagBigInt,
		"print_decimal": rtabi.TagDecimal,
		"print_dynamic": rtabi.TagDynamic,
		"print_list":    rtabi.TagList,
		"print_dict":    rtabi.TagDict,
		"print_tuple":   rtabi.TagTuple,
	} {
		tag := tag
		void(name, func(t *Task, a []uint64) { t.rt.print(tag, a[0]) })
	}
	reg("input", func(t *Task, a []uint64) uint64 { return t.rt.newString(t.rt.readLine()) })
	reg("input_prompt", func(t *Task, a []uint64) uint64 { return t.rt.inputPrompt(a[0]) })

	reg(rtabi.FnAlloc, func(t *Task, a []uint64) uint64 { return t.rt.alloc(int64(a[0])) })
	void(rtabi.FnFree, func(t *Task, a []uint64) { t.rt.Free(a[0]) })

	reg(rtabi.FnFFILoad, func(t *Task, a []uint64) uint64 { return t.rt.ffiLoad(a[0], int64(a[1])) })
	reg(rtabi.FnFFISymbol, func(t *Task, a []uint64) uint64 { return t.rt.ffiSymbol(a[0], a[1], int64(a[2])) })
	void(rtabi.FnFFICleanup, func(t *Task, a []uint64) { t.rt.ffiCleanup() })
}

func registerObjects(reg regFunc, void voidFunc, rcFamily func(string)) {
	reg(rtabi.FnObjectAlloc, func(t *Task, a []uint64) uint64 { return t.rt.objectAlloc(int64(a[0]), a[1]) })
	rcFamily("object")
	void("object_weak_retain", func(t *Task, a []uint64) { t.rt.WeakRetain(a[0]) })
	void("object_weak_release", func(t *Task, a []uint64) { t.rt.WeakRelease(a[0]) })
	reg("object_weak_upgrade", func(t *Task, a []uint64) uint64 { return t.rt.WeakUpgrade(a[0]) })
	reg("object_is_alive", func(t *Task, a []uint64) uint64 { return boolWord(t.rt.IsAlive(a[0])) })
	void("object_mark_moved", func(t *Task, a []uint64) { t.rt.markMoved(a[0]) })
	reg("object_is_moved", func(t *Task, a []uint64) uint64 { return boolWord(t.rt.isMoved(a[0])) })
	reg("rc_strong_count", func(t *Task, a []uint64) uint64 { return uint64(t.rt.StrongCount(a[0])) })
	reg("rc_weak_count", func(t *Task, a []uint64) uint64 { return uint64(t.rt.WeakCount(a[0])) })
}

func registerStrings(reg regFunc, rcFamily func(string)) {
	rcFamily("string")
	str := func(name string, fn func(s string) string) {
		reg(name, func(t *Task, a []uint64) uint64 { return t.rt.newString(fn(t.rt.String(a[0]))) })
	}
	pred := func(name string, fn func(s, x string) bool) {
		reg(name, func(t *Task, a []uint64) uint64 {
			return boolWord(fn(t.rt.String(a[0]), t.rt.String(a[1])))
		})
	}

	reg(rtabi.FnStringLiteral, func(t *Task, a []uint64) uint64 { return t.rt.stringLiteral(t, a[0], int64(a[1])) })
	reg("string_from_slice", func(t *Task, a []uint64) uint64 { return t.rt.stringFromSlice(a[0], int64(a[1])) })
	reg("string_concat", func(t *Task, a []uint64) uint64 {
		return t.rt.newString(t.rt.String(a[0]) + t.rt.String(a[1]))
	})
	reg("string_len", func(t *Task, a []uint64) uint64 {
		return uint64(utf8.RuneCountInString(t.rt.String(a[0])))
	})
	reg("string_from_int", func(t *Task, a []uint64) uint64 { return t.rt.newString(t.rt.format(rtabi.TagInt, a[0], false)) })
	reg("string_from_float", func(t *Task, a []uint64) uint64 { return t.rt.newString(FormatFloat(f64(a[0]))) })
	reg("string_from_bool", func(t *Task, a []uint64) uint64 { return t.rt.newString(formatBool(a[0])) })
	reg("string_from_bigint", func(t *Task, a []uint64) uint64 { return t.rt.newString(t.rt.bigint(a[0]).String()) })
	reg("string_from_decimal", func(t *Task, a []uint64) uint64 { return t.rt.newString(t.rt.decimal(a[0]).String()) })
	reg("string_to_int", func(t *Task, a []uint64) uint64 { return uint64(parseInt(t.rt.String(a[0]))) })
	reg("string_to_float", func(t *Task, a []uint64) uint64 { return bits(parseFloat(t.rt.String(a[0]))) })
	reg(rtabi.FnStringAsCStr, func(t *Task, a []uint64) uint64 { return t.rt.asCStr(a[0]) })
	reg("string_from_cstr", func(t *Task, a []uint64) uint64 { return t.rt.stringFromCStr(a[0]) })
	str("string_upper", strings.ToUpper)
	str("string_lower", strings.ToLower)
	str("string_trim", strings.TrimSpace)
	pred("string_contains", strings.Contains)
	pred("string_starts_with", strings.HasPrefix)
	pred("string_ends_with", strings.HasSuffix)
	reg("string_find", func(t *Task, a []uint64) uint64 { return uint64(t.rt.stringFind(a[0], a[1])) })
	reg("string_replace", func(t *Task, a []uint64) uint64 {
		return t.rt.newString(strings.ReplaceAll(t.rt.String(a[0]), t.rt.String(a[1]), t.rt.String(a[2])))
	})
	reg("string_split", func(t *Task, a []uint64) uint64 { return t.rt.stringSplit(a[0], a[1]) })
	reg("string_slice", func(t *Task, a []uint64) uint64 {
		return t.rt.newString(runeSlice(t.rt.String(a[0]), int64(a[1]), int64(a[2])))
	})
	reg("string_repeat", func(t *Task, a []uint64) uint64 { return t.rt.stringRepeat(a[0], int64(a[1])) })
	reg("string_char_at", func(t *Task, a []uint64) uint64 { return t.rt.stringCharAt(a[0], int64(a[1])) })
	for _, op := range []string{"eq", "ne", "lt", "le", "gt", "ge"} {
		op := op
		reg("string_"+op, func(t *Task, a []uint64) uint64 { return cmpWord(t.rt.stringCompare(a[0], a[1]), op) })
	}
}

var (
	arithOps = []string{"add", "sub", "mul", "div", "rem"}
	cmpOps   = []string{"eq", "ne", "lt", "le", "gt", "ge", "cmp"}
)

func registerNumeric(reg regFunc, rcFamily func(string)) {
	rcFamily("bigint")
	for _, op := range arithOps {
		op := op
		reg("bigint_"+op, func(t *Task, a []uint64) uint64 { return t.rt.bigintArith(op, a[0], a[1]) })
	}
	for _, op := range cmpOps {
		op := op
		reg("bigint_"+op, func(t *Task, a []uint64) uint64 {
			return cmpWord(t.rt.bigint(a[0]).Cmp(t.rt.bigint(a[1])), op)
		})
	}
	reg("bigint_neg", func(t *Task, a []uint64) uint64 { return t.rt.newBigInt(new(big.Int).Neg(t.rt.bigint(a[0]))) })
	reg("bigint_abs", func(t *Task, a []uint64) uint64 { return t.rt.newBigInt(new(big.Int).Abs(t.rt.bigint(a[0]))) })
	reg("bigint_to_i64", func(t *Task, a []uint64) uint64 { return uint64(t.rt.bigint(a[0]).Int64()) })
	reg("bigint_to_f64", func(t *Task, a []uint64) uint64 { return bits(t.rt.bigintToF64(a[0])) })
	reg("bigint_from_i64", func(t *Task, a []uint64) uint64 { return t.rt.newBigInt(big.NewInt(int64(a[0]))) })
	reg("bigint_from_f64", func(t *Task, a []uint64) uint64 { return t.rt.bigintFromF64(f64(a[0])) })
	reg("bigint_from_str", func(t *Task, a []uint64) uint64 { return t.rt.bigintFromStr(a[0]) })
	reg("bigint_pow", func(t *Task, a []uint64) uint64 { return t.rt.bigintPow(a[0], int64(a[1])) })

	rcFamily("decimal")
	for _, op := range arithOps {
		op := op
		reg("decimal_"+op, func(t *Task, a []uint64) uint64 { return t.rt.decimalArith(op, a[0], a[1]) })
	}
	for _, op := range cmpOps {
		op := op
		reg("decimal_"+op, func(t *Task, a []uint64) uint64 {
			return cmpWord(t.rt.decimal(a[0]).Cmp(t.rt.decimal(a[1])), op)
		})
	}
	dec := func(name string, fn func(d decimal.Decimal) decimal.Decimal) {
		reg(name, func(t *Task, a []uint64) uint64 { return t.rt.newDecimal(fn(t.rt.decimal(a[0]))) })
	}
	dec("decimal_neg", decimal.Decimal.Neg)
	dec("decimal_abs", decimal.Decimal.Abs)
	dec("decimal_floor", decimal.Decimal.Floor)
	dec("decimal_ceil", decimal.Decimal.Ceil)
	reg("decimal_round", func(t *Task, a []uint64) uint64 {
		return t.rt.newDecimal(t.rt.decimal(a[0]).Round(int32(int64(a[1]))))
	})
	reg("decimal_to_i64", func(t *Task, a []uint64) uint64 { return uint64(t.rt.decimal(a[0]).IntPart()) })
	reg("decimal_to_f64", func(t *Task, a []uint64) uint64 { return bits(t.rt.decimal(a[0]).InexactFloat64()) })
	reg("decimal_from_i64", func(t *Task, a []uint64) uint64 { return t.rt.newDecimal(decimal.NewFromInt(int64(a[0]))) })
	reg("decimal_from_f64", func(t *Task, a []uint64) uint64 { return t.rt.decimalFromF64(f64(a[0])) })
	reg("decimal_from_str", func(t *Task, a []uint64) uint64 { return t.rt.decimalFromStr(a[0]) })
}

func registerContainers(reg regFunc, void voidFunc, rcFamily func(string)) {
	rcFamily("list")
	reg("list_new", func(t *Task, a []uint64) uint64 { return t.rt.newList(rtabi.Tag(a[0]), nil) })
	reg("list_copy", func(t *Task, a []uint64) uint64 { return t.rt.listCopy(a[0]) })
	void("list_push", func(t *Task, a []uint64) {
		l := t.rt.list(a[0])
		l.items = append(l.items, a[1])
	})
	reg("list_pop", func(t *Task, a []uint64) uint64 { return t.rt.listPop(a[0]) })
	reg("list_len", func(t *Task, a []uint64) uint64 { return uint64(len(t.rt.list(a[0]).items)) })
	reg("list_get", func(t *Task, a []uint64) uint64 { return t.rt.listGet(a[0], int64(a[1])) })
	void("list_set", func(t *Task, a []uint64) { t.rt.listSet(a[0], int64(a[1]), a[2]) })
	void("list_insert", func(t *Task, a []uint64) { t.rt.listInsert(a[0], int64(a[1]), a[2]) })
	reg("list_remove", func(t *Task, a []uint64) uint64 { return t.rt.listRemove(a[0], int64(a[1])) })
	void("list_clear", func(t *Task, a []uint64) { t.rt.listClear(a[0]) })
	void("list_reverse", func(t *Task, a []uint64) { t.rt.listReverse(a[0]) })
	void("list_extend", func(t *Task, a []uint64) { t.rt.listExtend(a[0], a[1]) })
	reg("list_contains", func(t *Task, a []uint64) uint64 { return boolWord(t.rt.listIndexOf(a[0], a[1]) >= 0) })
	reg("list_index_of", func(t *Task, a []uint64) uint64 { return uint64(t.rt.listIndexOf(a[0], a[1])) })
	reg("list_count", func(t *Task, a []uint64) uint64 { return uint64(t.rt.listCount(a[0], a[1])) })
	void("list_sort", func(t *Task, a []uint64) { t.rt.listSort(a[0]) })
	reg("list_slice", func(t *Task, a []uint64) uint64 { return t.rt.listSlice(a[0], int64(a[1]), int64(a[2])) })
	reg("list_is_empty", func(t *Task, a []uint64) uint64 { return boolWord(len(t.rt.list(a[0]).items) == 0) })
	reg("list_first", func(t *Task, a []uint64) uint64 { return t.rt.listGet(a[0], 0) })
	reg("list_last", func(t *Task, a []uint64) uint64 {
		return t.rt.listGet(a[0], int64(len(t.rt.list(a[0]).items))-1)
	})
	reg("list_sum_int", func(t *Task, a []uint64) uint64 { return uint64(t.rt.listSumInt(a[0])) })
	reg("list_join", func(t *Task, a []uint64) uint64 { return t.rt.listJoin(a[0], a[1]) })

	rcFamily("dict")
	reg("dict_new", func(t *Task, a []uint64) uint64 { return t.rt.newDict(rtabi.Tag(a[0]), rtabi.Tag(a[1])) })
	reg("dict_copy", func(t *Task, a []uint64) uint64 { return t.rt.dictCopy(a[0]) })
	void("dict_set", func(t *Task, a []uint64) { t.rt.dictSet(a[0], a[1], a[2]) })
	reg("dict_get", func(t *Task, a []uint64) uint64 { return t.rt.dictGet(a[0], a[1], 0) })
	reg("dict_get_or", func(t *Task, a []uint64) uint64 { return t.rt.dictGet(a[0], a[1], a[2]) })
	reg("dict_contains", func(t *Task, a []uint64) uint64 {
		_, ok := t.rt.dictFind(t.rt.dict(a[0]), a[1])
		return boolWord(ok)
	})
	reg("dict_remove", func(t *Task, a []uint64) uint64 { return t.rt.dictRemove(a[0], a[1]) })
	reg("dict_len", func(t *Task, a []uint64) uint64 { return uint64(len(t.rt.dict(a[0]).keys)) })
	reg("dict_is_empty", func(t *Task, a []uint64) uint64 { return boolWord(len(t.rt.dict(a[0]).keys) == 0) })
	void("dict_clear", func(t *Task, a []uint64) { t.rt.dictClear(a[0]) })
	reg("dict_keys", func(t *Task, a []uint64) uint64 { return t.rt.dictColumn(a[0], false) })
	reg("dict_values", func(t *Task, a []uint64) uint64 { return t.rt.dictColumn(a[0], true) })
	reg("dict_items", func(t *Task, a []uint64) uint64 { return t.rt.dictItems(a[0]) })
	reg("dict_iter", func(t *Task, a []uint64) uint64 { return t.rt.dictColumn(a[0], false) })

	rcFamily("tuple")
	reg(rtabi.FnTupleNew, func(t *Task, a []uint64) uint64 { return t.rt.tupleNew(int64(a[0])) })
	void("tuple_free", func(t *Task, a []uint64) { t.rt.Release(a[0]) })
	void(rtabi.FnTupleSet, func(t *Task, a []uint64) { t.rt.tupleSet(a[0], int64(a[1]), a[2], rtabi.Tag(a[3])) })
	reg("tuple_get", func(t *Task, a []uint64) uint64 { return t.rt.tupleGet(a[0], int64(a[1])) })
	reg("tuple_len", func(t *Task, a []uint64) uint64 { return uint64(len(t.rt.tuple(a[0]).items)) })

	for name, tag := range map[string]rtabi.Tag{
		"list_to_string":  rtabi.TagList,
		"dict_to_string":  rtabi.TagDict,
		"tuple_to_string": rtabi.TagTuple,
	} {
		tag := tag
		reg(name, func(t *Task, a []uint64) uint64 { return t.rt.newString(t.rt.format(tag, a[0], false)) })
	}
}

func registerDynamic(reg regFunc, rcFamily func(string)) {
	rcFamily("dynamic")
	for name, kind := range map[string]int64{
		"dynamic_from_int":     rtabi.DynInt,
		"dynamic_from_float":   rtabi.DynFloat,
		"dynamic_from_bigint":  rtabi.DynBigInt,
		"dynamic_from_decimal": rtabi.DynDecimal,
		"dynamic_from_string":  rtabi.DynString,
		"dynamic_from_list":    rtabi.DynList,
	} {
		kind := kind
		reg(name, func(t *Task, a []uint64) uint64 { return t.rt.newDynamic(kind, a[0]) })
	}
	reg("dynamic_from_none", func(t *Task, a []uint64) uint64 { return t.rt.newDynamic(rtabi.DynNone, 0) })
	reg("dynamic_from_bool", func(t *Task, a []uint64) uint64 { return t.rt.newDynamic(rtabi.DynBool, boolWord(a[0] != 0)) })
	reg("dynamic_to_int", func(t *Task, a []uint64) uint64 { return uint64(t.rt.dynToInt(t.rt.dynamic(a[0]))) })
	reg("dynamic_to_float", func(t *Task, a []uint64) uint64 { return bits(t.rt.dynToFloat(t.rt.dynamic(a[0]))) })
	reg("dynamic_to_bool", func(t *Task, a []uint64) uint64 { return boolWord(t.rt.dynTruthy(t.rt.dynamic(a[0]))) })
	reg("dynamic_to_string", func(t *Task, a []uint64) uint64 {
		return t.rt.newString(t.rt.formatDynamic(t.rt.dynamic(a[0]), false))
	})
	reg("dynamic_type_tag", func(t *Task, a []uint64) uint64 { return uint64(t.rt.dynamic(a[0]).kind) })
	for _, op := range []string{"add", "sub", "mul", "div"} {
		op := op
		reg("dynamic_"+op, func(t *Task, a []uint64) uint64 { return t.rt.dynamicArith(op, a[0], a[1]) })
	}
	reg("dynamic_eq", func(t *Task, a []uint64) uint64 { return boolWord(t.rt.dynamicEq(a[0], a[1])) })
	reg("dynamic_lt", func(t *Task, a []uint64) uint64 { return boolWord(t.rt.dynamicLt(a[0], a[1])) })
}

func registerConcurrency(reg regFunc, void voidFunc) {
	spawnFamily := func(prefix, wait string, pooled bool) {
		for _, c := range []struct {
			suffix string
			class  rtabi.Class
		}{{"int", rtabi.I64}, {"float", rtabi.F64}, {"ptr", rtabi.Ptr}} {
			class := c.class
			reg(prefix+"_spawn_"+c.suffix, func(t *Task, a []uint64) uint64 {
				return t.rt.spawn(t, class, a[0], 0, pooled)
			})
			reg(prefix+"_spawn_"+c.suffix+"_with_env", func(t *Task, a []uint64) uint64 {
				return t.rt.spawn(t, class, a[0], a[1], pooled)
			})
			reg(prefix+"_"+wait+"_"+c.suffix, func(t *Task, a []uint64) uint64 { return t.rt.await(a[0]) })
		}
	}
	cancel := func(t *Task, a []uint64) {
		if a[0] != 0 {
			t.rt.future(a[0]).cancel()
		}
	}
	free := func(t *Task, a []uint64) { t.rt.Release(a[0]) }

	spawnFamily("thread", "join", false)
	void("thread_handle_free", free)
	void("thread_cancel", cancel)
	reg("thread_is_cancelled", func(t *Task, a []uint64) uint64 {
		return boolWord(t.rt.future(a[0]).cancelRequested.Load())
	})
	reg("thread_current_cancelled", func(t *Task, a []uint64) uint64 { return boolWord(t.cancelled()) })
	void("thread_sleep", func(t *Task, a []uint64) {
		if ms := int64(a[0]); ms > 0 {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
	})

	reg("pool_create", func(t *Task, a []uint64) uint64 { return t.rt.poolCreate(int64(a[0])) })
	void("pool_enter", func(t *Task, a []uint64) { t.poolEnter(a[0]) })
	void("pool_exit", func(t *Task, a []uint64) { t.poolExit() })
	reg(rtabi.FnPoolIsActive, func(t *Task, a []uint64) uint64 { return boolWord(t.activePool() != nil) })
	void("pool_handle_free", free)
	void("pool_destroy", func(t *Task, a []uint64) { t.rt.poolDestroy(a[0]) })
	spawnFamily("pool", "join", true)

	reg("channel_create", func(t *Task, a []uint64) uint64 { return t.rt.channelCreate(int64(a[0]), 0) })
	reg("channel_create_buffered", func(t *Task, a []uint64) uint64 {
		return t.rt.channelCreate(int64(a[0]), int64(a[1]))
	})
	reg("channel_send", func(t *Task, a []uint64) uint64 { return uint64(t.rt.channelSend(a[0], a[1])) })
	reg("channel_recv", func(t *Task, a []uint64) uint64 { return t.rt.channelRecv(a[0]) })
	reg("channel_try_recv", func(t *Task, a []uint64) uint64 { return t.rt.channelTryRecv(a[0], a[1]) })
	void("channel_close", func(t *Task, a []uint64) {
		if a[0] != 0 {
			t.rt.channel(a[0]).close()
		}
	})
	reg("channel_is_closed", func(t *Task, a []uint64) uint64 {
		return boolWord(a[0] == 0 || t.rt.channel(a[0]).isClosed())
	})
	void("channel_free", free)
	reg(rtabi.FnChannelSelect, func(t *Task, a []uint64) uint64 {
		return uint64(t.rt.channelSelect(a[0], int64(a[1]), int64(a[2]), a[3]))
	})

	spawnFamily("coroutine", "await", false)
	void("coroutine_cancel", cancel)
	reg("coroutine_is_done", func(t *Task, a []uint64) uint64 { return boolWord(t.rt.future(a[0]).Done()) })
	void(rtabi.FnCoroutineFree, free)

	void(rtabi.FnScopeEnter, func(t *Task, a []uint64) { t.scopeEnter() })
	void(rtabi.FnScopeRegister, func(t *Task, a []uint64) { t.scopeRegister(a[0]) })
	void(rtabi.FnScopeExit, func(t *Task, a []uint64) { t.scopeExit() })
	reg(rtabi.FnSelectFirst, func(t *Task, a []uint64) uint64 {
		return uint64(t.rt.selectFirst(a[0], int64(a[1])))
	})
}
