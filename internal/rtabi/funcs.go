package rtabi

import "sort"

// Class is the machine class of a value crossing the runtime boundary.
// Pointers travel as 64-bit words; the distinction from I64 only matters to
// the native backend, which declares them as pointer parameters.
type Class uint8

const (
	Void Class = iota
	I64
	F64
	Ptr
)

func (c Class) String() string {
	switch c {
	case Void:
		return "void"
	case I64:
		return "i64"
	case F64:
		return "f64"
	case Ptr:
		return "ptr"
	}
	return "?"
}

// Runtime symbols referenced directly by name in the compiler.
const (
	FnAlloc         = "bolide_alloc"
	FnFree          = "bolide_free"
	FnRuntimeInit   = "runtime_init"
	FnRuntimeFini   = "runtime_shutdown"
	FnObjectAlloc   = "object_alloc"
	FnStringLiteral = "string_literal"
	FnStringAsCStr  = "string_as_cstr"
	FnFFILoad       = "ffi_load_library"
	FnFFISymbol     = "ffi_get_symbol"
	FnFFICleanup    = "ffi_cleanup"
	FnPoolIsActive  = "pool_is_active"
	FnScopeEnter    = "scope_enter"
	FnScopeRegister = "scope_register"
	FnScopeExit     = "scope_exit"
	FnSelectFirst   = "select_wait_first"
	FnChannelSelect = "channel_select"
	FnTupleNew      = "tuple_new"
	FnTupleSet      = "tuple_set"
	FnCoroutineFree = "coroutine_free"
)

// EntrySymbol is the exported symbol of a native executable. The compiled
// top-level code is emitted as UserEntry and called from it.
const (
	EntrySymbol = "main"
	UserEntry   = "bolide_main"
)

// FuncSignature describes a runtime function's signature for code generation.
type FuncSignature struct {
	Name   string
	Result Class
	Params []Class
}

func sig(name string, result Class, params ...Class) FuncSignature {
	return FuncSignature{Name: name, Result: result, Params: params}
}

// spawnFamily expands the int/float/ptr spawn, join and await variants
// shared by the thread, pool and coroutine groups.
func spawnFamily(prefix, wait string) []FuncSignature {
	var out []FuncSignature
	for _, c := range []struct {
		suffix string
		class  Class
	}{{"int", I64}, {"float", F64}, {"ptr", Ptr}} {
		out = append(out,
			sig(prefix+"_spawn_"+c.suffix, Ptr, Ptr),
			sig(prefix+"_spawn_"+c.suffix+"_with_env", Ptr, Ptr, Ptr),
			sig(prefix+"_"+wait+"_"+c.suffix, c.class, Ptr),
		)
	}
	return out
}

// rcFamily expands retain/release/clone for an RC type.
func rcFamily(prefix string) []FuncSignature {
	return []FuncSignature{
		sig(prefix+"_retain", Void, Ptr),
		sig(prefix+"_release", Void, Ptr),
		sig(prefix+"_clone", Ptr, Ptr),
	}
}

// arithFamily expands the exact-arithmetic group shared by bigint and decimal.
func arithFamily(prefix string) []FuncSignature {
	out := rcFamily(prefix)
	for _, op := range []string{"add", "sub", "mul", "div", "rem"} {
		out = append(out, sig(prefix+"_"+op, Ptr, Ptr, Ptr))
	}
	for _, op := range []string{"eq", "ne", "lt", "le", "gt", "ge", "cmp"} {
		out = append(out, sig(prefix+"_"+op, I64, Ptr, Ptr))
	}
	return append(out,
		sig(prefix+"_neg", Ptr, Ptr),
		sig(prefix+"_abs", Ptr, Ptr),
		sig(prefix+"_to_i64", I64, Ptr),
		sig(prefix+"_to_f64", F64, Ptr),
		sig(prefix+"_from_i64", Ptr, I64),
		sig(prefix+"_from_f64", Ptr, F64),
		sig(prefix+"_from_str", Ptr, Ptr),
	)
}

var manifest []FuncSignature

var manifestIndex map[string]int

func init() {
	manifest = buildManifest()
	manifestIndex = make(map[string]int, len(manifest))
	for i, fn := range manifest {
		manifestIndex[fn.Name] = i
	}
}

func buildManifest() []FuncSignature {
	var m []FuncSignature
	add := func(fns ...FuncSignature) { m = append(m, fns...) }

	// Lifecycle
	add(sig(FnRuntimeInit, Void), sig(FnRuntimeFini, Void))

	// Print
	add(
		sig("print_int", Void, I64),
		sig("print_float", Void, F64),
		sig("print_bool", Void, I64),
		sig("print_string", Void, Ptr),
		sig("print_bigint", Void, Ptr),
		sig("print_decimal", Void, Ptr),
		sig("print_dynamic", Void, Ptr),
		sig("print_list", Void, Ptr),
		sig("print_dict", Void, Ptr),
		sig("print_tuple", Void, Ptr),
	)

	// Input
	add(sig("input", Ptr), sig("input_prompt", Ptr, Ptr))

	// Heap allocation
	add(sig(FnAlloc, Ptr, I64), sig(FnFree, Void, Ptr, I64))

	// Objects
	add(sig(FnObjectAlloc, Ptr, I64, Ptr))
	add(rcFamily("object")...)
	add(
		sig("object_weak_retain", Void, Ptr),
		sig("object_weak_release", Void, Ptr),
		sig("object_weak_upgrade", Ptr, Ptr),
		sig("object_is_alive", I64, Ptr),
		sig("object_mark_moved", Void, Ptr),
		sig("object_is_moved", I64, Ptr),
		sig("rc_strong_count", I64, Ptr),
		sig("rc_weak_count", I64, Ptr),
	)

	// Strings
	add(rcFamily("string")...)
	add(
		sig(FnStringLiteral, Ptr, Ptr, I64),
		sig("string_from_slice", Ptr, Ptr, I64),
		sig("string_concat", Ptr, Ptr, Ptr),
		sig("string_len", I64, Ptr),
		sig("string_from_int", Ptr, I64),
		sig("string_from_float", Ptr, F64),
		sig("string_from_bool", Ptr, I64),
		sig("string_from_bigint", Ptr, Ptr),
		sig("string_from_decimal", Ptr, Ptr),
		sig("string_to_int", I64, Ptr),
		sig("string_to_float", F64, Ptr),
		sig(FnStringAsCStr, Ptr, Ptr),
		sig("string_from_cstr", Ptr, Ptr),
		sig("string_upper", Ptr, Ptr),
		sig("string_lower", Ptr, Ptr),
		sig("string_trim", Ptr, Ptr),
		sig("string_contains", I64, Ptr, Ptr),
		sig("string_starts_with", I64, Ptr, Ptr),
		sig("string_ends_with", I64, Ptr, Ptr),
		sig("string_find", I64, Ptr, Ptr),
		sig("string_replace", Ptr, Ptr, Ptr, Ptr),
		sig("string_split", Ptr, Ptr, Ptr),
		sig("string_slice", Ptr, Ptr, I64, I64),
		sig("string_repeat", Ptr, Ptr, I64),
		sig("string_char_at", Ptr, Ptr, I64),
	)
	for _, op := range []string{"eq", "ne", "lt", "le", "gt", "ge"} {
		add(sig("string_"+op, I64, Ptr, Ptr))
	}

	// Exact arithmetic
	add(arithFamily("bigint")...)
	add(sig("bigint_pow", Ptr, Ptr, I64))
	add(arithFamily("decimal")...)
	add(
		sig("decimal_round", Ptr, Ptr, I64),
		sig("decimal_floor", Ptr, Ptr),
		sig("decimal_ceil", Ptr, Ptr),
	)

	// Lists
	add(rcFamily("list")...)
	add(
		sig("list_new", Ptr, I64),
		sig("list_copy", Ptr, Ptr),
		sig("list_push", Void, Ptr, I64),
		sig("list_pop", I64, Ptr),
		sig("list_len", I64, Ptr),
		sig("list_get", I64, Ptr, I64),
		sig("list_set", Void, Ptr, I64, I64),
		sig("list_insert", Void, Ptr, I64, I64),
		sig("list_remove", I64, Ptr, I64),
		sig("list_clear", Void, Ptr),
		sig("list_reverse", Void, Ptr),
		sig("list_extend", Void, Ptr, Ptr),
		sig("list_contains", I64, Ptr, I64),
		sig("list_index_of", I64, Ptr, I64),
		sig("list_count", I64, Ptr, I64),
		sig("list_sort", Void, Ptr),
		sig("list_slice", Ptr, Ptr, I64, I64),
		sig("list_is_empty", I64, Ptr),
		sig("list_first", I64, Ptr),
		sig("list_last", I64, Ptr),
		sig("list_sum_int", I64, Ptr),
		sig("list_join", Ptr, Ptr, Ptr),
		sig("list_to_string", Ptr, Ptr),
	)

	// Dicts
	add(rcFamily("dict")...)
	add(
		sig("dict_new", Ptr, I64, I64),
		sig("dict_copy", Ptr, Ptr),
		sig("dict_set", Void, Ptr, I64, I64),
		sig("dict_get", I64, Ptr, I64),
		sig("dict_get_or", I64, Ptr, I64, I64),
		sig("dict_contains", I64, Ptr, I64),
		sig("dict_remove", I64, Ptr, I64),
		sig("dict_len", I64, Ptr),
		sig("dict_is_empty", I64, Ptr),
		sig("dict_clear", Void, Ptr),
		sig("dict_keys", Ptr, Ptr),
		sig("dict_values", Ptr, Ptr),
		sig("dict_items", Ptr, Ptr),
		sig("dict_iter", Ptr, Ptr),
		sig("dict_to_string", Ptr, Ptr),
	)

	// Tuples
	add(rcFamily("tuple")...)
	add(
		sig(FnTupleNew, Ptr, I64),
		sig("tuple_free", Void, Ptr),
		sig(FnTupleSet, Void, Ptr, I64, I64, I64),
		sig("tuple_get", I64, Ptr, I64),
		sig("tuple_len", I64, Ptr),
		sig("tuple_to_string", Ptr, Ptr),
	)

	// Dynamic
	add(rcFamily("dynamic")...)
	add(
		sig("dynamic_from_none", Ptr),
		sig("dynamic_from_bool", Ptr, I64),
		sig("dynamic_from_int", Ptr, I64),
		sig("dynamic_from_float", Ptr, F64),
		sig("dynamic_from_bigint", Ptr, Ptr),
		sig("dynamic_from_decimal", Ptr, Ptr),
		sig("dynamic_from_string", Ptr, Ptr),
		sig("dynamic_from_list", Ptr, Ptr),
		sig("dynamic_to_int", I64, Ptr),
		sig("dynamic_to_float", F64, Ptr),
		sig("dynamic_to_bool", I64, Ptr),
		sig("dynamic_to_string", Ptr, Ptr),
		sig("dynamic_type_tag", I64, Ptr),
		sig("dynamic_add", Ptr, Ptr, Ptr),
		sig("dynamic_sub", Ptr, Ptr, Ptr),
		sig("dynamic_mul", Ptr, Ptr, Ptr),
		sig("dynamic_div", Ptr, Ptr, Ptr),
		sig("dynamic_eq", I64, Ptr, Ptr),
		sig("dynamic_lt", I64, Ptr, Ptr),
	)

	// Threads
	add(spawnFamily("thread", "join")...)
	add(
		sig("thread_handle_free", Void, Ptr),
		sig("thread_cancel", Void, Ptr),
		sig("thread_is_cancelled", I64, Ptr),
		sig("thread_current_cancelled", I64),
		sig("thread_sleep", Void, I64),
	)

	// Pool
	add(
		sig("pool_create", Ptr, I64),
		sig("pool_enter", Void, Ptr),
		sig("pool_exit", Void),
		sig(FnPoolIsActive, I64),
		sig("pool_handle_free", Void, Ptr),
		sig("pool_destroy", Void, Ptr),
	)
	add(spawnFamily("pool", "join")...)

	// Channels
	add(
		sig("channel_create", Ptr, I64),
		sig("channel_create_buffered", Ptr, I64, I64),
		sig("channel_send", I64, Ptr, I64),
		sig("channel_recv", I64, Ptr),
		sig("channel_try_recv", I64, Ptr, Ptr),
		sig("channel_close", Void, Ptr),
		sig("channel_is_closed", I64, Ptr),
		sig("channel_free", Void, Ptr),
		sig(FnChannelSelect, I64, Ptr, I64, I64, Ptr),
	)

	// Coroutines
	add(spawnFamily("coroutine", "await")...)
	add(
		sig("coroutine_cancel", Void, Ptr),
		sig("coroutine_is_done", I64, Ptr),
		sig(FnCoroutineFree, Void, Ptr),
	)

	// Structured concurrency
	add(
		sig(FnScopeEnter, Void),
		sig(FnScopeRegister, Void, Ptr),
		sig(FnScopeExit, Void),
		sig(FnSelectFirst, I64, Ptr, I64),
	)

	// FFI
	add(
		sig(FnFFILoad, Ptr, Ptr, I64),
		sig(FnFFISymbol, Ptr, Ptr, Ptr, I64),
		sig(FnFFICleanup, Void),
	)

	return m
}

// RuntimeFunctions returns the signatures of all runtime functions in
// declaration order.
func RuntimeFunctions() []FuncSignature {
	return manifest
}

// Lookup returns the signature of the named runtime function.
func Lookup(name string) (FuncSignature, bool) {
	i, ok := manifestIndex[name]
	if !ok {
		return FuncSignature{}, false
	}
	return manifest[i], true
}

// Names returns the sorted names of all runtime functions.
func Names() []string {
	names := make([]string, 0, len(manifest))
	for _, fn := range manifest {
		names = append(names, fn.Name)
	}
	sort.Strings(names)
	return names
}
