package types

import "github.com/bolide-lang/bolide/internal/rtabi"

// Identical reports whether x and y are identical types.
func Identical(x, y Type) bool {
	if x == y {
		return true
	}
	if x == nil || y == nil {
		return false
	}
	switch x := x.(type) {
	case *Basic:
		if y, ok := y.(*Basic); ok {
			return x.kind == y.kind
		}
	case *List:
		if y, ok := y.(*List); ok {
			return Identical(x.elem, y.elem)
		}
	case *Dict:
		if y, ok := y.(*Dict); ok {
			return Identical(x.key, y.key) && Identical(x.value, y.value)
		}
	case *Tuple:
		if y, ok := y.(*Tuple); ok {
			return identicalLists(x.elems, y.elems)
		}
	case *Channel:
		if y, ok := y.(*Channel); ok {
			return Identical(x.elem, y.elem)
		}
	case *Func:
		if y, ok := y.(*Func); ok {
			return identicalLists(x.params, y.params) && Identical(x.result, y.result)
		}
	case *Weak:
		if y, ok := y.(*Weak); ok {
			return Identical(x.base, y.base)
		}
	case *Unowned:
		if y, ok := y.(*Unowned); ok {
			return Identical(x.base, y.base)
		}
	case *Class:
		if y, ok := y.(*Class); ok {
			return x.name == y.name
		}
	}
	return false
}

func identicalLists(xs, ys []Type) bool {
	if len(xs) != len(ys) {
		return false
	}
	for i := range xs {
		if !Identical(xs[i], ys[i]) {
			return false
		}
	}
	return true
}

// IsKind reports whether t is the basic type of the given kind.
func IsKind(t Type, kind BasicKind) bool {
	b, ok := t.(*Basic)
	return ok && b.kind == kind
}

// IsFloat reports whether t is float.
func IsFloat(t Type) bool { return IsKind(t, Float) }

// IsString reports whether t is str.
func IsString(t Type) bool { return IsKind(t, Str) }

// IsBigInt reports whether t is bigint.
func IsBigInt(t Type) bool { return IsKind(t, BigInt) }

// IsDecimal reports whether t is decimal.
func IsDecimal(t Type) bool { return IsKind(t, Decimal) }

// IsDynamic reports whether t is dynamic.
func IsDynamic(t Type) bool { return IsKind(t, Dynamic) }

// IsClass reports whether t is a class instance type.
func IsClass(t Type) bool {
	_, ok := t.(*Class)
	return ok
}

// IsRC reports whether values of t are strong references to reference
// counted heap objects. weak and unowned references are not.
func IsRC(t Type) bool {
	switch t := t.(type) {
	case *Basic:
		switch t.kind {
		case Str, BigInt, Decimal, Dynamic:
			return true
		}
	case *List, *Dict, *Tuple, *Class:
		return true
	}
	return false
}

// IsNonOwning reports whether t is a weak or unowned reference.
func IsNonOwning(t Type) bool {
	switch t.(type) {
	case *Weak, *Unowned:
		return true
	}
	return false
}

// ValueClass returns the machine class used to carry a value of type t.
// A nil type (no result) maps to rtabi.Void.
func ValueClass(t Type) rtabi.Class {
	if t == nil || IsKind(t, None) {
		return rtabi.Void
	}
	if IsFloat(t) {
		return rtabi.F64
	}
	if IsRC(t) || IsNonOwning(t) || IsKind(t, Ptr) {
		return rtabi.Ptr
	}
	return rtabi.I64
}

// SpawnSuffix returns the runtime variant suffix ("int", "float" or "ptr")
// for spawning, joining or awaiting a task whose result has type t.
// int/bool/none/channel/future results travel in the int class.
func SpawnSuffix(t Type) string {
	switch ValueClass(t) {
	case rtabi.F64:
		return "float"
	case rtabi.Ptr:
		return "ptr"
	}
	return "int"
}

// RCPrefix returns the runtime symbol prefix for retain/release/clone of an
// RC type ("string", "list", "object", ...), or "" if t is not RC.
func RCPrefix(t Type) string {
	switch t := t.(type) {
	case *Basic:
		switch t.kind {
		case Str:
			return "string"
		case BigInt:
			return "bigint"
		case Decimal:
			return "decimal"
		case Dynamic:
			return "dynamic"
		}
	case *List:
		return "list"
	case *Dict:
		return "dict"
	case *Tuple:
		return "tuple"
	case *Class:
		return "object"
	}
	return ""
}

// TagOf returns the runtime tag describing how a container slot holding a
// value of type t must be treated on release.
func TagOf(t Type) rtabi.Tag {
	switch t := t.(type) {
	case *Basic:
		switch t.kind {
		case Int:
			return rtabi.TagInt
		case Float:
			return rtabi.TagFloat
		case Bool:
			return rtabi.TagBool
		case Str:
			return rtabi.TagString
		case BigInt:
			return rtabi.TagBigInt
		case Decimal:
			return rtabi.TagDecimal
		case Dynamic:
			return rtabi.TagDynamic
		}
	case *List:
		return rtabi.TagList
	case *Dict:
		return rtabi.TagDict
	case *Tuple:
		return rtabi.TagTuple
	case *Class:
		return rtabi.TagObject
	}
	return rtabi.TagNone
}

// Deref strips weak and unowned wrappers.
func Deref(t Type) Type {
	switch r := t.(type) {
	case *Weak:
		return r.base
	case *Unowned:
		return r.base
	}
	return t
}

// Elem returns the element type of a list or channel, the value type of a
// dict, or nil.
func Elem(t Type) Type {
	switch t := t.(type) {
	case *List:
		return t.elem
	case *Channel:
		return t.elem
	case *Dict:
		return t.value
	}
	return nil
}
