package types

import "github.com/bolide-lang/bolide/internal/rtabi"

// Sizeof returns the size of a value of type t in bytes. Every value,
// whatever its semantic type, occupies one word.
func Sizeof(t Type) int64 {
	if t == nil || IsKind(t, None) {
		return 0
	}
	return rtabi.WordSize
}

// FieldOffset returns the byte offset of field i of a class.
func FieldOffset(i int) int64 {
	return int64(i) * rtabi.WordSize
}

// ClassSize returns the instance size of a class with n fields (inherited
// fields included).
func ClassSize(n int) int64 {
	return int64(n) * rtabi.WordSize
}
