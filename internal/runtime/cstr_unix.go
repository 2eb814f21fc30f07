//go:build unix

package runtime

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// foreignCString copies the NUL-terminated string at a foreign address.
func foreignCString(p unsafe.Pointer) string {
	return unix.BytePtrToString((*byte)(p))
}
