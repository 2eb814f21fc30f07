//go:build !unix

package runtime

import "unsafe"

func foreignCString(p unsafe.Pointer) string {
	var b []byte
	for {
		c := *(*byte)(unsafe.Add(p, len(b)))
		if c == 0 {
			return string(b)
		}
		b = append(b, c)
	}
}
