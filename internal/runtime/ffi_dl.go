//go:build darwin || linux || freebsd

package runtime

import (
	"reflect"
	"unsafe"

	"github.com/ebitengine/purego"
)

func dlopen(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func dlsym(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func dlclose(handle uintptr) error {
	return purego.Dlclose(handle)
}

// bindForeign returns a Go function of type ft that calls the C function
// at sym.
func bindForeign(ft reflect.Type, sym uintptr) reflect.Value {
	fn := reflect.New(ft)
	purego.RegisterFunc(fn.Interface(), sym)
	return fn.Elem()
}

// hostPointer translates a runtime address into a pointer foreign code can
// dereference. Words that are not runtime addresses pass through.
func (rt *Runtime) hostPointer(w uint64) unsafe.Pointer {
	c := rt.heap.lookup(w)
	if c == nil || len(c.mem) == 0 {
		return wordPointer(w)
	}
	_, off := splitAddr(w)
	if off >= len(c.mem) {
		panic(trapf("pointer %#x out of bounds (size %d)", w, len(c.mem)))
	}
	return unsafe.Pointer(&c.mem[off])
}
