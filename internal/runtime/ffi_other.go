//go:build !(darwin || linux || freebsd)

package runtime

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

var errNoDL = errors.New("dynamic loading is not supported on this platform")

func dlopen(string) (uintptr, error) { return 0, errNoDL }

func dlsym(uintptr, string) (uintptr, error) { return 0, errNoDL }

func dlclose(uintptr) error { return nil }

func bindForeign(reflect.Type, uintptr) reflect.Value {
	panic(trapf("%v", errNoDL))
}

func (rt *Runtime) hostPointer(w uint64) unsafe.Pointer { return wordPointer(w) }
