package runtime

import (
	"math"
	"reflect"
	"sync"
	"unsafe"

	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

// ffiState tracks the foreign libraries loaded by the program. Libraries
// stay open until ffi_cleanup; loading the same path twice returns the
// same handle.
type ffiState struct {
	mu    sync.Mutex
	libs  map[string]*library
	calls map[callKey]reflect.Value
}

type library struct {
	path    string
	handle  uintptr
	addr    uint64
	symbols map[string]uintptr
}

type callKey struct {
	sym uint64
	sig string
}

// loadLibrary opens the shared object at path. The returned handle is
// owned by the runtime.
func (rt *Runtime) loadLibrary(path string) uint64 {
	rt.ffi.mu.Lock()
	defer rt.ffi.mu.Unlock()
	if lib, ok := rt.ffi.libs[path]; ok {
		return lib.addr
	}
	handle, err := dlopen(path)
	if err != nil {
		panic(trapf("cannot load library %q: %v", path, err))
	}
	lib := &library{path: path, handle: handle, symbols: make(map[string]uintptr)}
	lib.addr = rt.heap.alloc(rtabi.TagLibrary, lib, nil).Addr()
	rt.ffi.libs[path] = lib
	logger.Debug("Foreign library loaded", "path", path)
	return lib.addr
}

func (rt *Runtime) ffiLoad(ptr uint64, n int64) uint64 {
	return rt.loadLibrary(string(rt.heap.Bytes(ptr, int(n))))
}

// ffiSymbol resolves name in the library at h and returns its address.
func (rt *Runtime) ffiSymbol(h, ptr uint64, n int64) uint64 {
	lib := rt.heap.get(h, rtabi.TagLibrary).obj.(*library)
	name := string(rt.heap.Bytes(ptr, int(n)))

	rt.ffi.mu.Lock()
	defer rt.ffi.mu.Unlock()
	if sym, ok := lib.symbols[name]; ok {
		return uint64(sym)
	}
	sym, err := dlsym(lib.handle, name)
	if err != nil || sym == 0 {
		panic(trapf("symbol %q not found in %q", name, lib.path))
	}
	lib.symbols[name] = sym
	return uint64(sym)
}

func (rt *Runtime) closeLibrary(lib *library) {
	if lib.handle == 0 {
		return
	}
	if err := dlclose(lib.handle); err != nil {
		logger.Warn("Closing foreign library failed", "path", lib.path, "error", err)
	}
	lib.handle = 0
}

// ffiCleanup closes every loaded library.
func (rt *Runtime) ffiCleanup() {
	rt.ffi.mu.Lock()
	libs := rt.ffi.libs
	rt.ffi.libs = make(map[string]*library)
	rt.ffi.calls = nil
	rt.ffi.mu.Unlock()
	for _, lib := range libs {
		rt.Release(lib.addr)
	}
}

// CallForeign calls the C function at sym. Each argument word is narrowed
// to its declared C type; the result is widened back to a word, with
// float results returned as float64 bits.
func (rt *Runtime) CallForeign(sym uint64, sig *ir.CSig, args []uint64) uint64 {
	if sym == 0 {
		panic(trapf("call of null foreign function %s", sig.Name))
	}
	if len(args) != len(sig.Params) {
		panic(trapf("foreign call %s: %d arguments for %d parameters", sig.Name, len(args), len(sig.Params)))
	}
	fn := rt.foreignFunc(sym, sig)
	in := make([]reflect.Value, len(args))
	for i, w := range args {
		in[i] = rt.foreignArg(sig.Params[i], w)
	}
	out := fn.Call(in)
	if sig.Result.Bits == 0 {
		return 0
	}
	return foreignResult(sig.Result, out[0])
}

func (rt *Runtime) foreignFunc(sym uint64, sig *ir.CSig) reflect.Value {
	key := callKey{sym: sym, sig: sig.String()}
	rt.ffi.mu.Lock()
	defer rt.ffi.mu.Unlock()
	if fn, ok := rt.ffi.calls[key]; ok {
		return fn
	}
	in := make([]reflect.Type, len(sig.Params))
	for i, p := range sig.Params {
		in[i] = cType(p)
	}
	var out []reflect.Type
	if sig.Result.Bits != 0 {
		out = []reflect.Type{cType(sig.Result)}
	}
	fn := bindForeign(reflect.FuncOf(in, out, false), uintptr(sym))
	if rt.ffi.calls == nil {
		rt.ffi.calls = make(map[callKey]reflect.Value)
	}
	rt.ffi.calls[key] = fn
	return fn
}

var (
	signedTypes   = [...]reflect.Type{reflect.TypeOf(int8(0)), reflect.TypeOf(int16(0)), reflect.TypeOf(int32(0)), reflect.TypeOf(int64(0))}
	unsignedTypes = [...]reflect.Type{reflect.TypeOf(uint8(0)), reflect.TypeOf(uint16(0)), reflect.TypeOf(uint32(0)), reflect.TypeOf(uint64(0))}
)

func widthIndex(bits int) int {
	switch {
	case bits <= 8:
		return 0
	case bits <= 16:
		return 1
	case bits <= 32:
		return 2
	}
	return 3
}

func cType(a ir.CArg) reflect.Type {
	switch {
	case a.Pointer:
		return reflect.TypeOf(unsafe.Pointer(nil))
	case a.Float && a.Bits == 32:
		return reflect.TypeOf(float32(0))
	case a.Float:
		return reflect.TypeOf(float64(0))
	case a.Signed:
		return signedTypes[widthIndex(a.Bits)]
	}
	return unsignedTypes[widthIndex(a.Bits)]
}

func (rt *Runtime) foreignArg(a ir.CArg, w uint64) reflect.Value {
	v := reflect.New(cType(a)).Elem()
	switch {
	case a.Pointer:
		v.SetPointer(rt.hostPointer(w))
	case a.Float:
		v.SetFloat(math.Float64frombits(w))
	case a.Signed:
		v.SetInt(int64(w))
	default:
		v.SetUint(w)
	}
	return v
}

// wordPointer reinterprets a foreign address carried in a word.
func wordPointer(w uint64) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&w))
}

func foreignResult(a ir.CArg, v reflect.Value) uint64 {
	switch {
	case a.Pointer:
		return uint64(uintptr(v.UnsafePointer()))
	case a.Float:
		return math.Float64bits(v.Float())
	case a.Signed:
		return uint64(v.Int())
	}
	return v.Uint()
}
