package runtime

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

func TestForeignPointers(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	ptr := ir.CArg{Bits: 64, Pointer: true}

	if k := cType(ptr).Kind(); k != reflect.UnsafePointer {
		t.Fatalf("pointer parameters bind as %v, want unsafe.Pointer", k)
	}

	buf := call(t, rt, rtabi.FnAlloc, 16)
	want := unsafe.Pointer(&rt.heap.lookup(buf).mem[8])
	if p := rt.hostPointer(buf + 8); p != want {
		t.Errorf("hostPointer(buf+8) = %p, want %p", p, want)
	}
	arg := rt.foreignArg(ptr, buf+8)
	if arg.UnsafePointer() != want {
		t.Errorf("foreignArg = %p, want %p", arg.UnsafePointer(), want)
	}
	if w := foreignResult(ptr, arg); wordPointer(w) != want {
		t.Errorf("foreignResult does not round-trip the pointer")
	}
	call(t, rt, rtabi.FnFree, buf, 16)

	// A pointer owned by foreign code is read in place.
	text := []byte("from C\x00")
	s := rt.stringFromCStr(uint64(uintptr(unsafe.Pointer(&text[0]))))
	if got := rt.String(s); got != "from C" {
		t.Errorf("string_from_cstr(foreign) = %q", got)
	}
	if got := foreignCString(unsafe.Pointer(&text[0])); got != "from C" {
		t.Errorf("foreignCString = %q", got)
	}
	rt.Release(s)
	expectEmptyHeap(t, rt)
}
