package runtime

import (
	"bytes"
	"encoding/binary"
	"strings"
	"sync"
	"testing"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// funcInvoker runs Go closures in place of generated code. Function
// pointers index the table.
type funcInvoker struct {
	mu  sync.Mutex
	fns []func(t *Task, args []uint64) uint64
}

func (fi *funcInvoker) add(fn func(t *Task, args []uint64) uint64) uint64 {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.fns = append(fi.fns, fn)
	return rtabi.FuncPtrTag | uint64(len(fi.fns)-1)
}

func (fi *funcInvoker) Invoke(t *Task, fn uint64, args ...uint64) uint64 {
	fi.mu.Lock()
	f := fi.fns[fn&rtabi.FuncPtrMask]
	fi.mu.Unlock()
	return f(t, args)
}

func newTestRuntime(t *testing.T) (*Runtime, *funcInvoker, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	rt := New(Options{Stdout: &out, Stdin: strings.NewReader(""), PoolSize: 2})
	inv := &funcInvoker{}
	rt.SetInvoker(inv)
	return rt, inv, &out
}

// call invokes the named builtin on the main task.
func call(t *testing.T, rt *Runtime, name string, args ...uint64) uint64 {
	t.Helper()
	fn, ok := rt.Builtin(name)
	if !ok {
		t.Fatalf("no builtin %s", name)
	}
	sig, _ := rtabi.Lookup(name)
	if len(sig.Params) != len(args) {
		t.Fatalf("%s: %d args, want %d", name, len(args), len(sig.Params))
	}
	return fn(rt.Main(), args)
}

// wordArray stores ws in a fresh raw block and returns its address.
func wordArray(rt *Runtime, ws ...uint64) uint64 {
	addr := rt.alloc(int64(len(ws) * rtabi.WordSize))
	for i, w := range ws {
		rt.heap.Store(addr+uint64(i*rtabi.WordSize), w)
	}
	return addr
}

func staticWords(rt *Runtime, ws ...uint64) uint64 {
	b := make([]byte, len(ws)*rtabi.WordSize)
	for i, w := range ws {
		binary.LittleEndian.PutUint64(b[i*rtabi.WordSize:], w)
	}
	return rt.StaticData(b)
}

func expectEmptyHeap(t *testing.T, rt *Runtime) {
	t.Helper()
	if s := rt.Stats(); s.Total() != 0 {
		t.Errorf("heap not empty: %v", s)
	}
}

func TestBuiltinTableCoversManifest(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	for _, fn := range rtabi.RuntimeFunctions() {
		if _, ok := rt.Builtin(fn.Name); !ok {
			t.Errorf("runtime function %s has no builtin", fn.Name)
		}
	}
	if got, want := len(rt.builtins), len(rtabi.RuntimeFunctions()); got != want {
		t.Errorf("builtin table has %d entries, manifest has %d", got, want)
	}
}

func TestShutdownReleasesInternedLiterals(t *testing.T) {
	rt, _, out := newTestRuntime(t)
	lit := staticWords(rt, 0x6f6c6c6568) // "hello" little-endian
	call(t, rt, rtabi.FnRuntimeInit)
	a := call(t, rt, rtabi.FnStringLiteral, lit, 5)
	b := call(t, rt, rtabi.FnStringLiteral, lit, 5)
	if a != b {
		t.Errorf("literal not interned: %#x != %#x", a, b)
	}
	call(t, rt, "print_string", a)
	call(t, rt, "string_release", a)
	call(t, rt, "string_release", b)
	call(t, rt, rtabi.FnRuntimeFini)
	if out.String() != "hello\n" {
		t.Errorf("output = %q", out.String())
	}
	expectEmptyHeap(t, rt)
}
