package runtime

import (
	"testing"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

func TestReleaseCascadesThroughContainers(t *testing.T) {
	rt, _, _ := newTestRuntime(t)

	l := call(t, rt, "list_new", uint64(rtabi.TagString))
	for _, s := range []string{"a", "b", "c"} {
		call(t, rt, "list_push", l, rt.NewString(s))
	}
	d := call(t, rt, "dict_new", uint64(rtabi.TagString), uint64(rtabi.TagList))
	call(t, rt, "dict_set", d, rt.NewString("k"), l)
	tup := call(t, rt, rtabi.FnTupleNew, 2)
	call(t, rt, rtabi.FnTupleSet, tup, 0, d, uint64(rtabi.TagDict))
	call(t, rt, rtabi.FnTupleSet, tup, 1, 7, uint64(rtabi.TagInt))

	if got := rt.Stats()[rtabi.TagString]; got != 4 {
		t.Fatalf("live strings = %d, want 4", got)
	}
	call(t, rt, "tuple_release", tup)
	expectEmptyHeap(t, rt)
}

func TestCloneSharesAndOutlives(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	s := rt.NewString("x")
	c := call(t, rt, "string_clone", s)
	if c != s {
		t.Fatalf("clone returned %#x, want %#x", c, s)
	}
	if n := rt.StrongCount(s); n != 2 {
		t.Errorf("strong count = %d, want 2", n)
	}
	rt.Release(s)
	if got := rt.String(c); got != "x" {
		t.Errorf("clone reads %q after original release", got)
	}
	rt.Release(c)
	expectEmptyHeap(t, rt)
}

func TestWeakReferences(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	obj := rt.objectAlloc(16, 0)

	rt.WeakRetain(obj)
	if n := rt.WeakCount(obj); n != 1 {
		t.Errorf("weak count = %d, want 1", n)
	}
	up := rt.WeakUpgrade(obj)
	if up != obj {
		t.Fatalf("upgrade of live object = %#x", up)
	}
	rt.Release(up)

	rt.Release(obj)
	if rt.IsAlive(obj) {
		t.Error("object alive after last strong release")
	}
	if up := rt.WeakUpgrade(obj); up != 0 {
		t.Errorf("upgrade after destroy = %#x, want 0", up)
	}
	if !rt.heap.Contains(obj) {
		t.Error("cell dropped while a weak reference exists")
	}
	rt.WeakRelease(obj)
	if rt.heap.Contains(obj) {
		t.Error("cell kept after the last weak release")
	}
	expectEmptyHeap(t, rt)
}

func TestObjectDescriptorReleasesFields(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	desc := staticWords(rt, 3, uint64(rtabi.TagInt), uint64(rtabi.TagString), uint64(rtabi.TagObject))

	inner := call(t, rt, rtabi.FnObjectAlloc, 24, desc)
	outer := call(t, rt, rtabi.FnObjectAlloc, 24, desc)
	rt.heap.Store(outer, 99)
	rt.heap.Store(outer+8, rt.NewString("name"))
	rt.heap.Store(outer+16, inner)

	call(t, rt, "object_release", outer)
	expectEmptyHeap(t, rt)
}

func TestReleaseOfDestroyedObjectIsIgnored(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	s := rt.NewString("gone")
	rt.WeakRetain(s)
	rt.Release(s)
	if n := rt.OverReleases(); n != 0 {
		t.Fatalf("over-releases = %d before the double release", n)
	}
	rt.Release(s) // double release: counted and ignored
	if n := rt.StrongCount(s); n != 0 {
		t.Errorf("strong count = %d after double release", n)
	}
	if n := rt.OverReleases(); n != 1 {
		t.Errorf("over-releases = %d, want 1", n)
	}
	rt.WeakRelease(s)
	expectEmptyHeap(t, rt)
}

func TestRetainOfDestroyedObjectTraps(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	s := rt.NewString("gone")
	rt.WeakRetain(s)
	rt.Release(s)
	defer rt.WeakRelease(s)
	defer func() {
		if _, ok := recover().(*Trap); !ok {
			t.Error("retain of destroyed object did not trap")
		}
	}()
	rt.Retain(s)
}

func TestMovedFlag(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	obj := rt.objectAlloc(8, 0)
	if call(t, rt, "object_is_moved", obj) != 0 {
		t.Error("fresh object marked moved")
	}
	call(t, rt, "object_mark_moved", obj)
	if call(t, rt, "object_is_moved", obj) != 1 {
		t.Error("mark_moved did not stick")
	}
	rt.Release(obj)
	expectEmptyHeap(t, rt)
}

func TestStaticDataIsReadOnly(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	d := staticWords(rt, 1, 2)
	if got := rt.heap.Load(d + 8); got != 2 {
		t.Errorf("load = %d, want 2", got)
	}
	rt.Release(d) // ignored
	defer func() {
		if _, ok := recover().(*Trap); !ok {
			t.Error("store to data object did not trap")
		}
	}()
	rt.heap.Store(d, 5)
}

func TestAllocBounds(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	p := call(t, rt, rtabi.FnAlloc, 16)
	rt.heap.Store(p+8, 1)
	func() {
		defer func() {
			if _, ok := recover().(*Trap); !ok {
				t.Error("out of bounds load did not trap")
			}
		}()
		rt.heap.Load(p + 16)
	}()
	call(t, rt, rtabi.FnFree, p, 16)
	expectEmptyHeap(t, rt)
}
