package runtime

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

func TestSpawnAndAwait(t *testing.T) {
	rt, inv, _ := newTestRuntime(t)
	answer := inv.add(func(*Task, []uint64) uint64 { return 42 })
	half := inv.add(func(*Task, []uint64) uint64 { return math.Float64bits(0.5) })
	withEnv := inv.add(func(t *Task, args []uint64) uint64 {
		return t.rt.heap.Load(args[0]) * 2
	})

	tests := []struct {
		name  string
		spawn string
		wait  string
		args  func() []uint64
		want  uint64
	}{
		{"thread int", "thread_spawn_int", "thread_join_int", func() []uint64 { return []uint64{answer} }, 42},
		{"coroutine float", "coroutine_spawn_float", "coroutine_await_float", func() []uint64 { return []uint64{half} }, math.Float64bits(0.5)},
		{"env", "coroutine_spawn_int_with_env", "coroutine_await_int", func() []uint64 {
			return []uint64{withEnv, wordArray(rt, 21)}
		}, 42},
		{"pool without context", "pool_spawn_int", "pool_join_int", func() []uint64 { return []uint64{answer} }, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := call(t, rt, tt.spawn, tt.args()...)
			if got := call(t, rt, tt.wait, h); got != tt.want {
				t.Errorf("await = %#x, want %#x", got, tt.want)
			}
			if got := call(t, rt, tt.wait, h); got != tt.want {
				t.Errorf("second await = %#x, want %#x", got, tt.want)
			}
			call(t, rt, rtabi.FnCoroutineFree, h)
		})
	}
	rt.Wait()
	expectEmptyHeap(t, rt)
}

func TestAwaitPointerResultIsRetained(t *testing.T) {
	rt, inv, _ := newTestRuntime(t)
	fn := inv.add(func(t *Task, _ []uint64) uint64 { return t.rt.NewString("result") })

	h := call(t, rt, "coroutine_spawn_ptr", fn)
	a := call(t, rt, "coroutine_await_ptr", h)
	b := call(t, rt, "coroutine_await_ptr", h)
	if a != b || rt.String(a) != "result" {
		t.Fatalf("await results %#x %#x", a, b)
	}
	call(t, rt, rtabi.FnCoroutineFree, h)
	rt.Wait()
	if got := rt.String(a); got != "result" {
		t.Errorf("result freed with the handle: %q", got)
	}
	rt.Release(a)
	rt.Release(b)
	expectEmptyHeap(t, rt)
}

func TestTrapInTaskCompletesFuture(t *testing.T) {
	rt, inv, _ := newTestRuntime(t)
	fn := inv.add(func(*Task, []uint64) uint64 { panic(trapf("boom")) })

	h := call(t, rt, "thread_spawn_int", fn)
	if got := call(t, rt, "thread_join_int", h); got != 0 {
		t.Errorf("join = %d, want 0", got)
	}
	if err := rt.future(h).Err(); err == nil || err.Error() != "runtime trap: boom" {
		t.Errorf("Err() = %v", err)
	}
	call(t, rt, "thread_handle_free", h)
	rt.Wait()
	expectEmptyHeap(t, rt)
}

func TestCancel(t *testing.T) {
	rt, inv, _ := newTestRuntime(t)
	release := make(chan struct{})
	var sawCancel atomic.Bool
	fn := inv.add(func(t *Task, _ []uint64) uint64 {
		<-release
		sawCancel.Store(t.cancelled())
		return t.rt.NewString("late")
	})

	h := call(t, rt, "coroutine_spawn_ptr", fn)
	call(t, rt, "coroutine_cancel", h)
	if call(t, rt, "coroutine_is_done", h) != 1 {
		t.Error("cancelled coroutine not done")
	}
	if got := call(t, rt, "coroutine_await_ptr", h); got != 0 {
		t.Errorf("await of cancelled coroutine = %#x", got)
	}
	if call(t, rt, "thread_is_cancelled", h) != 1 {
		t.Error("cancel flag not set")
	}
	close(release)
	call(t, rt, rtabi.FnCoroutineFree, h)
	rt.Wait()
	if !sawCancel.Load() {
		t.Error("task did not observe its cancellation")
	}
	expectEmptyHeap(t, rt)
}

func TestScopeExitWaitsForRegisteredTasks(t *testing.T) {
	rt, inv, _ := newTestRuntime(t)
	var done atomic.Int32
	slow := inv.add(func(*Task, []uint64) uint64 {
		time.Sleep(20 * time.Millisecond)
		done.Add(1)
		return 0
	})
	failing := inv.add(func(*Task, []uint64) uint64 { panic(trapf("child failed")) })

	call(t, rt, rtabi.FnScopeEnter)
	for _, fn := range []uint64{slow, failing, slow} {
		h := call(t, rt, "coroutine_spawn_int", fn)
		call(t, rt, rtabi.FnScopeRegister, h)
		call(t, rt, rtabi.FnCoroutineFree, h)
	}
	call(t, rt, rtabi.FnScopeExit)
	if got := done.Load(); got != 2 {
		t.Errorf("%d tasks finished at scope exit, want 2", got)
	}
	rt.Wait()
	expectEmptyHeap(t, rt)
}

func TestScopeRegisterOutsideScopeIsNoop(t *testing.T) {
	rt, inv, _ := newTestRuntime(t)
	fn := inv.add(func(*Task, []uint64) uint64 { return 1 })
	h := call(t, rt, "coroutine_spawn_int", fn)
	call(t, rt, rtabi.FnScopeRegister, h)
	call(t, rt, rtabi.FnScopeExit)
	call(t, rt, rtabi.FnCoroutineFree, h)
	rt.Wait()
	expectEmptyHeap(t, rt)
}

func TestSelectWaitFirst(t *testing.T) {
	rt, inv, _ := newTestRuntime(t)
	block := make(chan struct{})
	slow := inv.add(func(*Task, []uint64) uint64 {
		<-block
		return 1
	})
	fast := inv.add(func(*Task, []uint64) uint64 { return 2 })

	a := call(t, rt, "coroutine_spawn_int", slow)
	b := call(t, rt, "coroutine_spawn_int", fast)
	arr := wordArray(rt, a, b)
	if got := call(t, rt, rtabi.FnSelectFirst, arr, 2); got != 1 {
		t.Errorf("select = %d, want 1", got)
	}
	close(block)

	// Both finished: the first in input order wins.
	call(t, rt, "coroutine_await_int", a)
	if got := call(t, rt, rtabi.FnSelectFirst, arr, 2); got != 0 {
		t.Errorf("select over finished futures = %d, want 0", got)
	}
	call(t, rt, rtabi.FnFree, arr, 16)
	call(t, rt, rtabi.FnCoroutineFree, a)
	call(t, rt, rtabi.FnCoroutineFree, b)
	rt.Wait()
	expectEmptyHeap(t, rt)
}

func TestPoolRunsJobsInOrder(t *testing.T) {
	rt, inv, _ := newTestRuntime(t)
	var mu sync.Mutex
	var order []uint64
	record := inv.add(func(t *Task, args []uint64) uint64 {
		n := t.rt.heap.Load(args[0])
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
		return n
	})

	p := call(t, rt, "pool_create", 1)
	call(t, rt, "pool_enter", p)
	if call(t, rt, rtabi.FnPoolIsActive) != 1 {
		t.Fatal("pool not active after pool_enter")
	}
	var hs []uint64
	for i := uint64(0); i < 5; i++ {
		hs = append(hs, call(t, rt, "pool_spawn_int_with_env", record, wordArray(rt, i)))
	}
	call(t, rt, "pool_exit")
	if call(t, rt, rtabi.FnPoolIsActive) != 0 {
		t.Error("pool still active after pool_exit")
	}
	for i, h := range hs {
		if got := call(t, rt, "pool_join_int", h); got != uint64(i) {
			t.Errorf("job %d returned %d", i, got)
		}
		call(t, rt, "pool_handle_free", h)
	}
	call(t, rt, "pool_destroy", p)
	rt.Wait()

	for i, n := range order {
		if n != uint64(i) {
			t.Fatalf("jobs ran in order %v", order)
		}
	}
	expectEmptyHeap(t, rt)
}

func TestPoolContextIsTaskLocal(t *testing.T) {
	rt, inv, _ := newTestRuntime(t)
	active := inv.add(func(t *Task, _ []uint64) uint64 {
		return boolWord(t.activePool() != nil)
	})
	p := call(t, rt, "pool_create", 0)
	call(t, rt, "pool_enter", p)
	h := call(t, rt, "thread_spawn_int", active)
	if got := call(t, rt, "thread_join_int", h); got != 0 {
		t.Error("child task inherited the pool context")
	}
	call(t, rt, "thread_handle_free", h)
	call(t, rt, "pool_exit")
	call(t, rt, "pool_destroy", p)
	rt.Wait()
	expectEmptyHeap(t, rt)
}
