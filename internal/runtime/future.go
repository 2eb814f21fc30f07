package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

type futureState int32

const (
	futureRunning futureState = iota
	futureCompleted
	futureCancelled
)

// Future is the single-shot completion cell behind coroutine, thread and
// pool handles. Only the first transition out of Running takes effect;
// waiter callbacks are taken under the lock and run after it is released.
type Future struct {
	mu      sync.Mutex
	state   futureState
	result  uint64
	err     error
	waiters []func()
	done    chan struct{}

	// class is the word class of the result; Ptr results are owned by the
	// future until it is freed.
	class rtabi.Class

	// cancelRequested is the cooperative cancellation flag.
	cancelRequested atomic.Bool

	task uint64
}

func newFuture(class rtabi.Class) *Future {
	return &Future{class: class, done: make(chan struct{})}
}

// complete stores the result. It reports false when the future already
// left the Running state.
func (f *Future) complete(v uint64) bool {
	return f.transition(futureCompleted, v)
}

// cancel moves a running future to Cancelled with a zero result.
func (f *Future) cancel() bool {
	f.cancelRequested.Store(true)
	return f.transition(futureCancelled, 0)
}

func (f *Future) transition(to futureState, v uint64) bool {
	f.mu.Lock()
	if f.state != futureRunning {
		f.mu.Unlock()
		return false
	}
	f.state = to
	f.result = v
	waiters := f.waiters
	f.waiters = nil
	close(f.done)
	f.mu.Unlock()

	for _, w := range waiters {
		w()
	}
	return true
}

// onComplete runs fn once the future leaves Running; immediately if it
// already has.
func (f *Future) onComplete(fn func()) {
	f.mu.Lock()
	if f.state == futureRunning {
		f.waiters = append(f.waiters, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn()
}

// wait blocks until completion and returns the result word, zero if the
// future was cancelled.
func (f *Future) wait() uint64 {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Done reports whether the future has completed or been cancelled.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Cancelled reports whether the future ended by cancellation.
func (f *Future) Cancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == futureCancelled
}

// Err returns the trap that ended the task, if any.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *Future) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// dispose drops the result reference held by a completed future.
func (f *Future) dispose(rt *Runtime) {
	f.mu.Lock()
	owned := f.state == futureCompleted && f.class == rtabi.Ptr
	v := f.result
	f.result = 0
	f.mu.Unlock()
	if owned {
		rt.Release(v)
	}
}

func (rt *Runtime) future(h uint64) *Future {
	return rt.heap.get(h, rtabi.TagFuture).obj.(*Future)
}

// spawn starts fn on a new task and returns its future handle. A non-zero
// env is passed as the only argument and freed when the task ends. Pool
// spawns run on the active pool, or on their own goroutine without one.
func (rt *Runtime) spawn(parent *Task, class rtabi.Class, fn, env uint64, pooled bool) uint64 {
	if rt.invoker == nil {
		panic(trapf("spawn without an engine"))
	}
	f := newFuture(class)
	h := rt.heap.alloc(rtabi.TagFuture, f, nil).Addr()
	rt.Retain(h) // held by the running task

	t := rt.newTask(f)
	f.task = t.id
	rt.tasks.Add(1)
	job := func() { rt.runTask(t, f, h, fn, env) }
	if pooled {
		if p := parent.activePool(); p != nil {
			p.submit(job)
			return h
		}
	}
	go job()
	return h
}

func (rt *Runtime) runTask(t *Task, f *Future, h, fn, env uint64) {
	defer rt.tasks.Done()

	var result uint64
	func() {
		defer func() {
			if r := recover(); r != nil {
				trap := trapOf(r)
				f.setErr(trap)
				logger.Warn("Task trapped", "task", t.id, "error", trap.Msg)
			}
		}()
		if env != 0 {
			result = rt.invoker.Invoke(t, fn, env)
		} else {
			result = rt.invoker.Invoke(t, fn)
		}
	}()
	if env != 0 {
		rt.Free(env)
	}
	t.finish()
	if !f.complete(result) && f.class == rtabi.Ptr {
		rt.Release(result)
	}
	rt.Release(h)
}

func trapOf(r any) *Trap {
	if t, ok := r.(*Trap); ok {
		return t
	}
	if err, ok := r.(error); ok {
		return &Trap{Msg: err.Error()}
	}
	return &Trap{Msg: fmt.Sprint(r)}
}

// await blocks on the future and returns its result. Pointer results are
// retained for the caller; the future keeps its own reference.
func (rt *Runtime) await(h uint64) uint64 {
	if h == 0 {
		return 0
	}
	f := rt.future(h)
	v := f.wait()
	if f.class == rtabi.Ptr && v != 0 {
		rt.Retain(v)
	}
	return v
}

// selectFirst waits for the first of count futures stored at arr to
// finish and returns its index. Futures already finished on entry win in
// input order.
func (rt *Runtime) selectFirst(arr uint64, count int64) int64 {
	if count <= 0 {
		return -1
	}
	hs := rt.heap.Words(arr, int(count))
	futures := make([]*Future, len(hs))
	for i, h := range hs {
		futures[i] = rt.future(h)
		if futures[i].Done() {
			return int64(i)
		}
	}

	var winner atomic.Int64
	winner.Store(-1)
	wake := make(chan struct{})
	for i, f := range futures {
		i := int64(i)
		f.onComplete(func() {
			if winner.CompareAndSwap(-1, i) {
				close(wake)
			}
		})
	}
	<-wake
	return winner.Load()
}
