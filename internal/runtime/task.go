package runtime

import (
	"sync/atomic"

	"github.com/bolide-lang/bolide/internal/logger"
)

var taskIDs atomic.Uint64

// Task is the execution context of one goroutine running generated code.
// It owns the structured-concurrency scope stack, the active pool stack and
// the string-literal interner. None of them is shared with other tasks.
type Task struct {
	rt  *Runtime
	id  uint64
	fut *Future // nil for the main task

	scopes   [][]uint64
	pools    []*Pool
	interned map[string]uint64
}

func (rt *Runtime) newTask(fut *Future) *Task {
	return &Task{
		rt:       rt,
		id:       taskIDs.Add(1),
		fut:      fut,
		interned: make(map[string]uint64),
	}
}

// Runtime returns the runtime the task belongs to.
func (t *Task) Runtime() *Runtime { return t.rt }

// ID returns the task number.
func (t *Task) ID() uint64 { return t.id }

// intern returns a new reference to the shared string for s. The interner
// keeps one reference of its own until the task finishes.
func (t *Task) intern(s string) uint64 {
	if addr, ok := t.interned[s]; ok && t.rt.IsAlive(addr) {
		t.rt.Retain(addr)
		return addr
	}
	addr := t.rt.newString(s)
	t.interned[s] = addr
	t.rt.Retain(addr)
	return addr
}

// finish joins scopes left open by a trap and drops interned literals.
func (t *Task) finish() {
	for len(t.scopes) > 0 {
		t.scopeExit()
	}
	for s, addr := range t.interned {
		t.rt.Release(addr)
		delete(t.interned, s)
	}
}

func (t *Task) scopeEnter() {
	t.scopes = append(t.scopes, nil)
}

// scopeRegister adds a future to the innermost scope. Outside any scope
// the call does nothing.
func (t *Task) scopeRegister(h uint64) {
	if len(t.scopes) == 0 || h == 0 {
		return
	}
	t.rt.Retain(h)
	top := len(t.scopes) - 1
	t.scopes[top] = append(t.scopes[top], h)
}

// scopeExit pops the innermost scope and waits for each registered future
// in registration order. Traps raised by children are logged, not
// propagated.
func (t *Task) scopeExit() {
	if len(t.scopes) == 0 {
		return
	}
	top := len(t.scopes) - 1
	frame := t.scopes[top]
	t.scopes = t.scopes[:top]
	for _, h := range frame {
		f := t.rt.future(h)
		f.wait()
		if err := f.Err(); err != nil {
			logger.Warn("Task failed inside await scope", "task", f.task, "error", err)
		}
		t.rt.Release(h)
	}
}

// cancelled reports whether the task's own handle was cancelled.
func (t *Task) cancelled() bool {
	return t.fut != nil && t.fut.cancelRequested.Load()
}
