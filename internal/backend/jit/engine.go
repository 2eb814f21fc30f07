// Package jit runs IR modules in-process against the Go runtime.
//
// Functions are linked once: runtime symbols resolve to builtins, direct
// callees and data objects to their table entries. Each call gets a frame
// of slots allocated in the runtime heap, so slot addresses are ordinary
// heap addresses that can be handed to ref parameters and runtime calls.
// Function pointers are tagged indices into the function table.
package jit

import (
	"github.com/pkg/errors"

	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
	"github.com/bolide-lang/bolide/internal/runtime"
)

// Engine executes one linked module. It is safe for concurrent use by
// the tasks of its runtime.
type Engine struct {
	mod    *ir.Module
	rt     *runtime.Runtime
	funcs  []*function
	byName map[string]*function
	data   map[string]uint64
}

// function is a linked IR function.
type function struct {
	f     *ir.Func
	index int

	// links is indexed by value ID.
	links []link
}

// link is what a call, address or data value resolved to.
type link struct {
	callee  *function
	builtin runtime.Builtin
	word    uint64
}

// New links mod against rt and installs the engine as the runtime's
// invoker. The module is not modified afterwards.
func New(mod *ir.Module, rt *runtime.Runtime) (*Engine, error) {
	e := &Engine{
		mod:    mod,
		rt:     rt,
		byName: make(map[string]*function, len(mod.Funcs)),
		data:   make(map[string]uint64, len(mod.Data)),
	}
	for _, d := range mod.Data {
		e.data[d.Name] = rt.StaticData(d.Contents())
	}
	for i, f := range mod.Funcs {
		fn := &function{f: f, index: i}
		e.funcs = append(e.funcs, fn)
		e.byName[f.Name] = fn
	}
	for _, fn := range e.funcs {
		if err := e.link(fn); err != nil {
			return nil, errors.Wrapf(err, "link %s", fn.f.Name)
		}
		logger.LogCodeGen("jit", fn.f.Name, fn.f.NumValues())
	}
	rt.SetInvoker(e)
	return e, nil
}

func (e *Engine) link(fn *function) error {
	fn.links = make([]link, fn.f.NumValueIDs())
	for _, b := range fn.f.Blocks {
		for _, v := range b.Values {
			l := &fn.links[v.ID]
			switch v.Op {
			case ir.OpCall, ir.OpFuncAddr:
				callee := e.byName[v.Callee()]
				if callee == nil {
					return errors.Errorf("undefined function %s", v.Callee())
				}
				l.callee = callee
				l.word = rtabi.FuncPtrTag | uint64(callee.index)
			case ir.OpCallRT:
				bf, ok := e.rt.Builtin(v.Callee())
				if !ok {
					return errors.Errorf("undefined runtime symbol %s", v.Callee())
				}
				l.builtin = bf
			case ir.OpData:
				addr, ok := e.data[v.Callee()]
				if !ok {
					return errors.Errorf("undefined data object %s", v.Callee())
				}
				l.word = addr
			}
		}
	}
	return nil
}

// Runtime returns the runtime the engine is linked against.
func (e *Engine) Runtime() *runtime.Runtime { return e.rt }

// Invoke calls the function behind the tagged pointer fn. It implements
// runtime.Invoker.
func (e *Engine) Invoke(t *runtime.Task, fn uint64, args ...uint64) uint64 {
	if fn&rtabi.FuncPtrTag == 0 || fn&rtabi.FuncPtrMask >= uint64(len(e.funcs)) {
		runtime.Raise("call through invalid function pointer %#x", fn)
	}
	return e.call(t, e.funcs[fn&rtabi.FuncPtrMask], args)
}

// Call runs the named function on the main task. Traps are returned as
// errors.
func (e *Engine) Call(name string, args ...uint64) (res uint64, err error) {
	fn := e.byName[name]
	if fn == nil {
		return 0, errors.Errorf("jit: no function %s", name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = runtime.AsTrap(r)
		}
	}()
	return e.call(e.rt.Main(), fn, args), nil
}

// Entry returns a callable that runs the program: runtime_init, the
// module entry and runtime_shutdown. The callable returns the entry's
// result, or the trap that aborted it.
func (e *Engine) Entry() (func() (int64, error), error) {
	entry := e.byName[e.mod.Entry]
	if entry == nil {
		return nil, errors.Errorf("jit: entry function %q not found", e.mod.Entry)
	}
	return func() (int64, error) { return e.run(entry) }, nil
}

func (e *Engine) run(entry *function) (code int64, err error) {
	t := e.rt.Main()
	builtin := func(name string) {
		bf, _ := e.rt.Builtin(name)
		bf(t, nil)
	}
	defer func() {
		if r := recover(); r != nil {
			err = runtime.AsTrap(r)
			logger.Warn("Program trapped", "error", err)
			e.shutdown(builtin)
		}
	}()

	builtin(rtabi.FnRuntimeInit)
	logger.Debug("Invoking entry", "func", entry.f.Name)
	res := e.call(t, entry, nil)
	builtin(rtabi.FnRuntimeFini)
	return int64(res), nil
}

// shutdown runs runtime_shutdown after a trap. A second trap is dropped.
func (e *Engine) shutdown(builtin func(string)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Shutdown after trap failed", "error", runtime.AsTrap(r))
		}
	}()
	builtin(rtabi.FnRuntimeFini)
}
