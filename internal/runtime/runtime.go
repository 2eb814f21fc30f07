// Package runtime implements the managed runtime that Bolide programs call
// into: the reference-counted heap and its value types, futures, worker
// pools, channels, structured-concurrency scopes and the foreign-function
// loader.
//
// Every runtime entry point is a Builtin registered under its ABI symbol
// name. Words cross the boundary as uint64; float arguments and results
// travel as their IEEE-754 bits.
package runtime

import (
	"bufio"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Invoker runs generated code on behalf of the runtime. Spawned tasks and
// pool jobs call back through it with the task that executes them.
type Invoker interface {
	Invoke(t *Task, fn uint64, args ...uint64) uint64
}

// Options configures a Runtime.
type Options struct {
	Stdout io.Writer
	Stdin  io.Reader

	// PoolSize is used when pool_create receives a size <= 0.
	PoolSize int

	// CheckLeaks logs live heap objects at runtime_shutdown and warns
	// about every release of an already destroyed object.
	CheckLeaks bool
}

// Runtime is one program instance: its heap, its I/O and its process-wide
// concurrency state.
type Runtime struct {
	heap *Heap
	opts Options

	outMu sync.Mutex
	inMu  sync.Mutex
	in    *bufio.Reader

	invoker Invoker

	ffi ffiState

	tasks    sync.WaitGroup
	main     *Task
	builtins map[string]Builtin

	overReleases atomic.Int64
}

// New returns a runtime with an empty heap and a main task.
func New(opts Options) *Runtime {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 4
	}
	rt := &Runtime{
		heap: NewHeap(),
		opts: opts,
	}
	rt.ffi.libs = make(map[string]*library)
	rt.main = rt.newTask(nil)
	rt.builtins = builtinTable()
	return rt
}

// SetInvoker installs the engine that executes function pointers.
func (rt *Runtime) SetInvoker(inv Invoker) { rt.invoker = inv }

// Heap returns the runtime heap.
func (rt *Runtime) Heap() *Heap { return rt.heap }

// Main returns the task that runs top-level code.
func (rt *Runtime) Main() *Task { return rt.main }

// Stats returns the live payload counts of the heap.
func (rt *Runtime) Stats() Stats { return rt.heap.Stats() }

// OverReleases returns how many releases hit an already destroyed object.
func (rt *Runtime) OverReleases() int64 { return rt.overReleases.Load() }

// Builtin returns the runtime function registered under name.
func (rt *Runtime) Builtin(name string) (Builtin, bool) {
	b, ok := rt.builtins[name]
	return b, ok
}

// StaticData registers a read-only data object and returns its address.
func (rt *Runtime) StaticData(contents []byte) uint64 {
	mem := contents
	if len(mem) == 0 {
		mem = make([]byte, rtabi.WordSize)
	}
	return rt.heap.allocStatic(append([]byte(nil), mem...)).Addr()
}

// Wait blocks until every spawned task has finished.
func (rt *Runtime) Wait() { rt.tasks.Wait() }

func (rt *Runtime) init() {
	logger.Debug("Runtime initialised", "pool_size", rt.opts.PoolSize)
}

// shutdown ends the main task, frees the channels still open, closes
// foreign libraries and reports leaks when requested.
func (rt *Runtime) shutdown(t *Task) {
	t.finish()
	rt.freeChannels()
	rt.ffiCleanup()
	if rt.opts.CheckLeaks {
		rt.reportLeaks()
	}
}

// freeChannels releases every channel handle the program never freed,
// together with the values still buffered in it.
func (rt *Runtime) freeChannels() {
	hs := rt.heap.handles(rtabi.TagChannel)
	for _, h := range hs {
		rt.Release(h)
	}
	if len(hs) > 0 {
		logger.Debug("Freed channels at shutdown", "count", len(hs))
	}
}

func (rt *Runtime) reportLeaks() {
	if n := rt.OverReleases(); n > 0 {
		logger.Warn("Releases of destroyed objects", "count", n)
	}
	stats := rt.Stats()
	if stats.Total() == 0 {
		return
	}
	live := make(map[string]int, len(stats))
	tags := make([]int, 0, len(stats))
	for tag := range stats {
		tags = append(tags, int(tag))
	}
	sort.Ints(tags)
	for _, tag := range tags {
		live[rtabi.Tag(tag).String()] = int(stats[rtabi.Tag(tag)])
	}
	logger.LogLeaks(live)
}

func (rt *Runtime) stdout() io.Writer { return rt.opts.Stdout }

// writeLine writes s and a newline atomically with respect to other tasks.
func (rt *Runtime) writeLine(s string) {
	rt.outMu.Lock()
	defer rt.outMu.Unlock()
	io.WriteString(rt.opts.Stdout, s+"\n")
}

// readLine reads one line from stdin without its terminator.
func (rt *Runtime) readLine() string {
	rt.inMu.Lock()
	defer rt.inMu.Unlock()
	if rt.in == nil {
		rt.in = bufio.NewReader(rt.opts.Stdin)
	}
	line, _ := rt.in.ReadString('\n')
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
	}
	return line
}
