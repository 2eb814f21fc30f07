package runtime

import (
	"sync"

	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Pool is a fixed set of workers draining a FIFO job queue.
type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	jobs     []func()
	closing  bool
	workers  sync.WaitGroup
	size     int
	shutOnce sync.Once
}

func newPool(size int) *Pool {
	p := &Pool{size: size}
	p.cond = sync.NewCond(&p.mu)
	p.workers.Add(size)
	for i := 0; i < size; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.workers.Done()
	for {
		p.mu.Lock()
		for len(p.jobs) == 0 && !p.closing {
			p.cond.Wait()
		}
		if len(p.jobs) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.jobs[0]
		p.jobs[0] = nil
		p.jobs = p.jobs[1:]
		p.mu.Unlock()
		job()
	}
}

// submit queues a job. Jobs submitted after shutdown run on their own
// goroutine so their futures still complete.
func (p *Pool) submit(job func()) {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		go job()
		return
	}
	p.jobs = append(p.jobs, job)
	p.mu.Unlock()
	p.cond.Signal()
}

// shutdown lets the workers drain the queue and waits for them to exit.
func (p *Pool) shutdown() {
	p.shutOnce.Do(func() {
		p.mu.Lock()
		p.closing = true
		p.mu.Unlock()
		p.cond.Broadcast()
		p.workers.Wait()
	})
}

func (rt *Runtime) poolCreate(n int64) uint64 {
	size := int(n)
	if size <= 0 {
		size = rt.opts.PoolSize
	}
	p := newPool(size)
	logger.Debug("Pool created", "workers", size)
	return rt.heap.alloc(rtabi.TagPool, p, nil).Addr()
}

func (rt *Runtime) pool(h uint64) *Pool {
	return rt.heap.get(h, rtabi.TagPool).obj.(*Pool)
}

// The active pool is task-local: a pool block only redirects spawns made
// by the task that entered it. Nested blocks stack.

func (t *Task) poolEnter(h uint64) {
	t.pools = append(t.pools, t.rt.pool(h))
}

func (t *Task) poolExit() {
	if n := len(t.pools); n > 0 {
		t.pools = t.pools[:n-1]
	}
}

func (t *Task) activePool() *Pool {
	if n := len(t.pools); n > 0 {
		return t.pools[n-1]
	}
	return nil
}

// poolDestroy drains and stops the pool, then frees its handle.
func (rt *Runtime) poolDestroy(h uint64) {
	if h == 0 {
		return
	}
	p := rt.pool(h)
	p.shutdown()
	logger.Debug("Pool destroyed", "workers", p.size)
	rt.Release(h)
}
