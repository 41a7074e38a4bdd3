package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	stateRunning int32 = iota
	stateShutdown
	stateStop
)

// Pool is a bounded set of worker goroutines fed from a work queue.
//
// Up to the core size, every submission starts a new worker. Beyond it tasks
// are queued, and only when the queue refuses them does the pool grow
// towards the max size. Workers above the core size retire after the
// keep-alive. Past the max size the RejectionPolicy decides.
//
// A Pool is safe for concurrent use.
type Pool struct {
	conf    *config
	factory *WorkerFactory
	queue   workQueue

	state atomic.Int32
	quit  chan struct{} // closed by Shutdown and ShutdownNow

	// interrupt is the parent of every task context; ShutdownNow cancels it.
	interrupt       context.Context
	cancelInterrupt context.CancelFunc

	mu         sync.Mutex
	poolSize   int // workers counted against core/max
	liveUsers  int // non-daemon workers still running
	largest    int
	terminated chan struct{}
	termOnce   sync.Once

	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	active    atomic.Int64
}

// New builds a Pool from opts.
//
// Default configuration:
//   - core size: runtime.GOMAXPROCS(0)
//   - max size: the core size
//   - keep-alive: 60s
//   - queue: hand-off when the core size is 0, otherwise unbounded
//   - rejection: AbortPolicy
//
// It fails with ErrInvalidArgument for inconsistent sizes, a bad queue
// capacity, or a worker priority outside [MinPriority, MaxPriority].
//
// Example:
//
//	p, err := pool.New(
//	    pool.WithCoreSize(4),
//	    pool.WithMaxSize(8),
//	    pool.WithArrayQueue(64),
//	    pool.WithRejectionPolicy(pool.CallerRunsPolicy()),
//	)
func New(opts ...Option) (*Pool, error) {
	cfg, err := createConfig(opts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		conf:            cfg,
		factory:         cfg.factory,
		queue:           newWorkQueue(cfg.queueKind, cfg.queueCapacity),
		quit:            make(chan struct{}),
		interrupt:       ctx,
		cancelInterrupt: cancel,
		terminated:      make(chan struct{}),
	}

	debugLog("pool created: core=%d max=%d queue=%s rejection=%s",
		cfg.coreSize, cfg.maxSize, cfg.queueKind, cfg.rejection)
	return p, nil
}

// Execute runs fn on a worker. ctx only governs the submission itself (a
// BlockPolicy wait); the task receives a context owned by the pool, carrying
// the executing Worker and cancelled by ShutdownNow.
func (p *Pool) Execute(ctx context.Context, fn Runnable) error {
	if fn == nil {
		return ErrInvalidArgument
	}
	p.submitted.Add(1)
	return p.execute(ctx, task{fn: fn})
}

// Submit schedules fn on p and returns a Future for its result.
//
// Example:
//
//	f, err := pool.Submit(ctx, p, func(ctx context.Context) (int, error) {
//	    return 42, nil
//	})
//	if err != nil {
//	    return err
//	}
//	v, err := f.Get()
func Submit[R any](ctx context.Context, p *Pool, fn Callable[R]) (*Future[R], error) {
	if fn == nil {
		return nil, ErrInvalidArgument
	}

	f := newFuture(fn)
	p.submitted.Add(1)
	if err := p.execute(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *Pool) execute(ctx context.Context, t runnable) error {
	p.mu.Lock()
	if p.state.Load() != stateRunning {
		p.mu.Unlock()
		return p.conf.rejection.rejected(ctx, t, p)
	}

	if p.poolSize < p.conf.coreSize {
		p.addWorkerLocked(t)
		p.mu.Unlock()
		return nil
	}

	if p.queue.offer(t) {
		if p.poolSize == 0 {
			p.addWorkerLocked(nil)
		}
		p.mu.Unlock()
		return nil
	}

	if p.poolSize < p.conf.maxSize {
		p.addWorkerLocked(t)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	debugLog("pool saturated, applying %s", p.conf.rejection)
	return p.conf.rejection.rejected(ctx, t, p)
}

// ensureWorker starts a worker when a task was queued outside execute and no
// worker is alive to take it.
func (p *Pool) ensureWorker() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.poolSize == 0 && p.state.Load() == stateRunning {
		p.addWorkerLocked(nil)
	}
}

func (p *Pool) addWorkerLocked(first runnable) {
	w := p.factory.NewWorker()
	p.poolSize++
	p.largest = max(p.largest, p.poolSize)
	if !w.Daemon {
		p.liveUsers++
	}

	debugLog("starting worker %s (pool size %d)", w.Name, p.poolSize)
	go p.runWorker(w, first)
}

// Shutdown stops accepting tasks. Queued and running tasks still complete.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.state.CompareAndSwap(stateRunning, stateShutdown) {
		return
	}
	close(p.quit)
	p.tryTerminateLocked()
}

// ShutdownNow stops accepting tasks, drops everything still queued, and
// cancels the context of running tasks. Dropped futures are cancelled.
// It returns the number of dropped tasks.
func (p *Pool) ShutdownNow() int {
	p.mu.Lock()
	prev := p.state.Swap(stateStop)
	if prev == stateRunning {
		close(p.quit)
	}
	p.cancelInterrupt()
	pending := p.queue.drain()
	p.tryTerminateLocked()
	p.mu.Unlock()

	for _, t := range pending {
		t.discard()
	}
	return len(pending)
}

// IsShutdown reports whether Shutdown or ShutdownNow was called.
func (p *Pool) IsShutdown() bool {
	return p.state.Load() != stateRunning
}

// IsTerminated reports whether the pool is shut down and every non-daemon
// worker has exited.
func (p *Pool) IsTerminated() bool {
	select {
	case <-p.terminated:
		return true
	default:
		return false
	}
}

// AwaitTermination blocks until the pool terminates or ctx is done.
func (p *Pool) AwaitTermination(ctx context.Context) error {
	select {
	case <-p.terminated:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the pool down and waits up to timeout for it to terminate.
// A timeout of 0 waits forever.
func (p *Pool) Close(timeout time.Duration) error {
	p.Shutdown()
	return waitUntil(p.terminated, timeout)
}

// PoolSize returns the number of live workers.
func (p *Pool) PoolSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.poolSize
}

func (p *Pool) tryTerminateLocked() {
	if p.state.Load() == stateRunning {
		return
	}

	if p.poolSize == 0 {
		// tasks that slipped in past a concurrent shutdown have no one left to run them
		for _, t := range p.queue.drain() {
			t.discard()
		}
	}

	if p.liveUsers == 0 {
		p.termOnce.Do(func() {
			debugLog("pool terminated")
			close(p.terminated)
		})
	}
}

// waitUntil blocks until either the done channel is closed or the timeout is reached.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	select {
	case <-d:
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
