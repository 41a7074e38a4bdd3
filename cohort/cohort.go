// Package cohort runs a fixed set of goroutines as one unit: optionally
// released together through a start gate, and observed through an end gate
// that counts finished workers.
//
// Example:
//
//	c := cohort.New(cohort.WithStartTogether(true))
//	c.AddRepeatedWorker(func(ctx context.Context) { hammer(ctx) }, 8)
//	if err := c.Start(ctx, true); err != nil {
//	    return err
//	}
//	defer c.Stop(false)
package cohort

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/utkarsh5026/recall/pool"
)

// ErrBusy is returned by Start while a previous run still has workers
// outstanding.
var ErrBusy = errors.New("cohort: run in progress")

// Cohort is a set of workers started and awaited together.
//
// Workers are added while the cohort is idle. Start hands them all to a
// pool sized to the worker count, building a fresh pool when there is none
// or the previous one was shut down. Stop shuts that pool down and forgets
// the workers.
type Cohort struct {
	conf *config

	mu      sync.Mutex
	workers []pool.Runnable
	pool    *pool.Pool
	end     *latch
	handles []*pool.Future[struct{}]
	runID   string
}

// New creates an empty Cohort.
func New(opts ...Option) *Cohort {
	return &Cohort{
		conf: createConfig(opts...),
		end:  newLatch(0),
	}
}

// AddWorker adds one worker body for the next Start.
func (c *Cohort) AddWorker(fn pool.Runnable) {
	c.AddRepeatedWorker(fn, 1)
}

// AddRepeatedWorker adds n workers running the same body.
func (c *Cohort) AddRepeatedWorker(fn pool.Runnable, n int) {
	if fn == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for range n {
		c.workers = append(c.workers, fn)
	}
}

// Start submits every worker. With blocking set it then waits for all of them to
// finish; a ctx that ends first fails the wait with pool.ErrInterrupted but
// leaves the workers running. ctx does not reach the worker bodies; they
// see the pool's context, which Stop(true) cancels.
//
// Start fails with ErrBusy while a previous run is still in flight.
func (c *Cohort) Start(ctx context.Context, blocking bool) error {
	if err := c.launch(ctx); err != nil {
		return err
	}
	if !blocking {
		return nil
	}
	return c.Await(ctx)
}

func (c *Cohort) launch(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.end.remaining() > 0 {
		return ErrBusy
	}

	n := len(c.workers)
	c.runID = uuid.NewString()
	c.handles = c.handles[:0]
	c.end = newLatch(n)
	if n == 0 {
		return nil
	}

	if err := c.ensurePoolLocked(n); err != nil {
		c.end = newLatch(0)
		return err
	}

	var gate chan struct{}
	if c.conf.startTogether {
		gate = make(chan struct{})
		defer close(gate)
	}

	end := c.end
	for i, body := range c.workers {
		h, err := pool.Submit(ctx, c.pool, c.wrap(body, gate, end))
		if err != nil {
			// nobody will run the rest
			for range n - i {
				end.countDown()
			}
			return fmt.Errorf("cohort %s: submitting worker %d: %w", c.runID, i, err)
		}
		c.handles = append(c.handles, h)
	}

	debugLog("run %s: started %d workers (start together: %v)", c.runID, n, gate != nil)
	return nil
}

func (c *Cohort) ensurePoolLocked(n int) error {
	if c.pool != nil && !c.pool.IsShutdown() && c.pool.MaxSize() >= n {
		return nil
	}
	if c.pool != nil {
		c.pool.Shutdown()
	}

	opts := append([]pool.Option{}, c.conf.poolOpts...)
	opts = append(opts,
		pool.WithCoreSize(n),
		pool.WithMaxSize(n),
		pool.WithNamePrefix(c.conf.namePrefix),
	)

	p, err := pool.New(opts...)
	if err != nil {
		return fmt.Errorf("cohort: building pool for %d workers: %w", n, err)
	}
	c.pool = p
	return nil
}

// wrap turns a worker body into a pool task that waits on the start gate,
// forwards panics to the handler, and always counts down the end gate.
func (c *Cohort) wrap(body pool.Runnable, gate <-chan struct{}, end *latch) pool.Callable[struct{}] {
	return func(ctx context.Context) (struct{}, error) {
		defer end.countDown()
		defer func() {
			if r := recover(); r != nil {
				w, _ := pool.WorkerFromContext(ctx)
				c.conf.onPanic(w, r, debug.Stack())
			}
		}()

		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return struct{}{}, ctx.Err()
			}
		}

		body(ctx)
		return struct{}{}, nil
	}
}

// Await blocks until every worker of the current run has finished. It fails
// with an error wrapping pool.ErrInterrupted when ctx ends first.
func (c *Cohort) Await(ctx context.Context) error {
	c.mu.Lock()
	end := c.end
	c.mu.Unlock()

	if err := end.wait(ctx); err != nil {
		return fmt.Errorf("cohort: waiting for %d workers: %w (%w)", end.remaining(), pool.ErrInterrupted, err)
	}
	return nil
}

// Stop shuts the cohort's pool down and clears the worker set. With
// immediate, running workers see their context cancelled and workers that
// never started are counted as finished. Without it, workers run to
// completion.
func (c *Cohort) Stop(immediate bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		if immediate {
			c.pool.ShutdownNow()
			for _, h := range c.handles {
				if h.IsCancelled() {
					c.end.countDown()
				}
			}
		} else {
			c.pool.Shutdown()
		}
	}

	debugLog("run %s: stopped (immediate: %v, remaining: %d)", c.runID, immediate, c.end.remaining())
	c.workers = nil
	c.handles = nil
}

// Remaining returns how many workers of the current run have not finished.
func (c *Cohort) Remaining() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.end.remaining()
}

// Size returns the number of workers that the next Start submits.
func (c *Cohort) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.workers)
}

// RunID identifies the most recent Start. It is empty before the first one.
func (c *Cohort) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// Pool returns the pool of the most recent run, or nil.
func (c *Cohort) Pool() *pool.Pool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pool
}
