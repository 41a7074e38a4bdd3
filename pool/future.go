package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Runnable is a unit of work with no result.
type Runnable func(ctx context.Context)

// Callable is a unit of work producing a value of type R.
type Callable[R any] func(ctx context.Context) (R, error)

const (
	futurePending int32 = iota
	futureRunning
	futureDone
	futureCancelled
)

// Future is a cancellable handle to a callable submitted to a Pool.
//
// A future moves from pending to running exactly once. Cancel only wins
// against a pending future; once running, the body always completes and its
// outcome is delivered.
type Future[R any] struct {
	fn    Callable[R]
	state atomic.Int32
	done  chan struct{}
	value R
	err   error

	mu        sync.Mutex
	interrupt bool
	cancelRun context.CancelFunc
}

func newFuture[R any](fn Callable[R]) *Future[R] {
	return &Future[R]{
		fn:   fn,
		done: make(chan struct{}),
	}
}

// Get blocks until the future completes and returns its result.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	return f.outcome()
}

// GetWithContext waits for the result or until ctx is done.
func (f *Future[R]) GetWithContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.outcome()
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// GetWithTimeout waits for the result for at most timeout.
func (f *Future[R]) GetWithTimeout(timeout time.Duration) (R, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.GetWithContext(ctx)
}

// TryGet returns the result if the future is done, without blocking.
func (f *Future[R]) TryGet() (value R, err error, ok bool) {
	select {
	case <-f.done:
		value, err = f.outcome()
		return value, err, true
	default:
		return value, nil, false
	}
}

// IsDone reports whether the future completed or was cancelled.
func (f *Future[R]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether the future was cancelled before its body ran.
func (f *Future[R]) IsCancelled() bool {
	return f.state.Load() == futureCancelled
}

// Cancel prevents the body from running if it has not started yet and
// reports whether it did so. With mayInterrupt, a body that is already
// running has its context cancelled; its outcome is still delivered.
func (f *Future[R]) Cancel(mayInterrupt bool) bool {
	if f.state.CompareAndSwap(futurePending, futureCancelled) {
		close(f.done)
		return true
	}

	if mayInterrupt && f.state.Load() == futureRunning {
		f.mu.Lock()
		f.interrupt = true
		if f.cancelRun != nil {
			f.cancelRun()
		}
		f.mu.Unlock()
	}
	return false
}

func (f *Future[R]) outcome() (R, error) {
	if f.state.Load() == futureCancelled {
		var zero R
		return zero, ErrCancelled
	}
	return f.value, f.err
}

func (f *Future[R]) run(ctx context.Context, _ *Worker, _ *WorkerFactory) {
	if !f.state.CompareAndSwap(futurePending, futureRunning) {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.mu.Lock()
	f.cancelRun = cancel
	if f.interrupt {
		cancel()
	}
	f.mu.Unlock()

	f.value, f.err = callWithRecovery(ctx, f.fn)
	f.state.Store(futureDone)
	close(f.done)
}

func (f *Future[R]) discard() {
	f.Cancel(false)
}

// callWithRecovery runs fn, converting a panic into an error carrying the stack.
func callWithRecovery[R any](ctx context.Context, fn Callable[R]) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("%w: %v\nstack trace:\n%s", ErrTaskPanic, r, buf[:n])
		}
	}()

	return fn(ctx)
}

// task adapts a Runnable for the queue. Panics go to the factory's handler.
type task struct {
	fn Runnable
}

func (t task) run(ctx context.Context, w *Worker, f *WorkerFactory) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			f.handlePanic(w, r, buf[:n])
		}
	}()

	t.fn(ctx)
}

func (task) discard() {}

// asRunnable exposes a queued task to user callbacks such as BlockPolicy's
// shutdown fallback.
func asRunnable(r runnable, f *WorkerFactory) Runnable {
	return func(ctx context.Context) {
		w, _ := WorkerFromContext(ctx)
		r.run(ctx, w, f)
	}
}
