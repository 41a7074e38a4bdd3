package recall

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/utkarsh5026/recall/internal/algorithms"
	"github.com/utkarsh5026/recall/pool"
	"golang.org/x/sync/errgroup"
)

// FilterFunc processes one item. Returning false drops the item from the
// output; the returned value is then ignored.
type FilterFunc[T, R any] func(ctx context.Context, item T) (R, bool, error)

// ProcessFunc processes one item into exactly one result.
type ProcessFunc[T, R any] func(ctx context.Context, item T) (R, error)

var errLostOutcome = errors.New("recall: handle resolved without an effective run")

// Executor processes slices in batches on a shared pool, with the calling
// goroutine recalling queued batches instead of waiting for them.
//
// Type parameters:
//   - T: The input item type
//   - R: The result type
type Executor[T, R any] struct {
	pool    *pool.Pool
	conf    *config
	backoff algorithms.Backoff
}

// NewExecutor creates an Executor submitting to p. The pool is shared: many
// executors and many concurrent Process calls may use it.
func NewExecutor[T, R any](p *pool.Pool, opts ...Option) *Executor[T, R] {
	cfg := createConfig(opts...)
	return &Executor[T, R]{
		pool:    p,
		conf:    cfg,
		backoff: algorithms.NewBackoff(cfg.backoffType, cfg.backoffInitial, cfg.backoffMax, cfg.backoffJitter),
	}
}

// Map is Process for a function that never drops items.
func (e *Executor[T, R]) Map(ctx context.Context, items []T, batchSize int, fn ProcessFunc[T, R]) ([]R, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil process function", pool.ErrInvalidArgument)
	}
	return e.Process(ctx, items, batchSize, func(ctx context.Context, item T) (R, bool, error) {
		r, err := fn(ctx, item)
		return r, true, err
	})
}

// Process runs fn over items in batches of batchSize and returns the kept
// results in input order.
//
// All batches but the last are submitted to the pool. The last runs on the
// calling goroutine, which then walks the submitted batches in order and
// claims every one no worker has started yet, cancelling its queued copy.
// Only batches a worker already claimed are waited for. Each batch body runs
// exactly once.
//
// The call either returns every kept result or fails: the first failing
// batch aborts it with a *BatchError (matching ErrTaskFailure). Batches
// already handed to the pool are not cancelled on failure; they run to
// completion and their results are dropped.
//
// It fails with pool.ErrInvalidArgument when batchSize < 1.
func (e *Executor[T, R]) Process(ctx context.Context, items []T, batchSize int, fn FilterFunc[T, R]) ([]R, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size %d must be at least 1", pool.ErrInvalidArgument, batchSize)
	}
	if fn == nil || e.pool == nil {
		return nil, fmt.Errorf("%w: nil process function or pool", pool.ErrInvalidArgument)
	}

	batches := Partition(items, batchSize)
	if len(batches) == 0 {
		return []R{}, nil
	}

	last := len(batches) - 1
	slots := make([][]R, len(batches))
	pending := make([]*IdempotentTask[R], 0, last)
	handles := make(map[int]*pool.Future[Outcome[R]], last)

	for _, b := range batches[:last] {
		task := NewIdempotentTask(b.Index, func(ctx context.Context) ([]R, error) {
			return e.runBatch(ctx, b, fn)
		})

		h, err := pool.Submit(ctx, e.pool, e.poolSide(ctx, b, task))
		if err != nil {
			return nil, &BatchError{Index: b.Index, Err: err}
		}
		handles[b.Index] = h
		pending = append(pending, task)
	}

	start := time.Now()
	res, err := e.runBatch(ctx, batches[last], fn)
	if err != nil {
		return nil, &BatchError{Index: last, Err: err}
	}
	slots[last] = res
	e.report(batches[last], len(res), true, start)

	recalled := 0
	for _, task := range pending {
		start := time.Now()
		out, err := task.ClaimAndRun(ctx)
		if !out.Effective {
			continue
		}

		idx := task.Index()
		if err != nil {
			return nil, &BatchError{Index: idx, Err: err}
		}
		slots[idx] = out.Result
		e.report(batches[idx], len(out.Result), true, start)

		handles[idx].Cancel(false)
		delete(handles, idx)
		recalled++
	}
	debugLog("process: %d batches, %d recalled by caller, %d awaited", len(batches), recalled, len(handles))

	if err := awaitHandles(ctx, handles, slots); err != nil {
		return nil, err
	}

	return flatten(slots), nil
}

// poolSide wraps task for the pool. The body runs under the context the
// pool hands it, so it sees the executing worker, and is also cancelled when
// the caller's ctx ends. A pool that runs the task on the submitting
// goroutine (CallerRunsPolicy) hands it no worker; such a batch is reported
// as inline.
func (e *Executor[T, R]) poolSide(ctx context.Context, b Batch[T], task *IdempotentTask[R]) pool.Callable[Outcome[R]] {
	return func(workerCtx context.Context) (Outcome[R], error) {
		bctx, cancel := context.WithCancel(workerCtx)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		_, onWorker := pool.WorkerFromContext(workerCtx)
		start := time.Now()
		out, err := task.ClaimAndRun(bctx)
		if out.Effective && err == nil {
			e.report(b, len(out.Result), !onWorker, start)
		}
		return out, err
	}
}

// awaitHandles resolves the batches a worker claimed. Every handle left in
// the table belongs to a body that is running or finished, so these waits are
// bounded by real work. The first failure stops the waiting.
func awaitHandles[R any](ctx context.Context, handles map[int]*pool.Future[Outcome[R]], slots [][]R) error {
	if len(handles) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for idx, h := range handles {
		g.Go(func() error {
			out, err := h.GetWithContext(gctx)
			if err != nil {
				return &BatchError{Index: idx, Err: err}
			}
			if !out.Effective {
				return &BatchError{Index: idx, Err: errLostOutcome}
			}
			slots[idx] = out.Result
			return nil
		})
	}
	return g.Wait()
}

// runBatch applies fn to every item of b, dropping absent results.
// Panics are returned as errors so both execution paths fail the same way.
func (e *Executor[T, R]) runBatch(ctx context.Context, b Batch[T], fn FilterFunc[T, R]) (out []R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			out, err = nil, fmt.Errorf("%w: %v\nstack trace:\n%s", pool.ErrTaskPanic, r, buf[:n])
		}
	}()

	out = make([]R, 0, b.Len())
	for _, item := range b.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if e.conf.rateLimiter != nil {
			if err := e.conf.rateLimiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, err
			}
		}

		r, ok, err := e.processWithRetry(ctx, item, fn)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// processWithRetry calls fn for item up to maxAttempts times, waiting the
// backoff delay between attempts.
func (e *Executor[T, R]) processWithRetry(ctx context.Context, item T, fn FilterFunc[T, R]) (R, bool, error) {
	var (
		result R
		ok     bool
		err    error
	)

	for attempt := range max(e.conf.maxAttempts, 1) {
		if attempt > 0 {
			timer := time.NewTimer(e.backoff.Delay(attempt - 1))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return result, false, ctx.Err()
			}
		}

		result, ok, err = fn(ctx, item)
		if err == nil {
			return result, ok, nil
		}
	}
	return result, false, err
}

func (e *Executor[T, R]) report(b Batch[T], kept int, inline bool, start time.Time) {
	if e.conf.onBatchDone == nil {
		return
	}
	e.conf.onBatchDone(BatchReport{
		Index:   b.Index,
		Size:    b.Len(),
		Kept:    kept,
		Inline:  inline,
		Elapsed: time.Since(start),
	})
}

// flatten concatenates the slots in index order, skipping empty ones.
func flatten[R any](slots [][]R) []R {
	total := 0
	for _, s := range slots {
		total += len(s)
	}

	out := make([]R, 0, total)
	for _, s := range slots {
		out = append(out, s...)
	}
	return out
}
