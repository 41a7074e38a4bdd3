// Package recall processes ordered slices in batches on a shared worker pool
// without ever letting the caller sit idle.
//
// # How it works
//
// Process splits the input into ceil(n/size) contiguous batches and wraps
// each one in an IdempotentTask. Every batch except the last is submitted to
// the pool; the last runs on the calling goroutine, which guarantees progress
// even when the pool is saturated or refuses work. The caller then walks the
// submitted batches in order and tries to claim each one itself. A batch no
// worker has started yet is executed by the caller and its queued copy is
// cancelled; a batch a worker already claimed is waited for. Claims are a
// single compare-and-swap, so each batch body runs exactly once.
//
// # Usage
//
//	p, err := pool.New(pool.WithCoreSize(4))
//	if err != nil {
//	    return err
//	}
//	defer p.Shutdown()
//
//	e := recall.NewExecutor[int, int](p)
//	squares, err := e.Map(ctx, []int{1, 2, 3, 4, 5}, 2, func(ctx context.Context, x int) (int, error) {
//	    return x * x, nil
//	})
//
// Process takes a FilterFunc, which may drop items by returning false; the
// output then holds only the kept results, still in input order.
//
// # Failures
//
// The first failing batch aborts the call with a *BatchError, which matches
// ErrTaskFailure and wraps the cause. No partial results are returned.
// Batches already running on the pool are not cancelled; they finish and
// their results are dropped.
//
// # Options
//
//   - WithRetryPolicy / WithBackoff: retry failing items inside their batch
//   - WithRateLimit: cap items per second across all batches
//   - WithOnBatchDone: observe every completed batch
package recall
