// Package pool provides a bounded worker pool with a declarative
// construction policy.
//
// A Pool keeps between zero and a max number of worker goroutines. Its
// behaviour is fixed at construction by functional options:
//
//   - WithCoreSize / WithMaxSize / WithKeepAlive / WithCoreTimeout: how many
//     workers live and for how long an idle one survives
//   - WithLinkedQueue / WithArrayQueue / WithHandOffQueue: how tasks wait
//   - WithRejectionPolicy: what happens when the pool is saturated
//   - WithNamePrefix / WithDaemon / WithPriority / WithPanicHandler /
//     WithCPUAffinity or WithWorkerFactory: worker identity and thread policy
//
// # Basic Usage
//
//	p, err := pool.New(pool.WithCoreSize(4))
//	if err != nil {
//	    return err
//	}
//	defer p.Shutdown()
//
//	f, err := pool.Submit(ctx, p, func(ctx context.Context) (string, error) {
//	    w, _ := pool.WorkerFromContext(ctx)
//	    return w.Name, nil
//	})
//	name, err := f.Get()
//
// # Queue Disciplines
//
// With a core size of zero and no explicit queue, the pool uses a hand-off
// queue: a buffered queue with no persistent workers would never drain.
// Otherwise the default is an unbounded FIFO queue, which means the pool
// never grows past its core size. Bounded array queues let the pool grow
// towards the max size once they fill up.
//
// # Rejection Policies
//
//   - AbortPolicy: Submit returns ErrRejected (default)
//   - DiscardPolicy: the task is dropped, its Future cancelled
//   - DiscardOldestPolicy: the oldest queued task is dropped instead
//   - CallerRunsPolicy: the submitter runs the task itself
//   - BlockPolicy: the submitter waits for queue space
//
// # Futures
//
// Submit returns a Future. Cancel(false) prevents a task that has not
// started from ever running, which lets a caller that performed the work
// itself release the queued copy early.
package pool
