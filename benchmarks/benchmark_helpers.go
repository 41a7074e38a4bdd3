package benchmarks

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/utkarsh5026/recall/pool"
	"github.com/utkarsh5026/recall/recall"
)

// poolConfig defines a benchmark configuration for a pool shape
type poolConfig struct {
	name string
	opts []pool.Option
}

// getPoolConfigs returns every queue discipline at the given worker count
func getPoolConfigs(workerCount int) []poolConfig {
	return []poolConfig{
		{
			name: "Linked",
			opts: []pool.Option{
				pool.WithCoreSize(workerCount),
				pool.WithLinkedQueue(),
			},
		},
		{
			name: "Array_CallerRuns",
			opts: []pool.Option{
				pool.WithCoreSize(workerCount),
				pool.WithArrayQueue(workerCount * 4),
				pool.WithRejectionPolicy(pool.CallerRunsPolicy()),
			},
		},
		{
			name: "Array_Discard",
			opts: []pool.Option{
				pool.WithCoreSize(workerCount),
				pool.WithArrayQueue(workerCount),
				pool.WithRejectionPolicy(pool.DiscardPolicy()),
			},
		},
		{
			name: "HandOff_Block",
			opts: []pool.Option{
				pool.WithCoreSize(workerCount),
				pool.WithHandOffQueue(),
				pool.WithRejectionPolicy(pool.BlockPolicy(nil)),
			},
		},
	}
}

// newBenchPool builds a pool and shuts it down when the benchmark ends
func newBenchPool(b *testing.B, opts []pool.Option) *pool.Pool {
	b.Helper()
	p, err := pool.New(opts...)
	if err != nil {
		b.Fatalf("failed to create pool: %v", err)
	}
	b.Cleanup(p.Shutdown)
	return p
}

// generateTasks creates a slice of n sequential integers
func generateTasks(n int) []int {
	tasks := make([]int, n)
	for i := range tasks {
		tasks[i] = i
	}
	return tasks
}

// cpuBoundWork simulates a CPU-intensive operation
func cpuBoundWork(iterations int) recall.ProcessFunc[int, int] {
	return func(ctx context.Context, task int) (int, error) {
		result := 0
		for i := 0; i < iterations; i++ {
			result += i * task
		}
		return result, nil
	}
}

// ioBoundWork simulates an I/O operation with a delay
func ioBoundWork(delay time.Duration) recall.ProcessFunc[int, int] {
	return func(ctx context.Context, task int) (int, error) {
		select {
		case <-time.After(delay):
			return task * 2, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// skewedWork makes every 64th item much heavier than the rest
func skewedWork() recall.ProcessFunc[int, int] {
	return func(ctx context.Context, task int) (int, error) {
		n := 200
		if task%64 == 0 {
			n = 20_000
		}
		v := 0.0
		for i := 0; i < n; i++ {
			v += math.Sqrt(float64(i + task))
		}
		return int(v), nil
	}
}

// fanOutAndWait is the baseline: submit every batch to the pool and block on
// all of them, with no caller participation.
func fanOutAndWait(ctx context.Context, p *pool.Pool, items []int, batchSize int, fn recall.ProcessFunc[int, int]) ([]int, error) {
	batches := recall.Partition(items, batchSize)
	futures := make([]*pool.Future[[]int], len(batches))

	for i, batch := range batches {
		f, err := pool.Submit(ctx, p, func(ctx context.Context) ([]int, error) {
			out := make([]int, 0, batch.Len())
			for _, item := range batch.Items {
				r, err := fn(ctx, item)
				if err != nil {
					return nil, err
				}
				out = append(out, r)
			}
			return out, nil
		})
		if err != nil {
			return nil, err
		}
		futures[i] = f
	}

	results := make([]int, 0, len(items))
	for _, f := range futures {
		out, err := f.GetWithContext(ctx)
		if err != nil {
			return nil, err
		}
		results = append(results, out...)
	}
	return results, nil
}

func newTestPool(cfg poolConfig) (*pool.Pool, error) {
	return pool.New(cfg.opts...)
}
