package recall

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestIdempotentTask_RunsOnce(t *testing.T) {
	var calls atomic.Int32
	task := NewIdempotentTask(3, func(ctx context.Context) ([]int, error) {
		calls.Add(1)
		return []int{7}, nil
	})

	out, err := task.ClaimAndRun(context.Background())
	if err != nil || !out.Effective || len(out.Result) != 1 || out.Result[0] != 7 {
		t.Fatalf("first claim: got %+v, %v", out, err)
	}

	out, err = task.ClaimAndRun(context.Background())
	if err != nil || out.Effective || out.Result != nil {
		t.Fatalf("second claim should be ineffective, got %+v, %v", out, err)
	}

	if calls.Load() != 1 {
		t.Fatalf("body ran %d times", calls.Load())
	}
	if task.Index() != 3 || !task.Claimed() {
		t.Fatalf("index=%d claimed=%v", task.Index(), task.Claimed())
	}
}

func TestIdempotentTask_ErrorOnlyOnEffectiveCall(t *testing.T) {
	boom := errors.New("boom")
	task := NewIdempotentTask(0, func(ctx context.Context) ([]int, error) {
		return nil, boom
	})

	out, err := task.ClaimAndRun(context.Background())
	if !out.Effective || !errors.Is(err, boom) {
		t.Fatalf("expected effective failure, got %+v, %v", out, err)
	}

	out, err = task.ClaimAndRun(context.Background())
	if out.Effective || err != nil {
		t.Fatalf("loser should see no error, got %+v, %v", out, err)
	}
}

func TestIdempotentTask_LoserDoesNotWait(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	task := NewIdempotentTask(0, func(ctx context.Context) ([]int, error) {
		close(started)
		<-release
		return nil, nil
	})

	go task.ClaimAndRun(context.Background())
	<-started

	out, _ := task.ClaimAndRun(context.Background())
	close(release)
	if out.Effective {
		t.Fatal("loser should not be effective")
	}
}

func TestIdempotentTask_ConcurrentClaims(t *testing.T) {
	const racers = 64

	for round := 0; round < 200; round++ {
		var calls, winners atomic.Int32
		task := NewIdempotentTask(round, func(ctx context.Context) ([]int, error) {
			calls.Add(1)
			return nil, nil
		})

		var wg sync.WaitGroup
		for range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if out, _ := task.ClaimAndRun(context.Background()); out.Effective {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		if calls.Load() != 1 || winners.Load() != 1 {
			t.Fatalf("round %d: calls=%d winners=%d", round, calls.Load(), winners.Load())
		}
	}
}
