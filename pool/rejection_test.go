package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// saturate fills a single-worker pool with a one-slot queue and returns the
// channel that releases the blocked worker.
func saturate(t *testing.T, p *Pool) chan struct{} {
	t.Helper()
	release := make(chan struct{})
	started := make(chan struct{})

	if err := p.Execute(context.Background(), func(ctx context.Context) {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("execute blocker: %v", err)
	}
	<-started

	if err := p.Execute(context.Background(), func(ctx context.Context) {}); err != nil {
		t.Fatalf("fill queue: %v", err)
	}
	return release
}

func saturatedPool(t *testing.T, policy RejectionPolicy) *Pool {
	return newTestPool(t,
		WithCoreSize(1),
		WithMaxSize(1),
		WithArrayQueue(1),
		WithRejectionPolicy(policy),
	)
}

func TestAbortPolicy(t *testing.T) {
	p := saturatedPool(t, AbortPolicy())
	release := saturate(t, p)
	defer close(release)

	_, err := Submit(context.Background(), p, func(ctx context.Context) (int, error) { return 1, nil })
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestDiscardPolicy(t *testing.T) {
	p := saturatedPool(t, DiscardPolicy())
	release := saturate(t, p)
	defer close(release)

	f, err := Submit(context.Background(), p, func(ctx context.Context) (int, error) { return 1, nil })
	if err != nil {
		t.Fatalf("discard policy should not fail the submit: %v", err)
	}
	if !f.IsCancelled() {
		t.Error("discarded future should be cancelled")
	}
	if _, err := f.Get(); !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestDiscardOldestPolicy(t *testing.T) {
	p := saturatedPool(t, DiscardOldestPolicy())
	release := make(chan struct{})
	started := make(chan struct{})
	_ = p.Execute(context.Background(), func(ctx context.Context) {
		close(started)
		<-release
	})
	<-started

	oldest, err := Submit(context.Background(), p, func(ctx context.Context) (string, error) { return "old", nil })
	if err != nil {
		t.Fatalf("submit oldest: %v", err)
	}
	newest, err := Submit(context.Background(), p, func(ctx context.Context) (string, error) { return "new", nil })
	if err != nil {
		t.Fatalf("submit newest: %v", err)
	}

	close(release)

	if _, err := oldest.GetWithTimeout(time.Second); !errors.Is(err, ErrCancelled) {
		t.Errorf("oldest: expected ErrCancelled, got %v", err)
	}
	if v, err := newest.GetWithTimeout(time.Second); err != nil || v != "new" {
		t.Errorf("newest = %q, %v", v, err)
	}
}

func TestDiscardOldestPolicy_HandOffDropsNewTask(t *testing.T) {
	p := newTestPool(t,
		WithCoreSize(0),
		WithMaxSize(1),
		WithRejectionPolicy(DiscardOldestPolicy()),
	)
	release := make(chan struct{})
	defer close(release)
	_ = p.Execute(context.Background(), func(ctx context.Context) { <-release })

	f, err := Submit(context.Background(), p, func(ctx context.Context) (int, error) { return 1, nil })
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !f.IsCancelled() {
		t.Error("with nothing queued the new task should be dropped")
	}
}

func TestCallerRunsPolicy(t *testing.T) {
	p := saturatedPool(t, CallerRunsPolicy())
	release := saturate(t, p)
	defer close(release)

	f, err := Submit(context.Background(), p, func(ctx context.Context) (bool, error) {
		_, onWorker := WorkerFromContext(ctx)
		return onWorker, nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !f.IsDone() {
		t.Fatal("caller-runs future should complete before Submit returns")
	}
	if onWorker, _ := f.Get(); onWorker {
		t.Error("task should have run on the submitting goroutine")
	}

	t.Run("hides the submitter's worker", func(t *testing.T) {
		outer := withWorker(context.Background(), &Worker{ID: 99, Name: "outer-1"})
		f, err := Submit(outer, p, func(ctx context.Context) (bool, error) {
			_, onWorker := WorkerFromContext(ctx)
			return onWorker, nil
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if onWorker, _ := f.Get(); onWorker {
			t.Error("a caller-run task must not see the submitter's worker")
		}
	})

	t.Run("dropped after shutdown", func(t *testing.T) {
		p.Shutdown()
		var ran atomic.Bool
		if err := p.Execute(context.Background(), func(ctx context.Context) { ran.Store(true) }); err != nil {
			t.Fatalf("execute: %v", err)
		}
		if ran.Load() {
			t.Error("caller-runs must not run tasks on a shut-down pool")
		}
	})
}

func TestBlockPolicy(t *testing.T) {
	t.Run("blocks until space frees", func(t *testing.T) {
		p := saturatedPool(t, BlockPolicy(nil))
		release := saturate(t, p)

		submitted := make(chan *Future[int], 1)
		go func() {
			f, err := Submit(context.Background(), p, func(ctx context.Context) (int, error) { return 7, nil })
			if err != nil {
				t.Errorf("blocked submit failed: %v", err)
			}
			submitted <- f
		}()

		select {
		case <-submitted:
			t.Fatal("submit should block while saturated")
		case <-time.After(50 * time.Millisecond):
		}

		close(release)

		select {
		case f := <-submitted:
			if v, err := f.GetWithTimeout(time.Second); err != nil || v != 7 {
				t.Errorf("blocked task = %d, %v", v, err)
			}
		case <-time.After(time.Second):
			t.Fatal("submit never unblocked")
		}
	})

	t.Run("interrupted while pool running", func(t *testing.T) {
		p := saturatedPool(t, BlockPolicy(nil))
		release := saturate(t, p)
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		err := p.Execute(ctx, func(ctx context.Context) {})
		if !errors.Is(err, ErrRejected) || !errors.Is(err, ErrInterrupted) {
			t.Fatalf("expected ErrRejected and ErrInterrupted, got %v", err)
		}
	})

	t.Run("shutdown hands task to fallback", func(t *testing.T) {
		var fallback atomic.Int32
		p := saturatedPool(t, BlockPolicy(func(r Runnable) {
			fallback.Add(1)
		}))
		release := saturate(t, p)
		defer close(release)

		errCh := make(chan error, 1)
		go func() {
			errCh <- p.Execute(context.Background(), func(ctx context.Context) {})
		}()

		time.Sleep(30 * time.Millisecond)
		p.Shutdown()

		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("expected nil error on shutdown fallback, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("blocked submitter not released by shutdown")
		}
		if fallback.Load() != 1 {
			t.Errorf("fallback called %d times, want 1", fallback.Load())
		}
	})

	t.Run("shutdown without fallback drops silently", func(t *testing.T) {
		p := saturatedPool(t, BlockPolicy(nil))
		p.Shutdown()

		f, err := Submit(context.Background(), p, func(ctx context.Context) (int, error) { return 1, nil })
		if err != nil {
			t.Fatalf("expected silent drop, got %v", err)
		}
		if !f.IsCancelled() {
			t.Error("dropped future should be cancelled")
		}
	})
}

func TestRejectionPolicy_String(t *testing.T) {
	tests := []struct {
		policy RejectionPolicy
		want   string
	}{
		{AbortPolicy(), "abort"},
		{DiscardPolicy(), "discard"},
		{DiscardOldestPolicy(), "discard-oldest"},
		{CallerRunsPolicy(), "caller-runs"},
		{BlockPolicy(nil), "block"},
	}
	for _, tt := range tests {
		if got := tt.policy.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
