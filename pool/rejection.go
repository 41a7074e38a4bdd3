package pool

import (
	"context"
	"fmt"
)

// RejectionPolicy decides what happens to a task the pool cannot accept,
// either because it is saturated or because it was shut down.
//
// The set of policies is closed; use the constructors below.
type RejectionPolicy interface {
	rejected(ctx context.Context, t runnable, p *Pool) error
	String() string
}

// AbortPolicy fails the submission with ErrRejected.
func AbortPolicy() RejectionPolicy { return abortPolicy{} }

// DiscardPolicy silently drops the task. A dropped Future is cancelled.
func DiscardPolicy() RejectionPolicy { return discardPolicy{} }

// DiscardOldestPolicy evicts the head of the queue and retries the submission.
// On a shut-down pool, or when the queue holds nothing to evict, the task is
// dropped.
func DiscardOldestPolicy() RejectionPolicy { return discardOldestPolicy{} }

// CallerRunsPolicy runs the task on the submitting goroutine.
// On a shut-down pool the task is dropped.
func CallerRunsPolicy() RejectionPolicy { return callerRunsPolicy{} }

// BlockPolicy blocks the submitter until the queue has room.
//
// If ctx ends while blocked and the pool is still running, the submission
// fails with ErrRejected and ErrInterrupted. If the pool is shut down, the
// task is handed to onShutdown, or dropped when onShutdown is nil.
//
// A pool shutting down between the saturation check and the blocking put
// may still accept the task; queued tasks are drained by a graceful shutdown,
// so the window costs at most one late task.
func BlockPolicy(onShutdown func(Runnable)) RejectionPolicy {
	return blockPolicy{onShutdown: onShutdown}
}

type abortPolicy struct{}

func (abortPolicy) rejected(_ context.Context, t runnable, p *Pool) error {
	t.discard()
	p.rejected.Add(1)
	if p.IsShutdown() {
		return fmt.Errorf("%w: %w", ErrRejected, errPoolClosed)
	}
	return fmt.Errorf("%w: pool saturated (%d workers, %d queued)", ErrRejected, p.PoolSize(), p.queue.len())
}

func (abortPolicy) String() string { return "abort" }

type discardPolicy struct{}

func (discardPolicy) rejected(_ context.Context, t runnable, p *Pool) error {
	p.rejected.Add(1)
	t.discard()
	return nil
}

func (discardPolicy) String() string { return "discard" }

type discardOldestPolicy struct{}

func (discardOldestPolicy) rejected(ctx context.Context, t runnable, p *Pool) error {
	if p.IsShutdown() {
		p.rejected.Add(1)
		t.discard()
		return nil
	}

	oldest, ok := p.queue.tryPoll()
	p.rejected.Add(1)
	if !ok {
		// nothing buffered (hand-off queue): the new task is the oldest
		t.discard()
		return nil
	}
	oldest.discard()
	return p.execute(ctx, t)
}

func (discardOldestPolicy) String() string { return "discard-oldest" }

type callerRunsPolicy struct{}

func (callerRunsPolicy) rejected(ctx context.Context, t runnable, p *Pool) error {
	if p.IsShutdown() {
		p.rejected.Add(1)
		t.discard()
		return nil
	}
	debugLog("caller runs rejected task")
	// hide any worker the submitter itself runs on
	t.run(withWorker(ctx, nil), nil, p.factory)
	return nil
}

func (callerRunsPolicy) String() string { return "caller-runs" }

type blockPolicy struct {
	onShutdown func(Runnable)
}

func (b blockPolicy) rejected(ctx context.Context, t runnable, p *Pool) error {
	if !p.IsShutdown() {
		err := p.queue.put(ctx, p.quit, t)
		if err == nil {
			p.ensureWorker()
			return nil
		}
		if !p.IsShutdown() {
			p.rejected.Add(1)
			t.discard()
			return fmt.Errorf("%w (%w): %v", ErrRejected, ErrInterrupted, err)
		}
	}

	p.rejected.Add(1)
	if b.onShutdown != nil {
		b.onShutdown(asRunnable(t, p.factory))
		return nil
	}
	t.discard()
	return nil
}

func (blockPolicy) String() string { return "block" }
