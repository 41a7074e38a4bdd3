package recall

import (
	"context"
	"sync/atomic"
)

// Outcome is the result of one ClaimAndRun call. Effective is true only for
// the call that won the claim and executed the body.
type Outcome[R any] struct {
	Result    []R
	Effective bool
}

// IdempotentTask runs its body at most once, no matter how many goroutines
// call ClaimAndRun. The first caller to flip the claim flag runs the body;
// every other caller returns an ineffective Outcome immediately, without
// waiting for the winner to finish.
type IdempotentTask[R any] struct {
	index   int
	claimed atomic.Bool
	body    func(ctx context.Context) ([]R, error)
}

// NewIdempotentTask wraps body for batch index.
func NewIdempotentTask[R any](index int, body func(ctx context.Context) ([]R, error)) *IdempotentTask[R] {
	return &IdempotentTask[R]{index: index, body: body}
}

// Index returns the batch index the task was created for.
func (t *IdempotentTask[R]) Index() int {
	return t.index
}

// Claimed reports whether some caller already won the claim.
func (t *IdempotentTask[R]) Claimed() bool {
	return t.claimed.Load()
}

// ClaimAndRun executes the body if and only if no other call claimed it
// first. The error is the body's error and is only ever non-nil on the
// effective call.
func (t *IdempotentTask[R]) ClaimAndRun(ctx context.Context) (Outcome[R], error) {
	if !t.claimed.CompareAndSwap(false, true) {
		return Outcome[R]{}, nil
	}

	res, err := t.body(ctx)
	return Outcome[R]{Result: res, Effective: true}, err
}
