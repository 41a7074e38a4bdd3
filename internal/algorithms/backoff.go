// Package algorithms holds the retry delay schedules used when a batch item
// is retried inside its claimed batch body.
package algorithms

import (
	"math/rand"
	"sync"
	"time"
)

// BackoffType selects a delay schedule.
type BackoffType int

const (
	// BackoffExponential doubles the delay on every retry (default).
	BackoffExponential BackoffType = iota
	// BackoffJittered spreads the exponential delay by ± a jitter factor.
	BackoffJittered
	// BackoffDecorrelated picks each delay in [initial, 3 × previous].
	BackoffDecorrelated
)

// maxShift keeps 1<<retry from overflowing.
const maxShift = 62

// Backoff computes the wait before a retry. retry is 0 for the first retry.
// Implementations are safe for concurrent use.
type Backoff interface {
	Delay(retry int) time.Duration
}

// NewBackoff builds the schedule of the given type. A jitter outside [0, 1]
// is clamped.
func NewBackoff(kind BackoffType, initial, maxDelay time.Duration, jitter float64) Backoff {
	switch kind {
	case BackoffJittered:
		return &jittered{
			base:   exponential{initial: initial, max: maxDelay},
			jitter: clamp(jitter, 0, 1),
			rng:    newRand(),
		}
	case BackoffDecorrelated:
		return &decorrelated{initial: initial, max: maxDelay, rng: newRand()}
	default:
		return exponential{initial: initial, max: maxDelay}
	}
}

type exponential struct {
	initial, max time.Duration
}

// Delay returns initial × 2^retry, capped at max.
func (e exponential) Delay(retry int) time.Duration {
	if retry < 0 {
		return 0
	}
	if retry >= maxShift {
		return e.max
	}

	d := e.initial * time.Duration(int64(1)<<uint(retry))
	if d > e.max || d < 0 || (e.initial > 0 && d/e.initial != time.Duration(int64(1)<<uint(retry))) {
		return e.max
	}
	return d
}

// jittered multiplies the exponential delay by a factor in [1-jitter, 1+jitter].
type jittered struct {
	base   exponential
	jitter float64
	mu     sync.Mutex
	rng    *rand.Rand
}

func (j *jittered) Delay(retry int) time.Duration {
	d := j.base.Delay(retry)
	if d == 0 {
		return 0
	}

	j.mu.Lock()
	factor := 1 + (j.rng.Float64()*2-1)*j.jitter
	j.mu.Unlock()

	return clamp(time.Duration(float64(d)*factor), 0, j.base.max)
}

// decorrelated is the "decorrelated jitter" schedule: every delay depends on
// the previous one rather than on the retry number, so concurrent failures
// drift apart instead of retrying in lock-step. Delay(0) restarts the chain.
type decorrelated struct {
	initial, max time.Duration
	mu           sync.Mutex
	prev         time.Duration
	rng          *rand.Rand
}

func (d *decorrelated) Delay(retry int) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if retry <= 0 {
		d.prev = d.initial
		return d.initial
	}

	upper := min(d.prev*3, d.max)
	span := upper - d.initial
	if span <= 0 {
		d.prev = d.initial
		return d.initial
	}

	d.prev = d.initial + time.Duration(d.rng.Int63n(int64(span)))
	return d.prev
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec G404 -- jitter does not need crypto rand
}

func clamp[T int | float64 | time.Duration](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
