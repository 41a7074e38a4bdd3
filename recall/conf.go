package recall

import (
	"time"

	"github.com/utkarsh5026/recall/internal/algorithms"
	"golang.org/x/time/rate"
)

// BackoffType selects the delay schedule between retries of a failing item.
type BackoffType = algorithms.BackoffType

const (
	BackoffExponential  = algorithms.BackoffExponential
	BackoffJittered     = algorithms.BackoffJittered
	BackoffDecorrelated = algorithms.BackoffDecorrelated
)

// BatchReport describes one executed batch.
type BatchReport struct {
	Index   int
	Size    int           // items in the batch
	Kept    int           // results left after filtering absent values
	Inline  bool          // executed by the calling goroutine rather than a pool worker
	Elapsed time.Duration // time spent inside the batch body
}

// Option is a functional option for configuring an Executor.
type Option func(*config)

type config struct {
	maxAttempts int

	backoffType    BackoffType
	backoffInitial time.Duration
	backoffMax     time.Duration
	backoffJitter  float64

	rateLimiter *rate.Limiter
	onBatchDone func(BatchReport)
}

// WithRetryPolicy retries a failing item up to maxAttempts times inside its
// batch body before the batch fails. initialDelay is the first backoff delay.
// The batch is still claimed once; retries never re-run other items.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(cfg *config) {
		if maxAttempts > 0 {
			cfg.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			cfg.backoffInitial = initialDelay
		}
	}
}

// WithBackoff chooses the retry delay schedule. jitter only applies to
// BackoffJittered.
func WithBackoff(kind BackoffType, initialDelay, maxDelay time.Duration, jitter float64) Option {
	return func(cfg *config) {
		cfg.backoffType = kind
		if initialDelay > 0 {
			cfg.backoffInitial = initialDelay
		}
		if maxDelay > 0 {
			cfg.backoffMax = maxDelay
		}
		cfg.backoffJitter = jitter
	}
}

// WithRateLimit caps how many items per second the executor feeds to the
// processing function, across all batches and goroutines.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 items/sec with burst of 5
func WithRateLimit(itemsPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if itemsPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(itemsPerSecond), burst)
		}
	}
}

// WithOnBatchDone registers a hook called after every successful batch. The
// hook runs on whichever goroutine executed the batch and must be safe for
// concurrent use.
func WithOnBatchDone(fn func(BatchReport)) Option {
	return func(cfg *config) {
		cfg.onBatchDone = fn
	}
}

func createConfig(opts ...Option) *config {
	cfg := &config{
		maxAttempts:    1,
		backoffType:    BackoffExponential,
		backoffInitial: 100 * time.Millisecond,
		backoffMax:     5 * time.Second,
		backoffJitter:  0.1,
	}

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
