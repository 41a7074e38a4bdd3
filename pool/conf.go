package pool

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
)

// QueueKind selects how queued tasks wait for a worker.
type QueueKind int

const (
	// QueueDefault resolves to QueueHandOff when the core size is zero and to
	// QueueLinked otherwise.
	QueueDefault QueueKind = iota
	// QueueLinked is an unbounded FIFO queue.
	QueueLinked
	// QueueArray is a bounded FIFO queue.
	QueueArray
	// QueueHandOff has no buffer: a task is accepted only by an idle worker.
	QueueHandOff
)

func (k QueueKind) String() string {
	switch k {
	case QueueLinked:
		return "linked"
	case QueueArray:
		return "array"
	case QueueHandOff:
		return "hand-off"
	default:
		return "default"
	}
}

const (
	defaultKeepAlive  = 60 * time.Second
	defaultNamePrefix = "recall-worker-"
)

// Option is a functional option for configuring a Pool.
type Option func(*config)

type config struct {
	coreSize         int
	maxSize          int
	maxSizeSet       bool
	keepAlive        time.Duration
	allowCoreTimeout bool
	queueKind        QueueKind
	queueCapacity    int
	rejection        RejectionPolicy

	factory      *WorkerFactory
	namePrefix   string
	daemon       bool
	priority     int
	onPanic      PanicHandler
	affinity     bool
	sharedNaming *atomic.Int64
}

// WithCoreSize sets the number of workers kept alive while idle.
// If not specified, defaults to runtime.GOMAXPROCS(0).
func WithCoreSize(n int) Option {
	return func(cfg *config) {
		cfg.coreSize = n
	}
}

// WithMaxSize sets the upper bound on live workers.
// If not specified, it equals the core size (at least 1).
func WithMaxSize(n int) Option {
	return func(cfg *config) {
		cfg.maxSize = n
		cfg.maxSizeSet = true
	}
}

// WithKeepAlive sets how long a worker above the core size may stay idle.
func WithKeepAlive(d time.Duration) Option {
	return func(cfg *config) {
		cfg.keepAlive = d
	}
}

// WithCoreTimeout lets core workers time out after the keep-alive as well.
func WithCoreTimeout(allow bool) Option {
	return func(cfg *config) {
		cfg.allowCoreTimeout = allow
	}
}

// WithLinkedQueue buffers tasks in an unbounded FIFO queue.
func WithLinkedQueue() Option {
	return func(cfg *config) {
		cfg.queueKind = QueueLinked
	}
}

// WithArrayQueue buffers up to capacity tasks.
func WithArrayQueue(capacity int) Option {
	return func(cfg *config) {
		cfg.queueKind = QueueArray
		cfg.queueCapacity = capacity
	}
}

// WithHandOffQueue disables buffering: every task must be taken by an idle
// worker, start a new worker, or go to the rejection policy.
func WithHandOffQueue() Option {
	return func(cfg *config) {
		cfg.queueKind = QueueHandOff
	}
}

// WithRejectionPolicy sets what happens when the pool is saturated or shut down.
// Defaults to AbortPolicy.
func WithRejectionPolicy(p RejectionPolicy) Option {
	return func(cfg *config) {
		if p != nil {
			cfg.rejection = p
		}
	}
}

// WithWorkerFactory uses f for worker identities. It takes precedence over
// WithNamePrefix, WithDaemon, WithPriority, WithPanicHandler and WithCPUAffinity.
func WithWorkerFactory(f *WorkerFactory) Option {
	return func(cfg *config) {
		cfg.factory = f
	}
}

// WithNamePrefix sets the worker name prefix. Defaults to "recall-worker-".
func WithNamePrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.namePrefix = prefix
	}
}

// WithSharedNaming draws worker numbers from a counter shared with other pools.
func WithSharedNaming(c *atomic.Int64) Option {
	return func(cfg *config) {
		cfg.sharedNaming = c
	}
}

// WithDaemon marks workers as daemon workers.
func WithDaemon(daemon bool) Option {
	return func(cfg *config) {
		cfg.daemon = daemon
	}
}

// WithPriority sets worker priority in [MinPriority, MaxPriority].
func WithPriority(priority int) Option {
	return func(cfg *config) {
		cfg.priority = priority
	}
}

// WithPanicHandler receives panics escaping tasks passed to Execute.
func WithPanicHandler(h PanicHandler) Option {
	return func(cfg *config) {
		cfg.onPanic = h
	}
}

// WithCPUAffinity pins every worker to its own CPU where the OS allows it.
func WithCPUAffinity(enabled bool) Option {
	return func(cfg *config) {
		cfg.affinity = enabled
	}
}

func createConfig(opts ...Option) (*config, error) {
	cfg := &config{
		coreSize:   runtime.GOMAXPROCS(0),
		keepAlive:  defaultKeepAlive,
		namePrefix: defaultNamePrefix,
		priority:   NormPriority,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if !cfg.maxSizeSet {
		cfg.maxSize = max(cfg.coreSize, 1)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.queueKind == QueueDefault {
		if cfg.coreSize == 0 {
			// a buffered queue with no persistent workers would never drain
			cfg.queueKind = QueueHandOff
		} else {
			cfg.queueKind = QueueLinked
		}
	}

	if cfg.rejection == nil {
		cfg.rejection = AbortPolicy()
	}

	if cfg.factory == nil {
		f, err := NewWorkerFactory(cfg.namePrefix,
			WithSharedCounter(cfg.sharedNaming),
			WithFactoryDaemon(cfg.daemon),
			WithFactoryPriority(cfg.priority),
			WithFactoryPanicHandler(cfg.onPanic),
			WithFactoryAffinity(cfg.affinity),
		)
		if err != nil {
			return nil, err
		}
		cfg.factory = f
	}

	return cfg, nil
}

func (cfg *config) validate() error {
	switch {
	case cfg.coreSize < 0:
		return fmt.Errorf("%w: core size %d is negative", ErrInvalidArgument, cfg.coreSize)
	case cfg.maxSize < 1:
		return fmt.Errorf("%w: max size %d must be at least 1", ErrInvalidArgument, cfg.maxSize)
	case cfg.maxSize < cfg.coreSize:
		return fmt.Errorf("%w: max size %d below core size %d", ErrInvalidArgument, cfg.maxSize, cfg.coreSize)
	case cfg.keepAlive < 0:
		return fmt.Errorf("%w: keep-alive %v is negative", ErrInvalidArgument, cfg.keepAlive)
	case cfg.queueKind == QueueArray && cfg.queueCapacity < 1:
		return fmt.Errorf("%w: array queue capacity %d must be at least 1", ErrInvalidArgument, cfg.queueCapacity)
	case cfg.allowCoreTimeout && cfg.keepAlive == 0:
		return fmt.Errorf("%w: core timeout requires a positive keep-alive", ErrInvalidArgument)
	}
	return nil
}
