package cohort

import (
	"log"

	"github.com/utkarsh5026/recall/pool"
)

const defaultNamePrefix = "cohort-worker-"

// Option is a functional option for configuring a Cohort.
type Option func(*config)

type config struct {
	startTogether bool
	namePrefix    string
	onPanic       pool.PanicHandler
	poolOpts      []pool.Option
}

// WithStartTogether holds every worker at a start gate until all of them
// have been handed to the pool, then releases them at once.
func WithStartTogether(enabled bool) Option {
	return func(cfg *config) {
		cfg.startTogether = enabled
	}
}

// WithNamePrefix sets the name prefix of the cohort's pool workers.
func WithNamePrefix(prefix string) Option {
	return func(cfg *config) {
		if prefix != "" {
			cfg.namePrefix = prefix
		}
	}
}

// WithPanicHandler receives panics escaping worker bodies. Without one they
// are logged. A panicking worker still counts as finished.
func WithPanicHandler(h pool.PanicHandler) Option {
	return func(cfg *config) {
		if h != nil {
			cfg.onPanic = h
		}
	}
}

// WithPoolOptions passes extra options to every pool the cohort builds.
// Core and max size are always set to the worker count.
func WithPoolOptions(opts ...pool.Option) Option {
	return func(cfg *config) {
		cfg.poolOpts = append(cfg.poolOpts, opts...)
	}
}

func createConfig(opts ...Option) *config {
	cfg := &config{
		namePrefix: defaultNamePrefix,
		onPanic:    logPanic,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func logPanic(w *pool.Worker, recovered any, stack []byte) {
	name := "caller"
	if w != nil {
		name = w.Name
	}
	log.Printf("cohort: worker %s panicked: %v\n%s", name, recovered, stack)
}
