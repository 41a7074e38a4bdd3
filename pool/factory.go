package pool

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"

	"github.com/utkarsh5026/recall/internal/cpu"
)

// Worker priorities. Priorities map onto OS-thread niceness: NormPriority
// leaves the thread alone, anything else locks the worker to its own thread.
const (
	MinPriority  = 1
	NormPriority = 5
	MaxPriority  = 10
)

// PanicHandler receives panics escaping a Runnable. w is nil when the task
// ran on the submitting goroutine (CallerRunsPolicy).
type PanicHandler func(w *Worker, recovered any, stack []byte)

// Worker is the identity of a pool goroutine.
type Worker struct {
	ID       int64
	Name     string
	Daemon   bool
	Priority int
}

// FactoryOption configures a WorkerFactory.
type FactoryOption func(*WorkerFactory)

// WorkerFactory hands out named, prioritised workers for a pool.
//
// Each factory owns its own sequence counter unless one is injected with
// WithSharedCounter, in which case every factory holding the counter draws
// from a single visible naming sequence.
type WorkerFactory struct {
	prefix   string
	counter  *atomic.Int64
	daemon   bool
	priority int
	affinity bool
	onPanic  PanicHandler
}

// WithSharedCounter makes the factory draw worker numbers from c.
func WithSharedCounter(c *atomic.Int64) FactoryOption {
	return func(f *WorkerFactory) {
		if c != nil {
			f.counter = c
		}
	}
}

// WithFactoryDaemon marks produced workers as daemon workers.
// Daemon workers do not hold back AwaitTermination.
func WithFactoryDaemon(daemon bool) FactoryOption {
	return func(f *WorkerFactory) {
		f.daemon = daemon
	}
}

// WithFactoryPriority sets the priority of produced workers.
// The value is validated by NewWorkerFactory.
func WithFactoryPriority(priority int) FactoryOption {
	return func(f *WorkerFactory) {
		f.priority = priority
	}
}

// WithFactoryPanicHandler installs the handler for panics escaping a Runnable.
func WithFactoryPanicHandler(h PanicHandler) FactoryOption {
	return func(f *WorkerFactory) {
		f.onPanic = h
	}
}

// WithFactoryAffinity pins each worker to CPU (ID-1) % NumCPU.
func WithFactoryAffinity(enabled bool) FactoryOption {
	return func(f *WorkerFactory) {
		f.affinity = enabled
	}
}

// NewWorkerFactory creates a factory naming workers prefix1, prefix2, ...
// It fails with ErrInvalidArgument when the priority is outside
// [MinPriority, MaxPriority].
func NewWorkerFactory(prefix string, opts ...FactoryOption) (*WorkerFactory, error) {
	f := &WorkerFactory{
		prefix:   prefix,
		counter:  new(atomic.Int64),
		priority: NormPriority,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.priority < MinPriority || f.priority > MaxPriority {
		return nil, fmt.Errorf("%w: priority %d outside [%d, %d]",
			ErrInvalidArgument, f.priority, MinPriority, MaxPriority)
	}

	return f, nil
}

// Prefix returns the name prefix of produced workers.
func (f *WorkerFactory) Prefix() string {
	return f.prefix
}

// NewWorker returns the next worker identity in the sequence.
func (f *WorkerFactory) NewWorker() *Worker {
	id := f.counter.Add(1)
	w := &Worker{
		ID:       id,
		Name:     f.prefix + strconv.FormatInt(id, 10),
		Priority: f.priority,
	}
	f.normalize(w)
	return w
}

// normalize flips the daemon flag only when it disagrees with the factory.
func (f *WorkerFactory) normalize(w *Worker) {
	if w.Daemon != f.daemon {
		w.Daemon = f.daemon
	}
}

// binding translates the worker's policy into an OS-thread binding.
func (f *WorkerFactory) binding(w *Worker) cpu.Binding {
	return cpu.Binding{
		Pin:  f.affinity,
		Core: int(w.ID - 1),
		Nice: niceFor(w.Priority),
	}
}

// handlePanic routes a recovered panic to the configured handler, or logs it.
func (f *WorkerFactory) handlePanic(w *Worker, recovered any, stack []byte) {
	if f.onPanic != nil {
		f.onPanic(w, recovered, stack)
		return
	}
	name := "caller"
	if w != nil {
		name = w.Name
	}
	log.Printf("pool: worker %s panicked: %v\n%s", name, recovered, stack)
}

// niceFor maps priority 1..10 onto niceness 16..-20, NormPriority onto 0.
func niceFor(priority int) int {
	return (NormPriority - priority) * 4
}

type workerKey struct{}

// WorkerFromContext returns the worker running the task that received ctx.
// It reports false when the task runs on the submitting goroutine.
func WorkerFromContext(ctx context.Context) (*Worker, bool) {
	w, ok := ctx.Value(workerKey{}).(*Worker)
	return w, ok && w != nil
}

func withWorker(ctx context.Context, w *Worker) context.Context {
	return context.WithValue(ctx, workerKey{}, w)
}
