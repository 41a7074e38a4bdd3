package pool

import (
	"context"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// runnable is a unit of work sitting in a pool queue.
type runnable interface {
	// run executes the task on the calling goroutine.
	run(ctx context.Context, w *Worker, f *WorkerFactory)
	// discard is called when the task is dropped without running.
	discard()
}

// workQueue is the buffer between submitters and workers.
//
// offer never blocks. take blocks until a task arrives, quit is closed, or
// (when timed) the timeout elapses.
type workQueue interface {
	offer(t runnable) bool
	put(ctx context.Context, quit <-chan struct{}, t runnable) error
	take(quit <-chan struct{}, timed bool, timeout time.Duration) (runnable, bool)
	tryPoll() (runnable, bool)
	drain() []runnable
	len() int
}

func newWorkQueue(kind QueueKind, capacity int) workQueue {
	switch kind {
	case QueueArray:
		return newChanQueue(capacity)
	case QueueHandOff:
		return newChanQueue(0)
	default:
		return newLinkedQueue()
	}
}

// chanQueue serves both the bounded array queue and, with zero capacity, the
// hand-off queue: a send on an unbuffered channel only succeeds when a worker
// is already parked in take.
type chanQueue struct {
	ch chan runnable
}

func newChanQueue(capacity int) *chanQueue {
	return &chanQueue{ch: make(chan runnable, capacity)}
}

func (q *chanQueue) offer(t runnable) bool {
	select {
	case q.ch <- t:
		return true
	default:
		return false
	}
}

func (q *chanQueue) put(ctx context.Context, quit <-chan struct{}, t runnable) error {
	select {
	case q.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-quit:
		return errPoolClosed
	}
}

func (q *chanQueue) take(quit <-chan struct{}, timed bool, timeout time.Duration) (runnable, bool) {
	if !timed {
		select {
		case t := <-q.ch:
			return t, true
		case <-quit:
			return nil, false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case t := <-q.ch:
		return t, true
	case <-quit:
		return nil, false
	case <-timer.C:
		return nil, false
	}
}

func (q *chanQueue) tryPoll() (runnable, bool) {
	select {
	case t := <-q.ch:
		return t, true
	default:
		return nil, false
	}
}

func (q *chanQueue) drain() []runnable {
	var out []runnable
	for {
		t, ok := q.tryPoll()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

func (q *chanQueue) len() int {
	return len(q.ch)
}

// linkedQueue is an unbounded FIFO over a ring-buffer queue.
//
// signal holds at most one wake-up token. A taker that pops an item and sees
// more behind it passes the token on, so a burst of adds wakes as many
// takers as there are items.
type linkedQueue struct {
	mu     sync.Mutex
	items  *queue.Queue
	signal chan struct{}
}

func newLinkedQueue() *linkedQueue {
	return &linkedQueue{
		items:  queue.New(),
		signal: make(chan struct{}, 1),
	}
}

func (q *linkedQueue) offer(t runnable) bool {
	q.mu.Lock()
	q.items.Add(t)
	q.mu.Unlock()
	q.notify()
	return true
}

func (q *linkedQueue) put(_ context.Context, _ <-chan struct{}, t runnable) error {
	q.offer(t)
	return nil
}

func (q *linkedQueue) take(quit <-chan struct{}, timed bool, timeout time.Duration) (runnable, bool) {
	var deadline <-chan time.Time
	if timed {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		if t, ok := q.tryPoll(); ok {
			return t, true
		}

		select {
		case <-q.signal:
		case <-quit:
			return nil, false
		case <-deadline:
			return q.tryPoll()
		}
	}
}

func (q *linkedQueue) tryPoll() (runnable, bool) {
	q.mu.Lock()
	if q.items.Length() == 0 {
		q.mu.Unlock()
		return nil, false
	}
	t := q.items.Remove().(runnable)
	more := q.items.Length() > 0
	q.mu.Unlock()

	if more {
		q.notify()
	}
	return t, true
}

func (q *linkedQueue) drain() []runnable {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]runnable, 0, q.items.Length())
	for q.items.Length() > 0 {
		out = append(out, q.items.Remove().(runnable))
	}
	return out
}

func (q *linkedQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

func (q *linkedQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
