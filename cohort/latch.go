package cohort

import (
	"context"
	"sync/atomic"
)

// latch is a one-shot countdown latch. done closes when the count reaches
// zero; extra countDowns are ignored.
type latch struct {
	count atomic.Int64
	done  chan struct{}
}

func newLatch(n int) *latch {
	l := &latch{done: make(chan struct{})}
	l.count.Store(int64(n))
	if n <= 0 {
		close(l.done)
	}
	return l
}

func (l *latch) countDown() {
	for {
		c := l.count.Load()
		if c <= 0 {
			return
		}
		if l.count.CompareAndSwap(c, c-1) {
			if c == 1 {
				close(l.done)
			}
			return
		}
	}
}

func (l *latch) remaining() int64 {
	return l.count.Load()
}

func (l *latch) wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
