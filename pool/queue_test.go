package pool

import (
	"context"
	"sync"
	"testing"
	"time"
)

type marker int

func (marker) run(context.Context, *Worker, *WorkerFactory) {}
func (marker) discard()                                     {}

func TestLinkedQueue_FIFO(t *testing.T) {
	q := newLinkedQueue()
	for i := 0; i < 5; i++ {
		if !q.offer(marker(i)) {
			t.Fatalf("offer %d refused", i)
		}
	}
	if q.len() != 5 {
		t.Fatalf("len = %d, want 5", q.len())
	}

	for i := 0; i < 5; i++ {
		r, ok := q.tryPoll()
		if !ok || r.(marker) != marker(i) {
			t.Fatalf("poll %d = %v, %v", i, r, ok)
		}
	}
	if _, ok := q.tryPoll(); ok {
		t.Error("queue should be empty")
	}
}

func TestLinkedQueue_WakesEveryTaker(t *testing.T) {
	q := newLinkedQueue()
	quit := make(chan struct{})
	defer close(quit)

	const takers = 8
	var wg sync.WaitGroup
	got := make(chan runnable, takers)
	for i := 0; i < takers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r, ok := q.take(quit, true, time.Second); ok {
				got <- r
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	for i := 0; i < takers; i++ {
		q.offer(marker(i))
	}
	wg.Wait()

	if len(got) != takers {
		t.Errorf("%d takers woke with a task, want %d", len(got), takers)
	}
}

func TestLinkedQueue_TakeTimesOut(t *testing.T) {
	q := newLinkedQueue()
	start := time.Now()
	if _, ok := q.take(nil, true, 20*time.Millisecond); ok {
		t.Fatal("take on empty queue should time out")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("take returned before its timeout")
	}
}

func TestChanQueue_Bounded(t *testing.T) {
	q := newChanQueue(2)
	if !q.offer(marker(1)) || !q.offer(marker(2)) {
		t.Fatal("offers within capacity should succeed")
	}
	if q.offer(marker(3)) {
		t.Error("offer beyond capacity should fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.put(ctx, nil, marker(3)); err == nil {
		t.Error("put on a full queue should fail when ctx expires")
	}

	if drained := q.drain(); len(drained) != 2 {
		t.Errorf("drained %d, want 2", len(drained))
	}
}

func TestChanQueue_HandOff(t *testing.T) {
	q := newChanQueue(0)
	if q.offer(marker(1)) {
		t.Fatal("hand-off offer without a waiting taker should fail")
	}

	quit := make(chan struct{})
	got := make(chan runnable, 1)
	go func() {
		r, _ := q.take(quit, false, 0)
		got <- r
	}()

	deadline := time.Now().Add(time.Second)
	for !q.offer(marker(2)) {
		if time.Now().After(deadline) {
			t.Fatal("hand-off never accepted with a parked taker")
		}
		time.Sleep(time.Millisecond)
	}
	if r := <-got; r.(marker) != 2 {
		t.Errorf("taker received %v, want 2", r)
	}

	close(quit)
	if _, ok := q.take(quit, false, 0); ok {
		t.Error("take after quit should fail")
	}
}
