package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/utkarsh5026/recall/pool"
	"github.com/utkarsh5026/recall/recall"
)

func newTestPool(t *testing.T, opts ...pool.Option) *pool.Pool {
	t.Helper()
	p, err := pool.New(opts...)
	if err != nil {
		t.Fatalf("pool.New failed: %v", err)
	}
	t.Cleanup(func() { p.ShutdownNow() })
	return p
}

func TestPoolCollector(t *testing.T) {
	p := newTestPool(t, pool.WithCoreSize(2), pool.WithMaxSize(2))
	c := NewPoolCollector("test", p)

	if n := testutil.CollectAndCount(c); n != 7 {
		t.Fatalf("expected 7 metrics, got %d", n)
	}

	for range 5 {
		f, err := pool.Submit(context.Background(), p, func(ctx context.Context) (int, error) { return 1, nil })
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if _, err := f.Get(); err != nil {
			t.Fatalf("get: %v", err)
		}
	}

	expected := `
# HELP recall_pool_submitted_total Total number of tasks submitted to the pool.
# TYPE recall_pool_submitted_total counter
recall_pool_submitted_total{pool="test"} 5
# HELP recall_pool_rejected_total Total number of tasks refused or dropped by the rejection policy.
# TYPE recall_pool_rejected_total counter
recall_pool_rejected_total{pool="test"} 0
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"recall_pool_submitted_total", "recall_pool_rejected_total"); err != nil {
		t.Fatal(err)
	}
}

func TestPoolCollector_Registers(t *testing.T) {
	p := newTestPool(t)
	reg := prometheus.NewPedanticRegistry()

	if err := reg.Register(NewPoolCollector("a", p)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(NewPoolCollector("b", p)); err != nil {
		t.Fatalf("second pool label should register: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 7 {
		t.Fatalf("expected 7 families, got %d", len(families))
	}
}

func TestBatchObserver(t *testing.T) {
	o := NewBatchObserver("squares")
	reg := prometheus.NewRegistry()
	if err := o.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	p := newTestPool(t, pool.WithCoreSize(2), pool.WithMaxSize(2))
	e := recall.NewExecutor[int, int](p, recall.WithOnBatchDone(o.Observe))

	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if _, err := e.Process(context.Background(), items, 3, func(ctx context.Context, x int) (int, bool, error) {
		return x, x > 5, nil
	}); err != nil {
		t.Fatalf("process: %v", err)
	}

	batches := testutil.ToFloat64(o.Batches.WithLabelValues("caller")) +
		testutil.ToFloat64(o.Batches.WithLabelValues("pool"))
	if batches != 4 {
		t.Fatalf("expected 4 batches, got %v", batches)
	}
	if kept := testutil.ToFloat64(o.Kept); kept != 5 {
		t.Fatalf("expected 5 kept, got %v", kept)
	}
	if testutil.ToFloat64(o.Batches.WithLabelValues("caller")) < 1 {
		t.Fatal("the last batch always runs on the caller")
	}

	o.Observe(recall.BatchReport{Index: 9, Size: 2, Kept: 2, Inline: true, Elapsed: time.Millisecond})
	o.Observe(recall.BatchReport{Index: 10, Size: 2, Kept: 0, Inline: false, Elapsed: time.Millisecond})
	if n := testutil.CollectAndCount(o.Duration); n != 2 {
		t.Fatalf("expected 2 histogram series, got %d", n)
	}
}
