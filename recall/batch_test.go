package recall

import (
	"slices"
	"testing"
)

func TestBatchCount(t *testing.T) {
	tests := []struct {
		n, size, want int
	}{
		{0, 3, 0},
		{1, 3, 1},
		{3, 3, 1},
		{10, 3, 4},
		{10, 1, 10},
		{10, 100, 1},
		{5, 0, 0},
	}

	for _, tt := range tests {
		if got := BatchCount(tt.n, tt.size); got != tt.want {
			t.Errorf("BatchCount(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}

func TestPartition_CoversInputExactly(t *testing.T) {
	for n := 0; n <= 40; n++ {
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}

		for size := 1; size <= n+2; size++ {
			batches := Partition(items, size)
			if len(batches) != BatchCount(n, size) {
				t.Fatalf("n=%d size=%d: got %d batches, want %d", n, size, len(batches), BatchCount(n, size))
			}

			next := 0
			var joined []int
			for i, b := range batches {
				if b.Index != i {
					t.Fatalf("n=%d size=%d: batch %d has index %d", n, size, i, b.Index)
				}
				if b.From != next {
					t.Fatalf("n=%d size=%d: batch %d starts at %d, want %d", n, size, i, b.From, next)
				}
				if b.Len() == 0 || b.Len() > size {
					t.Fatalf("n=%d size=%d: batch %d has length %d", n, size, i, b.Len())
				}
				if i < len(batches)-1 && b.Len() != size {
					t.Fatalf("n=%d size=%d: non-final batch %d has length %d", n, size, i, b.Len())
				}
				next = b.To
				joined = append(joined, b.Items...)
			}

			if next != n {
				t.Fatalf("n=%d size=%d: batches end at %d", n, size, next)
			}
			if !slices.Equal(joined, items) {
				t.Fatalf("n=%d size=%d: joined %v, want %v", n, size, joined, items)
			}
		}
	}
}

func TestPartition_BatchesAreCapacityClipped(t *testing.T) {
	items := []int{1, 2, 3, 4}
	batches := Partition(items, 2)

	_ = append(batches[0].Items, 99)
	if items[2] != 3 {
		t.Fatalf("appending to batch 0 overwrote batch 1: %v", items)
	}
}
