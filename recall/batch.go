package recall

// Batch is a contiguous, order-preserving slice [From, To) of the input.
type Batch[T any] struct {
	Index int
	From  int
	To    int
	Items []T
}

// Len returns the number of items in the batch.
func (b Batch[T]) Len() int {
	return b.To - b.From
}

// BatchCount returns ceil(n / size), the number of batches Partition yields.
func BatchCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Partition splits items into BatchCount(len(items), size) batches that
// cover the input exactly, in order. Every batch but the last holds size
// items. Items of each batch share the backing array of the input but are
// capacity-clipped, so appending to one batch never overwrites the next.
//
// size must be at least 1.
func Partition[T any](items []T, size int) []Batch[T] {
	n := BatchCount(len(items), size)
	batches := make([]Batch[T], n)

	for i := range n {
		from := i * size
		to := min(from+size, len(items))
		batches[i] = Batch[T]{
			Index: i,
			From:  from,
			To:    to,
			Items: items[from:to:to],
		}
	}
	return batches
}
