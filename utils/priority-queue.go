package utils

type PQI[T any] interface {
	Less(T) bool
}

// Binary min-heap (according to Less) over a slice.
type PQ[T PQI[T]] []T

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *PQ[T]) Push(x T) {
	*h = append(*h, x)
	h.up(len(*h) - 1)
}

// pop removes and returns the minimum element (according to Less) from the heap.
// The complexity is O(log n) where n = h.Len().
func (h *PQ[T]) pop() T {
	n := len(*h) - 1
	(*h)[0], (*h)[n] = (*h)[n], (*h)[0]
	h.down(0, n)
	item := (*h)[n]
	*h = (*h)[:n]
	return item
}

// Peek returns the minimum element without removing it. The heap must not be empty.
func (h PQ[T]) Peek() T {
	return h[0]
}

// Replace swaps the minimum element for x and restores the ordering; returns the old minimum.
// Equivalent to pop then Push, with a single sift.
func (h PQ[T]) Replace(x T) (old T) {
	old = h[0]
	h[0] = x
	h.down(0, len(h))
	return old
}

func (h PQ[T]) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !h[j].Less(h[i]) {
			break
		}
		h[i], h[j] = h[j], h[i]
		j = i
	}
}

func (h PQ[T]) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 { // j1 < 0 after int overflow
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n && h[j2].Less(h[j1]) {
			j = j2 // = 2*i + 2  // right child
		}
		if !h[j].Less(h[i]) {
			break
		}
		h[i], h[j] = h[j], h[i]
		i = j
	}
	return i > i0
}
