package feed

// ring keeps the newest size items, newest first.
type ring[T any] struct {
	data []T
	head int
	n    int
}

func newRing[T any](size int) *ring[T] {
	return &ring[T]{data: make([]T, size)}
}

func (r *ring[T]) pushFront(v T) {
	r.head--
	if r.head < 0 {
		r.head = len(r.data) - 1
	}
	r.data[r.head] = v
	if r.n < len(r.data) {
		r.n++
	}
}

func (r *ring[T]) items() []T {
	out := make([]T, 0, r.n)
	for i := 0; i < r.n; i++ {
		out = append(out, r.data[(r.head+i)%len(r.data)])
	}
	return out
}
