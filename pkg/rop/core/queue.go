package core

const minQueueCap = 16

// ring is a growable FIFO ring buffer. It is not safe for concurrent use;
// owners guard it with their own mutex.
type ring[T any] struct {
	data         []T
	offset, size int
}

func (r *ring[T]) Len() int {
	return r.size
}

// Push writes to the end.
func (r *ring[T]) Push(v T) {
	if r.size == len(r.data) {
		r.grow()
	}
	r.data[(r.offset+r.size)%len(r.data)] = v
	r.size++
}

// Peek returns the first element without removing it.
func (r *ring[T]) Peek() (T, bool) {
	if r.size == 0 {
		var zero T
		return zero, false
	}
	return r.data[r.offset], true
}

// Pop removes and returns the first element.
func (r *ring[T]) Pop() (T, bool) {
	v, ok := r.Peek()
	if !ok {
		return v, false
	}

	var zero T
	r.data[r.offset] = zero // let GC do its work
	r.offset = (r.offset + 1) % len(r.data)
	r.size--
	return v, true
}

// Replace overwrites the first element matching with v. It reports whether
// one was found.
func (r *ring[T]) Replace(match func(T) bool, v T) bool {
	for i := 0; i < r.size; i++ {
		j := (r.offset + i) % len(r.data)
		if match(r.data[j]) {
			r.data[j] = v
			return true
		}
	}
	return false
}

// Drain empties the buffer and returns its elements in order.
func (r *ring[T]) Drain() []T {
	out := make([]T, 0, r.size)
	for r.size > 0 {
		v, _ := r.Pop()
		out = append(out, v)
	}
	r.data = nil
	r.offset = 0
	return out
}

func (r *ring[T]) grow() {
	newCap := 2 * len(r.data)
	if newCap < minQueueCap {
		newCap = minQueueCap
	}

	data := make([]T, newCap)
	end := r.offset + r.size
	if end <= len(r.data) {
		copy(data, r.data[r.offset:end])
	} else {
		n := copy(data, r.data[r.offset:])
		copy(data[n:], r.data[:r.size-n])
	}

	r.data = data
	r.offset = 0
}
