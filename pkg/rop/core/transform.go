package core

import (
	"context"
	"sync"
)

// TransformBlock is a propagator that maps each accepted In into one Out.
// An error or panic from transform faults the block; the rail package
// builds on it with a transform that never fails.
type TransformBlock[In, Out any] struct {
	target  *targetCore[In]
	source  *sourceCore[Out]
	reorder *reorder[Out] // nil unless EnsureOrdered
}

func NewTransformBlock[In, Out any](transform func(ctx context.Context, in In) (Out, error),
	opts BlockOptions) *TransformBlock[In, Out] {

	b := &TransformBlock[In, Out]{}
	b.source = newSourceCore[Out](b)
	if opts.EnsureOrdered {
		b.reorder = &reorder[Out]{held: map[uint64]Out{}}
	}
	b.target = newTargetCore[In](b, opts,
		func(ctx context.Context, seq uint64, in In) error {
			out, err := transform(ctx, in)
			if err != nil {
				return err
			}
			if b.reorder != nil {
				b.reorder.put(seq, out, b.source.push)
				return nil
			}
			b.source.push(out)
			return nil
		},
		b.source.complete)
	return b
}

// reorder holds outputs that finished ahead of earlier inputs and emits
// them once the gap before them is filled.
type reorder[T any] struct {
	mu   sync.Mutex
	next uint64
	held map[uint64]T
}

func (r *reorder[T]) put(seq uint64, v T, emit func(T) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.held[seq] = v
	for {
		out, ok := r.held[r.next]
		if !ok {
			return
		}
		delete(r.held, r.next)
		r.next++
		emit(out)
	}
}

func (b *TransformBlock[In, Out]) Offer(header MessageHeader, value In, supplier Supplier[In], consumeToAccept bool) MessageStatus {
	return b.target.offer(header, value, supplier, consumeToAccept)
}

func (b *TransformBlock[In, Out]) Post(value In) bool {
	return b.target.post(value) == Accepted
}

func (b *TransformBlock[In, Out]) Send(ctx context.Context, value In) error {
	return b.target.send(ctx, value)
}

func (b *TransformBlock[In, Out]) LinkTo(target Target[Out], opts LinkOptions) Disposable {
	return b.source.linkTo(target, opts)
}

func (b *TransformBlock[In, Out]) Reserve(header MessageHeader, target Target[Out]) bool {
	return b.source.reserve(header, target)
}

func (b *TransformBlock[In, Out]) Consume(header MessageHeader, target Target[Out]) (Out, bool) {
	return b.source.consume(header, target)
}

func (b *TransformBlock[In, Out]) Release(header MessageHeader, target Target[Out]) {
	b.source.release(header, target)
}

func (b *TransformBlock[In, Out]) Complete() {
	b.target.complete()
}

// Fault faults both halves: buffered input and undelivered output are dropped.
func (b *TransformBlock[In, Out]) Fault(err error) {
	if err == nil {
		err = ErrBlockFaulted
	}
	b.target.fault(err)
	b.source.complete(err)
}

// Completion resolves once input is drained and all output was delivered.
func (b *TransformBlock[In, Out]) Completion() *Completion {
	return b.source.completion
}

func (b *TransformBlock[In, Out]) InputCount() int {
	return b.target.count()
}

// OutputCount returns the number of produced messages not yet consumed.
func (b *TransformBlock[In, Out]) OutputCount() int {
	return b.source.count()
}
