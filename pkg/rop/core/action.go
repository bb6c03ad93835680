package core

import "context"

// ActionBlock is a terminal block: it runs action for every accepted message
// with up to MaxWorkers goroutines. An error or panic from action faults
// the block.
type ActionBlock[T any] struct {
	target     *targetCore[T]
	completion *Completion
}

func NewActionBlock[T any](action func(ctx context.Context, item T) error, opts BlockOptions) *ActionBlock[T] {
	b := &ActionBlock[T]{completion: NewCompletion()}
	process := func(ctx context.Context, _ uint64, item T) error {
		return action(ctx, item)
	}
	b.target = newTargetCore[T](b, opts, process, func(err error) {
		b.completion.Resolve(err)
	})
	return b
}

func (b *ActionBlock[T]) Offer(header MessageHeader, value T, supplier Supplier[T], consumeToAccept bool) MessageStatus {
	return b.target.offer(header, value, supplier, consumeToAccept)
}

// Post hands value to the block without waiting. It returns false if the
// block is full or no longer accepts input.
func (b *ActionBlock[T]) Post(value T) bool {
	return b.target.post(value) == Accepted
}

// Send hands value to the block, waiting for capacity until ctx is done.
func (b *ActionBlock[T]) Send(ctx context.Context, value T) error {
	return b.target.send(ctx, value)
}

func (b *ActionBlock[T]) Complete() {
	b.target.complete()
}

func (b *ActionBlock[T]) Fault(err error) {
	b.target.fault(err)
}

func (b *ActionBlock[T]) Completion() *Completion {
	return b.completion
}

// InputCount returns the number of buffered messages waiting for a worker.
func (b *ActionBlock[T]) InputCount() int {
	return b.target.count()
}
