package core

import (
	"context"
	"slices"
	"sync"
)

// Producer is a source-only block fed by Emit. It is the usual entry point
// of a pipeline: link it to the first stage with Propagate and Complete it
// once every value was emitted.
type Producer[T any] struct {
	source *sourceCore[T]
}

func NewProducer[T any]() *Producer[T] {
	p := &Producer[T]{}
	p.source = newSourceCore[T](p)
	return p
}

// FromValues returns a completed producer holding values in order.
func FromValues[T any](values ...T) *Producer[T] {
	p := NewProducer[T]()
	for _, v := range values {
		p.Emit(v)
	}
	p.Complete()
	return p
}

// Emit queues value for the linked targets. It returns false once the
// producer was completed or faulted.
func (p *Producer[T]) Emit(value T) bool {
	return p.source.push(value)
}

func (p *Producer[T]) LinkTo(target Target[T], opts LinkOptions) Disposable {
	return p.source.linkTo(target, opts)
}

func (p *Producer[T]) Reserve(header MessageHeader, target Target[T]) bool {
	return p.source.reserve(header, target)
}

func (p *Producer[T]) Consume(header MessageHeader, target Target[T]) (T, bool) {
	return p.source.consume(header, target)
}

func (p *Producer[T]) Release(header MessageHeader, target Target[T]) {
	p.source.release(header, target)
}

// Complete stops accepting values; the producer completes once every queued
// value was consumed.
func (p *Producer[T]) Complete() {
	p.source.complete(nil)
}

func (p *Producer[T]) Fault(err error) {
	if err == nil {
		err = ErrBlockFaulted
	}
	p.source.complete(err)
}

func (p *Producer[T]) Completion() *Completion {
	return p.source.completion
}

// Pending returns the number of emitted values not yet consumed.
func (p *Producer[T]) Pending() int {
	return p.source.count()
}

// Collector is a terminal block that keeps every accepted value.
type Collector[T any] struct {
	*ActionBlock[T]

	mu    sync.Mutex
	items []T
}

func NewCollector[T any](opts BlockOptions) *Collector[T] {
	c := &Collector[T]{}
	c.ActionBlock = NewActionBlock[T](func(_ context.Context, item T) error {
		c.mu.Lock()
		c.items = append(c.items, item)
		c.mu.Unlock()
		return nil
	}, opts)
	return c
}

// Items returns a copy of the values collected so far, in arrival order.
func (c *Collector[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Gather links a collector to source, waits for the source to complete and
// returns everything it produced. The link is removed when Gather returns.
func Gather[T any](ctx context.Context, source Source[T]) ([]T, error) {
	collector := NewCollector[T](DefaultOptions())
	link := source.LinkTo(collector, Propagate)
	defer link.Dispose()

	if err := collector.Completion().Wait(ctx); err != nil {
		return collector.Items(), err
	}
	return collector.Items(), nil
}
