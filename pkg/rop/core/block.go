package core

// Block is the lifecycle part shared by every block.
type Block interface {
	// Complete signals that no more input will be accepted. Messages
	// already accepted are still processed.
	Complete()
	// Fault forces the block into a faulted terminal state, discarding
	// buffered messages.
	Fault(err error)
	// Completion resolves once the block drained or faulted.
	Completion() *Completion
}

// Supplier is the capability a source hands to targets together with an
// offer, so that they can claim the message now or later.
type Supplier[T any] interface {
	// Reserve gives target exclusive rights to a previously offered message.
	Reserve(header MessageHeader, target Target[T]) bool
	// Consume transfers the message to target. Only one caller ever succeeds.
	Consume(header MessageHeader, target Target[T]) (T, bool)
	// Release gives up a reservation without consuming the message.
	Release(header MessageHeader, target Target[T])
}

// Target is the consumer role of a block.
type Target[T any] interface {
	Block
	// Offer passes a message to the target. supplier may be nil for direct
	// posts, in which case consumeToAccept must be false.
	Offer(header MessageHeader, value T, supplier Supplier[T], consumeToAccept bool) MessageStatus
}

// Source is the producer role of a block.
type Source[T any] interface {
	Block
	Supplier[T]
	// LinkTo subscribes target to the output of the source.
	LinkTo(target Target[T], opts LinkOptions) Disposable
}

// Propagator consumes In and produces Out.
type Propagator[In, Out any] interface {
	Target[In]
	Source[Out]
}

// LinkOptions configure a link between a source and a target.
type LinkOptions struct {
	// PropagateCompletion completes (or faults) the target once the source finished.
	PropagateCompletion bool
	// MaxMessages unlinks after that many deliveries; 0 means unlimited.
	MaxMessages int
}

// Propagate is the usual option set for pipelines.
var Propagate = LinkOptions{PropagateCompletion: true}
