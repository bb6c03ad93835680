package rail

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/QuantechTP/TPL-extension/pkg/rop"
	"github.com/QuantechTP/TPL-extension/pkg/rop/core"
)

// DefaultTimeout bounds the lifetime of the router's sinks.
const DefaultTimeout = time.Minute

// NoTimeout disables the router deadline.
const NoTimeout time.Duration = -1

// RouterOptions configure a Router and both of its sinks.
type RouterOptions struct {
	// Timeout is the deadline after which the sinks abandon pending work
	// and fault with context.DeadlineExceeded. Zero means DefaultTimeout.
	Timeout time.Duration
	// Workers per sink; zero means runtime.GOMAXPROCS(0).
	Workers int
	// Capacity per sink; zero means unbounded.
	Capacity int
	// Context is the parent of the sinks' deadline context.
	Context context.Context
	Logger  *slog.Logger
}

func (o RouterOptions) normalize() RouterOptions {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Capacity == 0 {
		o.Capacity = core.Unbounded
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Router is the single merge point of a pipeline: successful flows go to
// the success sink, failed ones to the failure sink. Every Rail Stage of a
// pipeline links its failure rail here.
type Router struct {
	success    *SuccessSink
	failure    *FailureSink
	completion *core.Completion
	logger     *slog.Logger
	cancel     context.CancelFunc

	mu          sync.Mutex
	producers   int
	producerErr error
}

// NewRouter builds a router whose sinks hand failures to failures and
// success payloads to onSuccess. A nil failures logs through opts.Logger.
func NewRouter(failures FailureLogger, onSuccess SuccessHandler, opts RouterOptions) *Router {
	opts = opts.normalize()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(opts.Context, opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(opts.Context)
	}

	sinkOptions := func(name string) core.BlockOptions {
		return core.BlockOptions{
			MaxWorkers:      opts.Workers,
			BoundedCapacity: opts.Capacity,
			Context:         ctx,
			Name:            name,
			Logger:          opts.Logger,
		}
	}
	if failures == nil {
		failures = NewSlogLogger(opts.Logger)
	}

	r := &Router{
		success: NewSuccessSink(onSuccess, sinkOptions("success")),
		failure: NewFailureSink(failures, sinkOptions("failure")),
		logger:  opts.Logger,
		cancel:  cancel,
	}
	r.completion = core.WhenAll(r.success.Completion(), r.failure.Completion())

	go func() {
		<-r.completion.Done()
		cancel()
		if err := r.completion.Err(); err != nil {
			r.logger.Warn("router faulted", "error", err)
		}
	}()

	return r
}

// Offer dispatches value to the sink of its rail.
func (r *Router) Offer(header core.MessageHeader, value rop.Rail, supplier core.Supplier[rop.Rail], consumeToAccept bool) core.MessageStatus {
	if rop.IsNil(value) {
		return core.Declined
	}
	if value.IsSuccess() {
		return r.success.Offer(header, value, supplier, consumeToAccept)
	}
	return r.failure.Offer(header, value, supplier, consumeToAccept)
}

// Complete completes both sinks. They finish the flows already accepted.
func (r *Router) Complete() {
	r.success.Complete()
	r.failure.Complete()
}

func (r *Router) Fault(err error) {
	r.success.Fault(err)
	r.failure.Fault(err)
}

// Completion resolves once both sinks finished; it is faulted if either faulted.
func (r *Router) Completion() *core.Completion {
	return r.completion
}

func (r *Router) Success() *SuccessSink {
	return r.success
}

func (r *Router) Failure() *FailureSink {
	return r.failure
}

// Stop cancels the sinks' context without waiting for the deadline.
func (r *Router) Stop() {
	r.cancel()
}

// track registers a producer whose completion drives the router: the
// router completes once every tracked producer completed, and faults as
// soon as one of them faults.
func (r *Router) track(c *core.Completion) {
	r.mu.Lock()
	r.producers++
	r.mu.Unlock()

	go func() {
		<-c.Done()
		err := c.Err()

		r.mu.Lock()
		r.producers--
		if err != nil && r.producerErr == nil {
			r.producerErr = err
		} else {
			err = nil
		}
		last := r.producers == 0
		firstErr := r.producerErr
		r.mu.Unlock()

		switch {
		case err != nil:
			r.Fault(err)
		case last && firstErr == nil:
			r.Complete()
		}
	}()
}

// Into returns the router as a target for flows of T, so that any source
// of flows can be linked into it.
func Into[T any](r *Router) core.Target[rop.Flow[T]] {
	return routerTarget[T]{router: r}
}

type routerTarget[T any] struct {
	router *Router
}

func (t routerTarget[T]) Offer(header core.MessageHeader, value rop.Flow[T], supplier core.Supplier[rop.Flow[T]], consumeToAccept bool) core.MessageStatus {
	var rails core.Supplier[rop.Rail]
	if supplier != nil {
		rails = railSupplier[T]{supplier: supplier, target: t}
	}
	return t.router.Offer(header, value, rails, consumeToAccept)
}

func (t routerTarget[T]) Complete() {
	t.router.Complete()
}

func (t routerTarget[T]) Fault(err error) {
	t.router.Fault(err)
}

func (t routerTarget[T]) Completion() *core.Completion {
	return t.router.Completion()
}

// railSupplier lets a sink claim a Flow[T] from its typed source. Claims
// are made on behalf of the routerTarget the source offered to.
type railSupplier[T any] struct {
	supplier core.Supplier[rop.Flow[T]]
	target   routerTarget[T]
}

func (s railSupplier[T]) Reserve(header core.MessageHeader, _ core.Target[rop.Rail]) bool {
	return s.supplier.Reserve(header, s.target)
}

func (s railSupplier[T]) Consume(header core.MessageHeader, _ core.Target[rop.Rail]) (rop.Rail, bool) {
	v, ok := s.supplier.Consume(header, s.target)
	if !ok {
		return nil, false
	}
	return v, true
}

func (s railSupplier[T]) Release(header core.MessageHeader, _ core.Target[rop.Rail]) {
	s.supplier.Release(header, s.target)
}
