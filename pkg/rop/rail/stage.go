package rail

import (
	"context"

	"github.com/google/uuid"

	"github.com/QuantechTP/TPL-extension/pkg/rop"
	"github.com/QuantechTP/TPL-extension/pkg/rop/core"
	"github.com/QuantechTP/TPL-extension/pkg/rop/solo"
)

type stageConfig struct {
	name    string
	block   core.BlockOptions
	onError solo.OnError
}

// StageOption configures a Stage.
type StageOption func(*stageConfig)

func WithName(name string) StageOption {
	return func(c *stageConfig) {
		c.name = name
	}
}

func WithWorkers(n int) StageOption {
	return func(c *stageConfig) {
		c.block.MaxWorkers = n
	}
}

func WithCapacity(n int) StageOption {
	return func(c *stageConfig) {
		c.block.BoundedCapacity = n
	}
}

// WithOrderedOutput keeps the output of a multi-worker stage in input order.
func WithOrderedOutput() StageOption {
	return func(c *stageConfig) {
		c.block.EnsureOrdered = true
	}
}

// WithBlockOptions replaces the block options of the stage. Name and
// Logger are still set by the stage when empty.
func WithBlockOptions(opts core.BlockOptions) StageOption {
	return func(c *stageConfig) {
		c.block = opts
	}
}

// WithContext takes worker and capacity limits stored in ctx with
// core.WithWorkerOptions and core.WithCapacityOptions, and cancels the
// stage when ctx is done.
func WithContext(ctx context.Context) StageOption {
	return func(c *stageConfig) {
		c.block.MaxWorkers = core.GetWorkerMaxCount(ctx, c.block.MaxWorkers)
		c.block.BoundedCapacity = core.GetBoundedCapacity(ctx, c.block.BoundedCapacity)
		c.block.Context = ctx
	}
}

// WithExceptionHandler sets how errors and panics of the transform become
// failure records.
func WithExceptionHandler(onError solo.OnError) StageOption {
	return func(c *stageConfig) {
		c.onError = onError
	}
}

// Stage is a Rail Stage: a Transform Stage whose failure rail is wired to
// the router of the pipeline on every link.
type Stage[In, Out any] struct {
	id     uuid.UUID
	name   string
	block  *core.TransformBlock[rop.Flow[In], rop.Flow[Out]]
	router *Router
}

// NewStage creates a Rail Stage running fn on every successful flow.
func NewStage[In, Out any](router *Router, fn func(ctx context.Context, in In) (Out, error), opts ...StageOption) *Stage[In, Out] {
	s, cfg := newStage[In, Out](router, opts)
	s.block = NewTransform(fn, cfg.onError, cfg.block)
	return s
}

// NewFlowStage creates a Rail Stage from a rail-aware transform.
func NewFlowStage[In, Out any](router *Router, fn func(ctx context.Context, in rop.Flow[In]) rop.Flow[Out], opts ...StageOption) *Stage[In, Out] {
	s, cfg := newStage[In, Out](router, opts)
	s.block = NewFlowTransform(fn, cfg.onError, cfg.block)
	return s
}

func newStage[In, Out any](router *Router, opts []StageOption) (*Stage[In, Out], stageConfig) {
	if router == nil {
		panic("rail: stage needs a router")
	}

	cfg := stageConfig{block: core.DefaultOptions()}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Stage[In, Out]{
		id:     uuid.New(),
		name:   cfg.name,
		router: router,
	}
	if s.name == "" {
		s.name = "stage-" + s.id.String()[:8]
	}

	logger := cfg.block.Logger
	if logger == nil {
		logger = router.logger
	}
	logger = logger.With("stage", s.name)
	ctx := cfg.block.Context
	if ctx == nil {
		ctx = context.Background()
	}
	cfg.block.Context = WithLogger(ctx, logger)
	cfg.block.Logger = logger

	return s, cfg
}

func passThrough[T any](router *Router, name string) *Stage[T, T] {
	return NewFlowStage(router, func(_ context.Context, in rop.Flow[T]) rop.Flow[T] {
		return in
	}, WithName(name))
}

func (s *Stage[In, Out]) ID() uuid.UUID {
	return s.id
}

func (s *Stage[In, Out]) Name() string {
	return s.name
}

func (s *Stage[In, Out]) Router() *Router {
	return s.router
}

func (s *Stage[In, Out]) Offer(header core.MessageHeader, value rop.Flow[In], supplier core.Supplier[rop.Flow[In]], consumeToAccept bool) core.MessageStatus {
	return s.block.Offer(header, value, supplier, consumeToAccept)
}

func (s *Stage[In, Out]) Reserve(header core.MessageHeader, target core.Target[rop.Flow[Out]]) bool {
	return s.block.Reserve(header, target)
}

func (s *Stage[In, Out]) Consume(header core.MessageHeader, target core.Target[rop.Flow[Out]]) (rop.Flow[Out], bool) {
	return s.block.Consume(header, target)
}

func (s *Stage[In, Out]) Release(header core.MessageHeader, target core.Target[rop.Flow[Out]]) {
	s.block.Release(header, target)
}

// Link links successes to target and failures to the router, propagating completion.
func (s *Stage[In, Out]) Link(target core.Target[rop.Flow[Out]]) core.Disposable {
	return s.LinkTo(target, core.Propagate)
}

// LinkTo sends successful flows to target and failed ones to the router.
// The two links have complementary predicates, so every flow takes exactly
// one of them.
func (s *Stage[In, Out]) LinkTo(target core.Target[rop.Flow[Out]], opts core.LinkOptions) core.Disposable {
	return core.NewComposite(
		core.LinkWhen[rop.Flow[Out]](s.block, target, opts, rop.Flow[Out].IsSuccess),
		s.linkFailures(opts),
	)
}

// Fork splits successful flows by selector: matching ones go to target,
// the others through an identity stage into the router. Failures go to the
// router.
func (s *Stage[In, Out]) Fork(target core.Target[rop.Flow[Out]], selector func(Out) bool) core.Disposable {
	return s.ForkTo(target, core.Propagate, selector)
}

func (s *Stage[In, Out]) ForkTo(target core.Target[rop.Flow[Out]], opts core.LinkOptions, selector func(Out) bool) core.Disposable {
	pass := passThrough[Out](s.router, s.name+"/pass")

	// the selector runs once per flow, inside the switch
	dispatch := core.NewSwitch[rop.Flow[Out]](func(f rop.Flow[Out]) bool {
		return selector(f.Result())
	}, target, pass)

	return core.NewComposite(
		core.LinkWhen[rop.Flow[Out]](s.block, dispatch, opts, rop.Flow[Out].IsSuccess),
		s.linkFailures(opts),
		pass.Terminate(opts),
	)
}

// Terminate links both rails into the router. It ends a pipeline.
func (s *Stage[In, Out]) Terminate(opts core.LinkOptions) core.Disposable {
	link := s.block.LinkTo(Into[Out](s.router), core.LinkOptions{MaxMessages: opts.MaxMessages})
	if opts.PropagateCompletion {
		s.router.track(s.Completion())
	}
	return link
}

// linkFailures never propagates completion itself: the router may have
// other producers, so it is only told through track.
func (s *Stage[In, Out]) linkFailures(opts core.LinkOptions) core.Disposable {
	link := core.LinkWhen[rop.Flow[Out]](s.block, Into[Out](s.router),
		core.LinkOptions{MaxMessages: opts.MaxMessages}, rop.Flow[Out].IsFailure)
	if opts.PropagateCompletion {
		s.router.track(s.Completion())
	}
	return link
}

func (s *Stage[In, Out]) Complete() {
	s.block.Complete()
}

func (s *Stage[In, Out]) Fault(err error) {
	s.block.Fault(err)
}

func (s *Stage[In, Out]) Completion() *core.Completion {
	return s.block.Completion()
}

// Post hands a successful flow of v to the stage without waiting.
func (s *Stage[In, Out]) Post(v In) bool {
	return s.block.Post(rop.Success(v))
}

func (s *Stage[In, Out]) PostFlow(flow rop.Flow[In]) bool {
	return s.block.Post(flow)
}

// Send hands a successful flow of v to the stage, waiting for capacity.
func (s *Stage[In, Out]) Send(ctx context.Context, v In) error {
	return s.block.Send(ctx, rop.Success(v))
}

func (s *Stage[In, Out]) SendFlow(ctx context.Context, flow rop.Flow[In]) error {
	return s.block.Send(ctx, flow)
}
