package rail

import (
	"context"
	"errors"
	"fmt"

	"github.com/QuantechTP/TPL-extension/pkg/rop"
	"github.com/QuantechTP/TPL-extension/pkg/rop/core"
)

// ErrPayloadType is returned by a Payload handler given a payload of another type.
var ErrPayloadType = errors.New("rail: unexpected payload type")

// SuccessHandler receives the payload of every successful flow reaching
// the router. A returned error (or a panic) faults the success sink.
type SuccessHandler func(ctx context.Context, payload any) error

// Payload adapts a typed callback into a SuccessHandler.
func Payload[T any](fn func(ctx context.Context, payload T) error) SuccessHandler {
	return func(ctx context.Context, payload any) error {
		v, ok := payload.(T)
		if !ok {
			return fmt.Errorf("%w: %T", ErrPayloadType, payload)
		}
		return fn(ctx, v)
	}
}

// SuccessSink is the terminal block of the success rail.
type SuccessSink struct {
	block *core.ActionBlock[rop.Rail]
}

func NewSuccessSink(handler SuccessHandler, opts core.BlockOptions) *SuccessSink {
	return &SuccessSink{
		block: core.NewActionBlock[rop.Rail](func(ctx context.Context, flow rop.Rail) error {
			if handler == nil || !flow.IsSuccess() {
				return nil
			}
			return handler(ctx, flow.Value())
		}, opts),
	}
}

func (s *SuccessSink) Offer(header core.MessageHeader, value rop.Rail, supplier core.Supplier[rop.Rail], consumeToAccept bool) core.MessageStatus {
	return s.block.Offer(header, value, supplier, consumeToAccept)
}

func (s *SuccessSink) Complete() {
	s.block.Complete()
}

func (s *SuccessSink) Fault(err error) {
	s.block.Fault(err)
}

func (s *SuccessSink) Completion() *core.Completion {
	return s.block.Completion()
}

// FailureSink is the terminal block of the failure rail: it hands every
// captured failure to the logging collaborator.
type FailureSink struct {
	block *core.ActionBlock[rop.Rail]
}

func NewFailureSink(logger FailureLogger, opts core.BlockOptions) *FailureSink {
	if logger == nil {
		logger = NewSlogLogger(opts.Logger)
	}
	return &FailureSink{
		block: core.NewActionBlock[rop.Rail](func(ctx context.Context, flow rop.Rail) error {
			if flow.IsFailure() {
				logQuietly(ctx, logger, flow.Failure())
			}
			return nil
		}, opts),
	}
}

func (s *FailureSink) Offer(header core.MessageHeader, value rop.Rail, supplier core.Supplier[rop.Rail], consumeToAccept bool) core.MessageStatus {
	return s.block.Offer(header, value, supplier, consumeToAccept)
}

func (s *FailureSink) Complete() {
	s.block.Complete()
}

func (s *FailureSink) Fault(err error) {
	s.block.Fault(err)
}

func (s *FailureSink) Completion() *core.Completion {
	return s.block.Completion()
}

// logQuietly is best effort: a panicking logger must not fault the sink.
func logQuietly(ctx context.Context, logger FailureLogger, failure rop.FailureRecord) {
	defer func() {
		_ = recover()
	}()
	logger.LogFailure(ctx, failure)
}
