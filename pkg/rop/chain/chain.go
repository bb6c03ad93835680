package chain

import (
	"context"
	"errors"

	"github.com/QuantechTP/TPL-extension/pkg/rop"
	"github.com/QuantechTP/TPL-extension/pkg/rop/solo"
)

// Chain carries a flow through a sequence of synchronous steps.
type Chain[T any] struct {
	ctx  context.Context
	flow rop.Flow[T]
}

func Start[T any](ctx context.Context, flow rop.Flow[T]) *Chain[T] {
	return &Chain[T]{ctx: ctx, flow: flow}
}

// FromValue starts a chain on the success rail.
func FromValue[T any](ctx context.Context, value T) *Chain[T] {
	return Start(ctx, rop.Success(value))
}

func (c *Chain[T]) Flow() rop.Flow[T] {
	return c.flow
}

// Then chains a rail-aware step.
func Then[T, U any](c *Chain[T], onSuccess func(context.Context, T) rop.Flow[U]) *Chain[U] {
	return Start(c.ctx, solo.Switch(c.ctx, c.flow, onSuccess))
}

// ThenTry chains a fallible step; its error moves the flow onto the failure rail.
func ThenTry[T, U any](c *Chain[T], tryOnSuccess func(context.Context, T) (U, error)) *Chain[U] {
	return Start(c.ctx, solo.Try(c.ctx, c.flow, tryOnSuccess))
}

func Map[T, U any](c *Chain[T], onSuccess func(context.Context, T) U) *Chain[U] {
	return Start(c.ctx, solo.Map(c.ctx, c.flow, onSuccess))
}

// Validate fails the chain with errMsg when validate rejects the value.
func (c *Chain[T]) Validate(validate func(ctx context.Context, in T) (valid bool, errMsg string)) *Chain[T] {
	return Start(c.ctx, solo.Validate(c.ctx, c.flow, validate))
}

// Ensure performs a side effect on success without changing the flow.
func (c *Chain[T]) Ensure(onSuccess func(context.Context, T)) *Chain[T] {
	return Start(c.ctx, solo.Tee(c.ctx, c.flow, onSuccess))
}

func Finally[T, U any](c *Chain[T], onSuccess func(context.Context, T) U,
	onFailure func(context.Context, rop.FailureRecord) U) U {
	return solo.Finally(c.ctx, c.flow, onSuccess, onFailure)
}

// ValidateAll runs validators against input in order. With breakOnFirst the
// first failure is returned as is; otherwise every validator runs and their
// errors are joined into one failure. A done ctx returns input unchanged.
func ValidateAll[T any](ctx context.Context, input rop.Flow[T], breakOnFirst bool,
	validators ...func(ctx context.Context, in rop.Flow[T]) rop.Flow[T]) rop.Flow[T] {

	if input.IsFailure() || len(validators) == 0 {
		return input
	}

	var errs []error
	for _, validate := range validators {
		select {
		case <-ctx.Done():
			return input
		default:
		}

		res := validate(ctx, input)
		if res.IsSuccess() {
			continue
		}
		if breakOnFirst {
			return input.Fail(res.Failure())
		}
		errs = append(errs, res.Err())
	}

	if len(errs) == 0 {
		return input
	}
	return input.Fail(rop.NewFailure(errors.Join(errs...), "validation failed"))
}
