package solo

import (
	"context"
	"errors"

	"github.com/QuantechTP/TPL-extension/pkg/rop"
)

// OnError maps an error raised by a step into the failure recorded on the flow.
type OnError func(err error) rop.FailureRecord

// Record is the default OnError: the error itself, without message.
func Record(err error) rop.FailureRecord {
	return rop.NewFailure(err, "")
}

func Succeed[T any](input T) rop.Flow[T] {
	return rop.Success(input)
}

func Fail[T any](err error) rop.Flow[T] {
	return rop.Fail[T](err)
}

func Validate[T any](ctx context.Context, input rop.Flow[T],
	validate func(ctx context.Context, in T) (valid bool, errMsg string)) rop.Flow[T] {

	if input.IsFailure() {
		return input
	}

	if valid, errMsg := validate(ctx, input.Result()); !valid {
		return input.Fail(rop.NewFailure(errors.New(errMsg), "validation failed"))
	}
	return input
}

// Switch runs a rail-aware step on successful input; a failed input is
// carried over unchanged and the step is not invoked.
func Switch[In any, Out any](ctx context.Context,
	input rop.Flow[In],
	onSuccess func(ctx context.Context, r In) rop.Flow[Out]) rop.Flow[Out] {

	if input.IsFailure() {
		return rop.FailFrom[In, Out](input)
	}
	return onSuccess(ctx, input.Result())
}

func Map[In any, Out any](ctx context.Context,
	input rop.Flow[In],
	onSuccess func(ctx context.Context, r In) Out) rop.Flow[Out] {

	if input.IsFailure() {
		return rop.FailFrom[In, Out](input)
	}
	return rop.Success(onSuccess(ctx, input.Result()))
}

// Try calls a fallible step on successful input and moves a returned error
// onto the failure rail.
func Try[In any, Out any](ctx context.Context, input rop.Flow[In],
	onTryExecute func(ctx context.Context, r In) (Out, error)) rop.Flow[Out] {
	return TryWith(ctx, input, onTryExecute, Record)
}

// TryWith is Try with a custom error to failure mapping.
func TryWith[In any, Out any](ctx context.Context, input rop.Flow[In],
	onTryExecute func(ctx context.Context, r In) (Out, error),
	onError OnError) rop.Flow[Out] {

	if input.IsFailure() {
		return rop.FailFrom[In, Out](input)
	}

	out, err := onTryExecute(ctx, input.Result())
	if err != nil {
		if onError == nil {
			onError = Record
		}
		return rop.FailFrom[In, Out](input.Fail(onError(err)))
	}
	return rop.Success(out)
}

func Tee[T any](ctx context.Context,
	input rop.Flow[T],
	onSuccess func(ctx context.Context, r T)) rop.Flow[T] {

	if input.IsSuccess() {
		onSuccess(ctx, input.Result())
	}
	return input
}

// Finally collapses a flow to a plain value.
func Finally[In, Out any](ctx context.Context, input rop.Flow[In],
	onSuccess func(ctx context.Context, r In) Out,
	onFailure func(ctx context.Context, failure rop.FailureRecord) Out) Out {

	if input.IsSuccess() {
		return onSuccess(ctx, input.Result())
	}
	return onFailure(ctx, input.Failure())
}
