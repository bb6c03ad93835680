package rail

import (
	"context"

	"github.com/QuantechTP/TPL-extension/pkg/rop"
	"github.com/QuantechTP/TPL-extension/pkg/rop/core"
	"github.com/QuantechTP/TPL-extension/pkg/rop/solo"
)

// Capture lifts a fallible transform onto the rails. The returned function
// never fails: failed inputs pass through, and an error or panic of fn is
// turned into a failed flow by onError (solo.Record when nil).
func Capture[In, Out any](fn func(ctx context.Context, in In) (Out, error),
	onError solo.OnError) func(ctx context.Context, in rop.Flow[In]) (rop.Flow[Out], error) {

	if onError == nil {
		onError = solo.Record
	}
	safe := func(ctx context.Context, in In) (out Out, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &core.RecoveredPanic{Value: r}
			}
		}()
		return fn(ctx, in)
	}

	return func(ctx context.Context, in rop.Flow[In]) (rop.Flow[Out], error) {
		return solo.TryWith(ctx, in, safe, onError), nil
	}
}

// CaptureFlow is Capture for a rail-aware transform. fn sees failed inputs
// too; a panic fails the input flow.
func CaptureFlow[In, Out any](fn func(ctx context.Context, in rop.Flow[In]) rop.Flow[Out],
	onError solo.OnError) func(ctx context.Context, in rop.Flow[In]) (rop.Flow[Out], error) {

	if onError == nil {
		onError = solo.Record
	}

	return func(ctx context.Context, in rop.Flow[In]) (out rop.Flow[Out], err error) {
		defer func() {
			if r := recover(); r != nil {
				out = rop.FailFrom[In, Out](in.Fail(onError(&core.RecoveredPanic{Value: r})))
			}
		}()
		return fn(ctx, in), nil
	}
}

// NewTransform is the Transform Stage: a transform block over flows that
// emits exactly one flow per input and is never faulted by fn.
func NewTransform[In, Out any](fn func(ctx context.Context, in In) (Out, error),
	onError solo.OnError, opts core.BlockOptions) *core.TransformBlock[rop.Flow[In], rop.Flow[Out]] {
	return core.NewTransformBlock(Capture(fn, onError), opts)
}

// NewFlowTransform is NewTransform for a rail-aware transform.
func NewFlowTransform[In, Out any](fn func(ctx context.Context, in rop.Flow[In]) rop.Flow[Out],
	onError solo.OnError, opts core.BlockOptions) *core.TransformBlock[rop.Flow[In], rop.Flow[Out]] {
	return core.NewTransformBlock(CaptureFlow(fn, onError), opts)
}
