package core

import (
	"context"
	"log/slog"
	"runtime"
)

// Unbounded disables the capacity limit of a block.
const Unbounded = -1

// unboundedWorkers caps MaxWorkers == Unbounded.
const unboundedWorkers = 1 << 16

type OptionKey string

const (
	WorkerOptionKey   OptionKey = "worker_options"
	CapacityOptionKey OptionKey = "capacity_options"
)

type MaxLimitOption struct {
	Value int
}

type WorkerOptions struct {
	MaxCount MaxLimitOption
}

type CapacityOptions struct {
	Bound MaxLimitOption
}

// BlockOptions configure a single block.
type BlockOptions struct {
	// MaxWorkers bounds the goroutines processing messages concurrently.
	// Values <= 0 mean one worker; Unbounded lifts the limit. With more
	// than one worker a TransformBlock emits in completion order, not input
	// order, unless EnsureOrdered is set.
	MaxWorkers int
	// EnsureOrdered makes a TransformBlock emit its outputs in input order.
	// Finished outputs wait for the slower ones queued before them.
	EnsureOrdered bool
	// BoundedCapacity bounds the messages buffered or in processing.
	// Values <= 0 (or Unbounded) disable the bound.
	BoundedCapacity int
	// Context cancels the block: once it is done the block faults with ctx.Err().
	Context context.Context
	// Name is used in log records.
	Name   string
	Logger *slog.Logger
}

// DefaultOptions returns a single worker, unbounded block.
func DefaultOptions() BlockOptions {
	return BlockOptions{
		MaxWorkers:      1,
		BoundedCapacity: Unbounded,
	}
}

// ParallelOptions returns an unbounded block with one worker per available CPU.
func ParallelOptions() BlockOptions {
	return BlockOptions{
		MaxWorkers:      runtime.GOMAXPROCS(0),
		BoundedCapacity: Unbounded,
	}
}

func (o BlockOptions) normalize() BlockOptions {
	switch {
	case o.MaxWorkers == Unbounded:
		o.MaxWorkers = unboundedWorkers
	case o.MaxWorkers <= 0:
		o.MaxWorkers = 1
	}
	if o.BoundedCapacity <= 0 {
		o.BoundedCapacity = Unbounded
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Name != "" {
		o.Logger = o.Logger.With("block", o.Name)
	}
	return o
}

func (o BlockOptions) bounded() bool {
	return o.BoundedCapacity != Unbounded
}

func WithWorkerOptions(ctx context.Context, maxWorkers int) context.Context {
	return context.WithValue(ctx, WorkerOptionKey, WorkerOptions{MaxLimitOption{Value: maxWorkers}})
}

func WithCapacityOptions(ctx context.Context, capacity int) context.Context {
	return context.WithValue(ctx, CapacityOptionKey, CapacityOptions{MaxLimitOption{Value: capacity}})
}

func GetWorkerMaxCount(ctx context.Context, defaultMaxWorkers int) int {
	options, ok := ctx.Value(WorkerOptionKey).(WorkerOptions)
	if ok {
		return options.MaxCount.Value
	}
	return defaultMaxWorkers
}

func GetBoundedCapacity(ctx context.Context, defaultCapacity int) int {
	options, ok := ctx.Value(CapacityOptionKey).(CapacityOptions)
	if ok {
		return options.Bound.Value
	}
	return defaultCapacity
}

// OptionsFromContext builds BlockOptions from the worker and capacity
// values stored in ctx, falling back to DefaultOptions. ctx also becomes
// the block's cancellation context.
func OptionsFromContext(ctx context.Context) BlockOptions {
	defaults := DefaultOptions()
	return BlockOptions{
		MaxWorkers:      GetWorkerMaxCount(ctx, defaults.MaxWorkers),
		BoundedCapacity: GetBoundedCapacity(ctx, defaults.BoundedCapacity),
		Context:         ctx,
	}
}
