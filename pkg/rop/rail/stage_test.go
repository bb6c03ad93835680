package rail

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuantechTP/TPL-extension/pkg/rop"
	"github.com/QuantechTP/TPL-extension/pkg/rop/core"
)

func Test_StageSplitsRails(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router, rec := newTestRouter(t)
	parse := NewStage(router, func(_ context.Context, s string) (int, error) {
		return strconv.Atoi(s)
	}, WithName("parse"), WithWorkers(2))

	collected := core.NewCollector[rop.Flow[int]](core.DefaultOptions())
	parse.Link(collected)

	for _, s := range []string{"1", "x", "2", "y"} {
		require.True(t, parse.Post(s))
	}
	parse.Complete()

	require.NoError(t, router.Completion().Wait(ctx))
	require.NoError(t, collected.Completion().Wait(ctx))

	var values []int
	for _, f := range collected.Items() {
		require.True(t, f.IsSuccess(), "only successes cross a stage link")
		values = append(values, f.Result())
	}
	assert.ElementsMatch(t, []int{1, 2}, values)
	assert.Len(t, rec.Failures(), 2)
	assert.Empty(t, rec.Successes())
}

// Flow(15) goes to the fork target, Flow(5) through the pass-through into
// the success sink; nothing reaches the failure sink.
func Test_ForkPartitionsSuccesses(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router, rec := newTestRouter(t)
	stage := NewStage(router, func(_ context.Context, x int) (int, error) {
		return x, nil
	})

	big := core.NewCollector[rop.Flow[int]](core.DefaultOptions())
	handle := stage.Fork(big, func(x int) bool { return x > 10 })
	defer handle.Dispose()

	require.True(t, stage.Post(15))
	require.True(t, stage.Post(5))
	stage.Complete()

	require.NoError(t, big.Completion().Wait(ctx))
	require.NoError(t, router.Completion().Wait(ctx))

	require.Len(t, big.Items(), 1)
	assert.Equal(t, 15, big.Items()[0].Result())
	assert.Equal(t, []any{5}, rec.Successes())
	assert.Empty(t, rec.Failures())
}

func Test_ForkRoutesFailures(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router, rec := newTestRouter(t)
	var selected atomic.Int32
	stage := NewStage(router, func(_ context.Context, x int) (int, error) {
		if x < 0 {
			return 0, errors.New("negative")
		}
		return x, nil
	})

	even := core.NewCollector[rop.Flow[int]](core.DefaultOptions())
	stage.Fork(even, func(x int) bool {
		selected.Add(1)
		return x%2 == 0
	})

	inputs := []int{1, 2, 3, -4, 5, 6, -7}
	for _, x := range inputs {
		require.NoError(t, stage.Send(ctx, x))
	}
	stage.Complete()

	require.NoError(t, router.Completion().Wait(ctx))
	require.NoError(t, even.Completion().Wait(ctx))

	assert.Len(t, even.Items(), 2)
	assert.ElementsMatch(t, []any{1, 3, 5}, rec.Successes())
	assert.Len(t, rec.Failures(), 2)
	assert.Equal(t, int32(5), selected.Load(), "selector runs once per success")
}

// Three chained stages where the second always fails: every input is logged
// exactly once and nothing reaches the success sink.
func Test_PipelineWithFailingStage(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	router, rec := newTestRouter(t)
	var thirdCalls atomic.Int32

	first := NewStage(router, func(_ context.Context, x int) (int, error) {
		return x + 1, nil
	}, WithName("first"), WithWorkers(4))
	second := NewStage(router, func(_ context.Context, x int) (string, error) {
		return "", errors.New("second stage is broken")
	}, WithName("second"), WithWorkers(4), WithCapacity(2))
	third := NewStage(router, func(_ context.Context, s string) (string, error) {
		thirdCalls.Add(1)
		return s, nil
	}, WithName("third"))

	first.Link(second)
	second.Link(third)
	third.Terminate(core.Propagate)

	const n = 50
	inputs := make([]rop.Flow[int], n)
	for i := range inputs {
		inputs[i] = rop.Success(i)
	}
	core.FromValues(inputs...).LinkTo(first, core.Propagate)

	require.NoError(t, router.Completion().Wait(ctx))

	failures := rec.Failures()
	require.Len(t, failures, n)
	seen := map[string]int{}
	for _, f := range failures {
		seen[f.Error()]++
	}
	assert.Equal(t, map[string]int{"second stage is broken": n}, seen)
	assert.Empty(t, rec.Successes())
	assert.Zero(t, thirdCalls.Load())

	for _, s := range []interface{ Completion() *core.Completion }{first, second, third} {
		assert.True(t, s.Completion().IsDone())
	}
}

func Test_OrderedStage(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router, _ := newTestRouter(t)
	const n = 30
	stage := NewStage(router, func(_ context.Context, x int) (int, error) {
		time.Sleep(time.Duration(n-x) * 100 * time.Microsecond)
		return x, nil
	}, WithWorkers(6), WithOrderedOutput())

	out := core.NewCollector[rop.Flow[int]](core.DefaultOptions())
	stage.Link(out)

	for i := 0; i < n; i++ {
		require.True(t, stage.Post(i))
	}
	stage.Complete()
	require.NoError(t, out.Completion().Wait(ctx))

	require.Len(t, out.Items(), n)
	for i, f := range out.Items() {
		assert.Equal(t, i, f.Result())
	}
}

func Test_ExceptionHandlerShapesFailure(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router, rec := newTestRouter(t)
	stage := NewStage(router, func(_ context.Context, x int) (int, error) {
		return 0, errors.New("rejected")
	}, WithExceptionHandler(func(err error) rop.FailureRecord {
		return rop.NewFailure(err, "check")
	}))
	stage.Terminate(core.Propagate)

	in := rop.Success(1)
	require.True(t, stage.PostFlow(in))
	stage.Complete()

	require.NoError(t, router.Completion().Wait(ctx))
	require.Len(t, rec.Failures(), 1)
	assert.Equal(t, "check: rejected", rec.Failures()[0].Error())
}

func Test_RouterWaitsForEveryProducer(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router, rec := newTestRouter(t)
	gate := make(chan struct{})

	fast := NewStage(router, func(_ context.Context, x int) (int, error) {
		return 0, errors.New("fast failure")
	}, WithName("fast"))
	slow := NewStage(router, func(_ context.Context, x int) (int, error) {
		<-gate
		return x, nil
	}, WithName("slow"))

	fast.Terminate(core.Propagate)
	slow.Terminate(core.Propagate)

	fast.Post(1)
	slow.Post(2)
	fast.Complete()
	slow.Complete()

	require.NoError(t, fast.Completion().Wait(ctx))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, router.Completion().IsDone(), "slow producer still running")

	close(gate)
	require.NoError(t, router.Completion().Wait(ctx))
	assert.Len(t, rec.Failures(), 1)
	assert.Equal(t, []any{2}, rec.Successes())
}

func Test_StageFaultReachesRouter(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router, _ := newTestRouter(t)
	stage := NewStage(router, func(_ context.Context, x int) (int, error) {
		return x, nil
	})
	stage.Terminate(core.Propagate)

	boom := errors.New("boom")
	stage.Fault(boom)

	assert.ErrorIs(t, stage.Completion().Wait(ctx), boom)
	assert.ErrorIs(t, router.Completion().Wait(ctx), boom)
}

func Test_StageContextOptions(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router, _ := newTestRouter(t)
	stageCtx, stop := context.WithCancel(core.WithWorkerOptions(context.Background(), 3))

	var loggerSeen atomic.Bool
	stage := NewStage(router, func(ctx context.Context, x int) (int, error) {
		loggerSeen.Store(Logger(ctx) != slog.Default())
		<-ctx.Done()
		return x, nil
	}, WithContext(stageCtx), WithName("ctx"))
	stage.Terminate(core.Propagate)

	require.True(t, stage.Post(1))
	require.Eventually(t, loggerSeen.Load, time.Second, 5*time.Millisecond)
	stop()

	assert.ErrorIs(t, stage.Completion().Wait(ctx), context.Canceled)
	assert.Equal(t, "ctx", stage.Name())
	assert.NotZero(t, stage.ID())
	assert.Same(t, router, stage.Router())
}
