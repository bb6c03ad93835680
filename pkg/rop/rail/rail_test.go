package rail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuantechTP/TPL-extension/pkg/rop"
	"github.com/QuantechTP/TPL-extension/pkg/rop/core"
)

// recorder collects what reaches the router's sinks.
type recorder struct {
	mu        sync.Mutex
	successes []any
	failures  []rop.FailureRecord
}

func (r *recorder) LogFailure(_ context.Context, failure rop.FailureRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, failure)
}

func (r *recorder) onSuccess(_ context.Context, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, payload)
	return nil
}

func (r *recorder) Successes() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.successes...)
}

func (r *recorder) Failures() []rop.FailureRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rop.FailureRecord(nil), r.failures...)
}

func newTestRouter(t *testing.T) (*Router, *recorder) {
	t.Helper()
	rec := &recorder{}
	router := NewRouter(rec, rec.onSuccess, RouterOptions{Timeout: 5 * time.Second, Workers: 2})
	t.Cleanup(router.Stop)
	return router, rec
}

func Test_TransformDoubles(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	double := NewTransform(func(_ context.Context, x int) (int, error) {
		return x * 2, nil
	}, nil, core.DefaultOptions())
	core.FromValues(rop.Success(5)).LinkTo(double, core.Propagate)

	out, err := core.Gather[rop.Flow[int]](ctx, double)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsSuccess())
	assert.Equal(t, 10, out[0].Result())
}

func Test_TransformCapturesErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errDivide := errors.New("division by zero")
	divide := NewTransform(func(_ context.Context, x int) (int, error) {
		if x == 0 {
			return 0, errDivide
		}
		return 100 / x, nil
	}, nil, core.DefaultOptions())

	in := rop.Success(0)
	core.FromValues(in, rop.Success(4)).LinkTo(divide, core.Propagate)

	out, err := core.Gather[rop.Flow[int]](ctx, divide)
	require.NoError(t, err, "a failing transform never faults the stage")
	require.Len(t, out, 2)

	assert.True(t, out[0].IsFailure())
	assert.ErrorIs(t, out[0].Err(), errDivide)
	assert.Equal(t, in.ID(), out[0].ID())
	assert.Equal(t, 25, out[1].Result())
}

func Test_TransformCapturesPanics(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	crash := NewTransform(func(_ context.Context, s string) (int, error) {
		panic("unexpected " + s)
	}, nil, core.DefaultOptions())
	flowCrash := NewFlowTransform(func(_ context.Context, in rop.Flow[int]) rop.Flow[int] {
		panic("rail aware")
	}, nil, core.DefaultOptions())

	core.FromValues(rop.Success("input")).LinkTo(crash, core.Propagate)
	crash.LinkTo(flowCrash, core.Propagate)

	out, err := core.Gather[rop.Flow[int]](ctx, flowCrash)
	require.NoError(t, err)
	require.Len(t, out, 1)

	var rp *core.RecoveredPanic
	require.ErrorAs(t, out[0].Err(), &rp)
	assert.Equal(t, "unexpected input", rp.Value, "the first failure is kept")
}

func Test_RailPurity(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	calls := 0
	stage := NewTransform(func(_ context.Context, x int) (string, error) {
		calls++
		return "never", nil
	}, nil, core.DefaultOptions())

	failed := rop.Fail[int](errors.New("upstream"))
	core.FromValues(failed).LinkTo(stage, core.Propagate)

	out, err := core.Gather[rop.Flow[string]](ctx, stage)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Zero(t, calls)
	assert.Equal(t, failed.Failure(), out[0].Failure())
	assert.Equal(t, failed.ID(), out[0].ID())
}

func Test_RouterDispatchesByRail(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router, rec := newTestRouter(t)

	p := core.FromValues(rop.Success(1), rop.Fail[int](errors.New("bad")), rop.Success(2))
	p.LinkTo(Into[int](router), core.Propagate)

	require.NoError(t, router.Completion().Wait(ctx))
	assert.ElementsMatch(t, []any{1, 2}, rec.Successes())
	require.Len(t, rec.Failures(), 1)
	assert.EqualError(t, rec.Failures()[0].Err(), "bad")
}

func Test_RouterCompletesAfterBothSinks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	gate := make(chan struct{})
	logging := make(chan struct{})
	router := NewRouter(FailureLoggerFunc(func(context.Context, rop.FailureRecord) {
		close(logging)
		<-gate
	}), nil, RouterOptions{Timeout: NoTimeout})

	core.FromValues(rop.Fail[int](errors.New("slow"))).LinkTo(Into[int](router), core.LinkOptions{})
	<-logging
	router.Complete()

	require.NoError(t, router.Success().Completion().Wait(ctx))
	assert.False(t, router.Completion().IsDone(), "failure sink still busy")

	close(gate)
	require.NoError(t, router.Completion().Wait(ctx))
}

func Test_RouterFaultsWhenSuccessHandlerFails(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router := NewRouter(nil, Payload(func(_ context.Context, s string) error {
		return nil
	}), RouterOptions{Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})

	core.FromValues(rop.Success(42)).LinkTo(Into[int](router), core.LinkOptions{})

	assert.ErrorIs(t, router.Success().Completion().Wait(ctx), ErrPayloadType)
	assert.False(t, router.Completion().IsDone(), "the failure sink is still open")

	router.Complete()
	assert.ErrorIs(t, router.Completion().Wait(ctx), ErrPayloadType)
}

func Test_RouterFault(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router, _ := newTestRouter(t)
	boom := errors.New("boom")
	router.Fault(boom)

	assert.ErrorIs(t, router.Completion().Wait(ctx), boom)
	assert.Equal(t, core.DecliningPermanently,
		router.Offer(core.NewMessageHeader(1), rop.Success(1), nil, false))
	assert.Equal(t, core.Declined, router.Offer(core.NewMessageHeader(2), nil, nil, false))
}

func Test_RouterDeadline(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	router := NewRouter(nil, func(ctx context.Context, _ any) error {
		<-ctx.Done()
		return nil
	}, RouterOptions{Timeout: 50 * time.Millisecond})

	core.FromValues(rop.Success(1)).LinkTo(Into[int](router), core.LinkOptions{})

	err := router.Completion().Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_RouterFromCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done, stop := context.WithCancel(context.Background())
	stop()

	quiet := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	for i := 0; i < 100; i++ {
		router := NewRouter(nil, nil, RouterOptions{Context: done, Logger: quiet})
		require.ErrorIs(t, router.Completion().Wait(ctx), context.Canceled)
		assert.Equal(t, core.DecliningPermanently,
			router.Offer(core.NewMessageHeader(1), rop.Success(i), nil, false))
	}
}

func Test_FailureSinkSwallowsLoggerPanics(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sink := NewFailureSink(FailureLoggerFunc(func(context.Context, rop.FailureRecord) {
		panic("logger down")
	}), core.DefaultOptions())

	p := core.FromValues[rop.Rail](rop.Fail[int](errors.New("a")), rop.Fail[int](errors.New("b")))
	p.LinkTo(sink, core.Propagate)

	require.NoError(t, sink.Completion().Wait(ctx))
}

func Test_SlogLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	failure := rop.NewFailure(errors.New("disk full"), "write")
	logger.LogFailure(context.Background(), failure)

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, `msg="pipeline failure"`)
	assert.Contains(t, out, "message=write")
	assert.Contains(t, out, `error="disk full"`)
	assert.Contains(t, out, "id="+failure.ID().String())

	buf.Reset()
	logger.WithLevel(slog.LevelWarn).LogFailure(context.Background(), failure)
	assert.Contains(t, buf.String(), "level=WARN")
}

func Test_LoggerFromContext(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Default(), Logger(context.Background()))

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, l, Logger(WithLogger(context.Background(), l)))
}
