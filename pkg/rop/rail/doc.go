// Package rail builds railway-oriented pipelines on the core block protocol.
//
// Every stage works on rop.Flow values. A Stage runs its transform on
// successful flows only; errors and panics of the transform become failed
// flows instead of faulting the stage. Linking a stage always splits its
// output: successes go to the requested target, failures go to the Router
// shared by the whole pipeline. The Router hands successes to the
// SuccessSink and failures to the FailureSink, which logs them.
//
// A typical pipeline:
//
//	router := rail.NewRouter(rail.NewSlogLogger(nil), rail.Payload(store), rail.RouterOptions{})
//	parse := rail.NewStage(router, func(_ context.Context, s string) (int, error) { return strconv.Atoi(s) })
//	double := rail.NewStage(router, func(_ context.Context, n int) (int, error) { return n * 2, nil })
//
//	parse.Link(double)
//	double.Terminate(core.Propagate)
//
//	parse.Post("21")
//	parse.Complete()
//	err := router.Completion().Wait(ctx)
//
// The router completes once every stage linked with completion propagation
// has completed, so pipelines must be wired before they are completed.
package rail
