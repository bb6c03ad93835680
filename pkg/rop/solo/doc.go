// Package solo contains single-value, synchronous ROP primitives that operate
// on Flow[T]. Every primitive leaves a failed flow untouched and never runs
// its step on it; the pipeline stages are built from these.
//
// Highlights:
// - Succeed/Fail: construct Flow[T]
// - Validate: move invalid input onto the failure rail
// - Switch/Map: transform successful values
// - Try/TryWith: call a function (Out, error) and convert error to failure
// - Tee: side effect on success
// - Finally: reduce to a concrete value via success/failure handlers
package solo
