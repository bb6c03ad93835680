// Package chain provides a fluent wrapper around Flow[T] for building
// synchronous railway-oriented chains from solo primitives. A chain is the
// natural body of a rail-aware stage transform.
//
// Key operations:
// - Start/FromValue: begin a chain from a Flow[T] or a value
// - Then: switch to a new Flow[U] via a function
// - ThenTry: call a function (U, error) and convert error to failure
// - Map: transform the successful value (T -> U)
// - Validate/ValidateAll: move invalid values onto the failure rail
// - Ensure: run side effects on success without changing the flow
// - Finally: collapse the chain into a final value via handlers
package chain
