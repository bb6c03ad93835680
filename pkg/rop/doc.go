// Package rop defines the two-rail value used by every pipeline block.
//
// A Flow[T] travels either on the success rail, carrying a payload, or on
// the failure rail, carrying a FailureRecord. Blocks never throw business
// failures across their boundaries; they move the Flow onto the failure
// rail instead, and routers later dispatch it to a logging sink.
//
// Highlights:
// - Success/Fail/FailWith/FailFrom: construct Flow[T]
// - FailureRecord: error + message, compatible with errors.Is/As
// - Rail: payload-agnostic view used by routers and sinks
package rop
