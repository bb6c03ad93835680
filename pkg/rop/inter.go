package rop

import (
	"time"

	"github.com/google/uuid"
)

// Rail is the payload-agnostic view of a Flow. Routers and sinks work on
// Rail so that flows of any payload type can share one failure path.
type Rail interface {
	// IsSuccess returns true if the value travels on the success rail
	IsSuccess() bool
	// IsFailure returns true if the value travels on the failure rail
	IsFailure() bool
	// Failure returns the captured failure (zero record on success)
	Failure() FailureRecord
	// Value returns the payload boxed as any (nil on failure)
	Value() any
	ID() uuid.UUID
	// CreatedAt time creation (UTC)
	CreatedAt() time.Time
}

var _ Rail = Flow[int]{}
