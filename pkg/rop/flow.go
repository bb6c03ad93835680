package rop

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUnspecified is the cause recorded when a failure is built from a nil error.
var ErrUnspecified = errors.New("rop: unspecified failure")

// FailureRecord describes a captured failure: the underlying error plus an
// optional contextual message.
type FailureRecord struct {
	id        uuid.UUID
	createdAt time.Time
	err       error
	message   string
}

func NewFailure(err error, message string) FailureRecord {
	if IsNil(err) {
		err = ErrUnspecified
	}
	return FailureRecord{
		id:        uuid.New(),
		createdAt: time.Now().UTC(),
		err:       err,
		message:   message,
	}
}

func (f FailureRecord) Err() error {
	return f.err
}

func (f FailureRecord) Message() string {
	return f.message
}

func (f FailureRecord) ID() uuid.UUID {
	return f.id
}

// CreatedAt time creation (UTC)
func (f FailureRecord) CreatedAt() time.Time {
	return f.createdAt
}

// IsCancel reports whether the failure was caused by a cancelled or expired context.
func (f FailureRecord) IsCancel() bool {
	return IsCancellationError(f.err)
}

func (f FailureRecord) Error() string {
	switch {
	case f.err == nil:
		return f.message
	case f.message == "":
		return f.err.Error()
	default:
		return f.message + ": " + f.err.Error()
	}
}

func (f FailureRecord) Unwrap() error {
	return f.err
}

// Flow is a two-rail value: it holds either a payload of type T (success
// rail) or a FailureRecord (failure rail). A Flow is immutable; a failed
// Flow never becomes successful again.
type Flow[T any] struct {
	id        uuid.UUID
	createdAt time.Time
	payload   T
	failure   *FailureRecord
}

func Success[T any](payload T) Flow[T] {
	return Flow[T]{
		id:        uuid.New(),
		createdAt: time.Now().UTC(),
		payload:   payload,
	}
}

func Fail[T any](err error) Flow[T] {
	return FailWith[T](NewFailure(err, ""))
}

func FailWith[T any](record FailureRecord) Flow[T] {
	if record.err == nil {
		record = NewFailure(nil, record.message)
	}
	return Flow[T]{
		id:        uuid.New(),
		createdAt: time.Now().UTC(),
		failure:   &record,
	}
}

// FailFrom carries the failure of from onto a Flow of another payload type,
// keeping its id, creation time and record. It panics if from is a success.
func FailFrom[In, Out any](from Flow[In]) Flow[Out] {
	if from.failure == nil {
		panic("rop: FailFrom called with a successful flow")
	}
	return Flow[Out]{
		id:        from.id,
		createdAt: from.createdAt,
		failure:   from.failure,
	}
}

// Fail moves the flow onto the failure rail. An already failed flow keeps
// its original record.
func (f Flow[T]) Fail(record FailureRecord) Flow[T] {
	if f.failure != nil {
		return f
	}
	failed := FailWith[T](record)
	failed.id = f.id
	failed.createdAt = f.createdAt
	return failed
}

func (f Flow[T]) IsSuccess() bool {
	return f.failure == nil
}

func (f Flow[T]) IsFailure() bool {
	return f.failure != nil
}

// Result returns the payload; it is the zero value on the failure rail.
func (f Flow[T]) Result() T {
	return f.payload
}

// Failure returns the captured failure; it is the zero record on the success rail.
func (f Flow[T]) Failure() FailureRecord {
	if f.failure == nil {
		return FailureRecord{}
	}
	return *f.failure
}

func (f Flow[T]) Err() error {
	if f.failure == nil {
		return nil
	}
	return f.failure.err
}

func (f Flow[T]) Value() any {
	if f.failure != nil {
		return nil
	}
	return f.payload
}

func (f Flow[T]) ID() uuid.UUID {
	return f.id
}

func (f Flow[T]) CreatedAt() time.Time {
	return f.createdAt
}
