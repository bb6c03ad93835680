package core

import (
	"errors"
	"fmt"
)

var (
	// ErrBlockFaulted is recorded when Fault is called with a nil error.
	ErrBlockFaulted = errors.New("core: block faulted")
	// ErrDeclined is returned by Send when the block no longer accepts input.
	ErrDeclined = errors.New("core: message declined")
)

// RecoveredPanic is an error type that wraps a panic value.
type RecoveredPanic struct {
	Value any
}

func (p *RecoveredPanic) Error() string {
	return fmt.Sprintf("panic recovered: %v", p.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (p *RecoveredPanic) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

// guard runs f and turns a panic into a *RecoveredPanic error.
func guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RecoveredPanic{Value: r}
		}
	}()
	return f()
}
