package rop

import (
	"context"
	"errors"
	"reflect"
)

// IsNil reports whether i is nil or a nil pointer hidden in an interface.
func IsNil(i any) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// SplitErrors flattens an errors.Join result into its parts.
// A nil error yields an empty slice.
func SplitErrors(err error) []error {
	if IsNil(err) {
		return []error{}
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}

	return []error{err}
}

func IsCancellationError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
