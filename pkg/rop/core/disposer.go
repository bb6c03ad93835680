package core

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Disposable revokes something, typically a link.
type Disposable interface {
	Dispose() error
}

// DisposeFunc adapts a function to Disposable. A nil DisposeFunc does nothing.
type DisposeFunc func() error

func (f DisposeFunc) Dispose() error {
	if f == nil {
		return nil
	}
	return f()
}

// Composite disposes a fixed list of handles as one. The first Dispose
// calls every handle once, in order, carrying on past errors and panics;
// later calls do nothing and return nil.
type Composite struct {
	once  sync.Once
	items []Disposable
}

func NewComposite(items ...Disposable) *Composite {
	return &Composite{items: slices.Clone(items)}
}

func (c *Composite) Dispose() error {
	var err error
	c.once.Do(func() {
		var errs []error
		for i, d := range c.items {
			if d == nil {
				continue
			}
			if derr := guard(d.Dispose); derr != nil {
				errs = append(errs, fmt.Errorf("dispose #%d: %w", i, derr))
			}
		}
		err = errors.Join(errs...)
	})
	return err
}

