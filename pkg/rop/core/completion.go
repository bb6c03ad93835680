package core

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Completion is a future resolved once a block has finished all its work.
// It resolves exactly once, with a nil error for a clean completion or the
// fault cause otherwise.
type Completion struct {
	once sync.Once
	done chan struct{}
	err  error
	fast atomic.Bool
}

func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Resolve settles the completion. Only the first call has an effect; it
// reports whether this call was the one that settled it.
func (c *Completion) Resolve(err error) bool {
	resolved := false
	c.once.Do(func() {
		c.err = err
		c.fast.Store(true)
		close(c.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the completion is resolved.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

func (c *Completion) IsDone() bool {
	return c.fast.Load()
}

// Err returns the fault cause. It is nil while pending and after a clean completion.
func (c *Completion) Err() error {
	if !c.fast.Load() {
		return nil
	}
	return c.err
}

// IsFaulted reports whether the completion resolved with an error.
func (c *Completion) IsFaulted() bool {
	return c.Err() != nil
}

// Wait blocks until the completion resolves or ctx is done.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WhenAll resolves after every completion resolved. It is faulted with the
// first error observed if any of them faulted.
func WhenAll(completions ...*Completion) *Completion {
	joined := NewCompletion()

	go func() {
		var group errgroup.Group
		for _, c := range completions {
			c := c
			group.Go(func() error {
				<-c.Done()
				return c.Err()
			})
		}
		joined.Resolve(group.Wait())
	}()

	return joined
}
