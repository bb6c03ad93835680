package core

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type postponedMessage[T any] struct {
	header   MessageHeader
	supplier Supplier[T]
}

// targetCore is the consumer half of a block: an input buffer drained by
// a bounded pool of workers. Owners embed it and expose it through their
// Target methods; owner is the identity used towards suppliers.
type targetCore[T any] struct {
	owner   Target[T]
	opts    BlockOptions
	process func(ctx context.Context, seq uint64, item T) error
	onDone  func(err error)

	workers *semaphore.Weighted
	headers headerSeq

	mu         sync.Mutex
	stopCancel func() bool // nil until the cancel hook is registered
	dequeued   uint64      // sequence handed to the next processed item
	queue      ring[T]
	postponed  ring[postponedMessage[T]]
	running    int // live worker goroutines
	processing int // items inside process
	pending    int // slots held while claiming from a supplier
	declining  bool
	faultErr   error
	finished   bool
	space      chan struct{} // closed and replaced whenever load drops
}

func newTargetCore[T any](owner Target[T], opts BlockOptions,
	process func(ctx context.Context, seq uint64, item T) error, onDone func(err error)) *targetCore[T] {

	opts = opts.normalize()
	t := &targetCore[T]{
		owner:   owner,
		opts:    opts,
		process: process,
		onDone:  onDone,
		workers: semaphore.NewWeighted(int64(opts.MaxWorkers)),
		space:   make(chan struct{}),
	}

	// the hook may fire before AfterFunc returns, so its stop func is
	// published under mu and settle tolerates its absence
	ctx := opts.Context
	stop := context.AfterFunc(ctx, func() {
		t.fault(ctx.Err())
	})
	t.mu.Lock()
	t.stopCancel = stop
	finished := t.finished
	t.mu.Unlock()
	if finished {
		stop()
	}
	return t
}

func (t *targetCore[T]) offer(header MessageHeader, value T, supplier Supplier[T], consumeToAccept bool) MessageStatus {
	if !header.IsValid() || (supplier == nil && consumeToAccept) {
		return Declined
	}

	t.mu.Lock()
	if t.declining {
		t.mu.Unlock()
		return DecliningPermanently
	}

	if !t.hasRoomLocked() {
		if supplier == nil {
			t.mu.Unlock()
			return Declined
		}
		t.postponeLocked(header, supplier)
		t.mu.Unlock()
		return Postponed
	}

	if !consumeToAccept {
		t.queue.Push(value)
		t.spawnLocked()
		t.mu.Unlock()
		return Accepted
	}

	// hold the slot while claiming; the supplier must not be called under t.mu
	t.pending++
	t.mu.Unlock()

	consumed, ok := supplier.Consume(header, t.owner)

	t.mu.Lock()
	t.pending--
	if ok {
		t.admitLocked(consumed)
	}
	done, err := t.finishLocked()
	t.mu.Unlock()
	t.settle(done, err)

	if !ok {
		t.claimPostponed()
		return NotAvailable
	}
	return Accepted
}

func (t *targetCore[T]) post(value T) MessageStatus {
	return t.offer(t.headers.next(), value, nil, false)
}

// send posts value, waiting for capacity until ctx is done.
func (t *targetCore[T]) send(ctx context.Context, value T) error {
	for {
		t.mu.Lock()
		freed := t.space
		t.mu.Unlock()

		switch t.post(value) {
		case Accepted:
			return nil
		case DecliningPermanently:
			return ErrDeclined
		}

		select {
		case <-freed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *targetCore[T]) complete() {
	t.mu.Lock()
	if t.declining {
		t.mu.Unlock()
		return
	}
	t.declining = true
	released := t.postponed.Drain()
	t.signalSpaceLocked()
	done, err := t.finishLocked()
	t.mu.Unlock()

	t.releaseAll(released)
	t.settle(done, err)
}

func (t *targetCore[T]) fault(err error) {
	if err == nil {
		err = ErrBlockFaulted
	}

	t.mu.Lock()
	if t.finished || t.faultErr != nil {
		t.mu.Unlock()
		return
	}
	t.faultErr = err
	t.declining = true
	dropped := t.queue.Len()
	t.queue.Drain()
	released := t.postponed.Drain()
	t.signalSpaceLocked()
	done, ferr := t.finishLocked()
	t.mu.Unlock()

	t.opts.Logger.Debug("block faulted", "error", err, "dropped", dropped)
	t.releaseAll(released)
	t.settle(done, ferr)
}

func (t *targetCore[T]) isDeclining() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.declining
}

// count returns the number of buffered messages not yet picked by a worker.
func (t *targetCore[T]) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queue.Len()
}

// postponeLocked remembers the latest message offered by supplier. Sources
// only offer their head, so an older postponed header of the same supplier
// is stale and gets replaced in place.
func (t *targetCore[T]) postponeLocked(header MessageHeader, supplier Supplier[T]) {
	p := postponedMessage[T]{header: header, supplier: supplier}
	sameSupplier := func(q postponedMessage[T]) bool {
		return q.supplier == supplier
	}
	if !t.postponed.Replace(sameSupplier, p) {
		t.postponed.Push(p)
	}
}

func (t *targetCore[T]) postponedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.postponed.Len()
}

func (t *targetCore[T]) hasRoomLocked() bool {
	if !t.opts.bounded() {
		return true
	}
	return t.queue.Len()+t.processing+t.pending < t.opts.BoundedCapacity
}

// admitLocked queues a message claimed from a supplier. A fault discards it,
// a plain Complete does not: the claim happened before input was closed.
func (t *targetCore[T]) admitLocked(value T) {
	if t.faultErr != nil {
		return
	}
	t.queue.Push(value)
	t.spawnLocked()
}

func (t *targetCore[T]) spawnLocked() {
	for t.queue.Len() > t.running-t.processing && t.workers.TryAcquire(1) {
		t.running++
		go t.locomotive()
	}
}

func (t *targetCore[T]) signalSpaceLocked() {
	close(t.space)
	t.space = make(chan struct{})
}

func (t *targetCore[T]) finishLocked() (bool, error) {
	if t.finished || !t.declining ||
		t.queue.Len() > 0 || t.processing > 0 || t.pending > 0 || t.running > 0 {
		return false, nil
	}
	t.finished = true
	return true, t.faultErr
}

func (t *targetCore[T]) settle(done bool, err error) {
	if !done {
		return
	}
	t.mu.Lock()
	stop := t.stopCancel
	t.mu.Unlock()
	if stop != nil {
		stop()
	}
	t.onDone(err)
}

// claimPostponed pulls postponed messages from their suppliers while
// there is room.
func (t *targetCore[T]) claimPostponed() {
	for {
		t.mu.Lock()
		if t.declining || !t.hasRoomLocked() {
			t.mu.Unlock()
			return
		}
		p, ok := t.postponed.Pop()
		if !ok {
			t.mu.Unlock()
			return
		}
		t.pending++
		t.mu.Unlock()

		var (
			value   T
			claimed bool
		)
		if p.supplier.Reserve(p.header, t.owner) {
			if t.isDeclining() {
				p.supplier.Release(p.header, t.owner)
			} else {
				value, claimed = p.supplier.Consume(p.header, t.owner)
			}
		}

		t.mu.Lock()
		t.pending--
		if claimed {
			t.admitLocked(value)
		}
		done, err := t.finishLocked()
		t.mu.Unlock()
		t.settle(done, err)
	}
}

func (t *targetCore[T]) releaseAll(list []postponedMessage[T]) {
	for _, p := range list {
		p.supplier.Release(p.header, t.owner)
	}
}
