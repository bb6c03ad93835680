package core

import (
	"slices"
	"sync"
)

type message[T any] struct {
	header MessageHeader
	value  T
}

type link[T any] struct {
	target    Target[T]
	opts      LinkOptions
	delivered int
}

// sourceCore is the producer half of a block: an output queue whose head is
// offered to the linked targets in link order. Only the head is ever
// offered, which keeps every edge FIFO. A message leaves the queue only
// through Consume, which is serialised by mu, so at most one target claims it.
type sourceCore[T any] struct {
	owner      Source[T]
	headers    headerSeq
	completion *Completion

	mu         sync.Mutex
	queue      ring[message[T]]
	links      []*link[T]
	reservedBy Target[T]
	offering   bool
	pokes      uint64
	completing bool
	faultErr   error
	finished   bool
}

func newSourceCore[T any](owner Source[T]) *sourceCore[T] {
	return &sourceCore[T]{
		owner:      owner,
		completion: NewCompletion(),
	}
}

// push appends value to the output queue. It reports false once the source
// stopped accepting output.
func (s *sourceCore[T]) push(value T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completing || s.finished {
		return false
	}
	s.queue.Push(message[T]{header: s.headers.next(), value: value})
	s.pokeLocked()
	return true
}

func (s *sourceCore[T]) linkTo(target Target[T], opts LinkOptions) Disposable {
	if target == nil {
		return DisposeFunc(nil)
	}

	s.mu.Lock()
	if s.finished {
		err := s.faultErr
		s.mu.Unlock()
		if opts.PropagateCompletion {
			propagate(target, err)
		}
		return DisposeFunc(nil)
	}

	l := &link[T]{target: target, opts: opts}
	s.links = append(s.links, l)
	s.pokeLocked()
	s.mu.Unlock()

	return DisposeFunc(func() error {
		s.unlink(l)
		return nil
	})
}

func (s *sourceCore[T]) unlink(l *link[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = slices.DeleteFunc(s.links, func(x *link[T]) bool { return x == l })
}

func (s *sourceCore[T]) reserve(header MessageHeader, target Target[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, ok := s.queue.Peek()
	if !ok || head.header != header || target == nil {
		return false
	}
	if s.reservedBy != nil {
		return s.reservedBy == target
	}
	s.reservedBy = target
	return true
}

func (s *sourceCore[T]) consume(header MessageHeader, target Target[T]) (T, bool) {
	s.mu.Lock()
	head, ok := s.queue.Peek()
	if !ok || head.header != header || (s.reservedBy != nil && s.reservedBy != target) {
		s.mu.Unlock()
		var zero T
		return zero, false
	}

	s.queue.Pop()
	s.reservedBy = nil
	s.pokeLocked()
	done := s.finishLocked()
	s.mu.Unlock()

	s.settle(done)
	return head.value, true
}

// release drops target's reservation, if any, and re-offers the head. It is
// also how a target that postponed a message hands it back.
func (s *sourceCore[T]) release(header MessageHeader, target Target[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if head, ok := s.queue.Peek(); ok && head.header == header && s.reservedBy != nil && s.reservedBy == target {
		s.reservedBy = nil
	}
	s.pokeLocked()
}

// complete closes the source once the owner will not push any more. A
// non-nil err discards the queued output and faults the source.
func (s *sourceCore[T]) complete(err error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	if err != nil && s.faultErr == nil {
		s.faultErr = err
		s.queue.Drain()
		s.reservedBy = nil
	}
	s.completing = true
	done := s.finishLocked()
	s.mu.Unlock()

	s.settle(done)
}

func (s *sourceCore[T]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *sourceCore[T]) finishLocked() bool {
	if s.finished || !s.completing || s.queue.Len() > 0 {
		return false
	}
	s.finished = true
	return true
}

func (s *sourceCore[T]) settle(done bool) {
	if !done {
		return
	}

	s.mu.Lock()
	links := s.links
	s.links = nil
	err := s.faultErr
	s.mu.Unlock()

	s.completion.Resolve(err)
	for _, l := range links {
		if l.opts.PropagateCompletion {
			propagate(l.target, err)
		}
	}
}

func (s *sourceCore[T]) pokeLocked() {
	s.pokes++
	if s.offering || s.reservedBy != nil || s.queue.Len() == 0 || len(s.links) == 0 {
		return
	}
	s.offering = true
	go s.offerLoop()
}

func (s *sourceCore[T]) offerLoop() {
	for {
		s.mu.Lock()
		head, ok := s.queue.Peek()
		if !ok || len(s.links) == 0 || s.reservedBy != nil {
			s.offering = false
			s.mu.Unlock()
			return
		}
		links := slices.Clone(s.links)
		pokes := s.pokes
		s.mu.Unlock()

		if s.offerHead(head, links) {
			continue
		}

		// nobody took the head: park until a consume, release or new link pokes us
		s.mu.Lock()
		next, ok := s.queue.Peek()
		if ok && next.header == head.header && s.pokes == pokes {
			s.offering = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

func (s *sourceCore[T]) offerHead(head message[T], links []*link[T]) bool {
	for _, l := range links {
		switch l.target.Offer(head.header, head.value, s.owner, true) {
		case Accepted:
			s.delivered(l)
			return true
		case DecliningPermanently:
			s.unlink(l)
		}

		if s.headMoved(head.header) {
			return true
		}
	}
	return false
}

func (s *sourceCore[T]) headMoved(header MessageHeader) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	head, ok := s.queue.Peek()
	return !ok || head.header != header
}

func (s *sourceCore[T]) delivered(l *link[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.delivered++
	if l.opts.MaxMessages > 0 && l.delivered >= l.opts.MaxMessages {
		s.links = slices.DeleteFunc(s.links, func(x *link[T]) bool { return x == l })
	}
}

func propagate(target Block, err error) {
	if err != nil {
		target.Fault(err)
		return
	}
	target.Complete()
}
