package core

// LinkWhen links source to target, letting only values matching predicate
// through. Values rejected by the predicate stay with the source and are
// offered to its other links.
func LinkWhen[T any](source Source[T], target Target[T], opts LinkOptions, predicate func(T) bool) Disposable {
	if predicate == nil {
		return source.LinkTo(target, opts)
	}
	return source.LinkTo(&filteredTarget[T]{target: target, predicate: predicate}, opts)
}

type filteredTarget[T any] struct {
	target    Target[T]
	predicate func(T) bool
}

func (f *filteredTarget[T]) Offer(header MessageHeader, value T, supplier Supplier[T], consumeToAccept bool) MessageStatus {
	if !matches(f.predicate, value) {
		return Declined
	}
	return f.target.Offer(header, value, supplier, consumeToAccept)
}

func (f *filteredTarget[T]) Complete() {
	f.target.Complete()
}

func (f *filteredTarget[T]) Fault(err error) {
	f.target.Fault(err)
}

func (f *filteredTarget[T]) Completion() *Completion {
	return f.target.Completion()
}

// Switch is a target that dispatches every offer to exactly one of two
// targets: matched when selector returns true, unmatched otherwise. The
// selector runs once per offer, so no value can slip between the branches.
// Complete and Fault reach both branches.
type Switch[T any] struct {
	selector   func(T) bool
	matched    Target[T]
	unmatched  Target[T]
	completion *Completion
}

func NewSwitch[T any](selector func(T) bool, matched, unmatched Target[T]) *Switch[T] {
	return &Switch[T]{
		selector:   selector,
		matched:    matched,
		unmatched:  unmatched,
		completion: WhenAll(matched.Completion(), unmatched.Completion()),
	}
}

func (s *Switch[T]) Offer(header MessageHeader, value T, supplier Supplier[T], consumeToAccept bool) MessageStatus {
	if matches(s.selector, value) {
		return s.matched.Offer(header, value, supplier, consumeToAccept)
	}
	return s.unmatched.Offer(header, value, supplier, consumeToAccept)
}

func (s *Switch[T]) Complete() {
	s.matched.Complete()
	s.unmatched.Complete()
}

func (s *Switch[T]) Fault(err error) {
	s.matched.Fault(err)
	s.unmatched.Fault(err)
}

func (s *Switch[T]) Completion() *Completion {
	return s.completion
}

// matches evaluates predicate; a panicking predicate counts as false.
func matches[T any](predicate func(T) bool, value T) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return predicate(value)
}
