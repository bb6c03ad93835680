package core

import "sync/atomic"

// MessageHeader identifies a message offered by a source. The zero header
// is invalid.
type MessageHeader struct {
	id int64
}

func NewMessageHeader(id int64) MessageHeader {
	return MessageHeader{id: id}
}

func (h MessageHeader) ID() int64 {
	return h.id
}

func (h MessageHeader) IsValid() bool {
	return h.id != 0
}

// headerSeq hands out headers for one source.
type headerSeq struct {
	last atomic.Int64
}

func (s *headerSeq) next() MessageHeader {
	return MessageHeader{id: s.last.Add(1)}
}

// MessageStatus is the answer of a target to an offer.
type MessageStatus int

const (
	// Accepted means the target took the message.
	Accepted MessageStatus = iota
	// Declined means the target did not want this message.
	Declined
	// Postponed means the target may consume the message later.
	Postponed
	// NotAvailable means the message was claimed by someone else first.
	NotAvailable
	// DecliningPermanently means the target completed and will never accept again.
	DecliningPermanently
)

func (s MessageStatus) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Declined:
		return "declined"
	case Postponed:
		return "postponed"
	case NotAvailable:
		return "not_available"
	case DecliningPermanently:
		return "declining_permanently"
	default:
		return "unknown"
	}
}

// IsDeclined reports both flavours of decline.
func (s MessageStatus) IsDeclined() bool {
	return s == Declined || s == DecliningPermanently
}
