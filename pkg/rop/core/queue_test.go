package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_RingWrapsAndGrows(t *testing.T) {
	t.Parallel()

	var r ring[int]
	next := 0
	for i := 0; i < 100; i++ {
		r.Push(i)
		if i%3 == 0 {
			v, ok := r.Pop()
			assert.True(t, ok)
			assert.Equal(t, next, v)
			next++
		}
	}

	rest := r.Drain()
	assert.Len(t, rest, 100-next)
	for i, v := range rest {
		assert.Equal(t, next+i, v)
	}
	assert.Equal(t, 0, r.Len())

	_, ok := r.Peek()
	assert.False(t, ok)
}

func Test_RingReplace(t *testing.T) {
	t.Parallel()

	var r ring[int]
	assert.False(t, r.Replace(func(int) bool { return true }, 1))

	for i := 0; i < 20; i++ {
		r.Push(i)
	}
	r.Pop()
	r.Pop()
	r.Push(20)

	assert.True(t, r.Replace(func(v int) bool { return v == 20 }, -20))
	assert.True(t, r.Replace(func(v int) bool { return v%5 == 0 }, -5))
	assert.False(t, r.Replace(func(v int) bool { return v == 1 }, 0))

	out := r.Drain()
	assert.Equal(t, -5, out[3])
	assert.Equal(t, -20, out[len(out)-1])
	assert.Len(t, out, 19)
}

func Test_MessageStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "postponed", Postponed.String())
	assert.True(t, DecliningPermanently.IsDeclined())
	assert.True(t, Declined.IsDeclined())
	assert.False(t, NotAvailable.IsDeclined())
	assert.False(t, MessageHeader{}.IsValid())
	assert.True(t, NewMessageHeader(3).IsValid())
}
