package csp

import (
	"fmt"

	"github.com/eapache/queue"
)

// Buffer decides whether a put can complete without a waiting taker.
// Implementations hold values in FIFO order and are only touched from
// the loop goroutine.
type Buffer interface {
	// Empty reports whether Remove would find nothing.
	Empty() bool
	// Add stores v and reports whether it was accepted. A rejected
	// put is queued on the channel until a taker arrives.
	Add(v any) bool
	// Remove pops the oldest value.
	Remove() (any, bool)
	// Len is the number of buffered values.
	Len() int
	// Cap is the fixed capacity.
	Cap() int
}

// StrictBuffer holds up to its capacity and rejects further values.
type StrictBuffer struct {
	capacity int
	values   *queue.Queue
}

// Strict returns a buffer that accepts capacity values and then makes
// producers wait. Strict(0) is a pure rendezvous. It panics if
// capacity is negative.
func Strict(capacity int) *StrictBuffer {
	if capacity < 0 {
		panic(fmt.Sprintf("csp: Strict capacity must be non-negative, got %d", capacity))
	}
	return &StrictBuffer{capacity: capacity, values: queue.New()}
}

func (b *StrictBuffer) Empty() bool { return b.values.Length() == 0 }

func (b *StrictBuffer) Add(v any) bool {
	if b.values.Length() >= b.capacity {
		return false
	}
	b.values.Add(v)
	return true
}

func (b *StrictBuffer) Remove() (any, bool) {
	if b.values.Length() == 0 {
		return nil, false
	}
	return b.values.Remove(), true
}

func (b *StrictBuffer) Len() int { return b.values.Length() }

func (b *StrictBuffer) Cap() int { return b.capacity }

// RingBuffer is a sliding window over the most recent values: at
// capacity, Add drops the oldest value to make room.
type RingBuffer struct {
	capacity int
	values   *queue.Queue
}

// Ring returns a buffer that never rejects a value and keeps the
// capacity most recent ones. It panics if capacity is less than one.
func Ring(capacity int) *RingBuffer {
	if capacity < 1 {
		panic(fmt.Sprintf("csp: Ring capacity must be positive, got %d", capacity))
	}
	return &RingBuffer{capacity: capacity, values: queue.New()}
}

func (b *RingBuffer) Empty() bool { return b.values.Length() == 0 }

func (b *RingBuffer) Add(v any) bool {
	if b.values.Length() >= b.capacity {
		b.values.Remove()
	}
	b.values.Add(v)
	return true
}

func (b *RingBuffer) Remove() (any, bool) {
	if b.values.Length() == 0 {
		return nil, false
	}
	return b.values.Remove(), true
}

func (b *RingBuffer) Len() int { return b.values.Length() }

func (b *RingBuffer) Cap() int { return b.capacity }
