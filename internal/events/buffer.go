package events

import (
	"errors"
	"sync"
	"time"
)

const defaultBufferSize = 1024

var ErrBufferFull = errors.New("event buffer is full")

// message is an event waiting to be handed to the writer.
type message struct {
	kind    string
	subject string
	at      time.Time
	data    []byte
}

// buffer holds pending messages in arrival order. Writers never block: once capacity
// messages are pending, new ones are refused until the producer drains the buffer.
type buffer struct {
	mu       sync.Mutex
	pending  []message
	capacity int
}

func newBuffer(capacity int) *buffer {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	return &buffer{capacity: capacity}
}

func (b *buffer) push(msg message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) >= b.capacity {
		return ErrBufferFull
	}
	b.pending = append(b.pending, msg)
	return nil
}

// drain hands over every pending message and leaves the buffer empty.
func (b *buffer) drain() []message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.pending
	b.pending = nil
	return out
}

func (b *buffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
