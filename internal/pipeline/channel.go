package pipeline

import (
	"context"
	"sync"

	"github.com/dvloznov/payments-engine/internal/domain"
)

// DefaultCapacity is the channel capacity used when none is configured.
const DefaultCapacity = 1024

// Channel is the bounded, ordered conduit between the reader and the
// processor. It has exactly one producer, which is also the only caller
// of Close, and one consumer.
type Channel struct {
	events    chan domain.Event
	closeOnce sync.Once
	closed    bool
}

// NewChannel creates a channel holding at most capacity buffered events.
// Non-positive capacities fall back to DefaultCapacity.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		events: make(chan domain.Event, capacity),
	}
}

// Publish enqueues ev, blocking while the channel is full.
func (c *Channel) Publish(ctx context.Context, ev domain.Event) error {
	if c.closed {
		return ErrChannelClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the end of the stream. Buffered events remain readable.
// Calling Close more than once is a no-op.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.closed = true
		close(c.events)
	})
}

// Events returns the receive side for the consumer.
func (c *Channel) Events() <-chan domain.Event {
	return c.events
}

// Len returns the number of buffered events.
func (c *Channel) Len() int {
	return len(c.events)
}

// Cap returns the channel capacity.
func (c *Channel) Cap() int {
	return cap(c.events)
}
