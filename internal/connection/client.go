package connection

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// SubscriberState tracks the lifecycle of a live viewer connection
type SubscriberState int32

const (
	StatePending SubscriberState = iota // handshake in progress
	StateActive                         // registered, eligible for broadcast
	StateClosing                        // disconnect detected or terminal send failure
	StateClosed                         // removed from registry, resources released
)

// String returns a human-readable state name
func (s SubscriberState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Subscriber represents one live viewer connection. The hub owns the
// subscriber for its registered lifetime; the transport handler holds a
// non-owning reference used to pump outbound frames and to report inbound
// disconnects back to the hub.
type Subscriber struct {
	id    string
	send  chan []byte
	state atomic.Int32
}

// NewSubscriber creates a subscriber in the Pending state with a buffered
// outbound queue of the given size.
func NewSubscriber(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 64
	}
	return &Subscriber{
		id:   uuid.NewString(),
		send: make(chan []byte, buffer),
	}
}

// ID returns the subscriber's unique identifier
func (s *Subscriber) ID() string {
	return s.id
}

// Frames returns the outbound frame queue. The channel is closed by the hub
// when the subscriber is unregistered.
func (s *Subscriber) Frames() <-chan []byte {
	return s.send
}

// State returns the current lifecycle state
func (s *Subscriber) State() SubscriberState {
	return SubscriberState(s.state.Load())
}

// activate moves Pending -> Active. Called by the hub during registration.
func (s *Subscriber) activate() bool {
	return s.state.CompareAndSwap(int32(StatePending), int32(StateActive))
}

// beginClose moves Pending/Active -> Closing. Returns true on the first call
// that performs the transition; later calls are no-ops.
func (s *Subscriber) beginClose() bool {
	if s.state.CompareAndSwap(int32(StateActive), int32(StateClosing)) {
		return true
	}
	return s.state.CompareAndSwap(int32(StatePending), int32(StateClosing))
}

// finishClose moves Closing -> Closed and closes the outbound queue exactly
// once. Must only be called while holding the hub mutex so no broadcast pass
// can be sending on the channel concurrently.
func (s *Subscriber) finishClose() {
	s.beginClose()
	if s.state.CompareAndSwap(int32(StateClosing), int32(StateClosed)) {
		close(s.send)
	}
}

// offer attempts a non-blocking delivery. It reports false when the
// subscriber is not Active or its queue is full; the caller decides whether
// that failure is terminal. Must only be called while holding the hub mutex.
func (s *Subscriber) offer(frame []byte) bool {
	if s.State() != StateActive {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}
