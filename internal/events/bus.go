// Package events implements the process-local push-event feed. The timer
// loop publishes tick and stopped events onto the bus; the store's timer
// synchronizer and the UI subscribe to them. Configuration saves are also
// broadcast here so components that cache configuration can reload.
package events

import (
	"sync"

	"github.com/ebelokrylov/ytracker-tui/internal/logger"
	"github.com/ebelokrylov/ytracker-tui/internal/timer"
)

// Type discriminates event payloads.
type Type int

const (
	// TimerTick carries a fresh timer snapshot.
	TimerTick Type = iota
	// TimerStopped carries the issue key and elapsed seconds of a timer
	// that just stopped.
	TimerStopped
	// ConfigUpdated signals that persisted configuration changed.
	ConfigUpdated
)

// Event is a single message on the bus.
type Event struct {
	Type     Type
	Timer    timer.Snapshot // TimerTick
	IssueKey string         // TimerStopped
	Elapsed  int64          // TimerStopped
}

// subscriberBuffer bounds how far a subscriber may lag before events are
// dropped for it.
const subscriberBuffer = 16

// Bus fans events out to any number of subscribers. Publish never blocks; a
// subscriber that falls behind loses events.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber. The returned cancel function
// unregisters it and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to all current subscribers without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		select {
		case sub <- event:
		default:
			logger.Warning("events: dropping event type=%d for slow subscriber id=%d", event.Type, id)
		}
	}
}

// Close unregisters all subscribers and closes their channels. Publishing
// after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub)
	}
}
