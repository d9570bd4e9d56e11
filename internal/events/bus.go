// Package events delivers controller events to subscribers through
// asaskevich/EventBus.
package events

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

type delivery struct {
	topic string
	args  []any
}

// Bus is a fire-and-forget notifier. Emit queues the event and returns;
// a single goroutine publishes queued events in order, so handlers run one
// at a time and may emit (or call into whatever emits) without deadlocking.
//
// Handlers receive the payload as positional arguments, e.g. a subscriber
// of an (error, Attempt) event is a func(error, recovery.Attempt).
type Bus struct {
	bus evbus.Bus

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []delivery
	closed bool
	done   chan struct{}
}

// New starts a Bus. Close it to stop its goroutine.
func New() *Bus {
	b := &Bus{
		bus:  evbus.New(),
		done: make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	go b.run()
	return b
}

// Emit queues topic for delivery. Events emitted after Close are dropped.
func (b *Bus) Emit(topic string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queue = append(b.queue, delivery{topic: topic, args: args})
	b.cond.Signal()
}

// Subscribe registers fn for topic. Must not be called from a handler.
func (b *Bus) Subscribe(topic string, fn any) error {
	return b.bus.Subscribe(topic, fn)
}

// SubscribeOnce registers fn for the next topic event only.
func (b *Bus) SubscribeOnce(topic string, fn any) error {
	return b.bus.SubscribeOnce(topic, fn)
}

// Unsubscribe removes fn from topic.
func (b *Bus) Unsubscribe(topic string, fn any) error {
	return b.bus.Unsubscribe(topic, fn)
}

func (b *Bus) hasSubscribers(topic string) bool {
	return b.bus.HasCallback(topic)
}

// Close delivers what is already queued and stops the Bus. Must not be
// called from a handler.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) run() {
	defer close(b.done)
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		d := b.queue[0]
		b.queue[0] = delivery{}
		b.queue = b.queue[1:]
		b.mu.Unlock()

		b.bus.Publish(d.topic, d.args...)
	}
}
