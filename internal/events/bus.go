package events

import (
	"sync"
)

// Topic partitions the bus: probe lifecycle events and board aggregates
// travel separately, so the snapshot path can ignore board chatter and
// tooling can tap just one stream.
type Topic string

const (
	TopicProbe Topic = "probe"
	TopicBoard Topic = "board"
)

// defaultBuffer is the subscriber channel capacity when the caller asks
// for a non-positive size.
const defaultBuffer = 256

// Bus is a channel-based pub-sub bus. The probe runner publishes settle
// events here and the TUI consumes them, so board state is only ever
// touched from the update loop.
type Bus struct {
	mu       sync.RWMutex
	topics   map[Topic][]chan Event
	firehose []chan Event // subscribers to every topic
	closed   bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{topics: make(map[Topic][]chan Event)}
}

// Subscribe registers a subscriber for one topic and returns its
// receive channel. On a closed bus the channel comes back already
// closed, so range loops terminate instead of blocking.
func (b *Bus) Subscribe(topic Topic, bufSize int) <-chan Event {
	ch := newSubChan(bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}
	b.topics[topic] = append(b.topics[topic], ch)
	return ch
}

// SubscribeAll registers a subscriber that receives events from every
// topic over a single channel.
func (b *Bus) SubscribeAll(bufSize int) <-chan Event {
	ch := newSubChan(bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}
	b.firehose = append(b.firehose, ch)
	return ch
}

// Publish fans the event out to the topic's subscribers and to every
// firehose subscriber. Delivery never blocks: a full subscriber loses
// the event rather than stalling the probe goroutine publishing it.
func (b *Bus) Publish(topic Topic, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.topics[topic] {
		offer(ch, event)
	}
	for _, ch := range b.firehose {
		offer(ch, event)
	}
}

// Close closes every subscriber channel. Idempotent; publishes after
// Close are dropped silently.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, subs := range b.topics {
		for _, ch := range subs {
			close(ch)
		}
	}
	for _, ch := range b.firehose {
		close(ch)
	}
}

func newSubChan(bufSize int) chan Event {
	if bufSize <= 0 {
		bufSize = defaultBuffer
	}
	return make(chan Event, bufSize)
}

// offer is the non-blocking send behind Publish.
func offer(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
	}
}
