package engine

import (
	"sync"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// DefaultFeedBuffer is the per-subscriber channel capacity.
const DefaultFeedBuffer = 64

// Feed fans out accepted records to live subscribers (the websocket stream).
//
// Publish never blocks the write path. A subscriber whose buffer is full is
// dropped and its channel closed; it can reconnect and catch up with a
// sequence-id query against the store.
//
// Thread-safety: all methods are safe for concurrent use.
type Feed struct {
	mu     sync.Mutex
	subs   map[*subscription]struct{}
	buffer int
	closed bool
}

type subscription struct {
	ch   chan ir.Record
	once sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// NewFeed creates a feed with the given per-subscriber buffer.
// A non-positive buffer uses DefaultFeedBuffer.
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = DefaultFeedBuffer
	}
	return &Feed{
		subs:   make(map[*subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The returned cancel func removes it
// and closes the channel; calling it more than once is safe.
//
// Subscribing to a closed feed returns an already-closed channel.
func (f *Feed) Subscribe() (<-chan ir.Record, func()) {
	sub := &subscription{ch: make(chan ir.Record, f.buffer)}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		delete(f.subs, sub)
		f.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// Publish delivers rec to every subscriber, dropping slow ones.
// Returns the number of subscribers that received it.
func (f *Feed) Publish(rec ir.Record) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	delivered := 0
	for sub := range f.subs {
		select {
		case sub.ch <- rec:
			delivered++
		default:
			delete(f.subs, sub)
			sub.close()
		}
	}
	return delivered
}

// Len returns the number of live subscribers.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close drops every subscriber. Later Publish calls deliver nothing.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for sub := range f.subs {
		delete(f.subs, sub)
		sub.close()
	}
}
