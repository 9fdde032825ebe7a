// Package reactive provides the observer primitives the deck model is built
// on: signals, observable lists, keyed observable caches and a debouncer.
//
// Model mutation happens on a single goroutine. Signals nevertheless guard
// their subscriber lists so that subscriptions may be closed from timer
// callbacks and background loaders.
package reactive

import (
	"slices"
	"sync"
)

// Subscription is a handle to a registered observer.
type Subscription interface {
	// Close stops delivery. Safe to call more than once and from inside a
	// handler that is currently being invoked.
	Close()
}

// SubscriptionFunc adapts a function to Subscription. The function runs at
// most once.
func SubscriptionFunc(fn func()) Subscription {
	return &funcSubscription{fn: fn}
}

type funcSubscription struct {
	once sync.Once
	fn   func()
}

func (s *funcSubscription) Close() {
	s.once.Do(s.fn)
}

// Subscriptions collects handles so they can be closed together.
type Subscriptions struct {
	mu   sync.Mutex
	subs []Subscription
}

// Add registers subs to be closed by Close.
func (c *Subscriptions) Add(subs ...Subscription) {
	c.mu.Lock()
	c.subs = append(c.subs, subs...)
	c.mu.Unlock()
}

// Close closes every collected subscription, newest first, and empties the set.
func (c *Subscriptions) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].Close()
	}
}

// Signal is a synchronous multicast event source. Handlers run in
// subscription order on the goroutine calling Emit. The zero value is ready
// to use.
type Signal[T any] struct {
	mu       sync.Mutex
	handlers []*handler[T]
}

type handler[T any] struct {
	mu     sync.Mutex
	fn     func(T)
	closed bool
}

// Subscribe registers fn and returns the handle that removes it.
func (s *Signal[T]) Subscribe(fn func(T)) Subscription {
	h := &handler[T]{fn: fn}

	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()

	return SubscriptionFunc(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()

		s.mu.Lock()
		s.handlers = slices.DeleteFunc(s.handlers, func(other *handler[T]) bool { return other == h })
		s.mu.Unlock()
	})
}

// Emit delivers v to every handler subscribed at the time of the call.
// A handler closed by an earlier handler in the same emission is skipped.
func (s *Signal[T]) Emit(v T) {
	s.mu.Lock()
	handlers := slices.Clone(s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		h.mu.Lock()
		closed := h.closed
		h.mu.Unlock()
		if !closed {
			h.fn(v)
		}
	}
}

// Len returns the number of live subscriptions.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// Forward subscribes to src and re-emits every value on dst after mapping it.
func Forward[S, D any](src *Signal[S], dst *Signal[D], mapFn func(S) D) Subscription {
	return src.Subscribe(func(v S) {
		dst.Emit(mapFn(v))
	})
}
