// Package events is an in-process publish/subscribe bus. Every subscriber
// receives every event, in publish order, without loss; a slow subscriber
// never blocks publishers.
package events

import "sync"

// Bus fans events of type E out to subscribers.
type Bus[E any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[E]]struct{}
	closed bool
}

// New returns an empty bus.
func New[E any]() *Bus[E] {
	return &Bus[E]{subs: make(map[*Subscription[E]]struct{})}
}

// Subscription is one subscriber's view of the bus. Events queue without
// bound until they are read from C.
type Subscription[E any] struct {
	bus *Bus[E]

	mu     sync.Mutex
	queue  []E
	notify chan struct{}

	out       chan E
	done      chan struct{}
	closeOnce sync.Once
}

// Subscribe registers a new subscriber. Subscribing to a closed bus returns
// a subscription whose channel is already closed.
func (b *Bus[E]) Subscribe() *Subscription[E] {
	s := &Subscription[E]{
		bus:    b,
		notify: make(chan struct{}, 1),
		out:    make(chan E),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.closeOnce.Do(func() { close(s.done) })
		close(s.out)
		return s
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.pump()
	return s
}

// Publish queues e for every current subscriber. It does not wait for
// delivery. Publishing on a closed bus is a no-op.
func (b *Bus[E]) Publish(e E) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for s := range b.subs {
		s.enqueue(e)
	}
}

// Subscribers returns the number of open subscriptions.
func (b *Bus[E]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscription and rejects further events.
func (b *Bus[E]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*Subscription[E]]struct{})
	b.mu.Unlock()

	for s := range subs {
		s.stop()
	}
}

// C returns the delivery channel. It is closed when the subscription or the
// bus is closed; undelivered events are dropped at that point.
func (s *Subscription[E]) C() <-chan E { return s.out }

// Close unsubscribes.
func (s *Subscription[E]) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
	s.stop()
}

func (s *Subscription[E]) stop() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Subscription[E]) enqueue(e E) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription[E]) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		e := s.queue[0]
		var zero E
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- e:
		case <-s.done:
			return
		}
	}
}
