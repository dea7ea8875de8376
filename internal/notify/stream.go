// Package notify provides a replay-latest broadcast stream: subscribers get the
// current value when they subscribe and every value published afterwards.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Stream holds a current value and the set of subscribers interested in it.
//
// Publish only records and queues; Flush delivers. Owners that guard their own
// state with a mutex call Publish while holding it and Flush after releasing
// it, so deliveries follow mutation order and subscribers are free to call
// back into the owner.
type Stream[T any] struct {
	mu       sync.Mutex
	current  T
	subs     []*subscription[T]
	queue    []delivery[T]
	draining bool
	copyFn   func(T) T
}

type subscription[T any] struct {
	fn     func(T)
	active atomic.Bool
}

// delivery pins the subscriber set at publish time so late subscribers never
// see values older than their replay.
type delivery[T any] struct {
	value   T
	targets []*subscription[T]
}

// Option configures a Stream
type Option[T any] func(*Stream[T])

// WithCopy makes every subscriber receive its own copy of each value.
func WithCopy[T any](fn func(T) T) Option[T] {
	return func(s *Stream[T]) {
		s.copyFn = fn
	}
}

// New creates a stream whose current value is initial
func New[T any](initial T, opts ...Option[T]) *Stream[T] {
	s := &Stream[T]{current: initial}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the last published value
func (s *Stream[T]) Current() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Len returns the number of active subscribers
func (s *Stream[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Publish makes v the current value and queues it for every subscriber
// registered at this instant. Nothing is delivered until Flush.
func (s *Stream[T]) Publish(v T) {
	s.mu.Lock()
	s.current = v
	targets := make([]*subscription[T], len(s.subs))
	copy(targets, s.subs)
	s.queue = append(s.queue, delivery[T]{value: v, targets: targets})
	s.mu.Unlock()
}

// Send publishes v and flushes it.
func (s *Stream[T]) Send(v T) {
	s.Publish(v)
	s.Flush()
}

// Flush delivers queued values in order. If another caller is already
// draining (including a subscriber publishing from inside its callback),
// Flush returns immediately and the active drainer delivers the rest.
func (s *Stream[T]) Flush() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		d := s.queue[0]
		s.queue[0] = delivery[T]{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		for _, sub := range d.targets {
			if sub.active.Load() {
				s.deliver(sub, d.value)
			}
		}

		s.mu.Lock()
	}
	s.queue = nil
	s.draining = false
	s.mu.Unlock()
}

func (s *Stream[T]) deliver(sub *subscription[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("subscriber panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	if s.copyFn != nil {
		v = s.copyFn(v)
	}
	sub.fn(v)
}

// Subscribe registers fn and replays the current value to it before any
// later value. The returned function unsubscribes; it is safe to call more
// than once.
func (s *Stream[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	sub := &subscription[T]{fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.queue = append(s.queue, delivery[T]{value: s.current, targets: []*subscription[T]{sub}})
	s.mu.Unlock()

	s.Flush()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			s.remove(sub)
		})
	}
}

func (s *Stream[T]) remove(target *subscription[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub == target {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// Watch returns a channel carrying the current value and later changes until
// ctx is done, after which the channel is closed. A slow reader only sees the
// latest value; intermediate values are dropped.
func (s *Stream[T]) Watch(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	var mu sync.Mutex
	closed := false

	unsubscribe := s.Subscribe(func(v T) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- v:
		default:
			// Buffer holds a stale value, replace it
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	})

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}
