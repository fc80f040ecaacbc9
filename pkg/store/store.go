// Package store holds front-end state. State changes only through events
// applied by Dispatch; readers get immutable snapshots.
package store

import (
	"io"
	"log/slog"
	"slices"
	"sync"
)

// Listener is called after every applied event with the new state. Listeners
// must not call Dispatch synchronously.
type Listener func(State)

// Store serializes event application and fans out notifications.
type Store struct {
	// dispatchMu orders whole dispatches, notifications included; mu guards
	// the fields below and is never held while a listener runs.
	dispatchMu sync.Mutex
	mu         sync.Mutex
	state      State
	listeners  []subscription
	nextSub    int
	logger     *slog.Logger
}

type subscription struct {
	id int
	fn Listener
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug traces of applied events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInitialState starts the store from a prepared state.
func WithInitialState(st State) Option {
	return func(s *Store) {
		s.state = st
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies ev and notifies every listener in subscription order.
// Events are applied one at a time in call order.
func (s *Store) Dispatch(ev Event) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.state = Reduce(s.state, ev)
	next := s.state
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	kind := Kind("")
	if ev != nil {
		kind = ev.Kind()
	}
	s.logger.Debug("store: event applied", "kind", string(kind), "version", next.Version)

	for _, sub := range listeners {
		sub.fn(next)
	}
	return next
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Select subscribes to a slice derived from the state. fn receives the
// selected value after every applied event.
func Select[T any](s *Store, selector func(State) T, fn func(T)) (unsubscribe func()) {
	return s.Subscribe(func(st State) {
		fn(selector(st))
	})
}
