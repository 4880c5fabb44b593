// Package store holds client state behind a reducer: actions are applied one at a time,
// in dispatch order, and every listener sees each resulting snapshot in that same order.
package store

import "sync"

// Reducer returns the state that results from applying action to state.
// It must not mutate state: snapshots handed to listeners are shared.
type Reducer[S, A any] func(state S, action A) S

type listener[S any] struct {
	id int
	fn func(S)
}

type Store[S, A any] struct {
	reduce Reducer[S, A]

	mu        sync.Mutex
	state     S
	pending   []S // snapshots not yet delivered to listeners
	notifying bool
	listeners []listener[S]
	nextID    int
}

func New[S, A any](initial S, reduce Reducer[S, A]) *Store[S, A] {
	return &Store[S, A]{reduce: reduce, state: initial}
}

// State returns the current snapshot.
func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies the action. The state reflects it by the time Dispatch returns;
// listeners are notified outside the lock, so they may dispatch in turn.
// A dispatch made while notifications are running is delivered after them, in order.
func (s *Store[S, A]) Dispatch(action A) {
	s.mu.Lock()
	s.state = s.reduce(s.state, action)
	s.pending = append(s.pending, s.state)
	if s.notifying {
		s.mu.Unlock()
		return
	}

	s.notifying = true
	for len(s.pending) > 0 {
		snapshot := s.pending[0]
		s.pending = s.pending[1:]
		listeners := append([]listener[S](nil), s.listeners...)
		s.mu.Unlock()

		for _, l := range listeners {
			l.fn(snapshot)
		}
		s.mu.Lock()
	}
	s.notifying = false
	s.mu.Unlock()
}

// Subscribe registers fn to be called with every new snapshot. The returned func unsubscribes it.
func (s *Store[S, A]) Subscribe(fn func(S)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener[S]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}
