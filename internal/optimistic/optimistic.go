// Package optimistic applies local state changes before the backend confirms them
// and rolls them back when it does not.
package optimistic

import (
	"context"
	"sync"

	slogctx "github.com/veqryn/slog-context"
)

// Store holds a value of local state and notifies subscribers on every change.
// State values are treated as immutable: update functions return a new value
// instead of modifying the one they receive.
type Store[S any] struct {
	mu     sync.Mutex
	state  S
	subs   map[int]func(S)
	nextID int
}

func NewStore[S any](initial S) *Store[S] {
	return &Store[S]{
		state: initial,
		subs:  make(map[int]func(S)),
	}
}

func (s *Store[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Update replaces the state with fn(state) and returns the new state.
func (s *Store[S]) Update(fn func(S) S) S {
	s.mu.Lock()
	s.state = fn(s.state)
	state := s.state
	subs := make([]func(S), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(state)
	}

	return state
}

// Subscribe registers fn to be called with the new state after every update.
// The returned function removes the subscription.
func (s *Store[S]) Subscribe(fn func(S)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subs, id)
	}
}

// Command is a state change confirmed by a remote call.
type Command[S, R any] struct {
	// Apply is the local change made before Confirm runs.
	Apply func(S) S
	// Confirm performs the remote call.
	Confirm func(ctx context.Context) (R, error)
	// Commit reconciles the state with the confirmed result. Nil keeps the applied state.
	Commit func(S, R) S
	// Revert undoes Apply after Confirm failed.
	Revert func(S) S
}

// Execute applies cmd locally, confirms it remotely and then commits or reverts it.
// The error of Confirm is returned unchanged.
func Execute[S, R any](ctx context.Context, store *Store[S], cmd Command[S, R]) (R, error) {
	if cmd.Apply != nil {
		store.Update(cmd.Apply)
	}

	result, err := cmd.Confirm(ctx)
	if err != nil {
		slogctx.Debug(ctx, "Reverting optimistic update", "error", err)
		if cmd.Revert != nil {
			store.Update(cmd.Revert)
		}
		return result, err
	}

	if cmd.Commit != nil {
		store.Update(func(s S) S { return cmd.Commit(s, result) })
	}

	return result, nil
}
