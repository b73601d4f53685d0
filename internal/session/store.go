// Package session persists one game session per conversation and serialises read-modify-write
// access per conversation id.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidKey = errors.New("conversation id required")
	// ErrConflict is returned when concurrent writers kept winning past the retry budget.
	ErrConflict = errors.New("session update contended, retry budget exhausted")
)

// Mutator receives the current session (nil when none exists) and returns the session to persist.
// Returning a nil session commits nothing. A returned error aborts the update and is passed back
// to the caller unchanged. fn may run more than once when a backend retries after contention, so it
// must not leak state from one run into the next.
type Mutator func(cur *Session) (*Session, error)

// Store is a durable mapping from conversation id to Session.
type Store interface {
	// Get returns the session for id, or nil when none exists.
	Get(ctx context.Context, conversationID string) (*Session, error)
	// Update runs fn against the latest committed session for id and commits its result atomically.
	// Concurrent updates of the same id are serialised: fn of a later writer observes the earlier
	// writer's result. When fn commits nothing the session as read is returned.
	Update(ctx context.Context, conversationID string, fn Mutator) (*Session, error)
	Close() error
}

const maxUpdateAttempts = 16

func normalizeKey(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidKey
	}
	return id, nil
}

func encode(s *Session) ([]byte, error) {
	s.syncCells()
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	s.syncBoard()
	return &s, nil
}

// apply runs fn on a private copy and pins the key of the result.
func apply(id string, cur *Session, fn Mutator) (*Session, error) {
	next, err := fn(cur.Clone())
	if err != nil || next == nil {
		return nil, err
	}
	next.ConversationID = id
	next.syncCells()
	return next, nil
}
