// Package store is the per-user data store: five collections (classes, tasks,
// notes, contacts, events) held in memory while the user is signed in and
// written back whole to a durable slot on every mutation.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"skytrack/internal/logger"
	"skytrack/internal/slot"
)

var (
	ErrUnauthenticated = errors.New("no authenticated user")
	ErrNotFound        = errors.New("record not found")
	ErrCorrupt         = errors.New("corrupt slot")
)

type Store struct {
	slots   slot.Slots
	log     *logger.Logger
	now     func() time.Time
	newID   func() string
	observe Observer

	mu   sync.Mutex
	open map[string]*Workspace
}

type Option func(*Store)

// Observer is told about every add, update and remove, successful or not.
type Observer func(kind, op string, err error)

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observe = o }
}

// WithIDs replaces the record id generator.
func WithIDs(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func New(slots slot.Slots, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		slots:   slots,
		log:     log.WithComponent("store"),
		now:     time.Now,
		newID:   shortID,
		observe: func(string, string, error) {},
		open:    map[string]*Workspace{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ids are the first 12 hex digits of a random uuid; collisions within one
// collection are retried at insert time
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Open loads uid's collections if they are not loaded yet and returns the
// workspace. Opening an already open user is a no-op.
func (s *Store) Open(ctx context.Context, uid string) (*Workspace, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}
	s.mu.Lock()
	if w, ok := s.open[uid]; ok {
		s.mu.Unlock()
		return w, nil
	}
	s.mu.Unlock()

	w := s.newWorkspace(uid)
	if err := w.load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another login may have raced us here
	if existing, ok := s.open[uid]; ok {
		return existing, nil
	}
	s.open[uid] = w
	s.log.Infow("workspace opened", "user_id", uid)
	return w, nil
}

// Workspace returns uid's open workspace, or ErrUnauthenticated when the user
// has not signed in (or has signed out).
func (s *Store) Workspace(uid string) (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.open[uid]
	if !ok {
		return nil, ErrUnauthenticated
	}
	return w, nil
}

// Close clears uid's in-memory collections. Durable slots are untouched.
func (s *Store) Close(uid string) {
	s.mu.Lock()
	w, ok := s.open[uid]
	delete(s.open, uid)
	s.mu.Unlock()
	if ok {
		w.clear()
		s.log.Infow("workspace closed", "user_id", uid)
	}
}

// Export reads uid's collections straight from durable storage without
// opening a workspace.
func (s *Store) Export(ctx context.Context, uid string) (Snapshot, error) {
	if uid == "" {
		return Snapshot{}, ErrUnauthenticated
	}
	w := s.newWorkspace(uid)
	if err := w.load(ctx); err != nil {
		return Snapshot{}, err
	}
	return w.Snapshot(), nil
}

// OpenCount reports how many users currently have a workspace loaded.
func (s *Store) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}
