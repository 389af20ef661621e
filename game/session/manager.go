package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/memory-match/game/engine"
)

// DefaultCapacity is the number of games a session keeps.
const DefaultCapacity = 3

// Manager handles the games of each browsing session on top of a Store.
// All mutations of one session key are serialized.
type Manager struct {
	store    Store
	capacity int
	locks    *keyedMutex
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithCapacity sets how many games a session keeps. Values below one are
// ignored.
func WithCapacity(n int) Option {
	return func(m *Manager) {
		if n >= 1 {
			m.capacity = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager backed by store
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		capacity: DefaultCapacity,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Capacity returns the per-session game limit.
func (m *Manager) Capacity() int {
	return m.capacity
}

// AddGame stores a freshly dealt game and makes it the active one. When the
// session already holds Capacity games the oldest-created ones are evicted,
// regardless of when they were last played. The evicted game ids are
// returned.
func (m *Manager) AddGame(ctx context.Context, key string, game *Game) ([]string, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	if game == nil || game.ID == "" || game.State == nil {
		return nil, fmt.Errorf("add game: %w", engine.ErrCorruptState)
	}

	unlock := m.locks.Lock(key)
	defer unlock()

	rec, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}

	if game.CreatedAt.IsZero() {
		game.CreatedAt = m.now()
	}
	rec.Games = append(rec.Games, &Game{
		ID:        game.ID,
		Config:    game.Config,
		CreatedAt: game.CreatedAt,
		State:     game.State.Clone(),
	})
	rec.ActiveGameID = game.ID

	var evicted []string
	for len(rec.Games) > m.capacity {
		evicted = append(evicted, rec.Games[0].ID)
		rec.Games = rec.Games[1:]
	}

	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}
	return evicted, nil
}

// Active returns a copy of the session's active game.
func (m *Manager) Active(ctx context.Context, key string) (*Game, error) {
	rec, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	g := rec.Active()
	if g == nil {
		return nil, ErrGameNotFound
	}
	return copyGame(g), nil
}

// Game returns a copy of one of the session's games by id.
func (m *Manager) Game(ctx context.Context, key, gameID string) (*Game, error) {
	rec, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	g := rec.Game(gameID)
	if g == nil {
		return nil, ErrGameNotFound
	}
	return copyGame(g), nil
}

// Games returns copies of the session's games, oldest first.
func (m *Manager) Games(ctx context.Context, key string) ([]*Game, error) {
	rec, err := m.store.Get(ctx, key)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	games := make([]*Game, 0, len(rec.Games))
	for _, g := range rec.Games {
		games = append(games, copyGame(g))
	}
	return games, nil
}

// UpdateActive runs fn on a copy of the active game and saves the result
// when fn returns nil. The load, fn and save happen under the session's
// lock, so two requests for one session never interleave.
func (m *Manager) UpdateActive(ctx context.Context, key string, fn func(g *Game) error) (*Game, error) {
	unlock := m.locks.Lock(key)
	defer unlock()

	rec, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	active := rec.Active()
	if active == nil {
		return nil, ErrGameNotFound
	}

	working := copyGame(active)
	if err := fn(working); err != nil {
		return nil, err
	}

	active.State = working.State.Clone()
	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}
	return working, nil
}

// Delete removes everything stored for the session.
func (m *Manager) Delete(ctx context.Context, key string) error {
	unlock := m.locks.Lock(key)
	defer unlock()

	return m.store.Delete(ctx, key)
}

func (m *Manager) load(ctx context.Context, key string) (*Record, error) {
	rec, err := m.store.Get(ctx, key)
	if errors.Is(err, ErrSessionNotFound) {
		return &Record{Key: key}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return rec, nil
}

func (m *Manager) save(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = m.now()
	if err := m.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func copyGame(g *Game) *Game {
	c := *g
	c.State = g.State.Clone()
	return &c
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
