package session

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/memory-match/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrGameNotFound    = errors.New("game not found")
	ErrInvalidKey      = errors.New("invalid session key")
)

// DefaultTTL is how long an idle session record is kept.
const DefaultTTL = 24 * time.Hour

// Store persists session records by key. Implementations must return
// ErrSessionNotFound from Get for a missing or expired key, and must not
// retain the *Record passed to Put.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, key string) error
}

// Game is one dealt game held by a session.
type Game struct {
	ID        string            `json:"id"`
	Config    string            `json:"config,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	State     *engine.GameState `json:"state"`
}

// Record is everything stored for one browsing session. Games are kept in
// creation order, oldest first.
type Record struct {
	Key          string    `json:"key"`
	ActiveGameID string    `json:"active_game_id,omitempty"`
	Games        []*Game   `json:"games"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Game returns the game with the given id, or nil.
func (r *Record) Game(id string) *Game {
	for _, g := range r.Games {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// Active returns the game the session is currently playing, or nil.
func (r *Record) Active() *Game {
	if r.ActiveGameID == "" {
		return nil
	}
	return r.Game(r.ActiveGameID)
}

// validateRecord rejects records whose games fail the state invariants.
func validateRecord(rec *Record) error {
	for _, g := range rec.Games {
		if g == nil || g.State == nil {
			return engine.ErrCorruptState
		}
		if err := g.State.Validate(); err != nil {
			return err
		}
	}
	return nil
}
