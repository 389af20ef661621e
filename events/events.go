package events

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/memory-match/game/engine"
)

// Type names a game event.
type Type string

const (
	GameStarted   Type = "game_started"
	CardFlipped   Type = "card_flipped"
	MatchFound    Type = "match_found"
	NoMatch       Type = "no_match"
	CardsReset    Type = "cards_reset"
	GameCompleted Type = "game_completed"
	ScoreSaved    Type = "score_saved"
)

// Event is something that happened in one session's game.
type Event struct {
	Type       Type              `json:"type"`
	SessionKey string            `json:"-"`
	GameID     string            `json:"game_id"`
	UserID     int64             `json:"user_id,omitempty"`
	CardIDs    []int             `json:"card_ids,omitempty"`
	Moves      int               `json:"moves"`
	Score      int               `json:"score,omitempty"`
	HighScore  bool              `json:"high_score,omitempty"`
	State      *engine.GameState `json:"state,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Publisher delivers events. Publish must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes each event to every publisher in order and joins their
// errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
