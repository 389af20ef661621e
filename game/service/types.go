package service

import (
	"github.com/wricardo/memory-match/game/engine"
)

// GameInfo describes the game a session is playing
type GameInfo struct {
	GameID          string            `json:"game_id"`
	Config          string            `json:"config,omitempty"`
	FlipBackDelayMs int               `json:"flip_back_delay_ms"`
	GameState       *engine.GameState `json:"game_state"`
}

// FlipResult is the game state merged with what the flip resolved. It
// serializes as one flat object.
type FlipResult struct {
	*engine.GameState
	engine.FlipOutcome
}

// ScoreResult is the outcome of saving a score
type ScoreResult struct {
	Score       int  `json:"score"`
	IsHighScore bool `json:"is_high_score"`
	HighScore   int  `json:"high_score"`
}

// ConfigInfo provides information about a deck theme
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use when starting a game
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	PairCount   int    `json:"pair_count"`
}

// Flip results reported to Metrics.
const (
	FlipOpen    = "open"
	FlipMatch   = "match"
	FlipNoMatch = "no_match"
	FlipIgnored = "ignored"
)
