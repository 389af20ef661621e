package service

import (
	"context"
	"errors"

	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/session"
)

var (
	ErrNoActiveGame      = errors.New("no active game")
	ErrInvalidCardID     = errors.New("invalid card ID")
	ErrInvalidScoreInput = errors.New("moves and seconds must not be negative")
	ErrUnknownConfig     = errors.New("unknown deck configuration")
)

// GameService defines all game-related operations. Every call is scoped to
// a session key: the games of one browser session are invisible to every
// other session.
type GameService interface {
	// Games
	NewGame(ctx context.Context, sessionKey, configName string) (*GameInfo, error)
	GetGame(ctx context.Context, sessionKey string) (*GameInfo, error)
	EndSession(ctx context.Context, sessionKey string) error

	// Play
	FlipCard(ctx context.Context, sessionKey string, cardID int) (*FlipResult, error)
	ResetFlippedCards(ctx context.Context, sessionKey string, cardIDs []int) (*engine.GameState, error)
	SaveScore(ctx context.Context, sessionKey string, userID int64, moves, seconds int) (*ScoreResult, error)

	// Configuration
	PreloadImages(ctx context.Context, configName string) ([]string, error)
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
}

// SessionManager stores the games of each session
type SessionManager interface {
	AddGame(ctx context.Context, key string, game *session.Game) ([]string, error)
	Active(ctx context.Context, key string) (*session.Game, error)
	UpdateActive(ctx context.Context, key string, fn func(g *session.Game) error) (*session.Game, error)
	Delete(ctx context.Context, key string) error
}

// ConfigManager handles deck theme loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
}

// ScoreRecorder keeps each user's high score.
type ScoreRecorder interface {
	RecordScore(ctx context.Context, userID int64, score int) (highScore int, improved bool, err error)
}

// Metrics receives game counters.
type Metrics interface {
	GameStarted(config string)
	CardFlipped(result string)
	GameCompleted(moves int)
	ScoreSaved(score int)
	GamesEvicted(n int)
}

type nopMetrics struct{}

func (nopMetrics) GameStarted(string) {}
func (nopMetrics) CardFlipped(string) {}
func (nopMetrics) GameCompleted(int)  {}
func (nopMetrics) ScoreSaved(int)     {}
func (nopMetrics) GamesEvicted(int)   {}
