package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/wricardo/memory-match/events"
	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/session"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	scores    ScoreRecorder
	publisher events.Publisher
	metrics   Metrics
	log       *slog.Logger
	now       func() time.Time
}

// Option configures the game service.
type Option func(*gameServiceImpl)

// WithPublisher sends game events to p.
func WithPublisher(p events.Publisher) Option {
	return func(s *gameServiceImpl) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMetrics reports game counters to m.
func WithMetrics(m Metrics) Option {
	return func(s *gameServiceImpl) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *gameServiceImpl) {
		if log != nil {
			s.log = log
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, scores ScoreRecorder, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:  sessions,
		configs:   configs,
		scores:    scores,
		publisher: events.Nop{},
		metrics:   nopMetrics{},
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewGame deals a fresh game and makes it the session's active game
func (s *gameServiceImpl) NewGame(ctx context.Context, sessionKey, configName string) (*GameInfo, error) {
	config, err := s.resolveConfig(configName)
	if err != nil {
		return nil, err
	}

	gameID, state, err := engine.NewGameFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to deal game: %w", err)
	}

	evicted, err := s.sessions.AddGame(ctx, sessionKey, &session.Game{
		ID:     gameID,
		Config: configName,
		State:  state,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store game: %w", err)
	}

	s.metrics.GameStarted(configName)
	if len(evicted) > 0 {
		s.metrics.GamesEvicted(len(evicted))
	}
	s.log.InfoContext(ctx, "game started",
		"game_id", gameID, "config", config.Name, "pairs", state.TotalPairs, "evicted", len(evicted))
	s.publish(ctx, events.Event{
		Type:       events.GameStarted,
		SessionKey: sessionKey,
		GameID:     gameID,
		State:      state,
	})

	return &GameInfo{
		GameID:          gameID,
		Config:          configName,
		FlipBackDelayMs: config.FlipBackDelay(),
		GameState:       state,
	}, nil
}

// GetGame returns the session's active game
func (s *gameServiceImpl) GetGame(ctx context.Context, sessionKey string) (*GameInfo, error) {
	game, err := s.sessions.Active(ctx, sessionKey)
	if err != nil {
		return nil, noActiveGame(err)
	}

	delay := engine.DefaultFlipBackDelayMs
	if config, err := s.resolveConfig(game.Config); err == nil {
		delay = config.FlipBackDelay()
	}

	return &GameInfo{
		GameID:          game.ID,
		Config:          game.Config,
		FlipBackDelayMs: delay,
		GameState:       game.State,
	}, nil
}

// EndSession forgets every game of the session
func (s *gameServiceImpl) EndSession(ctx context.Context, sessionKey string) error {
	err := s.sessions.Delete(ctx, sessionKey)
	if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		return err
	}
	return nil
}

// FlipCard flips one card of the active game. Card ids outside the board
// are rejected; flips the game ignores (a face up card, a finished game)
// echo the unchanged state.
func (s *gameServiceImpl) FlipCard(ctx context.Context, sessionKey string, cardID int) (*FlipResult, error) {
	var (
		outcome engine.FlipOutcome
		ignored bool
	)

	game, err := s.sessions.UpdateActive(ctx, sessionKey, func(g *session.Game) error {
		if !g.State.HasCard(cardID) {
			return ErrInvalidCardID
		}
		ignored = !g.State.CanFlip(cardID)
		outcome = g.State.Flip(cardID)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCardID) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidCardID, cardID)
		}
		return nil, noActiveGame(err)
	}

	ev := events.Event{
		SessionKey: sessionKey,
		GameID:     game.ID,
		Moves:      game.State.Moves,
		State:      game.State,
	}

	switch {
	case ignored:
		s.metrics.CardFlipped(FlipIgnored)
		return &FlipResult{GameState: game.State}, nil
	case outcome.MatchFound:
		s.metrics.CardFlipped(FlipMatch)
		ev.Type = events.MatchFound
		ev.CardIDs = outcome.MatchedCardIDs
	case outcome.NoMatch:
		s.metrics.CardFlipped(FlipNoMatch)
		ev.Type = events.NoMatch
		ev.CardIDs = outcome.CardsToFlipBack
	default:
		s.metrics.CardFlipped(FlipOpen)
		ev.Type = events.CardFlipped
		ev.CardIDs = []int{cardID}
	}
	s.publish(ctx, ev)

	if outcome.Completed() {
		s.metrics.GameCompleted(game.State.Moves)
		s.log.InfoContext(ctx, "game completed", "game_id", game.ID, "moves", game.State.Moves)
		ev.Type = events.GameCompleted
		ev.CardIDs = nil
		s.publish(ctx, ev)
	}

	return &FlipResult{GameState: game.State, FlipOutcome: outcome}, nil
}

// ResetFlippedCards turns a shown mismatch face down again
func (s *gameServiceImpl) ResetFlippedCards(ctx context.Context, sessionKey string, cardIDs []int) (*engine.GameState, error) {
	game, err := s.sessions.UpdateActive(ctx, sessionKey, func(g *session.Game) error {
		g.State.ResetFlipped(cardIDs)
		return nil
	})
	if err != nil {
		return nil, noActiveGame(err)
	}

	s.publish(ctx, events.Event{
		Type:       events.CardsReset,
		SessionKey: sessionKey,
		GameID:     game.ID,
		CardIDs:    cardIDs,
		Moves:      game.State.Moves,
		State:      game.State,
	})
	return game.State, nil
}

// SaveScore rates the given moves and seconds against the active game's
// pair count and keeps the result as the user's high score if it is one.
func (s *gameServiceImpl) SaveScore(ctx context.Context, sessionKey string, userID int64, moves, seconds int) (*ScoreResult, error) {
	if moves < 0 || seconds < 0 {
		return nil, ErrInvalidScoreInput
	}

	game, err := s.sessions.Active(ctx, sessionKey)
	if err != nil {
		return nil, noActiveGame(err)
	}

	penalties := engine.DefaultPenalties
	if config, err := s.resolveConfig(game.Config); err == nil {
		penalties = config.EffectivePenalties()
	}
	score := engine.Score(moves, seconds, game.State.TotalPairs, penalties)

	high, improved, err := s.scores.RecordScore(ctx, userID, score)
	if err != nil {
		return nil, fmt.Errorf("failed to record score: %w", err)
	}

	s.metrics.ScoreSaved(score)
	s.log.InfoContext(ctx, "score saved",
		"user_id", userID, "game_id", game.ID, "score", score, "high_score", high, "improved", improved)
	s.publish(ctx, events.Event{
		Type:       events.ScoreSaved,
		SessionKey: sessionKey,
		GameID:     game.ID,
		UserID:     userID,
		Moves:      moves,
		Score:      score,
		HighScore:  improved,
	})

	return &ScoreResult{Score: score, IsHighScore: improved, HighScore: high}, nil
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"}

// PreloadImages lists the card pictures of a deck theme so the browser can
// fetch them before the first flip. Text symbols are left out.
func (s *gameServiceImpl) PreloadImages(ctx context.Context, configName string) ([]string, error) {
	config, err := s.resolveConfig(configName)
	if err != nil {
		return nil, err
	}

	images := []string{}
	for _, symbol := range config.DeckSymbols() {
		ext := strings.ToLower(path.Ext(symbol))
		for _, img := range imageExtensions {
			if ext == img {
				images = append(images, symbol)
				break
			}
		}
	}
	return images, nil
}

// ListConfigs returns all available deck themes
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

func (s *gameServiceImpl) resolveConfig(name string) (*engine.GameConfig, error) {
	if name == "" {
		if config := s.configs.GetDefault(); config != nil {
			return config, nil
		}
		return engine.DefaultConfig(), nil
	}

	config, err := s.configs.LoadConfig(name)
	if err != nil {
		// Provide helpful error message with available options
		if available, listErr := s.configs.ListConfigs(); listErr == nil && len(available) > 0 {
			var ids []string
			for _, c := range available {
				ids = append(ids, c.ConfigID)
			}
			return nil, fmt.Errorf("%w %q (available: %s): %v", ErrUnknownConfig, name, strings.Join(ids, ", "), err)
		}
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownConfig, name, err)
	}
	return config, nil
}

func (s *gameServiceImpl) publish(ctx context.Context, ev events.Event) {
	ev.Timestamp = s.now().UTC()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "failed to publish game event", "type", ev.Type, "game_id", ev.GameID, "error", err)
	}
}

func noActiveGame(err error) error {
	if errors.Is(err, session.ErrGameNotFound) {
		return ErrNoActiveGame
	}
	return err
}
