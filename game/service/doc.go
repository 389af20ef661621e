// Package service provides the business logic layer for the memory match
// game.
//
// The service package implements:
//   - Dealing games into a browser session
//   - Flip and reset processing against the session's active game
//   - Score computation and high score keeping
//   - Deck theme lookup and image preloading
//
// Core Interfaces:
//
// GameService is the main service interface used by the HTTP, websocket and
// MCP transports. SessionManager stores each session's games,
// ConfigManager loads deck themes and ScoreRecorder keeps high scores.
//
// Architecture:
//
// The service layer sits between the transports and the game engine. The
// engine is pure: each call loads the active game under the session lock,
// applies the engine operation to a copy of the state and saves it. Illegal
// flips are not errors; the unchanged state is echoed back. Every change is
// published as an events.Event and counted in Metrics.
//
// Usage:
//
//	sessions := session.NewManager(session.NewMemoryStore(session.DefaultTTL))
//	configs, _ := config.NewManager("configs")
//	svc := service.NewGameService(sessions, configs, users)
//
//	info, err := svc.NewGame(ctx, sessionKey, "")
//	result, err := svc.FlipCard(ctx, sessionKey, 3)
//	if result.NoMatch {
//		svc.ResetFlippedCards(ctx, sessionKey, result.CardsToFlipBack)
//	}
package service
