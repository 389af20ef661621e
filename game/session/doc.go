// Package session stores the games of each browsing session.
//
// The session package implements:
//   - A Store interface (get, put and delete a record by session key)
//   - Memory, file and Redis backed stores with record expiry
//   - A Manager that deals games into a session and keeps at most a few
//
// Core Types:
//
// Record is everything kept for one session key: the games it holds, in
// creation order, and which one is active. Game pairs a game id with its
// engine.GameState.
//
// Capacity:
//
// A session keeps at most Capacity games (three by default). Adding a game
// to a full session evicts the oldest-created game, even if it was played
// more recently than the others.
//
// Concurrency:
//
// The Manager serializes every load, mutate and save cycle for one session
// key with a per-key mutex, so concurrent requests from the same browser
// cannot break the two-card flip invariant. Different sessions proceed in
// parallel. Stores hand out copies, so a state returned by the Manager can
// be read freely after the lock is released.
//
// Usage:
//
//	manager := session.NewManager(session.NewMemoryStore(session.DefaultTTL))
//
//	gameID, state, _ := engine.NewGame(engine.DefaultPairCount)
//	manager.AddGame(ctx, key, &session.Game{ID: gameID, State: state})
//
//	game, err := manager.UpdateActive(ctx, key, func(g *session.Game) error {
//		g.State.Flip(3)
//		return nil
//	})
package session
