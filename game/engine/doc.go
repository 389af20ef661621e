// Package engine provides the core game logic for the memory match game.
//
// The engine package implements:
//   - Deck generation: pairs of symbols dealt in a uniformly shuffled order
//   - The flip state machine: revealing cards, resolving pairs, completion
//   - The two-phase flip back of mismatched pairs
//   - Score computation for finished games
//   - Deck configuration validation
//
// Core Types:
//
// GameState is the complete state of one game and is owned by the caller;
// Flip and ResetFlipped mutate it in place and never keep a reference to it.
// FlipOutcome describes what a flip resolved so the caller can render the
// event without diffing states. GameConfig describes a deck theme.
//
// Usage:
//
//	gameID, state, err := engine.NewGame(engine.DefaultPairCount)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	state.Flip(0)
//	outcome := state.Flip(5)
//	if outcome.NoMatch {
//		// show the cards, then:
//		state.ResetFlipped(outcome.CardsToFlipBack)
//	}
//
// Game Rules:
//
// A move is two flips. Matching cards stay face up for the rest of the game.
// A mismatched pair stays face up until the caller resets it, which gives the
// UI time to show both cards. The game is complete when every pair is found;
// flips after that are ignored.
package engine
