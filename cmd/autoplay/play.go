package main

import (
	"context"
	"fmt"
	"time"

	"github.com/wricardo/memory-match/game/service"
	"github.com/wricardo/memory-match/game/solver"
	"github.com/wricardo/memory-match/logger"
)

// Result summarizes one finished game.
type Result struct {
	GameID  string
	Config  string
	Moves   int
	Seconds int
	Score   *service.ScoreResult
}

// Options control how a game is played.
type Options struct {
	Config string
	// Delay is waited after every move.
	Delay time.Duration
	// SaveScore posts the result to the leaderboard when the game is won.
	SaveScore bool
}

// Play starts a new game and plays it to completion with a perfect-memory
// player. The player only learns symbols from cards it flips.
func Play(ctx context.Context, c *Client, opts Options) (*Result, error) {
	started := time.Now()

	info, err := c.NewGame(ctx, opts.Config)
	if err != nil {
		return nil, err
	}
	state := info.GameState
	logger.Info("game started", "game_id", info.GameID, "config", info.Config, "pairs", state.TotalPairs)

	player := solver.NewPlayer(len(state.Cards))
	flip := func(id int) (*service.FlipResult, error) {
		result, err := c.Flip(ctx, id)
		if err != nil {
			return nil, err
		}
		if !result.GameState.HasCard(id) {
			return nil, fmt.Errorf("flip card %d: card missing from response", id)
		}
		player.Observe(id, result.Cards[id].Symbol)
		return result, nil
	}

	maxMoves := 2 * len(state.Cards)
	for moves := 0; !state.GameCompleted; moves++ {
		if moves >= maxMoves {
			return nil, fmt.Errorf("game %s not finished after %d moves", info.GameID, moves)
		}

		first, err := player.First()
		if err != nil {
			return nil, err
		}
		if _, err := flip(first); err != nil {
			return nil, err
		}

		second, err := player.Second(first)
		if err != nil {
			return nil, err
		}
		result, err := flip(second)
		if err != nil {
			return nil, err
		}
		state = result.GameState

		switch {
		case result.MatchFound:
			player.Matched(result.MatchedCardIDs...)
			logger.Debug("pair found", "cards", result.MatchedCardIDs, "matched", state.MatchedPairs, "total", state.TotalPairs)
		case result.NoMatch:
			if state, err = c.ResetFlipped(ctx, result.CardsToFlipBack); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("flip of card %d resolved nothing", second)
		}

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	res := &Result{
		GameID:  info.GameID,
		Config:  info.Config,
		Moves:   state.Moves,
		Seconds: int(time.Since(started).Seconds()),
	}
	logger.Info("game completed", "game_id", res.GameID, "moves", res.Moves, "seconds", res.Seconds)

	if opts.SaveScore {
		score, err := c.SaveScore(ctx, res.Moves, res.Seconds)
		if err != nil {
			return res, err
		}
		res.Score = score
	}
	return res, nil
}
