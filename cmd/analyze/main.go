// Command analyze prints quick, human-readable statistics about the deck
// themes in a configs directory: board size, score weights and how many
// moves a perfect-memory player needs on average.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/memory-match/game/config"
	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/solver"
)

// Analysis summarizes one deck theme.
type Analysis struct {
	ConfigID        string
	Name            string
	Pairs           int
	Cards           int
	Penalties       engine.ScorePenalties
	FlipBackDelayMs int
	Games           int
	MinMoves        int
	MaxMoves        int
	AverageMoves    float64
}

// BestScore is the score of a game finished in the minimum number of moves
// with no time elapsed.
func (a Analysis) BestScore() int {
	return engine.Score(a.Pairs, 0, a.Pairs, a.Penalties)
}

// AverageScore is the score at the average move count, ignoring time.
func (a Analysis) AverageScore() int {
	return engine.Score(int(a.AverageMoves+0.5), 0, a.Pairs, a.Penalties)
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "print statistics about deck themes",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "games",
				Value: 200,
				Usage: "simulated games per theme",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				dir = "configs"
			}
			return analyzeDir(cmd.Root().Writer, dir, int(cmd.Int("games")))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}

// analyzeDir analyzes every valid theme of dir and writes a report to w.
func analyzeDir(w io.Writer, dir string, games int) error {
	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}
	infos, err := manager.ListConfigs()
	if err != nil {
		return err
	}

	for _, info := range infos {
		cfg, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			return err
		}
		a, err := analyze(info.ConfigID, cfg, games)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", info.ConfigID, err)
		}
		printAnalysis(w, a)
	}
	return nil
}

// analyze deals games decks from cfg and plays each with a perfect-memory
// player.
func analyze(id string, cfg *engine.GameConfig, games int) (Analysis, error) {
	a := Analysis{
		ConfigID:        id,
		Name:            cfg.Name,
		Pairs:           cfg.Pairs(),
		Cards:           2 * cfg.Pairs(),
		Penalties:       cfg.EffectivePenalties(),
		FlipBackDelayMs: cfg.FlipBackDelay(),
		Games:           max(1, games),
	}

	moves := make([]int, 0, a.Games)
	for i := 0; i < a.Games; i++ {
		_, state, err := engine.NewGameFromConfig(cfg)
		if err != nil {
			return a, err
		}
		n, err := solver.Simulate(state)
		if err != nil {
			return a, err
		}
		moves = append(moves, n)
	}

	total := 0
	for _, n := range moves {
		total += n
	}
	a.MinMoves = slices.Min(moves)
	a.MaxMoves = slices.Max(moves)
	a.AverageMoves = float64(total) / float64(len(moves))
	return a, nil
}

func printAnalysis(w io.Writer, a Analysis) {
	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", a.ConfigID)
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Pairs: %d (%d cards)\n", a.Pairs, a.Cards)
	fmt.Fprintf(w, "Penalties: %d per extra move, %d per second\n", a.Penalties.MovePenalty, a.Penalties.TimePenalty)
	fmt.Fprintf(w, "Flip back delay: %dms\n", a.FlipBackDelayMs)
	fmt.Fprintf(w, "Best score: %d\n", a.BestScore())
	fmt.Fprintf(w, "Perfect memory over %d games: min %d, max %d, avg %.1f moves\n", a.Games, a.MinMoves, a.MaxMoves, a.AverageMoves)
	fmt.Fprintf(w, "Score at average moves: %d\n", a.AverageScore())
}
