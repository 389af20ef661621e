// Command autoplay logs in to a running game server and plays memory games
// with a perfect-memory player, optionally posting each score to the
// leaderboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/memory-match/logger"
)

func main() {
	cmd := &cli.Command{
		Name:  "autoplay",
		Usage: "play memory games against a game server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("AUTOPLAY_URL")},
			&cli.StringFlag{Name: "token", Usage: "bearer token; skips login", Sources: cli.EnvVars("AUTOPLAY_TOKEN")},
			&cli.StringFlag{Name: "username", Usage: "account to log in with", Sources: cli.EnvVars("AUTOPLAY_USERNAME")},
			&cli.StringFlag{Name: "password", Usage: "password of the account", Sources: cli.EnvVars("AUTOPLAY_PASSWORD")},
			&cli.StringFlag{Name: "config", Usage: "deck theme to play"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "number of games to play"},
			&cli.DurationFlag{Name: "delay", Usage: "pause after every move"},
			&cli.BoolFlag{Name: "save", Value: true, Usage: "save each score to the leaderboard"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "log level"},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Fatal("autoplay failed", "error", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger.Init(cmd.String("log-level"), "text")

	client := NewClient(cmd.String("url"), cmd.String("token"))
	if cmd.String("token") == "" {
		if cmd.String("username") == "" {
			return fmt.Errorf("either --token or --username is required")
		}
		if err := client.Login(ctx, cmd.String("username"), cmd.String("password")); err != nil {
			return err
		}
	}

	opts := Options{
		Config:    cmd.String("config"),
		Delay:     cmd.Duration("delay"),
		SaveScore: cmd.Bool("save"),
	}

	games := max(1, int(cmd.Int("games")))
	best := 0
	for i := 1; i <= games; i++ {
		res, err := Play(ctx, client, opts)
		if err != nil {
			return fmt.Errorf("game %d: %w", i, err)
		}
		line := fmt.Sprintf("game %d/%d: %d moves in %ds", i, games, res.Moves, res.Seconds)
		if res.Score != nil {
			line += fmt.Sprintf(", score %d", res.Score.Score)
			if res.Score.IsHighScore {
				line += " (new high score)"
			}
			best = max(best, res.Score.HighScore)
		}
		fmt.Fprintln(cmd.Root().Writer, line)
	}
	if best > 0 {
		fmt.Fprintf(cmd.Root().Writer, "high score: %d\n", best)
	}
	return nil
}
