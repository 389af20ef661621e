package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wricardo/memory-match/game/engine"
)

func TestAnalyze(t *testing.T) {
	cfg := &engine.GameConfig{Name: "Tiny", Symbols: []string{"A", "B"}}

	a, err := analyze("tiny", cfg, 50)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if a.Pairs != 2 || a.Cards != 4 {
		t.Errorf("Expected 2 pairs and 4 cards, got %d and %d", a.Pairs, a.Cards)
	}
	if a.Games != 50 {
		t.Errorf("Expected 50 games, got %d", a.Games)
	}
	if a.MinMoves < 2 || a.MaxMoves > 3 || a.MinMoves > a.MaxMoves {
		t.Errorf("Expected moves within [2, 3], got min %d max %d", a.MinMoves, a.MaxMoves)
	}
	if a.AverageMoves < 2 || a.AverageMoves > 3 {
		t.Errorf("Expected average within [2, 3], got %f", a.AverageMoves)
	}
	if a.BestScore() != engine.MaxScore {
		t.Errorf("Expected best score %d, got %d", engine.MaxScore, a.BestScore())
	}
	if a.Penalties != engine.DefaultPenalties {
		t.Errorf("Expected default penalties, got %+v", a.Penalties)
	}
	if a.FlipBackDelayMs != engine.DefaultFlipBackDelayMs {
		t.Errorf("Expected default delay, got %d", a.FlipBackDelayMs)
	}
}

func TestAnalyze_AtLeastOneGame(t *testing.T) {
	a, err := analyze("tiny", &engine.GameConfig{Name: "Tiny", PairCount: 1}, 0)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a.Games != 1 || a.MinMoves != 1 {
		t.Errorf("Expected one game of one move, got %d games, %d moves", a.Games, a.MinMoves)
	}
}

func TestAnalyzeDir(t *testing.T) {
	var buf bytes.Buffer
	if err := analyzeDir(&buf, "../../configs", 10); err != nil {
		t.Fatalf("analyzeDir: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"=== Analyzing classic ===", "=== Analyzing quick ===", "Pairs: 4 (8 cards)", "Best score: 10000"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q\n%s", want, out)
		}
	}
}

func TestAnalyzeDir_MissingDir(t *testing.T) {
	var buf bytes.Buffer
	if err := analyzeDir(&buf, t.TempDir()+"/missing", 1); err == nil {
		t.Error("Expected error for missing directory")
	}
}
