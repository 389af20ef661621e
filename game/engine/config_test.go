package engine

import (
	"reflect"
	"testing"
)

func createValidConfig() *GameConfig {
	return &GameConfig{
		Name:            "Test Config",
		Description:     "A valid test configuration",
		PairCount:       3,
		Symbols:         []string{"a.png", "b.png", "c.png", "d.png"},
		Penalties:       ScorePenalties{MovePenalty: 80, TimePenalty: 10},
		FlipBackDelayMs: 500,
	}
}

func TestValidateGameConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *GameConfig)
		wantErr bool
	}{
		{"valid", func(c *GameConfig) {}, false},
		{"nil symbols use generated tokens", func(c *GameConfig) { c.Symbols = nil }, false},
		{"missing name", func(c *GameConfig) { c.Name = "" }, true},
		{"negative pair count", func(c *GameConfig) { c.PairCount = -1 }, true},
		{"too many pairs", func(c *GameConfig) { c.PairCount = MaxPairCount + 1; c.Symbols = nil }, true},
		{"too few symbols", func(c *GameConfig) { c.PairCount = 5 }, true},
		{"duplicate symbol", func(c *GameConfig) { c.Symbols[1] = "a.png" }, true},
		{"empty symbol", func(c *GameConfig) { c.Symbols[2] = "" }, true},
		{"negative move penalty", func(c *GameConfig) { c.Penalties.MovePenalty = -1 }, true},
		{"negative time penalty", func(c *GameConfig) { c.Penalties.TimePenalty = -1 }, true},
		{"negative delay", func(c *GameConfig) { c.FlipBackDelayMs = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createValidConfig()
			tt.mutate(config)
			err := ValidateGameConfig(config)
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected valid config, got %v", err)
			}
		})
	}

	if err := ValidateGameConfig(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if err := ValidateGameConfig(config); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if config.Pairs() != DefaultPairCount {
		t.Errorf("Expected %d pairs, got %d", DefaultPairCount, config.Pairs())
	}
	if !reflect.DeepEqual(config.DeckSymbols(), DefaultSymbols) {
		t.Errorf("Expected default pictures, got %v", config.DeckSymbols())
	}

	config.Symbols[0] = "changed"
	if DefaultSymbols[0] == "changed" {
		t.Error("DefaultConfig must not share the DefaultSymbols slice")
	}
}

func TestGameConfig_Pairs(t *testing.T) {
	if got := (&GameConfig{PairCount: 4}).Pairs(); got != 4 {
		t.Errorf("Expected explicit pair count 4, got %d", got)
	}
	if got := (&GameConfig{Symbols: []string{"x", "y"}}).Pairs(); got != 2 {
		t.Errorf("Expected pair count from symbols 2, got %d", got)
	}
	if got := (&GameConfig{}).Pairs(); got != DefaultPairCount {
		t.Errorf("Expected default pair count, got %d", got)
	}
}

func TestGameConfig_DeckSymbols(t *testing.T) {
	config := createValidConfig()
	got := config.DeckSymbols()
	if !reflect.DeepEqual(got, []string{"a.png", "b.png", "c.png"}) {
		t.Errorf("Expected first three symbols, got %v", got)
	}

	got[0] = "mutated"
	if config.Symbols[0] != "a.png" {
		t.Error("DeckSymbols must return a copy")
	}
}

func TestGameConfig_EffectivePenalties(t *testing.T) {
	config := &GameConfig{Name: "x"}
	if got := config.EffectivePenalties(); got != DefaultPenalties {
		t.Errorf("Expected default penalties, got %+v", got)
	}

	config.Penalties.MovePenalty = 80
	got := config.EffectivePenalties()
	if got.MovePenalty != 80 || got.TimePenalty != DefaultTimePenalty {
		t.Errorf("Expected 80/%d, got %+v", DefaultTimePenalty, got)
	}
}

func TestGameConfig_FlipBackDelay(t *testing.T) {
	if got := (&GameConfig{}).FlipBackDelay(); got != DefaultFlipBackDelayMs {
		t.Errorf("Expected default delay, got %d", got)
	}
	if got := createValidConfig().FlipBackDelay(); got != 500 {
		t.Errorf("Expected 500, got %d", got)
	}
}
