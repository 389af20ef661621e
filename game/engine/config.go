package engine

import "fmt"

// DefaultConfig returns the classic eight-pair picture deck.
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Name:            "classic",
		Description:     "Eight pairs of pictures",
		PairCount:       DefaultPairCount,
		Symbols:         append([]string(nil), DefaultSymbols...),
		Penalties:       DefaultPenalties,
		FlipBackDelayMs: DefaultFlipBackDelayMs,
	}
}

// ValidateGameConfig validates a deck configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	pairs := config.Pairs()
	if pairs < MinPairCount || pairs > MaxPairCount {
		return fmt.Errorf("config validation: pair_count must be between %d and %d, got %d", MinPairCount, MaxPairCount, pairs)
	}

	if len(config.Symbols) > 0 {
		if len(config.Symbols) < pairs {
			return fmt.Errorf("config validation: %d symbols cannot fill %d pairs", len(config.Symbols), pairs)
		}
		seen := make(map[string]bool, len(config.Symbols))
		for i, s := range config.Symbols {
			if s == "" {
				return fmt.Errorf("config validation: symbols[%d] is empty", i)
			}
			if seen[s] {
				return fmt.Errorf("config validation: symbol %q is listed twice", s)
			}
			seen[s] = true
		}
	}

	if config.Penalties.MovePenalty < 0 || config.Penalties.TimePenalty < 0 {
		return fmt.Errorf("config validation: penalties must not be negative")
	}
	if config.FlipBackDelayMs < 0 {
		return fmt.Errorf("config validation: flip_back_delay_ms must not be negative")
	}

	return nil
}

// Pairs returns the number of pairs dealt. When pair_count is unset it is the
// number of listed symbols, or DefaultPairCount without symbols.
func (c *GameConfig) Pairs() int {
	if c.PairCount != 0 {
		return c.PairCount
	}
	if len(c.Symbols) > 0 {
		return len(c.Symbols)
	}
	return DefaultPairCount
}

// DeckSymbols returns the symbols a game with this config is dealt from.
func (c *GameConfig) DeckSymbols() []string {
	pairs := c.Pairs()
	if len(c.Symbols) == 0 {
		return Symbols(pairs)
	}
	return append([]string(nil), c.Symbols[:pairs]...)
}

// EffectivePenalties returns the score weights, with zero fields replaced by
// the defaults.
func (c *GameConfig) EffectivePenalties() ScorePenalties {
	p := c.Penalties
	if p.MovePenalty == 0 {
		p.MovePenalty = DefaultMovePenalty
	}
	if p.TimePenalty == 0 {
		p.TimePenalty = DefaultTimePenalty
	}
	return p
}

// FlipBackDelay returns the mismatch display delay in milliseconds.
func (c *GameConfig) FlipBackDelay() int {
	if c.FlipBackDelayMs == 0 {
		return DefaultFlipBackDelayMs
	}
	return c.FlipBackDelayMs
}
