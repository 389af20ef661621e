package engine

const (
	// DefaultPairCount is the number of pairs in a standard game.
	DefaultPairCount = 8

	// Validation constants
	MinPairCount = 1
	MaxPairCount = 64 // bounds the deck a client can have dealt and stored

	// Score constants
	MaxScore           = 10000
	MinScore           = 100
	DefaultMovePenalty = 50
	DefaultTimePenalty = 10

	// DefaultFlipBackDelayMs is how long the client shows a mismatched pair
	// before asking for it to be turned face down again.
	DefaultFlipBackDelayMs = 1000
)

// Card is a single card on the board. ID is its position in the dealt deck
// and stays stable for the lifetime of the game.
type Card struct {
	ID        int    `json:"id"`
	Symbol    string `json:"symbol"`
	IsFlipped bool   `json:"is_flipped"`
	IsMatched bool   `json:"is_matched"`
}

// GameState represents the complete state of one memory game
type GameState struct {
	Cards         []Card `json:"cards"`
	TotalPairs    int    `json:"total_pairs"`
	FlippedCards  []int  `json:"flipped_cards"`
	MatchedPairs  int    `json:"matched_pairs"`
	Moves         int    `json:"moves"`
	GameCompleted bool   `json:"game_completed"`
}

// FlipOutcome describes what a single flip resolved. It is empty when the flip
// was ignored or when it turned over the first card of a pair.
type FlipOutcome struct {
	MatchFound      bool  `json:"match_found,omitempty"`
	MatchedCardIDs  []int `json:"matched_card_ids,omitempty"`
	NoMatch         bool  `json:"no_match,omitempty"`
	CardsToFlipBack []int `json:"cards_to_flip_back,omitempty"`

	// FinalMoves is set only by the flip that completes the game.
	FinalMoves *int `json:"final_moves,omitempty"`
}

// IsEmpty reports whether the flip resolved nothing.
func (o FlipOutcome) IsEmpty() bool {
	return !o.MatchFound && !o.NoMatch
}

// Completed reports whether this flip finished the game.
func (o FlipOutcome) Completed() bool {
	return o.FinalMoves != nil
}

// ScorePenalties are the tunable weights of the score formula.
type ScorePenalties struct {
	MovePenalty int `json:"move_penalty" mapstructure:"move_penalty"`
	TimePenalty int `json:"time_penalty" mapstructure:"time_penalty"`
}

// GameConfig describes a deck theme: how many pairs are dealt, which symbols
// (usually image paths) they show and how scores are weighted.
type GameConfig struct {
	Name            string         `json:"name" mapstructure:"name"`
	Description     string         `json:"description" mapstructure:"description"`
	PairCount       int            `json:"pair_count" mapstructure:"pair_count"`
	Symbols         []string       `json:"symbols" mapstructure:"symbols"`
	Penalties       ScorePenalties `json:"penalties" mapstructure:"penalties"`
	FlipBackDelayMs int            `json:"flip_back_delay_ms" mapstructure:"flip_back_delay_ms"`
}
