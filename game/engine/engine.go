package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

var ErrCorruptState = errors.New("corrupt game state")

// NewGame deals a fresh game with pairCount pairs and returns it together
// with a new game identifier.
func NewGame(pairCount int) (string, *GameState, error) {
	cards, err := GenerateDeck(pairCount)
	if err != nil {
		return "", nil, err
	}
	return uuid.NewString(), newState(cards), nil
}

// NewGameFromConfig deals a fresh game using the symbols of a deck config.
// A nil config deals the default eight-pair deck.
func NewGameFromConfig(config *GameConfig) (string, *GameState, error) {
	if config == nil {
		return NewGame(DefaultPairCount)
	}
	if err := ValidateGameConfig(config); err != nil {
		return "", nil, err
	}

	cards, err := GenerateDeckFrom(config.DeckSymbols(), nil)
	if err != nil {
		return "", nil, err
	}
	return uuid.NewString(), newState(cards), nil
}

func newState(cards []Card) *GameState {
	return &GameState{
		Cards:        cards,
		TotalPairs:   len(cards) / 2,
		FlippedCards: []int{},
	}
}

// Flip turns card cardID face up and resolves the pair once two cards are
// tracked. Out-of-range ids, cards already face up or matched, and flips on
// a completed game leave the state untouched and return an empty outcome.
func (s *GameState) Flip(cardID int) FlipOutcome {
	if !s.CanFlip(cardID) {
		return FlipOutcome{}
	}

	s.Cards[cardID].IsFlipped = true
	s.FlippedCards = append(s.FlippedCards, cardID)

	if len(s.FlippedCards) < 2 {
		return FlipOutcome{}
	}

	s.Moves++
	first, second := s.FlippedCards[0], s.FlippedCards[1]
	s.FlippedCards = []int{}

	if s.Cards[first].Symbol != s.Cards[second].Symbol {
		return FlipOutcome{
			NoMatch:         true,
			CardsToFlipBack: []int{first, second},
		}
	}

	s.Cards[first].IsMatched = true
	s.Cards[second].IsMatched = true
	s.MatchedPairs++

	outcome := FlipOutcome{
		MatchFound:     true,
		MatchedCardIDs: []int{first, second},
	}

	if s.MatchedPairs >= s.TotalPairs {
		s.GameCompleted = true
		moves := s.Moves
		outcome.FinalMoves = &moves
	}

	return outcome
}

// CanFlip reports whether Flip(cardID) would change the state.
func (s *GameState) CanFlip(cardID int) bool {
	if s.GameCompleted || !s.HasCard(cardID) {
		return false
	}
	card := s.Cards[cardID]
	return !card.IsFlipped && !card.IsMatched
}

// HasCard reports whether cardID is a valid position on the board.
func (s *GameState) HasCard(cardID int) bool {
	return cardID >= 0 && cardID < len(s.Cards)
}

// ResetFlipped turns the given cards face down after a mismatch has been
// shown. Unknown ids are ignored. Matched cards stay face up.
func (s *GameState) ResetFlipped(cardIDs []int) {
	for _, id := range cardIDs {
		if !s.HasCard(id) || s.Cards[id].IsMatched {
			continue
		}
		s.Cards[id].IsFlipped = false
	}
}

// Clone returns a deep copy of the state.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Cards = slices.Clone(s.Cards)
	c.FlippedCards = slices.Clone(s.FlippedCards)
	if c.FlippedCards == nil {
		c.FlippedCards = []int{}
	}
	return &c
}

// Validate checks the invariants of a state read back from storage.
func (s *GameState) Validate() error {
	if s.TotalPairs < MinPairCount || len(s.Cards) != 2*s.TotalPairs {
		return fmt.Errorf("%w: %d cards for %d pairs", ErrCorruptState, len(s.Cards), s.TotalPairs)
	}
	if len(s.FlippedCards) > 1 {
		return fmt.Errorf("%w: %d unresolved flipped cards", ErrCorruptState, len(s.FlippedCards))
	}
	if s.MatchedPairs < 0 || s.MatchedPairs > s.TotalPairs {
		return fmt.Errorf("%w: matched_pairs %d of %d", ErrCorruptState, s.MatchedPairs, s.TotalPairs)
	}
	if s.GameCompleted != (s.MatchedPairs == s.TotalPairs) {
		return fmt.Errorf("%w: game_completed=%t with %d/%d pairs", ErrCorruptState, s.GameCompleted, s.MatchedPairs, s.TotalPairs)
	}

	counts := make(map[string]int, s.TotalPairs)
	matched := 0
	for i, card := range s.Cards {
		if card.ID != i {
			return fmt.Errorf("%w: card at %d has id %d", ErrCorruptState, i, card.ID)
		}
		if card.IsMatched {
			if !card.IsFlipped {
				return fmt.Errorf("%w: matched card %d is face down", ErrCorruptState, i)
			}
			matched++
		}
		counts[card.Symbol]++
	}
	for symbol, n := range counts {
		if n != 2 {
			return fmt.Errorf("%w: symbol %q appears %d times", ErrCorruptState, symbol, n)
		}
	}
	if matched != 2*s.MatchedPairs {
		return fmt.Errorf("%w: %d matched cards for %d pairs", ErrCorruptState, matched, s.MatchedPairs)
	}
	for _, id := range s.FlippedCards {
		if !s.HasCard(id) || !s.Cards[id].IsFlipped || s.Cards[id].IsMatched {
			return fmt.Errorf("%w: tracked card %d is not an open card", ErrCorruptState, id)
		}
	}
	return nil
}

// RemainingPairs returns the number of pairs still to be found.
func (s *GameState) RemainingPairs() int {
	return s.TotalPairs - s.MatchedPairs
}
