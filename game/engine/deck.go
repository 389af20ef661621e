package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
)

var (
	ErrInvalidPairCount = errors.New("invalid pair count")
	ErrDuplicateSymbol  = errors.New("duplicate symbol")
)

// ShuffleFunc has the signature of rand.Shuffle so decks can be dealt with a
// seeded source in tests.
type ShuffleFunc func(n int, swap func(i, j int))

// DefaultSymbols are the card pictures shipped with the game.
var DefaultSymbols = []string{
	"static/images/card_pictures/card_picture_1.jpg",
	"static/images/card_pictures/card_picture_2.jpg",
	"static/images/card_pictures/card_picture_3.jpg",
	"static/images/card_pictures/card_picture_4.jpg",
	"static/images/card_pictures/card_picture_5.jpg",
	"static/images/card_pictures/card_picture_6.jpg",
	"static/images/card_pictures/card_picture_7.jpg",
	"static/images/card_pictures/card_picture_8.jpg",
}

// Symbols returns pairCount distinct symbols, using the default pictures first
// and letter tokens ("A", "B", ..., "A1", "B1", ...) after that.
func Symbols(pairCount int) []string {
	if pairCount <= 0 {
		return nil
	}

	symbols := make([]string, 0, pairCount)
	for i := 0; i < pairCount && i < len(DefaultSymbols); i++ {
		symbols = append(symbols, DefaultSymbols[i])
	}
	for i := 0; len(symbols) < pairCount; i++ {
		symbols = append(symbols, letterToken(i))
	}
	return symbols
}

func letterToken(i int) string {
	letter := string(rune('A' + i%26))
	if round := i / 26; round > 0 {
		return letter + strconv.Itoa(round)
	}
	return letter
}

// GenerateDeck deals a shuffled deck of 2*pairCount cards.
func GenerateDeck(pairCount int) ([]Card, error) {
	if pairCount < MinPairCount || pairCount > MaxPairCount {
		return nil, fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidPairCount, pairCount, MinPairCount, MaxPairCount)
	}
	return GenerateDeckFrom(Symbols(pairCount), rand.Shuffle)
}

// GenerateDeckFrom deals a deck from explicit symbols. Every symbol is
// duplicated before the whole sequence is shuffled, so any pairing of
// positions is equally likely. Ids are assigned after shuffling.
func GenerateDeckFrom(symbols []string, shuffle ShuffleFunc) ([]Card, error) {
	if len(symbols) < MinPairCount || len(symbols) > MaxPairCount {
		return nil, fmt.Errorf("%w: %d symbols", ErrInvalidPairCount, len(symbols))
	}

	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if s == "" {
			return nil, fmt.Errorf("%w: empty symbol", ErrInvalidPairCount)
		}
		if seen[s] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSymbol, s)
		}
		seen[s] = true
	}

	tokens := make([]string, 0, 2*len(symbols))
	for _, s := range symbols {
		tokens = append(tokens, s, s)
	}

	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	shuffle(len(tokens), func(i, j int) {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	})

	cards := make([]Card, len(tokens))
	for i, s := range tokens {
		cards[i] = Card{ID: i, Symbol: s}
	}
	return cards, nil
}
