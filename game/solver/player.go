package solver

import (
	"errors"
	"fmt"

	"github.com/wricardo/memory-match/game/engine"
)

var ErrNoCardLeft = errors.New("no card left to flip")

// Player remembers the cards it has seen and picks the next flip.
type Player struct {
	cardCount int
	seen      map[int]string
	matched   map[int]bool
}

// NewPlayer returns a player for a board of cardCount cards.
func NewPlayer(cardCount int) *Player {
	return &Player{
		cardCount: cardCount,
		seen:      make(map[int]string, cardCount),
		matched:   make(map[int]bool, cardCount),
	}
}

// Observe records the symbol shown by a card.
func (p *Player) Observe(cardID int, symbol string) {
	p.seen[cardID] = symbol
}

// Matched marks cards as removed from play.
func (p *Player) Matched(cardIDs ...int) {
	for _, id := range cardIDs {
		p.matched[id] = true
	}
}

// Done reports whether every card has been matched.
func (p *Player) Done() bool {
	return len(p.matched) >= p.cardCount
}

// First picks the first card of a move.
func (p *Player) First() (int, error) {
	if a, _, ok := p.knownPair(); ok {
		return a, nil
	}
	return p.unseen(-1)
}

// Second picks the card to pair with first, which must have been observed.
func (p *Player) Second(first int) (int, error) {
	symbol, ok := p.seen[first]
	if !ok {
		return 0, fmt.Errorf("card %d was not observed", first)
	}
	for id := 0; id < p.cardCount; id++ {
		if id == first || p.matched[id] {
			continue
		}
		if s, known := p.seen[id]; known && s == symbol {
			return id, nil
		}
	}
	return p.unseen(first)
}

// knownPair returns two remembered, unmatched cards with the same symbol.
func (p *Player) knownPair() (int, int, bool) {
	bySymbol := make(map[string]int)
	for id := 0; id < p.cardCount; id++ {
		symbol, ok := p.seen[id]
		if !ok || p.matched[id] {
			continue
		}
		if other, dup := bySymbol[symbol]; dup {
			return other, id, true
		}
		bySymbol[symbol] = id
	}
	return 0, 0, false
}

// unseen returns the lowest card id never observed. When every card has been
// seen it falls back to any unmatched card other than skip.
func (p *Player) unseen(skip int) (int, error) {
	fallback := -1
	for id := 0; id < p.cardCount; id++ {
		if id == skip || p.matched[id] {
			continue
		}
		if _, ok := p.seen[id]; !ok {
			return id, nil
		}
		if fallback < 0 {
			fallback = id
		}
	}
	if fallback < 0 {
		return 0, ErrNoCardLeft
	}
	return fallback, nil
}

// Simulate plays state to completion and returns the number of moves taken.
// Mismatched pairs are turned face down right away. The state is modified.
func Simulate(state *engine.GameState) (int, error) {
	p := NewPlayer(len(state.Cards))

	flip := func(id int) engine.FlipOutcome {
		outcome := state.Flip(id)
		p.Observe(id, state.Cards[id].Symbol)
		return outcome
	}

	for !state.GameCompleted {
		first, err := p.First()
		if err != nil {
			return state.Moves, err
		}
		flip(first)

		second, err := p.Second(first)
		if err != nil {
			return state.Moves, err
		}
		outcome := flip(second)

		switch {
		case outcome.MatchFound:
			p.Matched(outcome.MatchedCardIDs...)
		case outcome.NoMatch:
			state.ResetFlipped(outcome.CardsToFlipBack)
		default:
			return state.Moves, fmt.Errorf("flip of card %d resolved nothing", second)
		}
	}
	return state.Moves, nil
}
