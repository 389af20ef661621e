// Package solver implements a perfect-memory player for the memory game.
//
// A Player only knows what it has seen: the symbol of every card it has
// turned over. It never peeks at face-down cards, so it plays by the same
// rules as a human with flawless recall.
//
// Strategy:
//
//   - If two remembered cards share a symbol, flip them.
//   - Otherwise flip a card never seen before. If its symbol is already
//     remembered, complete the pair; otherwise flip another unseen card.
//
// Simulate runs a whole game against an engine.GameState and is used to
// estimate how many moves a deck takes when played well.
package solver
