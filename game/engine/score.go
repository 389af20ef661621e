package engine

// DefaultPenalties are the weights used when a deck config does not set them.
var DefaultPenalties = ScorePenalties{
	MovePenalty: DefaultMovePenalty,
	TimePenalty: DefaultTimePenalty,
}

// Score rates a finished game. Every move beyond the minimum (one per pair)
// and every elapsed second costs points; the result never drops below
// MinScore. Negative inputs count as zero.
func Score(moves, elapsedSeconds, totalPairs int, p ScorePenalties) int {
	extraMoves := max(0, max(0, moves)-max(0, totalPairs))

	score := MaxScore - penalty(extraMoves, p.MovePenalty) - penalty(elapsedSeconds, p.TimePenalty)
	return max(MinScore, score)
}

// penalty returns count*weight, saturating at MaxScore so arbitrarily large
// client-supplied counts cannot overflow.
func penalty(count, weight int) int {
	count, weight = max(0, count), max(0, weight)
	if count == 0 || weight == 0 {
		return 0
	}
	if count > MaxScore/weight {
		return MaxScore
	}
	return count * weight
}
