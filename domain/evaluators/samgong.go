package evaluators

import "fmt"

// EvaluateSamgong ranks a three card samgong hand.
// Precedence: Triple, then three face cards, then the mod-10 point score.
// Unlike niu a zero score has no category of its own.
func EvaluateSamgong(hand []string) (Evaluation, error) {
	parsed, err := parseHand(hand, ThreeCardHandSize)
	if err != nil {
		return Evaluation{}, err
	}

	indexes := rankIndexes(parsed)
	if isTriple(indexes) {
		return Evaluation{Rank: Triple, Tiebreakers: []int{indexes[0]}, Label: "Samgong (Triple)"}, nil
	}
	if allFace(parsed) {
		return Evaluation{Rank: ThreeFace, Tiebreakers: descending(indexes), Label: "Samgong (Face)"}, nil
	}

	score := pointScore(parsed)
	tb := append([]int{score}, descending(indexes)...)
	return Evaluation{Rank: Score, Tiebreakers: tb, Label: fmt.Sprintf("Score: %d", score)}, nil
}
