package evaluators

import (
	"fmt"

	"cardroom/domain/cards"
)

// ThreeCardHandSize is the number of cards in niu and samgong hands
const ThreeCardHandSize = 3

// Three card categories, weakest first. Niu also uses QiuQiu for an exact zero.
const (
	Score     = 1
	QiuQiu    = 2
	ThreeFace = 3
	Triple    = 4
)

// EvaluateNiu ranks a three card niu ("qiuqiu") hand.
// Precedence: Triple, then Three-face, then a zero score, then plain score.
func EvaluateNiu(hand []string) (Evaluation, error) {
	parsed, err := parseHand(hand, ThreeCardHandSize)
	if err != nil {
		return Evaluation{}, err
	}

	indexes := rankIndexes(parsed)
	if isTriple(indexes) {
		return Evaluation{Rank: Triple, Tiebreakers: []int{indexes[0]}, Label: "Triple"}, nil
	}
	if allFace(parsed) {
		return Evaluation{Rank: ThreeFace, Tiebreakers: descending(indexes), Label: "Three-face"}, nil
	}

	score := pointScore(parsed)
	if score == 0 {
		return Evaluation{Rank: QiuQiu, Tiebreakers: descending(indexes), Label: "Qiu Qiu (0)"}, nil
	}
	tb := append([]int{score}, descending(indexes)...)
	return Evaluation{Rank: Score, Tiebreakers: tb, Label: fmt.Sprintf("Score: %d", score)}, nil
}

// pointValue caps face cards at 10 and counts the ace as 1
func pointValue(c cards.Card) int {
	if c.IsFace() {
		return 10
	}
	return c.Index() + 1
}

func pointScore(hand []cards.Card) int {
	sum := 0
	for _, c := range hand {
		sum += pointValue(c)
	}
	return sum % 10
}

func rankIndexes(hand []cards.Card) []int {
	out := make([]int, len(hand))
	for i, c := range hand {
		out[i] = c.Index()
	}
	return out
}

func isTriple(indexes []int) bool {
	return indexes[0] == indexes[1] && indexes[1] == indexes[2]
}

func allFace(hand []cards.Card) bool {
	for _, c := range hand {
		if !c.IsFace() {
			return false
		}
	}
	return true
}
