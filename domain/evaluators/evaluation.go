// Package evaluators ranks dealt hands for every supported game variant.
//
// Each evaluator is a pure function from a fixed-size hand of card tokens to an
// Evaluation. Evaluations of the same variant are totally ordered by Compare.
package evaluators

import (
	"errors"
	"fmt"
	"sort"

	"cardroom/domain/cards"
)

// ErrInvalidHandSize is returned when a hand does not hold the variant's card count
var ErrInvalidHandSize = errors.New("invalid hand size")

// Evaluation is the ranked result of one hand
type Evaluation struct {
	Rank        int    `json:"rank"`
	Tiebreakers []int  `json:"tiebreakers"`
	Label       string `json:"label"`
}

// Compare orders two evaluations: rank first, then tiebreakers left to right.
// Missing trailing tiebreakers count as 0. Returns -1, 0 or 1.
func Compare(a, b Evaluation) int {
	if a.Rank != b.Rank {
		if a.Rank > b.Rank {
			return 1
		}
		return -1
	}

	n := len(a.Tiebreakers)
	if len(b.Tiebreakers) > n {
		n = len(b.Tiebreakers)
	}
	for i := 0; i < n; i++ {
		av, bv := at(a.Tiebreakers, i), at(b.Tiebreakers, i)
		if av > bv {
			return 1
		}
		if av < bv {
			return -1
		}
	}
	return 0
}

func at(values []int, i int) int {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func parseHand(hand []string, size int) ([]cards.Card, error) {
	if len(hand) != size {
		return nil, fmt.Errorf("%w: expected %d cards, got %d", ErrInvalidHandSize, size, len(hand))
	}
	parsed, err := cards.ParseHand(hand)
	if err != nil {
		return nil, err
	}
	seen := make(map[cards.Card]struct{}, len(parsed))
	for _, card := range parsed {
		if _, dup := seen[card]; dup {
			return nil, fmt.Errorf("%w: duplicate card %s", cards.ErrInvalidCard, card)
		}
		seen[card] = struct{}{}
	}
	return parsed, nil
}

func descending(values []int) []int {
	out := append([]int{}, values...)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
