package evaluators

import (
	"sort"
)

// PokerHandSize is the number of cards in a poker hand
const PokerHandSize = 5

// Poker hand categories, weakest first
const (
	HighCard = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

type rankGroup struct {
	value int
	count int
}

// EvaluatePoker ranks a five card hand
func EvaluatePoker(hand []string) (Evaluation, error) {
	parsed, err := parseHand(hand, PokerHandSize)
	if err != nil {
		return Evaluation{}, err
	}

	values := make([]int, 0, len(parsed))
	suits := make(map[string]struct{}, len(parsed))
	counts := make(map[int]int, len(parsed))
	for _, c := range parsed {
		values = append(values, c.Value())
		suits[c.Suit] = struct{}{}
		counts[c.Value()]++
	}
	sort.Ints(values)

	// Largest group first, higher value breaking ties
	groups := make([]rankGroup, 0, len(counts))
	for v, c := range counts {
		groups = append(groups, rankGroup{value: v, count: c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].value > groups[j].value
	})

	isFlush := len(suits) == 1
	isStraight, high := straightHigh(values)

	switch {
	case isStraight && isFlush:
		return Evaluation{Rank: StraightFlush, Tiebreakers: []int{high}, Label: "Straight Flush"}, nil
	case groups[0].count == 4:
		return Evaluation{Rank: FourOfAKind, Tiebreakers: []int{groups[0].value, groups[1].value}, Label: "Four of a Kind"}, nil
	case groups[0].count == 3 && len(groups) > 1 && groups[1].count == 2:
		return Evaluation{Rank: FullHouse, Tiebreakers: []int{groups[0].value, groups[1].value}, Label: "Full House"}, nil
	case isFlush:
		return Evaluation{Rank: Flush, Tiebreakers: descending(values), Label: "Flush"}, nil
	case isStraight:
		return Evaluation{Rank: Straight, Tiebreakers: []int{high}, Label: "Straight"}, nil
	case groups[0].count == 3:
		tb := append([]int{groups[0].value}, singles(groups)...)
		return Evaluation{Rank: ThreeOfAKind, Tiebreakers: tb, Label: "Three of a Kind"}, nil
	case groups[0].count == 2 && len(groups) > 1 && groups[1].count == 2:
		tb := []int{groups[0].value, groups[1].value}
		tb = append(tb, singles(groups)...)
		return Evaluation{Rank: TwoPair, Tiebreakers: tb, Label: "Two Pair"}, nil
	case groups[0].count == 2:
		tb := append([]int{groups[0].value}, singles(groups)...)
		return Evaluation{Rank: Pair, Tiebreakers: tb, Label: "Pair"}, nil
	default:
		return Evaluation{Rank: HighCard, Tiebreakers: descending(values), Label: "High Card"}, nil
	}
}

// straightHigh reports whether ascending values form a straight and its high card.
// A-2-3-4-5 plays the ace low, so the wheel's high card is 5.
func straightHigh(values []int) (bool, int) {
	consecutive := true
	for i := 0; i+1 < len(values); i++ {
		if values[i+1] != values[i]+1 {
			consecutive = false
			break
		}
	}
	if consecutive {
		return true, values[len(values)-1]
	}

	wheel := []int{2, 3, 4, 5, 14}
	for i, v := range wheel {
		if values[i] != v {
			return false, 0
		}
	}
	return true, 5
}

// singles returns the unpaired values of groups, highest first. groups is already
// sorted so singles come out descending.
func singles(groups []rankGroup) []int {
	var out []int
	for _, g := range groups {
		if g.count == 1 {
			out = append(out, g.value)
		}
	}
	return out
}
