package cards

import (
	"errors"
	"fmt"
)

// ErrInsufficientCards is returned when a deal needs more cards than the deck holds
var ErrInsufficientCards = errors.New("insufficient cards")

// StandardDeck builds the 52 card tokens, suit by suit
func StandardDeck() []string {
	deck := make([]string, 0, len(Suits)*len(Ranks))
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck = append(deck, rank+suit)
		}
	}
	return deck
}

// Deal hands out handSize consecutive cards to each of players seats in order.
// The cards left over are returned as remaining.
func Deal(deck []string, players, handSize int) (hands [][]string, remaining []string, err error) {
	if players < 0 || handSize <= 0 {
		return nil, nil, fmt.Errorf("cannot deal %d cards to %d players", handSize, players)
	}

	need := players * handSize
	if need > len(deck) {
		return nil, nil, fmt.Errorf("%w: need %d, deck has %d", ErrInsufficientCards, need, len(deck))
	}

	hands = make([][]string, players)
	for i := 0; i < players; i++ {
		hand := make([]string, handSize)
		copy(hand, deck[i*handSize:(i+1)*handSize])
		hands[i] = hand
	}
	remaining = append([]string{}, deck[need:]...)
	return hands, remaining, nil
}
