package cards

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidCard is returned for tokens that are not <rank><suit>
var ErrInvalidCard = errors.New("invalid card")

// Suits in deck construction order
var Suits = []string{"♠", "♥", "♦", "♣"}

// Ranks in deck construction order
var Ranks = []string{"A", "K", "Q", "J", "10", "9", "8", "7", "6", "5", "4", "3", "2"}

// rankIndex maps a rank to its position in A,2,...,10,J,Q,K
var rankIndex = map[string]int{
	"A": 0, "2": 1, "3": 2, "4": 3, "5": 4, "6": 5, "7": 6,
	"8": 7, "9": 8, "10": 9, "J": 10, "Q": 11, "K": 12,
}

// Card is a parsed card token such as "10♥"
type Card struct {
	Rank string
	Suit string
}

// Parse splits a card token into rank and suit
func Parse(token string) (Card, error) {
	r, size := utf8.DecodeLastRuneInString(token)
	if r == utf8.RuneError || size >= len(token) {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, token)
	}

	card := Card{Rank: token[:len(token)-size], Suit: token[len(token)-size:]}
	if _, ok := rankIndex[card.Rank]; !ok {
		return Card{}, fmt.Errorf("%w: unknown rank in %q", ErrInvalidCard, token)
	}
	if !isSuit(card.Suit) {
		return Card{}, fmt.Errorf("%w: unknown suit in %q", ErrInvalidCard, token)
	}
	return card, nil
}

// ParseHand parses every token of a hand
func ParseHand(tokens []string) ([]Card, error) {
	hand := make([]Card, 0, len(tokens))
	for _, token := range tokens {
		card, err := Parse(token)
		if err != nil {
			return nil, err
		}
		hand = append(hand, card)
	}
	return hand, nil
}

// Index is the rank position with Ace low: A=0, 2=1, ..., K=12
func (c Card) Index() int {
	return rankIndex[c.Rank]
}

// Value is the poker rank value with Ace high: 2..10, J=11, Q=12, K=13, A=14
func (c Card) Value() int {
	if c.Rank == "A" {
		return 14
	}
	return c.Index() + 1
}

// IsFace reports whether the card is a J, Q or K
func (c Card) IsFace() bool {
	return c.Index() >= 10
}

// String returns the card token
func (c Card) String() string {
	return c.Rank + c.Suit
}

func isSuit(s string) bool {
	for _, suit := range Suits {
		if s == suit {
			return true
		}
	}
	return false
}
