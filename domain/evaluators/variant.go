package evaluators

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownVariant is returned for game types the server does not run
var ErrUnknownVariant = errors.New("unknown game variant")

// Variant identifies a game type
type Variant string

const (
	VariantPoker   Variant = "poker"
	VariantQiuQiu  Variant = "qiuqiu"
	VariantSamgong Variant = "samgong"
)

// Variants lists every supported game type
var Variants = []Variant{VariantPoker, VariantQiuQiu, VariantSamgong}

// ParseVariant maps a client supplied game type to a Variant. "niu" is accepted
// as another name for qiuqiu.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "poker":
		return VariantPoker, nil
	case "qiuqiu", "niu":
		return VariantQiuQiu, nil
	case "samgong":
		return VariantSamgong, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
}

// HandSize is the number of cards dealt to each player, 0 for unknown variants
func (v Variant) HandSize() int {
	switch v {
	case VariantPoker:
		return PokerHandSize
	case VariantQiuQiu, VariantSamgong:
		return ThreeCardHandSize
	default:
		return 0
	}
}

// Evaluate ranks a hand under this variant's rules
func (v Variant) Evaluate(hand []string) (Evaluation, error) {
	switch v {
	case VariantPoker:
		return EvaluatePoker(hand)
	case VariantQiuQiu:
		return EvaluateNiu(hand)
	case VariantSamgong:
		return EvaluateSamgong(hand)
	default:
		return Evaluation{}, fmt.Errorf("%w: %q", ErrUnknownVariant, string(v))
	}
}

// Compare orders two evaluations of this variant. All variants share the
// rank-then-tiebreakers order.
func (v Variant) Compare(a, b Evaluation) int {
	return Compare(a, b)
}

// String returns the stored game type name
func (v Variant) String() string {
	return string(v)
}
