package services

import (
	"context"
	"fmt"
	"reflect"

	"cardroom/domain/cards"
	"cardroom/domain/entities"
	"cardroom/domain/evaluators"
	"cardroom/domain/interfaces"
)

const defaultListLimit = 50

// roundQueryService implements the read and audit surface over settled rounds
type roundQueryService struct {
	roundRepo    interfaces.RoundRepository
	refundRepo   interfaces.RefundEventRepository
	commitSecret string
}

// NewRoundQueryService creates a new round query service
func NewRoundQueryService(
	roundRepo interfaces.RoundRepository,
	refundRepo interfaces.RefundEventRepository,
	commitSecret string,
) interfaces.RoundQueryService {
	return &roundQueryService{
		roundRepo:    roundRepo,
		refundRepo:   refundRepo,
		commitSecret: commitSecret,
	}
}

// GetRound retrieves a round with its payouts
func (s *roundQueryService) GetRound(ctx context.Context, id string) (*entities.Round, error) {
	round, err := s.roundRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, entities.ErrRoundNotFound
	}
	return round, nil
}

// ListRounds returns rounds newest first
func (s *roundQueryService) ListRounds(ctx context.Context, limit int) ([]*entities.Round, error) {
	rounds, err := s.roundRepo.List(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return rounds, nil
}

// ListRoundsByRoom returns a room's rounds newest first
func (s *roundQueryService) ListRoundsByRoom(ctx context.Context, roomID string, limit int) ([]*entities.Round, error) {
	rounds, err := s.roundRepo.ListByRoom(ctx, roomID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds for room: %w", err)
	}
	return rounds, nil
}

// ListRefunds returns refund events newest first
func (s *roundQueryService) ListRefunds(ctx context.Context, limit int) ([]*entities.RefundEvent, error) {
	refunds, err := s.refundRepo.List(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	return refunds, nil
}

// ListRefundsByRoom returns one room's refund events newest first
func (s *roundQueryService) ListRefundsByRoom(ctx context.Context, roomID string, limit int) ([]*entities.RefundEvent, error) {
	refunds, err := s.refundRepo.ListByRoom(ctx, roomID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds for room %s: %w", roomID, err)
	}
	return refunds, nil
}

// VerifyRound replays the stored seed through the shuffle and re-derives deals,
// evaluations, winners and payouts
func (s *roundQueryService) VerifyRound(ctx context.Context, id string) (*interfaces.RoundVerification, error) {
	round, err := s.GetRound(ctx, id)
	if err != nil {
		return nil, err
	}
	return ReplayRound(round, s.commitSecret)
}

// ReplayRound checks a round record against a fresh replay of its seed.
// The commitment is only checked when secret is non-empty.
func ReplayRound(round *entities.Round, secret string) (*interfaces.RoundVerification, error) {
	handSize := round.Variant.HandSize()
	if handSize == 0 {
		return nil, fmt.Errorf("%w: %q", evaluators.ErrUnknownVariant, string(round.Variant))
	}

	deck := cards.Shuffle(cards.StandardDeck(), round.Seed)
	hands, _, err := cards.Deal(deck, len(round.Members), handSize)
	if err != nil {
		return nil, err
	}

	v := &interfaces.RoundVerification{
		RoundID:       round.ID,
		ReplayedDeals: make(map[string][]string, len(round.Members)),
		Evaluations:   make(map[string]evaluators.Evaluation, len(round.Members)),
	}
	for i, username := range round.Members {
		v.ReplayedDeals[username] = hands[i]
		eval, err := round.Variant.Evaluate(hands[i])
		if err != nil {
			return nil, err
		}
		v.Evaluations[username] = eval
	}
	v.ReplayedWinners = SelectWinners(round.Members, v.Evaluations, evaluators.Compare)

	v.DealsMatch = reflect.DeepEqual(v.ReplayedDeals, round.Deals)
	v.EvaluationsMatch = evaluationsEqual(v.Evaluations, round.Evaluations)
	v.WinnersMatch = reflect.DeepEqual(v.ReplayedWinners, round.Winners)

	share, _ := SplitPot(round.Pot, len(v.ReplayedWinners))
	v.PayoutsMatch = true
	for _, username := range v.ReplayedWinners {
		if share > 0 && round.PayoutFor(username) != share {
			v.PayoutsMatch = false
		}
	}
	if round.TotalPayout() != share*int64(len(v.ReplayedWinners)) {
		v.PayoutsMatch = false
	}

	if secret != "" && round.SeedCommitment != "" {
		v.CommitmentChecked = true
		v.CommitmentMatch = cards.CommitSeed(round.Seed, secret) == round.SeedCommitment
	}

	return v, nil
}

// evaluationsEqual compares evaluations by rank, label and tiebreakers, treating nil and empty alike
func evaluationsEqual(a, b map[string]evaluators.Evaluation) bool {
	if len(a) != len(b) {
		return false
	}
	for username, ea := range a {
		eb, ok := b[username]
		if !ok || ea.Rank != eb.Rank || ea.Label != eb.Label || len(ea.Tiebreakers) != len(eb.Tiebreakers) {
			return false
		}
		for i := range ea.Tiebreakers {
			if ea.Tiebreakers[i] != eb.Tiebreakers[i] {
				return false
			}
		}
	}
	return true
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
