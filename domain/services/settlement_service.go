package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cardroom/domain/cards"
	"cardroom/domain/entities"
	"cardroom/domain/evaluators"
	"cardroom/domain/events"
	"cardroom/domain/interfaces"
	"cardroom/domain/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RoundStage is a state of the round settlement state machine
type RoundStage string

const (
	StageRequested  RoundStage = "requested"
	StageValidating RoundStage = "validating"
	StageDealing    RoundStage = "dealing"
	StageEvaluating RoundStage = "evaluating"
	StageSettling   RoundStage = "settling"
	StageCommitted  RoundStage = "committed"
	StageAborted    RoundStage = "aborted"
)

// SettlementError reports the stage a round attempt was in when it aborted
type SettlementError struct {
	Stage RoundStage
	Err   error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("round aborted at %s stage: %v", e.Stage, e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}

// SeedSource produces shuffle seeds
type SeedSource interface {
	NewSeed() (string, error)
}

// SeedSourceFunc adapts a function to SeedSource
type SeedSourceFunc func() (string, error)

// NewSeed calls f
func (f SeedSourceFunc) NewSeed() (string, error) {
	return f()
}

// CryptoSeedSource draws seeds from the operating system CSPRNG
var CryptoSeedSource SeedSource = SeedSourceFunc(cards.NewSeed)

// settlementService implements dealing and settling rounds
type settlementService struct {
	userRepo           interfaces.UserRepository
	roomRepo           interfaces.RoomRepository
	betRepo            interfaces.RoomBetRepository
	roundRepo          interfaces.RoundRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
	seeds              SeedSource
	commitSecret       string
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	userRepo interfaces.UserRepository,
	roomRepo interfaces.RoomRepository,
	betRepo interfaces.RoomBetRepository,
	roundRepo interfaces.RoundRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	seeds SeedSource,
	commitSecret string,
) interfaces.SettlementService {
	if seeds == nil {
		seeds = CryptoSeedSource
	}
	return &settlementService{
		userRepo:           userRepo,
		roomRepo:           roomRepo,
		betRepo:            betRepo,
		roundRepo:          roundRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
		seeds:              seeds,
		commitSecret:       commitSecret,
	}
}

// StartRound deals the variant to every member in join order, pays the winners and
// persists the round. The caller owns the transaction; on error nothing may be committed.
func (s *settlementService) StartRound(ctx context.Context, roomID, caller string, variant evaluators.Variant) (*entities.Round, error) {
	stage := StageValidating
	abort := func(err error) (*entities.Round, error) {
		log.WithFields(log.Fields{
			"roomID": roomID,
			"stage":  stage,
			"error":  err,
		}).Warn("Round aborted")
		return nil, &SettlementError{Stage: stage, Err: err}
	}

	handSize := variant.HandSize()
	if handSize == 0 {
		return abort(fmt.Errorf("%w: %q", evaluators.ErrUnknownVariant, string(variant)))
	}

	room, err := lockHostedRoom(ctx, s.roomRepo, roomID, caller)
	if err != nil {
		return abort(err)
	}

	members := append([]string(nil), room.Members...)
	snapshot := make(map[string]int64, len(room.Bets))
	for username, amount := range room.Bets {
		snapshot[username] = amount
	}

	stage = StageDealing
	seed, err := s.seeds.NewSeed()
	if err != nil {
		return abort(fmt.Errorf("failed to generate seed: %w", err))
	}
	deck := cards.Shuffle(cards.StandardDeck(), seed)
	hands, _, err := cards.Deal(deck, len(members), handSize)
	if err != nil {
		return abort(err)
	}
	deals := make(map[string][]string, len(members))
	for i, username := range members {
		deals[username] = hands[i]
	}

	stage = StageEvaluating
	evaluations := make(map[string]evaluators.Evaluation, len(members))
	for _, username := range members {
		eval, err := variant.Evaluate(deals[username])
		if err != nil {
			return abort(fmt.Errorf("failed to evaluate hand for %s: %w", username, err))
		}
		evaluations[username] = eval
	}
	winners := SelectWinners(members, evaluations, evaluators.Compare)

	stage = StageSettling
	var pot int64
	for _, amount := range snapshot {
		pot += amount
	}

	round := &entities.Round{
		ID:           uuid.NewString(),
		RoomID:       roomID,
		Variant:      variant,
		Seed:         seed,
		Members:      members,
		Deals:        deals,
		Evaluations:  evaluations,
		Winners:      winners,
		BetsSnapshot: snapshot,
		Pot:          pot,
		CreatedAt:    time.Now().UTC(),
	}
	if s.commitSecret != "" {
		round.SeedCommitment = cards.CommitSeed(seed, s.commitSecret)
	}

	share, remainder := SplitPot(pot, len(winners))
	if share > 0 {
		// Fixed order keeps row locks on users acquired consistently across rooms
		recipients := append([]string(nil), winners...)
		sort.Strings(recipients)
		for _, username := range recipients {
			metadata := map[string]any{
				"room_id":   roomID,
				"round_id":  round.ID,
				"pot":       pot,
				"winners":   len(winners),
				"game_type": string(variant),
			}
			if _, err := utils.ApplyBalanceChange(ctx, s.userRepo, s.balanceHistoryRepo, s.eventPublisher,
				username, share, entities.TransactionTypeRoundPayout, round.ID, metadata); err != nil {
				return abort(err)
			}
			round.Payouts = append(round.Payouts, entities.Payout{
				RoundID:  round.ID,
				Username: username,
				Amount:   share,
			})
		}
	}

	if err := s.betRepo.DeleteByRoom(ctx, roomID); err != nil {
		return abort(fmt.Errorf("failed to clear bets: %w", err))
	}
	if err := s.roundRepo.Create(ctx, round); err != nil {
		return abort(fmt.Errorf("failed to persist round: %w", err))
	}

	room.Bets = make(map[string]int64, len(members))
	log.WithFields(log.Fields{
		"roomID":    roomID,
		"roundID":   round.ID,
		"gameType":  variant,
		"pot":       pot,
		"winners":   winners,
		"share":     share,
		"remainder": remainder,
	}).Info("Round settled")

	if err := s.eventPublisher.Publish(events.RoundSettledEvent{Round: round}); err != nil {
		log.WithError(err).WithField("roundID", round.ID).Warn("Failed to publish round settled event")
	}
	publishRoomChanged(s.eventPublisher, roomID, room)

	return round, nil
}

// SelectWinners folds over order keeping the best evaluation seen so far.
// A strictly better hand restarts the winner set; an equal hand joins it.
func SelectWinners(order []string, evaluations map[string]evaluators.Evaluation, compare func(a, b evaluators.Evaluation) int) []string {
	var winners []string
	var best evaluators.Evaluation
	for _, username := range order {
		eval, ok := evaluations[username]
		if !ok {
			continue
		}
		if len(winners) == 0 {
			winners = []string{username}
			best = eval
			continue
		}
		switch c := compare(eval, best); {
		case c > 0:
			winners = []string{username}
			best = eval
		case c == 0:
			winners = append(winners, username)
		}
	}
	return winners
}

// SplitPot returns the equal share per winner and the undistributed remainder
func SplitPot(pot int64, winnerCount int) (share, remainder int64) {
	if winnerCount <= 0 || pot <= 0 {
		return 0, pot
	}
	share = pot / int64(winnerCount)
	remainder = pot - share*int64(winnerCount)
	return share, remainder
}
