package services

import (
	"context"
	"fmt"

	"cardroom/domain/entities"
	"cardroom/domain/interfaces"
	"cardroom/domain/utils"

	log "github.com/sirupsen/logrus"
)

// ledgerService implements the balance and bet primitives
type ledgerService struct {
	userRepo           interfaces.UserRepository
	betRepo            interfaces.RoomBetRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
	startingBalance    int64
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	userRepo interfaces.UserRepository,
	betRepo interfaces.RoomBetRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	startingBalance int64,
) interfaces.LedgerService {
	return &ledgerService{
		userRepo:           userRepo,
		betRepo:            betRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
		startingBalance:    startingBalance,
	}
}

// EnsureUser returns the user, creating it with the starting balance on first reference
func (s *ledgerService) EnsureUser(ctx context.Context, username string) (*entities.User, error) {
	if username == "" {
		return nil, entities.NewValidationError("username", "must not be empty")
	}

	user, created, err := s.userRepo.EnsureUser(ctx, username, s.startingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	if created && s.startingBalance != 0 {
		history := &entities.BalanceHistory{
			Username:            username,
			BalanceBefore:       0,
			BalanceAfter:        s.startingBalance,
			ChangeAmount:        s.startingBalance,
			TransactionType:     entities.TransactionTypeInitial,
			TransactionMetadata: map[string]any{"username": username},
		}
		if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"username": username,
			"balance":  s.startingBalance,
		}).Info("Created user account")
	}

	return user, nil
}

// GetBalance returns the user's balance
func (s *ledgerService) GetBalance(ctx context.Context, username string) (int64, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, entities.ErrUserNotFound
	}
	return user.Balance, nil
}

// ChangeBalance applies delta and returns the new balance. Sufficiency checks belong to the caller.
func (s *ledgerService) ChangeBalance(ctx context.Context, username string, delta int64, txType entities.TransactionType, relatedID string, metadata map[string]any) (int64, error) {
	return utils.ApplyBalanceChange(ctx, s.userRepo, s.balanceHistoryRepo, s.eventPublisher, username, delta, txType, relatedID, metadata)
}

// SetBet stores the member's bet in a room
func (s *ledgerService) SetBet(ctx context.Context, roomID, username string, amount int64) error {
	if amount < 0 {
		return entities.NewValidationError("amount", "bet must not be negative")
	}
	if err := s.betRepo.SetBet(ctx, roomID, username, amount); err != nil {
		return fmt.Errorf("failed to set bet: %w", err)
	}
	return nil
}

// GetBet returns the member's bet in a room, 0 when none
func (s *ledgerService) GetBet(ctx context.Context, roomID, username string) (int64, error) {
	amount, err := s.betRepo.GetBet(ctx, roomID, username)
	if err != nil {
		return 0, fmt.Errorf("failed to get bet: %w", err)
	}
	return amount, nil
}

// GetHistory returns the user's ledger entries newest first
func (s *ledgerService) GetHistory(ctx context.Context, username string, limit int) ([]*entities.BalanceHistory, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	history, err := s.balanceHistoryRepo.GetByUser(ctx, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}
	return history, nil
}
