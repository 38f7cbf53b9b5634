package utils

import (
	"context"
	"fmt"

	"cardroom/domain/entities"
	"cardroom/domain/events"
	"cardroom/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RecordBalanceChange records a balance history entry and emits a BalanceChangedEvent.
// With a transactional publisher the event only leaves the process after commit.
func RecordBalanceChange(ctx context.Context, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher, history *entities.BalanceHistory) error {
	if err := history.ValidateTransaction(); err != nil {
		return fmt.Errorf("invalid balance change for %s: %w", history.Username, err)
	}
	if err := balanceHistoryRepo.Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	event := events.BalanceChangedEvent{
		Username:        history.Username,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		ChangeAmount:    history.ChangeAmount,
		TransactionType: history.TransactionType,
	}
	log.WithFields(log.Fields{
		"username":        event.Username,
		"oldBalance":      event.OldBalance,
		"newBalance":      event.NewBalance,
		"transactionType": event.TransactionType,
		"changeAmount":    event.ChangeAmount,
	}).Debug("Publishing BalanceChangedEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance changed event")
	}

	return nil
}

// ApplyBalanceChange adds delta to the user's balance and records the movement.
// A zero delta changes nothing and records nothing.
func ApplyBalanceChange(
	ctx context.Context,
	userRepo interfaces.UserRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	username string,
	delta int64,
	txType entities.TransactionType,
	relatedID string,
	metadata map[string]any,
) (int64, error) {
	if delta == 0 {
		user, err := userRepo.GetByUsername(ctx, username)
		if err != nil {
			return 0, fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return 0, entities.ErrUserNotFound
		}
		return user.Balance, nil
	}

	newBalance, err := userRepo.ChangeBalance(ctx, username, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to change balance for %s: %w", username, err)
	}

	history := &entities.BalanceHistory{
		Username:            username,
		BalanceBefore:       newBalance - delta,
		BalanceAfter:        newBalance,
		ChangeAmount:        delta,
		TransactionType:     txType,
		TransactionMetadata: metadata,
	}
	if relatedID != "" {
		history.RelatedID = &relatedID
	}
	if err := RecordBalanceChange(ctx, balanceHistoryRepo, eventPublisher, history); err != nil {
		return 0, err
	}

	return newBalance, nil
}
