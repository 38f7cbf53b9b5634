package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/events"
	"cardroom/domain/interfaces"
	"cardroom/domain/utils"

	log "github.com/sirupsen/logrus"
)

// refundService returns stale bets from rooms that never settled
type refundService struct {
	userRepo           interfaces.UserRepository
	roomRepo           interfaces.RoomRepository
	betRepo            interfaces.RoomBetRepository
	refundRepo         interfaces.RefundEventRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
}

// NewRefundService creates a new refund service
func NewRefundService(
	userRepo interfaces.UserRepository,
	roomRepo interfaces.RoomRepository,
	betRepo interfaces.RoomBetRepository,
	refundRepo interfaces.RefundEventRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.RefundService {
	return &refundService{
		userRepo:           userRepo,
		roomRepo:           roomRepo,
		betRepo:            betRepo,
		refundRepo:         refundRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}
}

// IdleRooms returns ids of rooms created before cutoff that still hold positive bets
func (s *refundService) IdleRooms(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := s.roomRepo.ListIdleWithBets(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list idle rooms: %w", err)
	}
	return ids, nil
}

// RefundRoom credits every positive bet back to its owner and clears the room's bets.
// Bets are re-read under the room lock, so a room settled since it was listed refunds nothing.
func (s *refundService) RefundRoom(ctx context.Context, roomID string) ([]*entities.RefundEvent, error) {
	room, err := s.roomRepo.GetForUpdate(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock room: %w", err)
	}
	if room == nil {
		return nil, nil
	}

	bets, err := s.betRepo.GetPositiveBetsByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}
	if len(bets) == 0 {
		return nil, nil
	}

	bettors := make([]string, 0, len(bets))
	for username := range bets {
		bettors = append(bettors, username)
	}
	sort.Strings(bettors)

	refunds := make([]*entities.RefundEvent, 0, len(bettors))
	for _, username := range bettors {
		amount := bets[username]
		metadata := map[string]any{"room_id": roomID, "amount": amount}
		if _, err := utils.ApplyBalanceChange(ctx, s.userRepo, s.balanceHistoryRepo, s.eventPublisher,
			username, amount, entities.TransactionTypeAutoRefund, roomID, metadata); err != nil {
			return nil, err
		}

		refund := &entities.RefundEvent{
			RoomID:    roomID,
			Username:  username,
			Amount:    amount,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.refundRepo.Create(ctx, refund); err != nil {
			return nil, fmt.Errorf("failed to record refund: %w", err)
		}
		refunds = append(refunds, refund)
	}

	if err := s.betRepo.DeleteByRoom(ctx, roomID); err != nil {
		return nil, fmt.Errorf("failed to clear bets: %w", err)
	}
	room.Bets = make(map[string]int64, len(room.Members))

	for _, refund := range refunds {
		if err := s.eventPublisher.Publish(events.RefundIssuedEvent{
			RoomID:   refund.RoomID,
			Username: refund.Username,
			Amount:   refund.Amount,
		}); err != nil {
			log.WithError(err).WithField("roomID", roomID).Warn("Failed to publish refund event")
		}
	}
	publishRoomChanged(s.eventPublisher, roomID, room)

	return refunds, nil
}
