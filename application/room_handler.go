package application

import (
	"context"
	"errors"
	"fmt"

	"cardroom/domain/entities"
	"cardroom/domain/interfaces"
	"cardroom/domain/services"

	log "github.com/sirupsen/logrus"
)

// RoomHandler runs room and ledger operations, one unit of work each
type RoomHandler struct {
	uowFactory      UnitOfWorkFactory
	startingBalance int64
	metrics         Metrics
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(uowFactory UnitOfWorkFactory, startingBalance int64, metrics Metrics) *RoomHandler {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &RoomHandler{
		uowFactory:      uowFactory,
		startingBalance: startingBalance,
		metrics:         metrics,
	}
}

func (h *RoomHandler) roomService(uow UnitOfWork) interfaces.RoomService {
	return services.NewRoomService(
		uow.UserRepository(),
		uow.RoomRepository(),
		uow.RoomBetRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
	)
}

func (h *RoomHandler) ledgerService(uow UnitOfWork) interfaces.LedgerService {
	return services.NewLedgerService(
		uow.UserRepository(),
		uow.RoomBetRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
		h.startingBalance,
	)
}

// EnsureUser creates the account with the starting balance on first reference
func (h *RoomHandler) EnsureUser(ctx context.Context, username string) (*entities.User, error) {
	return inTransaction(ctx, h.uowFactory, h.metrics, "ensure_user", func(uow UnitOfWork) (*entities.User, error) {
		return h.ledgerService(uow).EnsureUser(ctx, username)
	})
}

// GetBalance returns the user's balance
func (h *RoomHandler) GetBalance(ctx context.Context, username string) (int64, error) {
	return inTransaction(ctx, h.uowFactory, h.metrics, "get_balance", func(uow UnitOfWork) (int64, error) {
		return h.ledgerService(uow).GetBalance(ctx, username)
	})
}

// GetBalanceHistory returns the user's ledger entries newest first
func (h *RoomHandler) GetBalanceHistory(ctx context.Context, username string, limit int) ([]*entities.BalanceHistory, error) {
	return inTransaction(ctx, h.uowFactory, h.metrics, "get_balance_history", func(uow UnitOfWork) ([]*entities.BalanceHistory, error) {
		return h.ledgerService(uow).GetHistory(ctx, username, limit)
	})
}

// CreateRoom creates a room hosted by host
func (h *RoomHandler) CreateRoom(ctx context.Context, host, name string) (*entities.Room, error) {
	room, err := inTransaction(ctx, h.uowFactory, h.metrics, "create_room", func(uow UnitOfWork) (*entities.Room, error) {
		return h.roomService(uow).CreateRoom(ctx, host, name)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"roomID": room.ID,
		"host":   host,
	}).Info("Room created")
	return room, nil
}

// JoinRoom adds username to the room
func (h *RoomHandler) JoinRoom(ctx context.Context, roomID, username string) (*entities.Room, error) {
	return inTransaction(ctx, h.uowFactory, h.metrics, "join_room", func(uow UnitOfWork) (*entities.Room, error) {
		return h.roomService(uow).JoinRoom(ctx, roomID, username)
	})
}

// LeaveRoom removes username from the room, returning nil when the room was destroyed
func (h *RoomHandler) LeaveRoom(ctx context.Context, roomID, username string) (*entities.Room, error) {
	return inTransaction(ctx, h.uowFactory, h.metrics, "leave_room", func(uow UnitOfWork) (*entities.Room, error) {
		return h.roomService(uow).LeaveRoom(ctx, roomID, username)
	})
}

// LeaveAllRooms removes username from every room it is in. Each room is left in
// its own unit of work so one failure does not keep the user in the others.
func (h *RoomHandler) LeaveAllRooms(ctx context.Context, username string) ([]string, error) {
	roomIDs, err := inTransaction(ctx, h.uowFactory, h.metrics, "rooms_of", func(uow UnitOfWork) ([]string, error) {
		return h.roomService(uow).RoomsOf(ctx, username)
	})
	if err != nil {
		return nil, err
	}

	left := make([]string, 0, len(roomIDs))
	var errs []error
	for _, roomID := range roomIDs {
		if _, err := h.LeaveRoom(ctx, roomID, username); err != nil {
			if errors.Is(err, entities.ErrRoomNotFound) {
				continue
			}
			log.WithFields(log.Fields{
				"roomID":   roomID,
				"username": username,
				"error":    err,
			}).Error("Failed to leave room on disconnect")
			errs = append(errs, fmt.Errorf("room %s: %w", roomID, err))
			continue
		}
		left = append(left, roomID)
	}
	return left, errors.Join(errs...)
}

// PlaceBet moves amount from the user's balance into their bet. Fractional amounts
// are truncated toward zero before validation.
func (h *RoomHandler) PlaceBet(ctx context.Context, roomID, username string, amount float64) (*entities.Room, error) {
	credits := entities.TruncateAmount(amount)
	room, err := inTransaction(ctx, h.uowFactory, h.metrics, "place_bet", func(uow UnitOfWork) (*entities.Room, error) {
		return h.roomService(uow).PlaceBet(ctx, roomID, username, credits)
	})
	if err != nil {
		return nil, err
	}

	h.metrics.RecordBetPlaced(credits)
	return room, nil
}

// GetRoom returns the room or entities.ErrRoomNotFound
func (h *RoomHandler) GetRoom(ctx context.Context, roomID string) (*entities.Room, error) {
	return inTransaction(ctx, h.uowFactory, h.metrics, "get_room", func(uow UnitOfWork) (*entities.Room, error) {
		return h.roomService(uow).GetRoom(ctx, roomID)
	})
}

// ListRooms returns every room newest first
func (h *RoomHandler) ListRooms(ctx context.Context) ([]*entities.Room, error) {
	return inTransaction(ctx, h.uowFactory, h.metrics, "list_rooms", func(uow UnitOfWork) ([]*entities.Room, error) {
		return h.roomService(uow).ListRooms(ctx)
	})
}
