package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/events"
	"cardroom/domain/interfaces"
	"cardroom/domain/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// roomService implements room lifecycle, membership and betting
type roomService struct {
	userRepo           interfaces.UserRepository
	roomRepo           interfaces.RoomRepository
	betRepo            interfaces.RoomBetRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
}

// NewRoomService creates a new room service
func NewRoomService(
	userRepo interfaces.UserRepository,
	roomRepo interfaces.RoomRepository,
	betRepo interfaces.RoomBetRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.RoomService {
	return &roomService{
		userRepo:           userRepo,
		roomRepo:           roomRepo,
		betRepo:            betRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}
}

// NewRoomID returns a short random room identifier of the form room_<8 hex>
func NewRoomID() string {
	return "room_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// CreateRoom creates a room with host as its first member holding a zero bet
func (s *roomService) CreateRoom(ctx context.Context, host, name string) (*entities.Room, error) {
	if err := s.requireUser(ctx, host); err != nil {
		return nil, err
	}

	id := NewRoomID()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Room " + id
	}

	room := &entities.Room{
		ID:        id,
		Name:      name,
		Host:      host,
		Members:   []string{host},
		Bets:      map[string]int64{host: 0},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	if err := s.betRepo.SetBet(ctx, room.ID, host, 0); err != nil {
		return nil, fmt.Errorf("failed to initialize host bet: %w", err)
	}

	log.WithFields(log.Fields{
		"roomID": room.ID,
		"host":   host,
	}).Info("Room created")

	publishRoomChanged(s.eventPublisher, room.ID, room)
	return room, nil
}

// JoinRoom adds username to the room. Existing members are returned unchanged.
func (s *roomService) JoinRoom(ctx context.Context, roomID, username string) (*entities.Room, error) {
	room, err := s.lockRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsMember(username) {
		return room, nil
	}
	if err := s.requireUser(ctx, username); err != nil {
		return nil, err
	}

	if err := s.roomRepo.AddMember(ctx, roomID, username); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	if err := s.betRepo.SetBet(ctx, roomID, username, 0); err != nil {
		return nil, fmt.Errorf("failed to initialize bet: %w", err)
	}
	room.Members = append(room.Members, username)
	if room.Bets == nil {
		room.Bets = make(map[string]int64)
	}
	room.Bets[username] = 0

	publishRoomChanged(s.eventPublisher, room.ID, room)
	return room, nil
}

// LeaveRoom applies the member-left transition. An outstanding bet goes back to the leaver.
func (s *roomService) LeaveRoom(ctx context.Context, roomID, username string) (*entities.Room, error) {
	room, err := s.lockRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(username) {
		return room, nil
	}

	if bet := room.BetOf(username); bet > 0 {
		metadata := map[string]any{"room_id": roomID, "amount": bet}
		if _, err := utils.ApplyBalanceChange(ctx, s.userRepo, s.balanceHistoryRepo, s.eventPublisher,
			username, bet, entities.TransactionTypeBetReturned, roomID, metadata); err != nil {
			return nil, err
		}
	}
	if err := s.betRepo.DeleteBet(ctx, roomID, username); err != nil {
		return nil, fmt.Errorf("failed to delete bet: %w", err)
	}

	transition := room.MemberLeft(username)
	if transition.Destroyed {
		if err := s.roomRepo.Delete(ctx, roomID); err != nil {
			return nil, fmt.Errorf("failed to delete room: %w", err)
		}
		log.WithField("roomID", roomID).Info("Room destroyed after last member left")
		publishRoomChanged(s.eventPublisher, roomID, nil)
		return nil, nil
	}

	if err := s.roomRepo.RemoveMember(ctx, roomID, username); err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}
	if transition.HostChanged {
		if err := s.roomRepo.UpdateHost(ctx, roomID, transition.NewHost); err != nil {
			return nil, fmt.Errorf("failed to reassign host: %w", err)
		}
		log.WithFields(log.Fields{
			"roomID":  roomID,
			"oldHost": username,
			"newHost": transition.NewHost,
		}).Info("Room host reassigned")
	}

	room.Members = transition.Remaining
	room.Host = transition.NewHost
	delete(room.Bets, username)

	publishRoomChanged(s.eventPublisher, room.ID, room)
	return room, nil
}

// RoomsOf returns ids of rooms username has joined
func (s *roomService) RoomsOf(ctx context.Context, username string) ([]string, error) {
	ids, err := s.roomRepo.ListByMember(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms for member: %w", err)
	}
	return ids, nil
}

// GetRoom retrieves a room
func (s *roomService) GetRoom(ctx context.Context, roomID string) (*entities.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, entities.ErrRoomNotFound
	}
	return room, nil
}

// ListRooms returns all rooms newest first
func (s *roomService) ListRooms(ctx context.Context) ([]*entities.Room, error) {
	rooms, err := s.roomRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// EnsureHost locks the room and checks caller is its host
func (s *roomService) EnsureHost(ctx context.Context, roomID, caller string) (*entities.Room, error) {
	return lockHostedRoom(ctx, s.roomRepo, roomID, caller)
}

// PlaceBet debits amount from the user and adds it to their bet in the room
func (s *roomService) PlaceBet(ctx context.Context, roomID, username string, amount int64) (*entities.Room, error) {
	if amount <= 0 {
		return nil, entities.NewValidationError("amount", "bet must be a positive whole number")
	}

	room, err := s.lockRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(username) {
		return nil, entities.ErrNotMember
	}

	user, err := s.userRepo.GetForUpdate(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}
	if !user.CanAfford(amount) {
		return nil, fmt.Errorf("%w: have %d, need %d", entities.ErrInsufficientBalance, user.Balance, amount)
	}

	metadata := map[string]any{"room_id": roomID, "amount": amount}
	if _, err := utils.ApplyBalanceChange(ctx, s.userRepo, s.balanceHistoryRepo, s.eventPublisher,
		username, -amount, entities.TransactionTypeBetPlaced, roomID, metadata); err != nil {
		return nil, err
	}

	newBet := room.BetOf(username) + amount
	if err := s.betRepo.SetBet(ctx, roomID, username, newBet); err != nil {
		return nil, fmt.Errorf("failed to set bet: %w", err)
	}
	if room.Bets == nil {
		room.Bets = make(map[string]int64)
	}
	room.Bets[username] = newBet

	log.WithFields(log.Fields{
		"roomID":   roomID,
		"username": username,
		"amount":   amount,
		"totalBet": newBet,
	}).Debug("Bet placed")

	publishRoomChanged(s.eventPublisher, room.ID, room)
	return room, nil
}

func (s *roomService) lockRoom(ctx context.Context, roomID string) (*entities.Room, error) {
	return lockRoom(ctx, s.roomRepo, roomID)
}

func lockRoom(ctx context.Context, roomRepo interfaces.RoomRepository, roomID string) (*entities.Room, error) {
	room, err := roomRepo.GetForUpdate(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock room: %w", err)
	}
	if room == nil {
		return nil, entities.ErrRoomNotFound
	}
	return room, nil
}

// lockHostedRoom is the host check every host-only operation goes through,
// including round settlement.
func lockHostedRoom(ctx context.Context, roomRepo interfaces.RoomRepository, roomID, caller string) (*entities.Room, error) {
	room, err := lockRoom(ctx, roomRepo, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(caller) {
		return nil, entities.ErrNotHost
	}
	return room, nil
}

func (s *roomService) requireUser(ctx context.Context, username string) error {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return entities.ErrUserNotFound
	}
	return nil
}

// publishRoomChanged queues the room snapshot and a lobby refresh
func publishRoomChanged(publisher interfaces.EventPublisher, roomID string, room *entities.Room) {
	if err := publisher.Publish(events.RoomChangedEvent{RoomID: roomID, Room: room}); err != nil {
		log.WithError(err).WithField("roomID", roomID).Warn("Failed to publish room changed event")
	}
	if err := publisher.Publish(events.LobbyChangedEvent{RoomID: roomID}); err != nil {
		log.WithError(err).WithField("roomID", roomID).Warn("Failed to publish lobby changed event")
	}
}
