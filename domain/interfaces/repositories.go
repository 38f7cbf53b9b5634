package interfaces

import (
	"context"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/events"
)

// UserRepository defines the interface for user data access.
// Getters return nil, nil when the user does not exist.
type UserRepository interface {
	// GetByUsername retrieves a user without locking
	GetByUsername(ctx context.Context, username string) (*entities.User, error)

	// GetForUpdate retrieves a user and locks the row until the transaction ends
	GetForUpdate(ctx context.Context, username string) (*entities.User, error)

	// EnsureUser returns the user, creating a player with initialBalance when absent.
	// created is true only for the call that inserted the row.
	EnsureUser(ctx context.Context, username string, initialBalance int64) (user *entities.User, created bool, err error)

	// ChangeBalance adds delta to the balance and returns the new balance.
	// Returns entities.ErrUserNotFound when the user does not exist.
	ChangeBalance(ctx context.Context, username string, delta int64) (int64, error)
}

// RoomRepository defines the interface for room and membership data access
type RoomRepository interface {
	// Create inserts a room and its host as the first member
	Create(ctx context.Context, room *entities.Room) error

	// GetByID retrieves a room with members in join order and its bets, nil when missing
	GetByID(ctx context.Context, id string) (*entities.Room, error)

	// GetForUpdate is GetByID with the room row locked until the transaction ends
	GetForUpdate(ctx context.Context, id string) (*entities.Room, error)

	// List returns all rooms, newest first
	List(ctx context.Context) ([]*entities.Room, error)

	// ListByMember returns ids of rooms the user has joined
	ListByMember(ctx context.Context, username string) ([]string, error)

	// ListIdleWithBets returns ids of rooms created before cutoff that hold a positive bet
	ListIdleWithBets(ctx context.Context, cutoff time.Time) ([]string, error)

	// AddMember appends a member; adding an existing member is a no-op
	AddMember(ctx context.Context, roomID, username string) error

	// RemoveMember deletes a membership row
	RemoveMember(ctx context.Context, roomID, username string) error

	// UpdateHost changes the room host
	UpdateHost(ctx context.Context, roomID, host string) error

	// Delete removes the room, its members and bets
	Delete(ctx context.Context, roomID string) error
}

// RoomBetRepository defines the interface for the per-room bet ledger
type RoomBetRepository interface {
	// SetBet upserts the bet for a member
	SetBet(ctx context.Context, roomID, username string, amount int64) error

	// GetBet returns the member's bet, 0 when none
	GetBet(ctx context.Context, roomID, username string) (int64, error)

	// GetPositiveBetsByRoom returns only bets greater than zero
	GetPositiveBetsByRoom(ctx context.Context, roomID string) (map[string]int64, error)

	// DeleteBet removes a single member's bet
	DeleteBet(ctx context.Context, roomID, username string) error

	// DeleteByRoom removes every bet in a room
	DeleteByRoom(ctx context.Context, roomID string) error
}

// RoundRepository defines the interface for persisted round records
type RoundRepository interface {
	// Create inserts the round and its payouts
	Create(ctx context.Context, round *entities.Round) error

	// GetByID retrieves a round with payouts, nil when missing
	GetByID(ctx context.Context, id string) (*entities.Round, error)

	// List returns rounds newest first
	List(ctx context.Context, limit int) ([]*entities.Round, error)

	// ListByRoom returns a room's rounds newest first
	ListByRoom(ctx context.Context, roomID string, limit int) ([]*entities.Round, error)
}

// RefundEventRepository defines the interface for reaper refund records
type RefundEventRepository interface {
	// Create inserts a refund record
	Create(ctx context.Context, event *entities.RefundEvent) error

	// List returns refunds newest first
	List(ctx context.Context, limit int) ([]*entities.RefundEvent, error)

	// ListByRoom returns a room's refunds newest first
	ListByRoom(ctx context.Context, roomID string, limit int) ([]*entities.RefundEvent, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *entities.BalanceHistory) error

	// GetByUser returns balance history for a specific user
	GetByUser(ctx context.Context, username string, limit int) ([]*entities.BalanceHistory, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding transaction resolves
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}
