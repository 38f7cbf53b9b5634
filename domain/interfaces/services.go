package interfaces

import (
	"context"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/evaluators"
)

// LedgerService defines the interface for balance and bet primitives
type LedgerService interface {
	// EnsureUser returns the user, creating an account with the starting balance on first reference
	EnsureUser(ctx context.Context, username string) (*entities.User, error)

	// GetBalance returns the user's balance
	GetBalance(ctx context.Context, username string) (int64, error)

	// ChangeBalance applies delta, records history and returns the new balance
	ChangeBalance(ctx context.Context, username string, delta int64, txType entities.TransactionType, relatedID string, metadata map[string]any) (int64, error)

	// SetBet stores the member's bet in a room
	SetBet(ctx context.Context, roomID, username string, amount int64) error

	// GetBet returns the member's bet in a room, 0 when none
	GetBet(ctx context.Context, roomID, username string) (int64, error)

	// GetHistory returns the user's ledger entries newest first
	GetHistory(ctx context.Context, username string, limit int) ([]*entities.BalanceHistory, error)
}

// RoomService defines the interface for room lifecycle and betting
type RoomService interface {
	// CreateRoom creates a room with host as its first member
	CreateRoom(ctx context.Context, host, name string) (*entities.Room, error)

	// JoinRoom adds username to the room; joining twice is a no-op
	JoinRoom(ctx context.Context, roomID, username string) (*entities.Room, error)

	// LeaveRoom removes username, returning the room after the transition or nil if it was destroyed
	LeaveRoom(ctx context.Context, roomID, username string) (*entities.Room, error)

	// RoomsOf returns the ids of every room username is a member of
	RoomsOf(ctx context.Context, username string) ([]string, error)

	// GetRoom retrieves a room or entities.ErrRoomNotFound
	GetRoom(ctx context.Context, roomID string) (*entities.Room, error)

	// ListRooms returns all rooms, newest first
	ListRooms(ctx context.Context) ([]*entities.Room, error)

	// EnsureHost locks the room and checks caller is its host
	EnsureHost(ctx context.Context, roomID, caller string) (*entities.Room, error)

	// PlaceBet moves amount from the user's balance into their room bet
	PlaceBet(ctx context.Context, roomID, username string, amount int64) (*entities.Room, error)
}

// SettlementService defines the interface for dealing and settling a round
type SettlementService interface {
	// StartRound deals, evaluates and settles one round for the room
	StartRound(ctx context.Context, roomID, caller string, variant evaluators.Variant) (*entities.Round, error)
}

// RefundService defines the interface for compensating idle rooms
type RefundService interface {
	// IdleRooms returns ids of rooms created before cutoff that still hold positive bets
	IdleRooms(ctx context.Context, cutoff time.Time) ([]string, error)

	// RefundRoom returns every positive bet in the room to its owner and clears the bets
	RefundRoom(ctx context.Context, roomID string) ([]*entities.RefundEvent, error)
}

// RoundQueryService defines the read and audit surface over settled rounds
type RoundQueryService interface {
	// GetRound retrieves a round with payouts or entities.ErrRoundNotFound
	GetRound(ctx context.Context, id string) (*entities.Round, error)

	// ListRounds returns rounds newest first
	ListRounds(ctx context.Context, limit int) ([]*entities.Round, error)

	// ListRoundsByRoom returns a room's rounds newest first
	ListRoundsByRoom(ctx context.Context, roomID string, limit int) ([]*entities.Round, error)

	// VerifyRound replays the stored seed and compares the outcome with the record
	VerifyRound(ctx context.Context, id string) (*RoundVerification, error)

	// ListRefunds returns refund events newest first
	ListRefunds(ctx context.Context, limit int) ([]*entities.RefundEvent, error)

	// ListRefundsByRoom returns one room's refund events newest first
	ListRefundsByRoom(ctx context.Context, roomID string, limit int) ([]*entities.RefundEvent, error)
}

// RoundVerification is the outcome of replaying a stored round
type RoundVerification struct {
	RoundID           string                           `json:"round_id"`
	DealsMatch        bool                             `json:"deals_match"`
	EvaluationsMatch  bool                             `json:"evaluations_match"`
	WinnersMatch      bool                             `json:"winners_match"`
	PayoutsMatch      bool                             `json:"payouts_match"`
	CommitmentChecked bool                             `json:"commitment_checked"`
	CommitmentMatch   bool                             `json:"commitment_match"`
	ReplayedDeals     map[string][]string              `json:"replayed_deals"`
	ReplayedWinners   []string                         `json:"replayed_winners"`
	Evaluations       map[string]evaluators.Evaluation `json:"evaluations"`
}

// Verified reports whether every replayed artifact matches the stored record
func (v *RoundVerification) Verified() bool {
	if v.CommitmentChecked && !v.CommitmentMatch {
		return false
	}
	return v.DealsMatch && v.EvaluationsMatch && v.WinnersMatch && v.PayoutsMatch
}
