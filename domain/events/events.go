package events

import (
	"cardroom/domain/entities"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRoomChanged    EventType = "room_changed"
	EventTypeLobbyChanged   EventType = "lobby_changed"
	EventTypeRoundSettled   EventType = "round_settled"
	EventTypeBalanceChanged EventType = "balance_changed"
	EventTypeRefundIssued   EventType = "refund_issued"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// RoomChangedEvent carries the full room snapshot after a mutation.
// Room is nil when the room was destroyed.
type RoomChangedEvent struct {
	RoomID string         `json:"room_id"`
	Room   *entities.Room `json:"room"`
}

func (e RoomChangedEvent) Type() EventType {
	return EventTypeRoomChanged
}

// LobbyChangedEvent signals that the room list should be re-fetched
type LobbyChangedEvent struct {
	RoomID string `json:"room_id"`
}

func (e LobbyChangedEvent) Type() EventType {
	return EventTypeLobbyChanged
}

// RoundSettledEvent carries the complete round record after settlement commits
type RoundSettledEvent struct {
	Round *entities.Round `json:"round"`
}

func (e RoundSettledEvent) Type() EventType {
	return EventTypeRoundSettled
}

// BalanceChangedEvent represents a balance change that occurred
type BalanceChangedEvent struct {
	Username        string                   `json:"username"`
	OldBalance      int64                    `json:"old_balance"`
	NewBalance      int64                    `json:"new_balance"`
	ChangeAmount    int64                    `json:"change_amount"`
	TransactionType entities.TransactionType `json:"transaction_type"`
}

func (e BalanceChangedEvent) Type() EventType {
	return EventTypeBalanceChanged
}

// RefundIssuedEvent represents one bet returned by the idle room reaper
type RefundIssuedEvent struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
	Amount   int64  `json:"amount"`
}

func (e RefundIssuedEvent) Type() EventType {
	return EventTypeRefundIssued
}
