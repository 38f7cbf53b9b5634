package application

import (
	"context"

	"cardroom/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases buffered events
	Commit() error

	// Rollback rolls back the transaction and drops buffered events
	Rollback() error

	// Repository getters
	UserRepository() interfaces.UserRepository
	RoomRepository() interfaces.RoomRepository
	RoomBetRepository() interfaces.RoomBetRepository
	RoundRepository() interfaces.RoundRepository
	RefundEventRepository() interfaces.RefundEventRepository
	BalanceHistoryRepository() interfaces.BalanceHistoryRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork with its own transactional publisher
	Create() UnitOfWork
}
