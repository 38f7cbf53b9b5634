package testhelpers

import (
	"context"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetForUpdate(ctx context.Context, username string) (*entities.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) EnsureUser(ctx context.Context, username string, initialBalance int64) (*entities.User, bool, error) {
	args := m.Called(ctx, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entities.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) ChangeBalance(ctx context.Context, username string, delta int64) (int64, error) {
	args := m.Called(ctx, username, delta)
	return args.Get(0).(int64), args.Error(1)
}

// MockRoomRepository is a mock implementation of RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Create(ctx context.Context, room *entities.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepository) GetByID(ctx context.Context, id string) (*entities.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Room), args.Error(1)
}

func (m *MockRoomRepository) GetForUpdate(ctx context.Context, id string) (*entities.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Room), args.Error(1)
}

func (m *MockRoomRepository) List(ctx context.Context) ([]*entities.Room, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Room), args.Error(1)
}

func (m *MockRoomRepository) ListByMember(ctx context.Context, username string) ([]string, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRoomRepository) ListIdleWithBets(ctx context.Context, cutoff time.Time) ([]string, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRoomRepository) AddMember(ctx context.Context, roomID, username string) error {
	args := m.Called(ctx, roomID, username)
	return args.Error(0)
}

func (m *MockRoomRepository) RemoveMember(ctx context.Context, roomID, username string) error {
	args := m.Called(ctx, roomID, username)
	return args.Error(0)
}

func (m *MockRoomRepository) UpdateHost(ctx context.Context, roomID, host string) error {
	args := m.Called(ctx, roomID, host)
	return args.Error(0)
}

func (m *MockRoomRepository) Delete(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockRoomBetRepository is a mock implementation of RoomBetRepository
type MockRoomBetRepository struct {
	mock.Mock
}

func (m *MockRoomBetRepository) SetBet(ctx context.Context, roomID, username string, amount int64) error {
	args := m.Called(ctx, roomID, username, amount)
	return args.Error(0)
}

func (m *MockRoomBetRepository) GetBet(ctx context.Context, roomID, username string) (int64, error) {
	args := m.Called(ctx, roomID, username)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRoomBetRepository) GetPositiveBetsByRoom(ctx context.Context, roomID string) (map[string]int64, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockRoomBetRepository) DeleteBet(ctx context.Context, roomID, username string) error {
	args := m.Called(ctx, roomID, username)
	return args.Error(0)
}

func (m *MockRoomBetRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockRoundRepository is a mock implementation of RoundRepository
type MockRoundRepository struct {
	mock.Mock
}

func (m *MockRoundRepository) Create(ctx context.Context, round *entities.Round) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

func (m *MockRoundRepository) GetByID(ctx context.Context, id string) (*entities.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) List(ctx context.Context, limit int) ([]*entities.Round, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]*entities.Round, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Round), args.Error(1)
}

// MockRefundEventRepository is a mock implementation of RefundEventRepository
type MockRefundEventRepository struct {
	mock.Mock
}

func (m *MockRefundEventRepository) Create(ctx context.Context, event *entities.RefundEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockRefundEventRepository) List(ctx context.Context, limit int) ([]*entities.RefundEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RefundEvent), args.Error(1)
}

func (m *MockRefundEventRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]*entities.RefundEvent, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RefundEvent), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, username string, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, username, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
