package transport

import (
	"context"
	"sync"

	"cardroom/domain/entities"
	"cardroom/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

type mockRooms struct {
	mock.Mock
}

func (m *mockRooms) EnsureUser(ctx context.Context, username string) (*entities.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *mockRooms) GetBalance(ctx context.Context, username string) (int64, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRooms) GetBalanceHistory(ctx context.Context, username string, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, username, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

func (m *mockRooms) CreateRoom(ctx context.Context, host, name string) (*entities.Room, error) {
	args := m.Called(ctx, host, name)
	return roomArg(args)
}

func (m *mockRooms) JoinRoom(ctx context.Context, roomID, username string) (*entities.Room, error) {
	args := m.Called(ctx, roomID, username)
	return roomArg(args)
}

func (m *mockRooms) LeaveRoom(ctx context.Context, roomID, username string) (*entities.Room, error) {
	args := m.Called(ctx, roomID, username)
	return roomArg(args)
}

func (m *mockRooms) LeaveAllRooms(ctx context.Context, username string) ([]string, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockRooms) PlaceBet(ctx context.Context, roomID, username string, amount float64) (*entities.Room, error) {
	args := m.Called(ctx, roomID, username, amount)
	return roomArg(args)
}

func (m *mockRooms) GetRoom(ctx context.Context, roomID string) (*entities.Room, error) {
	args := m.Called(ctx, roomID)
	return roomArg(args)
}

func (m *mockRooms) ListRooms(ctx context.Context) ([]*entities.Room, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Room), args.Error(1)
}

func roomArg(args mock.Arguments) (*entities.Room, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Room), args.Error(1)
}

type mockRounds struct {
	mock.Mock
}

func (m *mockRounds) StartRound(ctx context.Context, roomID, caller, variantName string) (*entities.Round, error) {
	args := m.Called(ctx, roomID, caller, variantName)
	return roundArg(args)
}

func (m *mockRounds) GetRound(ctx context.Context, id string) (*entities.Round, error) {
	args := m.Called(ctx, id)
	return roundArg(args)
}

func (m *mockRounds) ListRounds(ctx context.Context, roomID string, limit int) ([]*entities.Round, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Round), args.Error(1)
}

func (m *mockRounds) VerifyRound(ctx context.Context, id string) (*interfaces.RoundVerification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.RoundVerification), args.Error(1)
}

func (m *mockRounds) ListRefunds(ctx context.Context, roomID string, limit int) ([]*entities.RefundEvent, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RefundEvent), args.Error(1)
}

func roundArg(args mock.Arguments) (*entities.Round, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

type countingMetrics struct {
	mu     sync.Mutex
	active int64
}

func (c *countingMetrics) UpdateActiveConnections(delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active += delta
}

func (c *countingMetrics) current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// drain returns every message currently queued for c
func drain(c *Client) []ServerMessage {
	var out []ServerMessage
	for {
		select {
		case msg, ok := <-c.Outbound():
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}
