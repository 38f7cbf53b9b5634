package application

import (
	"context"
	"errors"
	"testing"

	"cardroom/domain/entities"
	"cardroom/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRoomHandler_PlaceBetTruncatesAmount(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory()
	metrics := &recordingMetrics{}
	handler := NewRoomHandler(factory, 1000, metrics)

	room := testRoom("room_1", "alice", []string{"alice", "bob"}, nil)
	factory.repos.rooms.On("GetForUpdate", ctx, "room_1").Return(room, nil).Once()
	factory.repos.users.On("GetForUpdate", ctx, "bob").Return(testUser("bob", 100), nil).Once()
	factory.repos.users.On("ChangeBalance", ctx, "bob", int64(-25)).Return(int64(75), nil).Once()
	factory.repos.history.On("Record", ctx, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
		return h.Username == "bob" && h.ChangeAmount == -25 && h.BalanceBefore == 100 &&
			h.TransactionType == entities.TransactionTypeBetPlaced
	})).Return(nil).Once()
	factory.repos.bets.On("SetBet", ctx, "room_1", "bob", int64(25)).Return(nil).Once()

	updated, err := handler.PlaceBet(ctx, "room_1", "bob", 25.9)
	require.NoError(t, err)
	assert.Equal(t, int64(25), updated.BetOf("bob"))

	require.Len(t, factory.created, 1)
	assert.True(t, factory.created[0].committed)
	assert.Equal(t, []int64{25}, metrics.bets)
	assert.Len(t, factory.publishedOfType(events.EventTypeRoomChanged), 1)
	assert.Len(t, factory.publishedOfType(events.EventTypeBalanceChanged), 1)

	factory.repos.rooms.AssertExpectations(t)
	factory.repos.users.AssertExpectations(t)
	factory.repos.bets.AssertExpectations(t)
	factory.repos.history.AssertExpectations(t)
}

func TestRoomHandler_PlaceBetRejectsSubUnitAmount(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory()
	metrics := &recordingMetrics{}
	handler := NewRoomHandler(factory, 1000, metrics)

	// 0.7 truncates to zero and never reaches the store
	_, err := handler.PlaceBet(ctx, "room_1", "bob", 0.7)
	require.Error(t, err)
	assert.True(t, entities.IsValidation(err))

	require.Len(t, factory.created, 1)
	assert.False(t, factory.created[0].committed)
	assert.True(t, factory.created[0].rolled)
	assert.Equal(t, []string{"place_bet"}, metrics.failures)
	assert.Empty(t, metrics.bets)
	factory.repos.rooms.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything)
}

func TestRoomHandler_InsufficientBalanceRollsBack(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory()
	handler := NewRoomHandler(factory, 1000, nil)

	room := testRoom("room_1", "alice", []string{"alice"}, nil)
	factory.repos.rooms.On("GetForUpdate", ctx, "room_1").Return(room, nil).Once()
	factory.repos.users.On("GetForUpdate", ctx, "alice").Return(testUser("alice", 10), nil).Once()

	_, err := handler.PlaceBet(ctx, "room_1", "alice", 50)
	assert.ErrorIs(t, err, entities.ErrInsufficientBalance)
	assert.True(t, entities.IsPrecondition(err))
	assert.True(t, factory.created[0].rolled)
	assert.Empty(t, factory.published)
	factory.repos.users.AssertNotCalled(t, "ChangeBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoomHandler_CommitFailureDropsEvents(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory()
	factory.commitErr = errors.New("connection reset")
	metrics := &recordingMetrics{}
	handler := NewRoomHandler(factory, 1000, metrics)

	room := testRoom("room_1", "alice", []string{"alice"}, nil)
	factory.repos.rooms.On("GetForUpdate", ctx, "room_1").Return(room, nil).Once()
	factory.repos.users.On("GetByUsername", ctx, "bob").Return(testUser("bob", 100), nil).Once()
	factory.repos.rooms.On("AddMember", ctx, "room_1", "bob").Return(nil).Once()
	factory.repos.bets.On("SetBet", ctx, "room_1", "bob", int64(0)).Return(nil).Once()

	_, err := handler.JoinRoom(ctx, "room_1", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, factory.published)
	assert.Equal(t, []string{"join_room"}, metrics.failures)
}

func TestRoomHandler_BeginFailure(t *testing.T) {
	factory := &beginFailingFactory{err: errors.New("pool closed")}
	handler := NewRoomHandler(factory, 1000, nil)

	_, err := handler.ListRooms(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}

type beginFailingFactory struct {
	err error
}

func (f *beginFailingFactory) Create() UnitOfWork {
	return &fakeUnitOfWork{beginErr: f.err, bus: &bufferedBus{published: new([]events.Event)}}
}

func TestRoomHandler_LeaveAllRooms(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory()
	handler := NewRoomHandler(factory, 1000, nil)

	factory.repos.rooms.On("ListByMember", ctx, "alice").Return([]string{"room_1", "room_2", "room_3"}, nil).Once()

	// room_1: alice hosts with bob, bet returned and host moves to bob
	room1 := testRoom("room_1", "alice", []string{"alice", "bob"}, map[string]int64{"alice": 30, "bob": 0})
	factory.repos.rooms.On("GetForUpdate", ctx, "room_1").Return(room1, nil).Once()
	factory.repos.users.On("ChangeBalance", ctx, "alice", int64(30)).Return(int64(100), nil).Once()
	factory.repos.history.On("Record", ctx, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
		return h.TransactionType == entities.TransactionTypeBetReturned && h.ChangeAmount == 30
	})).Return(nil).Once()
	factory.repos.bets.On("DeleteBet", ctx, "room_1", "alice").Return(nil).Once()
	factory.repos.rooms.On("RemoveMember", ctx, "room_1", "alice").Return(nil).Once()
	factory.repos.rooms.On("UpdateHost", ctx, "room_1", "bob").Return(nil).Once()

	// room_2: store failure, alice stays but room_3 is still processed
	factory.repos.rooms.On("GetForUpdate", ctx, "room_2").Return(nil, errors.New("lock timeout")).Once()

	// room_3: alice alone, room destroyed
	room3 := testRoom("room_3", "alice", []string{"alice"}, nil)
	factory.repos.rooms.On("GetForUpdate", ctx, "room_3").Return(room3, nil).Once()
	factory.repos.bets.On("DeleteBet", ctx, "room_3", "alice").Return(nil).Once()
	factory.repos.rooms.On("Delete", ctx, "room_3").Return(nil).Once()

	left, err := handler.LeaveAllRooms(ctx, "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "room_2")
	assert.Equal(t, []string{"room_1", "room_3"}, left)

	// One read unit plus one per room
	assert.Equal(t, 4, factory.createdCount())

	roomEvents := factory.publishedOfType(events.EventTypeRoomChanged)
	require.Len(t, roomEvents, 2)
	assert.Equal(t, "bob", roomEvents[0].(events.RoomChangedEvent).Room.Host)
	assert.Nil(t, roomEvents[1].(events.RoomChangedEvent).Room)

	factory.repos.rooms.AssertExpectations(t)
	factory.repos.bets.AssertExpectations(t)
}

func TestRoomHandler_EnsureUser(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory()
	handler := NewRoomHandler(factory, 500, nil)

	factory.repos.users.On("EnsureUser", ctx, "carol", int64(500)).Return(testUser("carol", 500), true, nil).Once()
	factory.repos.history.On("Record", ctx, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
		return h.TransactionType == entities.TransactionTypeInitial && h.BalanceAfter == 500
	})).Return(nil).Once()

	user, err := handler.EnsureUser(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(500), user.Balance)
	assert.True(t, factory.created[0].committed)
	factory.repos.history.AssertExpectations(t)
}
