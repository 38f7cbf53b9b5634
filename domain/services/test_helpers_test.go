package services

import (
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/events"
	"cardroom/domain/testhelpers"

	"github.com/stretchr/testify/mock"
)

const testSeed = "00112233445566778899aabbccddeeff"

type serviceMocks struct {
	users     *testhelpers.MockUserRepository
	rooms     *testhelpers.MockRoomRepository
	bets      *testhelpers.MockRoomBetRepository
	rounds    *testhelpers.MockRoundRepository
	refunds   *testhelpers.MockRefundEventRepository
	history   *testhelpers.MockBalanceHistoryRepository
	publisher *testhelpers.MockEventPublisher
}

func newServiceMocks() *serviceMocks {
	m := &serviceMocks{
		users:     new(testhelpers.MockUserRepository),
		rooms:     new(testhelpers.MockRoomRepository),
		bets:      new(testhelpers.MockRoomBetRepository),
		rounds:    new(testhelpers.MockRoundRepository),
		refunds:   new(testhelpers.MockRefundEventRepository),
		history:   new(testhelpers.MockBalanceHistoryRepository),
		publisher: new(testhelpers.MockEventPublisher),
	}
	m.publisher.On("Publish", mock.Anything).Return(nil).Maybe()
	return m
}

func (m *serviceMocks) assertExpectations(t mock.TestingT) {
	m.users.AssertExpectations(t)
	m.rooms.AssertExpectations(t)
	m.bets.AssertExpectations(t)
	m.rounds.AssertExpectations(t)
	m.refunds.AssertExpectations(t)
	m.history.AssertExpectations(t)
}

// published returns the events handed to the publisher, in order
func (m *serviceMocks) published() []events.Event {
	var out []events.Event
	for _, call := range m.publisher.Calls {
		if call.Method == "Publish" {
			out = append(out, call.Arguments.Get(0).(events.Event))
		}
	}
	return out
}

func (m *serviceMocks) publishedOfType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, e := range m.published() {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func createTestUser(username string, balance int64) *entities.User {
	return &entities.User{
		Username:  username,
		Role:      entities.RolePlayer,
		Balance:   balance,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func createTestRoom(id, host string, members []string, bets map[string]int64) *entities.Room {
	if bets == nil {
		bets = make(map[string]int64)
	}
	return &entities.Room{
		ID:        id,
		Name:      "Room " + id,
		Host:      host,
		Members:   members,
		Bets:      bets,
		CreatedAt: time.Now().Add(-time.Minute),
	}
}

func fixedSeeds(seed string) SeedSource {
	return SeedSourceFunc(func() (string, error) { return seed, nil })
}
