package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/events"
	"cardroom/domain/interfaces"
	"cardroom/domain/testhelpers"
)

// bufferedBus queues events until the fake unit of work commits
type bufferedBus struct {
	pending   []events.Event
	published *[]events.Event
}

func (b *bufferedBus) Publish(event events.Event) error {
	b.pending = append(b.pending, event)
	return nil
}

// fakeUnitOfWork wires testhelpers mocks behind the UnitOfWork interface
type fakeUnitOfWork struct {
	repos     *fakeRepos
	bus       *bufferedBus
	begun     bool
	committed bool
	rolled    bool
	beginErr  error
	commitErr error
}

type fakeRepos struct {
	users   *testhelpers.MockUserRepository
	rooms   *testhelpers.MockRoomRepository
	bets    *testhelpers.MockRoomBetRepository
	rounds  *testhelpers.MockRoundRepository
	refunds *testhelpers.MockRefundEventRepository
	history *testhelpers.MockBalanceHistoryRepository
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	if u.beginErr != nil {
		return u.beginErr
	}
	u.begun = true
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	if !u.begun || u.committed || u.rolled {
		return errors.New("no transaction to commit")
	}
	if u.commitErr != nil {
		u.bus.pending = nil
		return u.commitErr
	}
	u.committed = true
	*u.bus.published = append(*u.bus.published, u.bus.pending...)
	u.bus.pending = nil
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	if !u.begun || u.committed {
		return nil
	}
	u.rolled = true
	u.bus.pending = nil
	return nil
}

func (u *fakeUnitOfWork) UserRepository() interfaces.UserRepository { return u.repos.users }
func (u *fakeUnitOfWork) RoomRepository() interfaces.RoomRepository { return u.repos.rooms }
func (u *fakeUnitOfWork) RoomBetRepository() interfaces.RoomBetRepository { return u.repos.bets }
func (u *fakeUnitOfWork) RoundRepository() interfaces.RoundRepository { return u.repos.rounds }
func (u *fakeUnitOfWork) RefundEventRepository() interfaces.RefundEventRepository {
	return u.repos.refunds
}
func (u *fakeUnitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	return u.repos.history
}
func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher { return u.bus }

// fakeUnitOfWorkFactory hands out units of work sharing one set of mocks
type fakeUnitOfWorkFactory struct {
	mu        sync.Mutex
	repos     *fakeRepos
	published []events.Event
	created   []*fakeUnitOfWork
	commitErr error
}

func newFakeFactory() *fakeUnitOfWorkFactory {
	return &fakeUnitOfWorkFactory{
		repos: &fakeRepos{
			users:   new(testhelpers.MockUserRepository),
			rooms:   new(testhelpers.MockRoomRepository),
			bets:    new(testhelpers.MockRoomBetRepository),
			rounds:  new(testhelpers.MockRoundRepository),
			refunds: new(testhelpers.MockRefundEventRepository),
			history: new(testhelpers.MockBalanceHistoryRepository),
		},
	}
}

func (f *fakeUnitOfWorkFactory) Create() UnitOfWork {
	f.mu.Lock()
	defer f.mu.Unlock()
	uow := &fakeUnitOfWork{
		repos:     f.repos,
		bus:       &bufferedBus{published: &f.published},
		commitErr: f.commitErr,
	}
	f.created = append(f.created, uow)
	return uow
}

func (f *fakeUnitOfWorkFactory) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeUnitOfWorkFactory) publishedOfType(eventType events.EventType) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, e := range f.published {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// recordingMetrics counts metric calls
type recordingMetrics struct {
	mu       sync.Mutex
	bets     []int64
	rounds   []*entities.Round
	refunds  int
	failures []string
}

func (m *recordingMetrics) RecordBetPlaced(amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bets = append(m.bets, amount)
}

func (m *recordingMetrics) RecordRoundSettled(round *entities.Round) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds = append(m.rounds, round)
}

func (m *recordingMetrics) RecordRefunds(refunds []*entities.RefundEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunds += len(refunds)
}

func (m *recordingMetrics) RecordTransactionFailure(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, operation)
}

func testRoom(id, host string, members []string, bets map[string]int64) *entities.Room {
	if bets == nil {
		bets = make(map[string]int64)
		for _, m := range members {
			bets[m] = 0
		}
	}
	return &entities.Room{
		ID:        id,
		Name:      "Room " + id,
		Host:      host,
		Members:   members,
		Bets:      bets,
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

func testUser(username string, balance int64) *entities.User {
	return &entities.User{
		Username: username,
		Role:     entities.RolePlayer,
		Balance:  balance,
	}
}
