package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cardroom/application"
	"cardroom/domain/entities"
	"cardroom/domain/events"
	"cardroom/domain/interfaces"
	"cardroom/domain/services"
	"cardroom/infrastructure"
	"cardroom/repository/testutil"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const integrationSeed = "0f1e2d3c4b5a69788796a5b4c3d2e1f0"

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) count(eventType events.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type() == eventType {
			n++
		}
	}
	return n
}

// failingRoundFactory makes every unit of work fail to persist rounds
type failingRoundFactory struct {
	inner application.UnitOfWorkFactory
}

func (f *failingRoundFactory) Create() application.UnitOfWork {
	return &failingRoundUoW{UnitOfWork: f.inner.Create()}
}

type failingRoundUoW struct {
	application.UnitOfWork
}

func (u *failingRoundUoW) RoundRepository() interfaces.RoundRepository {
	return &failingRoundRepo{RoundRepository: u.UnitOfWork.RoundRepository()}
}

type failingRoundRepo struct {
	interfaces.RoundRepository
}

func (r *failingRoundRepo) Create(ctx context.Context, round *entities.Round) error {
	return errors.New("disk full")
}

type tableFixture struct {
	testDB    *testutil.TestDatabase
	publisher *capturingPublisher
	factory   application.UnitOfWorkFactory
	rooms     *application.RoomHandler
	room      *entities.Room
}

// setupTable creates alice's room with bob and carol seated and betting 100, 50 and 30
func setupTable(t *testing.T) *tableFixture {
	t.Helper()
	ctx := context.Background()

	testDB := testutil.SetupTestDatabase(t)
	publisher := &capturingPublisher{}
	factory := infrastructure.NewUnitOfWorkFactory(testDB.DB, publisher)
	rooms := application.NewRoomHandler(factory, 1000, nil)

	for _, username := range []string{"alice", "bob", "carol"} {
		_, err := rooms.EnsureUser(ctx, username)
		require.NoError(t, err)
	}

	room, err := rooms.CreateRoom(ctx, "alice", "")
	require.NoError(t, err)
	for _, username := range []string{"bob", "carol"} {
		_, err = rooms.JoinRoom(ctx, room.ID, username)
		require.NoError(t, err)
	}

	bets := map[string]float64{"alice": 100, "bob": 50, "carol": 30}
	for username, amount := range bets {
		_, err = rooms.PlaceBet(ctx, room.ID, username, amount)
		require.NoError(t, err)
	}

	return &tableFixture{
		testDB:    testDB,
		publisher: publisher,
		factory:   factory,
		rooms:     rooms,
		room:      room,
	}
}

func (f *tableFixture) totalBalance(t *testing.T) int64 {
	var total int64
	for _, username := range []string{"alice", "bob", "carol"} {
		total += testutil.Balance(t, f.testDB.DB, username)
	}
	return total
}

func TestStartRound_SettlesAndConserves(t *testing.T) {
	ctx := context.Background()
	f := setupTable(t)
	seeds := services.SeedSourceFunc(func() (string, error) { return integrationSeed, nil })
	rounds := application.NewRoundHandler(f.factory, seeds, "secret", nil)

	require.Equal(t, int64(3000-180), f.totalBalance(t))
	require.Equal(t, int64(180), testutil.BetTotal(t, f.testDB.DB, f.room.ID))

	round, err := rounds.StartRound(ctx, f.room.ID, "alice", "poker")
	require.NoError(t, err)

	assert.Equal(t, int64(180), round.Pot)
	assert.Equal(t, []string{"alice", "bob", "carol"}, round.Members)
	require.NotEmpty(t, round.Winners)

	share := int64(180) / int64(len(round.Winners))
	remainder := int64(180) - share*int64(len(round.Winners))
	for _, winner := range round.Winners {
		assert.Equal(t, share, round.PayoutFor(winner))
	}

	// Credits only leave the system through the undistributed remainder
	assert.Equal(t, int64(3000)-remainder, f.totalBalance(t))
	assert.Equal(t, int64(0), testutil.BetTotal(t, f.testDB.DB, f.room.ID))
	assert.Equal(t, 1, f.publisher.count(events.EventTypeRoundSettled))

	stored, err := rounds.GetRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Winners, stored.Winners)
	assert.Len(t, stored.Payouts, len(round.Winners))

	verification, err := rounds.VerifyRound(ctx, round.ID)
	require.NoError(t, err)
	assert.True(t, verification.Verified())
	assert.True(t, verification.CommitmentChecked)

	room, err := f.rooms.GetRoom(ctx, f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), room.Pot())
}

func TestStartRound_FailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := setupTable(t)
	rounds := application.NewRoundHandler(&failingRoundFactory{inner: f.factory}, nil, "", nil)

	balances := map[string]int64{}
	for _, username := range []string{"alice", "bob", "carol"} {
		balances[username] = testutil.Balance(t, f.testDB.DB, username)
	}
	historyRows := testutil.CountRows(t, f.testDB.DB, "balance_history")
	balanceEvents := f.publisher.count(events.EventTypeBalanceChanged)

	_, err := rounds.StartRound(ctx, f.room.ID, "alice", "samgong")
	var settlementErr *services.SettlementError
	require.ErrorAs(t, err, &settlementErr)
	assert.Equal(t, services.StageSettling, settlementErr.Stage)

	for username, before := range balances {
		assert.Equal(t, before, testutil.Balance(t, f.testDB.DB, username), username)
	}
	assert.Equal(t, int64(180), testutil.BetTotal(t, f.testDB.DB, f.room.ID))
	assert.Equal(t, 0, testutil.CountRows(t, f.testDB.DB, "game_rounds"))
	assert.Equal(t, 0, testutil.CountRows(t, f.testDB.DB, "round_payouts"))
	assert.Equal(t, historyRows, testutil.CountRows(t, f.testDB.DB, "balance_history"))
	assert.Equal(t, 0, f.publisher.count(events.EventTypeRoundSettled))
	assert.Equal(t, balanceEvents, f.publisher.count(events.EventTypeBalanceChanged))
}

func TestRefundWorker_RefundsIdleRoom(t *testing.T) {
	ctx := context.Background()
	f := setupTable(t)

	mClock := quartz.NewMock(t)
	mClock.Set(time.Now().Add(10 * time.Minute)).MustWait(ctx)
	worker := application.NewRefundWorker(f.factory, mClock, time.Minute, 5*time.Minute, nil)

	refunds, err := worker.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, refunds, 3)

	assert.Equal(t, int64(3000), f.totalBalance(t))
	assert.Equal(t, int64(0), testutil.BetTotal(t, f.testDB.DB, f.room.ID))
	assert.Equal(t, 3, testutil.CountRows(t, f.testDB.DB, "refund_events"))
	assert.Equal(t, 3, f.publisher.count(events.EventTypeRefundIssued))

	// Bets are gone, a second sweep finds nothing
	refunds, err = worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, refunds)

	rounds := application.NewRoundHandler(f.factory, nil, "", nil)
	listed, err := rounds.ListRefunds(ctx, f.room.ID, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestLeaveAllRooms_ReturnsBetsAndReassignsHost(t *testing.T) {
	ctx := context.Background()
	f := setupTable(t)

	left, err := f.rooms.LeaveAllRooms(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{f.room.ID}, left)
	assert.Equal(t, int64(1000), testutil.Balance(t, f.testDB.DB, "alice"))

	room, err := f.rooms.GetRoom(ctx, f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", room.Host)
	assert.Equal(t, []string{"bob", "carol"}, room.Members)
	assert.Equal(t, int64(80), room.Pot())

	for _, username := range []string{"bob", "carol"} {
		_, err = f.rooms.LeaveRoom(ctx, f.room.ID, username)
		require.NoError(t, err)
	}
	_, err = f.rooms.GetRoom(ctx, f.room.ID)
	assert.ErrorIs(t, err, entities.ErrRoomNotFound)
	assert.Equal(t, int64(3000), f.totalBalance(t))
}

func TestPlaceBet_ConcurrentBetsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	f := setupTable(t)
	require.Equal(t, int64(950), testutil.Balance(t, f.testDB.DB, "bob"))

	// Either bet alone is affordable, both together are not
	const attempts = 2
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.rooms.PlaceBet(ctx, f.room.ID, "bob", 600)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, entities.ErrInsufficientBalance)
	}
	assert.Equal(t, 1, succeeded)

	assert.Equal(t, int64(350), testutil.Balance(t, f.testDB.DB, "bob"))
	assert.Equal(t, int64(780), testutil.BetTotal(t, f.testDB.DB, f.room.ID))
	assert.Equal(t, int64(3000), f.totalBalance(t)+testutil.BetTotal(t, f.testDB.DB, f.room.ID))

	room, err := f.rooms.GetRoom(ctx, f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(650), room.BetOf("bob"))
}

func TestPlaceBet_ConcurrentBettorsAllLand(t *testing.T) {
	ctx := context.Background()
	f := setupTable(t)
	historyRows := testutil.CountRows(t, f.testDB.DB, "balance_history")

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []error
	for round := 0; round < 5; round++ {
		for _, username := range []string{"alice", "bob", "carol"} {
			wg.Add(1)
			go func(username string) {
				defer wg.Done()
				if _, err := f.rooms.PlaceBet(ctx, f.room.ID, username, 10); err != nil {
					mu.Lock()
					failures = append(failures, err)
					mu.Unlock()
				}
			}(username)
		}
	}
	wg.Wait()

	assert.Empty(t, failures)
	assert.Equal(t, int64(180+150), testutil.BetTotal(t, f.testDB.DB, f.room.ID))
	assert.Equal(t, int64(3000), f.totalBalance(t)+testutil.BetTotal(t, f.testDB.DB, f.room.ID))
	assert.Equal(t, historyRows+15, testutil.CountRows(t, f.testDB.DB, "balance_history"))
}

func TestStartRound_ConcurrentStartsSerialize(t *testing.T) {
	ctx := context.Background()
	f := setupTable(t)
	seeds := services.SeedSourceFunc(func() (string, error) { return integrationSeed, nil })
	rounds := application.NewRoundHandler(f.factory, seeds, "secret", nil)

	const attempts = 2
	var wg sync.WaitGroup
	results := make([]*entities.Round, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = rounds.StartRound(ctx, f.room.ID, "alice", "poker")
		}(i)
	}
	wg.Wait()

	// The room lock orders the two starts: the first settles the pot and the
	// second deals an empty one
	for _, err := range errs {
		require.NoError(t, err)
	}
	pots := []int64{results[0].Pot, results[1].Pot}
	assert.ElementsMatch(t, []int64{180, 0}, pots)

	var paid int64
	for _, round := range results {
		paid += round.TotalPayout()
		if round.Pot == 0 {
			assert.Equal(t, int64(0), round.TotalPayout())
		}
	}
	winners := results[0].Winners
	if results[1].Pot == 180 {
		winners = results[1].Winners
	}
	require.NotEmpty(t, winners)
	assert.Equal(t, int64(180)/int64(len(winners))*int64(len(winners)), paid)

	assert.Equal(t, int64(3000-180)+paid, f.totalBalance(t))
	assert.Equal(t, int64(0), testutil.BetTotal(t, f.testDB.DB, f.room.ID))
	assert.Equal(t, 2, testutil.CountRows(t, f.testDB.DB, "game_rounds"))
	assert.Equal(t, 2, f.publisher.count(events.EventTypeRoundSettled))
}
