package services

import (
	"context"
	"errors"
	"testing"

	"cardroom/domain/cards"
	"cardroom/domain/entities"
	"cardroom/domain/evaluators"
	"cardroom/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSettlementService(m *serviceMocks, seed string) *settlementService {
	return NewSettlementService(m.users, m.rooms, m.bets, m.rounds, m.history, m.publisher, fixedSeeds(seed), "commit-secret").(*settlementService)
}

// expectedOutcome replays seed the same way settlement deals it
func expectedOutcome(t *testing.T, seed string, members []string, variant evaluators.Variant) (map[string][]string, []string) {
	t.Helper()
	hands, _, err := cards.Deal(cards.Shuffle(cards.StandardDeck(), seed), len(members), variant.HandSize())
	require.NoError(t, err)

	deals := make(map[string][]string)
	evals := make(map[string]evaluators.Evaluation)
	for i, username := range members {
		deals[username] = hands[i]
		eval, err := variant.Evaluate(hands[i])
		require.NoError(t, err)
		evals[username] = eval
	}
	return deals, SelectWinners(members, evals, evaluators.Compare)
}

func TestSettlementService_StartRound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, variant := range evaluators.Variants {
		variant := variant
		t.Run(string(variant), func(t *testing.T) {
			t.Parallel()
			m := newServiceMocks()
			svc := newTestSettlementService(m, testSeed)

			members := []string{"alice", "bob", "carol"}
			bets := map[string]int64{"alice": 100, "bob": 50, "carol": 0}
			m.rooms.On("GetForUpdate", ctx, "room_1").Return(createTestRoom("room_1", "alice", members, bets), nil)
			m.users.On("ChangeBalance", ctx, mock.Anything, mock.Anything).Return(int64(1000), nil)
			m.history.On("Record", ctx, mock.Anything).Return(nil)
			m.bets.On("DeleteByRoom", ctx, "room_1").Return(nil)
			m.rounds.On("Create", ctx, mock.Anything).Return(nil)

			round, err := svc.StartRound(ctx, "room_1", "alice", variant)
			require.NoError(t, err)

			wantDeals, wantWinners := expectedOutcome(t, testSeed, members, variant)
			assert.Equal(t, wantDeals, round.Deals)
			assert.Equal(t, wantWinners, round.Winners)
			assert.Equal(t, members, round.Members)
			assert.Equal(t, testSeed, round.Seed)
			assert.Equal(t, cards.CommitSeed(testSeed, "commit-secret"), round.SeedCommitment)
			assert.Equal(t, int64(150), round.Pot)
			assert.Equal(t, bets, round.BetsSnapshot)

			share := int64(150) / int64(len(round.Winners))
			assert.Len(t, round.Payouts, len(round.Winners))
			assert.Equal(t, share*int64(len(round.Winners)), round.TotalPayout())
			assert.LessOrEqual(t, round.TotalPayout(), round.Pot)
			for _, w := range round.Winners {
				assert.Equal(t, share, round.PayoutFor(w))
				m.users.AssertCalled(t, "ChangeBalance", ctx, w, share)
			}
			m.users.AssertNumberOfCalls(t, "ChangeBalance", len(round.Winners))

			settled := m.publishedOfType(events.EventTypeRoundSettled)
			require.Len(t, settled, 1)
			assert.Equal(t, round, settled[0].(events.RoundSettledEvent).Round)

			changed := m.publishedOfType(events.EventTypeRoomChanged)
			require.Len(t, changed, 1)
			assert.Zero(t, changed[0].(events.RoomChangedEvent).Room.Pot())
			m.assertExpectations(t)
		})
	}
}

func TestSettlementService_StartRound_ZeroPot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newServiceMocks()
	svc := newTestSettlementService(m, testSeed)

	m.rooms.On("GetForUpdate", ctx, "room_1").Return(createTestRoom("room_1", "alice", []string{"alice", "bob"}, map[string]int64{"alice": 0, "bob": 0}), nil)
	m.bets.On("DeleteByRoom", ctx, "room_1").Return(nil)
	m.rounds.On("Create", ctx, mock.Anything).Return(nil)

	round, err := svc.StartRound(ctx, "room_1", "alice", evaluators.VariantSamgong)
	require.NoError(t, err)

	assert.NotEmpty(t, round.Winners)
	assert.Empty(t, round.Payouts)
	assert.Zero(t, round.TotalPayout())
	m.users.AssertNotCalled(t, "ChangeBalance", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, m.publishedOfType(events.EventTypeBalanceChanged))
}

func TestSettlementService_StartRound_Preconditions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tenPlayers := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9", "p10"}
	elevenPlayers := append(append([]string(nil), tenPlayers...), "p11")

	tests := []struct {
		name      string
		room      *entities.Room
		caller    string
		variant   evaluators.Variant
		wantErr   error
		wantStage RoundStage
	}{
		{
			name:      "room not found",
			caller:    "alice",
			variant:   evaluators.VariantPoker,
			wantErr:   entities.ErrRoomNotFound,
			wantStage: StageValidating,
		},
		{
			name:      "caller is not host",
			room:      createTestRoom("room_1", "alice", []string{"alice", "bob"}, nil),
			caller:    "bob",
			variant:   evaluators.VariantPoker,
			wantErr:   entities.ErrNotHost,
			wantStage: StageValidating,
		},
		{
			name:      "unknown variant",
			room:      createTestRoom("room_1", "alice", []string{"alice"}, nil),
			caller:    "alice",
			variant:   evaluators.Variant("blackjack"),
			wantErr:   evaluators.ErrUnknownVariant,
			wantStage: StageValidating,
		},
		{
			name:      "not enough cards for every member",
			room:      createTestRoom("room_1", "p1", elevenPlayers, nil),
			caller:    "p1",
			variant:   evaluators.VariantPoker,
			wantErr:   cards.ErrInsufficientCards,
			wantStage: StageDealing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newServiceMocks()
			svc := newTestSettlementService(m, testSeed)
			if tt.room != nil {
				m.rooms.On("GetForUpdate", ctx, "room_1").Return(tt.room, nil)
			} else {
				m.rooms.On("GetForUpdate", ctx, "room_1").Return(nil, nil).Maybe()
			}

			_, err := svc.StartRound(ctx, "room_1", tt.caller, tt.variant)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, entities.IsPrecondition(err))

			var se *SettlementError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantStage, se.Stage)

			m.users.AssertNotCalled(t, "ChangeBalance", mock.Anything, mock.Anything, mock.Anything)
			m.bets.AssertNotCalled(t, "DeleteByRoom", mock.Anything, mock.Anything)
			m.rounds.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			assert.Empty(t, m.published())
		})
	}

	t.Run("ten poker players fit the deck", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestSettlementService(m, testSeed)
		m.rooms.On("GetForUpdate", ctx, "room_1").Return(createTestRoom("room_1", "p1", tenPlayers, nil), nil)
		m.bets.On("DeleteByRoom", ctx, "room_1").Return(nil)
		m.rounds.On("Create", ctx, mock.Anything).Return(nil)

		round, err := svc.StartRound(ctx, "room_1", "p1", evaluators.VariantPoker)
		require.NoError(t, err)
		assert.Len(t, round.Deals, 10)
	})
}

func TestSettlementService_StartRound_PersistFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newServiceMocks()
	svc := newTestSettlementService(m, testSeed)

	m.rooms.On("GetForUpdate", ctx, "room_1").Return(createTestRoom("room_1", "alice", []string{"alice", "bob"}, map[string]int64{"alice": 30, "bob": 30}), nil)
	m.users.On("ChangeBalance", ctx, mock.Anything, mock.Anything).Return(int64(1000), nil)
	m.history.On("Record", ctx, mock.Anything).Return(nil)
	m.bets.On("DeleteByRoom", ctx, "room_1").Return(nil)
	m.rounds.On("Create", ctx, mock.Anything).Return(errors.New("disk full"))

	round, err := svc.StartRound(ctx, "room_1", "alice", evaluators.VariantQiuQiu)
	require.Error(t, err)
	assert.Nil(t, round)
	assert.False(t, entities.IsPrecondition(err))

	var se *SettlementError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageSettling, se.Stage)
	assert.Empty(t, m.publishedOfType(events.EventTypeRoundSettled))
}

func TestSelectWinners(t *testing.T) {
	t.Parallel()

	high := evaluators.Evaluation{Rank: 2, Tiebreakers: []int{9}}
	low := evaluators.Evaluation{Rank: 1, Tiebreakers: []int{9, 12}}
	tied := evaluators.Evaluation{Rank: 2, Tiebreakers: []int{9, 0}}

	tests := []struct {
		name  string
		order []string
		evals map[string]evaluators.Evaluation
		want  []string
	}{
		{
			name:  "single best",
			order: []string{"a", "b", "c"},
			evals: map[string]evaluators.Evaluation{"a": low, "b": high, "c": low},
			want:  []string{"b"},
		},
		{
			name:  "ties share in member order",
			order: []string{"a", "b", "c"},
			evals: map[string]evaluators.Evaluation{"a": high, "b": low, "c": tied},
			want:  []string{"a", "c"},
		},
		{
			name:  "better hand resets the tie",
			order: []string{"a", "b", "c"},
			evals: map[string]evaluators.Evaluation{"a": low, "b": low, "c": high},
			want:  []string{"c"},
		},
		{
			name:  "no members",
			order: nil,
			evals: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectWinners(tt.order, tt.evals, evaluators.Compare))
		})
	}
}

func TestSplitPot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pot           int64
		winners       int
		wantShare     int64
		wantRemainder int64
	}{
		{pot: 150, winners: 1, wantShare: 150, wantRemainder: 0},
		{pot: 150, winners: 2, wantShare: 75, wantRemainder: 0},
		{pot: 100, winners: 3, wantShare: 33, wantRemainder: 1},
		{pot: 2, winners: 3, wantShare: 0, wantRemainder: 2},
		{pot: 0, winners: 2, wantShare: 0, wantRemainder: 0},
		{pot: 90, winners: 0, wantShare: 0, wantRemainder: 90},
	}

	for _, tt := range tests {
		share, remainder := SplitPot(tt.pot, tt.winners)
		assert.Equal(t, tt.wantShare, share, "pot %d / %d", tt.pot, tt.winners)
		assert.Equal(t, tt.wantRemainder, remainder, "pot %d / %d", tt.pot, tt.winners)
		assert.LessOrEqual(t, share*int64(tt.winners), tt.pot)
	}
}

func TestSettlementService_HostCheckMatchesEnsureHost(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lockErr := errors.New("connection reset")

	tests := []struct {
		name    string
		room    *entities.Room
		repoErr error
		caller  string
	}{
		{name: "host", room: createTestRoom("room_1", "alice", []string{"alice"}, nil), caller: "alice"},
		{name: "not host", room: createTestRoom("room_1", "alice", []string{"alice", "bob"}, nil), caller: "bob"},
		{name: "missing room", caller: "alice"},
		{name: "lock failure", repoErr: lockErr, caller: "alice"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := newServiceMocks()
			m.rooms.On("GetForUpdate", ctx, "room_1").Return(tt.room, tt.repoErr)
			m.users.On("ChangeBalance", ctx, mock.Anything, mock.Anything).Return(int64(1000), nil).Maybe()
			m.history.On("Record", ctx, mock.Anything).Return(nil).Maybe()
			m.bets.On("DeleteByRoom", ctx, "room_1").Return(nil).Maybe()
			m.rounds.On("Create", ctx, mock.Anything).Return(nil).Maybe()

			_, hostErr := newTestRoomService(m).EnsureHost(ctx, "room_1", tt.caller)
			_, roundErr := newTestSettlementService(m, testSeed).StartRound(ctx, "room_1", tt.caller, evaluators.VariantPoker)

			if hostErr == nil {
				assert.NoError(t, roundErr)
				return
			}
			var se *SettlementError
			require.True(t, errors.As(roundErr, &se))
			assert.Equal(t, StageValidating, se.Stage)
			assert.Equal(t, hostErr.Error(), se.Err.Error())
			if tt.repoErr != nil {
				assert.ErrorIs(t, roundErr, tt.repoErr)
			}
		})
	}
}
