package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cardroom/domain/entities"
	"cardroom/domain/evaluators"

	"github.com/jackc/pgx/v5"
)

const roundColumns = `id, room_id, game_type, seed, seed_commitment, members, deals, evaluations, winners, bets_snapshot, pot, created_at`

// RoundRepository implements persistence for settled rounds and their payouts
type RoundRepository struct {
	q Queryable
}

// newRoundRepository creates a new round repository with a transaction
func newRoundRepository(tx Queryable) *RoundRepository {
	return &RoundRepository{q: tx}
}

// Create inserts the round row and one payout row per winner paid
func (r *RoundRepository) Create(ctx context.Context, round *entities.Round) error {
	members, err := json.Marshal(round.Members)
	if err != nil {
		return fmt.Errorf("failed to marshal members: %w", err)
	}
	deals, err := json.Marshal(round.Deals)
	if err != nil {
		return fmt.Errorf("failed to marshal deals: %w", err)
	}
	evaluations, err := json.Marshal(round.Evaluations)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluations: %w", err)
	}
	winners, err := json.Marshal(round.Winners)
	if err != nil {
		return fmt.Errorf("failed to marshal winners: %w", err)
	}
	bets, err := json.Marshal(round.BetsSnapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal bets snapshot: %w", err)
	}

	query := `
		INSERT INTO game_rounds (` + roundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.q.Exec(ctx, query,
		round.ID,
		round.RoomID,
		string(round.Variant),
		round.Seed,
		round.SeedCommitment,
		members,
		deals,
		evaluations,
		winners,
		bets,
		round.Pot,
		round.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert round %s: %w", round.ID, err)
	}

	for _, payout := range round.Payouts {
		_, err := r.q.Exec(ctx,
			`INSERT INTO round_payouts (round_id, username, amount) VALUES ($1, $2, $3)`,
			round.ID, payout.Username, payout.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payout for %s in round %s: %w", payout.Username, round.ID, err)
		}
	}

	return nil
}

// GetByID retrieves a round with payouts, nil when absent
func (r *RoundRepository) GetByID(ctx context.Context, id string) (*entities.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM game_rounds WHERE id = $1`

	round, err := scanRound(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round %s: %w", id, err)
	}

	if err := r.loadPayouts(ctx, []*entities.Round{round}); err != nil {
		return nil, err
	}
	return round, nil
}

// List returns rounds newest first
func (r *RoundRepository) List(ctx context.Context, limit int) ([]*entities.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM game_rounds ORDER BY created_at DESC, id LIMIT $1`
	return r.queryRounds(ctx, query, limit)
}

// ListByRoom returns a room's rounds newest first
func (r *RoundRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]*entities.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM game_rounds WHERE room_id = $1 ORDER BY created_at DESC, id LIMIT $2`
	return r.queryRounds(ctx, query, roomID, limit)
}

func (r *RoundRepository) queryRounds(ctx context.Context, query string, args ...any) ([]*entities.Round, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	rounds := []*entities.Round{}
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rounds: %w", err)
	}
	rows.Close()

	if err := r.loadPayouts(ctx, rounds); err != nil {
		return nil, err
	}
	return rounds, nil
}

func (r *RoundRepository) loadPayouts(ctx context.Context, rounds []*entities.Round) error {
	if len(rounds) == 0 {
		return nil
	}
	byID := make(map[string]*entities.Round, len(rounds))
	ids := make([]string, 0, len(rounds))
	for _, round := range rounds {
		byID[round.ID] = round
		ids = append(ids, round.ID)
	}

	rows, err := r.q.Query(ctx, `
		SELECT round_id, username, amount FROM round_payouts
		WHERE round_id = ANY($1)
		ORDER BY round_id, username
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load payouts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p entities.Payout
		if err := rows.Scan(&p.RoundID, &p.Username, &p.Amount); err != nil {
			return fmt.Errorf("failed to scan payout: %w", err)
		}
		byID[p.RoundID].Payouts = append(byID[p.RoundID].Payouts, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating payouts: %w", err)
	}
	return nil
}

func scanRound(row pgx.Row) (*entities.Round, error) {
	var round entities.Round
	var gameType string
	var members, deals, evaluations, winners, bets []byte

	err := row.Scan(
		&round.ID,
		&round.RoomID,
		&gameType,
		&round.Seed,
		&round.SeedCommitment,
		&members,
		&deals,
		&evaluations,
		&winners,
		&bets,
		&round.Pot,
		&round.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	round.Variant = evaluators.Variant(gameType)

	for _, field := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"members", members, &round.Members},
		{"deals", deals, &round.Deals},
		{"evaluations", evaluations, &round.Evaluations},
		{"winners", winners, &round.Winners},
		{"bets_snapshot", bets, &round.BetsSnapshot},
	} {
		if err := json.Unmarshal(field.raw, field.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", field.name, err)
		}
	}
	return &round, nil
}
