package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RoomBetRepository implements the per-room bet ledger
type RoomBetRepository struct {
	q Queryable
}

// newRoomBetRepository creates a new room bet repository with a transaction
func newRoomBetRepository(tx Queryable) *RoomBetRepository {
	return &RoomBetRepository{q: tx}
}

// SetBet upserts the member's bet
func (r *RoomBetRepository) SetBet(ctx context.Context, roomID, username string, amount int64) error {
	query := `
		INSERT INTO room_bets (room_id, username, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, username) DO UPDATE SET amount = EXCLUDED.amount
	`
	if _, err := r.q.Exec(ctx, query, roomID, username, amount); err != nil {
		return fmt.Errorf("failed to set bet for %s in room %s: %w", username, roomID, err)
	}
	return nil
}

// GetBet returns the member's bet, 0 when no row exists
func (r *RoomBetRepository) GetBet(ctx context.Context, roomID, username string) (int64, error) {
	query := `SELECT amount FROM room_bets WHERE room_id = $1 AND username = $2`

	var amount int64
	err := r.q.QueryRow(ctx, query, roomID, username).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get bet for %s in room %s: %w", username, roomID, err)
	}
	return amount, nil
}

// GetPositiveBetsByRoom returns bets greater than zero
func (r *RoomBetRepository) GetPositiveBetsByRoom(ctx context.Context, roomID string) (map[string]int64, error) {
	return r.queryBets(ctx, `SELECT username, amount FROM room_bets WHERE room_id = $1 AND amount > 0`, roomID)
}

func (r *RoomBetRepository) queryBets(ctx context.Context, query, roomID string) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets for room %s: %w", roomID, err)
	}
	defer rows.Close()

	bets := make(map[string]int64)
	for rows.Next() {
		var username string
		var amount int64
		if err := rows.Scan(&username, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets[username] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}
	return bets, nil
}

// DeleteBet removes a single member's bet
func (r *RoomBetRepository) DeleteBet(ctx context.Context, roomID, username string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM room_bets WHERE room_id = $1 AND username = $2`, roomID, username); err != nil {
		return fmt.Errorf("failed to delete bet for %s in room %s: %w", username, roomID, err)
	}
	return nil
}

// DeleteByRoom removes every bet in the room
func (r *RoomBetRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM room_bets WHERE room_id = $1`, roomID); err != nil {
		return fmt.Errorf("failed to clear bets for room %s: %w", roomID, err)
	}
	return nil
}
