package repository

import (
	"context"
	"fmt"

	"cardroom/domain/entities"

	"github.com/jackc/pgx/v5"
)

// RefundEventRepository implements persistence for reaper refunds
type RefundEventRepository struct {
	q Queryable
}

// newRefundEventRepository creates a new refund event repository with a transaction
func newRefundEventRepository(tx Queryable) *RefundEventRepository {
	return &RefundEventRepository{q: tx}
}

// Create inserts a refund record
func (r *RefundEventRepository) Create(ctx context.Context, event *entities.RefundEvent) error {
	query := `
		INSERT INTO refund_events (room_id, username, amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.q.QueryRow(ctx, query, event.RoomID, event.Username, event.Amount, event.CreatedAt).Scan(&event.ID); err != nil {
		return fmt.Errorf("failed to record refund for %s in room %s: %w", event.Username, event.RoomID, err)
	}
	return nil
}

// List returns refunds newest first
func (r *RefundEventRepository) List(ctx context.Context, limit int) ([]*entities.RefundEvent, error) {
	query := `
		SELECT id, room_id, username, amount, created_at
		FROM refund_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	return scanRefunds(rows)
}

// ListByRoom returns a room's refunds newest first
func (r *RefundEventRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]*entities.RefundEvent, error) {
	query := `
		SELECT id, room_id, username, amount, created_at
		FROM refund_events
		WHERE room_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds for room %s: %w", roomID, err)
	}
	return scanRefunds(rows)
}

func scanRefunds(rows pgx.Rows) ([]*entities.RefundEvent, error) {
	defer rows.Close()

	refunds := []*entities.RefundEvent{}
	for rows.Next() {
		var e entities.RefundEvent
		if err := rows.Scan(&e.ID, &e.RoomID, &e.Username, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		refunds = append(refunds, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating refunds: %w", err)
	}
	return refunds, nil
}
