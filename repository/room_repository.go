package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardroom/domain/entities"

	"github.com/jackc/pgx/v5"
)

// RoomRepository implements room and membership persistence
type RoomRepository struct {
	q Queryable
}

// newRoomRepository creates a new room repository with a transaction
func newRoomRepository(tx Queryable) *RoomRepository {
	return &RoomRepository{q: tx}
}

// Create inserts the room and its host as the first member
func (r *RoomRepository) Create(ctx context.Context, room *entities.Room) error {
	query := `
		INSERT INTO rooms (id, name, host, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.q.Exec(ctx, query, room.ID, room.Name, room.Host, room.CreatedAt); err != nil {
		return fmt.Errorf("failed to create room %s: %w", room.ID, err)
	}
	for _, member := range room.Members {
		if err := r.AddMember(ctx, room.ID, member); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a room with members and bets, nil when absent
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*entities.Room, error) {
	return r.getOne(ctx, `SELECT id, name, host, created_at FROM rooms WHERE id = $1`, id)
}

// GetForUpdate retrieves a room and holds its row lock until the transaction ends.
// Every room mutation takes this lock first, which serializes work on one room.
func (r *RoomRepository) GetForUpdate(ctx context.Context, id string) (*entities.Room, error) {
	return r.getOne(ctx, `SELECT id, name, host, created_at FROM rooms WHERE id = $1 FOR UPDATE`, id)
}

func (r *RoomRepository) getOne(ctx context.Context, query, id string) (*entities.Room, error) {
	var room entities.Room
	err := r.q.QueryRow(ctx, query, id).Scan(&room.ID, &room.Name, &room.Host, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", id, err)
	}

	rooms := []*entities.Room{&room}
	if err := r.loadMembersAndBets(ctx, rooms); err != nil {
		return nil, err
	}
	return &room, nil
}

// List returns every room, newest first
func (r *RoomRepository) List(ctx context.Context) ([]*entities.Room, error) {
	query := `SELECT id, name, host, created_at FROM rooms ORDER BY created_at DESC, id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*entities.Room
	for rows.Next() {
		var room entities.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Host, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rooms: %w", err)
	}
	rows.Close()

	if err := r.loadMembersAndBets(ctx, rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// loadMembersAndBets fills Members (join order) and Bets for the given rooms
func (r *RoomRepository) loadMembersAndBets(ctx context.Context, rooms []*entities.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	byID := make(map[string]*entities.Room, len(rooms))
	ids := make([]string, 0, len(rooms))
	for _, room := range rooms {
		room.Members = []string{}
		room.Bets = make(map[string]int64)
		byID[room.ID] = room
		ids = append(ids, room.ID)
	}

	memberRows, err := r.q.Query(ctx, `
		SELECT room_id, username FROM room_members
		WHERE room_id = ANY($1)
		ORDER BY room_id, join_seq
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load room members: %w", err)
	}
	for memberRows.Next() {
		var roomID, username string
		if err := memberRows.Scan(&roomID, &username); err != nil {
			memberRows.Close()
			return fmt.Errorf("failed to scan room member: %w", err)
		}
		byID[roomID].Members = append(byID[roomID].Members, username)
	}
	memberRows.Close()
	if err := memberRows.Err(); err != nil {
		return fmt.Errorf("error iterating room members: %w", err)
	}

	betRows, err := r.q.Query(ctx, `SELECT room_id, username, amount FROM room_bets WHERE room_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to load room bets: %w", err)
	}
	defer betRows.Close()
	for betRows.Next() {
		var roomID, username string
		var amount int64
		if err := betRows.Scan(&roomID, &username, &amount); err != nil {
			return fmt.Errorf("failed to scan room bet: %w", err)
		}
		byID[roomID].Bets[username] = amount
	}
	if err := betRows.Err(); err != nil {
		return fmt.Errorf("error iterating room bets: %w", err)
	}
	return nil
}

// ListByMember returns ids of the rooms the user has joined, in join order
func (r *RoomRepository) ListByMember(ctx context.Context, username string) ([]string, error) {
	return r.queryIDs(ctx, `SELECT room_id FROM room_members WHERE username = $1 ORDER BY join_seq`, username)
}

// ListIdleWithBets returns rooms created before cutoff that hold at least one positive bet
func (r *RoomRepository) ListIdleWithBets(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
		SELECT r.id
		FROM rooms r
		WHERE r.created_at < $1
		  AND EXISTS (SELECT 1 FROM room_bets b WHERE b.room_id = r.id AND b.amount > 0)
		ORDER BY r.created_at
	`
	return r.queryIDs(ctx, query, cutoff)
}

func (r *RoomRepository) queryIDs(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query room ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan room id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room ids: %w", err)
	}
	return ids, nil
}

// AddMember appends a member; an existing membership keeps its join position
func (r *RoomRepository) AddMember(ctx context.Context, roomID, username string) error {
	query := `
		INSERT INTO room_members (room_id, username)
		VALUES ($1, $2)
		ON CONFLICT (room_id, username) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, query, roomID, username); err != nil {
		return fmt.Errorf("failed to add %s to room %s: %w", username, roomID, err)
	}
	return nil
}

// RemoveMember deletes a membership row
func (r *RoomRepository) RemoveMember(ctx context.Context, roomID, username string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM room_members WHERE room_id = $1 AND username = $2`, roomID, username); err != nil {
		return fmt.Errorf("failed to remove %s from room %s: %w", username, roomID, err)
	}
	return nil
}

// UpdateHost changes the room host
func (r *RoomRepository) UpdateHost(ctx context.Context, roomID, host string) error {
	tag, err := r.q.Exec(ctx, `UPDATE rooms SET host = $2 WHERE id = $1`, roomID, host)
	if err != nil {
		return fmt.Errorf("failed to update host of room %s: %w", roomID, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrRoomNotFound
	}
	return nil
}

// Delete removes the room; members and bets cascade
func (r *RoomRepository) Delete(ctx context.Context, roomID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID); err != nil {
		return fmt.Errorf("failed to delete room %s: %w", roomID, err)
	}
	return nil
}
