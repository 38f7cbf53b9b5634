package testutil

import (
	"context"
	"testing"
	"time"

	"cardroom/database"
	"cardroom/domain/entities"

	"github.com/stretchr/testify/require"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(username string) *entities.User {
	now := time.Now()
	return &entities.User{
		Username:  username,
		Role:      entities.RolePlayer,
		Balance:   1000,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestRoom creates an unsaved room with the host as the only member
func CreateTestRoom(id, host string) *entities.Room {
	return &entities.Room{
		ID:        id,
		Name:      "Room " + id,
		Host:      host,
		Members:   []string{host},
		Bets:      map[string]int64{host: 0},
		CreatedAt: time.Now().UTC(),
	}
}

// SeedUser inserts a user row directly
func SeedUser(t *testing.T, db *database.DB, username string, balance int64) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`INSERT INTO users (username, role, balance) VALUES ($1, 'player', $2)`,
		username, balance,
	)
	require.NoError(t, err)
}

// Balance reads a user's balance outside any unit of work
func Balance(t *testing.T, db *database.DB, username string) int64 {
	t.Helper()
	var balance int64
	err := db.QueryRow(context.Background(), `SELECT balance FROM users WHERE username = $1`, username).Scan(&balance)
	require.NoError(t, err)
	return balance
}

// BetTotal reads the sum of bets in a room outside any unit of work
func BetTotal(t *testing.T, db *database.DB, roomID string) int64 {
	t.Helper()
	var total int64
	err := db.QueryRow(context.Background(),
		`SELECT COALESCE(SUM(amount), 0) FROM room_bets WHERE room_id = $1`, roomID,
	).Scan(&total)
	require.NoError(t, err)
	return total
}

// CountRows counts rows of a table outside any unit of work
func CountRows(t *testing.T, db *database.DB, table string) int {
	t.Helper()
	var n int
	err := db.QueryRow(context.Background(), `SELECT COUNT(*) FROM `+table).Scan(&n)
	require.NoError(t, err)
	return n
}
