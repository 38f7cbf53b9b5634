package repository

import (
	"context"
	"errors"
	"fmt"

	"cardroom/database"
	"cardroom/domain/entities"

	"github.com/jackc/pgx/v5"
)

const userColumns = `username, password_hash, role, balance, created_at, updated_at`

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a new user repository over the pool
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepository creates a new user repository with a transaction
func newUserRepository(tx Queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByUsername retrieves a user, nil when absent
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getOne(ctx, query, username)
}

// GetForUpdate retrieves a user and holds its row lock until the transaction ends
func (r *UserRepository) GetForUpdate(ctx context.Context, username string) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 FOR UPDATE`
	return r.getOne(ctx, query, username)
}

func (r *UserRepository) getOne(ctx context.Context, query, username string) (*entities.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	return user, nil
}

// EnsureUser inserts a player account when absent and returns the stored row
func (r *UserRepository) EnsureUser(ctx context.Context, username string, initialBalance int64) (*entities.User, bool, error) {
	query := `
		INSERT INTO users (username, role, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, username, entities.RolePlayer, initialBalance))
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to ensure user %s: %w", username, err)
	}

	existing, err := r.GetByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("user %s vanished during ensure", username)
	}
	return existing, false, nil
}

// ChangeBalance adds delta to the stored balance in a single statement
func (r *UserRepository) ChangeBalance(ctx context.Context, username string, delta int64) (int64, error) {
	query := `
		UPDATE users
		SET balance = balance + $2, updated_at = NOW()
		WHERE username = $1
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, username, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, entities.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to change balance for %s: %w", username, err)
	}
	return balance, nil
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
