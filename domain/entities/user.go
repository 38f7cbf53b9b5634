package entities

import (
	"math"
	"time"
)

// Role is the authorization role attached to a user
type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

// User is a player account holding a balance of whole currency units
type User struct {
	Username     string    `db:"username" json:"username"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	Balance      int64     `db:"balance" json:"balance"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CanAfford checks if the user has sufficient balance for an amount
func (u *User) CanAfford(amount int64) bool {
	return u.Balance >= amount
}

// TruncateAmount drops any fractional part, rounding toward zero.
// Non-finite input truncates to 0.
func TruncateAmount(amount float64) int64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	t := math.Trunc(amount)
	if t >= math.MaxInt64 {
		return math.MaxInt64
	}
	if t < math.MinInt64 {
		return math.MinInt64
	}
	return int64(t)
}
