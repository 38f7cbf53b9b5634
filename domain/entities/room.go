package entities

import (
	"time"
)

// Room is a live game session. Members are kept in join order.
type Room struct {
	ID        string           `db:"id" json:"id"`
	Name      string           `db:"name" json:"name"`
	Host      string           `db:"host" json:"host"`
	Members   []string         `db:"-" json:"players"`
	Bets      map[string]int64 `db:"-" json:"bets"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// IsMember reports whether username has joined the room
func (r *Room) IsMember(username string) bool {
	for _, m := range r.Members {
		if m == username {
			return true
		}
	}
	return false
}

// IsHost reports whether username is the current host
func (r *Room) IsHost(username string) bool {
	return r.Host == username
}

// BetOf returns the member's current bet, 0 when none
func (r *Room) BetOf(username string) int64 {
	return r.Bets[username]
}

// Pot is the sum of all bets
func (r *Room) Pot() int64 {
	var pot int64
	for _, amount := range r.Bets {
		pot += amount
	}
	return pot
}

// MembershipTransition describes the room after a member leaves
type MembershipTransition struct {
	Remaining   []string
	Destroyed   bool
	HostChanged bool
	NewHost     string
}

// MemberLeft computes the transition for username leaving. The room itself is
// not modified. A non-member leaving yields an unchanged transition.
func (r *Room) MemberLeft(username string) MembershipTransition {
	remaining := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		if m != username {
			remaining = append(remaining, m)
		}
	}

	t := MembershipTransition{Remaining: remaining, NewHost: r.Host}
	if len(remaining) == 0 {
		t.Destroyed = true
		t.NewHost = ""
		return t
	}
	if r.Host == username {
		t.HostChanged = true
		t.NewHost = NextHost(remaining)
	}
	return t
}

// NextHost picks the successor host: the earliest joined remaining member
func NextHost(remaining []string) string {
	if len(remaining) == 0 {
		return ""
	}
	return remaining[0]
}
