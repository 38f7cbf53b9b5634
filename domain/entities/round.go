package entities

import (
	"time"

	"cardroom/domain/evaluators"
)

// Round is the immutable audit record of one settled deal
type Round struct {
	ID             string                           `json:"id"`
	RoomID         string                           `json:"room_id"`
	Variant        evaluators.Variant               `json:"game_type"`
	Seed           string                           `json:"seed"`
	SeedCommitment string                           `json:"seed_commitment"`
	Members        []string                         `json:"members"`
	Deals          map[string][]string              `json:"deals"`
	Evaluations    map[string]evaluators.Evaluation `json:"evaluations"`
	Winners        []string                         `json:"winners"`
	BetsSnapshot   map[string]int64                 `json:"bets_snapshot"`
	Pot            int64                            `json:"pot"`
	Payouts        []Payout                         `json:"payouts"`
	CreatedAt      time.Time                        `json:"created_at"`
}

// Payout is the amount one winner received from a round
type Payout struct {
	RoundID  string `json:"round_id"`
	Username string `json:"username"`
	Amount   int64  `json:"amount"`
}

// TotalPayout sums the amounts paid out for the round
func (r *Round) TotalPayout() int64 {
	var total int64
	for _, p := range r.Payouts {
		total += p.Amount
	}
	return total
}

// PayoutFor returns the amount paid to username, 0 when none
func (r *Round) PayoutFor(username string) int64 {
	for _, p := range r.Payouts {
		if p.Username == username {
			return p.Amount
		}
	}
	return 0
}

// RefundEvent records a bet returned by the idle room reaper
type RefundEvent struct {
	ID        int64     `json:"id"`
	RoomID    string    `json:"room_id"`
	Username  string    `json:"username"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
