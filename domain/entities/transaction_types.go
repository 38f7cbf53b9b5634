package entities

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial     TransactionType = "initial"
	TransactionTypeBetPlaced   TransactionType = "bet_placed"
	TransactionTypeRoundPayout TransactionType = "round_payout"
	TransactionTypeAutoRefund  TransactionType = "auto_refund"
	TransactionTypeBetReturned TransactionType = "bet_returned"
)

// IsCredit returns true if the transaction type adds to the balance
func (tt TransactionType) IsCredit() bool {
	return tt == TransactionTypeRoundPayout ||
		tt == TransactionTypeAutoRefund ||
		tt == TransactionTypeBetReturned
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}
