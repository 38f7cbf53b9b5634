package entities

import (
	"errors"
	"time"
)

// BalanceHistory represents one ledger movement
type BalanceHistory struct {
	ID                  int64           `db:"id" json:"id"`
	Username            string          `db:"username" json:"username"`
	BalanceBefore       int64           `db:"balance_before" json:"balance_before"`
	BalanceAfter        int64           `db:"balance_after" json:"balance_after"`
	ChangeAmount        int64           `db:"change_amount" json:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type" json:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata" json:"metadata,omitempty"`
	RelatedID           *string         `db:"related_id" json:"related_id,omitempty"` // room or round id
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

// ValidateTransaction performs basic validation on the transaction
func (bh *BalanceHistory) ValidateTransaction() error {
	if bh.ChangeAmount == 0 {
		return errors.New("change amount cannot be zero")
	}
	if bh.BalanceAfter != bh.BalanceBefore+bh.ChangeAmount {
		return errors.New("balance calculation is inconsistent")
	}
	return nil
}
