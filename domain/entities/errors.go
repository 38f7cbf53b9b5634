package entities

import (
	"errors"
	"fmt"

	"cardroom/domain/cards"
	"cardroom/domain/evaluators"
)

// Precondition failures. Callers report them and do not retry.
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrNotHost             = errors.New("only the host can start the game")
	ErrNotMember           = errors.New("user is not a member of the room")
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRoundNotFound       = errors.New("round not found")
)

// ValidationError rejects a request before any mutation happens
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a request field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err was caused by bad input
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, cards.ErrInvalidCard) ||
		errors.Is(err, cards.ErrInsufficientCards) ||
		errors.Is(err, evaluators.ErrInvalidHandSize) ||
		errors.Is(err, evaluators.ErrUnknownVariant)
}

// IsPrecondition reports whether err is a domain rejection rather than a store failure.
// Everything else is a transaction failure and is reported generically.
func IsPrecondition(err error) bool {
	if IsValidation(err) {
		return true
	}
	for _, target := range []error{
		ErrRoomNotFound,
		ErrNotHost,
		ErrNotMember,
		ErrUserNotFound,
		ErrInsufficientBalance,
		ErrRoundNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
