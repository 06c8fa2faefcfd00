package ledger

import (
	"errors"
	"fmt"

	"github.com/dvloznov/payments-engine/internal/domain"
)

// Reasons an event can be ignored by the processor.
// None of them are fatal to a run.
var (
	ErrAccountLocked        = errors.New("account is locked")
	ErrInsufficientFunds    = errors.New("insufficient available funds")
	ErrUnknownTransaction   = errors.New("referenced transaction not found")
	ErrClientMismatch       = errors.New("transaction belongs to another client")
	ErrInvalidTransition    = errors.New("transaction is not in a valid state for this event")
	ErrDuplicateTransaction = errors.New("transaction id already used")
	ErrInvalidAmount        = errors.New("amount is missing or negative")
	ErrUnknownKind          = errors.New("unknown event kind")
)

// RejectionError describes an event that was dropped without mutating state.
type RejectionError struct {
	Event domain.Event
	Err   error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s tx=%d client=%d ignored: %v", e.Event.Kind, e.Event.Tx, e.Event.Client, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(ev domain.Event, reason error) error {
	return &RejectionError{Event: ev, Err: reason}
}

// IsRejection reports whether err is a business-rule rejection rather than a fault.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

// reasonKey maps a rejection to a stable label used in run statistics.
func reasonKey(err error) string {
	switch {
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrUnknownTransaction):
		return "unknown_transaction"
	case errors.Is(err, ErrClientMismatch):
		return "client_mismatch"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrDuplicateTransaction):
		return "duplicate_transaction"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrUnknownKind):
		return "unknown_kind"
	default:
		return "other"
	}
}
