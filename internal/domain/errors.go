package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrNotConnected        = errors.New("channel not connected")
	ErrConnectionClosed    = errors.New("connection closed")
	ErrAuthRejected        = errors.New("authentication rejected")
	ErrConnectivity        = errors.New("connectivity lost")
	ErrMalformedEvent      = errors.New("malformed event payload")
	ErrUnknownCategory     = errors.New("unknown game category")
	ErrRoundNotOpen        = errors.New("round is not accepting stakes")
	ErrEmptySelection      = errors.New("no options selected")
	ErrTooManySelections   = errors.New("too many options selected")
	ErrUnknownOption       = errors.New("option not offered by round")
	ErrInvalidStake        = errors.New("stake must be a positive amount")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
)

// StaleItemsError reports cart items whose round has left the open status
// between staging and submission. The whole batch is rejected; the caller can
// remove or replace the listed items and retry.
type StaleItemsError struct {
	ItemIDs []string
}

func (e *StaleItemsError) Error() string {
	return fmt.Sprintf("cart: %d stale item(s): %s", len(e.ItemIDs), strings.Join(e.ItemIDs, ", "))
}

// Unwrap lets callers match the error with errors.Is(err, ErrRoundNotOpen).
func (e *StaleItemsError) Unwrap() error {
	return ErrRoundNotOpen
}

// SubmissionRejectedError is returned when the authority declines a batch
// that passed every local check, for example when the round closed between
// the client-side re-validation and arrival at the server.
type SubmissionRejectedError struct {
	Reason  string
	ItemIDs []string // offending items when the authority identifies them
}

func (e *SubmissionRejectedError) Error() string {
	if len(e.ItemIDs) == 0 {
		return fmt.Sprintf("submission rejected: %s", e.Reason)
	}
	return fmt.Sprintf("submission rejected: %s (items: %s)", e.Reason, strings.Join(e.ItemIDs, ", "))
}
