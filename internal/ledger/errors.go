package ledger

import "errors"

var (
	// ErrInvalidAmount occurs when a record amount is zero, negative, or has
	// more than two decimal places.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds occurs when a withdrawal exceeds the available
	// balance, either at the creation pre-check or at verification time.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrForbidden indicates the requester lacks the capability for the
	// operation (non-owner mutating, non-staff touching verified records).
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyVerified is the idempotency guard on verify.
	ErrAlreadyVerified = errors.New("already verified")

	// ErrNotFound indicates the record does not exist or is not visible to
	// the requester.
	ErrNotFound = errors.New("not found")
)
