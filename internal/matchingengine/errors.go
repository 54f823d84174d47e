package matchingengine

import "errors"

// Error kinds per the precondition/failure-semantics design: preconditions
// are checked before any state mutation, so every error below is returned
// with the book untouched.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrDuplicateOrder  = errors.New("duplicate order id")
	ErrUnknownOrder    = errors.New("unknown order id")

	// ErrInvariantViolation is fatal. It is only returned by checkInvariants,
	// which OrderBook.assertInvariants runs when debug invariants are on;
	// assertInvariants logs it with zerolog's Fatal, aborting the process,
	// since a corrupted book makes every subsequent operation unsound.
	ErrInvariantViolation = errors.New("order book invariant violation")
)
