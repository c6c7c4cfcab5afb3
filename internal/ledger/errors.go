package ledger

import "errors"

// Domain error taxonomy. Operations return these (usually wrapped with
// context via fmt.Errorf and %w) and commit no state when they fail; the
// HTTP layer matches them with errors.Is to pick a status code.
var (
	// ErrNotFound reports an unknown tariff, reservoir or consumer id.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists reports a creation with an id that is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrMismatch reports a failed optimistic-concurrency reference check:
	// the caller's view of the currently assigned tariff or reservoir is stale.
	ErrMismatch = errors.New("reference mismatch")

	// ErrInvalidAmount reports a zero metering amount or one outside the
	// representable range.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance reports a burn or capacity decrease that exceeds
	// the held token balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrArithmeticOverflow reports fixed-point arithmetic leaving the
	// representable range. With correctly bounded inputs this is a
	// configuration error, not a user error.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)
