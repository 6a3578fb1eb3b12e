package core

import "errors"

// Domain error sentinels. Handlers check these with errors.Is; the
// underlying error returned to the caller is always wrapped with
// fmt.Errorf("...: %w", Err...) so the failing operation stays in the
// message while the sentinel survives unwrapping.
var (
	ErrInvalidAmount   = errors.New("amount must be a positive decimal")
	ErrInvalidConcept  = errors.New("concept must not be empty")
	ErrUserNotFound    = errors.New("user not found")
	ErrNotProvisional  = errors.New("transaction is not in PROVISIONAL status")
	ErrNotOwner        = errors.New("transaction does not belong to owner")
	ErrMissingMerchant = errors.New("merchant is required to verify a transaction")
	ErrNotFound        = errors.New("transaction not found")
)
