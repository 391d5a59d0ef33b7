package domain

import (
	"errors"
	"fmt"
)

// Business errors returned by the circulation engine and its storage ports.
// Callers distinguish them with errors.Is; the engine wraps them with ids
// and state so the caller can render a precise message.
var (
	// Lookup failures.
	ErrBookNotFound    = errors.New("book not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("borrow request not found")
	ErrLoanNotFound    = errors.New("loan not found")

	// Lifecycle violations.
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidState      = errors.New("invalid state for operation")
	ErrBookUnavailable   = errors.New("no copies available")
	ErrMemberNotActive   = errors.New("member is not active")
	ErrDuplicateRequest  = errors.New("pending request already exists")
	ErrRenewalNotAllowed = errors.New("renewal not allowed")
	ErrPermissionDenied  = errors.New("permission denied")

	// Storage-layer conditions.
	ErrConflict         = errors.New("concurrent update conflict")
	ErrStoreUnavailable = errors.New("storage unavailable")
)

// ErrAlreadyReturned is the InvalidState case for a second return attempt;
// errors.Is(err, ErrInvalidState) also holds for it.
var ErrAlreadyReturned = fmt.Errorf("%w: loan already returned", ErrInvalidState)
