package service

import "errors"

// Typed errors returned by the relationship engine. Handlers map these to
// HTTP statuses with errors.Is; the engine never retries internally.
var (
	// ErrInvalidOperation is returned for malformed input, e.g. a
	// self-directed friend request.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrAlreadyFriends is returned when a request targets a user the
	// sender is already friends with.
	ErrAlreadyFriends = errors.New("already friends")

	// ErrRequestAlreadyPending is returned when an outstanding request
	// already exists for the pair, in either direction. Retries of
	// SendRequest surface this instead of creating duplicates.
	ErrRequestAlreadyPending = errors.New("friend request already pending")

	// ErrNotFound is returned when the referenced request, friendship or
	// user does not exist (or is no longer pending, for accept/decline).
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor lacks rights over the
	// resource, e.g. accepting a request addressed to someone else.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when an operation is applied to an already
	// resolved resource, e.g. cancelling an accepted request.
	ErrConflict = errors.New("conflict")

	// ErrTimeout is returned when the store did not answer within the
	// configured bound.
	ErrTimeout = errors.New("store timeout")
)
