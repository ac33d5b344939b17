package app

import "errors"

var (
	// ErrDenied is returned when the policy engine rejects the caller.
	// The attempt fails before anything is written.
	ErrDenied = errors.New("operation not permitted")

	// ErrConflict is returned on uniqueness violations: duplicate
	// like/save/follow edges, duplicate usernames. Distinct from
	// ErrDenied so a client can treat "already liked" differently from
	// "not allowed to like".
	ErrConflict = errors.New("resource already exists")

	// ErrNotFound is returned when the target row or a referenced
	// parent row does not exist at operation time.
	ErrNotFound = errors.New("resource not found")

	ErrUsernameRequired = errors.New("username required")
	ErrMediaURLRequired = errors.New("media url required")
	ErrContentRequired  = errors.New("content required")
)
