// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repository/service/transport layers.
var (
	// ErrNotFound indicates the requested seed, auth token or account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed input (uid, PIN, seed, phrase, derivation path, payload).
	ErrValidation = errors.New("validation")

	// ErrCapacityExceeded indicates the vault already holds the maximum number of seeds.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrKeyDoesNotExist indicates a structurally valid path whose derivation yields no key.
	ErrKeyDoesNotExist = errors.New("key does not exist")

	// ErrTimeout indicates the read model did not observe a committed write in time.
	ErrTimeout = errors.New("change propagation timeout")

	// ErrInvariant indicates a programming error (e.g. an in-place authorization update).
	ErrInvariant = errors.New("invariant violation")

	// ErrVersionConflict indicates the durable document changed under a compare-and-swap.
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnsupportedPurpose indicates a purpose with no registered derivation/signing scheme.
	ErrUnsupportedPurpose = errors.New("unsupported purpose")

	// ErrUnauthorized indicates a missing caller identity or an auth token not issued to the caller.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates PIN entry is temporarily locked for the caller.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthenticationFailed indicates a wrong PIN.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrLimitExceeded indicates a request above the published implementation limits.
	ErrLimitExceeded = errors.New("implementation limit exceeded")

	// ErrNoAvailableSeeds indicates every seed is already authorized for the caller.
	ErrNoAvailableSeeds = errors.New("no available seeds")
)
