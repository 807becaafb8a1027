package domain

import "github.com/vypdev/vaultstadio-sub005/pkg/errors"

// Error kinds returned by the sync services. Callers match them with
// errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrNotFound means the device, conflict or item does not exist for the
	// given account.
	ErrNotFound = errors.Sentinel("not found")

	// ErrAuthorization means the entity exists but belongs to a different
	// account.
	ErrAuthorization = errors.Sentinel("not authorized")

	// ErrInvalidOperation means the request is well-formed but not valid in
	// the current state, e.g. resolving an already-resolved conflict or
	// syncing from a deactivated device.
	ErrInvalidOperation = errors.Sentinel("invalid operation")

	// ErrStorage means the backing store failed. Transient cursor allocation
	// races are retried internally and only degrade to ErrStorage after the
	// retry budget is exhausted.
	ErrStorage = errors.Sentinel("storage failure")
)
