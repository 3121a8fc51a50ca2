package openthread

import "github.com/samber/oops"

// Stack error kinds, mirroring the wrapped library's error codes that the
// agent actually distinguishes.
var (
	// ErrFailed covers unspecific stack failures.
	ErrFailed = oops.Errorf("stack operation failed")
	// ErrInvalidState is returned when an operation is not permitted in the
	// current stack state (e.g. installing a second state-change callback).
	ErrInvalidState = oops.Errorf("invalid stack state")
	// ErrInvalidArgs flags malformed inputs (bad dataset fields, oversized
	// network names).
	ErrInvalidArgs = oops.Errorf("invalid arguments")
	// ErrNotFound is returned for lookups of absent drivers or settings.
	ErrNotFound = oops.Errorf("not found")
)
