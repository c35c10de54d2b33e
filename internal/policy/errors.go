package policy

import "errors"

// Domain errors for the policy package.
var (
	// ErrInvalidDay is returned when a day value or name is not recognised.
	ErrInvalidDay = errors.New("policy: invalid day")

	// ErrInvalidInterval is returned when a schedule interval is out of range.
	ErrInvalidInterval = errors.New("policy: invalid interval")

	// ErrUnknownState is returned when a state is not in the configured set.
	ErrUnknownState = errors.New("policy: unknown state")

	// ErrInvalidOffset is returned when a UTC offset is out of range.
	ErrInvalidOffset = errors.New("policy: invalid utc offset")
)
