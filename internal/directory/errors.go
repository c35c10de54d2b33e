package directory

import "errors"

// Domain errors for the directory package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, directory.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrAccountNotFound is returned when an account ID does not exist.
	ErrAccountNotFound = errors.New("directory: account not found")

	// ErrAccountExists is returned when creating an account whose ID is taken.
	ErrAccountExists = errors.New("directory: account already exists")

	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("directory: device not found")

	// ErrDeviceExists is returned when creating a device whose ID is taken.
	ErrDeviceExists = errors.New("directory: device already exists")

	// ErrInvalidAccount is returned when account fields fail validation.
	ErrInvalidAccount = errors.New("directory: invalid account")

	// ErrInvalidDevice is returned when device fields fail validation.
	ErrInvalidDevice = errors.New("directory: invalid device")

	// ErrInvalidScreenTime is returned for negative or inconsistent usage data.
	ErrInvalidScreenTime = errors.New("directory: invalid screen time")
)
