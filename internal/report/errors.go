package report

import "errors"

var (
	// ErrCredentialMissing is returned when the device ID or secret is absent.
	ErrCredentialMissing = errors.New("report: credential missing")

	// ErrCredentialInvalid is returned when the device ID and secret do not match.
	ErrCredentialInvalid = errors.New("report: credential invalid")

	// ErrValidation is returned for malformed report or override fields.
	ErrValidation = errors.New("report: validation failed")

	// ErrDeviceNotFound is returned when an administrative action names an unknown device.
	ErrDeviceNotFound = errors.New("report: device not found")
)
