package auth

import "errors"

// Sentinel errors for credential handling.
var (
	// ErrTokenInvalid is returned when a JWT fails signature, expiry, or claim checks.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrForbidden is returned when a valid token lacks the required role.
	ErrForbidden = errors.New("auth: insufficient permissions")

	// ErrMalformedHash is returned when a stored secret hash cannot be decoded.
	ErrMalformedHash = errors.New("auth: malformed secret hash")

	// ErrEmptySecret is returned when hashing an empty device secret.
	ErrEmptySecret = errors.New("auth: empty secret")
)
