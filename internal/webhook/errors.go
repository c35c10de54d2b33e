package webhook

import "errors"

var (
	// ErrDeliveryFailed is returned when the receiver does not accept a payload.
	ErrDeliveryFailed = errors.New("webhook: delivery failed")

	// ErrInvalidURL is returned when an account's webhook URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("webhook: invalid url")

	// ErrPanic wraps a panic recovered from a collaborator during one iteration.
	ErrPanic = errors.New("webhook: recovered panic")
)
