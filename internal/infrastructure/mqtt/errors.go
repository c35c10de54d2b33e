package mqtt

import "errors"

// Sentinel errors for the status publisher; match with errors.Is.
var (
	// ErrConnectionFailed wraps the broker error or timeout seen by Connect.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrNotConnected is returned while the broker link is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrPublishFailed wraps oversized payloads, timeouts and broker rejections.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidQoS is returned for a QoS other than 0, 1 or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrInvalidDeviceID is returned when a status is published without a device id.
	ErrInvalidDeviceID = errors.New("mqtt: device id cannot be empty")
)
