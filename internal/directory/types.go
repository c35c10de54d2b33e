package directory

import "time"

// Account is a family account that owns devices and receives webhooks.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// WebhookURL receives status notifications. Empty disables delivery.
	WebhookURL string `json:"webhook_url,omitempty"`

	// LastActivityAt is the last report or administrative action touching
	// any of the account's devices.
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Device is a monitored device. The secret hash never leaves this package.
type Device struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Name      string `json:"name"`

	// UTCOffsetSeconds is the fixed offset last reported by the device.
	UTCOffsetSeconds int `json:"utc_offset_seconds"`

	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ScreenTime is a device's usage aggregate for one device-local day.
type ScreenTime struct {
	DeviceID string `json:"device_id"`

	// Day is the device-local date, YYYY-MM-DD.
	Day string `json:"day"`

	TotalSeconds int64            `json:"total_seconds"`
	PerApp       map[string]int64 `json:"per_app_seconds"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
