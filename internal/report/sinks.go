package report

import (
	"context"
	"time"

	"github.com/nerrad567/family-rules-core/internal/directory"
	"github.com/nerrad567/family-rules-core/internal/policy"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CredentialValidator answers whether a device secret is valid.
// The token cache implements it.
type CredentialValidator interface {
	Validate(ctx context.Context, deviceID, secret string) (bool, error)
}

// Evaluator resolves a device's current decision.
type Evaluator interface {
	Evaluate(ctx context.Context, deviceID string, utcOffsetSeconds int) (policy.Decision, error)
	Now() time.Time
}

// Store is the directory subset used by reports.
type Store interface {
	GetDevice(ctx context.Context, id string) (*directory.Device, error)
	RecordScreenTime(ctx context.Context, usage directory.ScreenTime) error
	TouchDevice(ctx context.Context, deviceID string, utcOffsetSeconds *int, at time.Time) error
}

// AdminStore is the directory subset used by override administration.
type AdminStore interface {
	GetDevice(ctx context.Context, id string) (*directory.Device, error)
	GetOverride(ctx context.Context, deviceID string) (*policy.ForcedOverride, error)
	SetOverride(ctx context.Context, deviceID string, override policy.ForcedOverride) error
	ClearOverride(ctx context.Context, deviceID string) error
	MarkDeviceActivity(ctx context.Context, deviceID string, at time.Time) error
}

// UsageRecorder receives telemetry (InfluxDB in production).
type UsageRecorder interface {
	WriteScreenTime(deviceID, accountID string, totalSeconds int64, perApp map[string]int64, at time.Time)
	WriteDecision(deviceID, state string, automatic bool, countdownSeconds int64, at time.Time)
}

// StatusUpdate is a resolved decision announced to sinks.
type StatusUpdate struct {
	DeviceID         string             `json:"device_id"`
	AccountID        string             `json:"account_id"`
	State            policy.DeviceState `json:"state"`
	AutomaticState   policy.DeviceState `json:"automatic_state"`
	CountdownSeconds int64              `json:"countdown_seconds"`
	Reason           string             `json:"reason"`
	At               time.Time          `json:"at"`
}

// Reasons carried by StatusUpdate.
const (
	ReasonReport        = "report"
	ReasonOverrideSet   = "override_set"
	ReasonOverrideClear = "override_clear"
)

// StatusSink receives every resolved decision.
type StatusSink interface {
	PublishStatus(ctx context.Context, update StatusUpdate) error
}

// StatusSinkFunc adapts a function to StatusSink.
type StatusSinkFunc func(ctx context.Context, update StatusUpdate) error

// PublishStatus calls f.
func (f StatusSinkFunc) PublishStatus(ctx context.Context, update StatusUpdate) error {
	return f(ctx, update)
}

// newUpdate builds a StatusUpdate from a decision.
func newUpdate(device *directory.Device, decision policy.Decision, reason string, at time.Time) StatusUpdate {
	return StatusUpdate{
		DeviceID:         device.ID,
		AccountID:        device.AccountID,
		State:            decision.State,
		AutomaticState:   decision.Automatic,
		CountdownSeconds: decision.RemainingSeconds,
		Reason:           reason,
		At:               at,
	}
}

// fanOut delivers an update to every sink, logging failures.
func fanOut(ctx context.Context, sinks []StatusSink, logger Logger, update StatusUpdate) {
	for _, sink := range sinks {
		if err := sink.PublishStatus(ctx, update); err != nil {
			logger.Warn("status publish failed",
				"device_id", update.DeviceID,
				"error", err,
			)
		}
	}
}
