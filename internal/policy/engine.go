package policy

import (
	"context"
	"fmt"
	"time"
)

// Logger defines the logging interface used by the Engine.
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

// Directory is the subset of the device directory the Engine reads from.
type Directory interface {
	// GetSchedule returns the device's weekly schedule (empty if none).
	GetSchedule(ctx context.Context, deviceID string) (WeeklySchedule, error)

	// GetOverride returns the stored override, or nil when none is set.
	// Expired overrides are returned as stored; the Engine decides.
	GetOverride(ctx context.Context, deviceID string) (*ForcedOverride, error)

	// ClearExpiredOverride removes the override only if it expired at or
	// before now, so a replacement written concurrently survives.
	ClearExpiredOverride(ctx context.Context, deviceID string, now time.Time) error
}

// Merge combines the automatic state with an optional forced override.
//
// An override whose expiry is still in the future wins unconditionally and
// the remaining time is reported in whole seconds, rounded up so a device
// never sees 0 while still overridden. Otherwise the automatic state is
// returned with a zero countdown, and ClearOverride is set if a stale
// override was supplied.
func Merge(automatic DeviceState, override *ForcedOverride, now time.Time) Decision {
	if override.StatusAt(now) == OverrideActive {
		return Decision{
			State:            override.State,
			Automatic:        automatic,
			RemainingSeconds: ceilSeconds(override.ExpiresAt.Sub(now)),
		}
	}
	return Decision{
		State:         automatic,
		Automatic:     automatic,
		ClearOverride: override != nil,
	}
}

func ceilSeconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return secs
}

// Engine evaluates the authoritative state of a device.
//
// Every call reads the schedule and override fresh from the Directory.
// Results are never cached: clients tick their own countdown from the value
// returned and poll often enough to bound staleness.
//
// Thread Safety: Evaluate is safe for concurrent use.
type Engine struct {
	dir    Directory
	now    func() time.Time
	logger Logger
}

// NewEngine creates an Engine reading from dir.
//
// Parameters:
//   - dir: Directory providing schedules and overrides
//   - logger: Logger instance (may be nil)
func NewEngine(dir Directory, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		dir:    dir,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// SetClock replaces the engine's time source. Intended for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Evaluate resolves the device's schedule at its local time, merges the
// forced override, and lazily clears the override when it has expired.
//
// A failure to clear is logged and does not affect the returned Decision;
// the next evaluation will try again.
//
// Parameters:
//   - ctx: Context for Directory calls
//   - deviceID: Device to evaluate
//   - utcOffsetSeconds: Device's fixed offset from UTC
//
// Returns:
//   - Decision: Final state and countdown
//   - error: If the schedule or override cannot be read
func (e *Engine) Evaluate(ctx context.Context, deviceID string, utcOffsetSeconds int) (Decision, error) {
	now := e.now()

	schedule, err := e.dir.GetSchedule(ctx, deviceID)
	if err != nil {
		return Decision{}, fmt.Errorf("loading schedule for %q: %w", deviceID, err)
	}

	override, err := e.dir.GetOverride(ctx, deviceID)
	if err != nil {
		return Decision{}, fmt.Errorf("loading override for %q: %w", deviceID, err)
	}

	decision := Merge(ResolveAt(schedule, now, utcOffsetSeconds), override, now)

	if decision.ClearOverride {
		if clearErr := e.dir.ClearExpiredOverride(ctx, deviceID, now); clearErr != nil {
			e.logger.Warn("failed to clear expired override",
				"device_id", deviceID,
				"error", clearErr,
			)
		} else {
			e.logger.Debug("expired override cleared", "device_id", deviceID)
		}
	}

	return decision, nil
}
