package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/family-rules-core/internal/audit"
	"github.com/nerrad567/family-rules-core/internal/directory"
	"github.com/nerrad567/family-rules-core/internal/policy"
)

// MaxOverrideDuration bounds a single forced override.
const MaxOverrideDuration = 7 * 24 * time.Hour

// DeviceStatus is a device's current decision with its stored override.
type DeviceStatus struct {
	DeviceID         string                 `json:"device_id"`
	AccountID        string                 `json:"account_id"`
	Name             string                 `json:"name"`
	UTCOffsetSeconds int                    `json:"utc_offset_seconds"`
	LastSeenAt       *time.Time             `json:"last_seen_at,omitempty"`
	State            policy.DeviceState     `json:"state"`
	AutomaticState   policy.DeviceState     `json:"automatic_state"`
	CountdownSeconds int64                  `json:"countdown_seconds"`
	Override         *policy.ForcedOverride `json:"override,omitempty"`
}

// AdminOptions configures an Admin.
type AdminOptions struct {
	// Audit receives one entry per change (optional).
	Audit audit.Repository

	// Sinks receive the decision after each change (optional).
	Sinks []StatusSink

	// Logger instance (optional).
	Logger Logger
}

// Admin applies administrative overrides.
//
// Each change replaces any existing override, marks the owning account as
// active so its webhook fires, writes an audit entry and announces the new
// decision. Audit and sink failures are logged, not returned.
type Admin struct {
	store  AdminStore
	engine Evaluator
	states policy.StateSet
	audit  audit.Repository
	sinks  []StatusSink
	logger Logger
}

// NewAdmin creates an Admin.
//
// Parameters:
//   - store: Directory for overrides and activity
//   - engine: Policy engine (also the clock for expiry)
//   - states: States an override may force
//   - opts: Optional audit repository, sinks and logger
func NewAdmin(store AdminStore, engine Evaluator, states policy.StateSet, opts AdminOptions) *Admin {
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if states == nil {
		states = policy.NewStateSet(nil)
	}
	return &Admin{
		store:  store,
		engine: engine,
		states: states,
		audit:  opts.Audit,
		sinks:  opts.Sinks,
		logger: opts.Logger,
	}
}

// SetOverride forces state on a device until now+duration.
//
// Returns:
//   - policy.Decision: The device's decision after the change
//   - error: ErrValidation, ErrDeviceNotFound, or a store failure
func (a *Admin) SetOverride(ctx context.Context, deviceID string, state policy.DeviceState, duration time.Duration, actor string) (policy.Decision, error) {
	if !a.states.Contains(state) {
		return policy.Decision{}, fmt.Errorf("%w: %w: %q", ErrValidation, policy.ErrUnknownState, state)
	}
	if duration <= 0 {
		return policy.Decision{}, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}
	if duration > MaxOverrideDuration {
		return policy.Decision{}, fmt.Errorf("%w: duration exceeds %v", ErrValidation, MaxOverrideDuration)
	}

	device, err := a.loadDevice(ctx, deviceID)
	if err != nil {
		return policy.Decision{}, err
	}

	now := a.engine.Now()
	override := policy.ForcedOverride{State: state, ExpiresAt: now.Add(duration)}
	if err := a.store.SetOverride(ctx, device.ID, override); err != nil {
		return policy.Decision{}, mapStoreError(err, "storing override")
	}

	a.afterChange(ctx, device, now, audit.ActionOverrideSet, actor, map[string]any{
		"state":            string(state),
		"duration_seconds": int64(duration / time.Second),
		"expires_at":       override.ExpiresAt,
	})

	return a.announce(ctx, device, ReasonOverrideSet, now)
}

// ClearOverride removes any override on the device.
func (a *Admin) ClearOverride(ctx context.Context, deviceID, actor string) (policy.Decision, error) {
	device, err := a.loadDevice(ctx, deviceID)
	if err != nil {
		return policy.Decision{}, err
	}

	now := a.engine.Now()
	if err := a.store.ClearOverride(ctx, device.ID); err != nil {
		return policy.Decision{}, mapStoreError(err, "clearing override")
	}

	a.afterChange(ctx, device, now, audit.ActionOverrideClear, actor, nil)

	return a.announce(ctx, device, ReasonOverrideClear, now)
}

// Status returns the device's current decision and stored override.
func (a *Admin) Status(ctx context.Context, deviceID string) (*DeviceStatus, error) {
	device, err := a.loadDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	decision, err := a.engine.Evaluate(ctx, device.ID, device.UTCOffsetSeconds)
	if err != nil {
		return nil, fmt.Errorf("evaluating policy: %w", err)
	}

	// Read after Evaluate so a lazily cleared override is not reported.
	override, err := a.store.GetOverride(ctx, device.ID)
	if err != nil {
		return nil, fmt.Errorf("loading override: %w", err)
	}

	return &DeviceStatus{
		DeviceID:         device.ID,
		AccountID:        device.AccountID,
		Name:             device.Name,
		UTCOffsetSeconds: device.UTCOffsetSeconds,
		LastSeenAt:       device.LastSeenAt,
		State:            decision.State,
		AutomaticState:   decision.Automatic,
		CountdownSeconds: decision.RemainingSeconds,
		Override:         override,
	}, nil
}

func (a *Admin) loadDevice(ctx context.Context, deviceID string) (*directory.Device, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrValidation)
	}
	device, err := a.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, mapStoreError(err, "loading device")
	}
	return device, nil
}

// afterChange records account activity and the audit entry.
func (a *Admin) afterChange(ctx context.Context, device *directory.Device, now time.Time, action, actor string, details map[string]any) {
	if err := a.store.MarkDeviceActivity(ctx, device.ID, now); err != nil {
		a.logger.Warn("failed to mark account activity",
			"device_id", device.ID,
			"error", err,
		)
	}

	if a.audit == nil {
		return
	}
	entry := &audit.AuditLog{
		Action:     action,
		EntityType: audit.EntityDevice,
		EntityID:   device.ID,
		Actor:      actor,
		Source:     audit.SourceAPI,
		Details:    details,
		CreatedAt:  now,
	}
	if err := a.audit.Create(ctx, entry); err != nil {
		a.logger.Error("audit log write failed",
			"action", action,
			"device_id", device.ID,
			"error", err,
		)
	}
}

// announce evaluates the device after a change and fans the result out.
func (a *Admin) announce(ctx context.Context, device *directory.Device, reason string, now time.Time) (policy.Decision, error) {
	decision, err := a.engine.Evaluate(ctx, device.ID, device.UTCOffsetSeconds)
	if err != nil {
		return policy.Decision{}, fmt.Errorf("evaluating policy: %w", err)
	}

	a.logger.Info("override changed",
		"device_id", device.ID,
		"reason", reason,
		"state", decision.State,
		"countdown_seconds", decision.RemainingSeconds,
	)
	fanOut(ctx, a.sinks, a.logger, newUpdate(device, decision, reason, now))
	return decision, nil
}

func mapStoreError(err error, op string) error {
	if errors.Is(err, directory.ErrDeviceNotFound) {
		return ErrDeviceNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
