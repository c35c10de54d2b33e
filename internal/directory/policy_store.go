package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/family-rules-core/internal/policy"
)

// GetSchedule returns the device's weekly schedule. A device that never had
// a schedule stored returns an empty (all-baseline) schedule.
func (d *SQLiteDirectory) GetSchedule(ctx context.Context, deviceID string) (policy.WeeklySchedule, error) {
	var raw string
	err := d.db.QueryRowContext(ctx,
		`SELECT schedule FROM devices WHERE id = ?`, deviceID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying schedule: %w", err)
	}

	schedule := policy.WeeklySchedule{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &schedule); err != nil {
			return nil, fmt.Errorf("decoding schedule for %q: %w", deviceID, err)
		}
	}
	return schedule, nil
}

// SetSchedule validates and replaces the device's weekly schedule.
func (d *SQLiteDirectory) SetSchedule(ctx context.Context, deviceID string, schedule policy.WeeklySchedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}
	if schedule == nil {
		schedule = policy.WeeklySchedule{}
	}

	raw, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("encoding schedule: %w", err)
	}

	res, err := d.db.ExecContext(ctx,
		`UPDATE devices SET schedule = ? WHERE id = ?`, string(raw), deviceID)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}
	return expectOneRow(res, ErrDeviceNotFound)
}

// GetOverride returns the stored override, or nil when none is set.
// Expired overrides are returned unchanged.
func (d *SQLiteDirectory) GetOverride(ctx context.Context, deviceID string) (*policy.ForcedOverride, error) {
	var (
		state     sql.NullString
		expiresAt sql.NullInt64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT override_state, override_expires_at FROM devices WHERE id = ?`, deviceID,
	).Scan(&state, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying override: %w", err)
	}

	if !state.Valid || !expiresAt.Valid {
		return nil, nil //nolint:nilnil // absent override is not an error
	}
	return &policy.ForcedOverride{
		State:     policy.DeviceState(state.String),
		ExpiresAt: fromMillis(expiresAt.Int64),
	}, nil
}

// SetOverride stores an override, replacing any existing one.
func (d *SQLiteDirectory) SetOverride(ctx context.Context, deviceID string, override policy.ForcedOverride) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE devices SET override_state = ?, override_expires_at = ? WHERE id = ?`,
		string(override.State), toMillis(override.ExpiresAt), deviceID)
	if err != nil {
		return fmt.Errorf("updating override: %w", err)
	}
	return expectOneRow(res, ErrDeviceNotFound)
}

// ClearOverride removes any override unconditionally.
func (d *SQLiteDirectory) ClearOverride(ctx context.Context, deviceID string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE devices SET override_state = NULL, override_expires_at = NULL WHERE id = ?`,
		deviceID)
	if err != nil {
		return fmt.Errorf("clearing override: %w", err)
	}
	return expectOneRow(res, ErrDeviceNotFound)
}

// ClearExpiredOverride removes the override only if it expired at or before
// now. An override replaced since it was read is left alone.
func (d *SQLiteDirectory) ClearExpiredOverride(ctx context.Context, deviceID string, now time.Time) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE devices SET override_state = NULL, override_expires_at = NULL
		 WHERE id = ? AND override_expires_at IS NOT NULL AND override_expires_at <= ?`,
		deviceID, toMillis(now))
	if err != nil {
		return fmt.Errorf("clearing expired override: %w", err)
	}
	return nil
}
