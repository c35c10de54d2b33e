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

// TouchDevice records a device report in one transaction: the device's
// last-seen time, its new offset when supplied, and activity on its account.
func (d *SQLiteDirectory) TouchDevice(ctx context.Context, deviceID string, utcOffsetSeconds *int, at time.Time) error {
	if utcOffsetSeconds != nil {
		if err := policy.ValidateOffset(*utcOffsetSeconds); err != nil {
			return err
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var res sql.Result
	if utcOffsetSeconds != nil {
		res, err = tx.ExecContext(ctx,
			`UPDATE devices SET last_seen_at = ?, utc_offset_seconds = ? WHERE id = ?`,
			toMillis(at), *utcOffsetSeconds, deviceID)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE devices SET last_seen_at = ? WHERE id = ?`,
			toMillis(at), deviceID)
	}
	if err != nil {
		return fmt.Errorf("updating device last seen: %w", err)
	}
	if err := expectOneRow(res, ErrDeviceNotFound); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, markActivitySQL, toMillis(at), deviceID); err != nil {
		return fmt.Errorf("marking account activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing device touch: %w", err)
	}
	return nil
}

// markActivitySQL advances the owning account's activity, never backwards.
const markActivitySQL = `
	UPDATE accounts
	SET last_activity_at = MAX(COALESCE(last_activity_at, 0), ?)
	WHERE id = (SELECT account_id FROM devices WHERE id = ?)`

// MarkDeviceActivity records activity on the account owning deviceID.
func (d *SQLiteDirectory) MarkDeviceActivity(ctx context.Context, deviceID string, at time.Time) error {
	res, err := d.db.ExecContext(ctx, markActivitySQL, toMillis(at), deviceID)
	if err != nil {
		return fmt.Errorf("marking account activity: %w", err)
	}
	return expectOneRow(res, ErrDeviceNotFound)
}

// AccountsWithRecentActivity returns the IDs of accounts whose last activity
// is at or after since, oldest activity first.
func (d *SQLiteDirectory) AccountsWithRecentActivity(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id FROM accounts
		 WHERE last_activity_at IS NOT NULL AND last_activity_at >= ?
		 ORDER BY last_activity_at, id`,
		toMillis(since))
	if err != nil {
		return nil, fmt.Errorf("querying recent activity: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent activity: %w", err)
	}
	return ids, nil
}

// RecordScreenTime stores the day's usage aggregate, replacing any previous
// report for the same device and day. Devices report running totals.
func (d *SQLiteDirectory) RecordScreenTime(ctx context.Context, usage ScreenTime) error {
	if usage.DeviceID == "" || usage.Day == "" {
		return fmt.Errorf("%w: device and day are required", ErrInvalidScreenTime)
	}
	if _, err := time.Parse(time.DateOnly, usage.Day); err != nil {
		return fmt.Errorf("%w: day %q: %w", ErrInvalidScreenTime, usage.Day, err)
	}
	if usage.TotalSeconds < 0 {
		return fmt.Errorf("%w: negative total", ErrInvalidScreenTime)
	}
	for app, secs := range usage.PerApp {
		if secs < 0 {
			return fmt.Errorf("%w: negative seconds for %q", ErrInvalidScreenTime, app)
		}
	}
	if usage.PerApp == nil {
		usage.PerApp = map[string]int64{}
	}
	if usage.UpdatedAt.IsZero() {
		usage.UpdatedAt = time.Now().UTC()
	}

	perApp, err := json.Marshal(usage.PerApp)
	if err != nil {
		return fmt.Errorf("encoding per-app usage: %w", err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO screen_time (device_id, day, total_seconds, per_app, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (device_id, day) DO UPDATE SET
		     total_seconds = excluded.total_seconds,
		     per_app = excluded.per_app,
		     updated_at = excluded.updated_at`,
		usage.DeviceID, usage.Day, usage.TotalSeconds, string(perApp), toMillis(usage.UpdatedAt))
	if err != nil {
		if isForeignKeyError(err) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("recording screen time: %w", err)
	}
	return nil
}

// GetScreenTime returns the device's usage for a local day. A day with no
// report yields a zero aggregate, not an error.
func (d *SQLiteDirectory) GetScreenTime(ctx context.Context, deviceID, day string) (*ScreenTime, error) {
	usage := &ScreenTime{DeviceID: deviceID, Day: day, PerApp: map[string]int64{}}

	var (
		perApp    string
		updatedAt int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT total_seconds, per_app, updated_at FROM screen_time
		 WHERE device_id = ? AND day = ?`, deviceID, day,
	).Scan(&usage.TotalSeconds, &perApp, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return usage, nil
		}
		return nil, fmt.Errorf("querying screen time: %w", err)
	}

	if err := json.Unmarshal([]byte(perApp), &usage.PerApp); err != nil {
		return nil, fmt.Errorf("decoding per-app usage: %w", err)
	}
	usage.UpdatedAt = fromMillis(updatedAt)
	return usage, nil
}
