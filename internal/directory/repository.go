package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/family-rules-core/internal/auth"
	"github.com/nerrad567/family-rules-core/internal/policy"
)

// maxNameLength bounds account and device names.
const maxNameLength = 100

// Repository defines every directory operation used by the service.
// This abstraction allows for mock implementations in tests.
type Repository interface {
	// CreateAccount inserts a new account, generating an ID when empty.
	// Returns ErrAccountExists if the ID is taken.
	CreateAccount(ctx context.Context, account *Account) error

	// GetAccount retrieves an account. Returns ErrAccountNotFound if absent.
	GetAccount(ctx context.Context, id string) (*Account, error)

	// SetWebhookURL replaces the account's webhook URL ("" disables delivery).
	SetWebhookURL(ctx context.Context, accountID, url string) error

	// CreateDevice inserts a device and stores a hash of secret.
	// Returns ErrDeviceExists if the ID is taken.
	CreateDevice(ctx context.Context, device *Device, secret string) error

	// SetDeviceSecret rotates the device's secret.
	SetDeviceSecret(ctx context.Context, deviceID, secret string) error

	// GetDevice retrieves a device. Returns ErrDeviceNotFound if absent.
	GetDevice(ctx context.Context, id string) (*Device, error)

	// ListDevicesByAccount returns the account's devices ordered by name.
	ListDevicesByAccount(ctx context.Context, accountID string) ([]Device, error)

	// Validate reports whether secret matches the device's stored hash.
	// An unknown device is reported as false, not as an error.
	Validate(ctx context.Context, deviceID, secret string) (bool, error)

	GetSchedule(ctx context.Context, deviceID string) (policy.WeeklySchedule, error)
	SetSchedule(ctx context.Context, deviceID string, schedule policy.WeeklySchedule) error

	GetOverride(ctx context.Context, deviceID string) (*policy.ForcedOverride, error)
	SetOverride(ctx context.Context, deviceID string, override policy.ForcedOverride) error
	ClearOverride(ctx context.Context, deviceID string) error
	ClearExpiredOverride(ctx context.Context, deviceID string, now time.Time) error

	// TouchDevice records a device report: last seen, optional new offset
	// and activity on the owning account.
	TouchDevice(ctx context.Context, deviceID string, utcOffsetSeconds *int, at time.Time) error

	// MarkDeviceActivity records activity on the account owning deviceID.
	MarkDeviceActivity(ctx context.Context, deviceID string, at time.Time) error

	// AccountsWithRecentActivity returns accounts active at or after since.
	AccountsWithRecentActivity(ctx context.Context, since time.Time) ([]string, error)

	RecordScreenTime(ctx context.Context, usage ScreenTime) error
	GetScreenTime(ctx context.Context, deviceID, day string) (*ScreenTime, error)
}

// SQLiteDirectory implements Repository using SQLite.
//
// Thread Safety: safe for concurrent use; *sql.DB serialises access.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLiteDirectory creates a directory backed by db.
// The schema must already be migrated.
func NewSQLiteDirectory(db *sql.DB) *SQLiteDirectory {
	return &SQLiteDirectory{db: db}
}

// CreateAccount inserts a new account.
func (d *SQLiteDirectory) CreateAccount(ctx context.Context, account *Account) error {
	account.Name = strings.TrimSpace(account.Name)
	if account.Name == "" || len(account.Name) > maxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidAccount, maxNameLength)
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, webhook_url, last_activity_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		account.ID, account.Name, account.WebhookURL,
		nullableMillis(account.LastActivityAt), toMillis(account.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAccountExists
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (d *SQLiteDirectory) GetAccount(ctx context.Context, id string) (*Account, error) {
	var (
		a            Account
		lastActivity sql.NullInt64
		createdAt    int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, webhook_url, last_activity_at, created_at
		 FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.WebhookURL, &lastActivity, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("querying account: %w", err)
	}

	a.LastActivityAt = fromNullMillis(lastActivity)
	a.CreatedAt = fromMillis(createdAt)
	return &a, nil
}

// SetWebhookURL replaces the account's webhook URL.
func (d *SQLiteDirectory) SetWebhookURL(ctx context.Context, accountID, url string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE accounts SET webhook_url = ? WHERE id = ?`, strings.TrimSpace(url), accountID)
	if err != nil {
		return fmt.Errorf("updating webhook url: %w", err)
	}
	return expectOneRow(res, ErrAccountNotFound)
}

// CreateDevice inserts a device, storing only the Argon2id hash of secret.
func (d *SQLiteDirectory) CreateDevice(ctx context.Context, device *Device, secret string) error {
	device.Name = strings.TrimSpace(device.Name)
	if device.Name == "" || len(device.Name) > maxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidDevice, maxNameLength)
	}
	if device.AccountID == "" {
		return fmt.Errorf("%w: account_id is required", ErrInvalidDevice)
	}
	if err := policy.ValidateOffset(device.UTCOffsetSeconds); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDevice, err)
	}

	hash, err := auth.HashSecret(secret)
	if err != nil {
		return fmt.Errorf("hashing device secret: %w", err)
	}

	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO devices (id, account_id, name, secret_hash, utc_offset_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		device.ID, device.AccountID, device.Name, hash,
		device.UTCOffsetSeconds, toMillis(device.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		if isForeignKeyError(err) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// SetDeviceSecret rotates a device's secret.
//
// Entries already held by a token cache stay valid until their TTL lapses.
func (d *SQLiteDirectory) SetDeviceSecret(ctx context.Context, deviceID, secret string) error {
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return fmt.Errorf("hashing device secret: %w", err)
	}

	res, err := d.db.ExecContext(ctx,
		`UPDATE devices SET secret_hash = ? WHERE id = ?`, hash, deviceID)
	if err != nil {
		return fmt.Errorf("updating device secret: %w", err)
	}
	return expectOneRow(res, ErrDeviceNotFound)
}

const deviceColumns = `id, account_id, name, utc_offset_seconds, last_seen_at, created_at`

// GetDevice retrieves a device by ID.
func (d *SQLiteDirectory) GetDevice(ctx context.Context, id string) (*Device, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)

	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device: %w", err)
	}
	return device, nil
}

// ListDevicesByAccount returns an account's devices ordered by name.
func (d *SQLiteDirectory) ListDevicesByAccount(ctx context.Context, accountID string) ([]Device, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE account_id = ? ORDER BY name, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Validate checks a device credential against the stored hash.
func (d *SQLiteDirectory) Validate(ctx context.Context, deviceID, secret string) (bool, error) {
	var hash string
	err := d.db.QueryRowContext(ctx,
		`SELECT secret_hash FROM devices WHERE id = ?`, deviceID,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("querying device secret: %w", err)
	}

	ok, err := auth.VerifySecret(secret, hash)
	if err != nil {
		return false, fmt.Errorf("verifying device secret: %w", err)
	}
	return ok, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var (
		device    Device
		lastSeen  sql.NullInt64
		createdAt int64
	)
	if err := row.Scan(&device.ID, &device.AccountID, &device.Name,
		&device.UTCOffsetSeconds, &lastSeen, &createdAt); err != nil {
		return nil, err
	}
	device.LastSeenAt = fromNullMillis(lastSeen)
	device.CreatedAt = fromMillis(createdAt)
	return &device, nil
}

// expectOneRow maps an UPDATE that touched nothing to notFound.
func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// isUniqueConstraintError checks if an error is a SQLite primary key or
// unique constraint violation.
func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}
