package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/family-rules-core/internal/policy"
)

func TestTouchDevice(t *testing.T) {
	d := setupTestDirectory(t)
	ctx := context.Background()
	seedDevice(t, d, "acct-1", "dev-1", "s")

	offset := 3600
	if err := d.TouchDevice(ctx, "dev-1", &offset, t0); err != nil {
		t.Fatalf("TouchDevice() error = %v", err)
	}

	dev, err := d.GetDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if dev.UTCOffsetSeconds != 3600 {
		t.Errorf("UTCOffsetSeconds = %d, want 3600", dev.UTCOffsetSeconds)
	}
	if dev.LastSeenAt == nil || !dev.LastSeenAt.Equal(t0) {
		t.Errorf("LastSeenAt = %v, want %v", dev.LastSeenAt, t0)
	}

	// Nil offset keeps the stored one.
	if err := d.TouchDevice(ctx, "dev-1", nil, t0.Add(time.Minute)); err != nil {
		t.Fatalf("TouchDevice() error = %v", err)
	}
	dev, _ = d.GetDevice(ctx, "dev-1") //nolint:errcheck // checked via dev
	if dev.UTCOffsetSeconds != 3600 {
		t.Errorf("UTCOffsetSeconds = %d, want unchanged 3600", dev.UTCOffsetSeconds)
	}

	acct, err := d.GetAccount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if acct.LastActivityAt == nil || !acct.LastActivityAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("LastActivityAt = %v, want %v", acct.LastActivityAt, t0.Add(time.Minute))
	}

	bad := 19 * 3600
	if err := d.TouchDevice(ctx, "dev-1", &bad, t0); !errors.Is(err, policy.ErrInvalidOffset) {
		t.Errorf("TouchDevice(bad offset) error = %v, want ErrInvalidOffset", err)
	}
	if err := d.TouchDevice(ctx, "missing", nil, t0); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("TouchDevice(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestMarkDeviceActivity_NeverMovesBackwards(t *testing.T) {
	d := setupTestDirectory(t)
	ctx := context.Background()
	seedDevice(t, d, "acct-1", "dev-1", "s")

	if err := d.MarkDeviceActivity(ctx, "dev-1", t0.Add(time.Hour)); err != nil {
		t.Fatalf("MarkDeviceActivity() error = %v", err)
	}
	if err := d.MarkDeviceActivity(ctx, "dev-1", t0); err != nil {
		t.Fatalf("MarkDeviceActivity() error = %v", err)
	}

	acct, _ := d.GetAccount(ctx, "acct-1") //nolint:errcheck // checked via acct
	if !acct.LastActivityAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("LastActivityAt = %v, want %v", acct.LastActivityAt, t0.Add(time.Hour))
	}
	if err := d.MarkDeviceActivity(ctx, "missing", t0); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("MarkDeviceActivity(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestAccountsWithRecentActivity(t *testing.T) {
	d := setupTestDirectory(t)
	ctx := context.Background()
	seedDevice(t, d, "acct-1", "dev-1", "s")
	seedDevice(t, d, "acct-2", "dev-2", "s")
	seedDevice(t, d, "acct-3", "dev-3", "s") // never active

	if err := d.MarkDeviceActivity(ctx, "dev-1", t0); err != nil {
		t.Fatalf("MarkDeviceActivity() error = %v", err)
	}
	if err := d.MarkDeviceActivity(ctx, "dev-2", t0.Add(30*time.Second)); err != nil {
		t.Fatalf("MarkDeviceActivity() error = %v", err)
	}

	tests := []struct {
		name  string
		since time.Time
		want  []string
	}{
		{"window covers both", t0.Add(-time.Minute), []string{"acct-1", "acct-2"}},
		{"inclusive lower bound", t0, []string{"acct-1", "acct-2"}},
		{"only the later", t0.Add(time.Second), []string{"acct-2"}},
		{"none", t0.Add(time.Minute), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.AccountsWithRecentActivity(ctx, tt.since)
			if err != nil {
				t.Fatalf("AccountsWithRecentActivity() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScreenTime(t *testing.T) {
	d := setupTestDirectory(t)
	ctx := context.Background()
	seedDevice(t, d, "acct-1", "dev-1", "s")

	empty, err := d.GetScreenTime(ctx, "dev-1", "2026-03-02")
	if err != nil {
		t.Fatalf("GetScreenTime() error = %v", err)
	}
	if empty.TotalSeconds != 0 || len(empty.PerApp) != 0 {
		t.Errorf("empty day = %+v, want zero", empty)
	}

	first := ScreenTime{DeviceID: "dev-1", Day: "2026-03-02", TotalSeconds: 600, PerApp: map[string]int64{"video": 600}}
	if err := d.RecordScreenTime(ctx, first); err != nil {
		t.Fatalf("RecordScreenTime() error = %v", err)
	}
	second := ScreenTime{DeviceID: "dev-1", Day: "2026-03-02", TotalSeconds: 900, PerApp: map[string]int64{"video": 700, "games": 200}}
	if err := d.RecordScreenTime(ctx, second); err != nil {
		t.Fatalf("RecordScreenTime() error = %v", err)
	}

	got, err := d.GetScreenTime(ctx, "dev-1", "2026-03-02")
	if err != nil {
		t.Fatalf("GetScreenTime() error = %v", err)
	}
	if got.TotalSeconds != 900 || got.PerApp["games"] != 200 || got.PerApp["video"] != 700 {
		t.Errorf("GetScreenTime() = %+v, want latest report", got)
	}
}

func TestRecordScreenTime_Rejects(t *testing.T) {
	d := setupTestDirectory(t)
	ctx := context.Background()
	seedDevice(t, d, "acct-1", "dev-1", "s")

	tests := []struct {
		name    string
		usage   ScreenTime
		wantErr error
	}{
		{"negative total", ScreenTime{DeviceID: "dev-1", Day: "2026-03-02", TotalSeconds: -1}, ErrInvalidScreenTime},
		{"negative app", ScreenTime{DeviceID: "dev-1", Day: "2026-03-02", PerApp: map[string]int64{"x": -5}}, ErrInvalidScreenTime},
		{"bad day", ScreenTime{DeviceID: "dev-1", Day: "monday"}, ErrInvalidScreenTime},
		{"unknown device", ScreenTime{DeviceID: "dev-9", Day: "2026-03-02"}, ErrDeviceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.RecordScreenTime(ctx, tt.usage); !errors.Is(err, tt.wantErr) {
				t.Errorf("RecordScreenTime() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
