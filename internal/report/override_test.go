package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/family-rules-core/internal/audit"
	"github.com/nerrad567/family-rules-core/internal/policy"
)

func TestSetOverride_Validation(t *testing.T) {
	f := setupFixture(t)

	tests := []struct {
		name     string
		deviceID string
		state    policy.DeviceState
		duration time.Duration
		wantErr  error
	}{
		{"unknown state", testDevice, "SLEEPING", time.Minute, ErrValidation},
		{"zero duration", testDevice, policy.StateLocked, 0, ErrValidation},
		{"negative duration", testDevice, policy.StateLocked, -time.Second, ErrValidation},
		{"too long", testDevice, policy.StateLocked, MaxOverrideDuration + time.Second, ErrValidation},
		{"blank device", " ", policy.StateLocked, time.Minute, ErrValidation},
		{"unknown device", "ghost", policy.StateLocked, time.Minute, ErrDeviceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.admin.SetOverride(context.Background(), tt.deviceID, tt.state, tt.duration, "admin")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SetOverride() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	_, err := f.admin.SetOverride(context.Background(), testDevice, "SLEEPING", time.Minute, "admin")
	if !errors.Is(err, policy.ErrUnknownState) {
		t.Errorf("SetOverride(SLEEPING) error = %v, want policy.ErrUnknownState", err)
	}
}

func TestSetOverride_CustomStateAndReplace(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	if _, err := f.admin.SetOverride(ctx, testDevice, "HOMEWORK", time.Hour, "admin"); err != nil {
		t.Fatalf("SetOverride(HOMEWORK) error = %v", err)
	}

	f.now = t0.Add(10 * time.Minute)
	dec, err := f.admin.SetOverride(ctx, testDevice, policy.StateLoggedOut, 30*time.Second, "admin")
	if err != nil {
		t.Fatalf("SetOverride(LOGGED_OUT) error = %v", err)
	}
	// Replaces, does not accumulate.
	if dec.State != policy.StateLoggedOut || dec.RemainingSeconds != 30 {
		t.Errorf("decision = %+v, want LOGGED_OUT/30", dec)
	}

	status, err := f.admin.Status(ctx, testDevice)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Override == nil || !status.Override.ExpiresAt.Equal(f.now.Add(30*time.Second)) {
		t.Errorf("Status().Override = %+v", status.Override)
	}
	if status.AccountID != "acct-1" || status.AutomaticState != policy.StateActive {
		t.Errorf("Status() = %+v", status)
	}
}

func TestClearOverride(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	if _, err := f.admin.SetOverride(ctx, testDevice, policy.StateLocked, time.Hour, "admin"); err != nil {
		t.Fatalf("SetOverride() error = %v", err)
	}

	f.now = t0.Add(time.Minute)
	dec, err := f.admin.ClearOverride(ctx, testDevice, "admin")
	if err != nil {
		t.Fatalf("ClearOverride() error = %v", err)
	}
	if dec.State != policy.StateActive || dec.RemainingSeconds != 0 {
		t.Errorf("decision = %+v, want ACTIVE/0", dec)
	}

	status, err := f.admin.Status(ctx, testDevice)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Override != nil {
		t.Errorf("Status().Override = %+v, want nil", status.Override)
	}

	logs, err := f.audit.List(ctx, audit.Filter{EntityID: testDevice})
	if err != nil {
		t.Fatalf("audit List() error = %v", err)
	}
	if logs.Total != 2 || logs.Logs[0].Action != audit.ActionOverrideClear {
		t.Errorf("audit = %+v", logs.Logs)
	}

	// Both changes marked the account active at their own instants.
	acct, _ := f.dir.GetAccount(ctx, "acct-1") //nolint:errcheck // checked via acct
	if acct.LastActivityAt == nil || !acct.LastActivityAt.Equal(f.now) {
		t.Errorf("LastActivityAt = %v, want %v", acct.LastActivityAt, f.now)
	}

	reasons := make([]string, 0, len(f.sink.updates))
	for _, u := range f.sink.updates {
		reasons = append(reasons, u.Reason)
	}
	if len(reasons) != 2 || reasons[0] != ReasonOverrideSet || reasons[1] != ReasonOverrideClear {
		t.Errorf("sink reasons = %v", reasons)
	}

	if _, err := f.admin.ClearOverride(ctx, "ghost", "admin"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("ClearOverride(ghost) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestStatus_ExpiredOverrideNotReported(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	if _, err := f.admin.SetOverride(ctx, testDevice, policy.StateLocked, time.Minute, "admin"); err != nil {
		t.Fatalf("SetOverride() error = %v", err)
	}

	f.now = t0.Add(2 * time.Minute)
	status, err := f.admin.Status(ctx, testDevice)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.State != policy.StateActive || status.Override != nil {
		t.Errorf("Status() = %+v, want ACTIVE with no override", status)
	}
	if _, err := f.admin.Status(ctx, "ghost"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Status(ghost) error = %v, want ErrDeviceNotFound", err)
	}
}
