package webhook

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/family-rules-core/internal/directory"
	"github.com/nerrad567/family-rules-core/internal/policy"
)

// maxTopApps bounds the app ranking in GroupStats.
const maxTopApps = 5

// PayloadDirectory is the directory subset read while composing a payload.
type PayloadDirectory interface {
	GetAccount(ctx context.Context, id string) (*directory.Account, error)
	ListDevicesByAccount(ctx context.Context, accountID string) ([]directory.Device, error)
	GetScreenTime(ctx context.Context, deviceID, day string) (*directory.ScreenTime, error)
}

// Evaluator resolves a device's current decision.
type Evaluator interface {
	Evaluate(ctx context.Context, deviceID string, utcOffsetSeconds int) (policy.Decision, error)
	Now() time.Time
}

// Payload is the JSON body delivered to an account's webhook.
type Payload struct {
	AccountID   string         `json:"account_id"`
	AccountName string         `json:"account_name"`
	GeneratedAt time.Time      `json:"generated_at"`
	Devices     []DeviceStatus `json:"devices"`
	Stats       GroupStats     `json:"stats"`
}

// DeviceStatus is one device's entry in a Payload.
type DeviceStatus struct {
	DeviceID          string             `json:"device_id"`
	Name              string             `json:"name"`
	State             policy.DeviceState `json:"state"`
	AutomaticState    policy.DeviceState `json:"automatic_state"`
	CountdownSeconds  int64              `json:"countdown_seconds"`
	LastSeenAt        *time.Time         `json:"last_seen_at,omitempty"`
	Day               string             `json:"day"`
	ScreenTimeSeconds int64              `json:"screen_time_seconds"`
	PerAppSeconds     map[string]int64   `json:"per_app_seconds"`
}

// GroupStats aggregates all devices of an account.
type GroupStats struct {
	DeviceCount            int                        `json:"device_count"`
	StateCounts            map[policy.DeviceState]int `json:"state_counts"`
	OverriddenCount        int                        `json:"overridden_count"`
	TotalScreenTimeSeconds int64                      `json:"total_screen_time_seconds"`
	TopApps                []AppUsage                 `json:"top_apps"`
}

// AppUsage is an app's combined seconds across the account's devices.
type AppUsage struct {
	App     string `json:"app"`
	Seconds int64  `json:"seconds"`
}

// BuildPayload composes the notification for one account.
//
// Each device is evaluated at the engine's current time in its own stored
// offset, and its screen time is read for that local day. Any read failure
// aborts the whole payload.
func BuildPayload(ctx context.Context, dir PayloadDirectory, engine Evaluator, account *directory.Account) (*Payload, error) {
	devices, err := dir.ListDevicesByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	now := engine.Now()
	payload := &Payload{
		AccountID:   account.ID,
		AccountName: account.Name,
		GeneratedAt: now,
		Devices:     make([]DeviceStatus, 0, len(devices)),
	}

	for _, dev := range devices {
		decision, err := engine.Evaluate(ctx, dev.ID, dev.UTCOffsetSeconds)
		if err != nil {
			return nil, fmt.Errorf("evaluating device %q: %w", dev.ID, err)
		}

		day := policy.LocalDate(now, dev.UTCOffsetSeconds)
		usage, err := dir.GetScreenTime(ctx, dev.ID, day)
		if err != nil {
			return nil, fmt.Errorf("reading screen time for %q: %w", dev.ID, err)
		}

		payload.Devices = append(payload.Devices, DeviceStatus{
			DeviceID:          dev.ID,
			Name:              dev.Name,
			State:             decision.State,
			AutomaticState:    decision.Automatic,
			CountdownSeconds:  decision.RemainingSeconds,
			LastSeenAt:        dev.LastSeenAt,
			Day:               day,
			ScreenTimeSeconds: usage.TotalSeconds,
			PerAppSeconds:     usage.PerApp,
		})
	}

	payload.Stats = aggregate(payload.Devices)
	return payload, nil
}

// aggregate computes group statistics over device entries.
func aggregate(devices []DeviceStatus) GroupStats {
	stats := GroupStats{
		DeviceCount: len(devices),
		StateCounts: make(map[policy.DeviceState]int),
		TopApps:     []AppUsage{},
	}

	apps := make(map[string]int64)
	for _, d := range devices {
		stats.StateCounts[d.State]++
		if d.CountdownSeconds > 0 {
			stats.OverriddenCount++
		}
		stats.TotalScreenTimeSeconds += d.ScreenTimeSeconds
		for app, secs := range d.PerAppSeconds {
			apps[app] += secs
		}
	}

	for app, secs := range apps {
		stats.TopApps = append(stats.TopApps, AppUsage{App: app, Seconds: secs})
	}
	sort.Slice(stats.TopApps, func(i, j int) bool {
		a, b := stats.TopApps[i], stats.TopApps[j]
		if a.Seconds != b.Seconds {
			return a.Seconds > b.Seconds
		}
		return a.App < b.App
	})
	if len(stats.TopApps) > maxTopApps {
		stats.TopApps = stats.TopApps[:maxTopApps]
	}
	return stats
}
