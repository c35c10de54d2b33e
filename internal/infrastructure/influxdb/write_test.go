package influxdb

import (
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

func tagValue(p *write.Point, key string) string {
	for _, tag := range p.TagList() {
		if tag.Key == key {
			return tag.Value
		}
	}
	return ""
}

func fieldValue(p *write.Point, key string) interface{} {
	for _, field := range p.FieldList() {
		if field.Key == key {
			return field.Value
		}
	}
	return nil
}

func TestScreenTimePoints(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	points := screenTimePoints("tablet-1", "acct-1", 900, map[string]int64{"video": 700, "games": 200}, at)

	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(points))
	}

	total := points[0]
	if total.Name() != measurementScreenTime {
		t.Errorf("points[0].Name() = %q", total.Name())
	}
	if got := fieldValue(total, "total_seconds"); got != int64(900) {
		t.Errorf("total_seconds = %v, want 900", got)
	}
	if tagValue(total, "account_id") != "acct-1" || tagValue(total, "device_id") != "tablet-1" {
		t.Errorf("total tags = %v", total.TagList())
	}
	if !total.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", total.Time(), at)
	}

	tests := []struct {
		idx     int
		app     string
		seconds int64
	}{
		{1, "games", 200},
		{2, "video", 700},
	}
	for _, tt := range tests {
		t.Run(tt.app, func(t *testing.T) {
			p := points[tt.idx]
			if p.Name() != measurementAppUsage {
				t.Errorf("Name() = %q", p.Name())
			}
			if tagValue(p, "app") != tt.app {
				t.Errorf("app tag = %q, want %q", tagValue(p, "app"), tt.app)
			}
			if got := fieldValue(p, "seconds"); got != tt.seconds {
				t.Errorf("seconds = %v, want %d", got, tt.seconds)
			}
		})
	}
}

func TestScreenTimePoints_NoApps(t *testing.T) {
	points := screenTimePoints("tablet-1", "acct-1", 0, nil, time.Now())
	if len(points) != 1 {
		t.Errorf("len(points) = %d, want 1", len(points))
	}
}

func TestDecisionPoint(t *testing.T) {
	p := decisionPoint("tablet-1", "LOCKED", false, 59, time.Now())

	if p.Name() != measurementDecision || tagValue(p, "state") != "LOCKED" {
		t.Errorf("point = %s %v", p.Name(), p.TagList())
	}
	if fieldValue(p, "automatic") != false || fieldValue(p, "countdown_seconds") != int64(59) {
		t.Errorf("fields = %v", p.FieldList())
	}
}

func TestWebhookDeliveryPoint(t *testing.T) {
	tests := []struct {
		name        string
		success     bool
		wantOutcome string
	}{
		{"success", true, "success"},
		{"failure", false, "failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := webhookDeliveryPoint("acct-1", tt.success, 1500*time.Microsecond, time.Now())
			if tagValue(p, "outcome") != tt.wantOutcome {
				t.Errorf("outcome = %q, want %q", tagValue(p, "outcome"), tt.wantOutcome)
			}
			if got := fieldValue(p, "duration_ms"); got != 1.5 {
				t.Errorf("duration_ms = %v, want 1.5", got)
			}
		})
	}
}
