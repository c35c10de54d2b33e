package influxdb

import (
	"sort"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the service.
const (
	measurementScreenTime      = "screen_time"
	measurementAppUsage        = "app_usage"
	measurementDecision        = "policy_decision"
	measurementWebhookDelivery = "webhook_delivery"
)

// WriteScreenTime records a device's cumulative usage for the day.
//
// One screen_time point carries the total; one app_usage point per app
// carries that app's seconds. The write is non-blocking; points are batched
// and sent asynchronously.
//
// Parameters:
//   - deviceID: Reporting device
//   - accountID: Owning account (tag, for per-family dashboards)
//   - totalSeconds: Day total so far
//   - perApp: Seconds per app identifier
//   - at: Report time
func (c *Client) WriteScreenTime(deviceID, accountID string, totalSeconds int64, perApp map[string]int64, at time.Time) {
	c.write(screenTimePoints(deviceID, accountID, totalSeconds, perApp, at)...)
}

// WriteDecision records the state a device was told to be in.
func (c *Client) WriteDecision(deviceID, state string, automatic bool, countdownSeconds int64, at time.Time) {
	c.write(decisionPoint(deviceID, state, automatic, countdownSeconds, at))
}

// WriteWebhookDelivery records the outcome of one webhook POST.
func (c *Client) WriteWebhookDelivery(accountID string, success bool, duration time.Duration, at time.Time) {
	c.write(webhookDeliveryPoint(accountID, success, duration, at))
}

// screenTimePoints builds the points for one usage report, apps in name order.
func screenTimePoints(deviceID, accountID string, totalSeconds int64, perApp map[string]int64, at time.Time) []*write.Point {
	points := make([]*write.Point, 0, len(perApp)+1)
	points = append(points, write.NewPoint(
		measurementScreenTime,
		map[string]string{
			"device_id":  deviceID,
			"account_id": accountID,
		},
		map[string]interface{}{
			"total_seconds": totalSeconds,
		},
		at,
	))

	apps := make([]string, 0, len(perApp))
	for app := range perApp {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	for _, app := range apps {
		points = append(points, write.NewPoint(
			measurementAppUsage,
			map[string]string{
				"device_id":  deviceID,
				"account_id": accountID,
				"app":        app,
			},
			map[string]interface{}{
				"seconds": perApp[app],
			},
			at,
		))
	}
	return points
}

func decisionPoint(deviceID, state string, automatic bool, countdownSeconds int64, at time.Time) *write.Point {
	return write.NewPoint(
		measurementDecision,
		map[string]string{
			"device_id": deviceID,
			"state":     state,
		},
		map[string]interface{}{
			"automatic":         automatic,
			"countdown_seconds": countdownSeconds,
		},
		at,
	)
}

func webhookDeliveryPoint(accountID string, success bool, duration time.Duration, at time.Time) *write.Point {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	return write.NewPoint(
		measurementWebhookDelivery,
		map[string]string{
			"account_id": accountID,
			"outcome":    outcome,
		},
		map[string]interface{}{
			"duration_ms": float64(duration) / float64(time.Millisecond),
		},
		at,
	)
}
