// Package influxdb records usage telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched non-blocking writes and health monitoring.
//
// # Measurements
//
//   - screen_time: daily running total per device (tags device_id, account_id)
//   - app_usage: per-app seconds for the same report (adds tag app)
//   - policy_decision: each evaluated state (tags device_id, state)
//   - webhook_delivery: POST outcome and latency (tags account_id, outcome)
//
// SQLite remains the source of truth for today's screen time; InfluxDB holds
// the history for dashboards.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteScreenTime("tablet-1", "acct-1", 5400, map[string]int64{"video": 3600}, time.Now())
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered through the
// SetOnError callback. Connection and health check errors are returned
// directly. A nil *Client is safe to call and writes nothing.
package influxdb
