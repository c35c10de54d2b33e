// Package report handles device check-ins and administrative overrides.
//
// A device report is gated by the token validation cache, records the day's
// screen time and the device's activity, then returns the device's current
// decision from the policy engine. Administrators force a state for a fixed
// duration through Admin; every change is audited.
//
// Resolved decisions fan out to optional StatusSinks (the MQTT retained
// status topic and the WebSocket hub) and to an optional UsageRecorder
// (InfluxDB). Sink and recorder failures are logged and never fail a report.
package report
