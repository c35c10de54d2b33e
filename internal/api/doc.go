// Package api implements the HTTP REST API and WebSocket server for the
// family rules service.
//
// This package provides:
//   - The device report endpoint, authenticated by device ID and secret headers
//   - Override administration and device status, authenticated by JWT role
//   - Webhook queue, audit and metrics introspection
//   - A WebSocket hub broadcasting every resolved decision on "device.status"
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// Devices present X-Device-Id and X-Device-Token on every report; the
// credential check is cached. Administrators present an HS256 bearer token
// whose role is "viewer" (read endpoints) or "admin" (override changes).
// WebSocket connections use single-use tickets to keep tokens out of URLs.
//
// # Graceful Degradation
//
// The server operates without MQTT, InfluxDB or the webhook dispatcher;
// the corresponding metrics are simply omitted.
package api
