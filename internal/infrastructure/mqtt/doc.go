// Package mqtt publishes policy decisions to an MQTT broker.
//
// Every evaluated decision is published retained on
// {prefix}/device/{id}/status, so a dashboard or home-automation consumer
// that subscribes later still sees each device's current state. The service
// announces itself on {prefix}/system/status and registers an LWT there, so
// consumers can tell a crash from a graceful shutdown.
//
// The client never subscribes. Devices talk to the service over HTTP; the
// broker is an outbound fan-out only.
//
// # Security Considerations
//
//   - TLS should be enabled for any broker outside the host (cfg.Broker.TLS=true)
//   - Credentials are validated against the broker ACL
//   - Payloads carry device IDs and states, not secrets
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	payload, _ := json.Marshal(decision)
//	if err := client.PublishDeviceStatus("tablet-1", payload); err != nil {
//	    logger.Warn("status publish failed", "error", err)
//	}
package mqtt
