// Package config handles loading and validating the family rules service
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with FAMILYRULES_* environment variables
//   - Validation of required fields (all failures are reported together)
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (JWT secret, MQTT password, InfluxDB token) should be
//     set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Webhook.IntervalMS)
package config
