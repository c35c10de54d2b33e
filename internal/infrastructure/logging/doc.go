// Package logging provides structured logging for the family rules service.
//
// It wraps log/slog with JSON (production) or text (development) output,
// level filtering and default fields (service, version) on every entry.
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log device secrets or admin tokens.
package logging
