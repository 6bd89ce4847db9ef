// Package logging provides structured logging for the N2K switching bridge.
//
// This package wraps Go's standard log/slog package so every component
// logs the same way.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	bridgeLog := logger.Component("n2k-bridge")
//	bridgeLog.Warn("translation failed", "direction", "switch_control_to_command", "error", err)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
