// Package api implements the HTTP diagnostics API and WebSocket event feed
// of the switching translator.
//
// This package provides:
//   - GET /api/v1/health: service, broker, database and registry status
//   - GET /api/v1/metrics: runtime, bridge and registry counters
//   - GET /api/v1/switch-banks: switch bank devices in resolution order
//   - POST /api/v1/translate: dry-run translation of one analyzer message
//   - GET /ws: live translation events on channel "translation"
//
// The API is read-only. Dry-run translation uses the current registry and
// conversion flags but never publishes to the bus.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
