// Package n2k connects the switching translator to an NMEA 2000 gateway
// over MQTT.
//
// The gateway's analyzer publishes every decoded bus frame as JSON on the
// inbound topic. The bridge decodes each frame, hands it to a
// switching.Router, and publishes any translated message on the outbound
// topic, which the gateway writes back to the bus.
//
// # Architecture
//
//	┌──────────────┐  n2k/analyzer/out  ┌──────────────┐
//	│  N2K gateway │ ─────────────────► │   Bridge     │
//	│  (analyzer)  │ ◄───────────────── │  (this pkg)  │
//	└──────────────┘    n2k/json/out    └──────────────┘
//
// # Key Responsibilities
//
//   - Decode analyzer JSON into switching.InboundMessage
//   - Dispatch one message at a time, in arrival order
//   - Publish translated messages (QoS from config, not retained)
//   - Count, log and fan out every dispatch event
//   - Publish retained health on n2k/bridge/health
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package n2k
