package n2k

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/n2k-switching-core/internal/switching"
)

// DecodeInbound parses one analyzer JSON message:
//
//	{"pgn":127502,"src":1,"dst":255,"prio":3,"fields":{"Switch Bank Instance":10,"Switch3":"On"}}
//
// Unknown keys such as "timestamp" or "description" are ignored. A message
// without a PGN is rejected.
func DecodeInbound(payload []byte) (switching.InboundMessage, error) {
	var msg switching.InboundMessage
	if len(bytes.TrimSpace(payload)) == 0 {
		return msg, fmt.Errorf("%w: empty payload", ErrInvalidMessage)
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if msg.PGN <= 0 {
		return msg, fmt.Errorf("%w: missing pgn", ErrInvalidMessage)
	}
	return msg, nil
}

// EncodeOutbound serialises a translated message for the bus writer.
func EncodeOutbound(msg switching.OutboundMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is running but cannot reach the broker.
	HealthDegraded HealthStatus = "degraded"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the bridge's operational status.
// Topic: n2k/bridge/health
// QoS: 1, Retained: Yes
type HealthMessage struct {
	// Bridge is the bridge identifier.
	Bridge string `json:"bridge"`

	// Timestamp is when the health status was generated (UTC).
	Timestamp time.Time `json:"timestamp"`

	Status  HealthStatus `json:"status"`
	Version string       `json:"version"`

	UptimeSeconds int64 `json:"uptime_seconds"`

	// Options are the active conversion flags.
	Options switching.Options `json:"options"`

	Statistics *BridgeStatistics `json:"statistics,omitempty"`

	// SwitchBanks is the number of switch bank devices in the registry.
	SwitchBanks int `json:"switch_banks"`

	// Reason explains a degraded status.
	Reason string `json:"reason,omitempty"`
}

// BridgeStatistics contains the dispatch counters.
type BridgeStatistics struct {
	// MessagesReceived counts every payload handed to the bridge.
	MessagesReceived uint64 `json:"messages_received"`

	// DecodeErrors counts payloads that were not valid analyzer JSON.
	DecodeErrors uint64 `json:"decode_errors"`

	Translated uint64 `json:"translated"`
	Skipped    uint64 `json:"skipped"`
	Ignored    uint64 `json:"ignored"`
	Failed     uint64 `json:"failed"`

	// MessagesSent counts outputs accepted by the MQTT client.
	MessagesSent uint64 `json:"messages_sent"`

	// Dropped counts messages discarded because the dispatch queue was full.
	Dropped uint64 `json:"dropped"`
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, opts switching.Options, stats BridgeStatistics, switchBanks int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:        bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Options:       opts,
		Statistics:    &stats,
		SwitchBanks:   switchBanks,
	}
}
