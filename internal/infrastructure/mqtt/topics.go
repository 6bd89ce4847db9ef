package mqtt

import "fmt"

// Topic prefixes.
//
// Bus traffic lives under "n2k/": the analyzer publishes decoded frames on
// n2k/analyzer/out and the bus writer consumes n2k/json/out. Both are
// configurable; the defaults match the canboat tooling conventions.
const (
	// TopicPrefixN2K is the base for bus traffic and bridge state.
	TopicPrefixN2K = "n2k"

	// TopicPrefixSystem is the base for this service's own system topics.
	TopicPrefixSystem = "n2kswitch/system"
)

// Topics provides builders for the MQTT topics this service uses.
//
//	topics := mqtt.Topics{}
//	topics.BridgeHealth() // "n2k/bridge/health"
type Topics struct{}

// AnalyzerOutput is the default inbound topic carrying decoded bus JSON.
//
// Example: n2k/analyzer/out
func (Topics) AnalyzerOutput() string {
	return TopicPrefixN2K + "/analyzer/out"
}

// BusInput is the default outbound topic whose messages are written to the bus.
//
// Example: n2k/json/out
func (Topics) BusInput() string {
	return TopicPrefixN2K + "/json/out"
}

// BridgeHealth returns the retained health topic of the switching bridge.
//
// Example: n2k/bridge/health
func (Topics) BridgeHealth() string {
	return TopicPrefixN2K + "/bridge/health"
}

// BridgeEvents returns the topic translation events of one direction are
// mirrored to.
//
// Example: n2k/bridge/events/switch_control_to_command
func (Topics) BridgeEvents(direction string) string {
	return fmt.Sprintf("%s/bridge/events/%s", TopicPrefixN2K, direction)
}

// SystemStatus returns the retained online/offline topic, also used for LWT.
//
// Example: n2kswitch/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
