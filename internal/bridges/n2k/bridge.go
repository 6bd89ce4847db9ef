package n2k

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/n2k-switching-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/n2k-switching-core/internal/switching"
)

// Bridge operation constants.
const (
	// DefaultBridgeID identifies this bridge in health messages.
	DefaultBridgeID = "n2kswitch"

	// queueSize bounds the inbound messages waiting for dispatch.
	queueSize = 256
)

// Bridge connects the switching router to the host message bus.
// It handles:
//   - Receiving analyzer JSON on the inbound topic and dispatching it
//   - Publishing translated messages on the outbound topic
//   - Reporting every dispatch to logs, counters and event sinks
//   - Health reporting and graceful shutdown
//
// Dispatch is serialised: one message is decoded, translated and emitted
// before the next one starts. MQTT delivers into a bounded queue drained by
// a single worker, so publishing never happens on the client's receive path.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	id            string
	version       string
	mqtt          MQTTClient
	source        switching.SnapshotSource
	router        *switching.Router
	health        *HealthReporter
	sinks         []EventSink
	inboundTopic  string
	outboundTopic string
	qos           byte

	// dispatchMu serialises HandleMessage.
	dispatchMu sync.Mutex
	stats      counters
	queue      chan inboundPayload

	// Lifecycle
	stateMu sync.Mutex
	started bool
	stopped atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
// *mqtt.Client satisfies it; tests use a mock.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// PublishRetained sends a retained state message at the default QoS.
	PublishRetained(topic string, payload []byte) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// EventSink receives every dispatch event after the bridge has counted and
// logged it. Sinks must not block.
type EventSink interface {
	HandleEvent(ev switching.Event)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Source supplies the registry snapshot for each dispatch.
	Source switching.SnapshotSource

	// Options are the conversion flags.
	Options switching.Options

	// InboundTopic carries analyzer output. Default: n2k/analyzer/out.
	InboundTopic string

	// OutboundTopic receives translated messages. Default: n2k/json/out.
	OutboundTopic string

	// QoS is used for the inbound subscription and outbound publishes.
	QoS byte

	// HealthInterval is how often health is published. Default: 30 seconds.
	HealthInterval time.Duration

	// Version is reported in health messages.
	Version string

	// Sinks receive every dispatch event. Optional.
	Sinks []EventSink

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("snapshot source is required")
	}

	topics := mqtt.Topics{}
	inbound := opts.InboundTopic
	if inbound == "" {
		inbound = topics.AnalyzerOutput()
	}
	outbound := opts.OutboundTopic
	if outbound == "" {
		outbound = topics.BusInput()
	}
	if inbound == outbound {
		return nil, fmt.Errorf("inbound and outbound topics must differ: %s", inbound)
	}

	b := &Bridge{
		id:            DefaultBridgeID,
		version:       opts.Version,
		mqtt:          opts.MQTTClient,
		source:        opts.Source,
		sinks:         opts.Sinks,
		inboundTopic:  inbound,
		outboundTopic: outbound,
		qos:           opts.QoS,
		queue:         make(chan inboundPayload, queueSize),
		done:          make(chan struct{}),
		logger:        opts.Logger,
	}

	router, err := switching.NewRouter(switching.RouterOptions{
		Options:     opts.Options,
		Source:      opts.Source,
		Emitter:     b,
		Diagnostics: b,
	})
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}
	b.router = router

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  b.id,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Stats:     b,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start begins bridge operation.
// This publishes a starting status, starts the dispatch worker, subscribes
// to the inbound topic and starts health reporting. A bridge whose Start
// failed cannot be started again.
func (b *Bridge) Start(ctx context.Context) error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if b.stopped.Load() {
		return ErrStopped
	}
	if b.started {
		return ErrAlreadyStarted
	}

	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	b.wg.Add(1)
	go b.dispatchLoop(ctx)

	if err := b.mqtt.Subscribe(b.inboundTopic, b.qos, b.enqueue); err != nil {
		close(b.done)
		b.wg.Wait()
		b.stopped.Store(true)
		return fmt.Errorf("subscribe to inbound: %w", err)
	}
	b.started = true

	b.health.Start(ctx)

	opts := b.router.Options()
	b.logInfo("bridge started",
		"inbound_topic", b.inboundTopic,
		"outbound_topic", b.outboundTopic,
		"convert_switch_control_to_command", opts.ConvertSwitchControlToCommand,
		"convert_command_to_switch_control", opts.ConvertCommandToSwitchControl,
		"switch_banks", b.SwitchBankCount(),
	)
	return nil
}

// Stop unsubscribes from the inbound topic, stops the dispatch worker and
// stops health reporting. A dispatch in progress completes first; queued
// messages are discarded. Stop is safe to call before Start and more than
// once.
func (b *Bridge) Stop() {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if b.stopped.Swap(true) {
		return
	}
	if !b.started {
		return
	}

	if err := b.mqtt.Unsubscribe(b.inboundTopic); err != nil {
		b.logError("failed to unsubscribe inbound topic", err)
	}

	close(b.done)
	b.wg.Wait()

	b.health.Stop()
	b.logInfo("bridge stopped")
}

// inboundPayload is one queued MQTT delivery.
type inboundPayload struct {
	topic   string
	payload []byte
}

// enqueue is the MQTT handler for the inbound topic.
// It never blocks; a full queue drops the message.
func (b *Bridge) enqueue(topic string, payload []byte) error {
	if b.stopped.Load() {
		return nil
	}
	select {
	case b.queue <- inboundPayload{topic: topic, payload: payload}:
		return nil
	default:
		b.stats.dropped.Add(1)
		return fmt.Errorf("%w: %d messages pending", ErrQueueFull, queueSize)
	}
}

// dispatchLoop drains the queue in arrival order.
func (b *Bridge) dispatchLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case in := <-b.queue:
			if err := b.HandleMessage(in.topic, in.payload); err != nil {
				b.logWarn("dropping inbound message", "error", err)
			}
		}
	}
}

// HandleMessage decodes and dispatches one inbound payload synchronously.
// Only decoding errors are returned; translation failures are reported as
// events.
func (b *Bridge) HandleMessage(topic string, payload []byte) error {
	b.stats.received.Add(1)

	msg, err := DecodeInbound(payload)
	if err != nil {
		b.stats.decodeErrors.Add(1)
		return fmt.Errorf("topic %s: %w", topic, err)
	}

	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()

	if b.stopped.Load() {
		return nil
	}
	b.router.Handle(msg)
	return nil
}

// Emit publishes a translated message on the outbound topic.
// It implements switching.Emitter.
func (b *Bridge) Emit(msg switching.OutboundMessage) error {
	payload, err := EncodeOutbound(msg)
	if err != nil {
		return fmt.Errorf("%w: encoding: %w", ErrPublishFailed, err)
	}
	if err := b.mqtt.Publish(b.outboundTopic, payload, b.qos, false); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	b.stats.sent.Add(1)
	return nil
}

// Report counts, logs and fans out one dispatch event.
// It implements switching.Diagnostics.
func (b *Bridge) Report(ev switching.Event) {
	switch ev.Outcome {
	case switching.OutcomeTranslated:
		b.stats.translated.Add(1)
		b.logDebug("message translated",
			"event_id", ev.ID,
			"direction", ev.Direction,
			"input_pgn", ev.InputPGN,
			"output_pgn", ev.Output.PGN,
			"dst", ev.Output.Dst,
		)
	case switching.OutcomeFailed:
		b.stats.failed.Add(1)
		b.logWarn("translation failed",
			"event_id", ev.ID,
			"direction", ev.Direction,
			"input_pgn", ev.InputPGN,
			"error", ev.Error,
		)
	case switching.OutcomeSkipped:
		b.stats.skipped.Add(1)
	case switching.OutcomeIgnored:
		b.stats.ignored.Add(1)
	}

	if ev.Outcome == switching.OutcomeTranslated || ev.Outcome == switching.OutcomeFailed {
		b.publishEvent(ev)
	}

	for _, sink := range b.sinks {
		sink.HandleEvent(ev)
	}
}

// publishEvent mirrors an event to its direction's events topic.
func (b *Bridge) publishEvent(ev switching.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logError("failed to encode event", err)
		return
	}
	topic := mqtt.Topics{}.BridgeEvents(string(ev.Direction))
	if err := b.mqtt.Publish(topic, payload, 0, false); err != nil {
		b.logDebug("failed to publish event", "topic", topic, "error", err)
	}
}

// Options returns the active conversion flags.
func (b *Bridge) Options() switching.Options {
	return b.router.Options()
}

// Statistics returns a snapshot of the dispatch counters.
func (b *Bridge) Statistics() BridgeStatistics {
	return b.stats.snapshot()
}

// SwitchBankCount returns the number of switch banks in the current registry snapshot.
func (b *Bridge) SwitchBankCount() int {
	return len(b.source.Snapshot().SwitchBanks())
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// BridgeMetrics contains metrics data for the API metrics endpoint.
type BridgeMetrics struct {
	Connected   bool              `json:"connected"`
	Status      string            `json:"status"`
	Options     switching.Options `json:"options"`
	Statistics  BridgeStatistics  `json:"statistics"`
	SwitchBanks int               `json:"switch_banks"`
}

// GetMetrics returns current bridge metrics for the API metrics endpoint.
func (b *Bridge) GetMetrics() BridgeMetrics {
	connected := b.mqtt.IsConnected()
	status := string(HealthDegraded)
	if connected {
		status = string(HealthHealthy)
	}

	return BridgeMetrics{
		Connected:   connected,
		Status:      status,
		Options:     b.router.Options(),
		Statistics:  b.stats.snapshot(),
		SwitchBanks: b.SwitchBankCount(),
	}
}

// counters are the bridge's dispatch statistics.
type counters struct {
	received     atomic.Uint64
	decodeErrors atomic.Uint64
	translated   atomic.Uint64
	skipped      atomic.Uint64
	ignored      atomic.Uint64
	failed       atomic.Uint64
	sent         atomic.Uint64
	dropped      atomic.Uint64
}

func (c *counters) snapshot() BridgeStatistics {
	return BridgeStatistics{
		MessagesReceived: c.received.Load(),
		DecodeErrors:     c.decodeErrors.Load(),
		Translated:       c.translated.Load(),
		Skipped:          c.skipped.Load(),
		Ignored:          c.ignored.Load(),
		Failed:           c.failed.Load(),
		MessagesSent:     c.sent.Load(),
		Dropped:          c.dropped.Load(),
	}
}
