package n2k

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/n2k-switching-core/internal/switching"
)

// fixedStats is a StatsProvider with constant figures.
type fixedStats struct{}

func (fixedStats) Options() switching.Options {
	return switching.Options{ConvertCommandToSwitchControl: true}
}

func (fixedStats) Statistics() BridgeStatistics {
	return BridgeStatistics{MessagesReceived: 7, Translated: 5, Failed: 2}
}

func (fixedStats) SwitchBankCount() int { return 3 }

func decodeHealth(t *testing.T, p mockPublish) HealthMessage {
	t.Helper()
	var msg HealthMessage
	if err := json.Unmarshal(p.Payload, &msg); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	return msg
}

func TestNewHealthReporter_Defaults(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{BridgeID: "n2kswitch"})

	if h.interval != defaultHealthInterval {
		t.Errorf("interval = %v, want %v", h.interval, defaultHealthInterval)
	}
	if h.Topic() != "n2k/bridge/health" {
		t.Errorf("Topic() = %q, want n2k/bridge/health", h.Topic())
	}
}

func TestHealthReporter_PublishNow(t *testing.T) {
	client := NewMockMQTTClient()
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "n2kswitch",
		Version:   "1.2.3",
		Publisher: client,
		Stats:     fixedStats{},
	})

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	pubs := client.GetPublishedTo(h.Topic())
	if len(pubs) != 1 {
		t.Fatalf("health publishes = %d, want 1", len(pubs))
	}
	if !pubs[0].Retained || pubs[0].QoS != 1 {
		t.Errorf("qos=%d retained=%v, want retained qos 1", pubs[0].QoS, pubs[0].Retained)
	}

	msg := decodeHealth(t, pubs[0])
	if msg.Status != HealthHealthy || msg.Bridge != "n2kswitch" || msg.Version != "1.2.3" {
		t.Errorf("health = %+v", msg)
	}
	if msg.SwitchBanks != 3 || !msg.Options.ConvertCommandToSwitchControl {
		t.Errorf("switch_banks=%d options=%+v", msg.SwitchBanks, msg.Options)
	}
	if msg.Statistics == nil || msg.Statistics.Translated != 5 || msg.Statistics.Failed != 2 {
		t.Errorf("statistics = %+v", msg.Statistics)
	}
}

func TestHealthReporter_Degraded(t *testing.T) {
	client := NewMockMQTTClient()
	client.SetConnected(false)
	h := NewHealthReporter(HealthReporterConfig{Publisher: client})

	status, reason := h.determineStatus()
	if status != HealthDegraded || reason == "" {
		t.Errorf("determineStatus() = (%s, %q), want degraded with reason", status, reason)
	}
}

func TestHealthReporter_NoPublisher(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{})
	if err := h.PublishStarting(); err != nil {
		t.Errorf("PublishStarting() without publisher error = %v", err)
	}
}

func TestHealthReporter_StartStop(t *testing.T) {
	client := NewMockMQTTClient()
	h := NewHealthReporter(HealthReporterConfig{
		Publisher: client,
		Interval:  10 * time.Millisecond,
	})

	h.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for len(client.GetPublishedTo(h.Topic())) < 3 {
		if time.Now().After(deadline) {
			t.Fatal("reporter did not publish periodically")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.Stop()
	h.Stop()

	pubs := client.GetPublishedTo(h.Topic())
	if last := decodeHealth(t, pubs[len(pubs)-1]); last.Status != HealthStopping {
		t.Errorf("last status = %s, want stopping", last.Status)
	}
}
