package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/n2k-switching-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "n2kswitch-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *recordingLogger) Info(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errs = append(l.errs, msg)
	l.mu.Unlock()
}

// =============================================================================
// Offline client behaviour (no broker required)
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() on nil client = true")
	}
}

func TestUnconnectedClient(t *testing.T) {
	client := newClient(testConfig())

	if client.IsConnected() {
		t.Fatal("IsConnected() = true before Connect")
	}
	if err := client.Publish("n2k/json/out", []byte(`{}`), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := client.PublishRetained("n2k/bridge/health", []byte(`{}`)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishRetained() error = %v, want ErrNotConnected", err)
	}
	handler := func(string, []byte) error { return nil }
	if err := client.Subscribe("n2k/analyzer/out", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("failed Subscribe left %d tracked subscriptions", client.SubscriptionCount())
	}
}

func TestUnsubscribe_ForgetsWhileDisconnected(t *testing.T) {
	client := newClient(testConfig())
	client.trackSubscription(subscription{topic: "n2k/analyzer/out", qos: 1, handler: func(string, []byte) error { return nil }})

	err := client.Unsubscribe("n2k/analyzer/out")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
	if client.HasSubscription("n2k/analyzer/out") {
		t.Error("subscription still tracked after Unsubscribe")
	}
}

func TestValidation(t *testing.T) {
	client := newClient(testConfig())
	handler := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"publish empty topic", func() error { return client.Publish("", nil, 0, false) }, ErrInvalidTopic},
		{"publish qos 3", func() error { return client.Publish("t", nil, 3, false) }, ErrInvalidQoS},
		{"publish oversize", func() error { return client.Publish("t", make([]byte, maxPayloadSize+1), 0, false) }, ErrPublishFailed},
		{"subscribe empty topic", func() error { return client.Subscribe("", 0, handler) }, ErrInvalidTopic},
		{"subscribe qos 3", func() error { return client.Subscribe("t", 3, handler) }, ErrInvalidQoS},
		{"subscribe nil handler", func() error { return client.Subscribe("t", 0, nil) }, ErrSubscribeFailed},
		{"unsubscribe empty topic", func() error { return client.Unsubscribe("") }, ErrInvalidTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDispatch_RecoversPanicAndLogsErrors(t *testing.T) {
	client := newClient(testConfig())
	logger := &recordingLogger{}
	client.SetLogger(logger)

	client.dispatch(func(string, []byte) error { panic("boom") }, "n2k/analyzer/out", nil)
	client.dispatch(func(string, []byte) error { return errors.New("bad json") }, "n2k/analyzer/out", nil)
	client.dispatch(func(string, []byte) error { return nil }, "n2k/analyzer/out", nil)

	if len(logger.errs) != 1 || !strings.Contains(logger.errs[0], "panic") {
		t.Errorf("errors logged = %v, want one panic", logger.errs)
	}
	if len(logger.warns) != 1 {
		t.Errorf("warnings logged = %v, want one handler error", logger.warns)
	}
}

func TestDispatch_NoLogger(t *testing.T) {
	client := newClient(testConfig())
	client.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
}

func TestCallbacks(t *testing.T) {
	client := newClient(testConfig())

	var lost error
	client.SetOnDisconnect(func(err error) { lost = err })
	client.handleDisconnect(errors.New("network down"))

	if lost == nil || lost.Error() != "network down" {
		t.Errorf("OnDisconnect got %v", lost)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after connection loss")
	}
}

// =============================================================================
// Options and payloads
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "boat", Password: "secret"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "n2kswitch-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "boat" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.Order {
		t.Error("ordered delivery not enabled")
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLS configured without cfg.Broker.TLS")
	}
}

func TestBrokerURL_TLS(t *testing.T) {
	got := brokerURL(config.MQTTBrokerConfig{Host: "broker", Port: 8883, TLS: true})
	if got != "ssl://broker:8883" {
		t.Errorf("brokerURL() = %q", got)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "n2kswitch-test")

	if !opts.WillEnabled || opts.WillTopic != "n2kswitch/system/status" || !opts.WillRetained {
		t.Fatalf("will = enabled %v topic %q retained %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}

	var status statusPayload
	if err := json.Unmarshal(opts.WillPayload, &status); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if status.Status != statusOffline || status.Reason != reasonUnexpected || status.ClientID != "n2kswitch-test" {
		t.Errorf("will payload = %+v", status)
	}
}

func TestBuildStatusPayload_OmitsEmptyReason(t *testing.T) {
	payload := string(buildStatusPayload("id", statusOnline, ""))
	if strings.Contains(payload, "reason") {
		t.Errorf("online payload has a reason: %s", payload)
	}
}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"AnalyzerOutput", Topics{}.AnalyzerOutput(), "n2k/analyzer/out"},
		{"BusInput", Topics{}.BusInput(), "n2k/json/out"},
		{"BridgeHealth", Topics{}.BridgeHealth(), "n2k/bridge/health"},
		{"BridgeEvents", Topics{}.BridgeEvents("command_to_switch_control"), "n2k/bridge/events/command_to_switch_control"},
		{"SystemStatus", Topics{}.SystemStatus(), "n2kswitch/system/status"},
	}

	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
		}
	}
}
