package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/n2k-switching-core/internal/infrastructure/config"
)

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	mu     sync.Mutex
	lines  []string
	status int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // Test server
		f.mu.Lock()
		f.lines = append(f.lines, strings.Split(strings.TrimSpace(string(body)), "\n")...)
		status := f.status
		f.mu.Unlock()
		if status == 0 {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func startFake(t *testing.T) (*fakeInflux, config.InfluxDBConfig) {
	t.Helper()
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return fake, config.InfluxDBConfig{
		Enabled:       true,
		URL:           srv.URL,
		Token:         "test-token",
		Org:           "boat",
		Bucket:        "n2k",
		BatchSize:     1,
		FlushInterval: 1,
	}
}

// waitForLines polls until n lines arrived or the deadline passes.
func waitForLines(t *testing.T, fake *fakeInflux, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if lines := fake.written(); len(lines) >= n {
			return lines
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, got %v", n, fake.written())
	return nil
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: true, URL: "http://127.0.0.1:1", Bucket: "n2k"})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_AndHealthCheck(t *testing.T) {
	_, cfg := startFake(t)
	cfg.BatchSize = -5
	cfg.FlushInterval = 0

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestWriteTranslation(t *testing.T) {
	fake, cfg := startFake(t)

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteTranslation(Translation{
		EventID:     "ev-1",
		Direction:   "switch_control_to_command",
		Outcome:     "translated",
		InputPGN:    127502,
		OutputPGN:   126208,
		Destination: 34,
		Timestamp:   time.Unix(1700000000, 0),
	})
	client.Flush()

	lines := waitForLines(t, fake, 1)
	line := lines[0]
	for _, want := range []string{
		MeasurementTranslation + ",",
		"direction=switch_control_to_command",
		"outcome=translated",
		"input_pgn=127502i",
		"output_pgn=126208i",
		"destination=34i",
		`event_id="ev-1"`,
		"1700000000000000000",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestTranslationPoint_Failure(t *testing.T) {
	p := translationPoint(Translation{
		Direction: "command_to_switch_control",
		Outcome:   "failed",
		InputPGN:  126208,
		Error:     "switching: malformed command",
	})

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if _, ok := fields["output_pgn"]; ok {
		t.Error("failed translation should not carry output_pgn")
	}
	if fields["error"] != "switching: malformed command" {
		t.Errorf("error field = %v", fields["error"])
	}
	if p.Time().IsZero() {
		t.Error("zero timestamp not replaced")
	}
}

func TestWriteErrorsReachCallback(t *testing.T) {
	fake, cfg := startFake(t)
	fake.status = http.StatusBadRequest

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	errCh := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	client.WriteTranslation(Translation{EventID: "e1", Direction: "none", Outcome: "ignored", InputPGN: 60928})
	client.Flush()

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("write error not delivered to callback")
	}

	stats := client.Stats()
	if stats.Points != 1 || stats.Errors == 0 {
		t.Errorf("Stats() = %+v, want 1 point and at least one error", stats)
	}
}

func TestClose(t *testing.T) {
	fake, cfg := startFake(t)

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if !errors.Is(client.HealthCheck(context.Background()), ErrNotConnected) {
		t.Error("HealthCheck() after Close() should be ErrNotConnected")
	}

	// Writes after close are dropped.
	before := len(fake.written())
	client.WriteTranslation(Translation{Direction: "none", Outcome: "ignored"})
	client.Flush()
	if len(fake.written()) != before {
		t.Error("write after Close() reached the server")
	}
}

func TestClose_Nil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
	client.Flush()
}
