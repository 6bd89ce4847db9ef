package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementTranslation holds one point per routed bus message.
const MeasurementTranslation = "n2k_translation"

// Translation is the audit record of one routed message.
//
// Direction and Outcome are tags (low cardinality). PGNs, destination and
// the error text are fields.
type Translation struct {
	EventID     string
	Direction   string
	Outcome     string
	InputPGN    int
	OutputPGN   int // 0 when nothing was produced
	Destination int
	Error       string
	Timestamp   time.Time
}

// WriteTranslation records a translation outcome.
//
// The write is non-blocking; points are batched and sent asynchronously.
// It is a no-op once the client is closed.
func (c *Client) WriteTranslation(tr Translation) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(translationPoint(tr))
	c.points.Add(1)
}

// translationPoint builds the line protocol point for tr.
func translationPoint(tr Translation) *write.Point {
	ts := tr.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	fields := map[string]interface{}{
		"event_id":  tr.EventID,
		"input_pgn": int64(tr.InputPGN),
		"count":     int64(1),
	}
	if tr.OutputPGN != 0 {
		fields["output_pgn"] = int64(tr.OutputPGN)
		fields["destination"] = int64(tr.Destination)
	}
	if tr.Error != "" {
		fields["error"] = tr.Error
	}

	return write.NewPoint(
		MeasurementTranslation,
		map[string]string{
			"direction": tr.Direction,
			"outcome":   tr.Outcome,
		},
		fields,
		ts,
	)
}
