// Package influxdb provides InfluxDB connectivity for the translation
// audit trail.
//
// It wraps the official influxdb-client-go v2 library. Each recorded
// dispatch becomes one n2k_translation point tagged with its direction and
// outcome, so failure rates and traffic per direction can be graphed.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteTranslation(influxdb.Translation{
//	    Direction:   "switch_control_to_command",
//	    Outcome:     "translated",
//	    InputPGN:    127502,
//	    OutputPGN:   126208,
//	    Destination: 34,
//	})
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval). Async
// write errors are delivered to the SetOnError callback and counted in
// Stats. Connection and health check errors are returned directly.
package influxdb
