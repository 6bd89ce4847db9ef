// Package mqtt provides MQTT client connectivity for the N2K switching bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions, restored after reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// The broker is the host bus. A canboat analyzer publishes every decoded
// NMEA 2000 frame as JSON, and a bus writer puts JSON it receives back on
// the wire:
//
//	NMEA 2000 ↔ analyzer/writer ↔ MQTT Broker ↔ n2kswitch
//
// Delivery is ordered: handlers see messages in the order the broker sent
// them.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AnalyzerOutput(), 1,
//	    func(topic string, payload []byte) error {
//	        return bridge.HandleMessage(topic, payload)
//	    })
package mqtt
