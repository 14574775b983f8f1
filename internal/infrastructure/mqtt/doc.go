// Package mqtt provides MQTT client connectivity for ShowCall Core.
//
// This package manages:
//   - Connection to the venue broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is ShowCall's optional bridge to crew-facing hardware: cue light
// controllers, comms panels, and backstage displays that cannot hold an
// HTTP or WebSocket session. The core publishes every show event to
// showcall/event/{show_id}/{event_type} and accepts inbound show log notes
// on showcall/note/{show_id}. When the broker is unreachable the engine
// runs unaffected; only the hardware fan-out is lost.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.ShowEvent(showID, "cue.executed")
//	client.Publish(topic, payload, 1, false)
package mqtt
