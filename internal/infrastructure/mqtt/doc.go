// Package mqtt provides MQTT client connectivity for Orii Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Orii uses MQTT as its bridge to the outside world: the inbox virtual
// device raises its trigger flag when a message arrives on orii/inbox,
// and the notify virtual device publishes announcements to orii/notify.
// The reconciler additionally mirrors applied device state to retained
// per-device topics for external dashboards.
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
//	err = client.Subscribe(cfg.MQTT.Topics.Inbox, 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.Publish(mqtt.Topics{}.DeviceState(3), []byte(`{"on":true}`), 1, true)
package mqtt
