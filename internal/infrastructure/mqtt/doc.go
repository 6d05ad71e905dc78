// Package mqtt provides MQTT client connectivity for MCULink Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions restored across reconnects
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MCULink uses MQTT as the pub/sub transport beneath the relay's channel
// bus. Each account owns one topic; every connected session for that
// account (the user app plus its devices) shares it. The relay never
// depends on broker specifics beyond per-topic publish ordering.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.AccountChannel("usr-42")
//	err = client.Subscribe(topic, 1, func(topic string, payload []byte) error {
//	    log.Printf("received: %s = %s", topic, payload)
//	    return nil
//	})
//
//	client.Publish(topic, []byte(`{"type":"getDevices"}`), 1, false)
package mqtt
