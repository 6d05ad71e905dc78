//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/mculink/mculink-core/internal/infrastructure/config"
)

// Integration tests for broker round trips. These require a running MQTT
// broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "mculink-integration-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegration_AccountChannelRoundTrip(t *testing.T) {
	client, err := Connect(integrationConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topic := Topics{}.AccountChannel("usr-integration")
	received := make(chan []byte, 1)

	var once sync.Once
	err = client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		once.Do(func() { received <- payload })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	msg := []byte(`{"type":"getDevices"}`)
	if err := client.Publish(topic, msg, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case payload := <-received:
		if string(payload) != string(msg) {
			t.Errorf("payload = %s, want %s", payload, msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	if err := client.Unsubscribe(topic); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
}
