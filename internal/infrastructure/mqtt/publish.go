package mqtt

import (
	"fmt"
)

// Maximum payload size for a published message (1MB).
// Relay frames are small JSON objects; anything near this limit is a bug
// upstream, and brokers commonly reject larger payloads anyway.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the given topic.
//
// The channel bus is the only production caller; it publishes relay
// envelopes onto account channels. Messages are never retained: a relay
// frame is only meaningful to the sessions subscribed at the moment it is
// sent, and a retained stale snapshot or departure would mislead the next
// subscriber.
//
// QoS:
//   - 0: at most once (fire and forget)
//   - 1: at least once (may duplicate; relay handlers are idempotent)
//   - 2: exactly once (higher overhead)
//
// Example:
//
//	topic := mqtt.Topics{}.AccountChannel("usr-42")
//	err := client.Publish(topic, []byte(`{"type":"getDevices"}`), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Publish with timeout
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
