package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSessionEvent records a relay session lifecycle event.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - role: Session role ("user" or "device")
//   - ownerID: Account the session belongs to
//   - event: Lifecycle event ("connected", "disconnected", "heartbeat_timeout")
//
// Example:
//
//	client.WriteSessionEvent("device", "usr-42", "connected")
func (c *Client) WriteSessionEvent(role, ownerID, event string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"relay_sessions",
		map[string]string{
			"role":     role,
			"owner_id": ownerID,
			"event":    event,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceMetric records a numeric field from a device state update.
//
// Only numeric fields of a device's data payload are recorded; the relay
// forwards everything else untouched.
//
// Parameters:
//   - ownerID: Account the device belongs to
//   - deviceID: Device identifier (unique per owner, not globally)
//   - field: The data field name (e.g., "brightness", "temperature")
//   - value: The numeric value to record
func (c *Client) WriteDeviceMetric(ownerID, deviceID, field string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"owner_id":  ownerID,
			"device_id": deviceID,
			"field":     field,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
