package relay

import (
	"encoding/json"
	"fmt"
)

// Role identifies which side of the relay a session represents.
type Role string

const (
	// RoleUser is the human-facing client app for one account.
	RoleUser Role = "user"

	// RoleDevice is one physical MCU belonging to an account.
	RoleDevice Role = "device"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleDevice
}

// MessageType enumerates the closed set of protocol messages.
type MessageType string

const (
	// TypeGetDevices prompts every device session on the channel to
	// re-announce its current record.
	TypeGetDevices MessageType = "getDevices"

	// TypeDeviceUpdated carries a full device record. Origin device: the
	// device announced or changed its state. Origin user: the owner is
	// pushing new data down to the device.
	TypeDeviceUpdated MessageType = "deviceUpdated"

	// TypeDeviceRemoved announces that a device session closed.
	TypeDeviceRemoved MessageType = "deviceRemoved"

	// TypeUserDisconnected announces that the account's user session closed.
	TypeUserDisconnected MessageType = "userDisconnected"

	// TypeDevicesSnapshot carries the full registry to the user socket.
	// Never seen on the bus.
	TypeDevicesSnapshot MessageType = "devicesSnapshot"

	// TypePing and TypePong are socket-level liveness control. Never
	// forwarded to the bus.
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// DeviceRecord is the last-known state of one device. It exists only for
// the lifetime of its owning session; deviceId is unique per owner, not
// globally.
type DeviceRecord struct {
	DeviceID   string         `json:"deviceId"`
	OwnerID    string         `json:"ownerId"`
	DeviceName string         `json:"deviceName"`
	DeviceType string         `json:"deviceType"`
	Data       map[string]any `json:"data"`
}

// Message is the single tagged variant carried over both socket and bus.
// Which optional fields are set depends on Type.
type Message struct {
	Type MessageType `json:"type"`

	// Origin is the role that published a deviceUpdated; recipients use it
	// to tell a device's state report apart from an owner's push.
	Origin Role `json:"origin,omitempty"`

	Device   *DeviceRecord  `json:"device,omitempty"`
	DeviceID string         `json:"deviceId,omitempty"`

	// Devices must serialize even when empty: a snapshot after the last
	// device's removal is `"devices": []`, not an absent field.
	Devices []DeviceRecord `json:"devices,omitzero"`
}

// Decode parses raw into a Message and validates it against the closed
// variant set. Unknown types and variants missing their required fields
// are rejected so malformed traffic is caught once, at the boundary.
func Decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.Type {
	case TypeGetDevices, TypeUserDisconnected, TypePing, TypePong:
		// No payload fields required.
	case TypeDeviceUpdated:
		if msg.Device == nil || msg.Device.DeviceID == "" {
			return Message{}, fmt.Errorf("%w: deviceUpdated requires device", ErrMalformedMessage)
		}
	case TypeDeviceRemoved:
		if msg.DeviceID == "" {
			return Message{}, fmt.Errorf("%w: deviceRemoved requires deviceId", ErrMalformedMessage)
		}
	case TypeDevicesSnapshot:
		if msg.Devices == nil {
			return Message{}, fmt.Errorf("%w: devicesSnapshot requires devices", ErrMalformedMessage)
		}
	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, msg.Type)
	}

	return msg, nil
}

// Encode serializes msg for the wire.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s message: %w", msg.Type, err)
	}
	return data, nil
}
