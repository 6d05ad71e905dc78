package relay

import (
	"sort"
	"sync"
)

// DeviceRegistry is the ephemeral device cache owned by one user session.
//
// It starts empty when the session activates and holds, at any instant,
// exactly the devices that have announced themselves and not since been
// removed. It is never persisted and never shared between sessions.
type DeviceRegistry struct {
	mu      sync.Mutex
	devices map[string]DeviceRecord
}

// NewDeviceRegistry returns an empty registry.
func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{devices: make(map[string]DeviceRecord)}
}

// Upsert stores record under its deviceId, replacing any previous entry
// wholesale. Last write wins; ordering is given by bus delivery order.
func (r *DeviceRegistry) Upsert(record DeviceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[record.DeviceID] = record
}

// Remove deletes the entry for deviceID, reporting whether it was present.
func (r *DeviceRegistry) Remove(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.devices[deviceID]
	delete(r.devices, deviceID)
	return ok
}

// Snapshot returns the full current value set, ordered by deviceId so
// consecutive snapshots of the same state are identical on the wire.
func (r *DeviceRegistry) Snapshot() []DeviceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]DeviceRecord, 0, len(r.devices))
	for _, record := range r.devices {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Clear empties the registry.
func (r *DeviceRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]DeviceRecord)
}

// Len returns the number of known devices.
func (r *DeviceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}
