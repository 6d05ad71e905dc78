package influxdb

import "errors"

// Sentinel errors for the telemetry sink, matched with errors.Is().
var (
	// ErrNotConnected indicates the client lost its InfluxDB connection.
	// Telemetry writes are dropped silently in that state; the relay
	// never blocks a session on observability.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt
	// failed; startup aborts on it when telemetry is enabled.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when telemetry is switched off
	// in config. Callers check the flag first and skip Connect entirely.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
