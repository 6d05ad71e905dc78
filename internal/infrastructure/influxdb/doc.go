// Package influxdb provides optional telemetry for MCULink Core.
//
// When enabled, the relay records session lifecycle events (connects,
// disconnects, heartbeat timeouts) and numeric device-state fields to
// InfluxDB. The relay functions identically with telemetry disabled;
// nothing in the session path blocks on a write.
//
// # Characteristics
//
//   - Writes are non-blocking and batched (async WriteAPI)
//   - Write errors are surfaced via SetOnError, not returned
//   - Disabled by default; enable via influxdb.enabled in config.yaml
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSessionEvent("device", "usr-42", "connected")
package influxdb
