// Package relay implements the connection-session core of MCULink: the
// state machine that carries real-time state between user apps and their
// MCU devices over a per-account channel.
//
// A Session owns one socket, one authenticated identity and one role. After
// the handshake it subscribes to its account's channel on the bus, starts a
// role-specific heartbeat monitor and translates between socket frames and
// bus messages. User-role sessions additionally own a DeviceRegistry, an
// ephemeral write-through cache of the account's announced devices; after
// every registry mutation the full snapshot is pushed to the user socket.
//
// Teardown is idempotent. Closing a session cancels the heartbeat and the
// bus subscription first, then announces the departure exactly once
// (deviceRemoved for devices, userDisconnected for users).
//
// The protocol is a closed set of JSON messages; anything that does not
// decode into a known variant is dropped with a warning and never crashes
// the session.
package relay
