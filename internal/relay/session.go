package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mculink/mculink-core/internal/auth"
	"github.com/mculink/mculink-core/internal/bus"
)

// State is the session lifecycle position.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateActive
	StateClosing
	StateClosed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Socket is the transport a session reads and writes. Read blocks until the
// next inbound frame or the connection fails. Close performs a graceful
// close with a status code and reason; Terminate drops the connection hard.
type Socket interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Close(code int, reason string) error
	Terminate() error
}

// Params are the handshake parameters extracted from the connection URI.
type Params struct {
	Token   string
	OwnerID string
	Role    Role

	// Device-role sessions only.
	DeviceID   string
	DeviceName string
	DeviceType string
}

// Validate checks that every parameter the role requires is present.
func (p Params) Validate() error {
	if p.Token == "" || p.OwnerID == "" || !p.Role.Valid() {
		return ErrMissingParams
	}
	if p.Role == RoleDevice && (p.DeviceID == "" || p.DeviceName == "" || p.DeviceType == "") {
		return ErrMissingParams
	}
	return nil
}

// Schedule is one role's heartbeat timing.
type Schedule struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
}

// Logger is the minimal logging surface the session uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Telemetry records session lifecycle events. *influxdb.Client satisfies it.
type Telemetry interface {
	WriteSessionEvent(role, ownerID, event string)
}

// Config carries the collaborators and tuning a session needs.
type Config struct {
	Auth      auth.Provider
	Bus       bus.Bus
	Logger    Logger
	Telemetry Telemetry // optional

	UserHeartbeat   Schedule
	DeviceHeartbeat Schedule

	// SendBuffer is the outbound queue depth per session; messages beyond
	// it are dropped rather than blocking the bus. Zero means 32.
	SendBuffer int
}

// Session is one authenticated connection, user or device role. It owns
// the socket, exactly one bus subscription keyed by the account id, a
// heartbeat monitor, and (user role only) the device registry.
type Session struct {
	cfg    Config
	params Params
	socket Socket
	logger Logger

	identity auth.Identity
	ownerKey string

	state atomic.Int32

	sub      *bus.Subscription
	monitor  *HeartbeatMonitor
	registry *DeviceRegistry

	recordMu sync.Mutex
	record   DeviceRecord

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession wraps socket in a session described by params. The session
// does nothing until Run is called.
func NewSession(socket Socket, params Params, cfg Config) *Session {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 32
	}
	s := &Session{
		cfg:    cfg,
		params: params,
		socket: socket,
		logger: cfg.Logger,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Role returns the session's role.
func (s *Session) Role() Role {
	return s.params.Role
}

// Run drives the session to completion: handshake, active relay loop,
// teardown. It returns when the socket closes, the heartbeat expires, or
// the handshake is refused.
func (s *Session) Run(ctx context.Context) error {
	s.state.Store(int32(StateAuthenticating))

	if err := s.params.Validate(); err != nil {
		s.refuse(ReasonMissingParams)
		return err
	}

	identity, err := s.cfg.Auth.Validate(ctx, s.params.Token)
	if err != nil || identity.ID != s.params.OwnerID {
		s.refuse(ReasonAuthFailed)
		return ErrUnauthorized
	}
	s.identity = identity
	s.ownerKey = identity.ID

	if err := s.activate(); err != nil {
		s.Close()
		return err
	}

	s.readLoop()
	s.Close()
	return nil
}

// refuse closes an unauthenticated connection with a policy violation.
// No subscription or monitor exists yet, so there is nothing to tear down.
func (s *Session) refuse(reason string) {
	s.state.Store(int32(StateClosed))
	if err := s.socket.Close(PolicyViolationCode, reason); err != nil {
		s.logger.Debug("closing refused connection", "error", err)
	}
	s.logger.Info("connection refused",
		"role", string(s.params.Role), "owner", s.params.OwnerID, "reason", reason)
}

// activate transitions the session into Active: writer, subscription,
// role-specific announcement, heartbeat.
func (s *Session) activate() error {
	go s.writePump()

	// Role state must exist before the subscription is live: the bus can
	// deliver on another goroutine the moment Subscribe returns.
	var schedule Schedule
	switch s.params.Role {
	case RoleUser:
		schedule = s.cfg.UserHeartbeat
		s.registry = NewDeviceRegistry()
	case RoleDevice:
		schedule = s.cfg.DeviceHeartbeat
		s.recordMu.Lock()
		s.record = DeviceRecord{
			DeviceID:   s.params.DeviceID,
			OwnerID:    s.ownerKey,
			DeviceName: s.params.DeviceName,
			DeviceType: s.params.DeviceType,
			Data:       map[string]any{},
		}
		s.recordMu.Unlock()
	}

	sub, err := s.cfg.Bus.Subscribe(s.ownerKey, s.handleBusPayload)
	if err != nil {
		return fmt.Errorf("subscribing session channel: %w", err)
	}
	s.sub = sub

	switch s.params.Role {
	case RoleUser:
		if err := s.publish(Message{Type: TypeGetDevices}); err != nil {
			s.logger.Warn("device roll call failed", "owner", s.ownerKey, "error", err)
		}
	case RoleDevice:
		s.recordMu.Lock()
		record := s.record
		s.recordMu.Unlock()
		if err := s.announceRecord(record); err != nil {
			s.logger.Warn("device announcement failed", "owner", s.ownerKey, "error", err)
		}
	}

	s.monitor = NewHeartbeatMonitor(schedule.PingInterval, schedule.PongTimeout,
		s.sendPing, s.heartbeatExpired)
	s.monitor.Start()

	s.state.Store(int32(StateActive))
	s.recordEvent("connected")
	s.logger.Info("session active",
		"role", string(s.params.Role), "owner", s.ownerKey, "label", s.identity.Label)
	return nil
}

// readLoop consumes inbound socket frames until the connection fails.
func (s *Session) readLoop() {
	for {
		raw, err := s.socket.Read()
		if err != nil {
			s.logger.Debug("socket read ended",
				"role", string(s.params.Role), "owner", s.ownerKey, "error", err)
			return
		}

		msg, err := Decode(raw)
		if err != nil {
			s.logger.Warn("dropping malformed socket message",
				"role", string(s.params.Role), "owner", s.ownerKey, "error", err)
			continue
		}
		s.handleSocketMessage(msg)
	}
}

// handleSocketMessage reacts to one decoded inbound frame.
func (s *Session) handleSocketMessage(msg Message) {
	switch msg.Type {
	case TypePong:
		s.monitor.Pong()

	case TypePing:
		s.trySend(Message{Type: TypePong})

	case TypeDeviceUpdated:
		switch s.params.Role {
		case RoleUser:
			// Owner pushing new data down to one of its devices.
			device := *msg.Device
			device.OwnerID = s.ownerKey
			if err := s.publish(Message{Type: TypeDeviceUpdated, Origin: RoleUser, Device: &device}); err != nil {
				s.logger.Warn("relaying user update failed", "owner", s.ownerKey, "error", err)
			}
		case RoleDevice:
			// Device reporting state; its record is replaced wholesale.
			record := *msg.Device
			record.DeviceID = s.params.DeviceID
			record.OwnerID = s.ownerKey
			if record.Data == nil {
				record.Data = map[string]any{}
			}
			s.recordMu.Lock()
			s.record = record
			s.recordMu.Unlock()
			if err := s.announceRecord(record); err != nil {
				s.logger.Warn("relaying device update failed", "owner", s.ownerKey, "error", err)
			}
		}

	default:
		s.logger.Warn("dropping unexpected socket message",
			"role", string(s.params.Role), "owner", s.ownerKey, "type", string(msg.Type))
	}
}

// handleBusPayload reacts to one channel message. Every session on an
// account shares the channel, so each recipient filters by role and, for
// devices, by its own deviceId.
func (s *Session) handleBusPayload(payload []byte) {
	msg, err := Decode(payload)
	if err != nil {
		s.logger.Warn("dropping malformed bus message", "owner", s.ownerKey, "error", err)
		return
	}

	switch s.params.Role {
	case RoleUser:
		s.handleBusAsUser(msg)
	case RoleDevice:
		s.handleBusAsDevice(msg)
	}
}

func (s *Session) handleBusAsUser(msg Message) {
	switch {
	case msg.Type == TypeDeviceUpdated && msg.Origin == RoleDevice:
		s.registry.Upsert(*msg.Device)
		s.sendSnapshot()
		s.recordDeviceMetrics(*msg.Device)

	case msg.Type == TypeDeviceRemoved:
		s.registry.Remove(msg.DeviceID)
		s.sendSnapshot()
	}
	// getDevices, userDisconnected and user-origin updates are not
	// addressed to the user role.
}

func (s *Session) handleBusAsDevice(msg Message) {
	switch {
	case msg.Type == TypeGetDevices:
		s.recordMu.Lock()
		record := s.record
		s.recordMu.Unlock()
		if err := s.announceRecord(record); err != nil {
			s.logger.Warn("re-announcing device failed", "owner", s.ownerKey, "error", err)
		}

	case msg.Type == TypeDeviceUpdated && msg.Origin == RoleUser && msg.Device.DeviceID == s.params.DeviceID:
		// Owner push: replace this device's data and forward the full
		// record to the MCU.
		s.recordMu.Lock()
		s.record.Data = msg.Device.Data
		record := s.record
		s.recordMu.Unlock()
		s.trySend(Message{Type: TypeDeviceUpdated, Origin: RoleUser, Device: &record})

	case msg.Type == TypeUserDisconnected:
		s.trySend(Message{Type: TypeUserDisconnected})
	}
}

// announceRecord publishes the session's device record on the channel.
func (s *Session) announceRecord(record DeviceRecord) error {
	return s.publish(Message{Type: TypeDeviceUpdated, Origin: RoleDevice, Device: &record})
}

// sendSnapshot pushes the full registry to the user socket. Called after
// every registry mutation; the registry is write-through, never read lazily.
func (s *Session) sendSnapshot() {
	s.trySend(Message{Type: TypeDevicesSnapshot, Devices: s.registry.Snapshot()})
}

// recordDeviceMetrics forwards numeric data fields to telemetry.
func (s *Session) recordDeviceMetrics(record DeviceRecord) {
	recorder, ok := s.cfg.Telemetry.(interface {
		WriteDeviceMetric(ownerID, deviceID, field string, value float64)
	})
	if !ok {
		return
	}
	for field, value := range record.Data {
		if v, ok := value.(float64); ok {
			recorder.WriteDeviceMetric(record.OwnerID, record.DeviceID, field, v)
		}
	}
}

func (s *Session) sendPing() {
	s.trySend(Message{Type: TypePing})
}

// heartbeatExpired handles a missed pong: hard-terminate the socket and
// run normal teardown. Sibling sessions on the account are unaffected.
func (s *Session) heartbeatExpired() {
	s.logger.Warn("heartbeat timeout, terminating connection",
		"role", string(s.params.Role), "owner", s.ownerKey)
	s.recordEvent("heartbeat_timeout")
	if err := s.socket.Terminate(); err != nil {
		s.logger.Debug("terminating socket", "error", err)
	}
	s.Close()
}

// publish encodes msg and sends it on the account channel.
func (s *Session) publish(msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	return s.cfg.Bus.Publish(s.ownerKey, data)
}

// trySend queues msg for the socket without blocking. Messages are dropped
// when the session is closing or the peer cannot keep up.
func (s *Session) trySend(msg Message) {
	data, err := Encode(msg)
	if err != nil {
		s.logger.Warn("encoding outbound message", "type", string(msg.Type), "error", err)
		return
	}

	select {
	case <-s.done:
	case s.send <- data:
	default:
		s.logger.Warn("send buffer full, dropping message",
			"role", string(s.params.Role), "owner", s.ownerKey, "type", string(msg.Type))
	}
}

// writePump is the only goroutine that writes the socket.
func (s *Session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			if err := s.socket.Write(data); err != nil {
				s.logger.Debug("socket write failed",
					"role", string(s.params.Role), "owner", s.ownerKey, "error", err)
				return
			}
		}
	}
}

// Close tears the session down. Idempotent: the heartbeat and the bus
// subscription are cancelled before the departure publish, and the publish
// and unsubscribe happen at most once no matter how many times Close runs.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))

		if s.monitor != nil {
			s.monitor.Stop()
		}
		if s.sub != nil {
			s.sub.Cancel()
		}

		switch s.params.Role {
		case RoleDevice:
			if s.sub != nil {
				if err := s.publish(Message{Type: TypeDeviceRemoved, DeviceID: s.params.DeviceID}); err != nil {
					s.logger.Warn("departure publish failed", "owner", s.ownerKey, "error", err)
				}
			}
		case RoleUser:
			if s.registry != nil {
				s.registry.Clear()
			}
			if s.sub != nil {
				if err := s.publish(Message{Type: TypeUserDisconnected}); err != nil {
					s.logger.Warn("departure publish failed", "owner", s.ownerKey, "error", err)
				}
			}
		}

		close(s.done)
		if err := s.socket.Close(1000, ""); err != nil {
			s.logger.Debug("closing socket", "error", err)
		}

		s.state.Store(int32(StateClosed))
		if s.sub != nil {
			s.recordEvent("disconnected")
			s.logger.Info("session closed", "role", string(s.params.Role), "owner", s.ownerKey)
		}
	})
}

func (s *Session) recordEvent(event string) {
	if s.cfg.Telemetry != nil {
		s.cfg.Telemetry.WriteSessionEvent(string(s.params.Role), s.ownerKey, event)
	}
}
