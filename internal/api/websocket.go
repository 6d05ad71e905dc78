package api

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mculink/mculink-core/internal/relay"
)

// wsWriteWait bounds each outbound WebSocket write.
const wsWriteWait = 10 * time.Second

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware; MCU clients send
		// no Origin header at all.
		return true
	},
}

// handleRelayWebSocket upgrades the connection and runs a relay session on
// it. The handler blocks for the lifetime of the session; refusals (missing
// parameters, bad token) are delivered as policy-violation close frames.
func (s *Server) handleRelayWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	if s.relayCfg.MaxMessageSize > 0 {
		conn.SetReadLimit(int64(s.relayCfg.MaxMessageSize))
	}

	params := parseRelayParams(r.URL.Query())
	session := relay.NewSession(newWSSocket(conn), params, relay.Config{
		Auth:      s.auth,
		Bus:       s.bus,
		Logger:    s.logger,
		Telemetry: s.telemetry,
		UserHeartbeat: relay.Schedule{
			PingInterval: s.relayCfg.User.Interval(),
			PongTimeout:  s.relayCfg.User.Timeout(),
		},
		DeviceHeartbeat: relay.Schedule{
			PingInterval: s.relayCfg.Device.Interval(),
			PongTimeout:  s.relayCfg.Device.Timeout(),
		},
	})

	if err := session.Run(r.Context()); err != nil {
		s.logger.Debug("relay session ended", "error", err, "remote", r.RemoteAddr)
	}
}

// parseRelayParams extracts the session handshake from the connection URI.
// "mcu" is accepted as a legacy alias for the device role; older firmware
// identifies itself that way.
func parseRelayParams(query url.Values) relay.Params {
	role := relay.Role(query.Get("type"))
	if role == "mcu" {
		role = relay.RoleDevice
	}
	return relay.Params{
		Token:      query.Get("token"),
		OwnerID:    query.Get("ownerId"),
		Role:       role,
		DeviceID:   query.Get("deviceId"),
		DeviceName: query.Get("deviceName"),
		DeviceType: query.Get("deviceType"),
	}
}

// wsSocket adapts a gorilla connection to the relay session's socket.
// The session guarantees a single writer for data frames; the mutex only
// serialises close frames against them.
type wsSocket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func newWSSocket(conn *websocket.Conn) *wsSocket {
	return &wsSocket{conn: conn}
}

func (ws *wsSocket) Read() ([]byte, error) {
	_, data, err := ws.conn.ReadMessage()
	return data, err
}

func (ws *wsSocket) Write(data []byte) error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	//nolint:errcheck // a failed deadline surfaces as a write error anyway
	ws.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return ws.conn.WriteMessage(websocket.TextMessage, data)
}

func (ws *wsSocket) Close(code int, reason string) error {
	ws.writeMu.Lock()
	//nolint:errcheck // best-effort close frame; the peer may already be gone
	ws.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsWriteWait))
	ws.writeMu.Unlock()
	return ws.conn.Close()
}

func (ws *wsSocket) Terminate() error {
	return ws.conn.Close()
}
