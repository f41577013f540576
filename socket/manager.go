// Package socket maintains the realtime connection to the server. One
// Manager owns at most one websocket at a time and hands every decoded
// event to the wired handler.
package socket

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"classlink/models"
)

// ErrNotConnected indicates a send was attempted without a live socket.
var ErrNotConnected = errors.New("socket: not connected")

// State represents the lifecycle state of the realtime connection.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
)

// Handler consumes decoded server events. Handlers run on the read
// goroutine; long work belongs elsewhere.
type Handler interface {
	HandleEvent(event models.Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(event models.Event)

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(event models.Event) { f(event) }

// Options controls runtime behavior of Manager.
type Options struct {
	// Identity supplies the logged-in user; Connect is a no-op without one.
	Identity func() (models.Identity, bool)
	// Handler receives every decoded event.
	Handler Handler

	// ReconnectDelay is the fixed wait before redialing after a drop.
	ReconnectDelay time.Duration
	// PingInterval is the keep-alive cadence.
	PingInterval time.Duration

	Dialer *websocket.Dialer
	Logger *zap.Logger
}

// Manager dials the server's realtime endpoint and keeps it alive: a
// dropped or failed connection is redialed after a fixed delay, forever,
// until Disconnect is called. Connect is idempotent while a connection
// or a pending redial exists.
type Manager struct {
	socketURL string
	identity  func() (models.Identity, bool)
	handler   Handler
	dialer    *websocket.Dialer
	logger    *zap.Logger

	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu         sync.Mutex
	state      State
	conn       *websocket.Conn
	generation uint64
	redial     *time.Timer
	suppressed bool

	sendMu sync.Mutex
}

// NewManager returns a disconnected Manager for socketURL, the endpoint
// root the user id is appended to.
func NewManager(socketURL string, options Options) *Manager {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	identity := options.Identity
	if identity == nil {
		identity = func() (models.Identity, bool) { return models.Identity{}, false }
	}
	handler := options.Handler
	if handler == nil {
		handler = HandlerFunc(func(models.Event) {})
	}
	dialer := options.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	delay := options.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	interval := options.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Manager{
		socketURL:      socketURL,
		identity:       identity,
		handler:        handler,
		dialer:         dialer,
		logger:         logger,
		reconnectDelay: delay,
		pingInterval:   interval,
		state:          StateDisconnected,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect establishes the realtime connection for the logged-in user.
// Calling it while connected, connecting, or awaiting a redial does
// nothing; calling it without an identity does nothing.
func (m *Manager) Connect() {
	identity, ok := m.identity()
	if !ok {
		m.logger.Warn("connect skipped, not logged in")
		return
	}

	m.mu.Lock()
	if m.state != StateDisconnected || m.redial != nil {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.suppressed = false
	m.generation++
	attempt := m.generation
	m.mu.Unlock()

	endpoint := fmt.Sprintf("%s/%d", m.socketURL, identity.UserID)
	conn, _, err := m.dialer.Dial(endpoint, nil)

	m.mu.Lock()
	// A Disconnect or a newer Connect while the dial was in flight wins;
	// the stale result must not be installed.
	if m.generation != attempt || m.suppressed {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.state = StateDisconnected
		m.scheduleRedialLocked()
		m.mu.Unlock()
		m.logger.Warn("dial failed", zap.String("endpoint", endpoint), zap.Error(err))
		return
	}
	m.conn = conn
	m.state = StateConnected
	m.mu.Unlock()

	m.logger.Info("connected", zap.Int64("user", identity.UserID))

	go m.readLoop(conn, attempt)
	go m.keepAliveLoop(conn, attempt)
}

// Disconnect closes the connection and cancels any pending redial. It is
// the only way to stop the reconnect cycle.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.suppressed = true
	if m.redial != nil {
		m.redial.Stop()
		m.redial = nil
	}
	conn := m.conn
	m.conn = nil
	m.generation++
	m.state = StateDisconnected
	m.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

// Send marshals v and writes it as one text frame. Best-effort: without a
// live connection the frame is dropped and ErrNotConnected returned.
func (m *Manager) Send(v any) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		m.logger.Warn("send dropped, not connected")
		return ErrNotConnected
	}

	m.sendMu.Lock()
	defer m.sendMu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (m *Manager) readLoop(conn *websocket.Conn, generation uint64) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			m.connectionLost(conn, generation, err)
			return
		}

		if string(payload) == models.KeepAlivePong {
			continue
		}

		event, err := models.DecodeEvent(payload)
		if err != nil {
			m.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		m.handler.HandleEvent(event)
	}
}

func (m *Manager) keepAliveLoop(conn *websocket.Conn, generation uint64) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		stale := m.generation != generation
		m.mu.Unlock()
		if stale {
			return
		}

		m.sendMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, []byte(models.KeepAlivePing))
		m.sendMu.Unlock()
		if err != nil {
			return
		}
	}
}

// connectionLost tears down conn and arms a single redial, unless the
// drop belongs to a superseded connection or Disconnect already ran.
func (m *Manager) connectionLost(conn *websocket.Conn, generation uint64, cause error) {
	_ = conn.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != generation {
		return
	}

	m.conn = nil
	m.state = StateDisconnected
	if m.suppressed {
		return
	}

	m.logger.Warn("connection lost", zap.Error(cause))
	m.scheduleRedialLocked()
}

// scheduleRedialLocked arms the redial timer if none is pending. Caller
// holds m.mu.
func (m *Manager) scheduleRedialLocked() {
	if m.suppressed || m.redial != nil {
		return
	}
	m.redial = time.AfterFunc(m.reconnectDelay, func() {
		m.mu.Lock()
		m.redial = nil
		m.mu.Unlock()
		m.Connect()
	})
}
