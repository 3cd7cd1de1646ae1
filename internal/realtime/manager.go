// Package realtime manages the live connection to the publish/subscribe
// broker: one connection system-wide, per-channel subscriptions with
// idempotent resubscribe, and in-order delivery of publications.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// State of the broker connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// ErrNotConnected is returned by Subscribe when no connection is open.
var ErrNotConnected = errors.New("realtime: no open connection")

// Manager owns the singleton broker connection. Open tears down any prior
// connection before dialing a new one; Close tears down the active one and
// is a no-op when already closed. Connection state transitions are
// observable through OnStateChange but never block callers.
type Manager struct {
	log    *slog.Logger
	dialer *websocket.Dialer

	// OnStateChange, when set, observes connection state transitions.
	// It is invoked from the connection's goroutines and must not block.
	OnStateChange func(State)

	mu   sync.Mutex
	conn *Conn
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		log:    logger,
		dialer: websocket.DefaultDialer,
	}
}

// Open establishes a new broker connection authenticated with the given
// channel token. Any existing connection is closed first, along with all
// of its subscriptions. The connect handshake proceeds asynchronously;
// Open returns as soon as the transport is dialed.
func (m *Manager) Open(ctx context.Context, brokerURL, token string) (*Conn, error) {
	m.mu.Lock()
	prev := m.conn
	m.conn = nil
	m.mu.Unlock()
	if prev != nil {
		prev.close()
	}

	ws, _, err := m.dialer.DialContext(ctx, brokerURL, nil)
	if err != nil {
		return nil, err
	}

	conn := newConn(ws, token, m.log, m.notifyState)
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
	conn.start()
	m.log.Info("broker connection opened", "url", brokerURL)
	return conn, nil
}

// Subscribe attaches onMessage to the named channel on the active
// connection. If a subscription for the channel already exists it is torn
// down first, so at most one subscription per channel delivers events.
// onMessage receives normalized, structured payload bytes in broker
// delivery order.
func (m *Manager) Subscribe(channel string, onMessage func([]byte)) (*Subscription, error) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}
	return conn.Subscribe(channel, onMessage)
}

// State reports the state of the active connection.
func (m *Manager) State() State {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return StateDisconnected
	}
	return conn.State()
}

// Close tears down the active connection and all its subscriptions. Safe
// to call when already closed.
func (m *Manager) Close() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn != nil {
		conn.close()
	}
}

func (m *Manager) notifyState(s State) {
	if m.OnStateChange != nil {
		m.OnStateChange(s)
	}
}
