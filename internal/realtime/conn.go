package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hopalong/core/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 16
	sendBuffer     = 256
)

// Conn is one live broker connection. It runs a read pump and a write
// pump; publications are dispatched to subscription callbacks from the
// read pump, which preserves broker delivery order.
type Conn struct {
	ws     *websocket.Conn
	token  string
	log    *slog.Logger
	notify func(State)

	send chan models.Frame
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	subs  map[string]*Subscription
	state State
}

func newConn(ws *websocket.Conn, token string, logger *slog.Logger, notify func(State)) *Conn {
	return &Conn{
		ws:     ws,
		token:  token,
		log:    logger,
		notify: notify,
		send:   make(chan models.Frame, sendBuffer),
		done:   make(chan struct{}),
		subs:   make(map[string]*Subscription),
		state:  StateConnecting,
	}
}

func (c *Conn) start() {
	go c.writePump()
	go c.readPump()
	c.enqueue(models.Frame{Type: models.FrameConnect, Token: c.token})
}

// State reports the connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers onMessage for the named channel. An existing
// subscription for the same channel is deactivated and unsubscribed first,
// so resubscribing is idempotent and each publication reaches exactly one
// callback.
func (c *Conn) Subscribe(channel string, onMessage func([]byte)) (*Subscription, error) {
	sub := &Subscription{channel: channel, onMessage: onMessage, conn: c}

	c.mu.Lock()
	prev := c.subs[channel]
	if prev != nil {
		prev.deactivate()
	}
	c.subs[channel] = sub
	c.mu.Unlock()

	if prev != nil {
		c.log.Debug("resubscribing", "channel", channel)
		c.enqueue(models.Frame{Type: models.FrameUnsubscribe, Channel: channel})
	}
	c.enqueue(models.Frame{Type: models.FrameSubscribe, Channel: channel})
	return sub, nil
}

func (c *Conn) unsubscribe(sub *Subscription) {
	c.mu.Lock()
	if c.subs[sub.channel] == sub {
		delete(c.subs, sub.channel)
	}
	c.mu.Unlock()
	c.enqueue(models.Frame{Type: models.FrameUnsubscribe, Channel: sub.channel})
}

// enqueue hands a frame to the write pump without ever blocking the
// caller. Frames queued against a closed connection are dropped.
func (c *Conn) enqueue(f models.Frame) {
	select {
	case <-c.done:
	case c.send <- f:
	default:
		c.log.Warn("send buffer full, dropping frame", "type", f.Type)
	}
}

func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
		c.setState(StateDisconnected)
		c.ws.Close()
	})
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
	if c.notify != nil {
		c.notify(s)
	}
}

func (c *Conn) readPump() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("broker read failed", "error", err)
			}
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.log.Warn("dropping undecodable frame", "error", err)
			continue
		}

		switch frame.Type {
		case models.FrameConnected:
			c.setState(StateConnected)
			c.log.Info("connected to broker", "client", frame.Client)
		case models.FrameSubscribed:
			c.log.Info("subscribed to channel", "channel", frame.Channel)
		case models.FramePublication:
			c.dispatch(frame)
		case models.FrameError:
			c.log.Warn("broker error", "error", frame.Error)
		}
	}
}

// dispatch normalizes a publication payload and delivers it to the active
// subscription for its channel. Malformed payloads are dropped and logged;
// they never interrupt the pump.
func (c *Conn) dispatch(frame models.Frame) {
	c.mu.Lock()
	sub := c.subs[frame.Channel]
	c.mu.Unlock()
	if sub == nil {
		return
	}

	data, err := normalizeData(frame.Data)
	if err != nil {
		c.log.Warn("dropping malformed publication", "channel", frame.Channel, "error", err)
		return
	}
	sub.deliver(data)
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				c.log.Warn("broker write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
