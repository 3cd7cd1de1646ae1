package chathub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hopalong/core/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// WSSession implements Subscriber for one websocket connection. A session
// authenticates itself with a connect frame before the hub registers it;
// subscribe/unsubscribe frames are only honored afterwards.
type WSSession struct {
	hub  *Hub
	conn *websocket.Conn

	clientID string
	authed   bool

	send chan models.Frame
	done chan struct{}
	once sync.Once
}

func NewWSSession(hub *Hub, conn *websocket.Conn) *WSSession {
	return &WSSession{
		hub:  hub,
		conn: conn,
		send: make(chan models.Frame, sendBuffer),
		done: make(chan struct{}),
	}
}

func (s *WSSession) ID() string { return s.clientID }

func (s *WSSession) TrySend(f models.Frame) bool {
	select {
	case <-s.done:
		return false
	case s.send <- f:
		return true
	default:
		return false
	}
}

func (s *WSSession) Close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Run starts the session's pumps.
func (s *WSSession) Run() {
	go s.writePump()
	go s.readPump()
}

func (s *WSSession) readPump() {
	defer func() {
		if s.authed {
			s.hub.UnregisterCh <- s
		} else {
			s.Close()
		}
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("broker: read error: %v", err)
			}
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Printf("broker: dropping undecodable frame from %s: %v", s.clientID, err)
			continue
		}
		s.handleFrame(frame)
	}
}

func (s *WSSession) handleFrame(frame models.Frame) {
	switch frame.Type {
	case models.FrameConnect:
		clientID, err := s.hub.verify(frame.Token)
		if err != nil {
			s.TrySend(models.Frame{Type: models.FrameError, Error: "invalid token"})
			return
		}
		s.clientID = clientID
		s.authed = true
		s.hub.RegisterCh <- s
		s.TrySend(models.Frame{Type: models.FrameConnected, Client: clientID})

	case models.FrameSubscribe:
		if !s.authed {
			s.TrySend(models.Frame{Type: models.FrameError, Error: "not authenticated"})
			return
		}
		s.hub.SubscribeCh <- ChannelRequest{Subscriber: s, Channel: frame.Channel}

	case models.FrameUnsubscribe:
		if !s.authed {
			return
		}
		s.hub.UnsubscribeCh <- ChannelRequest{Subscriber: s, Channel: frame.Channel}

	default:
		s.TrySend(models.Frame{Type: models.FrameError, Error: "unknown frame type"})
	}
}

func (s *WSSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(frame); err != nil {
				log.Printf("broker: write error for %s: %v", s.clientID, err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
