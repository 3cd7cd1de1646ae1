package models

import "encoding/json"

// Frame types exchanged over the broker websocket.
const (
	FrameConnect     = "connect"
	FrameConnected   = "connected"
	FrameSubscribe   = "subscribe"
	FrameSubscribed  = "subscribed"
	FrameUnsubscribe = "unsubscribe"
	FramePublication = "publication"
	FrameError       = "error"
)

// Frame is the envelope for all broker traffic. Publication data may be a
// structured JSON value or a JSON string carrying encoded JSON; the channel
// manager normalizes both before delivery.
type Frame struct {
	Type    string          `json:"type"`
	Token   string          `json:"token,omitempty"`
	Client  string          `json:"client,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
