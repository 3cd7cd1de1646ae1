package chathub

import "hopalong/core/internal/models"

// Subscriber is any connection type the hub can deliver frames to. It
// abstracts the transport so the hub manages websocket sessions and test
// doubles uniformly.
type Subscriber interface {
	// ID returns the authenticated client id of the connection.
	ID() string

	// TrySend queues a frame for delivery without blocking. It reports
	// false when the subscriber can not accept the frame (buffer full or
	// connection gone), in which case the hub evicts it.
	TrySend(f models.Frame) bool

	// Close shuts the subscriber down. Called by the hub on eviction.
	Close()
}

// ChannelRequest asks the hub to attach or detach a subscriber on a named
// channel.
type ChannelRequest struct {
	Subscriber Subscriber
	Channel    string
}

// Publication is one message fanned out to a channel's subscribers.
type Publication struct {
	Channel string
	Data    []byte
}
