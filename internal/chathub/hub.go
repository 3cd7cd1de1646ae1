// Package chathub is the devstack's publish/subscribe broker: named
// per-ride channels fanned out over websocket, with redis pub/sub carrying
// publications between broker instances.
package chathub

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"hopalong/core/internal/models"
	"hopalong/core/internal/observability"
)

// TokenVerifier validates a connect-frame token and returns the client id
// it grants.
type TokenVerifier func(token string) (string, error)

// Hub is the broker dispatcher. All subscriber and channel state is owned
// by the Run goroutine; the exported channels are the only way in.
type Hub struct {
	verify TokenVerifier
	rdb    *redis.Client

	RegisterCh    chan Subscriber
	UnregisterCh  chan Subscriber
	SubscribeCh   chan ChannelRequest
	UnsubscribeCh chan ChannelRequest
	PublishCh     chan Publication

	subscribers map[Subscriber]bool
	channels    map[string]map[Subscriber]bool
}

// NewHub builds a hub. rdb may be nil, in which case publications are
// delivered locally only. Tests and redis-less development rely on this.
func NewHub(verify TokenVerifier, rdb *redis.Client) *Hub {
	return &Hub{
		verify:        verify,
		rdb:           rdb,
		RegisterCh:    make(chan Subscriber),
		UnregisterCh:  make(chan Subscriber),
		SubscribeCh:   make(chan ChannelRequest),
		UnsubscribeCh: make(chan ChannelRequest),
		PublishCh:     make(chan Publication, 64),
		subscribers:   make(map[Subscriber]bool),
		channels:      make(map[string]map[Subscriber]bool),
	}
}

// Broadcast publishes a payload to a channel. With redis configured the
// payload goes through pub/sub so every broker instance fans it out; the
// local listener picks it back up. Without redis it is fanned out locally.
func (h *Hub) Broadcast(channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if h.rdb != nil {
		return h.rdb.Publish(context.Background(), channel, string(data)).Err()
	}
	h.PublishCh <- Publication{Channel: channel, Data: data}
	return nil
}

// Run is the dispatcher loop. It must run in its own goroutine.
func (h *Hub) Run() {
	h.startPubSubListener()

	for {
		select {
		case s := <-h.RegisterCh:
			h.subscribers[s] = true
			observability.ClientsConnected.Inc()
			log.Printf("broker: client %s connected", s.ID())

		case s := <-h.UnregisterCh:
			h.drop(s)

		case req := <-h.SubscribeCh:
			if h.channels[req.Channel] == nil {
				h.channels[req.Channel] = make(map[Subscriber]bool)
			}
			h.channels[req.Channel][req.Subscriber] = true
			observability.SubscriptionsTotal.Inc()
			req.Subscriber.TrySend(models.Frame{Type: models.FrameSubscribed, Channel: req.Channel})

		case req := <-h.UnsubscribeCh:
			if subs := h.channels[req.Channel]; subs != nil {
				delete(subs, req.Subscriber)
				if len(subs) == 0 {
					delete(h.channels, req.Channel)
				}
			}

		case p := <-h.PublishCh:
			h.fanOut(p)
		}
	}
}

func (h *Hub) fanOut(p Publication) {
	frame := models.Frame{
		Type:    models.FramePublication,
		Channel: p.Channel,
		Data:    json.RawMessage(p.Data),
	}
	for s := range h.channels[p.Channel] {
		if !s.TrySend(frame) {
			// Slow or dead subscriber: evict instead of blocking the
			// dispatcher.
			log.Printf("broker: evicting slow client %s", s.ID())
			h.drop(s)
		}
	}
	observability.PublicationsTotal.Inc()
}

// drop removes a subscriber from the hub and every channel, then closes
// it. Unknown subscribers are ignored so double-unregister is harmless.
func (h *Hub) drop(s Subscriber) {
	if !h.subscribers[s] {
		return
	}
	delete(h.subscribers, s)
	for name, subs := range h.channels {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.channels, name)
		}
	}
	observability.ClientsConnected.Dec()
	s.Close()
	log.Printf("broker: client %s disconnected", s.ID())
}
