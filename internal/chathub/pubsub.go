package chathub

import (
	"context"
	"log"
)

// channelPattern matches every ride chat channel.
const channelPattern = "chat:*"

// startPubSubListener feeds redis publications into the dispatcher so a
// message published on any broker instance reaches this instance's
// subscribers. Without redis there is nothing to listen to.
func (h *Hub) startPubSubListener() {
	if h.rdb == nil {
		return
	}

	go func() {
		ctx := context.Background()
		pubsub := h.rdb.PSubscribe(ctx, channelPattern)
		defer pubsub.Close()

		log.Printf("broker: listening on redis pattern %q", channelPattern)
		for msg := range pubsub.Channel() {
			h.PublishCh <- Publication{Channel: msg.Channel, Data: []byte(msg.Payload)}
		}
	}()
}
