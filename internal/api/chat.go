package api

import (
	"context"
	"net/http"

	"hopalong/core/internal/models"
)

// ChatCredentials is the broker-scoped grant returned by /chat/subscribe.
// The token is distinct from the session token and only authorizes the
// returned channel.
type ChatCredentials struct {
	Token   string
	Channel string
}

type chatPayload struct {
	Token   string `json:"token"`
	RideID  string `json:"rideId"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChatSubscribe asks the backend for a broker token and the channel name
// scoped to the given ride.
func (c *Client) ChatSubscribe(ctx context.Context, rideID string) (ChatCredentials, error) {
	var out struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		Channel string `json:"channel"`
		Message string `json:"message"`
	}
	payload := chatPayload{Token: c.Token(), RideID: rideID}
	if err := c.postJSON(ctx, "/chat/subscribe", payload, &out); err != nil {
		return ChatCredentials{}, err
	}
	if !out.Success {
		return ChatCredentials{}, &Error{Status: http.StatusOK, Message: out.Message}
	}
	return ChatCredentials{Token: out.Token, Channel: out.Channel}, nil
}

// ChatPrevious fetches a bounded window of historical messages in
// chronological (oldest first) order.
func (c *Client) ChatPrevious(ctx context.Context, rideID string, limit, offset int) ([]models.ChatMessage, error) {
	var out struct {
		Messages []models.ChatMessage `json:"messages"`
		Message  string               `json:"message"`
	}
	payload := chatPayload{Token: c.Token(), RideID: rideID, Limit: limit, Offset: offset}
	if err := c.postJSON(ctx, "/chat/previous", payload, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// ChatSend posts a message to the ride's channel. The message is not
// echoed back here; it reaches the stream through the live subscription.
func (c *Client) ChatSend(ctx context.Context, rideID, content string) error {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	payload := chatPayload{Token: c.Token(), RideID: rideID, Content: content}
	if err := c.postJSON(ctx, "/chat/send", payload, &out); err != nil {
		return err
	}
	if !out.Success {
		return &Error{Status: http.StatusOK, Message: out.Message}
	}
	return nil
}
