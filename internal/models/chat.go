package models

import "time"

// ChatSender is the profile embedded in every chat message.
type ChatSender struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// ChatMessage is a single message of a ride's chat channel. Messages are
// unique by ID; display order is non-decreasing SentAt with ties broken by
// arrival order.
type ChatMessage struct {
	ID       string     `json:"id"`
	Content  string     `json:"content"`
	SenderID string     `json:"senderId"`
	RideID   string     `json:"rideId"`
	SentAt   time.Time  `json:"sentAt"`
	Sender   ChatSender `json:"sender"`
}
