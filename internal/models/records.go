package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq" // pq.StringArray for text[] columns
	"gorm.io/gorm"
)

// Account is a registered community member (devstack persistence).
type Account struct {
	ID         string `gorm:"primaryKey"`
	FirstName  string
	LastName   string
	Email      string `gorm:"uniqueIndex"`
	ProfilePic string
	CreatedAt  time.Time
}

// BeforeCreate generates the account UUID when one is not set yet.
func (a *Account) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return
}

// RideRecord is the stored form of a shared ride.
type RideRecord struct {
	ID             string `gorm:"primaryKey"`
	OwnerID        string `gorm:"index;not null"`
	StartPlaceName string
	EndPlaceName   string
	StartLat       float64
	StartLon       float64
	EndLat         float64
	EndLon         float64
	Distance       float64
	StartAt        time.Time `gorm:"index"`
	TotalCost      float64
	// MemberIDs holds the accounts that merged into this ride, excluding
	// the owner.
	MemberIDs pq.StringArray `gorm:"type:text[]"`
	CreatedAt time.Time
}

func (r *RideRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// ChatHistory is a saved chat message. MessageID is the wire-level message
// id delivered over the realtime channel, so history and live publications
// de-duplicate against the same key.
type ChatHistory struct {
	gorm.Model

	RideID    string `gorm:"type:text;not null;index:idx_ride_msg"`
	SenderID  string `gorm:"type:text;not null;index:idx_ride_msg"`
	MessageID string `gorm:"type:text;uniqueIndex"`
	Content   string `gorm:"type:text;not null"`
	SentAt    time.Time
}
