package models

import "time"

// Creator is the minimal public profile attached to routes and rides.
type Creator struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// PrimaryRoute is the route a ride was created from.
type PrimaryRoute struct {
	ID             string  `json:"id"`
	CreatorID      string  `json:"creatorId"`
	StartPlaceName string  `json:"startPlaceName"`
	EndPlaceName   string  `json:"endPlaceName"`
	StartLat       float64 `json:"startLat"`
	StartLon       float64 `json:"startLon"`
	EndLat         float64 `json:"endLat"`
	EndLon         float64 `json:"endLon"`
	Distance       float64 `json:"distance"`
	MemberRideID   *string `json:"memberRideId"`
	Creator        Creator `json:"creator"`
}

// Ride is an existing shared ride as returned by the ride services.
type Ride struct {
	ID             string       `json:"id"`
	PrimaryRouteID string       `json:"primaryRouteId"`
	OwnerID        string       `json:"ownerId"`
	Start          time.Time    `json:"start"`
	TotalCost      float64      `json:"totalCost"`
	CreatedAt      time.Time    `json:"createdAt"`
	PrimaryRoute   PrimaryRoute `json:"primaryRoute"`
	Owner          Creator      `json:"owner"`
}

// RideMatch is one server-ranked candidate produced by a match query. The
// compatibility metrics are computed server-side and are opaque to the
// client; their order must be preserved as returned.
type RideMatch struct {
	Ride                Ride    `json:"ride"`
	TimeDifference      float64 `json:"timeDifference"` // minutes
	OverlapPercentage   float64 `json:"overlapPercentage"`
	OverlapSegmentCount int     `json:"overlapSegmentCount"`
}

// Member is a participant of a ride.
type Member struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// RideDetails is the expanded view served by GET /api/rides/:id.
type RideDetails struct {
	ID           string       `json:"id"`
	PrimaryRoute PrimaryRoute `json:"primaryRoute"`
	Start        time.Time    `json:"start"`
	Members      []Member     `json:"members"`
	Owner        Member       `json:"owner"`
}
