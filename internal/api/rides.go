package api

import (
	"context"
	"net/http"
	"time"

	"hopalong/core/internal/models"
)

// IdempotencyKeyHeader carries the per-attempt key attached to the
// join/create mutations so the server may deduplicate retries.
const IdempotencyKeyHeader = "X-Idempotency-Key"

type routePayload struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	StartTime string `json:"startTime"`
	RideID    string `json:"rideId,omitempty"`
}

func newRoutePayload(from, to models.Location, departureAt time.Time) routePayload {
	return routePayload{
		Start:     coords(from),
		End:       coords(to),
		StartTime: departureAt.UTC().Format(time.RFC3339),
	}
}

// FindMatch queries the matching endpoint and returns the candidate list
// in server order. A response that signals failure is returned as *Error
// carrying the server's message.
func (c *Client) FindMatch(ctx context.Context, from, to models.Location, departureAt time.Time) ([]models.RideMatch, error) {
	var out struct {
		Success bool               `json:"success"`
		Matches []models.RideMatch `json:"matches"`
		Message string             `json:"message"`
	}
	if err := c.postJSON(ctx, "/api/route/findMatch", newRoutePayload(from, to, departureAt), &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &Error{Status: http.StatusOK, Message: out.Message}
	}
	return out.Matches, nil
}

// CreateRide creates a new ride from the given route.
func (c *Client) CreateRide(ctx context.Context, from, to models.Location, departureAt time.Time, idempotencyKey string) (*models.Ride, error) {
	return c.mutateRide(ctx, "/api/route/create", newRoutePayload(from, to, departureAt), idempotencyKey)
}

// JoinRide merges the given route into an existing ride.
func (c *Client) JoinRide(ctx context.Context, rideID string, from, to models.Location, departureAt time.Time, idempotencyKey string) (*models.Ride, error) {
	payload := newRoutePayload(from, to, departureAt)
	payload.RideID = rideID
	return c.mutateRide(ctx, "/api/route/merge", payload, idempotencyKey)
}

func (c *Client) mutateRide(ctx context.Context, path string, payload routePayload, idempotencyKey string) (*models.Ride, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set(IdempotencyKeyHeader, idempotencyKey)
	}

	var out struct {
		Success bool         `json:"success"`
		Ride    *models.Ride `json:"ride"`
		Message string       `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, path, payload, &out, header); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &Error{Status: http.StatusOK, Message: out.Message}
	}
	return out.Ride, nil
}

// RideByID fetches the expanded detail view of one ride.
func (c *Client) RideByID(ctx context.Context, rideID string) (*models.RideDetails, error) {
	var out struct {
		Success bool                `json:"success"`
		Ride    *models.RideDetails `json:"ride"`
		Message string              `json:"message"`
	}
	if err := c.getJSON(ctx, "/api/rides/"+rideID, &out); err != nil {
		return nil, err
	}
	if !out.Success || out.Ride == nil {
		return nil, &Error{Status: http.StatusOK, Message: out.Message}
	}
	return out.Ride, nil
}

// PreviousRides lists the authenticated member's past rides.
func (c *Client) PreviousRides(ctx context.Context) ([]models.Ride, error) {
	var out struct {
		Success bool          `json:"success"`
		Rides   []models.Ride `json:"rides"`
		Message string        `json:"message"`
	}
	if err := c.getJSON(ctx, "/api/rides/previous", &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &Error{Status: http.StatusOK, Message: out.Message}
	}
	return out.Rides, nil
}
