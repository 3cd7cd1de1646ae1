package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopalong/core/internal/api"
	"hopalong/core/internal/models"
)

func testRoute() (models.Location, models.Location, time.Time) {
	from := models.Location{Latitude: 50.44, Longitude: 30.49}
	to := models.Location{Latitude: 50.34, Longitude: 30.89}
	return from, to, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
}

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"success": true, "rides": []any{}})
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, nil)
	c.SetToken("session-token")

	_, err := c.PreviousRides(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer session-token", gotAuth)
}

func TestClient_NonOKStatusBecomesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid or expired token"})
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, nil)
	_, err := c.PreviousRides(context.Background())

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid or expired token", apiErr.Message)
}

func TestAutocomplete_ShortQuerySkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, nil)
	for _, q := range []string{"", "a", " a "} {
		suggestions, err := c.Autocomplete(context.Background(), q)
		assert.NoError(t, err)
		assert.Empty(t, suggestions)
	}
	assert.Zero(t, calls.Load())
}

func TestAutocomplete_ReturnsRankedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/autocomplete", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "stat", body["address"])

		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"payload": []models.SuggestedPlace{
				{Rank: 1, Name: "Central Station"},
				{Rank: 2, Name: "Bus Station"},
			},
		})
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, nil)
	suggestions, err := c.Autocomplete(context.Background(), "stat")
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "Central Station", suggestions[0].Name)
}

func TestFindMatch_FailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "matching is down"})
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, nil)
	from, to, at := testRoute()
	_, err := c.FindMatch(context.Background(), from, to, at)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "matching is down", apiErr.Message)
}

func TestFindMatch_SendsCoordinatePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "50.44,30.49", body["start"])
		assert.Equal(t, "50.34,30.89", body["end"])
		assert.Equal(t, "2026-09-01T10:00:00Z", body["startTime"])
		json.NewEncoder(w).Encode(map[string]any{"success": true, "matches": []any{}})
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, nil)
	from, to, at := testRoute()
	_, err := c.FindMatch(context.Background(), from, to, at)
	require.NoError(t, err)
}

func TestMutations_CarryIdempotencyKey(t *testing.T) {
	var gotKey, gotRideID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(api.IdempotencyKeyHeader)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotRideID = body["rideId"]
		json.NewEncoder(w).Encode(map[string]any{"success": true, "ride": models.Ride{ID: "r1"}})
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, nil)
	from, to, at := testRoute()

	joined, err := c.JoinRide(context.Background(), "r1", from, to, at, "key-123")
	require.NoError(t, err)
	assert.Equal(t, "r1", joined.ID)
	assert.Equal(t, "key-123", gotKey)
	assert.Equal(t, "r1", gotRideID)
}

func TestChatSubscribe_ReturnsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/subscribe", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"token":   "broker-token",
			"channel": "chat:ride:r1",
		})
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, nil)
	creds, err := c.ChatSubscribe(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "broker-token", creds.Token)
	assert.Equal(t, "chat:ride:r1", creds.Channel)
}

func TestChatSend_FailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "not a ride participant"})
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, nil)
	err := c.ChatSend(context.Background(), "r1", "hello")

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not a ride participant", apiErr.Message)
}
