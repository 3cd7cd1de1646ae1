// Package route holds the user's in-progress route intent: origin,
// destination and departure time, selected step by step before matching.
package route

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"hopalong/core/internal/models"
)

var (
	// ErrIncompleteRoute marks a precondition violation: a matching or
	// join/create operation was invoked before all three intent fields
	// were populated. The UI gates these operations, so this error is a
	// programming contract, not a user-facing failure.
	ErrIncompleteRoute = errors.New("route: intent is incomplete")

	// ErrDeparturePast rejects departure instants that are not in the
	// future.
	ErrDeparturePast = errors.New("route: departure must be in the future")
)

// Intent is the unit of data a match request needs. Fields are nil until
// the corresponding selection step completes.
type Intent struct {
	From        *models.Location `json:"from"`
	To          *models.Location `json:"to"`
	DepartureAt *time.Time       `json:"departureAt"`
}

// Complete reports whether every step of the intent has been filled in.
func (i Intent) Complete() bool {
	return i.From != nil && i.To != nil && i.DepartureAt != nil
}

// Validate returns ErrIncompleteRoute unless the intent is complete.
func (i Intent) Validate() error {
	if !i.Complete() {
		return ErrIncompleteRoute
	}
	return nil
}

// LocationFromSuggestion converts a picked autocomplete entry into a
// Location. This is the only sanctioned way to produce one.
func LocationFromSuggestion(p models.SuggestedPlace) models.Location {
	return models.Location{
		Name:             p.Name,
		FormattedAddress: p.Formatted,
		Latitude:         p.Lat,
		Longitude:        p.Lon,
	}
}

// Store owns the process-wide route intent. Selection screens write it,
// the matching and join/create stages read it, and it is reset at the
// start of each new ride-creation session. Each setter updates its fields
// atomically under the lock so readers never observe a half-written step.
//
// When constructed with a path the store mirrors its state to a JSON file
// so an interrupted workflow can be resumed.
type Store struct {
	mu     sync.Mutex
	intent Intent
	path   string
}

// NewStore returns an in-memory store.
func NewStore() *Store {
	return &Store{}
}

// NewPersistentStore returns a store backed by the JSON file at path,
// loading any previously saved intent. A missing or unreadable file just
// yields an empty intent.
func NewPersistentStore(path string) *Store {
	s := &Store{path: path}
	if data, err := os.ReadFile(path); err == nil {
		var saved Intent
		if err := json.Unmarshal(data, &saved); err == nil {
			s.intent = saved
		}
	}
	return s
}

// SetFrom records the origin. Passing nil clears it, which happens when
// the user edits or clears the backing text field.
func (s *Store) SetFrom(loc *models.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent.From = loc
	s.persistLocked()
}

// SetTo records the destination; nil clears it.
func (s *Store) SetTo(loc *models.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent.To = loc
	s.persistLocked()
}

// SetRoute records origin and destination in one atomic write.
func (s *Store) SetRoute(from, to *models.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent.From = from
	s.intent.To = to
	s.persistLocked()
}

// SetDepartureAt records the departure instant. Instants that are not in
// the future are rejected.
func (s *Store) SetDepartureAt(t time.Time) error {
	if !t.After(time.Now()) {
		return ErrDeparturePast
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent.DepartureAt = &t
	s.persistLocked()
	return nil
}

// Reset clears all three fields. It must be called at the start of each
// new ride-creation session.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent = Intent{}
	s.persistLocked()
}

// Snapshot returns a copy of the current intent for read-only consumption
// by the matching and join/create stages.
func (s *Store) Snapshot() Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intent
}

func (s *Store) persistLocked() {
	if s.path == "" {
		return
	}
	data, err := json.Marshal(s.intent)
	if err != nil {
		return
	}
	// Best effort: losing the mirror only loses workflow resumption.
	_ = os.WriteFile(s.path, data, 0o600)
}
