// Package ride holds the candidate list produced by a match query and the
// coordinator that joins or creates a ride from it.
package ride

import (
	"sync"

	"hopalong/core/internal/models"
)

// Store holds the current candidate ride list. The list is replaced
// wholesale on each match query and its server ordering is preserved; the
// client never resorts it.
type Store struct {
	mu      sync.RWMutex
	matches []models.RideMatch
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the whole candidate list.
func (s *Store) Set(matches []models.RideMatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = append([]models.RideMatch(nil), matches...)
}

// All returns the candidates in server order.
func (s *Store) All() []models.RideMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RideMatch(nil), s.matches...)
}

// Get looks up a candidate by ride id.
func (s *Store) Get(rideID string) (models.RideMatch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.matches {
		if m.Ride.ID == rideID {
			return m, true
		}
	}
	return models.RideMatch{}, false
}

// Remove drops one candidate, e.g. after it filled up.
func (s *Store) Remove(rideID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.matches[:0]
	for _, m := range s.matches {
		if m.Ride.ID != rideID {
			kept = append(kept, m)
		}
	}
	s.matches = kept
}

// Clear empties the list.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = nil
}

// Len reports the number of candidates.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}
