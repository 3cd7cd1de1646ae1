package ride

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hopalong/core/internal/models"
	"hopalong/core/internal/route"
)

var (
	// ErrBusy means a join or create is already in flight; the two
	// actions are mutually exclusive per session.
	ErrBusy = errors.New("ride: another action is already in flight")

	// ErrUnknownRide rejects join attempts for rides that are not in the
	// current candidate list.
	ErrUnknownRide = errors.New("ride: not in the current candidate list")
)

const (
	kindJoin = iota
	kindCreate
)

// API is the slice of the backend client the coordinator needs.
type API interface {
	CreateRide(ctx context.Context, from, to models.Location, departureAt time.Time, idempotencyKey string) (*models.Ride, error)
	JoinRide(ctx context.Context, rideID string, from, to models.Location, departureAt time.Time, idempotencyKey string) (*models.Ride, error)
}

// Coordinator performs the mutually exclusive join-or-create action. At
// most one of the two may be in flight at a time; per-kind busy flags let
// the UI disable both controls while either is pending. The coordinator
// never retries on its own, but each attempt carries a fresh idempotency
// key so the server may deduplicate an accidental resubmission.
type Coordinator struct {
	api        API
	candidates *Store
	log        *slog.Logger

	mu       sync.Mutex
	inflight [2]bool
}

func NewCoordinator(api API, candidates *Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{api: api, candidates: candidates, log: logger}
}

// Busy reports the per-kind busy flags: joining, creating.
func (c *Coordinator) Busy() (joining, creating bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[kindJoin], c.inflight[kindCreate]
}

// Join merges the route intent into the chosen candidate ride. The intent
// must be complete and rideID must come from the current candidate list.
func (c *Coordinator) Join(ctx context.Context, rideID string, intent route.Intent) (*models.Ride, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if _, ok := c.candidates.Get(rideID); !ok {
		return nil, ErrUnknownRide
	}
	if !c.begin(kindJoin) {
		return nil, ErrBusy
	}
	defer c.end(kindJoin)

	key := uuid.New().String()
	joined, err := c.api.JoinRide(ctx, rideID, *intent.From, *intent.To, *intent.DepartureAt, key)
	if err != nil {
		c.log.Warn("join ride failed", "ride_id", rideID, "error", err)
		return nil, err
	}
	c.log.Info("joined ride", "ride_id", rideID)
	return joined, nil
}

// Create creates a new ride from the route intent.
func (c *Coordinator) Create(ctx context.Context, intent route.Intent) (*models.Ride, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if !c.begin(kindCreate) {
		return nil, ErrBusy
	}
	defer c.end(kindCreate)

	key := uuid.New().String()
	created, err := c.api.CreateRide(ctx, *intent.From, *intent.To, *intent.DepartureAt, key)
	if err != nil {
		c.log.Warn("create ride failed", "error", err)
		return nil, err
	}
	if created != nil {
		c.log.Info("created ride", "ride_id", created.ID)
	}
	return created, nil
}

func (c *Coordinator) begin(kind int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[kindJoin] || c.inflight[kindCreate] {
		return false
	}
	c.inflight[kind] = true
	return true
}

func (c *Coordinator) end(kind int) {
	c.mu.Lock()
	c.inflight[kind] = false
	c.mu.Unlock()
}
