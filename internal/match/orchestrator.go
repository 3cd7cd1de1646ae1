// Package match issues the match query and shapes its outcome for the
// results stage.
package match

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hopalong/core/internal/api"
	"hopalong/core/internal/models"
	"hopalong/core/internal/route"
)

// Outcome kinds.
const (
	KindMatches = "matches"
	KindNone    = "none"
	KindError   = "error"
)

// Outcome is the result of one match request.
type Outcome struct {
	Kind       string
	Candidates []models.RideMatch
	Reason     string
}

// Finder is the slice of the API client the orchestrator needs.
type Finder interface {
	FindMatch(ctx context.Context, from, to models.Location, departureAt time.Time) ([]models.RideMatch, error)
}

// Status lines cycled on the loading screen while a request is pending.
var loadingMessages = []string{
	"Revving our engines...",
	"Calculating the optimal route to avoid traffic...",
	"Training pigeons for backup navigation...",
	"Scanning for shortcuts only locals know about...",
	"Bribing traffic lights to stay green...",
	"Warming up the seat heaters...",
	"Calculating how many songs you can listen to on this ride...",
	"Assigning your ride a cool codename...",
}

// Orchestrator runs the match workflow step. Non-error outcomes are held
// back until MinWait has elapsed since the request was issued, so the
// loading stage never flashes and the status lines complete at least one
// cycle. Error outcomes complete immediately.
type Orchestrator struct {
	finder Finder
	log    *slog.Logger

	// MinWait is the minimum visible duration of the loading stage.
	MinWait time.Duration
	// StatusInterval is the cadence of OnStatus rotation.
	StatusInterval time.Duration
	// OnStatus, when set, receives a rotating status line while the
	// request is pending.
	OnStatus func(string)
}

func NewOrchestrator(finder Finder, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		finder:         finder,
		log:            logger,
		MinWait:        5 * time.Second,
		StatusInterval: 3 * time.Second,
	}
}

// RequestMatch sends the route intent to the matching endpoint and returns
// the outcome. The intent must be complete; an incomplete intent returns
// route.ErrIncompleteRoute without any network activity. Cancelling ctx
// abandons the request: the in-flight call is aborted, the minimum-wait
// timer is dropped and no outcome is produced.
func (o *Orchestrator) RequestMatch(ctx context.Context, intent route.Intent) (Outcome, error) {
	if err := intent.Validate(); err != nil {
		return Outcome{}, err
	}

	start := time.Now()
	stop := o.startStatusCycle(ctx)
	defer stop()

	matches, err := o.finder.FindMatch(ctx, *intent.From, *intent.To, *intent.DepartureAt)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		// Errors skip the minimum-wait floor so the user is not stared
		// at a spinner that already failed.
		reason := "failed to find matching rides"
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			reason = apiErr.Message
		}
		o.log.Warn("match request failed", "error", err)
		return Outcome{Kind: KindError, Reason: reason}, nil
	}

	if remaining := o.MinWait - time.Since(start); remaining > 0 {
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-time.After(remaining):
		}
	}

	if len(matches) == 0 {
		return Outcome{Kind: KindNone, Reason: "no matching rides found"}, nil
	}
	return Outcome{Kind: KindMatches, Candidates: matches}, nil
}

func (o *Orchestrator) startStatusCycle(ctx context.Context) func() {
	if o.OnStatus == nil {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		o.OnStatus(loadingMessages[0])
		ticker := time.NewTicker(o.StatusInterval)
		defer ticker.Stop()
		for i := 1; ; i++ {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.OnStatus(loadingMessages[i%len(loadingMessages)])
			}
		}
	}()
	return func() { close(done) }
}
