package api

import (
	"context"
	"strings"

	"hopalong/core/internal/models"
)

// minQueryLength mirrors the selection UI: shorter queries never reach the
// suggestion service.
const minQueryLength = 2

// Autocomplete returns ranked place suggestions for a partial address.
// Queries under two characters short-circuit to an empty result without a
// network call.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]models.SuggestedPlace, error) {
	query = strings.TrimSpace(query)
	if len(query) < minQueryLength {
		return nil, nil
	}

	var out struct {
		Status  string                  `json:"status"`
		Payload []models.SuggestedPlace `json:"payload"`
	}
	if err := c.postJSON(ctx, "/api/autocomplete", map[string]string{"address": query}, &out); err != nil {
		return nil, err
	}
	return out.Payload, nil
}
