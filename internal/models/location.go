package models

// Location is a validated origin or destination. A Location only ever comes
// from a suggestion the user picked (see route.LocationFromSuggestion);
// free-typed text must never be turned into one.
type Location struct {
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formattedAddress"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

// SuggestedPlace is a single entry of the autocomplete payload, ranked by
// the suggestion service.
type SuggestedPlace struct {
	Rank      int     `json:"rank"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Street    string  `json:"street"`
	Formatted string  `json:"formatted"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}
