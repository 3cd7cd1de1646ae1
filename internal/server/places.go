package server

import (
	"strings"

	"hopalong/core/internal/geo"
	"hopalong/core/internal/models"
)

// knownPlaces is the devstack's stand-in for a real geocoder. Enough
// entries to exercise autocomplete and give created rides readable names.
var knownPlaces = []models.SuggestedPlace{
	{Rank: 1, Name: "Central Station", City: "Kyiv", Street: "Vokzalna Square 1", Formatted: "Central Station, Vokzalna Square 1, Kyiv", Lat: 50.4400, Lon: 30.4885},
	{Rank: 2, Name: "Taras Shevchenko University", City: "Kyiv", Street: "Volodymyrska St 60", Formatted: "Taras Shevchenko University, Volodymyrska St 60, Kyiv", Lat: 50.4419, Lon: 30.5114},
	{Rank: 3, Name: "Olimpiyskiy Stadium", City: "Kyiv", Street: "Velyka Vasylkivska St 55", Formatted: "Olimpiyskiy Stadium, Velyka Vasylkivska St 55, Kyiv", Lat: 50.4331, Lon: 30.5217},
	{Rank: 4, Name: "Boryspil Airport", City: "Boryspil", Street: "Airport Rd", Formatted: "Boryspil International Airport, Boryspil", Lat: 50.3450, Lon: 30.8947},
	{Rank: 5, Name: "Zhuliany Airport", City: "Kyiv", Street: "Povitrianykh Syl Ave 79", Formatted: "Zhuliany Airport, Povitrianykh Syl Ave 79, Kyiv", Lat: 50.4018, Lon: 30.4420},
	{Rank: 6, Name: "Podil River Port", City: "Kyiv", Street: "Poshtova Square 3", Formatted: "Podil River Port, Poshtova Square 3, Kyiv", Lat: 50.4630, Lon: 30.5250},
	{Rank: 7, Name: "Lavra Monastery", City: "Kyiv", Street: "Lavrska St 15", Formatted: "Kyiv Pechersk Lavra, Lavrska St 15, Kyiv", Lat: 50.4346, Lon: 30.5572},
	{Rank: 8, Name: "Expocenter", City: "Kyiv", Street: "Akademika Hlushkova Ave 1", Formatted: "National Expocenter, Akademika Hlushkova Ave 1, Kyiv", Lat: 50.3774, Lon: 30.4761},
}

// matchPlaces filters the table by a case-insensitive substring over the
// formatted address and re-ranks the survivors.
func matchPlaces(query string) []models.SuggestedPlace {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []models.SuggestedPlace
	for _, p := range knownPlaces {
		if strings.Contains(strings.ToLower(p.Formatted), query) {
			p.Rank = len(out) + 1
			out = append(out, p)
		}
	}
	return out
}

// placeNameFor names a coordinate after the nearest known place, falling
// back to the raw coordinate string when nothing is close.
func placeNameFor(lat, lon float64, fallback string) string {
	const nameRadius = 2000 // meters
	bestName := fallback
	bestDist := float64(nameRadius)
	for _, p := range knownPlaces {
		if d := geo.Haversine(lat, lon, p.Lat, p.Lon); d < bestDist {
			bestDist = d
			bestName = p.Name
		}
	}
	return bestName
}
