package domain

import "fmt"

// POI is a point-of-interest candidate returned by a retriever.
// Required fields depend on the category: stations need name, provider and
// distance; restaurants and hobbies need name, address and distance.
type POI struct {
	Name            string   `json:"name"`
	Provider        string   `json:"provider,omitempty"`
	Address         string   `json:"address,omitempty"`
	DistanceKm      float64  `json:"distance_km"`
	ChargingPowerKW float64  `json:"charging_power_kw,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	PriceLevel      *int     `json:"price_level,omitempty"`
	OpenNow         *bool    `json:"open_now,omitempty"`
	Website         string   `json:"website,omitempty"`
	Latitude        float64  `json:"latitude,omitempty"`
	Longitude       float64  `json:"longitude,omitempty"`
	Category        Category `json:"category,omitempty"`
}

// Validate checks the category-dependent required keys.
func (p POI) Validate(category Category) error {
	if p.Name == "" {
		return fmt.Errorf("poi: name is required")
	}
	if p.DistanceKm < 0 {
		return fmt.Errorf("poi %q: distance_km must not be negative", p.Name)
	}
	switch category {
	case CategoryStations:
		if p.Provider == "" {
			return fmt.Errorf("poi %q: provider is required for stations", p.Name)
		}
	case CategoryRestaurants, CategoryHobbies:
		if p.Address == "" {
			return fmt.Errorf("poi %q: address is required for %s", p.Name, category)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return nil
}

// RankedPOI is a POI annotated with its ranking score.
type RankedPOI struct {
	POI
	Score float64 `json:"score"`
}

// Names returns the names of the given ranked items in order.
func Names(items []RankedPOI) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names
}

// Location is a pair of WGS84 coordinates.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label,omitempty"`
}

// Validate checks the coordinate ranges.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: coordinates out of range: %v,%v", ErrInvalidInput, l.Latitude, l.Longitude)
	}
	return nil
}

// String renders the location as used in preference history entries.
func (l Location) String() string {
	if l.Label != "" {
		return l.Label
	}
	return fmt.Sprintf("%.5f,%.5f", l.Latitude, l.Longitude)
}

// Intent is the classified request: a category tag plus keyword arguments.
type Intent struct {
	Category      Category `json:"category"`
	Keywords      []string `json:"keywords,omitempty"`
	MinRating     *float64 `json:"min_rating,omitempty"`
	MaxDistanceKm *float64 `json:"max_distance_km,omitempty"`
}
