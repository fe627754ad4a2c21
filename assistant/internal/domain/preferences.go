package domain

import (
	"fmt"
	"time"
)

// HistoryEntry records a past recommendation or visit.
type HistoryEntry struct {
	Location  string    `json:"location"`
	Name      string    `json:"name"`
	Used      bool      `json:"used"`
	Timestamp time.Time `json:"timestamp"`
}

// StationPreferences holds the fuel and charging station preferences.
type StationPreferences struct {
	FuelType           string         `json:"fuel_type"`
	PreferredProviders []string       `json:"preferred_providers"`
	MaxDetourKm        float64        `json:"max_detour_km"`
	Avoid              []string       `json:"avoid"`
	ChargingPowerMinKW *float64       `json:"charging_power_min_kw"`
	History            []HistoryEntry `json:"history"`
}

// RestaurantPreferences holds the restaurant preferences.
type RestaurantPreferences struct {
	PreferredCuisineTypes  []string       `json:"preferred_cuisine_types"`
	AverageBudget          string         `json:"average_budget"`
	MaxDistanceFromRouteKm float64        `json:"max_distance_from_route_km"`
	SpecialNeeds           []string       `json:"special_needs"`
	DesiredAmbiance        string         `json:"desired_ambiance"`
	BlacklistedRestaurants []string       `json:"blacklisted_restaurants"`
	ReservationPreference  string         `json:"reservation_preference"`
	MinRating              float64        `json:"min_rating"`
	History                []HistoryEntry `json:"history"`
}

// HobbyPreferences holds the leisure activity preferences.
type HobbyPreferences struct {
	PreferredActivityTypes []string       `json:"preferred_activity_types"`
	IndoorOrOutdoor        string         `json:"indoor_or_outdoor"`
	MaxDistanceFromRouteKm float64        `json:"max_distance_from_route_km"`
	MaxBudgetPerActivity   string         `json:"max_budget_per_activity"`
	EasyAccessOrParking    string         `json:"easy_access_or_parking"`
	Availability           string         `json:"availability"`
	ExcludedActivities     []string       `json:"excluded_activities,omitempty"`
	MinRating              float64        `json:"min_rating"`
	History                []HistoryEntry `json:"history"`
}

// Preferences is the persisted preference document, keyed by category.
type Preferences struct {
	Stations    StationPreferences    `json:"stations"`
	Restaurants RestaurantPreferences `json:"restaurants"`
	Hobbies     HobbyPreferences      `json:"hobbies"`
}

// CategoryPreferences is a category-neutral view of one preference section.
// Scoring strategies read thresholds from it instead of switching on category.
type CategoryPreferences struct {
	Category           Category
	FuelType           string
	MaxDistanceKm      float64
	MinRating          float64
	BudgetTier         string
	PreferredProviders []string
	Avoid              []string
	MinPowerKW         *float64
	Preferred          []string
	Excluded           []string
	History            []HistoryEntry
}

// For returns the view of the section for category c.
func (p *Preferences) For(c Category) (CategoryPreferences, error) {
	switch c {
	case CategoryStations:
		s := p.Stations
		return CategoryPreferences{
			Category:           c,
			FuelType:           s.FuelType,
			MaxDistanceKm:      s.MaxDetourKm,
			PreferredProviders: s.PreferredProviders,
			Avoid:              s.Avoid,
			MinPowerKW:         s.ChargingPowerMinKW,
			History:            s.History,
		}, nil
	case CategoryRestaurants:
		r := p.Restaurants
		return CategoryPreferences{
			Category:      c,
			MaxDistanceKm: r.MaxDistanceFromRouteKm,
			MinRating:     r.MinRating,
			BudgetTier:    r.AverageBudget,
			Preferred:     r.PreferredCuisineTypes,
			Excluded:      r.BlacklistedRestaurants,
			History:       r.History,
		}, nil
	case CategoryHobbies:
		h := p.Hobbies
		return CategoryPreferences{
			Category:      c,
			MaxDistanceKm: h.MaxDistanceFromRouteKm,
			MinRating:     h.MinRating,
			BudgetTier:    h.MaxBudgetPerActivity,
			Preferred:     h.PreferredActivityTypes,
			Excluded:      h.ExcludedActivities,
			History:       h.History,
		}, nil
	}
	return CategoryPreferences{}, fmt.Errorf("%w: %q", ErrInvalidCategory, c)
}

// AppendHistory appends an entry to the history of category c.
func (p *Preferences) AppendHistory(c Category, entry HistoryEntry) error {
	switch c {
	case CategoryStations:
		p.Stations.History = append(p.Stations.History, entry)
	case CategoryRestaurants:
		p.Restaurants.History = append(p.Restaurants.History, entry)
	case CategoryHobbies:
		p.Hobbies.History = append(p.Hobbies.History, entry)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCategory, c)
	}
	return nil
}

// WithIntent applies the keyword overrides of an intent to the view.
func (cp CategoryPreferences) WithIntent(intent Intent) CategoryPreferences {
	if intent.MinRating != nil {
		cp.MinRating = *intent.MinRating
	}
	if intent.MaxDistanceKm != nil {
		cp.MaxDistanceKm = *intent.MaxDistanceKm
	}
	return cp
}
