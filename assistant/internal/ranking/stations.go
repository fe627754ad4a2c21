package ranking

import (
	"strings"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

const (
	preferredProviderBonus = 1.0
	avoidPenalty           = 0.3
	chargingPowerBonus     = 0.5
)

// StationStrategy scores fuel and charging stations.
type StationStrategy struct {
	HistoryBonus float64
}

var _ Strategy = (*StationStrategy)(nil)

// Category implements Strategy.
func (s *StationStrategy) Category() domain.Category {
	return domain.CategoryStations
}

// Score implements Strategy.
func (s *StationStrategy) Score(item domain.POI, prefs domain.CategoryPreferences, fb FeedbackIndex) float64 {
	score := 0.0

	if containsFold(prefs.PreferredProviders, item.Provider) {
		score += preferredProviderBonus
	}

	if exceedsDistance(item.DistanceKm, prefs.MaxDistanceKm) {
		return FilteredScore
	}

	name := strings.ToLower(item.Name)
	for _, avoid := range prefs.Avoid {
		avoid = strings.ToLower(strings.TrimSpace(avoid))
		if avoid != "" && strings.Contains(name, avoid) {
			score -= avoidPenalty
			break
		}
	}

	if prefs.MinPowerKW != nil && item.ChargingPowerKW >= *prefs.MinPowerKW {
		score += chargingPowerBonus
	}

	score += historyTerm(s.HistoryBonus, prefs.History, item.Provider, item.Name)
	score += feedbackTerm(item.Name, fb)
	score -= distanceDecay * item.DistanceKm

	return score
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
