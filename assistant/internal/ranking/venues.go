package ranking

import "github.com/xiaot623/gogo/assistant/internal/domain"

const (
	ratingWeight  = 1.0
	openNowBonus  = 0.7
	closedPenalty = 0.8
)

// VenueStrategy scores restaurants and hobby venues.
type VenueStrategy struct {
	category     domain.Category
	HistoryBonus float64
}

var _ Strategy = (*VenueStrategy)(nil)

// NewVenueStrategy creates a venue strategy for restaurants or hobbies.
func NewVenueStrategy(category domain.Category, historyBonus float64) *VenueStrategy {
	return &VenueStrategy{category: category, HistoryBonus: historyBonus}
}

// Category implements Strategy.
func (s *VenueStrategy) Category() domain.Category {
	return s.category
}

// Score implements Strategy.
func (s *VenueStrategy) Score(item domain.POI, prefs domain.CategoryPreferences, fb FeedbackIndex) float64 {
	if exceedsDistance(item.DistanceKm, prefs.MaxDistanceKm) {
		return FilteredScore
	}

	score := 0.0
	if item.Rating >= prefs.MinRating {
		score += (item.Rating - prefs.MinRating) * ratingWeight
	}

	if item.PriceLevel != nil {
		if tier, ok := BudgetTier(prefs.BudgetTier); ok && *item.PriceLevel > tier {
			return FilteredScore
		}
	}

	if item.OpenNow != nil {
		if *item.OpenNow {
			score += openNowBonus
		} else {
			score -= closedPenalty
		}
	}

	score -= distanceDecay * item.DistanceKm
	score += historyTerm(s.HistoryBonus, prefs.History, item.Name)
	score += feedbackTerm(item.Name, fb)

	return score
}
