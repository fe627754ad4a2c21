// Package ranking scores, filters and orders point-of-interest candidates
// against the user's preferences and past feedback.
//
// Each category has a Strategy implementing the same scoring contract. A
// strategy returns FilteredScore for items that fail a hard filter; every
// item scoring below zero is left out of the shortlist.
package ranking

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// FilteredScore is the score of an item rejected by a hard filter.
const FilteredScore = -1.0

const (
	// feedbackWeight scales the distance of an average rating from neutral.
	feedbackWeight = 0.3
	// neutralRating is the rating that contributes no feedback adjustment.
	neutralRating = 3.0
	// distanceDecay is subtracted per kilometre.
	distanceDecay = 0.05
)

// Strategy scores a single candidate of one category.
type Strategy interface {
	// Category returns the category handled by the strategy.
	Category() domain.Category

	// Score returns the item's score. fb is nil when feedback is disabled.
	Score(item domain.POI, prefs domain.CategoryPreferences, fb FeedbackIndex) float64
}

// Options tunes the default strategies.
type Options struct {
	// HistoryBonus is added when the provider or name appears as used in
	// the category history. Zero disables the term.
	HistoryBonus float64
}

// Registry stores strategies keyed by category.
type Registry struct {
	mu         sync.RWMutex
	strategies map[domain.Category]Strategy
}

// NewRegistry creates a registry holding the default strategies.
func NewRegistry(opts Options) *Registry {
	r := &Registry{strategies: make(map[domain.Category]Strategy)}
	r.strategies[domain.CategoryStations] = &StationStrategy{HistoryBonus: opts.HistoryBonus}
	r.strategies[domain.CategoryRestaurants] = &VenueStrategy{category: domain.CategoryRestaurants, HistoryBonus: opts.HistoryBonus}
	r.strategies[domain.CategoryHobbies] = &VenueStrategy{category: domain.CategoryHobbies, HistoryBonus: opts.HistoryBonus}
	return r
}

// Register replaces the strategy of its category.
func (r *Registry) Register(s Strategy) error {
	if s == nil {
		return fmt.Errorf("strategy is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Category()] = s
	return nil
}

// Get returns the strategy for a category.
func (r *Registry) Get(c domain.Category) (Strategy, error) {
	r.mu.RLock()
	s := r.strategies[c]
	r.mu.RUnlock()
	if s == nil {
		return nil, fmt.Errorf("%w: no strategy for %q", domain.ErrInvalidCategory, c)
	}
	return s, nil
}

var budgetTiers = map[string]int{
	"inexpensive":    0,
	"cheap":          1,
	"moderate":       2,
	"expensive":      3,
	"very_expensive": 4,
}

// BudgetTier maps a budget label onto the 0-4 price level scale.
func BudgetTier(label string) (int, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
	tier, ok := budgetTiers[key]
	return tier, ok
}

func feedbackTerm(name string, fb FeedbackIndex) float64 {
	if fb == nil {
		return 0
	}
	stats, ok := fb[name]
	if !ok || stats.Count == 0 {
		return 0
	}
	return (stats.Average - neutralRating) * feedbackWeight
}

func historyTerm(bonus float64, history []domain.HistoryEntry, keys ...string) float64 {
	if bonus == 0 {
		return 0
	}
	for _, h := range history {
		if !h.Used {
			continue
		}
		for _, k := range keys {
			if k != "" && strings.EqualFold(h.Name, k) {
				return bonus
			}
		}
	}
	return 0
}

func exceedsDistance(distance, limit float64) bool {
	return limit > 0 && distance > limit
}
