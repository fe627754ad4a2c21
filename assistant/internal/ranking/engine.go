package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// FeedbackSource reads the feedback ledger.
type FeedbackSource interface {
	ReadAll(ctx context.Context) ([]domain.EvaluationRecord, error)
}

// Engine turns candidate lists into ordered shortlists.
type Engine struct {
	registry *Registry
	ledger   FeedbackSource
}

// NewEngine creates a ranking engine. ledger may be nil, in which case the
// feedback term never applies.
func NewEngine(registry *Registry, ledger FeedbackSource) *Engine {
	if registry == nil {
		registry = NewRegistry(Options{})
	}
	return &Engine{registry: registry, ledger: ledger}
}

// Strategy returns the scoring strategy registered for a category.
func (e *Engine) Strategy(c domain.Category) (Strategy, error) {
	return e.registry.Get(c)
}

// RankCategory looks up the category strategy and ranks the candidates
// against the matching preference section.
func (e *Engine) RankCategory(ctx context.Context, prefs *domain.Preferences, category domain.Category, candidates []domain.POI, useFeedback bool) ([]domain.RankedPOI, error) {
	if prefs == nil {
		return nil, domain.ErrPreferencesNotFound
	}
	strategy, err := e.registry.Get(category)
	if err != nil {
		return nil, err
	}
	view, err := prefs.For(category)
	if err != nil {
		return nil, err
	}
	return e.Rank(ctx, strategy, view, candidates, useFeedback)
}

// Rank scores every candidate, drops the ones scoring below zero and sorts
// the rest by score, descending. Equal scores keep their retrieval order.
// The candidate slice is not modified.
func (e *Engine) Rank(ctx context.Context, strategy Strategy, prefs domain.CategoryPreferences, candidates []domain.POI, useFeedback bool) ([]domain.RankedPOI, error) {
	var fb FeedbackIndex
	if useFeedback && e.ledger != nil {
		records, err := e.ledger.ReadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("read feedback ledger: %w", err)
		}
		fb = BuildFeedbackIndex(records)
	}

	ranked := make([]domain.RankedPOI, 0, len(candidates))
	for _, item := range candidates {
		score := strategy.Score(item, prefs, fb)
		if score < 0 {
			continue
		}
		ranked = append(ranked, domain.RankedPOI{POI: item, Score: Round(score, 2)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
