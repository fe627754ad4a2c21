package ranking

import "github.com/xiaot623/gogo/assistant/internal/domain"

// FeedbackStats aggregates the ratings recorded for one point of interest.
type FeedbackStats struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// FeedbackIndex maps a point-of-interest name to its rating statistics.
type FeedbackIndex map[string]FeedbackStats

// BuildFeedbackIndex averages every rating recorded under each name.
func BuildFeedbackIndex(records []domain.EvaluationRecord) FeedbackIndex {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, rec := range records {
		for name, rating := range rec.Feedback {
			sums[name] += rating
			counts[name]++
		}
	}

	index := make(FeedbackIndex, len(counts))
	for name, n := range counts {
		index[name] = FeedbackStats{
			Average: float64(sums[name]) / float64(n),
			Count:   n,
		}
	}
	return index
}
