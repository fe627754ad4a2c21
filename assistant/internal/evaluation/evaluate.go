// Package evaluation measures recommendation quality from user ratings and
// scores generated utterances.
package evaluation

import (
	"math"
	"sort"
	"time"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// RelevantRating is the lowest rating counted as relevant.
const RelevantRating = 4

// Evaluate computes precision and recall of the recommended names against
// the ratings given by the user.
func Evaluate(recommended []string, feedback map[string]int, now time.Time) domain.EvaluationRecord {
	relevant := make([]string, 0, len(feedback))
	for name, rating := range feedback {
		if rating >= RelevantRating {
			relevant = append(relevant, name)
		}
	}
	sort.Strings(relevant)

	recSet := make(map[string]struct{}, len(recommended))
	for _, name := range recommended {
		recSet[name] = struct{}{}
	}
	hits := 0
	for _, name := range relevant {
		if _, ok := recSet[name]; ok {
			hits++
		}
	}

	var precision, recall float64
	if len(recSet) > 0 {
		precision = float64(hits) / float64(len(recSet))
	}
	if len(relevant) > 0 {
		recall = float64(hits) / float64(len(relevant))
	}

	ratings := make(domain.Ratings, len(feedback))
	for name, rating := range feedback {
		ratings[name] = rating
	}

	return domain.EvaluationRecord{
		Timestamp:   now.UTC(),
		Recommended: append([]string(nil), recommended...),
		Feedback:    ratings,
		Relevant:    relevant,
		Precision:   round3(precision),
		Recall:      round3(recall),
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
