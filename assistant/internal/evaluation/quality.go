package evaluation

import (
	"strings"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// DefaultMaxWords is the longest utterance that keeps a full brevity score.
const DefaultMaxWords = 60

// LexicalQualityScorer scores generated utterances with plain word counts.
type LexicalQualityScorer struct {
	MaxWords int
}

// Score returns the share of proposed names mentioned in the utterance and a
// brevity score that decays once the utterance exceeds MaxWords.
func (s LexicalQualityScorer) Score(utterance string, proposed []string) domain.Quality {
	maxWords := s.MaxWords
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	lower := strings.ToLower(utterance)
	mentioned := 0
	for _, name := range proposed {
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			mentioned++
		}
	}

	var q domain.Quality
	if len(proposed) > 0 {
		q.Coverage = round3(float64(mentioned) / float64(len(proposed)))
	}

	words := len(strings.Fields(utterance))
	switch {
	case words == 0:
		q.Brevity = 0
	case words <= maxWords:
		q.Brevity = 1
	default:
		q.Brevity = round3(float64(maxWords) / float64(words))
	}
	return q
}
