package evaluation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// Capturer returns the next user utterance, or "" when nothing was heard.
type Capturer interface {
	Capture(ctx context.Context, maxDuration time.Duration) (string, error)
}

// Speaker says a line to the user.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// SpokenRatingCollector asks the user to rate each presented option by voice.
type SpokenRatingCollector struct {
	capturer    Capturer
	speaker     Speaker
	maxDuration time.Duration
	attempts    int
	logger      *zap.Logger
}

// NewSpokenRatingCollector creates a collector. attempts bounds the number of
// questions per item before it is skipped.
func NewSpokenRatingCollector(capturer Capturer, speaker Speaker, maxDuration time.Duration, attempts int, logger *zap.Logger) *SpokenRatingCollector {
	if attempts <= 0 {
		attempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpokenRatingCollector{
		capturer:    capturer,
		speaker:     speaker,
		maxDuration: maxDuration,
		attempts:    attempts,
		logger:      logger,
	}
}

// Collect returns the ratings given for the items, keyed by name.
func (c *SpokenRatingCollector) Collect(ctx context.Context, items []domain.RankedPOI) (map[string]int, error) {
	ratings := make(map[string]int, len(items))
	if len(items) == 0 {
		return ratings, nil
	}
	if err := c.speaker.Say(ctx, "Let's evaluate your experience."); err != nil {
		return nil, err
	}

	for _, item := range items {
		question := fmt.Sprintf("How would you rate %s from 1 to 5?", item.Name)
		for attempt := 0; attempt < c.attempts; attempt++ {
			if err := c.speaker.Say(ctx, question); err != nil {
				return nil, err
			}
			text, err := c.capturer.Capture(ctx, c.maxDuration)
			if err != nil {
				return nil, err
			}
			if rating, ok := ParseRating(text); ok {
				ratings[item.Name] = rating
				break
			}
			question = "Please give a number from 1 to 5."
		}
		if _, ok := ratings[item.Name]; !ok {
			c.logger.Debug("rating skipped", zap.String("poi", item.Name))
		}
	}
	return ratings, nil
}

var numberWords = map[string]int{
	"one":   1,
	"two":   2,
	"three": 3,
	"four":  4,
	"five":  5,
}

// ParseRating extracts a 1-5 rating from a spoken reply such as "4",
// "four stars" or "I'd say 5/5".
func ParseRating(text string) (int, bool) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for _, f := range fields {
		if n, ok := numberWords[f]; ok {
			return n, true
		}
		if n, err := strconv.Atoi(f); err == nil {
			if n >= 1 && n <= 5 {
				return n, true
			}
			return 0, false
		}
	}
	return 0, false
}
