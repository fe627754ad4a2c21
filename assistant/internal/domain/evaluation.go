package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// Ratings maps a point-of-interest name to a 1-5 user rating.
//
// Two persisted shapes are accepted: the multi-item map
// {"name": rating, ...} and the single-selection record
// {"point_of_interest": "name", "rating": 4}.
type Ratings map[string]int

type singleRating struct {
	PointOfInterest *string `json:"point_of_interest"`
	Rating          *int    `json:"rating"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ratings) UnmarshalJSON(data []byte) error {
	var single singleRating
	if err := json.Unmarshal(data, &single); err == nil && single.PointOfInterest != nil && single.Rating != nil {
		*r = Ratings{*single.PointOfInterest: *single.Rating}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode feedback: %w", err)
	}
	out := make(Ratings, len(raw))
	for name, value := range raw {
		var rating float64
		if err := json.Unmarshal(value, &rating); err != nil {
			return fmt.Errorf("decode feedback for %q: %w", name, err)
		}
		out[name] = int(rating)
	}
	*r = out
	return nil
}

// SortedNames returns the rated names in lexical order.
func (r Ratings) SortedNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EvaluationRecord is one entry of the feedback ledger.
type EvaluationRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"session_id,omitempty"`
	Category    Category  `json:"category,omitempty"`
	Recommended []string  `json:"recommended"`
	Feedback    Ratings   `json:"feedback"`
	Relevant    []string  `json:"relevant"`
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
}

// Quality holds the two scores of the last generated utterance.
type Quality struct {
	Coverage float64 `json:"coverage"`
	Brevity  float64 `json:"brevity"`
}
