package llm

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// KeywordClassifier is a rule-based classifier used when no model is
// available.
type KeywordClassifier struct {
	generic  map[string]domain.Category
	specific map[string]domain.Category
}

// NewKeywordClassifier creates a classifier with the built-in vocabulary.
func NewKeywordClassifier() *KeywordClassifier {
	k := &KeywordClassifier{
		generic:  make(map[string]domain.Category),
		specific: make(map[string]domain.Category),
	}
	add := func(m map[string]domain.Category, c domain.Category, words ...string) {
		for _, w := range words {
			m[w] = c
		}
	}
	add(k.generic, domain.CategoryStations, "station", "stations", "charger", "chargers", "charging", "charge", "recharge", "fuel", "refuel", "gas", "petrol", "battery")
	add(k.specific, domain.CategoryStations, "diesel", "electric", "ev", "supercharger", "tesla", "ionity", "shell", "total")
	add(k.generic, domain.CategoryRestaurants, "restaurant", "restaurants", "food", "eat", "eating", "hungry", "lunch", "dinner", "breakfast", "meal")
	add(k.specific, domain.CategoryRestaurants, "cafe", "coffee", "pizza", "sushi", "seafood", "burger", "burgers", "bakery", "bakeries", "vegetarian", "vegan", "italian", "chinese", "indian", "mexican", "steak")
	add(k.generic, domain.CategoryHobbies, "hobby", "hobbies", "fun", "activity", "activities", "leisure", "entertainment")
	add(k.specific, domain.CategoryHobbies, "museum", "park", "cinema", "movie", "movies", "bowling", "hiking", "biking", "cycling", "climbing", "swimming", "gym", "golf", "theatre", "theater", "zoo")
	return k
}

var (
	kmPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:km|kilometers|kilometres)\b`)
	ratingPattern = regexp.MustCompile(`(\d(?:\.\d+)?)\s*stars?\b`)
)

// Classify implements dialogue.Classifier. It does not fail; requests
// without a recognised word are treated as station searches.
func (k *KeywordClassifier) Classify(ctx context.Context, query string) (domain.Intent, error) {
	lower := strings.ToLower(query)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	hits := make(map[domain.Category]int)
	var keywords []string
	for _, w := range words {
		if c, ok := k.generic[w]; ok {
			hits[c]++
		}
		if c, ok := k.specific[w]; ok {
			hits[c]++
			keywords = append(keywords, w)
		}
	}

	best := domain.CategoryStations
	bestHits := 0
	for _, c := range domain.Categories {
		if hits[c] > bestHits {
			best, bestHits = c, hits[c]
		}
	}

	intent := domain.Intent{Category: best}
	for _, w := range keywords {
		if k.specific[w] == best {
			intent.Keywords = append(intent.Keywords, w)
		}
	}
	if m := kmPattern.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			intent.MaxDistanceKm = &v
		}
	}
	if m := ratingPattern.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v <= 5 {
			intent.MinRating = &v
		}
	}
	return intent, nil
}
