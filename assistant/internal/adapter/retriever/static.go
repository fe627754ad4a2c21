package retriever

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// Static serves fixed candidates per category, for offline demos and tests.
type Static struct {
	pois map[domain.Category][]domain.POI
}

// NewStatic creates a static retriever.
func NewStatic(pois map[domain.Category][]domain.POI) *Static {
	return &Static{pois: pois}
}

// LoadStatic reads a fixture file of the form {"stations": [...], ...}.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var raw map[string][]domain.POI
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	pois := make(map[domain.Category][]domain.POI, len(raw))
	for key, items := range raw {
		c, ok := domain.ParseCategory(key)
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", domain.ErrInvalidCategory, key, path)
		}
		pois[c] = items
	}
	return NewStatic(pois), nil
}

// Retrieve implements dialogue.Retriever. The returned slice is a copy.
func (s *Static) Retrieve(ctx context.Context, prefs domain.CategoryPreferences, intent domain.Intent, loc domain.Location) ([]domain.POI, error) {
	category := intent.Category
	if category == "" {
		category = prefs.Category
	}
	items := s.pois[category]
	out := make([]domain.POI, len(items))
	copy(out, items)
	for i := range out {
		if out[i].Category == "" {
			out[i].Category = category
		}
	}
	return out, nil
}
