package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// ErrUnsupportedFuel is returned for a station fuel type no source serves.
var ErrUnsupportedFuel = errors.New("unsupported fuel type")

// Sources holds one source per search kind. Nil sources are unsupported.
type Sources struct {
	Electric    Source
	Fuel        Source
	Restaurants Source
	Hobbies     Source
}

// Router picks the source for a request and normalises its results.
type Router struct {
	sources  Sources
	radiusKm float64
	limit    int
	logger   *zap.Logger
}

// NewRouter creates a router. radiusKm is used when the preferences carry
// no distance limit.
func NewRouter(sources Sources, radiusKm float64, limit int, logger *zap.Logger) *Router {
	if radiusKm <= 0 {
		radiusKm = 10
	}
	if limit <= 0 {
		limit = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{sources: sources, radiusKm: radiusKm, limit: limit, logger: logger}
}

// Retrieve implements dialogue.Retriever.
func (r *Router) Retrieve(ctx context.Context, prefs domain.CategoryPreferences, intent domain.Intent, loc domain.Location) ([]domain.POI, error) {
	category := intent.Category
	if category == "" {
		category = prefs.Category
	}

	source, err := r.route(category, prefs)
	if err != nil {
		return nil, err
	}

	q := Query{
		Location: loc,
		RadiusKm: r.radiusKm,
		Keyword:  keyword(intent, prefs),
		Limit:    r.limit,
	}
	if prefs.MaxDistanceKm > 0 && prefs.MaxDistanceKm < q.RadiusKm {
		q.RadiusKm = prefs.MaxDistanceKm
	}
	if category == domain.CategoryStations {
		q.Keyword = ""
	}

	r.logger.Debug("searching",
		zap.String("source", source.Name()),
		zap.String("category", string(category)),
		zap.Float64("radius_km", q.RadiusKm),
		zap.String("keyword", q.Keyword))

	pois, err := source.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	valid := make([]domain.POI, 0, len(pois))
	for _, p := range pois {
		if p.Category == "" {
			p.Category = category
		}
		if err := p.Validate(category); err != nil {
			r.logger.Debug("skipping candidate", zap.Error(err))
			continue
		}
		valid = append(valid, p)
	}
	return valid, nil
}

func (r *Router) route(category domain.Category, prefs domain.CategoryPreferences) (Source, error) {
	var source Source
	switch category {
	case domain.CategoryStations:
		switch fuel := strings.ToLower(strings.TrimSpace(prefs.FuelType)); fuel {
		case "", "electric", "ev":
			source = r.sources.Electric
		case "petrol", "gasoline", "diesel", "gas":
			source = r.sources.Fuel
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFuel, prefs.FuelType)
		}
	case domain.CategoryRestaurants:
		source = r.sources.Restaurants
	case domain.CategoryHobbies:
		source = r.sources.Hobbies
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCategory, category)
	}
	if source == nil {
		return nil, fmt.Errorf("no source configured for %s", category)
	}
	return source, nil
}

func keyword(intent domain.Intent, prefs domain.CategoryPreferences) string {
	if len(intent.Keywords) > 0 {
		return strings.Join(intent.Keywords, " ")
	}
	if len(prefs.Preferred) > 0 {
		return prefs.Preferred[0]
	}
	return ""
}
