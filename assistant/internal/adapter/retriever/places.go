package retriever

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// DefaultPlacesURL is the public Google Maps API root.
const DefaultPlacesURL = "https://maps.googleapis.com"

// Places searches restaurants and leisure venues with the Google Places
// Nearby Search API.
type Places struct {
	baseURL    string
	apiKey     string
	placeType  string
	category   domain.Category
	httpClient *http.Client
}

// NewPlaces creates a Places source returning POIs of the given category.
// placeType may be empty.
func NewPlaces(baseURL, apiKey string, category domain.Category, placeType string, timeout time.Duration) *Places {
	if baseURL == "" {
		baseURL = DefaultPlacesURL
	}
	return &Places{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		placeType:  placeType,
		category:   category,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Source.
func (p *Places) Name() string { return "places_" + string(p.category) }

type placesResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Name         string   `json:"name"`
		Vicinity     string   `json:"vicinity"`
		Rating       float64  `json:"rating"`
		PriceLevel   *int     `json:"price_level"`
		Types        []string `json:"types"`
		OpeningHours *struct {
			OpenNow *bool `json:"open_now"`
		} `json:"opening_hours"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Search implements Source.
func (p *Places) Search(ctx context.Context, q Query) ([]domain.POI, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", q.Location.Latitude, q.Location.Longitude))
	params.Set("radius", strconv.Itoa(int(q.RadiusKm*1000)))
	if p.placeType != "" {
		params.Set("type", p.placeType)
	}
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}
	params.Set("key", p.apiKey)

	var resp placesResponse
	if err := getJSON(ctx, p.httpClient, p.baseURL+"/maps/api/place/nearbysearch/json", params, nil, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case "OK", "":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, fmt.Errorf("places error %s: %s", resp.Status, resp.ErrorMessage)
	}

	pois := make([]domain.POI, 0, len(resp.Results))
	for i, r := range resp.Results {
		if q.Limit > 0 && i >= q.Limit {
			break
		}
		loc := domain.Location{Latitude: r.Geometry.Location.Lat, Longitude: r.Geometry.Location.Lng}
		poi := domain.POI{
			Name:       r.Name,
			Address:    r.Vicinity,
			Rating:     r.Rating,
			PriceLevel: r.PriceLevel,
			DistanceKm: round2(HaversineKm(q.Location, loc)),
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
			Category:   p.category,
		}
		if r.OpeningHours != nil {
			poi.OpenNow = r.OpeningHours.OpenNow
		}
		pois = append(pois, poi)
	}
	return pois, nil
}
