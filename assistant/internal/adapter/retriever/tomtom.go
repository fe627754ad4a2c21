package retriever

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// DefaultTomTomURL is the public TomTom API root.
const DefaultTomTomURL = "https://api.tomtom.com"

// TomTom searches fuel stations.
type TomTom struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewTomTom creates a TomTom fuel source.
func NewTomTom(baseURL, apiKey string, timeout time.Duration) *TomTom {
	if baseURL == "" {
		baseURL = DefaultTomTomURL
	}
	return &TomTom{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Source.
func (t *TomTom) Name() string { return "tomtom" }

type tomtomResponse struct {
	Results []struct {
		Dist float64 `json:"dist"`
		POI  struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"poi"`
		Address struct {
			FreeformAddress string `json:"freeformAddress"`
		} `json:"address"`
		Position struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"position"`
	} `json:"results"`
}

// Search implements Source.
func (t *TomTom) Search(ctx context.Context, q Query) ([]domain.POI, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Location.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(q.Location.Longitude, 'f', -1, 64))
	params.Set("radius", strconv.Itoa(int(q.RadiusKm*1000)))
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("key", t.apiKey)

	var resp tomtomResponse
	if err := getJSON(ctx, t.httpClient, t.baseURL+"/search/2/poiSearch/fuel.json", params, nil, &resp); err != nil {
		return nil, err
	}

	pois := make([]domain.POI, 0, len(resp.Results))
	for _, r := range resp.Results {
		name := strings.TrimSpace(r.POI.Name)
		if name == "" {
			name = "Unknown Station"
		}
		pois = append(pois, domain.POI{
			Name:       name,
			Provider:   strings.Fields(name)[0],
			Address:    r.Address.FreeformAddress,
			DistanceKm: round2(r.Dist / 1000),
			Website:    r.POI.URL,
			Latitude:   r.Position.Lat,
			Longitude:  r.Position.Lon,
			Category:   domain.CategoryStations,
		})
	}
	return pois, nil
}
