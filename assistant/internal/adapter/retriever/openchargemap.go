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

// DefaultOpenChargeMapURL is the public OpenChargeMap API root.
const DefaultOpenChargeMapURL = "https://api.openchargemap.io"

// OpenChargeMap searches electric charging stations.
type OpenChargeMap struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewOpenChargeMap creates an OpenChargeMap source.
func NewOpenChargeMap(baseURL, apiKey string, timeout time.Duration) *OpenChargeMap {
	if baseURL == "" {
		baseURL = DefaultOpenChargeMapURL
	}
	return &OpenChargeMap{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Source.
func (o *OpenChargeMap) Name() string { return "openchargemap" }

type ocmEntry struct {
	AddressInfo *struct {
		Title        string  `json:"Title"`
		AddressLine1 string  `json:"AddressLine1"`
		Town         string  `json:"Town"`
		Latitude     float64 `json:"Latitude"`
		Longitude    float64 `json:"Longitude"`
		Distance     float64 `json:"Distance"`
	} `json:"AddressInfo"`
	OperatorInfo *struct {
		Title      string `json:"Title"`
		WebsiteURL string `json:"WebsiteURL"`
	} `json:"OperatorInfo"`
	Connections []struct {
		PowerKW *float64 `json:"PowerKW"`
	} `json:"Connections"`
}

// Search implements Source.
func (o *OpenChargeMap) Search(ctx context.Context, q Query) ([]domain.POI, error) {
	params := url.Values{}
	params.Set("output", "json")
	params.Set("latitude", strconv.FormatFloat(q.Location.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Location.Longitude, 'f', -1, 64))
	params.Set("distance", strconv.FormatFloat(q.RadiusKm, 'f', -1, 64))
	params.Set("distanceunit", "KM")
	params.Set("maxresults", strconv.Itoa(q.Limit))

	header := http.Header{}
	if o.apiKey != "" {
		header.Set("X-API-Key", o.apiKey)
	}

	var entries []ocmEntry
	if err := getJSON(ctx, o.httpClient, o.baseURL+"/v3/poi/", params, header, &entries); err != nil {
		return nil, err
	}

	pois := make([]domain.POI, 0, len(entries))
	for _, e := range entries {
		poi := domain.POI{
			Name:     "Unknown Station",
			Provider: "Unknown Provider",
			Category: domain.CategoryStations,
		}
		if e.AddressInfo != nil {
			if e.AddressInfo.Title != "" {
				poi.Name = e.AddressInfo.Title
			}
			poi.Address = strings.Trim(e.AddressInfo.AddressLine1+", "+e.AddressInfo.Town, ", ")
			poi.DistanceKm = round2(e.AddressInfo.Distance)
			poi.Latitude = e.AddressInfo.Latitude
			poi.Longitude = e.AddressInfo.Longitude
		}
		if e.OperatorInfo != nil && e.OperatorInfo.Title != "" {
			poi.Provider = e.OperatorInfo.Title
			poi.Website = e.OperatorInfo.WebsiteURL
		}
		for _, c := range e.Connections {
			if c.PowerKW != nil && *c.PowerKW > poi.ChargingPowerKW {
				poi.ChargingPowerKW = *c.PowerKW
			}
		}
		pois = append(pois, poi)
	}
	return pois, nil
}
