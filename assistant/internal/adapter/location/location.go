// Package location resolves the vehicle position and geocodes addresses.
package location

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
)

// Static always returns the same location.
type Static struct {
	loc domain.Location
}

// NewStatic creates a static locator.
func NewStatic(loc domain.Location) *Static {
	return &Static{loc: loc}
}

// Locate implements dialogue.Locator.
func (s *Static) Locate(ctx context.Context) (domain.Location, error) {
	return s.loc, nil
}

// DefaultIPInfoURL is the ipinfo.io lookup endpoint.
const DefaultIPInfoURL = "https://ipinfo.io/json"

const ipCacheKey = "self"

// IPInfo approximates the location from the public IP address. Results are
// cached for ttl.
type IPInfo struct {
	endpoint   string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *zap.Logger
}

// NewIPInfo creates an IP-based locator.
func NewIPInfo(endpoint string, timeout, ttl time.Duration, logger *zap.Logger) *IPInfo {
	if endpoint == "" {
		endpoint = DefaultIPInfoURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IPInfo{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(ttl, 10*time.Minute),
		logger:     logger,
	}
}

type ipInfoResponse struct {
	Loc     string `json:"loc"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// Locate implements dialogue.Locator.
func (i *IPInfo) Locate(ctx context.Context) (domain.Location, error) {
	if v, ok := i.cache.Get(ipCacheKey); ok {
		metrics.LocationCacheHits.Inc()
		return v.(domain.Location), nil
	}
	metrics.LocationCacheMisses.Inc()

	var resp ipInfoResponse
	if err := getJSON(ctx, i.httpClient, i.endpoint, "", &resp); err != nil {
		return domain.Location{}, fmt.Errorf("ipinfo: %w", err)
	}
	loc, err := parseLatLon(resp.Loc)
	if err != nil {
		return domain.Location{}, fmt.Errorf("ipinfo: %w", err)
	}
	loc.Label = strings.Trim(strings.Join([]string{resp.City, resp.Region, resp.Country}, ", "), ", ")

	i.cache.Set(ipCacheKey, loc, cache.DefaultExpiration)
	i.logger.Debug("location resolved", zap.String("loc", resp.Loc), zap.String("label", loc.Label))
	return loc, nil
}

// DefaultNominatimURL is the public Nominatim search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// Nominatim geocodes free-form addresses with OpenStreetMap.
type Nominatim struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	cache      *cache.Cache
}

// NewNominatim creates a geocoder. Nominatim requires an identifying
// user agent.
func NewNominatim(endpoint, userAgent string, timeout, ttl time.Duration) *Nominatim {
	if endpoint == "" {
		endpoint = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = "gogo-assistant"
	}
	return &Nominatim{
		endpoint:   endpoint,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(ttl, 10*time.Minute),
	}
}

// Geocode returns the coordinates of address, or domain.ErrNotFound.
func (n *Nominatim) Geocode(ctx context.Context, address string) (domain.Location, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	if v, ok := n.cache.Get(key); ok {
		metrics.LocationCacheHits.Inc()
		return v.(domain.Location), nil
	}
	metrics.LocationCacheMisses.Inc()

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")

	var results []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := getJSON(ctx, n.httpClient, n.endpoint+"?"+params.Encode(), n.userAgent, &results); err != nil {
		return domain.Location{}, fmt.Errorf("nominatim: %w", err)
	}
	if len(results) == 0 {
		return domain.Location{}, fmt.Errorf("geocode %q: %w", address, domain.ErrNotFound)
	}
	loc, err := parseLatLon(results[0].Lat + "," + results[0].Lon)
	if err != nil {
		return domain.Location{}, fmt.Errorf("nominatim: %w", err)
	}
	loc.Label = address

	n.cache.Set(key, loc, cache.DefaultExpiration)
	return loc, nil
}

// Address locates a fixed address once and then serves it from the
// geocoder cache.
type Address struct {
	geocoder *Nominatim
	address  string
}

// NewAddress creates a locator for a configured address.
func NewAddress(geocoder *Nominatim, address string) *Address {
	return &Address{geocoder: geocoder, address: address}
}

// Locate implements dialogue.Locator.
func (a *Address) Locate(ctx context.Context) (domain.Location, error) {
	return a.geocoder.Geocode(ctx, a.address)
}

func parseLatLon(s string) (domain.Location, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.Location{}, fmt.Errorf("invalid coordinates %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Location{}, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Location{}, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	return domain.Location{Latitude: lat, Longitude: lon}, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint, userAgent string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream error [%d]", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
