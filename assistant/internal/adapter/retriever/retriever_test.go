package retriever

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/policy"
)

var here = domain.Location{Latitude: 52.07, Longitude: -0.63}

func TestOpenChargeMapSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/poi/" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "k" {
			t.Fatalf("missing api key")
		}
		if r.URL.Query().Get("distanceunit") != "KM" || r.URL.Query().Get("maxresults") != "20" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[
			{"AddressInfo":{"Title":"Cranfield Hub","AddressLine1":"1 Road","Town":"Cranfield","Distance":1.23456},
			 "OperatorInfo":{"Title":"Ionity"},
			 "Connections":[{"PowerKW":50},{"PowerKW":150},{"PowerKW":null}]},
			{"AddressInfo":{"Title":"","Distance":3},"OperatorInfo":null,"Connections":[]}
		]`)
	}))
	defer server.Close()

	src := NewOpenChargeMap(server.URL, "k", time.Second)
	pois, err := src.Search(context.Background(), Query{Location: here, RadiusKm: 10, Limit: 20})
	require.NoError(t, err)
	require.Len(t, pois, 2)

	assert.Equal(t, "Cranfield Hub", pois[0].Name)
	assert.Equal(t, "Ionity", pois[0].Provider)
	assert.Equal(t, 1.23, pois[0].DistanceKm)
	assert.Equal(t, 150.0, pois[0].ChargingPowerKW)
	assert.Equal(t, "1 Road, Cranfield", pois[0].Address)

	assert.Equal(t, "Unknown Station", pois[1].Name)
	assert.Equal(t, "Unknown Provider", pois[1].Provider)
}

func TestTomTomSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/2/poiSearch/fuel.json" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("radius") != "5000" {
			t.Fatalf("unexpected radius: %s", r.URL.Query().Get("radius"))
		}
		fmt.Fprint(w, `{"results":[{"dist":2345.6,"poi":{"name":"Shell Cranfield"},"address":{"freeformAddress":"High St"}}]}`)
	}))
	defer server.Close()

	pois, err := NewTomTom(server.URL, "k", time.Second).Search(context.Background(), Query{Location: here, RadiusKm: 5, Limit: 20})
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "Shell", pois[0].Provider)
	assert.Equal(t, 2.35, pois[0].DistanceKm)
	assert.Equal(t, domain.CategoryStations, pois[0].Category)
}

func TestPlacesSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") != "restaurant" || q.Get("keyword") != "sushi" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"status":"OK","results":[
			{"name":"Sushi Go","vicinity":"2 Main St","rating":4.6,"price_level":2,
			 "opening_hours":{"open_now":true},"geometry":{"location":{"lat":52.07,"lng":-0.63}}},
			{"name":"No Hours","vicinity":"3 Main St","rating":3.9,
			 "geometry":{"location":{"lat":52.08,"lng":-0.63}}}
		]}`)
	}))
	defer server.Close()

	src := NewPlaces(server.URL, "k", domain.CategoryRestaurants, "restaurant", time.Second)
	pois, err := src.Search(context.Background(), Query{Location: here, RadiusKm: 3, Keyword: "sushi", Limit: 20})
	require.NoError(t, err)
	require.Len(t, pois, 2)

	require.NotNil(t, pois[0].OpenNow)
	assert.True(t, *pois[0].OpenNow)
	require.NotNil(t, pois[0].PriceLevel)
	assert.Equal(t, 2, *pois[0].PriceLevel)
	assert.Equal(t, 0.0, pois[0].DistanceKm)

	assert.Nil(t, pois[1].OpenNow)
	assert.InDelta(t, 1.11, pois[1].DistanceKm, 0.01)
}

func TestPlacesStatuses(t *testing.T) {
	status := "ZERO_RESULTS"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":%q,"error_message":"denied","results":[]}`, status)
	}))
	defer server.Close()

	src := NewPlaces(server.URL, "k", domain.CategoryHobbies, "", time.Second)
	pois, err := src.Search(context.Background(), Query{Location: here, RadiusKm: 3})
	require.NoError(t, err)
	assert.Empty(t, pois)

	status = "REQUEST_DENIED"
	_, err = src.Search(context.Background(), Query{Location: here, RadiusKm: 3})
	assert.Error(t, err)
}

func TestUpstreamErrorIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "invalid key")
	}))
	defer server.Close()

	_, err := NewOpenChargeMap(server.URL, "", time.Second).Search(context.Background(), Query{Location: here})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

type fakeSource struct {
	name  string
	pois  []domain.POI
	err   error
	calls int
	last  Query
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(ctx context.Context, q Query) ([]domain.POI, error) {
	f.calls++
	f.last = q
	return f.pois, f.err
}

func TestGuardedOpensAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{name: "flaky", err: boom}
	g := NewGuarded(src, GuardConfig{RequestsPerSecond: 1000, Burst: 10, FailureThreshold: 2, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := g.Search(context.Background(), Query{})
		require.ErrorIs(t, err, boom)
	}
	_, err := g.Search(context.Background(), Query{})
	require.Error(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestRouterRoutesByCategoryAndFuel(t *testing.T) {
	electric := &fakeSource{name: "e", pois: []domain.POI{{Name: "E1", Provider: "Ionity", DistanceKm: 1}}}
	fuel := &fakeSource{name: "f", pois: []domain.POI{{Name: "F1", Provider: "Shell", DistanceKm: 1}}}
	restaurants := &fakeSource{name: "r", pois: []domain.POI{
		{Name: "R1", Address: "a", DistanceKm: 1},
		{Name: "no address", DistanceKm: 1},
	}}
	r := NewRouter(Sources{Electric: electric, Fuel: fuel, Restaurants: restaurants}, 10, 20, nil)
	ctx := context.Background()

	pois, err := r.Retrieve(ctx, domain.CategoryPreferences{FuelType: "electric", MaxDistanceKm: 4}, domain.Intent{Category: domain.CategoryStations, Keywords: []string{"tesla"}}, here)
	require.NoError(t, err)
	assert.Equal(t, "E1", pois[0].Name)
	assert.Equal(t, 4.0, electric.last.RadiusKm)
	assert.Empty(t, electric.last.Keyword)

	pois, err = r.Retrieve(ctx, domain.CategoryPreferences{FuelType: "Petrol"}, domain.Intent{Category: domain.CategoryStations}, here)
	require.NoError(t, err)
	assert.Equal(t, "F1", pois[0].Name)
	assert.Equal(t, 10.0, fuel.last.RadiusKm)

	_, err = r.Retrieve(ctx, domain.CategoryPreferences{FuelType: "hydrogen"}, domain.Intent{Category: domain.CategoryStations}, here)
	assert.ErrorIs(t, err, ErrUnsupportedFuel)

	pois, err = r.Retrieve(ctx, domain.CategoryPreferences{Preferred: []string{"italian"}}, domain.Intent{Category: domain.CategoryRestaurants}, here)
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "italian", restaurants.last.Keyword)
	assert.Equal(t, domain.CategoryRestaurants, pois[0].Category)

	_, err = r.Retrieve(ctx, domain.CategoryPreferences{}, domain.Intent{Category: domain.CategoryHobbies}, here)
	assert.Error(t, err)
}

func TestAdmissionFilterWithPolicy(t *testing.T) {
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	static := NewStatic(map[domain.Category][]domain.POI{
		domain.CategoryRestaurants: {
			{Name: "Burger Palace", Address: "a", DistanceKm: 1},
			{Name: "Green Leaf", Address: "b", DistanceKm: 2},
		},
	})
	core, logs := observer.New(zap.DebugLevel)
	f := NewAdmissionFilter(static, engine, zap.New(core))

	prefs := domain.CategoryPreferences{Category: domain.CategoryRestaurants, Excluded: []string{"burger palace"}}
	pois, err := f.Retrieve(context.Background(), prefs, domain.Intent{}, here)
	require.NoError(t, err)
	assert.Equal(t, []string{"Green Leaf"}, names(pois))

	blocked := logs.FilterMessage("candidate blocked").All()
	require.Len(t, blocked, 1)
	assert.Equal(t, "Burger Palace", blocked[0].ContextMap()["name"])
}

func TestLoadStatic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pois.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"station":[{"name":"S1","provider":"Ionity","distance_km":1}]}`), 0o644))

	s, err := LoadStatic(path)
	require.NoError(t, err)
	pois, err := s.Retrieve(context.Background(), domain.CategoryPreferences{}, domain.Intent{Category: domain.CategoryStations}, here)
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, domain.CategoryStations, pois[0].Category)

	pois[0].Name = "changed"
	again, _ := s.Retrieve(context.Background(), domain.CategoryPreferences{}, domain.Intent{Category: domain.CategoryStations}, here)
	assert.Equal(t, "S1", again[0].Name)
}

func names(pois []domain.POI) []string {
	out := make([]string, len(pois))
	for i, p := range pois {
		out[i] = p.Name
	}
	return out
}
