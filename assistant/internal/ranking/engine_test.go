package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

type fakeLedger struct {
	records []domain.EvaluationRecord
	err     error
	calls   int
}

func (f *fakeLedger) ReadAll(ctx context.Context) ([]domain.EvaluationRecord, error) {
	f.calls++
	return f.records, f.err
}

func float64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int             { return &v }
func boolPtr(v bool) *bool          { return &v }

func stationPrefs() *domain.Preferences {
	return &domain.Preferences{
		Stations: domain.StationPreferences{
			FuelType:           "electric",
			PreferredProviders: []string{"Ionity", "Tesla"},
			MaxDetourKm:        5,
			Avoid:              []string{"Shell"},
			ChargingPowerMinKW: float64Ptr(50),
		},
		Restaurants: domain.RestaurantPreferences{
			AverageBudget:          "moderate",
			MaxDistanceFromRouteKm: 3,
			MinRating:              4.0,
		},
	}
}

func TestRankStationsScenario(t *testing.T) {
	engine := NewEngine(nil, nil)
	candidates := []domain.POI{
		{Name: "Generic A", Provider: "Allego", DistanceKm: 2, ChargingPowerKW: 50},
		{Name: "Ionity Highway", Provider: "Ionity", DistanceKm: 2, ChargingPowerKW: 22},
		{Name: "Far Tesla", Provider: "Tesla", DistanceKm: 9, ChargingPowerKW: 250},
		{Name: "Tesla Center", Provider: "Tesla", DistanceKm: 1, ChargingPowerKW: 22},
		{Name: "Generic B", Provider: "EnBW", DistanceKm: 1, ChargingPowerKW: 150},
	}

	ranked, err := engine.RankCategory(context.Background(), stationPrefs(), domain.CategoryStations, candidates, false)
	require.NoError(t, err)
	require.Len(t, ranked, 4)

	assert.Equal(t, []string{"Tesla Center", "Ionity Highway", "Generic B", "Generic A"}, domain.Names(ranked))
	assert.InDelta(t, 0.95, ranked[0].Score, 1e-9)
	assert.InDelta(t, 0.9, ranked[1].Score, 1e-9)
	assert.InDelta(t, 0.45, ranked[2].Score, 1e-9)
	assert.InDelta(t, 0.4, ranked[3].Score, 1e-9)
}

func TestRankDoesNotMutateCandidates(t *testing.T) {
	engine := NewEngine(nil, nil)
	candidates := []domain.POI{
		{Name: "B", Provider: "x", DistanceKm: 4},
		{Name: "A", Provider: "Tesla", DistanceKm: 1},
	}
	before := append([]domain.POI(nil), candidates...)

	_, err := engine.RankCategory(context.Background(), stationPrefs(), domain.CategoryStations, candidates, false)
	require.NoError(t, err)
	assert.Equal(t, before, candidates)
}

func TestRankStableOnTies(t *testing.T) {
	engine := NewEngine(nil, nil)
	candidates := []domain.POI{
		{Name: "first", Provider: "x", DistanceKm: 0},
		{Name: "second", Provider: "y", DistanceKm: 0},
		{Name: "third", Provider: "z", DistanceKm: 0},
	}
	ranked, err := engine.RankCategory(context.Background(), stationPrefs(), domain.CategoryStations, candidates, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, domain.Names(ranked))
}

func TestStationHardFilterDominates(t *testing.T) {
	s := &StationStrategy{HistoryBonus: 5}
	prefs, err := stationPrefs().For(domain.CategoryStations)
	require.NoError(t, err)
	prefs.History = []domain.HistoryEntry{{Name: "Tesla", Used: true}}

	fb := FeedbackIndex{"Far Tesla": {Average: 5, Count: 3}}
	item := domain.POI{Name: "Far Tesla", Provider: "Tesla", DistanceKm: 5.01, ChargingPowerKW: 350}
	assert.Equal(t, FilteredScore, s.Score(item, prefs, fb))
}

func TestStationAvoidAndPower(t *testing.T) {
	s := &StationStrategy{}
	prefs, err := stationPrefs().For(domain.CategoryStations)
	require.NoError(t, err)

	avoided := domain.POI{Name: "SHELL Recharge", Provider: "Shell", DistanceKm: 0, ChargingPowerKW: 50}
	assert.InDelta(t, 0.2, s.Score(avoided, prefs, nil), 1e-9)

	prefs.MinPowerKW = nil
	assert.InDelta(t, -0.3, s.Score(avoided, prefs, nil), 1e-9)
}

func TestVenueScoring(t *testing.T) {
	s := NewVenueStrategy(domain.CategoryRestaurants, 0)
	prefs, err := stationPrefs().For(domain.CategoryRestaurants)
	require.NoError(t, err)

	tests := []struct {
		name string
		item domain.POI
		want float64
	}{
		{"open and rated", domain.POI{Name: "a", Rating: 4.5, DistanceKm: 2, OpenNow: boolPtr(true)}, 0.5 + 0.7 - 0.1},
		{"closed", domain.POI{Name: "b", Rating: 4.5, DistanceKm: 0, OpenNow: boolPtr(false)}, 0.5 - 0.8},
		{"below min rating", domain.POI{Name: "c", Rating: 3.0, DistanceKm: 1}, -0.05},
		{"too far", domain.POI{Name: "d", Rating: 5, DistanceKm: 3.5, OpenNow: boolPtr(true)}, FilteredScore},
		{"over budget", domain.POI{Name: "e", Rating: 5, DistanceKm: 1, PriceLevel: intPtr(3)}, FilteredScore},
		{"within budget", domain.POI{Name: "f", Rating: 4, DistanceKm: 0, PriceLevel: intPtr(2)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Score(tt.item, prefs, nil), 1e-9)
		})
	}
}

func hobbyPrefs() *domain.Preferences {
	prefs := stationPrefs()
	prefs.Restaurants.AverageBudget = "very_expensive"
	prefs.Restaurants.MinRating = 0
	prefs.Hobbies = domain.HobbyPreferences{
		PreferredActivityTypes: []string{"climbing"},
		MaxDistanceFromRouteKm: 10,
		MaxBudgetPerActivity:   "cheap",
		MinRating:              4.2,
	}
	return prefs
}

func TestHobbyPreferencesView(t *testing.T) {
	view, err := hobbyPrefs().For(domain.CategoryHobbies)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryHobbies, view.Category)
	assert.Equal(t, "cheap", view.BudgetTier)
	assert.InDelta(t, 4.2, view.MinRating, 1e-9)
	assert.InDelta(t, 10, view.MaxDistanceKm, 1e-9)
}

func TestRankHobbies(t *testing.T) {
	engine := NewEngine(nil, nil)

	tests := []struct {
		name       string
		candidates []domain.POI
		want       []string
		scores     []float64
	}{
		{
			name: "budget tier from max budget per activity",
			candidates: []domain.POI{
				{Name: "Climbing Gym", Rating: 4.9, DistanceKm: 1, PriceLevel: intPtr(2)},
				{Name: "Park Run", Rating: 4.7, DistanceKm: 2, PriceLevel: intPtr(1)},
				{Name: "Free Museum", Rating: 4.2, DistanceKm: 0, PriceLevel: intPtr(0), OpenNow: boolPtr(true)},
			},
			want:   []string{"Free Museum", "Park Run"},
			scores: []float64{0.7, 0.4},
		},
		{
			name: "min rating from hobby section",
			candidates: []domain.POI{
				{Name: "Bowling", Rating: 3.2, DistanceKm: 1},
				{Name: "Karting", Rating: 4.2, DistanceKm: 0},
			},
			want:   []string{"Karting"},
			scores: []float64{0},
		},
		{
			name: "beyond max distance",
			candidates: []domain.POI{
				{Name: "Lake", Rating: 5, DistanceKm: 12, OpenNow: boolPtr(true)},
			},
		},
		{
			name: "no candidates",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked, err := engine.RankCategory(context.Background(), hobbyPrefs(), domain.CategoryHobbies, tt.candidates, false)
			require.NoError(t, err)
			require.Len(t, ranked, len(tt.want))
			if len(tt.want) == 0 {
				assert.Empty(t, ranked)
				return
			}
			assert.Equal(t, tt.want, domain.Names(ranked))
			for i, want := range tt.scores {
				assert.InDelta(t, want, ranked[i].Score, 1e-9)
			}
		})
	}
}

func TestRankUsesFeedbackWhenEnabled(t *testing.T) {
	ledger := &fakeLedger{records: []domain.EvaluationRecord{
		{Timestamp: time.Now(), Feedback: domain.Ratings{"Loved": 5, "Hated": 1}},
		{Timestamp: time.Now(), Feedback: domain.Ratings{"Loved": 5}},
	}}
	engine := NewEngine(NewRegistry(Options{}), ledger)
	candidates := []domain.POI{
		{Name: "Hated", Provider: "Tesla", DistanceKm: 0},
		{Name: "Loved", Provider: "x", DistanceKm: 0},
	}

	ranked, err := engine.RankCategory(context.Background(), stationPrefs(), domain.CategoryStations, candidates, true)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Loved", ranked[0].Name)
	assert.InDelta(t, 0.6, ranked[0].Score, 1e-9)
	assert.InDelta(t, 0.4, ranked[1].Score, 1e-9)

	_, err = engine.RankCategory(context.Background(), stationPrefs(), domain.CategoryStations, candidates, true)
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.calls)

	_, err = engine.RankCategory(context.Background(), stationPrefs(), domain.CategoryStations, candidates, false)
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.calls)
}

func TestRankLedgerErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	engine := NewEngine(nil, &fakeLedger{err: boom})
	_, err := engine.RankCategory(context.Background(), stationPrefs(), domain.CategoryStations, []domain.POI{{Name: "a"}}, true)
	require.ErrorIs(t, err, boom)
}

func TestRankUnknownCategory(t *testing.T) {
	engine := NewEngine(nil, nil)
	_, err := engine.RankCategory(context.Background(), stationPrefs(), domain.Category("parks"), nil, false)
	require.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestBuildFeedbackIndex(t *testing.T) {
	index := BuildFeedbackIndex([]domain.EvaluationRecord{
		{Feedback: domain.Ratings{"a": 4, "b": 2}},
		{Feedback: domain.Ratings{"a": 5}},
		{Feedback: domain.Ratings{"a": 3}},
	})
	assert.Equal(t, FeedbackStats{Average: 4, Count: 3}, index["a"])
	assert.Equal(t, FeedbackStats{Average: 2, Count: 1}, index["b"])
}

func TestBudgetTier(t *testing.T) {
	tier, ok := BudgetTier("Very Expensive")
	assert.True(t, ok)
	assert.Equal(t, 4, tier)

	_, ok = BudgetTier("whatever")
	assert.False(t, ok)
}

func TestHistoryBonus(t *testing.T) {
	s := &StationStrategy{HistoryBonus: 0.2}
	prefs := domain.CategoryPreferences{History: []domain.HistoryEntry{
		{Name: "ionity", Used: true},
		{Name: "Allego", Used: false},
	}}
	assert.InDelta(t, 0.2, s.Score(domain.POI{Name: "Stop", Provider: "Ionity"}, prefs, nil), 1e-9)
	assert.InDelta(t, 0.0, s.Score(domain.POI{Name: "Stop", Provider: "Allego"}, prefs, nil), 1e-9)
}
