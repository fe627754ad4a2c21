package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

const samplePreferences = `{
  "stations": {
    "fuel_type": "electric",
    "preferred_providers": ["Tesla", "Ionity"],
    "max_detour_km": 10,
    "avoid": ["highway"],
    "charging_power_min_kw": 50,
    "history": []
  },
  "restaurants": {
    "preferred_cuisine_types": ["italian"],
    "average_budget": "moderate",
    "max_distance_from_route_km": 5,
    "blacklisted_restaurants": ["Bad Burger"],
    "min_rating": 4,
    "history": []
  },
  "hobbies": {
    "preferred_activity_types": ["museum"],
    "max_distance_from_route_km": 20,
    "max_budget_per_activity": "cheap",
    "min_rating": 3.5,
    "history": []
  }
}`

func TestPreferencesFileLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	store := NewPreferencesFile(path)
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrPreferencesNotFound)
	assert.False(t, store.Exists())
	assert.True(t, store.IsEmpty())

	require.NoError(t, os.WriteFile(path, []byte(samplePreferences), 0o644))
	prefs, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "electric", prefs.Stations.FuelType)
	require.NotNil(t, prefs.Stations.ChargingPowerMinKW)
	assert.Equal(t, 50.0, *prefs.Stations.ChargingPowerMinKW)
	assert.Equal(t, 4.0, prefs.Restaurants.MinRating)
	assert.False(t, store.IsEmpty())
}

func TestPreferencesFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewPreferencesFile(path).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPreferencesNotFound)
}

func TestPreferencesFileEmptyObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	require.NoError(t, os.WriteFile(path, []byte(" {} \n"), 0o644))
	store := NewPreferencesFile(path)
	assert.True(t, store.Exists())
	assert.True(t, store.IsEmpty())
}

func TestPreferencesFileAppendHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	require.NoError(t, os.WriteFile(path, []byte(samplePreferences), 0o644))
	store := NewPreferencesFile(path)
	ctx := context.Background()

	entry := domain.HistoryEntry{Location: "52.07,-0.63", Name: "Tesla Center", Used: true}
	require.NoError(t, store.AppendHistory(ctx, domain.CategoryStations, entry))
	require.NoError(t, store.AppendHistory(ctx, domain.CategoryHobbies, domain.HistoryEntry{Name: "Museum", Used: true}))

	prefs, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, prefs.Stations.History, 1)
	assert.Equal(t, "Tesla Center", prefs.Stations.History[0].Name)
	assert.False(t, prefs.Stations.History[0].Timestamp.IsZero())
	require.Len(t, prefs.Hobbies.History, 1)
	assert.Empty(t, prefs.Restaurants.History)
	assert.Equal(t, []string{"Bad Burger"}, prefs.Restaurants.BlacklistedRestaurants)

	err = store.AppendHistory(ctx, domain.Category("boats"), entry)
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	assert.Empty(t, matches)
}

func TestPreferencesFileAppendHistoryMissing(t *testing.T) {
	store := NewPreferencesFile(filepath.Join(t.TempDir(), "missing.json"))
	err := store.AppendHistory(context.Background(), domain.CategoryStations, domain.HistoryEntry{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrPreferencesNotFound)
}

func TestPreferencesFileSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preferences.json")
	store := NewPreferencesFile(path)
	ctx := context.Background()

	prefs := &domain.Preferences{}
	prefs.Stations.FuelType = "diesel"
	require.NoError(t, store.Save(ctx, prefs))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "diesel", got.Stations.FuelType)
}

func TestLedgerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	ledger := NewLedgerFile(path)
	ctx := context.Background()

	records, err := ledger.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, ledger.Append(ctx, domain.EvaluationRecord{
		Recommended: []string{"A", "B"},
		Feedback:    domain.Ratings{"A": 5, "B": 2},
		Relevant:    []string{"A"},
		Precision:   0.5,
		Recall:      1,
	}))
	require.NoError(t, ledger.Append(ctx, domain.EvaluationRecord{
		Recommended: []string{"C"},
		Feedback:    domain.Ratings{"C": 4},
	}))

	records, err = ledger.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 5, records[0].Feedback["A"])
	assert.Equal(t, 0.5, records[0].Precision)
}

func TestLedgerFileSingleRatingShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	legacy := `[{"timestamp":"2024-05-01T10:00:00Z","recommended":["Cafe"],"feedback":{"point_of_interest":"Cafe","rating":4},"relevant":["Cafe"],"precision":1,"recall":1}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	records, err := NewLedgerFile(path).ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.Ratings{"Cafe": 4}, records[0].Feedback)
}

func TestLedgerFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"oops":`), 0o644))

	ledger := NewLedgerFile(path)
	_, err := ledger.ReadAll(context.Background())
	assert.Error(t, err)
	assert.Error(t, ledger.Append(context.Background(), domain.EvaluationRecord{}))
}
