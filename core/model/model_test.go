package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncidentContextLookup(t *testing.T) {
	ctx := &IncidentContext{
		ID:           "INC-001",
		DisasterType: "earthquake",
		Magnitude:    6.8,
		Casualties:   Casualties{Deaths: 2, Severe: 3, Injured: 10, Missing: 5},
		HasTrapped:   true,
		Location:     Location{Lat: 34.05, Lon: -118.25, Region: "north"},
		Damage:       map[string]float64{"buildingCollapse": 0.7},
		Environment:  map[string]bool{"aftershocks": true},
		Extra: map[string]any{
			"weather": map[string]any{"windSpeed": 22.5},
		},
	}

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"disasterType", "earthquake", true},
		{"disaster_type", "earthquake", true},
		{"magnitude", 6.8, true},
		{"hasTrapped", true, true},
		{"casualties.deaths", 2, true},
		{"casualties.total", 20, true},
		{"casualties.unknown", nil, false},
		{"location.lat", 34.05, true},
		{"location.region", "north", true},
		{"damage.buildingCollapse", 0.7, true},
		{"damage.bridges", nil, false},
		{"environment.aftershocks", true, true},
		{"weather.windSpeed", 22.5, true},
		{"weather.windSpeed.gusts", nil, false},
		{"nonexistent", nil, false},
	}
	for _, tc := range tests {
		got, ok := ctx.Lookup(tc.path)
		require.Equal(t, tc.ok, ok, tc.path)
		assert.Equal(t, tc.want, got, tc.path)
	}
}

func TestObjectiveVectorRound(t *testing.T) {
	got := ObjectiveVector{ResponseTime: 17.77, Coverage: 0.66666, Cost: 499.5, Risk: 0.12345}.Round()
	assert.Equal(t, ObjectiveVector{ResponseTime: 17.8, Coverage: 0.667, Cost: 500, Risk: 0.123}, got)
}

func TestObjectiveVectorDominates(t *testing.T) {
	better := ObjectiveVector{ResponseTime: 10, Coverage: 0.9, Cost: 100, Risk: 0.1}
	worse := ObjectiveVector{ResponseTime: 20, Coverage: 0.8, Cost: 200, Risk: 0.2}
	mixed := ObjectiveVector{ResponseTime: 5, Coverage: 0.5, Cost: 300, Risk: 0.4}

	assert.True(t, better.Dominates(worse))
	assert.False(t, worse.Dominates(better))
	assert.False(t, better.Dominates(better))
	assert.False(t, better.Dominates(mixed))
	assert.False(t, mixed.Dominates(better))
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityCritical, ParsePriority("CRITICAL"))
	assert.Equal(t, PriorityHigh, ParsePriority("high"))
	assert.Equal(t, PriorityLow, ParsePriority("low"))
	assert.Equal(t, PriorityMedium, ParsePriority("medium"))
	assert.Equal(t, PriorityMedium, ParsePriority("whatever"))
}

func TestPriorityOrdering(t *testing.T) {
	assert.Greater(t, PriorityCritical.Weight(), PriorityHigh.Weight())
	assert.Greater(t, PriorityHigh.Weight(), PriorityMedium.Weight())
	assert.Greater(t, PriorityMedium.Weight(), PriorityLow.Weight())
}

func TestResourceDispatchable(t *testing.T) {
	assert.True(t, Resource{Status: StatusAvailable}.Dispatchable())
	assert.True(t, Resource{Status: StatusStandby}.Dispatchable())
	assert.False(t, Resource{Status: StatusDeployed}.Dispatchable())
	assert.False(t, Resource{Status: StatusUnavailable}.Dispatchable())
}

func TestResourceHasCapability(t *testing.T) {
	r := Resource{Capabilities: []string{"SEARCH_LIFE_DETECT", "HEAVY_RESCUE"}}
	assert.True(t, r.HasCapability("HEAVY_RESCUE"))
	assert.False(t, r.HasCapability("MEDICAL_TRIAGE"))
}
