package sim

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGeocoder struct {
	loc *LatLng
	err error
}

func (f *fakeGeocoder) Geocode(_ context.Context, _ string) (*LatLng, error) {
	return f.loc, f.err
}

func heuristicOnlyEngine() *Engine {
	return NewEngine(NewHeuristicModel(DefaultHeuristicConfig()), nil, nil, zap.NewNop())
}

func marketEngine(p MarketProvider, g Geocoder) *Engine {
	agg := NewAggregator(p, AggregatorConfig{RequestsPerSec: 10000, Workers: 2}, zap.NewNop())
	return NewEngine(NewHeuristicModel(DefaultHeuristicConfig()), agg, g, zap.NewNop())
}

func assertResultShape(t *testing.T, results []SimulationResult) {
	t.Helper()
	require.Len(t, results, 3)
	assert.Equal(t, ScenarioNegative, results[0].Scenario)
	assert.Equal(t, ScenarioNeutral, results[1].Scenario)
	assert.Equal(t, ScenarioPositive, results[2].Scenario)
	for _, res := range results {
		require.Len(t, res.Months, 12)
		var sum int64
		for i, m := range res.Months {
			assert.Equal(t, i+1, m.Month)
			sum += m.Revenue
		}
		assert.Equal(t, sum, res.AnnualRevenue)
		assert.Equal(t, res.AnnualRevenue-res.Assumptions.Costs.Total, res.AnnualProfit)
	}
}

func TestSimulateHeuristicOnly(t *testing.T) {
	e := heuristicOnlyEngine()
	prop := PropertyAttributes{ListingID: "l1", Locality: "札幌市", BuildingArea: 80}
	results, err := e.Simulate(context.Background(), prop, DefaultCostParameters())
	require.NoError(t, err)
	assertResultShape(t, results)
	for _, res := range results {
		assert.Equal(t, "heuristics", res.Assumptions.DataSource)
	}
	assert.Equal(t, string(FallbackNotConfigured), results[0].Assumptions.FallbackReason)
	assert.Equal(t, "札幌市", results[0].Assumptions.MarketKey)
}

func TestSimulateHeuristicDeterminism(t *testing.T) {
	// Two runs with identical inputs must be byte-identical.
	e := heuristicOnlyEngine()
	prop := PropertyAttributes{ListingID: "l1", Locality: "函館市", PropertyType: "アパート", BuildingArea: 200, Rooms: 4}
	costs := DefaultCostParameters()
	a, err := e.Simulate(context.Background(), prop, costs)
	require.NoError(t, err)
	b, err := e.Simulate(context.Background(), prop, costs)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
}

func TestSimulateUsesMarketData(t *testing.T) {
	p := &fakeProvider{
		ids: []string{"c1"},
		metrics: map[string][]ComparableSample{
			"c1": {
				{Month: 1, Revenue: 250000, Occupancy: 0.6, ADR: 14000},
				{Month: 2, Revenue: 240000, Occupancy: 0.6, ADR: 14000},
			},
		},
	}
	g := &fakeGeocoder{loc: &LatLng{Lat: 43.06, Lng: 141.35}}
	e := marketEngine(p, g)
	prop := PropertyAttributes{ListingID: "l1", Address: "札幌市中央区南3条西1丁目", Locality: "札幌市", BuildingArea: 80}
	results, err := e.Simulate(context.Background(), prop, DefaultCostParameters())
	require.NoError(t, err)
	assertResultShape(t, results)
	for _, res := range results {
		assert.Equal(t, "airroi", res.Assumptions.DataSource)
		assert.Empty(t, res.Assumptions.FallbackReason)
	}
	assert.Equal(t, 1, results[1].Assumptions.Comparables)
	assert.Equal(t, 2, results[1].Assumptions.MonthsWithData)
	assert.Equal(t, 10.0, results[1].Assumptions.RadiusKm)
}

func TestSimulateSkipsProviderWithCoordinatesPresent(t *testing.T) {
	// Stored coordinates bypass geocoding entirely.
	p := &fakeProvider{
		ids:     []string{"c1"},
		metrics: map[string][]ComparableSample{"c1": {{Month: 1, Revenue: 1000, Occupancy: 50, ADR: 100}}},
	}
	e := marketEngine(p, &fakeGeocoder{err: errors.New("should not be called")})
	lat, lng := 43.0, 141.0
	prop := PropertyAttributes{ListingID: "l1", Address: "札幌市北区北10条西4丁目", Lat: &lat, Lng: &lng}
	results, err := e.Simulate(context.Background(), prop, DefaultCostParameters())
	require.NoError(t, err)
	assert.Equal(t, "airroi", results[0].Assumptions.DataSource)
}

func TestSimulateFallsBackOnMissingAddress(t *testing.T) {
	e := marketEngine(&fakeProvider{ids: []string{"c1"}}, &fakeGeocoder{})
	results, err := e.Simulate(context.Background(), PropertyAttributes{ListingID: "l1", Locality: "札幌市"}, DefaultCostParameters())
	require.NoError(t, err)
	assert.Equal(t, "heuristics", results[0].Assumptions.DataSource)
	assert.Equal(t, string(FallbackNoAddress), results[0].Assumptions.FallbackReason)
}

func TestSimulateFallsBackOnGeocodeMiss(t *testing.T) {
	e := marketEngine(&fakeProvider{ids: []string{"c1"}}, &fakeGeocoder{})
	prop := PropertyAttributes{ListingID: "l1", Address: "存在しない住所"}
	results, err := e.Simulate(context.Background(), prop, DefaultCostParameters())
	require.NoError(t, err)
	assert.Equal(t, string(FallbackGeocodeMiss), results[0].Assumptions.FallbackReason)
}

func TestSimulateFallsBackOnGeocodeError(t *testing.T) {
	e := marketEngine(&fakeProvider{ids: []string{"c1"}}, &fakeGeocoder{err: errors.New("upstream 500")})
	prop := PropertyAttributes{ListingID: "l1", Address: "札幌市"}
	results, err := e.Simulate(context.Background(), prop, DefaultCostParameters())
	require.NoError(t, err)
	assert.Equal(t, string(FallbackGeocodeError), results[0].Assumptions.FallbackReason)
}

func TestSimulateFallsBackOnZeroComparables(t *testing.T) {
	e := marketEngine(&fakeProvider{}, &fakeGeocoder{loc: &LatLng{Lat: 1, Lng: 2}})
	prop := PropertyAttributes{ListingID: "l1", Address: "札幌市"}
	results, err := e.Simulate(context.Background(), prop, DefaultCostParameters())
	require.NoError(t, err)
	assert.Equal(t, "heuristics", results[0].Assumptions.DataSource)
	assert.Equal(t, string(FallbackNoComparables), results[0].Assumptions.FallbackReason)
}

func TestSimulateFallsBackOnProviderError(t *testing.T) {
	e := marketEngine(&fakeProvider{searchErr: errors.New("429")}, &fakeGeocoder{loc: &LatLng{Lat: 1, Lng: 2}})
	prop := PropertyAttributes{ListingID: "l1", Address: "札幌市"}
	results, err := e.Simulate(context.Background(), prop, DefaultCostParameters())
	require.NoError(t, err)
	assert.Equal(t, string(FallbackProviderError), results[0].Assumptions.FallbackReason)
}

func TestSimulateFallsBackWhenAllMetricsFail(t *testing.T) {
	p := &fakeProvider{ids: []string{"c1"}, failIDs: map[string]bool{"c1": true}}
	e := marketEngine(p, &fakeGeocoder{loc: &LatLng{Lat: 1, Lng: 2}})
	prop := PropertyAttributes{ListingID: "l1", Address: "札幌市"}
	results, err := e.Simulate(context.Background(), prop, DefaultCostParameters())
	require.NoError(t, err)
	assert.Equal(t, string(FallbackNoComparables), results[0].Assumptions.FallbackReason)
}

func TestSimulateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := heuristicOnlyEngine().Simulate(ctx, PropertyAttributes{ListingID: "l1"}, DefaultCostParameters())
	assert.ErrorIs(t, err, context.Canceled)
}
