package airroi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSearchPayloadWrapped(t *testing.T) {
	raw := []byte(`{"comparables":[{"id":"c1","relevance":0.98},{"id":"c2","relevance":0.91}]}`)
	comps, err := MapSearchPayload(raw)
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.Equal(t, "c1", comps[0].ID)
}

func TestMapSearchPayloadBareArray(t *testing.T) {
	raw := []byte(`[{"id":"c1"},{"id":"c2"}]`)
	comps, err := MapSearchPayload(raw)
	require.NoError(t, err)
	assert.Len(t, comps, 2)
}

func TestMapSearchPayloadEmptyObject(t *testing.T) {
	comps, err := MapSearchPayload([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, comps)
}

func TestMapMetricsPayloadNumericMonths(t *testing.T) {
	raw := []byte(`{"months":[{"month":1,"revenue":250000,"occupancy":0.62,"adr":14000},{"month":12,"revenue":310000,"occupancy":0.81,"adr":18000}]}`)
	samples, err := MapMetricsPayload(raw)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 1, samples[0].Month)
	assert.Equal(t, 250000.0, samples[0].Revenue)
	// Native convention passes through untouched; the aggregator normalizes.
	assert.Equal(t, 0.62, samples[0].Occupancy)
	assert.Equal(t, 12, samples[1].Month)
}

func TestMapMetricsPayloadCalendarStringMonths(t *testing.T) {
	raw := []byte(`{"months":[{"month":"2025-07","revenue":100,"occupancy":55,"adr":9000},{"month":"2025-11-01","revenue":90,"occupancy":40,"adr":8000}]}`)
	samples, err := MapMetricsPayload(raw)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 7, samples[0].Month)
	assert.Equal(t, 11, samples[1].Month)
}

func TestMapMetricsPayloadDropsUnresolvableMonths(t *testing.T) {
	raw := []byte(`{"months":[{"month":0,"revenue":1},{"month":13,"revenue":2},{"month":3,"revenue":3}]}`)
	samples, err := MapMetricsPayload(raw)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 3, samples[0].Month)
}

func TestMapMetricsPayloadBareArray(t *testing.T) {
	raw := []byte(`[{"month":5,"revenue":70,"occupancy":0.5,"adr":100}]`)
	samples, err := MapMetricsPayload(raw)
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}
