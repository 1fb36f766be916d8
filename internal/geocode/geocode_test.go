package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/simulation-api/internal/redisx"
)

func testCache(t *testing.T) *redisx.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redisx.New(mr.Addr(), "", 0)
}

func gsiServer(t *testing.T, hits *atomic.Int64, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const sapporoFeature = `[{"geometry":{"type":"Point","coordinates":[141.354376,43.062096]},"type":"Feature","properties":{"title":"北海道札幌市中央区"}}]`

func TestGeocodeParsesCoordinates(t *testing.T) {
	var hits atomic.Int64
	srv := gsiServer(t, &hits, sapporoFeature)
	c := NewClient(nil, zap.NewNop())
	c.SetBaseURL(srv.URL)

	loc, err := c.Geocode(context.Background(), "札幌市中央区")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.InDelta(t, 43.062096, loc.Lat, 1e-9)
	assert.InDelta(t, 141.354376, loc.Lng, 1e-9)
}

func TestGeocodeCachesHit(t *testing.T) {
	var hits atomic.Int64
	srv := gsiServer(t, &hits, sapporoFeature)
	c := NewClient(testCache(t), zap.NewNop())
	c.SetBaseURL(srv.URL)

	for i := 0; i < 3; i++ {
		loc, err := c.Geocode(context.Background(), "札幌市中央区")
		require.NoError(t, err)
		require.NotNil(t, loc)
	}
	assert.Equal(t, int64(1), hits.Load(), "second and third lookups must come from cache")
}

func TestGeocodeCachesMissOnCooldown(t *testing.T) {
	var hits atomic.Int64
	srv := gsiServer(t, &hits, `[]`)
	c := NewClient(testCache(t), zap.NewNop())
	c.SetBaseURL(srv.URL)

	for i := 0; i < 3; i++ {
		loc, err := c.Geocode(context.Background(), "存在しない住所")
		require.NoError(t, err)
		assert.Nil(t, loc)
	}
	assert.Equal(t, int64(1), hits.Load())
}

func TestGeocodeEmptyAddressIsMiss(t *testing.T) {
	c := NewClient(nil, zap.NewNop())
	loc, err := c.Geocode(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, loc)
}
