package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/yourorg/simulation-api/internal/redisx"
	"github.com/yourorg/simulation-api/internal/sim"
)

// Client geocodes Japanese addresses through the GSI address-search API,
// with optional Redis caching of hits and misses. A miss is cached on a
// short cooldown so repeated batches do not hammer the upstream with
// addresses that will never resolve.
type Client struct {
	http        *retryablehttp.Client
	baseURL     string
	cache       *redisx.Client
	cacheTTL    time.Duration
	negativeTTL time.Duration
	log         *zap.Logger
}

func NewClient(cache *redisx.Client, log *zap.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 8 * time.Second
	rc.Logger = nil
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:        rc,
		baseURL:     "https://msearch.gsi.go.jp/address-search/AddressSearch",
		cache:       cache,
		cacheTTL:    30 * 24 * time.Hour,
		negativeTTL: 6 * time.Hour,
		log:         log,
	}
}

// SetBaseURL points the client at a different endpoint. Tests use this with
// an httptest server.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// Geocode resolves an address to coordinates. Returns (nil, nil) when the
// address does not resolve; that is a recoverable miss, not an error.
func (c *Client) Geocode(ctx context.Context, address string) (*sim.LatLng, error) {
	if address == "" {
		return nil, nil
	}
	cacheKey := "geo:" + address
	missKey := "geo:miss:" + address

	if c.cache != nil {
		if ok, _ := c.cache.Exists(ctx, missKey); ok {
			return nil, nil
		}
		if val, err := c.cache.Get(ctx, cacheKey); err == nil && val != "" {
			var loc sim.LatLng
			if err := json.Unmarshal([]byte(val), &loc); err == nil {
				return &loc, nil
			}
		}
	}

	loc, err := c.fetch(ctx, address)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if loc == nil {
			_ = c.cache.Set(ctx, missKey, "1", c.negativeTTL)
		} else if buf, err := json.Marshal(loc); err == nil {
			_ = c.cache.Set(ctx, cacheKey, string(buf), c.cacheTTL)
		}
	}
	return loc, nil
}

func (c *Client) fetch(ctx context.Context, address string) (*sim.LatLng, error) {
	u := c.baseURL + "?q=" + url.QueryEscape(address)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("geocode error %d", resp.StatusCode)
	}

	// GSI returns GeoJSON-ish features with [lng, lat] coordinates.
	var features []struct {
		Geometry struct {
			Coordinates [2]float64 `json:"coordinates"`
		} `json:"geometry"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&features); err != nil {
		return nil, fmt.Errorf("geocode decode: %w", err)
	}
	if len(features) == 0 {
		return nil, nil
	}
	return &sim.LatLng{
		Lat: features[0].Geometry.Coordinates[1],
		Lng: features[0].Geometry.Coordinates[0],
	}, nil
}
