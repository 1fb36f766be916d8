package airroi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/simulation-api/internal/sim"
)

// Client talks to the AirROI comparable-data API. It implements
// sim.MarketProvider; the engine never sees HTTP.
type Client struct {
	key     string
	baseURL string
	http    *retryablehttp.Client
}

func NewClient(apiKey string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		key:     apiKey,
		baseURL: "https://api.airroi.com",
		http:    rc,
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// SearchComparables returns provider-ranked comparable listing IDs around a
// coordinate, most relevant first.
func (c *Client) SearchComparables(ctx context.Context, q sim.ComparableQuery) ([]string, error) {
	v := url.Values{}
	v.Set("lat", fmt.Sprintf("%.6f", q.Lat))
	v.Set("lng", fmt.Sprintf("%.6f", q.Lng))
	v.Set("bedrooms", fmt.Sprintf("%d", q.Bedrooms))
	v.Set("guests", fmt.Sprintf("%d", q.Guests))
	v.Set("radius_km", fmt.Sprintf("%.1f", q.RadiusKm))
	if q.Limit > 0 { v.Set("limit", fmt.Sprintf("%d", q.Limit)) }

	u := fmt.Sprintf("%s/v1/comparables/search?%s", c.baseURL, v.Encode())
	raw, err := c.get(ctx, u)
	if err != nil { return nil, err }

	comps, err := MapSearchPayload(raw)
	if err != nil { return nil, err }
	ids := make([]string, 0, len(comps))
	for _, comp := range comps {
		if comp.ID != "" { ids = append(ids, comp.ID) }
	}
	return ids, nil
}

// MonthlyMetrics fetches one comparable's trailing monthly metrics.
func (c *Client) MonthlyMetrics(ctx context.Context, comparableID string, months int) ([]sim.ComparableSample, error) {
	if months <= 0 { months = 12 }
	u := fmt.Sprintf("%s/v1/listings/%s/metrics/monthly?months=%d",
		c.baseURL, url.PathEscape(comparableID), months)
	raw, err := c.get(ctx, u)
	if err != nil { return nil, err }
	return MapMetricsPayload(raw)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil { return nil, err }
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-api-key", c.key)

	resp, err := c.http.Do(req)
	if err != nil { return nil, err }
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("airroi error %d: %v", resp.StatusCode, body)
	}
	return ioReadAllLimit(resp.Body, 4<<20) // 4MB guard
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	b, err := io.ReadAll(lr)
	if err != nil { return nil, err }
	if int64(len(b)) > limit { return nil, errors.New("payload too large") }
	return b, nil
}
