package sim

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNoComparables signals that the provider returned zero results for the
// search area. Recoverable: the caller falls back to the heuristic model.
var ErrNoComparables = eris.New("no comparables found")

// ComparableQuery describes a comparable search around a point.
type ComparableQuery struct {
	Lat      float64
	Lng      float64
	Bedrooms int
	Guests   int
	RadiusKm float64
	Limit    int
}

// MarketProvider is the external comparable-data provider contract.
// SearchComparables returns provider-ranked comparable IDs, most relevant
// first. MonthlyMetrics returns one sample per available month of trailing
// history, occupancy in the provider's native convention.
type MarketProvider interface {
	SearchComparables(ctx context.Context, q ComparableQuery) ([]string, error)
	MonthlyMetrics(ctx context.Context, comparableID string, months int) ([]ComparableSample, error)
}

// AggregatorConfig bounds the fetch fan-out.
type AggregatorConfig struct {
	RadiusKm       float64 // search radius, default 10
	SearchLimit    int     // comparables requested, default 30
	TopComparables int     // comparables actually fetched, default 20
	TrailingMonths int     // months of history per comparable, default 12
	Workers        int     // concurrent metrics fetches, default 3
	// RequestsPerSec throttles metrics fetches across all workers. The
	// provider tolerates roughly one request per 200ms, hence 5/s.
	RequestsPerSec float64
}

func (c AggregatorConfig) withDefaults() AggregatorConfig {
	if c.RadiusKm <= 0 {
		c.RadiusKm = 10
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 30
	}
	if c.TopComparables <= 0 {
		c.TopComparables = 20
	}
	if c.TrailingMonths <= 0 {
		c.TrailingMonths = 12
	}
	if c.Workers <= 0 {
		c.Workers = 3
	}
	if c.RequestsPerSec <= 0 {
		c.RequestsPerSec = 5
	}
	return c
}

// MarketStats is the aggregation output: per-calendar-month statistics plus
// provenance counters for the assumptions record.
type MarketStats struct {
	Months      [12]AggregatedMonthly
	Comparables int
	Samples     int
}

// MonthsWithData counts month buckets that received at least one sample.
func (s MarketStats) MonthsWithData() int {
	n := 0
	for _, m := range s.Months {
		if m.SampleSize > 0 {
			n++
		}
	}
	return n
}

// Aggregator fetches comparable listings near a point and folds their
// monthly metrics into per-month statistics. Metrics fetches run on a small
// worker pool behind a shared token bucket so the provider is never hit
// faster than its documented limit.
type Aggregator struct {
	provider MarketProvider
	limiter  *rate.Limiter
	cfg      AggregatorConfig
	log      *zap.Logger
}

func NewAggregator(provider MarketProvider, cfg AggregatorConfig, log *zap.Logger) *Aggregator {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		cfg:      cfg,
		log:      log,
	}
}

// Aggregate searches for comparables and buckets every fetched monthly data
// point by calendar month across all comparables and all months of history.
// A single comparable's fetch failing is logged and skipped; zero search
// results return ErrNoComparables.
func (a *Aggregator) Aggregate(ctx context.Context, lat, lng float64, eco UnitEconomics) (MarketStats, error) {
	q := ComparableQuery{
		Lat:      lat,
		Lng:      lng,
		Bedrooms: eco.Bedrooms,
		Guests:   eco.Guests,
		RadiusKm: a.cfg.RadiusKm,
		Limit:    a.cfg.SearchLimit,
	}
	ids, err := a.provider.SearchComparables(ctx, q)
	if err != nil {
		return MarketStats{}, eris.Wrap(err, "comparable search")
	}
	if len(ids) == 0 {
		return MarketStats{}, ErrNoComparables
	}
	if len(ids) > a.cfg.TopComparables {
		ids = ids[:a.cfg.TopComparables]
	}

	samples := a.fetchAll(ctx, ids)
	if err := ctx.Err(); err != nil {
		return MarketStats{}, err
	}

	stats := MarketStats{Comparables: len(ids), Samples: len(samples)}
	buckets := [12][]ComparableSample{}
	for _, s := range samples {
		if s.Month < 1 || s.Month > 12 {
			continue
		}
		buckets[s.Month-1] = append(buckets[s.Month-1], s)
	}
	for i := range buckets {
		stats.Months[i] = aggregateBucket(i+1, buckets[i])
	}
	return stats, nil
}

// fetchAll pulls trailing metrics for every comparable through the worker
// pool. Order of the returned samples is not significant: everything is
// re-bucketed by calendar month afterwards.
func (a *Aggregator) fetchAll(ctx context.Context, ids []string) []ComparableSample {
	jobs := make(chan string)
	var mu sync.Mutex
	var out []ComparableSample
	var wg sync.WaitGroup

	for i := 0; i < a.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := a.limiter.Wait(ctx); err != nil {
					return
				}
				metrics, err := a.provider.MonthlyMetrics(ctx, id, a.cfg.TrailingMonths)
				if err != nil {
					a.log.Warn("comparable metrics fetch failed, skipping",
						zap.String("comparable_id", id), zap.Error(err))
					continue
				}
				mu.Lock()
				out = append(out, metrics...)
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return out
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()
	return out
}

// aggregateBucket folds one calendar month's samples. Occupancy values are
// normalized to a 0..100 percentage before averaging regardless of the
// provider's native convention. An empty bucket produces a zero record with
// SampleSize 0, which downstream must read as "no signal".
func aggregateBucket(month int, samples []ComparableSample) AggregatedMonthly {
	agg := AggregatedMonthly{Month: month, SampleSize: len(samples)}
	if len(samples) == 0 {
		return agg
	}

	revenues := make([]float64, 0, len(samples))
	var revSum, occSum, adrSum float64
	for _, s := range samples {
		revenues = append(revenues, s.Revenue)
		revSum += s.Revenue
		occSum += normalizeOccupancy(s.Occupancy)
		adrSum += s.ADR
	}
	n := float64(len(samples))
	agg.AvgRevenue = revSum / n
	agg.MedianRevenue = median(revenues)
	agg.AvgOccupancy = clampPct(occSum / n)
	agg.AvgADR = adrSum / n
	return agg
}

// normalizeOccupancy maps either provider convention (0..1 or 0..100) to a
// 0..100 percentage.
func normalizeOccupancy(v float64) float64 {
	if v <= 1.0 {
		v *= 100
	}
	return clampPct(v)
}

// median is the classic median: the middle value of the sorted samples, or
// the average of the two middle values when the count is even.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
