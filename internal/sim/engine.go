package sim

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// FallbackReason explains why a simulation ran on the heuristic model
// instead of comparable market data. Recorded in the assumptions.
type FallbackReason string

const (
	FallbackNone          FallbackReason = ""
	FallbackNotConfigured FallbackReason = "provider_not_configured"
	FallbackNoAddress     FallbackReason = "no_address"
	FallbackGeocodeMiss   FallbackReason = "geocode_miss"
	FallbackGeocodeError  FallbackReason = "geocode_error"
	FallbackProviderError FallbackReason = "provider_error"
	FallbackNoComparables FallbackReason = "no_comparables"
)

// LatLng is a geocoded coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder resolves a free-form address to coordinates. A (nil, nil) return
// means the address did not resolve; that is a miss, not an error.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*LatLng, error)
}

// sourceOutcome is the tagged result of the data-source decision: either
// market stats or a reason the engine fell back to the heuristic model.
// Exactly one side is set.
type sourceOutcome struct {
	stats  *MarketStats
	reason FallbackReason
}

// Engine runs the full per-listing simulation: unit economics, data-source
// selection with graceful degradation, scenario generation and cost
// accounting. Aggregator and geocoder may be nil when no provider is
// configured; the engine then always uses the heuristic model.
type Engine struct {
	heuristic  *HeuristicModel
	aggregator *Aggregator
	geocoder   Geocoder
	log        *zap.Logger
}

func NewEngine(heuristic *HeuristicModel, aggregator *Aggregator, geocoder Geocoder, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{heuristic: heuristic, aggregator: aggregator, geocoder: geocoder, log: log}
}

// Simulate produces exactly three scenario results for one property. The
// only error it returns is context cancellation: every data-source failure
// degrades to the deterministic heuristic model instead.
func (e *Engine) Simulate(ctx context.Context, prop PropertyAttributes, costs CostParameters) ([]SimulationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eco := EstimateUnits(prop.BuildingArea, IsMultiUnit(prop.PropertyType), prop.Rooms)
	outcome := e.resolveSource(ctx, prop, eco)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]SimulationResult, 0, len(ScenarioOrder))
	for _, scenario := range ScenarioOrder {
		factor := ScenarioFactor(scenario)

		var months []MonthlyProjection
		assumptions := Assumptions{
			ScenarioFactor: factor,
			Bedrooms:       eco.Bedrooms,
			Guests:         eco.Guests,
			Units:          eco.Units,
			AreaPerUnit:    eco.AreaPerUnit,
			AvgStayNights:  e.heuristic.AvgStayNights(),
			CostParams:     costs,
		}

		if outcome.stats != nil {
			months = ProjectFromMarket(*outcome.stats, eco, factor, e.heuristic.AvgStayNights())
			assumptions.DataSource = SourceAirROI
			assumptions.Comparables = outcome.stats.Comparables
			assumptions.Samples = outcome.stats.Samples
			assumptions.MonthsWithData = outcome.stats.MonthsWithData()
			if e.aggregator != nil {
				assumptions.RadiusKm = e.aggregator.cfg.RadiusKm
			}
		} else {
			months = e.heuristic.Project(prop.Locality, eco, factor)
			assumptions.DataSource = SourceHeuristics
			assumptions.FallbackReason = string(outcome.reason)
			key, market := e.heuristic.MarketFor(prop.Locality)
			assumptions.MarketKey = key
			assumptions.BaseADR = market.BaseADR
			assumptions.BaseOccupancy = market.BaseOccupancy
		}

		annual := AnnualRevenue(months)
		breakdown := ComputeCosts(annual, TotalReservations(months), costs)
		assumptions.Costs = breakdown

		results = append(results, SimulationResult{
			Scenario:      scenario,
			Months:        months,
			AnnualRevenue: annual,
			AnnualProfit:  annual - breakdown.Total,
			Assumptions:   assumptions,
		})
	}
	return results, nil
}

// resolveSource tries the comparable-market path and degrades to the
// heuristic model on any failure. Each failure is a first-class branch, not
// an exception: the returned outcome carries either stats or a reason.
func (e *Engine) resolveSource(ctx context.Context, prop PropertyAttributes, eco UnitEconomics) sourceOutcome {
	if e.aggregator == nil {
		return sourceOutcome{reason: FallbackNotConfigured}
	}
	if prop.Address == "" {
		return sourceOutcome{reason: FallbackNoAddress}
	}

	lat, lng, reason := e.resolveCoords(ctx, prop)
	if reason != FallbackNone {
		return sourceOutcome{reason: reason}
	}

	stats, err := e.aggregator.Aggregate(ctx, lat, lng, eco)
	switch {
	case err == nil && stats.MonthsWithData() > 0:
		return sourceOutcome{stats: &stats}
	case err == nil:
		// Comparables existed but every metrics fetch failed or came back
		// empty. No signal, same as no comparables.
		e.log.Warn("comparables yielded no monthly samples, using heuristics",
			zap.String("listing_id", prop.ListingID))
		return sourceOutcome{reason: FallbackNoComparables}
	case errors.Is(err, ErrNoComparables):
		e.log.Warn("no comparables found, using heuristics",
			zap.String("listing_id", prop.ListingID))
		return sourceOutcome{reason: FallbackNoComparables}
	default:
		e.log.Warn("comparable aggregation failed, using heuristics",
			zap.String("listing_id", prop.ListingID), zap.Error(err))
		return sourceOutcome{reason: FallbackProviderError}
	}
}

func (e *Engine) resolveCoords(ctx context.Context, prop PropertyAttributes) (float64, float64, FallbackReason) {
	if prop.Lat != nil && prop.Lng != nil {
		return *prop.Lat, *prop.Lng, FallbackNone
	}
	if e.geocoder == nil {
		return 0, 0, FallbackGeocodeMiss
	}
	loc, err := e.geocoder.Geocode(ctx, prop.Address)
	if err != nil {
		e.log.Warn("geocoding failed, using heuristics",
			zap.String("listing_id", prop.ListingID), zap.Error(err))
		return 0, 0, FallbackGeocodeError
	}
	if loc == nil {
		return 0, 0, FallbackGeocodeMiss
	}
	return loc.Lat, loc.Lng, FallbackNone
}
