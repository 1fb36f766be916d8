package simjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/simulation-api/internal/events"
	"github.com/yourorg/simulation-api/internal/sim"
	"github.com/yourorg/simulation-api/internal/store"
)

// Persistence is the slice of the store the job needs. Narrow on purpose so
// tests can run the batch without a database.
type Persistence interface {
	LoadCostParameters(ctx context.Context) (sim.CostParameters, error)
	ListCandidates(ctx context.Context, limit int) ([]store.Listing, error)
	HasSimulations(ctx context.Context, listingID string) (bool, error)
	InsertSimulationSet(ctx context.Context, listingID string, results []sim.SimulationResult) error
}

// Simulator produces the three scenario results for one property.
type Simulator interface {
	Simulate(ctx context.Context, prop sim.PropertyAttributes, costs sim.CostParameters) ([]sim.SimulationResult, error)
}

type Config struct {
	// BatchSize bounds how many listings one invocation processes.
	BatchSize int
	// Interval enables recurring mode in Run; <= 0 means run once.
	Interval time.Duration
}

// ListingError records one listing's failure without aborting the batch.
type ListingError struct {
	ListingID string `json:"listing_id"`
	Error     string `json:"error"`
}

// Summary is what a batch invocation always returns, even when it was cut
// short by a batch-fatal error.
type Summary struct {
	Processed int            `json:"processed"`
	Simulated int            `json:"simulated"`
	Skipped   int            `json:"skipped"`
	Errors    []ListingError `json:"errors"`
}

// Job runs the revenue simulation batch: load candidates, simulate each one
// sequentially, persist the scenario set. Listings are deliberately not
// fanned out in parallel; the external provider's rate limits are shared
// state and the aggregator already throttles within one listing.
type Job struct {
	Store  Persistence
	Engine Simulator
	Pub    events.Publisher
	Logger *zap.Logger
	Config Config
}

func (j *Job) validate() error {
	if j == nil {
		return errors.New("nil simulation job")
	}
	if j.Store == nil {
		return errors.New("simulation job missing store")
	}
	if j.Engine == nil {
		return errors.New("simulation job missing engine")
	}
	if j.Logger == nil {
		j.Logger = zap.NewNop()
	}
	if j.Config.BatchSize <= 0 {
		j.Config.BatchSize = 100
	}
	return nil
}

// Run executes RunOnce on a ticker until the context is cancelled. With no
// interval configured it runs a single batch and returns.
func (j *Job) Run(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	if j.Config.Interval <= 0 {
		_, err := j.RunOnce(ctx)
		return err
	}
	ticker := time.NewTicker(j.Config.Interval)
	defer ticker.Stop()
	j.Logger.Info("simulation job starting",
		zap.Duration("interval", j.Config.Interval), zap.Int("batch_size", j.Config.BatchSize))
	if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		j.Logger.Error("simulation job initial run error", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			j.Logger.Info("simulation job stopping", zap.Error(ctx.Err()))
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.Logger.Error("simulation job iteration error", zap.Error(err))
			}
		}
	}
}

// RunOnce processes one batch. Failing to load cost parameters or the
// candidate set is batch-fatal and returned as the error, alongside whatever
// summary was accumulated. Everything per-listing is caught, recorded and
// skipped past.
func (j *Job) RunOnce(ctx context.Context) (Summary, error) {
	var summary Summary
	if err := j.validate(); err != nil {
		return summary, err
	}

	costs, err := j.Store.LoadCostParameters(ctx)
	if err != nil {
		return summary, fmt.Errorf("load cost parameters: %w", err)
	}
	listings, err := j.Store.ListCandidates(ctx, j.Config.BatchSize)
	if err != nil {
		return summary, fmt.Errorf("list candidates: %w", err)
	}
	if len(listings) == 0 {
		j.Logger.Info("simulation job found no candidates")
		return summary, nil
	}

	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Processed++

		// Re-checked per listing: a concurrent writer may have simulated
		// this one since the candidate query ran.
		done, err := j.Store.HasSimulations(ctx, l.ID)
		if err != nil {
			summary.Errors = append(summary.Errors, ListingError{ListingID: l.ID, Error: err.Error()})
			continue
		}
		if done {
			summary.Skipped++
			continue
		}

		if err := j.processListing(ctx, l, costs); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			j.Logger.Error("listing simulation failed",
				zap.String("listing_id", l.ID), zap.Error(err))
			summary.Errors = append(summary.Errors, ListingError{ListingID: l.ID, Error: err.Error()})
			continue
		}
		summary.Simulated++
	}

	j.Logger.Info("simulation batch finished",
		zap.Int("processed", summary.Processed),
		zap.Int("simulated", summary.Simulated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", len(summary.Errors)))
	return summary, nil
}

func (j *Job) processListing(ctx context.Context, l store.Listing, costs sim.CostParameters) error {
	prop := toAttributes(l)
	results, err := j.Engine.Simulate(ctx, prop, costs)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	if err := j.Store.InsertSimulationSet(ctx, l.ID, results); err != nil {
		return fmt.Errorf("persist simulations: %w", err)
	}
	if j.Pub != nil {
		evt := events.SimulationCompleted{ListingID: l.ID}
		for _, res := range results {
			if res.Scenario == sim.ScenarioNeutral {
				evt.AnnualRevenue = res.AnnualRevenue
				evt.AnnualProfit = res.AnnualProfit
				evt.DataSource = res.Assumptions.DataSource
			}
		}
		j.Pub.PublishSimulationCompleted(ctx, evt)
	}
	return nil
}

// toAttributes validates the nullable store row into the explicit input the
// engine takes. Unset columns become zero values; the engine owns defaults.
func toAttributes(l store.Listing) sim.PropertyAttributes {
	prop := sim.PropertyAttributes{ListingID: l.ID}
	if l.Address.Valid {
		prop.Address = l.Address.String
	}
	if l.Locality.Valid {
		prop.Locality = l.Locality.String
	}
	if l.PropertyType.Valid {
		prop.PropertyType = l.PropertyType.String
	}
	if l.BuildingArea.Valid {
		prop.BuildingArea = l.BuildingArea.Float64
	}
	if l.LandArea.Valid {
		prop.LandArea = l.LandArea.Float64
	}
	if l.Rooms.Valid {
		prop.Rooms = int(l.Rooms.Int64)
	}
	if l.Lat.Valid && l.Lng.Valid {
		lat, lng := l.Lat.Float64, l.Lng.Float64
		prop.Lat, prop.Lng = &lat, &lng
	}
	return prop
}
