package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourorg/simulation-api/airroi"
	"github.com/yourorg/simulation-api/internal/env"
	"github.com/yourorg/simulation-api/internal/events"
	"github.com/yourorg/simulation-api/internal/geocode"
	"github.com/yourorg/simulation-api/internal/logger"
	"github.com/yourorg/simulation-api/internal/notify"
	"github.com/yourorg/simulation-api/internal/redisx"
	"github.com/yourorg/simulation-api/internal/sim"
	"github.com/yourorg/simulation-api/internal/simjob"
	"github.com/yourorg/simulation-api/internal/store"
)

// One-shot (or recurring) batch runner for environments where the HTTP
// service is not wanted, e.g. a scheduled container.
func main() {
	_ = godotenv.Load()

	log, err := logger.New(env.Get("LOG_LEVEL", "info"), env.Get("LOG_FORMAT", "console"), "simulate")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	dsn := env.Must("PG_DSN")
	st, err := store.Open(dsn)
	if err != nil {
		log.Fatal("store open error", zap.Error(err))
	}
	defer st.DB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Ping(ctx); err != nil {
		cancel()
		log.Fatal("postgres ping error", zap.Error(err))
	}
	if err := st.Migrate(ctx); err != nil {
		cancel()
		log.Fatal("postgres migrate error", zap.Error(err))
	}
	cancel()

	var cache *redisx.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cache = redisx.New(addr, os.Getenv("REDIS_PASSWORD"), env.GetInt("REDIS_DB", 0))
	}

	heuristic := sim.NewHeuristicModel(sim.DefaultHeuristicConfig())
	var aggregator *sim.Aggregator
	var geocoder sim.Geocoder
	if apiKey := os.Getenv("AIRROI_API_KEY"); apiKey != "" {
		aggregator = sim.NewAggregator(airroi.NewClient(apiKey), sim.AggregatorConfig{
			RadiusKm:       env.GetFloat("AIRROI_RADIUS_KM", 10),
			SearchLimit:    env.GetInt("AIRROI_SEARCH_LIMIT", 30),
			TopComparables: env.GetInt("AIRROI_TOP_COMPARABLES", 20),
			RequestsPerSec: env.GetFloat("AIRROI_RPS", 5),
		}, log)
		geocoder = geocode.NewClient(cache, log)
	}

	pub := events.NewInMemory(256)
	job := &simjob.Job{
		Store:  st,
		Engine: sim.NewEngine(heuristic, aggregator, geocoder, log),
		Pub:    pub,
		Logger: log,
		Config: simjob.Config{
			BatchSize: env.GetInt("SIM_BATCH_SIZE", 100),
			Interval:  env.GetDuration("SIM_INTERVAL", 0),
		},
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := &notify.Notifier{Pub: pub, Log: log}
	go notifier.Run(rootCtx)

	if err := job.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("simulation batch failed", zap.Error(err))
	}
}
