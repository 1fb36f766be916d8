package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourorg/simulation-api/airroi"
	httpapi "github.com/yourorg/simulation-api/http"
	httpv1 "github.com/yourorg/simulation-api/http/v1"
	"github.com/yourorg/simulation-api/internal/env"
	"github.com/yourorg/simulation-api/internal/events"
	"github.com/yourorg/simulation-api/internal/geocode"
	"github.com/yourorg/simulation-api/internal/logger"
	"github.com/yourorg/simulation-api/internal/notify"
	"github.com/yourorg/simulation-api/internal/redisx"
	"github.com/yourorg/simulation-api/internal/refresh"
	"github.com/yourorg/simulation-api/internal/sim"
	"github.com/yourorg/simulation-api/internal/simjob"
	"github.com/yourorg/simulation-api/internal/store"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(env.Get("LOG_LEVEL", "info"), env.Get("LOG_FORMAT", ""), "simulation-api")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	port := env.Get("PORT", "4003")
	dsn := env.Must("PG_DSN")

	st, err := store.Open(dsn)
	if err != nil {
		log.Fatal("store open error", zap.Error(err))
	}
	defer st.DB.Close()

	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Ping(bootCtx); err != nil {
		cancel()
		log.Fatal("postgres ping error", zap.Error(err))
	}
	if err := st.Migrate(bootCtx); err != nil {
		cancel()
		log.Fatal("postgres migrate error", zap.Error(err))
	}
	cancel()

	var cache *redisx.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cache = redisx.New(addr, os.Getenv("REDIS_PASSWORD"), env.GetInt("REDIS_DB", 0))
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, caching disabled", zap.Error(err))
			cache = nil
		}
		pingCancel()
	}

	heuristic := sim.NewHeuristicModel(sim.DefaultHeuristicConfig())

	// The comparable-market branch only exists when the provider key is set;
	// without it the engine always runs the heuristic model.
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
	engine := sim.NewEngine(heuristic, aggregator, geocoder, log)

	pub := events.NewInMemory(256)
	job := &simjob.Job{
		Store:  st,
		Engine: engine,
		Pub:    pub,
		Logger: log,
		Config: simjob.Config{
			BatchSize: env.GetInt("SIM_BATCH_SIZE", 100),
			Interval:  env.GetDuration("SIM_INTERVAL", 0),
		},
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	notifier := &notify.Notifier{Pub: pub, Log: log}
	go notifier.Run(rootCtx)

	if job.Config.Interval > 0 {
		go func() {
			if err := job.Run(rootCtx); err != nil {
				log.Error("simulation job stopped", zap.Error(err))
			}
		}()
	}

	costs := sim.DefaultCostParameters()
	costCtx, costCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if loaded, err := st.LoadCostParameters(costCtx); err == nil {
		costs = loaded
	}
	costCancel()

	estDeps := httpv1.EstimateDeps{
		Redis:      cache,
		Engine:     engine,
		Costs:      costs,
		CacheTTL:   env.GetDuration("ESTIMATE_CACHE_TTL", 24*time.Hour),
		StaleAfter: env.GetDuration("ESTIMATE_STALE_AFTER", time.Hour),
	}
	if cache != nil {
		refresher := refresh.New(256, 2, func(ctx context.Context, rj refresh.Job) {
			results, err := engine.Simulate(ctx, rj.Prop, costs)
			if err != nil {
				log.Warn("estimate refresh failed", zap.String("cache_key", rj.CacheKey), zap.Error(err))
				return
			}
			httpv1.WriteCache(ctx, cache, rj.CacheKey, results, estDeps.CacheTTL, estDeps.StaleAfter)
		})
		estDeps.Refetch = func(cacheKey string, prop sim.PropertyAttributes) {
			refresher.Enqueue(refresh.Job{CacheKey: cacheKey, Prop: prop})
		}
	}

	router := BuildRouter(httpapi.SimulationsDeps{Job: job, Store: st}, estDeps)

	log.Info("simulation-api listening", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, logger.Middleware(log)(router)); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
