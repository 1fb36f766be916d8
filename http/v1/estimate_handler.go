package v1

import (
    "context"
    "encoding/json"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/render"

    "github.com/yourorg/simulation-api/internal/canon"
    "github.com/yourorg/simulation-api/internal/redisx"
    "github.com/yourorg/simulation-api/internal/sim"
)

// Simulator matches the engine's single-property entry point.
type Simulator interface {
    Simulate(ctx context.Context, prop sim.PropertyAttributes, costs sim.CostParameters) ([]sim.SimulationResult, error)
}

type EstimateDeps struct {
    Redis   *redisx.Client
    Engine  Simulator
    Costs   sim.CostParameters
    // Refetch recomputes a stale estimate in the background.
    Refetch func(cacheKey string, prop sim.PropertyAttributes)
    // TTL and staleness tuning
    CacheTTL   time.Duration
    StaleAfter time.Duration
}

type EstimateRequest struct {
    Address      string  `json:"address"`
    Locality     string  `json:"locality"`
    PropertyType string  `json:"property_type"`
    BuildingArea float64 `json:"building_area"`
    LandArea     float64 `json:"land_area"`
    Rooms        int     `json:"rooms"`
}

type cachedEnvelope struct {
    Results []sim.SimulationResult `json:"results"`
    Meta    struct {
        ComputedAt time.Time `json:"computed_at"`
        StaleAfter time.Time `json:"stale_after"`
    } `json:"meta"`
}

// RegisterEstimate exposes ad-hoc single-property screening with
// stale-while-revalidate caching: cached estimates are served immediately
// and recomputed in the background once past their staleness horizon.
func RegisterEstimate(r chi.Router, d EstimateDeps) {
    if d.CacheTTL <= 0 { d.CacheTTL = 24 * time.Hour }
    if d.StaleAfter <= 0 { d.StaleAfter = time.Hour }
    r.Post("/v1/estimate", func(w http.ResponseWriter, req *http.Request) {
        var body EstimateRequest
        if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
            render.Status(req, http.StatusBadRequest)
            _ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_json", "detail": err.Error()})
            return
        }
        estimate(w, req, d, body)
    })
}

func estimate(w http.ResponseWriter, req *http.Request, d EstimateDeps, body EstimateRequest) {
    if body.Locality == "" && body.Address == "" {
        render.Status(req, http.StatusBadRequest)
        _ = json.NewEncoder(w).Encode(map[string]any{"error": "locality_required", "detail": "address or locality is required"})
        return
    }
    addr, loc, key := canon.Canonicalize(body.Address, body.Locality)
    prop := sim.PropertyAttributes{
        Address:      addr,
        Locality:     loc,
        PropertyType: body.PropertyType,
        BuildingArea: body.BuildingArea,
        LandArea:     body.LandArea,
        Rooms:        body.Rooms,
    }
    ctx := req.Context()
    cacheKey := "est:" + key

    if d.Redis != nil {
        if val, err := d.Redis.Get(ctx, cacheKey); err == nil && val != "" {
            var env cachedEnvelope
            if err := json.Unmarshal([]byte(val), &env); err == nil {
                stale := time.Now().After(env.Meta.StaleAfter)
                if stale && d.Refetch != nil { d.Refetch(cacheKey, prop) }
                render.JSON(w, req, map[string]any{
                    "ok":      true,
                    "source":  "cache",
                    "stale":   stale,
                    "results": env.Results,
                })
                return
            }
        }
        // short lock to avoid recompute stampedes on a cold key
        if ok, _ := d.Redis.SetNX(ctx, "est:lock:"+key, "1", 30*time.Second); !ok {
            render.Status(req, http.StatusAccepted)
            _ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "in_progress": true})
            return
        }
    }

    results, err := d.Engine.Simulate(ctx, prop, d.Costs)
    if err != nil {
        render.Status(req, http.StatusInternalServerError)
        _ = json.NewEncoder(w).Encode(map[string]any{"error": "simulate_failed", "detail": err.Error()})
        return
    }

    if d.Redis != nil {
        WriteCache(ctx, d.Redis, cacheKey, results, d.CacheTTL, d.StaleAfter)
    }
    render.JSON(w, req, map[string]any{"ok": true, "source": "live", "stale": false, "results": results})
}

// WriteCache stores an estimate envelope; the refresher reuses it after a
// background recompute.
func WriteCache(ctx context.Context, r *redisx.Client, cacheKey string, results []sim.SimulationResult, ttl, staleAfter time.Duration) {
    var env cachedEnvelope
    env.Results = results
    env.Meta.ComputedAt = time.Now()
    env.Meta.StaleAfter = env.Meta.ComputedAt.Add(staleAfter)
    if buf, err := json.Marshal(env); err == nil {
        _ = r.Set(ctx, cacheKey, string(buf), ttl)
    }
}
