package httpapi

import (
    "encoding/json"
    "errors"
    "net/http"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/render"

    "github.com/yourorg/simulation-api/internal/simjob"
    "github.com/yourorg/simulation-api/internal/store"
)

type SimulationsDeps struct {
    Job   *simjob.Job
    Store *store.Store
}

// RegisterSimulations wires the batch trigger and the read path.
func RegisterSimulations(r chi.Router, d SimulationsDeps) {
    r.Post("/v1/simulations/run", func(w http.ResponseWriter, req *http.Request) {
        if d.Job == nil {
            render.Status(req, http.StatusServiceUnavailable)
            _ = json.NewEncoder(w).Encode(map[string]any{"error": "job_not_configured"})
            return
        }
        summary, err := d.Job.RunOnce(req.Context())
        if err != nil && !errors.Is(err, req.Context().Err()) {
            // Batch-fatal: surface the error alongside the partial summary.
            render.Status(req, http.StatusInternalServerError)
            _ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error(), "summary": summary})
            return
        }
        render.JSON(w, req, map[string]any{"ok": true, "summary": summary})
    })

    r.Get("/v1/listings/{listingID}/simulations", func(w http.ResponseWriter, req *http.Request) {
        if d.Store == nil {
            render.Status(req, http.StatusServiceUnavailable)
            _ = json.NewEncoder(w).Encode(map[string]any{"error": "store_not_configured"})
            return
        }
        listingID := chi.URLParam(req, "listingID")
        records, err := d.Store.ListSimulations(req.Context(), listingID)
        if err != nil {
            render.Status(req, http.StatusInternalServerError)
            _ = json.NewEncoder(w).Encode(map[string]any{"error": "query_failed", "detail": err.Error()})
            return
        }
        if len(records) == 0 {
            render.Status(req, http.StatusNotFound)
            _ = json.NewEncoder(w).Encode(map[string]any{"error": "not_found", "listing_id": listingID})
            return
        }
        render.JSON(w, req, map[string]any{"ok": true, "listing_id": listingID, "simulations": records})
    })
}
