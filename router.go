package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	httpapi "github.com/yourorg/simulation-api/http"
	httpv1 "github.com/yourorg/simulation-api/http/v1"
)

func BuildRouter(simDeps httpapi.SimulationsDeps, estDeps httpv1.EstimateDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(httprate.LimitByIP(100, 1*time.Minute)) // protect upstream quota
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"ok":true}`)) })

	httpapi.RegisterSimulations(r, simDeps)
	httpv1.RegisterEstimate(r, estDeps)

	return r
}
