package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/planease/engine/internal/api/handlers"
	mw "github.com/planease/engine/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret      []byte
	RateLimitRPS    float64
	RateLimitBurst  int
	FinaliseHandler *handlers.FinaliseHandler
	IntakeHandler   *handlers.IntakeHandler
	SummaryHandler  *handlers.SummaryHandler
	HealthHandler   *handlers.HealthHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	rps, burst := dep.RateLimitRPS, dep.RateLimitBurst
	if rps <= 0 {
		rps, burst = 10, 20
	}

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.RateLimit(rps, burst))
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := dep.HealthHandler
	if hh == nil {
		hh = handlers.NewHealthHandler(nil)
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(mw.Identity(dep.HMACSecret))

		api.Route("/intake", func(ir chi.Router) {
			ir.Get("/", dep.IntakeHandler.List)
			ir.Post("/", dep.IntakeHandler.Create)
			ir.Post("/finalise", dep.FinaliseHandler.Finalise)
			ir.Get("/{id}", dep.IntakeHandler.Get)
			ir.Put("/{id}/steps/{step}", dep.IntakeHandler.SaveStep)
			ir.Put("/{id}/council-lookup", dep.IntakeHandler.SaveCouncilLookup)
			ir.Post("/{id}/finalise", dep.FinaliseHandler.Finalise)
		})

		api.Route("/projects/{id}/summary", func(pr chi.Router) {
			pr.Get("/", dep.SummaryHandler.Get)
			pr.Post("/rebuild", dep.SummaryHandler.Rebuild)
		})
	})

	return r
}
