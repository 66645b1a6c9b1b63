package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/engagement", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/predict", handler.predict)
		r.Post("/suggestions", handler.suggestions)
		r.Get("/feature-importance", handler.featureImportance)

		// Role checks for these live in the application service.
		r.Post("/outcomes", handler.recordOutcome)
		r.Post("/models/retrain", handler.retrain)
		r.Post("/models/reconcile", handler.reconcile)
		r.Get("/models/versions", handler.listVersions)
	})

	return r
}
