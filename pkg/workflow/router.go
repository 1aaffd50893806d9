package workflow

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with workflow API routes.
func NewRouter(engine *Engine, store *InstanceStore) chi.Router {
	r := chi.NewRouter()

	r.Get("/definitions", listDefinitionsHandler(engine.Definitions()))

	r.Route("/instances", func(r chi.Router) {
		r.Get("/", getDocumentInstanceHandler(store))
		r.Post("/", startWorkflowHandler(engine))
		r.Get("/{id}", getInstanceHandler(store))
		r.Post("/{id}/decisions", submitDecisionHandler(engine))
	})

	return r
}
