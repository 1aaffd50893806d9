package expiry

import (
	"github.com/go-chi/chi/v5"

	"github.com/docuvault/docuvault/pkg/session"
)

// NewRouter creates a chi router with sweep routes. The trigger endpoints are
// guarded by the service token verifier; run history only needs a session.
func NewRouter(sweeper *Sweeper, store *SweepStore, verifier *session.ServiceTokenVerifier) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(session.ServiceMiddleware(verifier))
		r.Post("/expiry", triggerExpiryHandler(sweeper))
		r.Post("/reviews", triggerReviewHandler(sweeper))
	})

	r.Get("/runs", listRunsHandler(store))

	return r
}
