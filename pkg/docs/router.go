package docs

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with document API routes. objects may be nil,
// in which case the file endpoints are not mounted.
func NewRouter(
	store *DocumentStore,
	versions *VersionStore,
	activities *ActivityStore,
	checkout *CheckoutService,
	lifecycle *LifecycleService,
	objects ObjectStore,
) chi.Router {
	r := chi.NewRouter()

	r.Get("/", listDocumentsHandler(store))
	r.Post("/", createDocumentHandler(store, activities))

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", getDocumentHandler(store))
		r.Post("/actions/{action}", documentActionHandler(checkout, lifecycle))
		r.Get("/versions", listVersionsHandler(versions))
		r.Get("/activity", listActivityHandler(activities))

		if objects != nil {
			r.Put("/file", uploadFileHandler(store, objects))
			r.Get("/file", downloadURLHandler(store, objects))
		}
	})

	return r
}
