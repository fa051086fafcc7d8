package registry

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with the catalog and user-management routes.
func NewRouter(svc *CatalogService) chi.Router {
	r := chi.NewRouter()

	r.Route("/records", func(r chi.Router) {
		r.Get("/", listRecordsHandler(svc))
		r.Post("/", createRecordHandler(svc))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getRecordHandler(svc))
			r.Patch("/", updateRecordHandler(svc))

			r.Get("/images", listImagesHandler(svc))
			r.Post("/images", attachImageHandler(svc))
			r.Post("/images/{imageId}/primary", setPrimaryImageHandler(svc))
			r.Delete("/images/{imageId}", deleteImageHandler(svc))

			r.Get("/recommendation", recommendationStatusHandler(svc))
			r.Post("/recommendation", toggleRecommendationHandler(svc))
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", listUsersHandler(svc))
		r.Post("/bootstrap-owner", bootstrapOwnerHandler(svc))
		r.Get("/{id}", getUserHandler(svc))
		r.Patch("/{id}/role", setUserRoleHandler(svc))
	})

	return r
}
