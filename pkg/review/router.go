package review

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter builds the HTTP surface for the review pipelines.
func NewRouter(engine *Engine) chi.Router {
	r := chi.NewRouter()

	r.Route("/edit-requests", func(r chi.Router) {
		r.Get("/", listEditRequestsHandler(engine))
		r.Post("/", submitEditRequestHandler(engine))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getEditRequestHandler(engine))
			r.Post("/resolve", resolveEditRequestHandler(engine))
		})
	})

	r.Route("/image-requests", func(r chi.Router) {
		r.Get("/", listImageRequestsHandler(engine))
		r.Post("/", submitImageRequestHandler(engine))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getImageRequestHandler(engine))
			r.Post("/resolve", resolveImageRequestHandler(engine))
		})
	})

	r.Route("/image-submissions", func(r chi.Router) {
		r.Get("/", listSubmissionsHandler(engine))
		r.Post("/", submitUserImageHandler(engine))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getSubmissionHandler(engine))
			r.Post("/resolve", resolveSubmissionHandler(engine))
		})
	})

	return r
}
