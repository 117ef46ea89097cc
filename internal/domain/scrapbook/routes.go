package scrapbook

import (
	"github.com/go-chi/chi/v5"
)

// Register adds the scrapbook routes to r. The publish (create) endpoint is
// registered by the caller alongside these because it carries the rate-limit
// middleware; registering onto the shared subrouter keeps it from shadowing
// the code-keyed routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/{code}", h.GetByCode)
	r.Delete("/{code}", h.Delete)
	r.Post("/{code}/publish", h.Publish)
	r.Post("/{code}/preview-token", h.PreviewToken)
	r.Get("/{code}/preview", h.Preview)
}
