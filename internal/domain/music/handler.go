package music

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keepsake/keepsake-api/internal/pkg/response"
)

// Handler serves the music catalog
type Handler struct{}

// NewHandler creates music handler
func NewHandler() *Handler {
	return &Handler{}
}

// List handles GET /music
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, Catalog)
}

// Routes returns the music router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}
