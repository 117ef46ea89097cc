package scrapbook

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/keepsake/keepsake-api/internal/pkg/response"
	"github.com/keepsake/keepsake-api/internal/pkg/token"
)

// Handler handles scrapbook HTTP requests
type Handler struct {
	service *Service
	tokens  *token.Service
}

// NewHandler creates scrapbook handler
func NewHandler(service *Service, tokens *token.Service) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// GetByCode handles GET /scrapbooks/{code}
func (h *Handler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	book, err := h.service.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Scrapbook not found")
			return
		}
		log.Error().Err(err).Str("code", code).Msg("Failed to fetch scrapbook")
		response.InternalError(w)
		return
	}

	// Unpublished drafts are only reachable through the preview endpoint
	if !book.IsPublished {
		response.NotFound(w, "Scrapbook not found")
		return
	}

	response.OK(w, ResponseFromEntity(book))
}

// Delete handles DELETE /scrapbooks/{code}. Best-effort and idempotent:
// deleting an unknown code still returns 204.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.service.DeleteByCode(r.Context(), code); err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to delete scrapbook")
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

// Publish handles POST /scrapbooks/{code}/publish
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.service.PublishByCode(r.Context(), code); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Scrapbook not found")
			return
		}
		log.Error().Err(err).Str("code", code).Msg("Failed to publish scrapbook")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]bool{"published": true})
}

// PreviewToken handles POST /scrapbooks/{code}/preview-token
func (h *Handler) PreviewToken(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	// Only issue tokens for codes that exist
	if _, err := h.service.GetByCode(r.Context(), code); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Scrapbook not found")
			return
		}
		log.Error().Err(err).Str("code", code).Msg("Failed to look up scrapbook")
		response.InternalError(w)
		return
	}

	signed, expiresAt, err := h.tokens.GeneratePreviewToken(code)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to sign preview token")
		response.InternalError(w)
		return
	}

	response.OK(w, PreviewTokenResponse{
		Token:     signed,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// Preview handles GET /scrapbooks/{code}/preview?token=...
// Unlike GetByCode it serves unpublished drafts, gated by a signed token.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	grantedCode, err := h.tokens.VerifyPreviewToken(r.URL.Query().Get("token"))
	if err != nil || grantedCode != code {
		response.Unauthorized(w, "Invalid or expired preview token")
		return
	}

	book, err := h.service.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Scrapbook not found")
			return
		}
		log.Error().Err(err).Str("code", code).Msg("Failed to fetch scrapbook")
		response.InternalError(w)
		return
	}

	response.OK(w, ResponseFromEntity(book))
}
