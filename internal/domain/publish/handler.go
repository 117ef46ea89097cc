package publish

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/keepsake/keepsake-api/internal/domain/draft"
	"github.com/keepsake/keepsake-api/internal/domain/scrapbook"
	"github.com/keepsake/keepsake-api/internal/pkg/imaging"
	"github.com/keepsake/keepsake-api/internal/pkg/response"
	"github.com/keepsake/keepsake-api/internal/pkg/validator"
)

// maxPublishBody bounds the whole multipart publish request
const maxPublishBody = 64 << 20 // 64MB

// PublishRequest mirrors the multipart form fields for validation
type PublishRequest struct {
	Title      string `json:"title" validate:"required,min=1,max=100"`
	Note       string `json:"note" validate:"max=1000"`
	SenderName string `json:"sender_name" validate:"max=50"`
	SongID     string `json:"song_id" validate:"max=100"`
}

// Handler handles the single-shot publish endpoint
type Handler struct {
	publisher *Publisher
	hub       *Hub
}

// NewHandler creates publish handler
func NewHandler(publisher *Publisher, hub *Hub) *Handler {
	return &Handler{publisher: publisher, hub: hub}
}

// Create handles POST /scrapbooks (multipart/form-data).
//
// Fields: title, note, sender_name, song_id. File parts: "photos", repeated,
// in page order, with parallel "captions", "locations" and "taken_at" values.
// An optional X-Publish-Attempt header keys the progress stream.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPublishBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		response.BadRequest(w, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := PublishRequest{
		Title:      r.FormValue("title"),
		Note:       r.FormValue("note"),
		SenderName: r.FormValue("sender_name"),
		SongID:     r.FormValue("song_id"),
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		response.BadRequest(w, "At least one photo is required")
		return
	}

	captions := r.MultipartForm.Value["captions"]
	locations := r.MultipartForm.Value["locations"]
	takenAts := r.MultipartForm.Value["taken_at"]

	d := draft.New()
	d.Apply(draft.Update{
		Title:          &req.Title,
		Note:           &req.Note,
		SenderName:     &req.SenderName,
		SelectedSongID: &req.SongID,
	})

	for i, fh := range files {
		if fh.Size > imaging.MaxFileSize {
			response.BadRequest(w, "Photo exceeds the 10MB size limit")
			return
		}
		if !imaging.ValidateType(fh.Filename) {
			response.BadRequest(w, "Unsupported photo type: "+fh.Filename)
			return
		}

		file, err := fh.Open()
		if err != nil {
			response.BadRequest(w, "Unreadable photo part")
			return
		}
		payload, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			response.BadRequest(w, "Unreadable photo part")
			return
		}

		meta := draft.PhotoMetadata{Location: valueAt(locations, i)}
		if raw := valueAt(takenAts, i); raw != "" {
			takenAt, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				response.BadRequest(w, "Invalid taken_at timestamp, expected RFC3339")
				return
			}
			meta.TakenAt = &takenAt
		}

		d.AddPhoto(payload, draft.NewBlobPreview(payload), valueAt(captions, i), meta)
	}

	attemptID := r.Header.Get("X-Publish-Attempt")
	if attemptID == "" {
		attemptID = uuid.New().String()
	}

	result, err := h.publisher.Publish(r.Context(), d.Snapshot(), attemptID)
	if err != nil {
		// The draft stays intact on every failure path so the caller can
		// retry without re-entering anything.
		switch {
		case errors.Is(err, scrapbook.ErrTitleRequired),
			errors.Is(err, scrapbook.ErrTitleTooLong),
			errors.Is(err, scrapbook.ErrNoteTooLong),
			errors.Is(err, scrapbook.ErrSenderTooLong),
			errors.Is(err, scrapbook.ErrMusicTooLong),
			errors.Is(err, scrapbook.ErrNoPhotos):
			response.BadRequest(w, err.Error())
		default:
			log.Error().Err(err).Str("attempt_id", attemptID).Msg("Publish failed")
			response.InternalError(w)
		}
		return
	}

	d.Clear()
	response.Created(w, result)
}

// ServeWS handles GET /ws/publish?attempt=<id>
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}

func valueAt(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
