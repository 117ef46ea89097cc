package scrapbook

import (
	"time"

	"github.com/google/uuid"

	"github.com/keepsake/keepsake-api/internal/domain/photo"
)

// ScrapbookResponse is the public representation of a published book
type ScrapbookResponse struct {
	ID          uuid.UUID        `json:"id"`
	Code        string           `json:"code"`
	Title       string           `json:"title"`
	Note        *string          `json:"note,omitempty"`
	SenderName  *string          `json:"sender_name,omitempty"`
	MusicID     *string          `json:"music_id,omitempty"`
	IsPublished bool             `json:"is_published"`
	CreatedAt   string           `json:"created_at"`
	Photos      []*PhotoResponse `json:"photos"`
}

// PhotoResponse is one page in API responses
type PhotoResponse struct {
	ID       uuid.UUID `json:"id"`
	URL      string    `json:"url"`
	Order    int       `json:"order"`
	Caption  *string   `json:"caption,omitempty"`
	Location *string   `json:"location,omitempty"`
	TakenAt  *string   `json:"taken_at,omitempty"`
}

// PreviewTokenResponse is the body of POST /scrapbooks/{code}/preview-token
type PreviewTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// ResponseFromEntity converts an entity to its response DTO
func ResponseFromEntity(s *Scrapbook) *ScrapbookResponse {
	photos := make([]*PhotoResponse, len(s.Photos))
	for i, p := range s.Photos {
		photos[i] = photoResponseFromEntity(p)
	}

	return &ScrapbookResponse{
		ID:          s.ID,
		Code:        s.Code,
		Title:       s.Title,
		Note:        nullableString(s.Note.String, s.Note.Valid),
		SenderName:  nullableString(s.SenderName.String, s.SenderName.Valid),
		MusicID:     nullableString(s.MusicID.String, s.MusicID.Valid),
		IsPublished: s.IsPublished,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
		Photos:      photos,
	}
}

func photoResponseFromEntity(p *photo.Photo) *PhotoResponse {
	resp := &PhotoResponse{
		ID:       p.ID,
		URL:      p.URL,
		Order:    p.SortOrder,
		Caption:  nullableString(p.Caption.String, p.Caption.Valid),
		Location: nullableString(p.Location.String, p.Location.Valid),
	}
	if p.TakenAt.Valid {
		s := p.TakenAt.Time.Format(time.RFC3339)
		resp.TakenAt = &s
	}
	return resp
}

func nullableString(s string, valid bool) *string {
	if !valid {
		return nil
	}
	return &s
}
