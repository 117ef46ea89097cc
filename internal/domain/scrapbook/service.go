package scrapbook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/keepsake/keepsake-api/internal/domain/photo"
)

// Bounds enforced on create, regardless of what the client already checked.
const (
	MaxTitleLen  = 100
	MaxNoteLen   = 1000
	MaxSenderLen = 50
	MaxMusicLen  = 100
)

// CreateInput are the record fields for a new scrapbook. Empty optional
// strings are stored as NULL.
type CreateInput struct {
	Title       string
	Note        string
	SenderName  string
	MusicID     string
	IsPublished bool
}

// Service handles scrapbook record logic
type Service struct {
	repo       Repository
	photos     photo.Repository
	codeLength int
}

// NewService creates scrapbook service
func NewService(repo Repository, photos photo.Repository, codeLength int) *Service {
	return &Service{repo: repo, photos: photos, codeLength: codeLength}
}

// ValidateInput re-checks the server-side bounds. Returns the first
// violation found.
func ValidateInput(in CreateInput) error {
	switch {
	case len(in.Title) == 0:
		return ErrTitleRequired
	case len(in.Title) > MaxTitleLen:
		return ErrTitleTooLong
	case len(in.Note) > MaxNoteLen:
		return ErrNoteTooLong
	case len(in.SenderName) > MaxSenderLen:
		return ErrSenderTooLong
	case len(in.MusicID) > MaxMusicLen:
		return ErrMusicTooLong
	}
	return nil
}

// Create validates the input, assigns a fresh share code and inserts the
// record. On the (vanishingly rare) code collision it retries once with a
// new code before giving up.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Scrapbook, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		book := &Scrapbook{
			ID:          uuid.New(),
			Code:        GenerateCode(s.codeLength),
			Title:       in.Title,
			Note:        nullString(in.Note),
			SenderName:  nullString(in.SenderName),
			MusicID:     nullString(in.MusicID),
			IsPublished: in.IsPublished,
			CreatedAt:   time.Now().UTC(),
		}

		err := s.repo.Create(ctx, book)
		if err == nil {
			return book, nil
		}
		if errors.Is(err, ErrCodeCollision) {
			log.Warn().Str("code", book.Code).Msg("Share code collision, regenerating")
			continue
		}
		return nil, err
	}

	return nil, ErrCodeCollision
}

// GetByCode returns a scrapbook with its photos in page order
func (s *Service) GetByCode(ctx context.Context, code string) (*Scrapbook, error) {
	book, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	photos, err := s.photos.ListByScrapbook(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load photos: %w", err)
	}
	if photos == nil {
		photos = []*photo.Photo{}
	}
	book.Photos = photos

	return book, nil
}

// DeleteByCode removes a scrapbook. Idempotent: unknown codes succeed.
func (s *Service) DeleteByCode(ctx context.Context, code string) error {
	return s.repo.DeleteByCode(ctx, code)
}

// PublishByCode flips is_published for a server-side draft
func (s *Service) PublishByCode(ctx context.Context, code string) error {
	return s.repo.PublishByCode(ctx, code)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
