package publish

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/keepsake/keepsake-api/internal/domain/draft"
	"github.com/keepsake/keepsake-api/internal/domain/photo"
	"github.com/keepsake/keepsake-api/internal/domain/scrapbook"
	"github.com/keepsake/keepsake-api/internal/pkg/imaging"
	"github.com/keepsake/keepsake-api/internal/pkg/storage"
)

// ErrPublishFailed is the single error surfaced when the photo phase fails,
// whether or not the compensating delete succeeded. The caller cannot
// distinguish a clean rollback from an orphaned record; that asymmetry is
// deliberate and documented.
var ErrPublishFailed = errors.New("failed to publish scrapbook")

// maxConcurrentUploads bounds the per-photo task group
const maxConcurrentUploads = 4

// Result identifies a successfully published scrapbook
type Result struct {
	ScrapbookID uuid.UUID `json:"scrapbook_id"`
	Code        string    `json:"code"`
}

// Publisher turns a draft snapshot into a durable scrapbook. The record
// store and blob storage are independent systems with no shared transaction,
// so a photo-phase failure is compensated by a best-effort delete of the
// scrapbook record rather than a real rollback.
type Publisher struct {
	books     *scrapbook.Service
	photos    photo.Repository
	store     storage.Storage
	processor *imaging.Processor
	notifier  Notifier
}

// NewPublisher creates the publish pipeline
func NewPublisher(books *scrapbook.Service, photos photo.Repository, store storage.Storage, processor *imaging.Processor, notifier Notifier) *Publisher {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Publisher{
		books:     books,
		photos:    photos,
		store:     store,
		processor: processor,
		notifier:  notifier,
	}
}

// Publish runs one attempt:
//
//	Validating -> CreatingRecord -> UploadingPhotos -> Published
//	                                               \-> RollingBack -> Failed
//
// Validation and record-creation failures abort before any photo side
// effects; nothing needs rolling back. Any single photo failure fails the
// whole attempt and triggers the compensating delete. There is no automatic
// retry; a resubmission is a new attempt and produces a new code.
func (p *Publisher) Publish(ctx context.Context, snap draft.Snapshot, attemptID string) (*Result, error) {
	t := newTracker(attemptID, p.notifier)

	_ = t.to(StateValidating)
	if err := p.validate(snap); err != nil {
		_ = t.to(StateFailed)
		return nil, err
	}

	_ = t.to(StateCreatingRecord)
	book, err := p.books.Create(ctx, scrapbook.CreateInput{
		Title:       snap.Title,
		Note:        snap.Note,
		SenderName:  snap.SenderName,
		MusicID:     snap.SelectedSongID,
		IsPublished: true,
	})
	if err != nil {
		_ = t.to(StateFailed)
		return nil, err
	}

	_ = t.to(StateUploadingPhotos)
	if err := p.uploadPhotos(ctx, book.ID, snap.Photos); err != nil {
		_ = t.to(StateRollingBack)
		p.rollback(ctx, book.Code, err)
		_ = t.to(StateFailed)
		return nil, ErrPublishFailed
	}

	_ = t.to(StatePublished)
	log.Info().
		Str("attempt_id", attemptID).
		Str("code", book.Code).
		Int("photos", len(snap.Photos)).
		Msg("Scrapbook published")

	return &Result{ScrapbookID: book.ID, Code: book.Code}, nil
}

func (p *Publisher) validate(snap draft.Snapshot) error {
	if err := scrapbook.ValidateInput(scrapbook.CreateInput{
		Title:      snap.Title,
		Note:       snap.Note,
		SenderName: snap.SenderName,
		MusicID:    snap.SelectedSongID,
	}); err != nil {
		return err
	}
	if len(snap.Photos) == 0 {
		return scrapbook.ErrNoPhotos
	}
	return nil
}

// uploadPhotos runs one task per photo. Tasks are unordered relative to one
// another; within a task the record insert strictly follows the blob upload
// (it needs the URL). Sort order is pre-assigned from the snapshot index, so
// completion order never affects page order. The first failure cancels the
// group; requests already in flight may still complete without observable
// effect once the scrapbook record is gone.
func (p *Publisher) uploadPhotos(ctx context.Context, scrapbookID uuid.UUID, photos []draft.PhotoSnapshot) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)

	for i, snap := range photos {
		g.Go(func() error {
			processed, err := p.processor.Process(bytes.NewReader(snap.Payload))
			if err != nil {
				return fmt.Errorf("photo %d: %w", i, err)
			}

			key := fmt.Sprintf("%s/%d%s", scrapbookID, i, extensionFor(processed.ContentType))
			if err := p.store.Put(ctx, key, bytes.NewReader(processed.Data), processed.ContentType); err != nil {
				return fmt.Errorf("photo %d: %w", i, err)
			}

			rec := &photo.Photo{
				ID:          uuid.New(),
				ScrapbookID: scrapbookID,
				URL:         p.store.GetURL(key),
				SortOrder:   i,
				Caption:     nullString(snap.Caption),
				Location:    nullString(snap.Metadata.Location),
				CreatedAt:   time.Now().UTC(),
			}
			if snap.Metadata.TakenAt != nil {
				rec.TakenAt = sql.NullTime{Time: *snap.Metadata.TakenAt, Valid: true}
			}

			if err := p.photos.Create(ctx, rec); err != nil {
				return fmt.Errorf("photo %d: %w", i, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// rollback issues the compensating delete for the record created this
// attempt. Best-effort: a failure here leaves an orphaned record for the
// cleanup job and is logged, never surfaced.
func (p *Publisher) rollback(ctx context.Context, code string, cause error) {
	log.Error().Err(cause).Str("code", code).Msg("Photo upload failed, rolling back scrapbook record")

	// The request context may already be canceled by the failed task group
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := p.books.DeleteByCode(cleanupCtx, code); err != nil {
		log.Error().Err(err).Str("code", code).Msg("Compensating delete failed, scrapbook record orphaned")
	}
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
