package scrapbook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines scrapbook data access
type Repository interface {
	Create(ctx context.Context, s *Scrapbook) error
	GetByCode(ctx context.Context, code string) (*Scrapbook, error)
	DeleteByCode(ctx context.Context, code string) error
	PublishByCode(ctx context.Context, code string) error
	DeleteStaleDrafts(ctx context.Context, olderThan time.Time) (int64, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new scrapbook repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Scrapbook) error {
	query := `
		INSERT INTO scrapbooks (id, code, title, note, sender_name, music_id, is_published, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Code,
		s.Title,
		s.Note,
		s.SenderName,
		s.MusicID,
		s.IsPublished,
		s.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrCodeCollision
		}
		return fmt.Errorf("failed to create scrapbook: %w", err)
	}
	return nil
}

// GetByCode loads the scrapbook row only; the service attaches photos
// through the photo repository.
func (r *repository) GetByCode(ctx context.Context, code string) (*Scrapbook, error) {
	query := `SELECT id, code, title, note, sender_name, music_id, is_published, created_at
		FROM scrapbooks WHERE code = $1`
	var s Scrapbook
	err := r.db.GetContext(ctx, &s, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scrapbook: %w", err)
	}
	return &s, nil
}

// DeleteByCode removes a scrapbook and (via ON DELETE CASCADE) its photo
// records. Deleting an unknown code is not an error: the compensating delete
// in the publish pipeline must stay idempotent.
func (r *repository) DeleteByCode(ctx context.Context, code string) error {
	query := `DELETE FROM scrapbooks WHERE code = $1`
	if _, err := r.db.ExecContext(ctx, query, code); err != nil {
		return fmt.Errorf("failed to delete scrapbook: %w", err)
	}
	return nil
}

func (r *repository) PublishByCode(ctx context.Context, code string) error {
	query := `UPDATE scrapbooks SET is_published = true WHERE code = $1`
	res, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return fmt.Errorf("failed to publish scrapbook: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStaleDrafts removes unpublished scrapbooks created before the cutoff
func (r *repository) DeleteStaleDrafts(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM scrapbooks WHERE is_published = false AND created_at < $1`
	res, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale drafts: %w", err)
	}
	return res.RowsAffected()
}
