package photo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines photo data access
type Repository interface {
	Create(ctx context.Context, photo *Photo) error
	ListByScrapbook(ctx context.Context, scrapbookID uuid.UUID) ([]*Photo, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new photo repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, photo *Photo) error {
	query := `
		INSERT INTO photos (id, scrapbook_id, url, sort_order, caption, location, taken_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		photo.ID,
		photo.ScrapbookID,
		photo.URL,
		photo.SortOrder,
		photo.Caption,
		photo.Location,
		photo.TakenAt,
		photo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create photo record: %w", err)
	}
	return nil
}

func (r *repository) ListByScrapbook(ctx context.Context, scrapbookID uuid.UUID) ([]*Photo, error) {
	query := `SELECT * FROM photos WHERE scrapbook_id = $1 ORDER BY sort_order`
	var photos []*Photo
	if err := r.db.SelectContext(ctx, &photos, query, scrapbookID); err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return photos, nil
}
