package scrapbook

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/keepsake/keepsake-api/internal/domain/photo"
)

// Scrapbook is a published (or draft-stage) book. The code is the public
// share handle; it is unique and immutable once assigned.
type Scrapbook struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Code        string         `db:"code" json:"code"`
	Title       string         `db:"title" json:"title"`
	Note        sql.NullString `db:"note" json:"-"`
	SenderName  sql.NullString `db:"sender_name" json:"-"`
	MusicID     sql.NullString `db:"music_id" json:"-"`
	IsPublished bool           `db:"is_published" json:"is_published"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`

	Photos []*photo.Photo `db:"-" json:"photos"`
}
