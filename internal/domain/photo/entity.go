package photo

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Photo is one page of a scrapbook (metadata only, binary lives in object
// storage behind the URL). SortOrder is 0-based and defines the page
// sequence; the set of orders for a scrapbook is exactly 0..n-1.
type Photo struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	ScrapbookID uuid.UUID      `db:"scrapbook_id" json:"scrapbook_id"`
	URL         string         `db:"url" json:"url"`
	SortOrder   int            `db:"sort_order" json:"order"`
	Caption     sql.NullString `db:"caption" json:"-"`
	Location    sql.NullString `db:"location" json:"-"`
	TakenAt     sql.NullTime   `db:"taken_at" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
