package draft

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrIndexOutOfRange = errors.New("photo index out of range")

// PhotoMetadata carries optional per-photo fields supplied by the editor
// (the service does not parse EXIF itself).
type PhotoMetadata struct {
	Location string
	TakenAt  *time.Time
}

// Preview is a locally-held preview resource for a photo still in a draft.
// Previews may be backed by transient in-memory blobs and must be released
// when the photo leaves the draft.
type Preview interface {
	URI() string
	Close() error
}

// Draft is the single in-progress scrapbook for one editing session. It is
// explicitly owned and passed by reference, never global. Photos live in four
// parallel slices (payload, preview, caption, metadata); every mutation that
// adds, removes or moves a photo updates all four in the same operation.
type Draft struct {
	Title          string
	Note           string
	SenderName     string
	SelectedSongID string

	photos   [][]byte
	previews []Preview
	captions []string
	metadata []PhotoMetadata
}

// Update is a partial field update. Nil fields are left unchanged.
type Update struct {
	Title          *string
	Note           *string
	SenderName     *string
	SelectedSongID *string
}

// New creates an empty draft
func New() *Draft {
	return &Draft{}
}

// Apply merges the given fields into the draft. No validation happens here;
// validation is deferred to publish time.
func (d *Draft) Apply(u Update) {
	if u.Title != nil {
		d.Title = *u.Title
	}
	if u.Note != nil {
		d.Note = *u.Note
	}
	if u.SenderName != nil {
		d.SenderName = *u.SenderName
	}
	if u.SelectedSongID != nil {
		d.SelectedSongID = *u.SelectedSongID
	}
}

// AddPhoto appends a photo to the end of the page order
func (d *Draft) AddPhoto(payload []byte, preview Preview, caption string, meta PhotoMetadata) {
	d.photos = append(d.photos, payload)
	d.previews = append(d.previews, preview)
	d.captions = append(d.captions, caption)
	d.metadata = append(d.metadata, meta)
}

// RemovePhoto removes the photo at index i and releases its preview
func (d *Draft) RemovePhoto(i int) error {
	if i < 0 || i >= len(d.photos) {
		return ErrIndexOutOfRange
	}

	closePreview(d.previews[i])

	d.photos = append(d.photos[:i], d.photos[i+1:]...)
	d.previews = append(d.previews[:i], d.previews[i+1:]...)
	d.captions = append(d.captions[:i], d.captions[i+1:]...)
	d.metadata = append(d.metadata[:i], d.metadata[i+1:]...)
	return nil
}

// MovePhoto moves the photo at index from to index to, shifting the rest.
// This is the reorder operation driven by the drag UI.
func (d *Draft) MovePhoto(from, to int) error {
	n := len(d.photos)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}

	moveItem(d.photos, from, to)
	moveItem(d.previews, from, to)
	moveItem(d.captions, from, to)
	moveItem(d.metadata, from, to)
	return nil
}

// SetCaption updates the caption of the photo at index i
func (d *Draft) SetCaption(i int, caption string) error {
	if i < 0 || i >= len(d.captions) {
		return ErrIndexOutOfRange
	}
	d.captions[i] = caption
	return nil
}

// SetMetadata updates the metadata of the photo at index i
func (d *Draft) SetMetadata(i int, meta PhotoMetadata) error {
	if i < 0 || i >= len(d.metadata) {
		return ErrIndexOutOfRange
	}
	d.metadata[i] = meta
	return nil
}

// PhotoCount returns the number of photos in the draft
func (d *Draft) PhotoCount() int {
	return len(d.photos)
}

// Clear releases all preview resources and resets the draft to its empty
// initial value. Called after a successful publish or on an explicit
// user-initiated reset; never called on a failed publish.
func (d *Draft) Clear() {
	for _, p := range d.previews {
		closePreview(p)
	}
	*d = Draft{}
}

// Snapshot returns an immutable copy of the draft for publishing. Edits to
// the live draft after the snapshot is taken are not reflected in it.
func (d *Draft) Snapshot() Snapshot {
	photos := make([]PhotoSnapshot, len(d.photos))
	for i := range d.photos {
		photos[i] = PhotoSnapshot{
			Payload:  d.photos[i],
			Caption:  d.captions[i],
			Metadata: d.metadata[i],
		}
	}

	return Snapshot{
		Title:          d.Title,
		Note:           d.Note,
		SenderName:     d.SenderName,
		SelectedSongID: d.SelectedSongID,
		Photos:         photos,
	}
}

// Snapshot is a point-in-time copy of a draft, the input to the publish
// pipeline. Photo index is the final page order.
type Snapshot struct {
	Title          string
	Note           string
	SenderName     string
	SelectedSongID string
	Photos         []PhotoSnapshot
}

// PhotoSnapshot is one photo of a snapshot
type PhotoSnapshot struct {
	Payload  []byte
	Caption  string
	Metadata PhotoMetadata
}

func closePreview(p Preview) {
	if p == nil {
		return
	}
	if err := p.Close(); err != nil {
		log.Warn().Err(err).Str("uri", p.URI()).Msg("Failed to release photo preview")
	}
}

func moveItem[T any](s []T, from, to int) {
	v := s[from]
	if from < to {
		copy(s[from:to], s[from+1:to+1])
	} else {
		copy(s[to+1:from+1], s[to:from])
	}
	s[to] = v
}
