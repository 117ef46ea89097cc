package draft

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var ErrPreviewReleased = errors.New("preview already released")

var previewSeq atomic.Int64

// BlobPreview is an in-memory preview resource. Close releases the backing
// blob; the URI stops resolving afterwards.
type BlobPreview struct {
	uri  string
	data []byte
}

// NewBlobPreview creates a preview backed by an in-memory blob
func NewBlobPreview(data []byte) *BlobPreview {
	return &BlobPreview{
		uri:  fmt.Sprintf("blob:photo-%d", previewSeq.Add(1)),
		data: data,
	}
}

// URI returns the preview address
func (p *BlobPreview) URI() string {
	return p.uri
}

// Bytes returns the blob contents, or an error once released
func (p *BlobPreview) Bytes() ([]byte, error) {
	if p.data == nil {
		return nil, ErrPreviewReleased
	}
	return p.data, nil
}

// Close releases the backing blob. Closing twice is not an error.
func (p *BlobPreview) Close() error {
	p.data = nil
	return nil
}

// Released reports whether the blob has been released
func (p *BlobPreview) Released() bool {
	return p.data == nil
}
