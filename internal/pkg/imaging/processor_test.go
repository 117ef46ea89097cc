package imaging

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestProcessKeepsSmallImageDimensions(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	result, err := p.Process(bytes.NewReader(encodePNG(t, 640, 480)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.Width != 640 || result.Height != 480 {
		t.Fatalf("dimensions = %dx%d, want 640x480 untouched", result.Width, result.Height)
	}
	if result.ContentType != "image/png" {
		t.Fatalf("content type = %q, want image/png", result.ContentType)
	}
	if len(result.Data) == 0 {
		t.Fatal("empty output data")
	}
}

func TestProcessDownscalesOversizedImage(t *testing.T) {
	p := NewProcessor(Config{MaxWidth: 100, MaxHeight: 100, Quality: 85})

	result, err := p.Process(bytes.NewReader(encodeJPEG(t, 400, 200)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.Width != 100 || result.Height != 50 {
		t.Fatalf("dimensions = %dx%d, want 100x50 (fit preserves aspect ratio)", result.Width, result.Height)
	}
	if result.ContentType != "image/jpeg" {
		t.Fatalf("content type = %q, want image/jpeg", result.ContentType)
	}

	decoded, _, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if decoded.Bounds().Dx() != 100 {
		t.Fatalf("encoded width = %d, want 100", decoded.Bounds().Dx())
	}
}

func TestProcessRejectsNonImage(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	if _, err := p.Process(strings.NewReader("definitely not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestValidateType(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "d.gif"} {
		if !ValidateType(name) {
			t.Fatalf("ValidateType(%q) = false, want true", name)
		}
	}
	// webp has no registered decoder or encoder; accepting it would turn a
	// valid-looking upload into a mid-publish failure
	for _, name := range []string{"a.txt", "b.pdf", "noext", "c.jpg.exe", "e.webp"} {
		if ValidateType(name) {
			t.Fatalf("ValidateType(%q) = true, want false", name)
		}
	}
}

func TestProcessKeepsGIFFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}

	p := NewProcessor(DefaultConfig())
	result, err := p.Process(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.ContentType != "image/gif" {
		t.Fatalf("content type = %q, want image/gif", result.ContentType)
	}
	if _, format, err := image.Decode(bytes.NewReader(result.Data)); err != nil || format != "gif" {
		t.Fatalf("output format = %q (err %v), want gif bytes matching the content type", format, err)
	}
}
