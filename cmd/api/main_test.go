package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/keepsake/keepsake-api/internal/config"
	"github.com/keepsake/keepsake-api/internal/domain/music"
	"github.com/keepsake/keepsake-api/internal/domain/photo"
	"github.com/keepsake/keepsake-api/internal/domain/publish"
	"github.com/keepsake/keepsake-api/internal/domain/scrapbook"
	"github.com/keepsake/keepsake-api/internal/pkg/imaging"
	"github.com/keepsake/keepsake-api/internal/pkg/ratelimit"
	"github.com/keepsake/keepsake-api/internal/pkg/token"
)

// ---------- in-memory backends ----------

type memBookRepo struct {
	mu    sync.Mutex
	books map[string]*scrapbook.Scrapbook
}

func newMemBookRepo() *memBookRepo {
	return &memBookRepo{books: map[string]*scrapbook.Scrapbook{}}
}

func (r *memBookRepo) Create(ctx context.Context, s *scrapbook.Scrapbook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.books[s.Code]; dup {
		return scrapbook.ErrCodeCollision
	}
	copied := *s
	r.books[s.Code] = &copied
	return nil
}

func (r *memBookRepo) GetByCode(ctx context.Context, code string) (*scrapbook.Scrapbook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.books[code]
	if !ok {
		return nil, scrapbook.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *memBookRepo) DeleteByCode(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.books, code)
	return nil
}

func (r *memBookRepo) PublishByCode(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.books[code]
	if !ok {
		return scrapbook.ErrNotFound
	}
	s.IsPublished = true
	return nil
}

func (r *memBookRepo) DeleteStaleDrafts(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (r *memBookRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.books)
}

type memPhotoRepo struct {
	mu     sync.Mutex
	photos []*photo.Photo
}

func (r *memPhotoRepo) Create(ctx context.Context, p *photo.Photo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *p
	r.photos = append(r.photos, &copied)
	return nil
}

func (r *memPhotoRepo) ListByScrapbook(ctx context.Context, scrapbookID uuid.UUID) ([]*photo.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*photo.Photo
	for _, p := range r.photos {
		if p.ScrapbookID == scrapbookID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: map[string][]byte{}}
}

func (s *memBlobStore) Put(ctx context.Context, key string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *memBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *memBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *memBlobStore) GetURL(key string) string { return "https://photos.test/" + key }

// ---------- wiring ----------

type testEnv struct {
	router chi.Router
	books  *memBookRepo
}

func newTestEnv(t *testing.T, limiter ratelimit.Limiter) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AllowedOrigins:   []string{"*"},
		LocalStoragePath: t.TempDir(),
	}

	books := newMemBookRepo()
	photos := &memPhotoRepo{}
	store := newMemBlobStore()

	tokenService := token.NewService("test-secret", time.Hour)
	scrapbookService := scrapbook.NewService(books, photos, scrapbook.DefaultCodeLength)
	processor := imaging.NewProcessor(imaging.DefaultConfig())

	hub := publish.NewHub()
	publisher := publish.NewPublisher(scrapbookService, photos, store, processor, hub)

	scrapbookHandler := scrapbook.NewHandler(scrapbookService, tokenService)
	publishHandler := publish.NewHandler(publisher, hub)
	musicHandler := music.NewHandler()

	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter(100, time.Hour)
	}

	return &testEnv{
		router: newRouter(cfg, scrapbookHandler, publishHandler, musicHandler, limiter),
		books:  books,
	}
}

func publishBody(t *testing.T, title string, photoCount int) (*bytes.Buffer, string) {
	t.Helper()

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if title != "" {
		w.WriteField("title", title)
	}
	for i := 0; i < photoCount; i++ {
		part, err := w.CreateFormFile("photos", "page.png")
		if err != nil {
			t.Fatalf("create photo part: %v", err)
		}
		part.Write(img.Bytes())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func createScrapbook(t *testing.T, env *testEnv) string {
	t.Helper()

	body, contentType := publishBody(t, "Us", 2)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrapbooks", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("POST /api/v1/scrapbooks = %d, want 201; body: %s", rr.Code, rr.Body.String())
	}

	var envelope struct {
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Code == "" {
		t.Fatalf("no share code in response: %s", rr.Body.String())
	}
	return envelope.Data.Code
}

// ---------- tests ----------

func TestRouterPublishesAndServesScrapbook(t *testing.T) {
	env := newTestEnv(t, nil)

	code := createScrapbook(t, env)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/scrapbooks/"+code, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET by code = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}

	var envelope struct {
		Data struct {
			Photos []struct {
				Order int `json:"order"`
			} `json:"photos"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data.Photos) != 2 {
		t.Fatalf("photo count = %d, want 2", len(envelope.Data.Photos))
	}
	for i, p := range envelope.Data.Photos {
		if p.Order != i {
			t.Fatalf("photo %d has order %d", i, p.Order)
		}
	}

	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/scrapbooks/"+code, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d, want 204", rr.Code)
	}

	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/scrapbooks/"+code, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("GET after delete = %d, want 404", rr.Code)
	}
}

func TestRouterAppliesCreateRateLimit(t *testing.T) {
	env := newTestEnv(t, ratelimit.NewMemoryLimiter(1, time.Hour))

	createScrapbook(t, env)

	body, contentType := publishBody(t, "Again", 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrapbooks", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second create = %d, want 429", rr.Code)
	}
	if env.books.count() != 1 {
		t.Fatalf("%d scrapbooks stored, limited request must create none", env.books.count())
	}
}

func TestRouterServesAncillaryEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/health", "/api/v1/ping", "/api/v1/music"} {
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", path, rr.Code)
		}
	}
}

func TestRouterStreamsPublishProgress(t *testing.T) {
	env := newTestEnv(t, nil)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	attemptID := uuid.New().String()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/publish?attempt=" + attemptID
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("websocket dial failed (status %d): %v", status, err)
	}
	defer conn.Close()

	// Give the subscription a moment to land before publishing
	time.Sleep(50 * time.Millisecond)

	body, contentType := publishBody(t, "Us", 1)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/scrapbooks", body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Publish-Attempt", attemptID)
	httpResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("publish request: %v", err)
	}
	httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusCreated {
		t.Fatalf("publish = %d, want 201", httpResp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var states []string
	for {
		var ev struct {
			AttemptID string `json:"attempt_id"`
			State     string `json:"state"`
		}
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read progress event (saw %v): %v", states, err)
		}
		if ev.AttemptID != attemptID {
			t.Fatalf("event for attempt %q, want %q", ev.AttemptID, attemptID)
		}
		states = append(states, ev.State)
		if ev.State == "published" {
			break
		}
	}
	if states[0] != "validating" {
		t.Fatalf("first state = %q, want validating (full sequence %v)", states[0], states)
	}
}
