// Package server exposes the file store over HTTP: bucket CRUD, streaming
// multipart ingestion, range-aware raw downloads, short links, API key
// administration and signed dashboard/upload links.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/filecrate/internal/storage"
	"github.com/dmitrymomot/filecrate/pkg/contentstore"
	"github.com/dmitrymomot/filecrate/pkg/requestid"
	"github.com/dmitrymomot/filecrate/pkg/token"
)

// Metadata is the slice of the metadata store the HTTP layer depends on.
// *storage.Store satisfies it; tests substitute an in-memory fake.
type Metadata interface {
	Ping(ctx context.Context) error

	CreateBucket(ctx context.Context, b storage.Bucket) error
	GetBucket(ctx context.Context, id string) (storage.Bucket, error)
	ListBuckets(ctx context.Context, keyHash string, now int64) ([]storage.Bucket, error)
	UpdateBucket(ctx context.Context, b storage.Bucket) error
	DeleteBucket(ctx context.Context, id string) error

	UpsertFile(ctx context.Context, f storage.File) (storage.File, error)
	ListFiles(ctx context.Context, bucketID string) ([]storage.File, error)
	GetFile(ctx context.Context, bucketID, path string) (storage.File, error)
	GetFileByShortID(ctx context.Context, shortID string) (storage.File, error)
	DeleteFile(ctx context.Context, bucketID, path string) error

	CreateAPIKey(ctx context.Context, k storage.APIKey) error
	TouchAPIKey(ctx context.Context, hash string, now int64) (storage.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]storage.APIKeyInfo, error)
	GetAPIKeyByPrefix(ctx context.Context, prefix string) (storage.APIKey, error)
	DeleteAPIKeyByPrefix(ctx context.Context, prefix string) error
}

// Config holds the HTTP layer's own settings.
type Config struct {
	Addr        string `env:"HTTP_ADDR" envDefault:":8080"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	AdminAPIKey string `env:"ADMIN_API_KEY,required"`
	TokenSecret string `env:"TOKEN_SECRET,required"`
}

// Server wires handlers to the metadata store, content store and token codec.
type Server struct {
	log      *slog.Logger
	db       Metadata
	files    *contentstore.Store
	tokens   *token.Codec
	baseURL  string
	adminKey string
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Server. All dependencies are explicit; there is no
// lazily-initialized shared state.
func New(cfg Config, log *slog.Logger, db Metadata, files *contentstore.Store, tokens *token.Codec, opts ...Option) *Server {
	s := &Server{
		log:      log,
		db:       db,
		files:    files,
		tokens:   tokens,
		baseURL:  trimTrailingSlash(cfg.BaseURL),
		adminKey: cfg.AdminAPIKey,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Get("/raw/{bucket}/*", s.handleRawDownload)
	r.Get("/s/{shortID}", s.handleShortLink)

	r.Route("/api", func(api chi.Router) {
		api.Route("/buckets", func(b chi.Router) {
			b.Post("/", s.handleCreateBucket)
			b.Get("/", s.handleListBuckets)
			b.Route("/{id}", func(one chi.Router) {
				one.Get("/", s.handleGetBucket)
				one.Patch("/", s.handlePatchBucket)
				one.Delete("/", s.handleDeleteBucket)
				one.Post("/upload", s.handleUpload)
				one.Delete("/files", s.handleDeleteFile)
				one.Post("/upload-link", s.handleUploadLink)
				one.Get("/summary", s.handleSummary)
			})
		})

		api.Route("/keys", func(k chi.Router) {
			k.Post("/", s.handleCreateKey)
			k.Get("/", s.handleListKeys)
			k.Delete("/{prefix}", s.handleDeleteKey)
		})

		api.Route("/admin", func(a chi.Router) {
			a.Get("/dashboard-link", s.handleDashboardLink)
			a.Post("/action", s.handleAdminAction)
		})

		api.Get("/s/{shortID}", s.handleShortLink)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.ErrorContext(r.Context(), "health check failed", "error", err)
		s.respondError(w, errInternal("Database unreachable"))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func trimTrailingSlash(u string) string {
	for len(u) > 0 && u[len(u)-1] == '/' {
		u = u[:len(u)-1]
	}
	return u
}
