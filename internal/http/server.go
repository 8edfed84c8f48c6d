package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/watchlist/internal/config"
	"github.com/Clark-Hu/watchlist/internal/domain"
	"github.com/Clark-Hu/watchlist/internal/repository"
	"github.com/Clark-Hu/watchlist/internal/store"
	"github.com/Clark-Hu/watchlist/internal/tmdb"
	"github.com/Clark-Hu/watchlist/internal/watchlist"
)

// Synchronizer is the watchlist workflow the handlers drive.
type Synchronizer interface {
	Search(ctx context.Context, query string) (*tmdb.MultiSearchResult, error)
	CreateFromSearchResult(ctx context.Context, result tmdb.SearchResult, status domain.Status) (domain.Entry, error)
	RefreshEntry(ctx context.Context, id string, tmdbID int64, mediaType domain.MediaType) (domain.Entry, error)
	BulkRefreshStale(ctx context.Context, limit int) (watchlist.BatchResult, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Entry, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Entry, error)
	List(ctx context.Context, filters repository.EntryListFilters) ([]domain.Entry, error)
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	store   *store.Store
	sync    Synchronizer
	images  tmdb.ImageBase
	limiter *ipRateLimiter
	logger  *log.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, sync Synchronizer, logger *log.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if logger == nil {
		logger = log.Default()
	}
	images := tmdb.ImageBase(cfg.TMDBImageURL)
	if images == "" {
		images = tmdb.DefaultImageBase
	}

	s := &Server{
		cfg:     cfg,
		store:   st,
		sync:    sync,
		images:  images,
		limiter: newIPRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		logger:  logger,
		router:  r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/genres", s.handleListGenres)
	s.router.Route("/watchlist", func(r chi.Router) {
		r.Get("/", s.handleListEntries)
		r.Get("/{id}", s.handleGetEntry)
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit, s.requireAuth)
			r.Post("/", s.handleCreateEntry)
			r.Post("/refresh", s.handleBulkRefresh)
			r.Post("/{id}/refresh", s.handleRefreshEntry)
			r.Patch("/{id}/status", s.handleUpdateStatus)
			r.Delete("/{id}", s.handleDeleteEntry)
		})
	})
	s.router.With(s.rateLimit, s.requireAuth).Get("/tmdb/search", s.handleSearch)
}

// Start boots the HTTP server and blocks until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and releases the limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

type healthResponse struct {
	Status string      `json:"status"`
	DB     *poolHealth `json:"db,omitempty"`
}

type poolHealth struct {
	TotalConns    int32 `json:"totalConns"`
	IdleConns     int32 `json:"idleConns"`
	AcquiredConns int32 `json:"acquiredConns"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unreachable")
		return
	}
	resp := healthResponse{Status: "ok"}
	if stat := s.store.Stats(); stat != nil {
		resp.DB = &poolHealth{
			TotalConns:    stat.TotalConns(),
			IdleConns:     stat.IdleConns(),
			AcquiredConns: stat.AcquiredConns(),
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}
