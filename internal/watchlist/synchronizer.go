package watchlist

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Clark-Hu/watchlist/internal/domain"
	"github.com/Clark-Hu/watchlist/internal/repository"
	"github.com/Clark-Hu/watchlist/internal/tmdb"
)

// Provider is the subset of the metadata client the synchronizer calls.
type Provider interface {
	Search(ctx context.Context, query string) (*tmdb.MultiSearchResult, error)
	MovieDetails(ctx context.Context, id int64) (*tmdb.MovieDetail, error)
	SeriesDetails(ctx context.Context, id int64) (*tmdb.SeriesDetail, error)
	ExternalID(ctx context.Context, id int64, mediaType tmdb.MediaType) (string, error)
}

// Enricher derives a placeholder data URI from an image URL.
type Enricher interface {
	Derive(ctx context.Context, imageURL string) (string, error)
}

// Store persists entries. *repository.EntriesRepository implements it.
type Store interface {
	Create(ctx context.Context, params repository.EntryCreateParams) (domain.Entry, error)
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	List(ctx context.Context, filters repository.EntryListFilters) ([]domain.Entry, error)
	ListMissingPlaceholder(ctx context.Context, limit int) ([]domain.Entry, error)
	CountMissingPlaceholder(ctx context.Context) (int64, error)
	UpdateProviderFields(ctx context.Context, id string, fields repository.ProviderFields) (domain.Entry, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Entry, error)
	Delete(ctx context.Context, id string) error
}

// Config tunes the synchronizer.
type Config struct {
	Images      tmdb.ImageBase
	BatchSize   int
	Concurrency int
	Logger      *log.Logger
}

// Synchronizer coordinates the provider, the enricher and the store.
type Synchronizer struct {
	provider    Provider
	enricher    Enricher
	store       Store
	images      tmdb.ImageBase
	batchSize   int
	concurrency int
	logger      *log.Logger
}

// NewSynchronizer wires the workflow. Zero config values fall back to defaults.
func NewSynchronizer(provider Provider, enricher Enricher, store Store, cfg Config) *Synchronizer {
	if cfg.Images == "" {
		cfg.Images = tmdb.DefaultImageBase
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Synchronizer{
		provider:    provider,
		enricher:    enricher,
		store:       store,
		images:      cfg.Images,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// Search proxies a free-text provider search.
func (s *Synchronizer) Search(ctx context.Context, query string) (*tmdb.MultiSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("title", "must not be empty")
	}
	return s.provider.Search(ctx, query)
}

// CreateFromSearchResult stores a new entry built from a selected search
// result. The IMDb id is resolved best-effort.
func (s *Synchronizer) CreateFromSearchResult(ctx context.Context, result tmdb.SearchResult, status domain.Status) (domain.Entry, error) {
	mediaType, err := entryType(result.MediaType)
	if err != nil {
		return domain.Entry{}, err
	}
	if result.ID <= 0 {
		return domain.Entry{}, invalid("id", "must be positive")
	}
	if !status.Valid() {
		return domain.Entry{}, invalid("status", "unknown status %q", status)
	}
	if result.VoteAverage < 0 || result.VoteAverage > 10 {
		return domain.Entry{}, invalid("vote_average", "must be between 0 and 10")
	}

	title, rawDate := result.Title, result.ReleaseDate
	if mediaType == domain.MediaTypeSeries {
		title, rawDate = result.Name, result.FirstAirDate
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Entry{}, invalid("title", "search result has no title")
	}

	imdbID, err := s.provider.ExternalID(ctx, result.ID, result.MediaType)
	if err != nil {
		s.logger.Printf("watchlist: imdb id lookup for %s %d failed: %v", result.MediaType, result.ID, err)
		imdbID = ""
	}

	entry, err := s.store.Create(ctx, repository.EntryCreateParams{
		Title:       title,
		Type:        mediaType,
		Date:        domain.ParseDate(rawDate),
		TMDBID:      result.ID,
		IMDBID:      imdbID,
		Description: result.Overview,
		Status:      status,
		Poster:      result.PosterPath,
		Rating:      result.VoteAverage,
		Genres:      result.GenreIDs,
	})
	if err != nil {
		return domain.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	s.logger.Printf("watchlist: created %s %q (%s)", entry.Type, entry.Title, entry.ID)
	return entry, nil
}

// Refresh reloads a stored entry using its own provider key.
func (s *Synchronizer) Refresh(ctx context.Context, id string) (domain.Entry, error) {
	entry, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Entry{}, err
	}
	return s.RefreshEntry(ctx, entry.ID, entry.TMDBID, entry.Type)
}

// RefreshEntry overwrites every provider-derived field of the entry and
// regenerates its placeholder. Nothing is written unless both the detail
// fetch and the placeholder succeed.
func (s *Synchronizer) RefreshEntry(ctx context.Context, id string, tmdbID int64, mediaType domain.MediaType) (domain.Entry, error) {
	if tmdbID <= 0 {
		return domain.Entry{}, invalid("tmdbId", "must be positive")
	}
	desc, err := descriptorFor(mediaType)
	if err != nil {
		return domain.Entry{}, err
	}

	d, err := desc.fetchDetail(ctx, s.provider, tmdbID)
	if err != nil {
		return domain.Entry{}, err
	}
	if strings.TrimSpace(d.Poster) == "" {
		return domain.Entry{}, fmt.Errorf("%w: %s %d has no poster", ErrEnrichmentFailed, desc.providerType, tmdbID)
	}

	blur, err := s.enricher.Derive(ctx, s.images.URL(tmdb.SizeOriginal, d.Poster))
	if err != nil {
		return domain.Entry{}, err
	}
	if blur == "" {
		return domain.Entry{}, fmt.Errorf("%w: empty placeholder for %s", ErrEnrichmentFailed, d.Poster)
	}

	updated, err := s.store.UpdateProviderFields(ctx, id, repository.ProviderFields{
		Title:       d.Title,
		Poster:      d.Poster,
		PosterBlur:  blur,
		Date:        d.Date,
		Rating:      d.Rating,
		Description: d.Description,
		Genres:      d.Genres,
	})
	if err != nil {
		return domain.Entry{}, err
	}
	return updated, nil
}

// UpdateStatus changes only the viewing status.
func (s *Synchronizer) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Entry, error) {
	if !status.Valid() {
		return domain.Entry{}, invalid("status", "unknown status %q", status)
	}
	return s.store.UpdateStatus(ctx, id, status)
}

// Delete removes an entry.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Printf("watchlist: deleted %s", id)
	return nil
}

// Get returns one entry.
func (s *Synchronizer) Get(ctx context.Context, id string) (domain.Entry, error) {
	return s.store.GetByID(ctx, id)
}

// List returns every entry matching filters, ordered by date then title, both descending.
func (s *Synchronizer) List(ctx context.Context, filters repository.EntryListFilters) ([]domain.Entry, error) {
	return s.store.List(ctx, filters)
}
