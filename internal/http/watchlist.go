package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/watchlist/internal/domain"
	"github.com/Clark-Hu/watchlist/internal/repository"
	"github.com/Clark-Hu/watchlist/internal/tmdb"
)

const maxBulkLimit = 500

type entryCreateRequest struct {
	Result json.RawMessage `json:"result"`
	Status string          `json:"status"`
}

type entryRefreshRequest struct {
	TMDBID int64  `json:"tmdbId"`
	Type   string `json:"type"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

type entryListResponse struct {
	Items []entryResponse `json:"items"`
	Count int             `json:"count"`
}

type entryResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Type         string    `json:"type"`
	Date         *string   `json:"date"`
	TMDBID       int64     `json:"tmdbId"`
	IMDBID       string    `json:"imdbId"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	Poster       string    `json:"poster"`
	PosterBlur   *string   `json:"posterBlur"`
	Rating       float64   `json:"rating"`
	Genres       []int32   `json:"genres"`
	GenreLabels  []string  `json:"genreLabels"`
	PosterURL    string    `json:"posterUrl,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	IMDBURL      string    `json:"imdbUrl,omitempty"`
	TMDBURL      string    `json:"tmdbUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	filters, err := buildEntryFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	entries, err := s.sync.List(r.Context(), filters)
	if err != nil {
		s.respondServiceError(w, "list entries", err)
		return
	}

	items := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, s.toEntryResponse(entry))
	}
	s.respondJSON(w, http.StatusOK, entryListResponse{Items: items, Count: len(items)})
}

func buildEntryFilters(query url.Values) (repository.EntryListFilters, error) {
	var filters repository.EntryListFilters

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("status")); val != "" {
		status, err := domain.ParseStatus(val)
		if err != nil {
			return filters, fmt.Errorf("invalid status value")
		}
		filters.Status = &status
	}
	if val := strings.TrimSpace(query.Get("type")); val != "" {
		mediaType, err := domain.ParseMediaType(val)
		if err != nil {
			return filters, fmt.Errorf("invalid type value")
		}
		filters.Type = &mediaType
	}
	if val := strings.TrimSpace(query.Get("genre")); val != "" {
		genre, err := strconv.ParseInt(val, 10, 32)
		if err != nil || genre <= 0 {
			return filters, fmt.Errorf("invalid genre value")
		}
		g := int32(genre)
		filters.Genre = &g
	}
	return filters, nil
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.sync.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, "get entry", err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.toEntryResponse(entry))
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if len(req.Result) == 0 || string(req.Result) == "null" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "result is required")
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status must be one of UPCOMING, PENDING, WATCHING, UNFINISHED, FINISHED")
		return
	}

	// Search results are passed through as returned by the provider, so
	// fields this service does not model are tolerated here.
	var result tmdb.SearchResult
	if err := json.Unmarshal(req.Result, &result); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	entry, err := s.sync.CreateFromSearchResult(r.Context(), result, status)
	if err != nil {
		s.respondServiceError(w, "create entry", err)
		return
	}

	w.Header().Set("Location", "/watchlist/"+entry.ID)
	s.respondJSON(w, http.StatusCreated, s.toEntryResponse(entry))
}

func (s *Server) handleRefreshEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.sync.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, "refresh entry", err)
		return
	}

	var req entryRefreshRequest
	if err := decodeJSONBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.respondDecodeError(w, err)
		return
	}
	if req.TMDBID != 0 && req.TMDBID != entry.TMDBID {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "tmdbId does not match the stored entry")
		return
	}
	if req.Type != "" {
		mediaType, err := domain.ParseMediaType(req.Type)
		if err != nil || mediaType != entry.Type {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type does not match the stored entry")
			return
		}
	}

	updated, err := s.sync.RefreshEntry(r.Context(), entry.ID, entry.TMDBID, entry.Type)
	if err != nil {
		s.respondServiceError(w, "refresh entry", err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.toEntryResponse(updated))
}

func (s *Server) handleBulkRefresh(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if val := strings.TrimSpace(r.URL.Query().Get("limit")); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed <= 0 || parsed > maxBulkLimit {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("limit must be between 1 and %d", maxBulkLimit))
			return
		}
		limit = parsed
	}

	ctx := r.Context()
	if budget := s.bulkRefreshBudget(); budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	result, err := s.sync.BulkRefreshStale(ctx, limit)
	if err != nil {
		s.respondServiceError(w, "bulk refresh", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// bulkRefreshBudget bounds a bulk run so its summary is written before the
// server write timeout closes the connection. Zero means no bound.
func (s *Server) bulkRefreshBudget() time.Duration {
	write := time.Duration(s.cfg.WriteTimeoutSecs) * time.Second
	if write <= 0 {
		return 0
	}
	margin := write / 4
	if margin > 10*time.Second {
		margin = 10 * time.Second
	}
	return write - margin
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status must be one of UPCOMING, PENDING, WATCHING, UNFINISHED, FINISHED")
		return
	}

	entry, err := s.sync.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		s.respondServiceError(w, "update status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.toEntryResponse(entry))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.sync.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toEntryResponse(entry domain.Entry) entryResponse {
	resp := entryResponse{
		ID:           entry.ID,
		Title:        entry.Title,
		Type:         string(entry.Type),
		TMDBID:       entry.TMDBID,
		IMDBID:       entry.IMDBID,
		Description:  entry.Description,
		Status:       string(entry.Status),
		Poster:       entry.Poster,
		PosterBlur:   entry.PosterBlur,
		Rating:       roundToOneDecimal(entry.Rating),
		Genres:       entry.Genres,
		GenreLabels:  make([]string, 0, len(entry.Genres)),
		PosterURL:    s.images.URL(tmdb.SizeLarge, entry.Poster),
		ThumbnailURL: s.images.URL(tmdb.SizeThumbnail, entry.Poster),
		TMDBURL:      tmdbPageURL(entry.Type, entry.TMDBID),
		CreatedAt:    entry.CreatedAt,
		UpdatedAt:    entry.UpdatedAt,
	}
	if resp.Genres == nil {
		resp.Genres = []int32{}
	}
	for _, g := range resp.Genres {
		label := domain.GenreLabel(g)
		if label == "" {
			label = strconv.Itoa(int(g))
		}
		resp.GenreLabels = append(resp.GenreLabels, label)
	}
	if entry.Date != nil {
		d := entry.Date.Format(domain.DateLayout)
		resp.Date = &d
	}
	if entry.IMDBID != "" {
		resp.IMDBURL = "https://www.imdb.com/title/" + url.PathEscape(entry.IMDBID)
	}
	return resp
}

func tmdbPageURL(mediaType domain.MediaType, id int64) string {
	kind := "movie"
	if mediaType == domain.MediaTypeSeries {
		kind = "tv"
	}
	return fmt.Sprintf("https://www.themoviedb.org/%s/%d", kind, id)
}
