package httpserver

import (
	"net/http"

	"github.com/Clark-Hu/watchlist/internal/domain"
)

type genreListResponse struct {
	Items []domain.Genre `json:"items"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := s.sync.Search(r.Context(), r.URL.Query().Get("title"))
	if err != nil {
		s.respondServiceError(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, genreListResponse{Items: domain.Genres()})
}
