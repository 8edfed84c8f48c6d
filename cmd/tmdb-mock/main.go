package main

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"flag"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/Clark-Hu/watchlist/internal/tmdb"
)

//go:embed fixtures.json
var defaultFixtures []byte

type seriesEntry struct {
	tmdb.SeriesDetail
	IMDBID string `json:"imdb_id"`
}

type fixtures struct {
	Movies []tmdb.MovieDetail `json:"movies"`
	Series []seriesEntry      `json:"series"`
}

type catalog struct {
	movies map[int64]tmdb.MovieDetail
	series map[int64]seriesEntry
	order  []tmdb.SearchResult
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "", "path to a fixture file (defaults to the built-in catalog)")
		token   = flag.String("token", "", "required bearer token; empty accepts any")
		logReqs = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	raw := defaultFixtures
	if *data != "" {
		file, err := os.ReadFile(*data)
		if err != nil {
			log.Fatalf("read mock data: %v", err)
		}
		raw = file
	}

	var payload fixtures
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}
	cat := buildCatalog(payload)

	api := http.NewServeMux()
	api.HandleFunc("GET /3/search/multi", func(w http.ResponseWriter, r *http.Request) {
		results := cat.search(r.URL.Query().Get("query"))
		writeJSON(w, tmdb.MultiSearchResult{Page: 1, Results: results, TotalPages: 1, TotalResults: len(results)})
	})
	api.HandleFunc("GET /3/movie/{id}", func(w http.ResponseWriter, r *http.Request) {
		m, ok := cat.movies[pathID(r)]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, m)
	})
	api.HandleFunc("GET /3/tv/{id}", func(w http.ResponseWriter, r *http.Request) {
		s, ok := cat.series[pathID(r)]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, s.SeriesDetail)
	})
	api.HandleFunc("GET /3/movie/{id}/external_ids", func(w http.ResponseWriter, r *http.Request) {
		m, ok := cat.movies[pathID(r)]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, externalIDs(m.ID, m.IMDBID))
	})
	api.HandleFunc("GET /3/tv/{id}/external_ids", func(w http.ResponseWriter, r *http.Request) {
		s, ok := cat.series[pathID(r)]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, externalIDs(s.ID, s.IMDBID))
	})

	mux := http.NewServeMux()
	mux.Handle("/3/", requireToken(*token, api))
	mux.HandleFunc("GET /t/p/{size}/{file}", servePoster)

	var handler http.Handler = mux
	if *logReqs {
		handler = logRequests(mux)
	}

	addr := ":" + *port
	log.Printf("mock tmdb listening on %s (%d movies, %d series)", addr, len(cat.movies), len(cat.series))
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func buildCatalog(payload fixtures) catalog {
	cat := catalog{
		movies: make(map[int64]tmdb.MovieDetail, len(payload.Movies)),
		series: make(map[int64]seriesEntry, len(payload.Series)),
	}
	for _, m := range payload.Movies {
		cat.movies[m.ID] = m
		cat.order = append(cat.order, tmdb.SearchResult{
			ID:            m.ID,
			MediaType:     tmdb.MediaMovie,
			Title:         m.Title,
			OriginalTitle: m.OriginalTitle,
			Overview:      m.Overview,
			PosterPath:    m.PosterPath,
			ReleaseDate:   m.ReleaseDate,
			VoteAverage:   m.VoteAverage,
			GenreIDs:      tmdb.GenreIDs(m.Genres),
		})
	}
	for _, s := range payload.Series {
		cat.series[s.ID] = s
		cat.order = append(cat.order, tmdb.SearchResult{
			ID:           s.ID,
			MediaType:    tmdb.MediaTV,
			Name:         s.Name,
			OriginalName: s.OriginalName,
			Overview:     s.Overview,
			PosterPath:   s.PosterPath,
			FirstAirDate: s.FirstAirDate,
			VoteAverage:  s.VoteAverage,
			GenreIDs:     tmdb.GenreIDs(s.Genres),
		})
	}
	return cat
}

func (c catalog) search(query string) []tmdb.SearchResult {
	query = strings.ToLower(strings.TrimSpace(query))
	results := make([]tmdb.SearchResult, 0)
	if query == "" {
		return results
	}
	for _, r := range c.order {
		if strings.Contains(strings.ToLower(r.Title+" "+r.Name), query) {
			results = append(results, r)
		}
	}
	return results
}

func externalIDs(id int64, imdbID string) map[string]interface{} {
	out := map[string]interface{}{"id": id, "imdb_id": nil}
	if imdbID != "" {
		out["imdb_id"] = imdbID
	}
	return out
}

// servePoster renders a flat 2:3 poster whose colour is derived from the path,
// so the same URL always yields the same bytes.
func servePoster(w http.ResponseWriter, r *http.Request) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(r.PathValue("file")))
	sum := h.Sum32()

	img := image.NewNRGBA(image.Rect(0, 0, 60, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum>>16) ^ uint8(y*2), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func pathID(r *http.Request) int64 {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func requireToken(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key: You must be granted a valid key.","success":false}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found.","success":false}`))
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
