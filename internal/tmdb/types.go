package tmdb

// MediaType is the provider's media discriminator on search results.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// Valid reports whether the discriminator names a title that can be stored.
func (m MediaType) Valid() bool {
	return m == MediaMovie || m == MediaTV
}

// SearchResult is one candidate returned by the multi search endpoint.
// Movies carry Title/ReleaseDate, series carry Name/FirstAirDate.
type SearchResult struct {
	ID               int64     `json:"id"`
	MediaType        MediaType `json:"media_type"`
	Title            string    `json:"title,omitempty"`
	OriginalTitle    string    `json:"original_title,omitempty"`
	Name             string    `json:"name,omitempty"`
	OriginalName     string    `json:"original_name,omitempty"`
	Overview         string    `json:"overview"`
	PosterPath       string    `json:"poster_path,omitempty"`
	BackdropPath     string    `json:"backdrop_path,omitempty"`
	ReleaseDate      string    `json:"release_date,omitempty"`
	FirstAirDate     string    `json:"first_air_date,omitempty"`
	VoteAverage      float64   `json:"vote_average"`
	VoteCount        int       `json:"vote_count"`
	Popularity       float64   `json:"popularity"`
	GenreIDs         []int32   `json:"genre_ids"`
	OriginalLanguage string    `json:"original_language,omitempty"`
	Adult            bool      `json:"adult"`
}

// MultiSearchResult is a page of ranked search candidates.
type MultiSearchResult struct {
	Page         int            `json:"page"`
	Results      []SearchResult `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// Genre is an id/name pair as returned by the detail endpoints.
type Genre struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// MovieDetail is the subset of the movie detail payload the watchlist consumes.
type MovieDetail struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	PosterPath    string  `json:"poster_path"`
	ReleaseDate   string  `json:"release_date"`
	VoteAverage   float64 `json:"vote_average"`
	Genres        []Genre `json:"genres"`
	IMDBID        string  `json:"imdb_id"`
	Runtime       int     `json:"runtime"`
	Status        string  `json:"status"`
	Tagline       string  `json:"tagline"`
}

// SeriesDetail is the subset of the TV detail payload the watchlist consumes.
type SeriesDetail struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	OriginalName     string  `json:"original_name"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	FirstAirDate     string  `json:"first_air_date"`
	VoteAverage      float64 `json:"vote_average"`
	Genres           []Genre `json:"genres"`
	NumberOfSeasons  int     `json:"number_of_seasons"`
	NumberOfEpisodes int     `json:"number_of_episodes"`
	Status           string  `json:"status"`
}

// GenreIDs drops the names and keeps the codes.
func GenreIDs(genres []Genre) []int32 {
	ids := make([]int32, 0, len(genres))
	for _, g := range genres {
		ids = append(ids, g.ID)
	}
	return ids
}

type externalIDs struct {
	ID     int64   `json:"id"`
	IMDBID *string `json:"imdb_id"`
}
