package domain

import "sort"

// Genre is a provider genre code with its display label.
type Genre struct {
	ID    int32  `json:"id"`
	Label string `json:"label"`
}

// genreLabels covers both the movie and the TV genre lists of the provider.
var genreLabels = map[int32]string{
	12:    "Adventure",
	14:    "Fantasy",
	16:    "Animation",
	18:    "Drama",
	27:    "Horror",
	28:    "Action",
	35:    "Comedy",
	36:    "History",
	37:    "Western",
	53:    "Thriller",
	80:    "Crime",
	99:    "Documentary",
	878:   "Science Fiction",
	9648:  "Mystery",
	10402: "Music",
	10749: "Romance",
	10751: "Family",
	10752: "War",
	10759: "Action & Adventure",
	10762: "Kids",
	10763: "News",
	10764: "Reality",
	10765: "Sci-Fi & Fantasy",
	10766: "Soap",
	10767: "Talk",
	10768: "War & Politics",
	10770: "TV Movie",
}

// GenreLabel returns the label for a genre code, or "" when unknown.
func GenreLabel(id int32) string {
	return genreLabels[id]
}

// Genres returns the catalog ordered by code.
func Genres() []Genre {
	out := make([]Genre, 0, len(genreLabels))
	for id, label := range genreLabels {
		out = append(out, Genre{ID: id, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
