package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MediaType distinguishes movies from series. It decides which provider
// endpoint is used when an entry is refreshed.
type MediaType string

const (
	MediaTypeMovie  MediaType = "MOVIE"
	MediaTypeSeries MediaType = "SERIES"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeSeries
}

// ParseMediaType accepts the stored form (MOVIE, SERIES) case-insensitively.
func ParseMediaType(raw string) (MediaType, error) {
	t := MediaType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown media type %q", raw)
	}
	return t, nil
}

// Status is the user's viewing state for an entry.
type Status string

const (
	StatusUpcoming   Status = "UPCOMING"
	StatusPending    Status = "PENDING"
	StatusWatching   Status = "WATCHING"
	StatusUnfinished Status = "UNFINISHED"
	StatusFinished   Status = "FINISHED"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusUpcoming, StatusPending, StatusWatching, StatusUnfinished, StatusFinished}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus accepts any casing of a known status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// Entry is one stored watchlist row.
type Entry struct {
	ID          string
	Title       string
	Type        MediaType
	Date        *time.Time
	TMDBID      int64
	IMDBID      string
	Description string
	Status      Status
	Poster      string
	PosterBlur  *string
	Rating      float64
	Genres      []int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeGenres returns the genre set sorted and without duplicates.
func NormalizeGenres(genres []int32) []int32 {
	out := make([]int32, 0, len(genres))
	seen := make(map[int32]struct{}, len(genres))
	for _, g := range genres {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseDate reads a provider date (YYYY-MM-DD). Empty or malformed input
// yields nil since release dates are optional.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}

// DateLayout is the wire format of entry dates.
const DateLayout = "2006-01-02"
