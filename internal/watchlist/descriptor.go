package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Clark-Hu/watchlist/internal/domain"
	"github.com/Clark-Hu/watchlist/internal/tmdb"
)

// detail is the provider record reduced to the fields a refresh overwrites.
type detail struct {
	Title       string
	Date        *time.Time
	Poster      string
	Rating      float64
	Description string
	Genres      []int32
}

// descriptor captures everything that differs between media types.
type descriptor struct {
	providerType tmdb.MediaType
	fetch        func(ctx context.Context, p Provider, id int64) (detail, error)
}

var descriptors = map[domain.MediaType]descriptor{
	domain.MediaTypeMovie: {
		providerType: tmdb.MediaMovie,
		fetch: func(ctx context.Context, p Provider, id int64) (detail, error) {
			m, err := p.MovieDetails(ctx, id)
			if err != nil {
				return detail{}, err
			}
			return detail{
				Title:       m.Title,
				Date:        domain.ParseDate(m.ReleaseDate),
				Poster:      m.PosterPath,
				Rating:      m.VoteAverage,
				Description: m.Overview,
				Genres:      tmdb.GenreIDs(m.Genres),
			}, nil
		},
	},
	domain.MediaTypeSeries: {
		providerType: tmdb.MediaTV,
		fetch: func(ctx context.Context, p Provider, id int64) (detail, error) {
			s, err := p.SeriesDetails(ctx, id)
			if err != nil {
				return detail{}, err
			}
			return detail{
				Title:       s.Name,
				Date:        domain.ParseDate(s.FirstAirDate),
				Poster:      s.PosterPath,
				Rating:      s.VoteAverage,
				Description: s.Overview,
				Genres:      tmdb.GenreIDs(s.Genres),
			}, nil
		},
	},
}

func descriptorFor(t domain.MediaType) (descriptor, error) {
	d, ok := descriptors[t]
	if !ok {
		return descriptor{}, invalid("type", "unknown media type %q", t)
	}
	return d, nil
}

// entryType maps the provider discriminator onto the stored media type.
func entryType(m tmdb.MediaType) (domain.MediaType, error) {
	switch m {
	case tmdb.MediaMovie:
		return domain.MediaTypeMovie, nil
	case tmdb.MediaTV:
		return domain.MediaTypeSeries, nil
	default:
		return "", invalid("mediaType", "unsupported media type %q", m)
	}
}

// fetchDetail loads the provider record. A provider 404 means the stored key
// no longer resolves, which is reported as unavailable rather than as a
// missing watchlist entry.
func (d descriptor) fetchDetail(ctx context.Context, p Provider, id int64) (detail, error) {
	out, err := d.fetch(ctx, p, id)
	if err != nil {
		if errors.Is(err, tmdb.ErrNotFound) {
			return detail{}, fmt.Errorf("%w: %s %d: %w", ErrProviderUnavailable, d.providerType, id, err)
		}
		return detail{}, err
	}
	return out, nil
}
