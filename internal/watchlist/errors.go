package watchlist

import (
	"fmt"

	"github.com/Clark-Hu/watchlist/internal/placeholder"
	"github.com/Clark-Hu/watchlist/internal/repository"
	"github.com/Clark-Hu/watchlist/internal/tmdb"
)

// Error kinds surfaced by the synchronizer. They alias the sentinels of the
// packages that produce them so errors.Is works across layers.
var (
	ErrProviderUnavailable = tmdb.ErrUnavailable
	ErrProviderTimeout     = tmdb.ErrTimeout
	ErrEnrichmentFailed    = placeholder.ErrEnrichmentFailed
	ErrNotFound            = repository.ErrNotFound
)

// ValidationError reports caller input that was rejected before any I/O.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
