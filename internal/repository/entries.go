package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/watchlist/internal/domain"
)

// EntriesRepository provides persistence helpers for watchlist entries.
type EntriesRepository struct {
	pool *pgxpool.Pool
}

const entryColumns = `
    id::text,
    title,
    type,
    date,
    tmdb_id,
    imdb_id,
    description,
    status,
    poster,
    poster_blur,
    rating,
    genres,
    created_at,
    updated_at
`

// EntryCreateParams bundles the fields required to create an entry.
type EntryCreateParams struct {
	Title       string
	Type        domain.MediaType
	Date        *time.Time
	TMDBID      int64
	IMDBID      string
	Description string
	Status      domain.Status
	Poster      string
	Rating      float64
	Genres      []int32
}

// ProviderFields are the columns overwritten when an entry is refreshed from
// the provider. Poster and PosterBlur are always written together.
type ProviderFields struct {
	Title       string
	Poster      string
	PosterBlur  string
	Date        *time.Time
	Rating      float64
	Description string
	Genres      []int32
}

// EntryListFilters narrows the full listing. Nil fields are ignored.
type EntryListFilters struct {
	Query  *string
	Status *domain.Status
	Type   *domain.MediaType
	Genre  *int32
}

// Create inserts a new entry row and returns the stored entity.
func (r *EntriesRepository) Create(ctx context.Context, params EntryCreateParams) (domain.Entry, error) {
	query := fmt.Sprintf(`
        INSERT INTO watchlist (id, title, type, date, tmdb_id, imdb_id, description, status, poster, rating, genres)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING %s
    `, entryColumns)

	row := r.pool.QueryRow(ctx, query,
		uuid.NewString(),
		params.Title,
		string(params.Type),
		params.Date,
		params.TMDBID,
		params.IMDBID,
		params.Description,
		string(params.Status),
		params.Poster,
		params.Rating,
		domain.NormalizeGenres(params.Genres),
	)
	return scanEntry(row)
}

// GetByID fetches an entry by its identifier.
func (r *EntriesRepository) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	if !validID(id) {
		return domain.Entry{}, ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM watchlist WHERE id = $1`, entryColumns)
	return oneOrNotFound(scanEntry(r.pool.QueryRow(ctx, query, id)))
}

// List returns every entry matching filters, newest release first.
func (r *EntriesRepository) List(ctx context.Context, filters EntryListFilters) ([]domain.Entry, error) {
	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		where = append(where, fmt.Sprintf("title ILIKE %s", arg("%"+strings.TrimSpace(*filters.Query)+"%")))
	}
	if filters.Status != nil {
		where = append(where, fmt.Sprintf("status = %s", arg(string(*filters.Status))))
	}
	if filters.Type != nil {
		where = append(where, fmt.Sprintf("type = %s", arg(string(*filters.Type))))
	}
	if filters.Genre != nil {
		where = append(where, fmt.Sprintf("%s = ANY(genres)", arg(*filters.Genre)))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(entryColumns)
	queryBuilder.WriteString(" FROM watchlist")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY date DESC NULLS LAST, title DESC, id DESC")

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// ListMissingPlaceholder selects up to limit entries whose poster placeholder
// has not been derived yet, oldest first.
func (r *EntriesRepository) ListMissingPlaceholder(ctx context.Context, limit int) ([]domain.Entry, error) {
	if limit <= 0 {
		return []domain.Entry{}, nil
	}
	query := fmt.Sprintf(`
        SELECT %s FROM watchlist
        WHERE poster_blur IS NULL
        ORDER BY created_at, id
        LIMIT $1
    `, entryColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// UpdateProviderFields overwrites every provider-derived column in a single statement.
func (r *EntriesRepository) UpdateProviderFields(ctx context.Context, id string, fields ProviderFields) (domain.Entry, error) {
	if !validID(id) {
		return domain.Entry{}, ErrNotFound
	}
	query := fmt.Sprintf(`
        UPDATE watchlist
        SET title = $2,
            poster = $3,
            poster_blur = $4,
            date = $5,
            rating = $6,
            description = $7,
            genres = $8,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, entryColumns)

	row := r.pool.QueryRow(ctx, query,
		id,
		fields.Title,
		fields.Poster,
		fields.PosterBlur,
		fields.Date,
		fields.Rating,
		fields.Description,
		domain.NormalizeGenres(fields.Genres),
	)
	return oneOrNotFound(scanEntry(row))
}

// UpdateStatus changes only the status column.
func (r *EntriesRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Entry, error) {
	if !validID(id) {
		return domain.Entry{}, ErrNotFound
	}
	query := fmt.Sprintf(`
        UPDATE watchlist
        SET status = $2,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, entryColumns)

	return oneOrNotFound(scanEntry(r.pool.QueryRow(ctx, query, id, string(status))))
}

// Delete removes an entry permanently.
func (r *EntriesRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM watchlist WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountMissingPlaceholder reports how many entries still lack a placeholder.
func (r *EntriesRepository) CountMissingPlaceholder(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM watchlist WHERE poster_blur IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending entries: %w", err)
	}
	return count, nil
}

func scanEntry(row pgx.Row) (domain.Entry, error) {
	var (
		entry     domain.Entry
		mediaType string
		status    string
		date      *time.Time
		blur      *string
		genres    []int32
	)

	err := row.Scan(
		&entry.ID,
		&entry.Title,
		&mediaType,
		&date,
		&entry.TMDBID,
		&entry.IMDBID,
		&entry.Description,
		&status,
		&entry.Poster,
		&blur,
		&entry.Rating,
		&genres,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return domain.Entry{}, err
	}

	entry.Type = domain.MediaType(mediaType)
	entry.Status = domain.Status(status)
	entry.Date = date
	entry.PosterBlur = blur
	if genres == nil {
		genres = []int32{}
	}
	entry.Genres = genres
	return entry, nil
}

func collectEntries(rows pgx.Rows) ([]domain.Entry, error) {
	defer rows.Close()

	items := make([]domain.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func oneOrNotFound(entry domain.Entry, err error) (domain.Entry, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Entry{}, ErrNotFound
		}
		return domain.Entry{}, err
	}
	return entry, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
