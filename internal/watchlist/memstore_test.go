package watchlist

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/watchlist/internal/domain"
	"github.com/Clark-Hu/watchlist/internal/repository"
)

// memStore is an in-memory Store used to observe what the synchronizer writes.
type memStore struct {
	mu      sync.Mutex
	entries map[string]domain.Entry
	clock   time.Time
	writes  int
}

func newMemStore() *memStore {
	return &memStore{
		entries: make(map[string]domain.Entry),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) Create(_ context.Context, p repository.EntryCreateParams) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	e := domain.Entry{
		ID:          uuid.NewString(),
		Title:       p.Title,
		Type:        p.Type,
		Date:        p.Date,
		TMDBID:      p.TMDBID,
		IMDBID:      p.IMDBID,
		Description: p.Description,
		Status:      p.Status,
		Poster:      p.Poster,
		Rating:      p.Rating,
		Genres:      domain.NormalizeGenres(p.Genres),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.entries[e.ID] = e
	m.writes++
	return e, nil
}

// put stores a ready-made entry, optionally already enriched.
func (m *memStore) put(e domain.Entry) domain.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = m.tick()
	e.UpdatedAt = e.CreatedAt
	if e.Genres == nil {
		e.Genres = []int32{}
	}
	m.entries[e.ID] = e
	return e
}

func (m *memStore) GetByID(_ context.Context, id string) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domain.Entry{}, repository.ErrNotFound
	}
	return e, nil
}

func (m *memStore) List(_ context.Context, f repository.EntryListFilters) ([]domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if f.Status != nil && e.Status != *f.Status {
			continue
		}
		if f.Type != nil && e.Type != *f.Type {
			continue
		}
		if f.Query != nil && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(*f.Query)) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Date == nil && b.Date != nil:
			return false
		case a.Date != nil && b.Date == nil:
			return true
		case a.Date != nil && !a.Date.Equal(*b.Date):
			return a.Date.After(*b.Date)
		}
		return a.Title > b.Title
	})
	return out, nil
}

func (m *memStore) ListMissingPlaceholder(_ context.Context, limit int) ([]domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Entry, 0)
	for _, e := range m.entries {
		if e.PosterBlur == nil {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CountMissingPlaceholder(_ context.Context) (int64, error) {
	return int64(m.pendingCount()), nil
}

func (m *memStore) UpdateProviderFields(_ context.Context, id string, f repository.ProviderFields) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domain.Entry{}, repository.ErrNotFound
	}
	blur := f.PosterBlur
	e.Title = f.Title
	e.Poster = f.Poster
	e.PosterBlur = &blur
	e.Date = f.Date
	e.Rating = f.Rating
	e.Description = f.Description
	e.Genres = domain.NormalizeGenres(f.Genres)
	e.UpdatedAt = m.tick()
	m.entries[id] = e
	m.writes++
	return e, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, status domain.Status) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domain.Entry{}, repository.ErrNotFound
	}
	e.Status = status
	e.UpdatedAt = m.tick()
	m.entries[id] = e
	m.writes++
	return e, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.entries, id)
	m.writes++
	return nil
}

func (m *memStore) pendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.PosterBlur == nil {
			n++
		}
	}
	return n
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
