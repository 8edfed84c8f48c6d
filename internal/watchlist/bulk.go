package watchlist

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/Clark-Hu/watchlist/internal/domain"
)

// Failure records why one entry of a batch could not be refreshed.
type Failure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchResult summarizes a bulk refresh.
type BatchResult struct {
	Selected  int       `json:"selected"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures"`
	// Pending counts entries still without a placeholder after the run.
	Pending   int64     `json:"pending"`
}

const pendingCountTimeout = 5 * time.Second

// BulkRefreshStale refreshes up to limit entries that have no placeholder yet.
// Every entry is refreshed independently; one failure never affects another.
func (s *Synchronizer) BulkRefreshStale(ctx context.Context, limit int) (BatchResult, error) {
	if limit <= 0 {
		limit = s.batchSize
	}
	entries, err := s.store.ListMissingPlaceholder(ctx, limit)
	if err != nil {
		return BatchResult{}, fmt.Errorf("select stale entries: %w", err)
	}

	result := BatchResult{Selected: len(entries), Failures: []Failure{}}
	var mu sync.Mutex

	workers := pool.New().WithMaxGoroutines(s.concurrency)
	for _, entry := range entries {
		entry := entry
		workers.Go(func() {
			err := s.refreshIsolated(ctx, entry)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, Failure{ID: entry.ID, Error: err.Error()})
				s.logger.Printf("watchlist: refresh %s (%s %d) failed: %v", entry.ID, entry.Type, entry.TMDBID, err)
				return
			}
			result.Succeeded++
		})
	}
	workers.Wait()

	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].ID < result.Failures[j].ID })

	// The batch may have been cut short by ctx; the summary still gets its count.
	countCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pendingCountTimeout)
	defer cancel()
	pending, err := s.store.CountMissingPlaceholder(countCtx)
	if err != nil {
		s.logger.Printf("watchlist: count pending entries: %v", err)
		pending = -1
	}
	result.Pending = pending

	s.logger.Printf("watchlist: bulk refresh selected=%d succeeded=%d failed=%d pending=%d",
		result.Selected, result.Succeeded, result.Failed, result.Pending)
	return result, nil
}

func (s *Synchronizer) refreshIsolated(ctx context.Context, entry domain.Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = s.RefreshEntry(ctx, entry.ID, entry.TMDBID, entry.Type)
	return err
}
