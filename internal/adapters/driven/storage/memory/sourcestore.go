package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
)

// Ensure the stores implement their interfaces.
var (
	_ driven.SourceStore = (*SourceStore)(nil)
	_ driven.StarCache   = (*StarCache)(nil)
)

// SourceStore is an in-memory implementation of driven.SourceStore.
type SourceStore struct {
	mu      sync.RWMutex
	records map[string]domain.SourceRecord
}

// NewSourceStore creates a new in-memory source store.
func NewSourceStore() *SourceStore {
	return &SourceStore{
		records: make(map[string]domain.SourceRecord),
	}
}

// Save stores or updates a source record.
func (s *SourceStore) Save(_ context.Context, record domain.SourceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Identifier] = record
	return nil
}

// Get retrieves a source record by identifier.
func (s *SourceStore) Get(_ context.Context, id string) (*domain.SourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// List returns all source records sorted by identifier.
func (s *SourceStore) List(_ context.Context) ([]domain.SourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.SourceRecord, 0, len(s.records))
	for _, record := range s.records {
		result = append(result, record)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Identifier < result[j].Identifier })
	return result, nil
}

// StarCache is an in-memory implementation of driven.StarCache.
type StarCache struct {
	mu     sync.RWMutex
	counts map[string]domain.StarCount
}

// NewStarCache creates a new in-memory star cache.
func NewStarCache() *StarCache {
	return &StarCache{counts: make(map[string]domain.StarCount)}
}

// GetStars returns a cached count unless it expired at now.
func (c *StarCache) GetStars(_ context.Context, repo string, now time.Time) (int, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	count, ok := c.counts[repo]
	if !ok || !now.Before(count.ExpiresAt) {
		return 0, false, nil
	}
	return count.Count, true, nil
}

// PutStars caches a count.
func (c *StarCache) PutStars(_ context.Context, count domain.StarCount) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[count.Repo] = count
	return nil
}
