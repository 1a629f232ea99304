package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
)

// Ensure ItemStore implements the interface.
var _ driven.ItemStore = (*ItemStore)(nil)

type fileKey struct {
	sourceID string
	file     string
}

// ItemStore is an in-memory implementation of driven.ItemStore.
// A single lock covers items, index and file records, so ReplaceFile
// is atomic with respect to every reader.
type ItemStore struct {
	mu    sync.RWMutex
	items map[fileKey]map[string]domain.Item
	index map[domain.ItemKey]domain.IndexEntry
	files map[fileKey]domain.FileRecord
}

// NewItemStore creates a new in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{
		items: make(map[fileKey]map[string]domain.Item),
		index: make(map[domain.ItemKey]domain.IndexEntry),
		files: make(map[fileKey]domain.FileRecord),
	}
}

// FileItems returns a copy of a file's items keyed by fingerprint.
func (s *ItemStore) FileItems(_ context.Context, sourceID, file string) (map[string]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.items[fileKey{sourceID, file}]
	out := make(map[string]domain.Item, len(stored))
	for fp, item := range stored {
		out[fp] = item
	}
	return out, nil
}

// ReplaceFile swaps a file's items, index entries and record under one lock.
func (s *ItemStore) ReplaceFile(_ context.Context, record domain.FileRecord, items []domain.Item) error {
	key := fileKey{record.SourceID, record.Path}
	next := make(map[string]domain.Item, len(items))
	for _, item := range items {
		if item.SourceID != record.SourceID || item.File != record.Path {
			return fmt.Errorf("%w: item %s does not belong to %s:%s",
				domain.ErrInvalidInput, item.Key(), record.SourceID, record.Path)
		}
		next[item.Fingerprint] = item
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for fp := range s.items[key] {
		delete(s.index, domain.ItemKey{SourceID: key.sourceID, File: key.file, Fingerprint: fp})
	}
	for _, item := range next {
		s.index[item.Key()] = item.IndexEntry()
	}
	s.items[key] = next
	s.files[key] = record
	return nil
}

// GetFile retrieves a file record.
func (s *ItemStore) GetFile(_ context.Context, sourceID, file string) (*domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.files[fileKey{sourceID, file}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// ListFiles returns file records sorted by source and path.
func (s *ItemStore) ListFiles(_ context.Context, sourceID string) ([]domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.FileRecord
	for key, record := range s.files {
		if sourceID == "" || key.sourceID == sourceID {
			result = append(result, record)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SourceID != result[j].SourceID {
			return result[i].SourceID < result[j].SourceID
		}
		return result[i].Path < result[j].Path
	})
	return result, nil
}

// TouchFile updates a file record's CheckedAt.
func (s *ItemStore) TouchFile(_ context.Context, sourceID, file string, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fileKey{sourceID, file}
	record, ok := s.files[key]
	if !ok {
		return domain.ErrNotFound
	}
	record.CheckedAt = checkedAt
	s.files[key] = record
	return nil
}

// IndexEntries returns matching entries, newest first.
func (s *ItemStore) IndexEntries(_ context.Context, filter domain.IndexFilter) ([]domain.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.IndexEntry
	for _, entry := range s.index {
		if filter.Matches(entry) {
			result = append(result, entry)
		}
	}
	SortEntries(result)
	return result, nil
}

// Items loads item bodies for keys.
func (s *ItemStore) Items(_ context.Context, keys []domain.ItemKey) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Item, 0, len(keys))
	for _, key := range keys {
		item, ok := s.items[fileKey{key.SourceID, key.File}][key.Fingerprint]
		if !ok {
			return nil, fmt.Errorf("%w: no item for index key %s", domain.ErrCorruptStore, key)
		}
		result = append(result, item)
	}
	return result, nil
}

// RebuildIndex regenerates the index from stored items.
func (s *ItemStore) RebuildIndex(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = make(map[domain.ItemKey]domain.IndexEntry, len(s.index))
	for _, items := range s.items {
		for _, item := range items {
			s.index[item.Key()] = item.IndexEntry()
		}
	}
	return len(s.index), nil
}

// DeleteIndexEntry drops one index entry while keeping its item.
// It exists to simulate index drift in tests and recovery tooling.
func (s *ItemStore) DeleteIndexEntry(key domain.ItemKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.index, key)
}

// PutIndexEntry writes an index entry without touching items.
func (s *ItemStore) PutIndexEntry(entry domain.IndexEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[entry.Key] = entry
}

// SortEntries orders entries newest first, then by key.
func SortEntries(entries []domain.IndexEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].Key.String() < entries[j].Key.String()
	})
}
