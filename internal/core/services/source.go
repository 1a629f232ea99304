package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

// SourceService exposes configured sources and their stored records.
// Sources come from configuration and are read-only at runtime.
type SourceService struct {
	sources     []domain.Source
	byID        map[string]int
	sourceStore driven.SourceStore
}

// NewSourceService creates a source service over the configured sources.
func NewSourceService(sources []domain.Source, sourceStore driven.SourceStore) *SourceService {
	byID := make(map[string]int, len(sources))
	for i, s := range sources {
		byID[s.Identifier] = i
	}
	return &SourceService{sources: sources, byID: byID, sourceStore: sourceStore}
}

// Get retrieves a configured source by identifier.
func (s *SourceService) Get(_ context.Context, id string) (*domain.Source, error) {
	i, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
	}
	source := s.sources[i]
	return &source, nil
}

// List returns all configured sources in configuration order.
func (s *SourceService) List(_ context.Context) ([]domain.Source, error) {
	out := make([]domain.Source, len(s.sources))
	copy(out, s.sources)
	return out, nil
}

// Select returns the sources named by ids, or all of them when ids is empty.
func (s *SourceService) Select(ctx context.Context, ids []string) ([]domain.Source, error) {
	if len(ids) == 0 {
		return s.List(ctx)
	}
	out := make([]domain.Source, 0, len(ids))
	for _, id := range ids {
		source, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *source)
	}
	return out, nil
}

// Records returns the stored source records.
func (s *SourceService) Records(ctx context.Context) ([]domain.SourceRecord, error) {
	if s.sourceStore == nil {
		return nil, nil
	}
	return s.sourceStore.List(ctx)
}
