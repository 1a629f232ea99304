package driving

import (
	"context"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

// SourceService exposes the configured sources and their stored records.
type SourceService interface {
	// List returns all configured sources.
	List(ctx context.Context) ([]domain.Source, error)

	// Get retrieves a configured source by identifier.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// Records returns the stored source records.
	Records(ctx context.Context) ([]domain.SourceRecord, error)
}
