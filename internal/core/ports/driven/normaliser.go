package driven

import (
	"context"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

// Normaliser parses a fetched document and normalises every item in it.
type Normaliser interface {
	// Normalise cuts content into items using the file's parse options and
	// returns them in document order.
	Normalise(ctx context.Context, content []byte, req NormaliseRequest) ([]domain.ParsedItem, error)
}

// NormaliseRequest carries what is needed to resolve relative links.
type NormaliseRequest struct {
	// RepoURL is the repository web URL.
	RepoURL string

	// DefaultBranch is the branch relative links resolve against.
	DefaultBranch string

	// File is the tracked file being normalised.
	File domain.TrackedFile
}
