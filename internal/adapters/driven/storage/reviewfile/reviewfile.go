// Package reviewfile stores the manual review list as a JSON side file
// next to the database, where maintainers can read it without tooling.
package reviewfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
)

// FileName is the review file name inside the data directory.
const FileName = "review.json"

// Ensure Sink implements the interface.
var _ driven.ReviewSink = (*Sink)(nil)

// Sink writes the review list to a JSON file.
type Sink struct {
	path string
}

// New creates a sink writing <dataDir>/review.json.
func New(dataDir string) *Sink {
	return &Sink{path: filepath.Join(dataDir, FileName)}
}

// Path returns the review file path.
func (s *Sink) Path() string {
	return s.path
}

// WriteReview replaces the review file. An empty list is written as [].
func (s *Sink) WriteReview(_ context.Context, entries []domain.ReviewEntry) error {
	if entries == nil {
		entries = []domain.ReviewEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding review list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing review list: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing review list: %w", err)
	}
	return nil
}

// ReadReview reads the current review list. A missing file is an empty list.
func (s *Sink) ReadReview() ([]domain.ReviewEntry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []domain.ReviewEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding review list: %w", err)
	}
	return entries, nil
}
