package domain

import "time"

// FileRecord is the per-file metadata kept alongside its items.
type FileRecord struct {
	// SourceID is the owning repository.
	SourceID string

	// Path is the tracked file path.
	Path string

	// SHA is the SHA-1 hex of the whole file content.
	SHA string

	// CreatedAt is the earliest blame timestamp across the file.
	CreatedAt time.Time

	// UpdatedAt is the latest item timestamp.
	UpdatedAt time.Time

	// CheckedAt is the last fetch attempt that returned content.
	CheckedAt time.Time
}

// RepoMeta is repository metadata from the hosting API.
type RepoMeta struct {
	Name          string
	FullName      string
	Description   string
	URL           string
	DefaultBranch string
	Language      string
	Stars         int
	Watchers      int
	Forks         int
	Topics        []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PushedAt      time.Time

	// CheckedAt is when the metadata was fetched.
	CheckedAt time.Time
}

// RepoMetaOverride replaces fields the hosting API reports.
type RepoMetaOverride struct {
	DefaultBranch string
}

// SourceRecord groups a repository's metadata with its tracking times.
type SourceRecord struct {
	// Identifier is the repository path.
	Identifier string

	// Meta is the last fetched repository metadata.
	Meta RepoMeta

	// CreatedAt is the earliest CreatedAt of the source's files.
	CreatedAt time.Time

	// UpdatedAt is the latest UpdatedAt of the source's files.
	UpdatedAt time.Time
}

// Absorb folds a file record's times into the source record.
func (r *SourceRecord) Absorb(f FileRecord) {
	if !f.CreatedAt.IsZero() && (r.CreatedAt.IsZero() || f.CreatedAt.Before(r.CreatedAt)) {
		r.CreatedAt = f.CreatedAt
	}
	if f.UpdatedAt.After(r.UpdatedAt) {
		r.UpdatedAt = f.UpdatedAt
	}
}

// ReviewEntry flags a file whose parse returned suspiciously few items.
type ReviewEntry struct {
	SourceID  string    `json:"source"`
	File      string    `json:"file"`
	Count     int       `json:"count"`
	CheckedAt time.Time `json:"checked_at"`
}

// StarCount is a cached popularity count for a repository.
type StarCount struct {
	// Repo is "owner/repo".
	Repo      string
	Count     int
	ExpiresAt time.Time
}
