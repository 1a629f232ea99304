package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Format identifies how a tracked markdown document is cut into items.
type Format string

const (
	// FormatList treats every top-level list item as one item.
	FormatList Format = "list"

	// FormatTable treats every table body row as one item.
	FormatTable Format = "table"

	// FormatHeading treats every heading at HeadingLevel, plus the blocks
	// under it, as one item.
	FormatHeading Format = "heading"
)

// IDStrategy selects what part of a fragment feeds the fingerprint.
type IDStrategy string

const (
	// IDDefault fingerprints the whole raw fragment.
	IDDefault IDStrategy = "default"

	// IDFirstLink fingerprints only the first link of the fragment.
	IDFirstLink IDStrategy = "firstLink"
)

// ParseOptions configures the structural parser for one document.
type ParseOptions struct {
	// Format selects the segmentation rule.
	Format Format

	// MinHeadingLevel is the depth of subcategory headings.
	// Zero means detect from the document.
	MinHeadingLevel int

	// MaxHeadingLevel is the depth of the shallowest category heading and
	// the boundary before which nothing is itemized.
	// Zero means detect from the document.
	MaxHeadingLevel int

	// HeadingLevel is the depth at which heading-format items start.
	HeadingLevel int

	// ParseCategory enables category inference. When false every item
	// has an empty category.
	ParseCategory bool

	// CategoryExclusions drops items whose category starts with any of
	// these prefixes.
	CategoryExclusions []string
}

// TrackedFile is one markdown document tracked within a source.
type TrackedFile struct {
	// Path is the file path relative to the repository root.
	Path string

	// Name is a display name for the document.
	Name string

	// Index marks the file as the source's main document.
	Index bool

	// Options configures parsing.
	Options ParseOptions

	// IDStrategy selects the fingerprint input.
	IDStrategy IDStrategy
}

// Source is a tracked awesome-list repository.
type Source struct {
	// Identifier is the repository path, e.g. "sindresorhus/awesome".
	Identifier string

	// URL is the repository web URL.
	URL string

	// DefaultBranch overrides the branch reported by the hosting API.
	DefaultBranch string

	// Category groups sources for display.
	Category string

	// Files lists the tracked documents in configuration order.
	Files []TrackedFile
}

// Owner returns the repository owner segment of the identifier.
func (s Source) Owner() string {
	owner, _, _ := strings.Cut(s.Identifier, "/")
	return owner
}

// Repo returns the repository name segment of the identifier.
func (s Source) Repo() string {
	_, repo, _ := strings.Cut(s.Identifier, "/")
	return repo
}

// RepoURL returns the repository web URL without a trailing slash or .git suffix.
func (s Source) RepoURL() string {
	u := s.URL
	if u == "" {
		u = "https://github.com/" + s.Identifier
	}
	u = strings.TrimSuffix(u, "/")
	return strings.TrimSuffix(u, ".git")
}

// CloneURL returns the git remote URL for the repository.
func (s Source) CloneURL() string {
	return s.RepoURL() + ".git"
}

// File returns the tracked file with the given path.
func (s Source) File(path string) (TrackedFile, bool) {
	for _, f := range s.Files {
		if f.Path == path {
			return f, true
		}
	}
	return TrackedFile{}, false
}

// Validate checks the source is usable by the driver.
func (s Source) Validate() error {
	if s.Owner() == "" || s.Repo() == "" || strings.Count(s.Identifier, "/") != 1 {
		return fmt.Errorf("%w: source identifier %q must be owner/repo", ErrInvalidConfig, s.Identifier)
	}
	if _, err := url.Parse(s.RepoURL()); err != nil {
		return fmt.Errorf("%w: source %s url: %v", ErrInvalidConfig, s.Identifier, err)
	}
	if len(s.Files) == 0 {
		return fmt.Errorf("%w: source %s has no files", ErrInvalidConfig, s.Identifier)
	}
	for _, f := range s.Files {
		switch f.Options.Format {
		case FormatList, FormatTable, FormatHeading:
		default:
			return fmt.Errorf("%w: %s/%s unknown format %q", ErrInvalidConfig, s.Identifier, f.Path, f.Options.Format)
		}
	}
	return nil
}
