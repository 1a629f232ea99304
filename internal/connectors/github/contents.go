package github

import (
	"context"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
)

// Ensure Contents implements the interface.
var _ driven.ContentSource = (*Contents)(nil)

// Contents reads files and repository metadata through the API.
type Contents struct {
	client *Client
	now    func() time.Time
}

// NewContents creates a content source.
func NewContents(client *Client) *Contents {
	return &Contents{client: client, now: time.Now}
}

// FetchFileContent returns the raw bytes of path at ref.
func (c *Contents) FetchFileContent(ctx context.Context, sourceID, path, ref string) ([]byte, error) {
	owner, repo, err := splitRepository(sourceID)
	if err != nil {
		return nil, err
	}
	return c.client.GetFileContent(ctx, owner, repo, path, ref)
}

// FetchRepositoryMetadata returns repository metadata with overrides applied.
func (c *Contents) FetchRepositoryMetadata(ctx context.Context, sourceID string, overrides domain.RepoMetaOverride) (*domain.RepoMeta, error) {
	owner, repo, err := splitRepository(sourceID)
	if err != nil {
		return nil, err
	}
	repository, err := c.client.GetRepository(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	meta := repoMeta(repository)
	meta.CheckedAt = c.now().UTC()
	if overrides.DefaultBranch != "" {
		meta.DefaultBranch = overrides.DefaultBranch
	}
	return &meta, nil
}

func repoMeta(r *gh.Repository) domain.RepoMeta {
	return domain.RepoMeta{
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		URL:           r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
		Language:      r.GetLanguage(),
		Stars:         r.GetStargazersCount(),
		Watchers:      r.GetSubscribersCount(),
		Forks:         r.GetForksCount(),
		Topics:        r.Topics,
		CreatedAt:     r.GetCreatedAt().Time,
		UpdatedAt:     r.GetUpdatedAt().Time,
		PushedAt:      r.GetPushedAt().Time,
	}
}
