package driven

import (
	"context"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

// ContentSource reads tracked repositories through the hosting API.
type ContentSource interface {
	// FetchFileContent returns the content of path at ref (the default
	// branch when ref is empty). Fails with domain.ErrNotFound when the
	// path does not exist, domain.ErrRateLimited or domain.ErrUnauthorized
	// for API-layer failures.
	FetchFileContent(ctx context.Context, sourceID, path, ref string) ([]byte, error)

	// FetchRepositoryMetadata returns repository metadata with overrides applied.
	FetchRepositoryMetadata(ctx context.Context, sourceID string, overrides domain.RepoMetaOverride) (*domain.RepoMeta, error)
}

// VersionControl runs version-control operations on local working trees.
type VersionControl interface {
	// CloneOrPull clones remoteURL into localPath at branch, or pulls when
	// a clone already exists there and pull is true.
	CloneOrPull(ctx context.Context, remoteURL, localPath, branch string, pull bool) error

	// Blame returns the commit that last touched every line of filePath.
	Blame(ctx context.Context, workTree, filePath string) (domain.Blame, error)

	// ReadFile reads filePath from the working tree.
	ReadFile(workTree, filePath string) ([]byte, error)
}

// StarCounter looks up the popularity count of a repository.
type StarCounter interface {
	// Stars returns the star count of owner/repo.
	Stars(ctx context.Context, owner, repo string) (int, error)
}
