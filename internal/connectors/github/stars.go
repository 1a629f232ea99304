package github

import (
	"context"
	"time"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
	"github.com/custodia-labs/awesometrack/internal/logger"
)

// DefaultStarTTL is how long a looked up star count stays valid.
const DefaultStarTTL = 15 * 24 * time.Hour

// Ensure the counters implement the interface.
var (
	_ driven.StarCounter = (*Stars)(nil)
	_ driven.StarCounter = (*CachedStars)(nil)
)

// Stars reads stargazer counts from the repository endpoint.
type Stars struct {
	client *Client
}

// NewStars creates a star counter.
func NewStars(client *Client) *Stars {
	return &Stars{client: client}
}

// Stars returns the stargazer count of owner/repo.
func (s *Stars) Stars(ctx context.Context, owner, repo string) (int, error) {
	repository, err := s.client.GetRepository(ctx, owner, repo)
	if err != nil {
		return 0, err
	}
	return repository.GetStargazersCount(), nil
}

// CachedStars serves counts from a StarCache and fills it on misses.
type CachedStars struct {
	next  driven.StarCounter
	cache driven.StarCache
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedStars wraps next with cache. A non-positive ttl uses DefaultStarTTL.
func NewCachedStars(next driven.StarCounter, cache driven.StarCache, ttl time.Duration) *CachedStars {
	if ttl <= 0 {
		ttl = DefaultStarTTL
	}
	return &CachedStars{next: next, cache: cache, ttl: ttl, now: time.Now}
}

// Stars returns a cached count or looks it up and caches it.
// Cache failures degrade to a direct lookup.
func (c *CachedStars) Stars(ctx context.Context, owner, repo string) (int, error) {
	key := owner + "/" + repo
	now := c.now()

	count, ok, err := c.cache.GetStars(ctx, key, now)
	if err != nil {
		logger.Debug("star cache read for %s: %v", key, err)
	} else if ok {
		return count, nil
	}

	count, err = c.next.Stars(ctx, owner, repo)
	if err != nil {
		return 0, err
	}
	if err := c.cache.PutStars(ctx, domain.StarCount{Repo: key, Count: count, ExpiresAt: now.Add(c.ttl)}); err != nil {
		logger.Debug("star cache write for %s: %v", key, err)
	}
	return count, nil
}
