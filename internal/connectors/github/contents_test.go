package github

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/awesometrack/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
)

var repoJSON = map[string]any{
	"name":              "list",
	"full_name":         "acme/list",
	"description":       "A curated list",
	"html_url":          "https://github.com/acme/list",
	"default_branch":    "main",
	"language":          "Go",
	"stargazers_count":  1234,
	"subscribers_count": 40,
	"forks_count":       12,
	"topics":            []string{"awesome", "go"},
	"created_at":        "2019-05-01T10:00:00Z",
	"updated_at":        "2024-02-01T10:00:00Z",
	"pushed_at":         "2024-02-02T10:00:00Z",
}

func TestContents_FetchRepositoryMetadata(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/list", r.URL.Path)
		writeJSON(t, w, http.StatusOK, repoJSON)
	}))
	checked := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	contents := NewContents(client)
	contents.now = func() time.Time { return checked }

	t.Run("maps repository fields", func(t *testing.T) {
		meta, err := contents.FetchRepositoryMetadata(context.Background(), "acme/list", domain.RepoMetaOverride{})
		require.NoError(t, err)

		assert.Equal(t, "list", meta.Name)
		assert.Equal(t, "acme/list", meta.FullName)
		assert.Equal(t, "https://github.com/acme/list", meta.URL)
		assert.Equal(t, "main", meta.DefaultBranch)
		assert.Equal(t, 1234, meta.Stars)
		assert.Equal(t, 40, meta.Watchers)
		assert.Equal(t, 12, meta.Forks)
		assert.Equal(t, []string{"awesome", "go"}, meta.Topics)
		assert.Equal(t, time.Date(2019, 5, 1, 10, 0, 0, 0, time.UTC), meta.CreatedAt.UTC())
		assert.Equal(t, checked, meta.CheckedAt)
	})

	t.Run("applies branch override", func(t *testing.T) {
		meta, err := contents.FetchRepositoryMetadata(context.Background(), "acme/list",
			domain.RepoMetaOverride{DefaultBranch: "master"})
		require.NoError(t, err)
		assert.Equal(t, "master", meta.DefaultBranch)
	})

	t.Run("rejects malformed identifiers", func(t *testing.T) {
		_, err := contents.FetchRepositoryMetadata(context.Background(), "acme", domain.RepoMetaOverride{})
		assert.ErrorIs(t, err, ErrInvalidRepository)
	})
}

func TestContents_FetchFileContent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/list/contents/docs/tools.md" {
			writeJSON(t, w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"type":     "file",
			"encoding": "base64",
			"size":     6,
			"path":     "docs/tools.md",
			"content":  base64.StdEncoding.EncodeToString([]byte("# Tools")),
		})
	}))
	var source driven.ContentSource = NewContents(client)

	data, err := source.FetchFileContent(context.Background(), "acme/list", "docs/tools.md", "")
	require.NoError(t, err)
	assert.Equal(t, "# Tools", string(data))

	_, err = source.FetchFileContent(context.Background(), "acme/list", "missing.md", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestStars(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, repoJSON)
	}))

	count, err := NewStars(client).Stars(context.Background(), "acme", "list")
	require.NoError(t, err)
	assert.Equal(t, 1234, count)
}

func TestCachedStars(t *testing.T) {
	counter := &countingHandler{handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, repoJSON)
	})}
	client := newTestClient(t, counter)
	cache := memory.NewStarCache()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cached := NewCachedStars(NewStars(client), cache, 0)
	cached.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("miss looks up and fills the cache", func(t *testing.T) {
		count, err := cached.Stars(ctx, "acme", "list")
		require.NoError(t, err)
		assert.Equal(t, 1234, count)
		assert.Equal(t, int32(1), counter.calls.Load())
	})

	t.Run("hit within ttl skips the api", func(t *testing.T) {
		now = now.Add(14 * 24 * time.Hour)
		count, err := cached.Stars(ctx, "acme", "list")
		require.NoError(t, err)
		assert.Equal(t, 1234, count)
		assert.Equal(t, int32(1), counter.calls.Load())
	})

	t.Run("expired entry is refreshed", func(t *testing.T) {
		now = now.Add(2 * 24 * time.Hour)
		_, err := cached.Stars(ctx, "acme", "list")
		require.NoError(t, err)
		assert.Equal(t, int32(2), counter.calls.Load())
	})

	t.Run("lookup errors are not cached", func(t *testing.T) {
		failing := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		}))
		c := NewCachedStars(NewStars(failing), cache, time.Hour)
		_, err := c.Stars(ctx, "acme", "gone")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, ok, err := cache.GetStars(ctx, "acme/gone", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
