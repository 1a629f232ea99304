package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

// newTestClient returns a client pointed at handler with throttling disabled.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClientWithHTTPClient(server.Client(), server.URL)
	require.NoError(t, err)
	client.rateLimiter.bucket = rate.NewLimiter(rate.Inf, 1)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient(t *testing.T) {
	t.Run("anonymous client uses the low limit", func(t *testing.T) {
		client := NewClient(context.Background(), "")
		assert.Equal(t, AnonymousRateLimit, client.RateLimiter().Limit())
	})

	t.Run("token client uses the authenticated limit", func(t *testing.T) {
		client := NewClient(context.Background(), "ghp_test")
		assert.Equal(t, GitHubRateLimit, client.RateLimiter().Limit())
	})
}

func TestClient_GetFileContent(t *testing.T) {
	body := "# Awesome\n\n- [Foo](https://foo.dev)\n"

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/list/contents/README.md", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		w.Header().Set(HeaderRateRemaining, "4999")
		w.Header().Set(HeaderRateLimit, "5000")
		writeJSON(t, w, http.StatusOK, map[string]any{
			"type":     "file",
			"encoding": "base64",
			"size":     len(body),
			"name":     "README.md",
			"path":     "README.md",
			"content":  base64.StdEncoding.EncodeToString([]byte(body)),
		})
	}))

	data, err := client.GetFileContent(context.Background(), "acme", "list", "README.md", "main")
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	assert.Equal(t, 4999, client.RateLimiter().Remaining())
}

func TestClient_GetFileContent_Directory(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, []map[string]any{{"type": "file", "name": "a.md", "path": "docs/a.md"}})
	}))

	_, err := client.GetFileContent(context.Background(), "acme", "list", "docs", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestClient_Errors(t *testing.T) {
	reset := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		status  int
		headers map[string]string
		target  error
	}{
		{"not found", http.StatusNotFound, nil, domain.ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, nil, domain.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, map[string]string{HeaderRateRemaining: "12"}, domain.ErrUnauthorized},
		{"rate limited", http.StatusForbidden, map[string]string{
			HeaderRateRemaining: "0",
			HeaderRateLimit:     "60",
			HeaderRateReset:     strconv.FormatInt(reset, 10),
		}, domain.ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				writeJSON(t, w, tt.status, map[string]string{"message": tt.name})
			}))

			_, err := client.GetRepository(context.Background(), "acme", "list")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestClient_RateLimitErrorCarriesReset(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(HeaderRateRemaining, "0")
		w.Header().Set(HeaderRateLimit, "60")
		w.Header().Set(HeaderRateReset, strconv.FormatInt(reset.Unix(), 10))
		writeJSON(t, w, http.StatusForbidden, map[string]string{"message": "API rate limit exceeded"})
	}))

	_, err := client.GetRepository(context.Background(), "acme", "list")
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.True(t, rle.ResetAt.Equal(reset))
	assert.Equal(t, 0, rle.Remaining)
}

func TestSplitRepository(t *testing.T) {
	owner, repo, err := splitRepository("acme/list")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "list", repo)

	for _, bad := range []string{"", "acme", "acme/", "/list", "a/b/c"} {
		_, _, err := splitRepository(bad)
		assert.ErrorIs(t, err, ErrInvalidRepository, bad)
	}
}

// countingHandler counts requests that reach handler.
type countingHandler struct {
	calls   atomic.Int32
	handler http.Handler
}

func (c *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.calls.Add(1)
	c.handler.ServeHTTP(w, r)
}
