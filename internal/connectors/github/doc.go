// Package github reads tracked awesome-list repositories through the
// GitHub REST API.
//
// It provides three driven adapters on top of one rate-limited [Client]:
//
//   - [Contents] implements driven.ContentSource: file content at a ref and
//     repository metadata.
//   - [Stars] implements driven.StarCounter from the repository's stargazer
//     count.
//   - [CachedStars] decorates any StarCounter with a driven.StarCache so a
//     count is looked up at most once per TTL (15 days by default).
//
// # Authentication
//
// A personal access token (GITHUB_TOKEN or PERSONAL_GITHUB_TOKEN) raises the
// limit to 5,000 requests per hour. Without one the client still works at
// the anonymous limit of 60 requests per hour and throttles accordingly.
//
// # Rate Limiting
//
// The client implements a dual-strategy rate limiting approach:
//
//  1. Proactive throttling: a token bucket limits requests to roughly
//     1.2 requests per second when authenticated.
//
//  2. Reactive handling: X-RateLimit-Remaining and X-RateLimit-Reset are
//     tracked from every response. When the remaining quota drops below a
//     buffer the client waits until the reset time.
//
// # Errors
//
// API failures are returned as [*APIError] or [*RateLimitError]. Both unwrap
// to the domain sentinels, so callers match them with errors.Is against
// domain.ErrNotFound, domain.ErrUnauthorized and domain.ErrRateLimited.
package github
