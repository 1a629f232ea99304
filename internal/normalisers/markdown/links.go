package markdown

import (
	"math"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	md "github.com/custodia-labs/awesometrack/internal/markdown"
)

// badgePrefix starts the text appended to badged links.
const badgePrefix = " (⭐"

// reservedOwners are github.com path roots that are not repository owners.
var reservedOwners = map[string]bool{
	"about": true, "blog": true, "customer-stories": true, "dashboard": true,
	"education": true, "enterprise": true, "explore": true, "features": true,
	"gists": true, "help": true, "integrations": true, "issues": true,
	"join": true, "login": true, "marketplace": true, "new": true,
	"nonprofit": true, "notifications": true, "organizations": true,
	"packages": true, "people": true, "pricing": true, "projects": true,
	"pulls": true, "repositories": true, "security": true, "settings": true,
	"stars": true, "topics": true, "watching": true,
}

var (
	imgSrcPattern = regexp.MustCompile(`src="([^"]+)"`)
	badgeSuffix   = regexp.MustCompile(` \(⭐[0-9.]+[kM]?\)$`)
)

// Links resolves URLs found in a tracked file against its repository.
type Links struct {
	RepoURL string
	Branch  string
	File    string
}

// Rewrite returns a copy of n with relative link targets pointing at the
// repository blob view and relative images at the raw view.
func (l Links) Rewrite(n md.Node) md.Node {
	return md.Map(n, func(c md.Node) md.Node {
		switch c.Kind {
		case md.Link:
			c.URL = l.Link(c.URL)
		case md.Image:
			c.URL = l.Image(c.URL)
		case md.HTMLBlock, md.InlineHTML:
			if strings.Contains(c.Value, "<img") {
				c.Value = imgSrcPattern.ReplaceAllStringFunc(c.Value, func(m string) string {
					src := imgSrcPattern.FindStringSubmatch(m)[1]
					return `src="` + l.Image(src) + `"`
				})
			}
		}
		return c
	})
}

// Link resolves a link destination. Anchors and absolute URLs are kept.
func (l Links) Link(raw string) string {
	if !l.relative(raw) {
		return raw
	}
	return l.resolve("blob", raw)
}

// Image resolves an image source and points GitHub blob URLs at raw content.
func (l Links) Image(raw string) string {
	if l.relative(raw) {
		return l.resolve("raw", raw)
	}
	if u, err := url.Parse(raw); err == nil && strings.EqualFold(u.Hostname(), "github.com") {
		return strings.Replace(raw, "/blob/", "/raw/", 1)
	}
	return raw
}

func (l Links) relative(raw string) bool {
	if l.RepoURL == "" || raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "//") {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == ""
}

func (l Links) resolve(view, raw string) string {
	base := strings.TrimSuffix(l.RepoURL, "/") + "/" + view + "/" + l.Branch
	target, suffix := raw, ""
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		target, suffix = raw[:i], raw[i:]
	}
	if strings.HasPrefix(target, "/") {
		return base + path.Clean(target) + suffix
	}
	joined := path.Join(path.Dir(l.File), target)
	if joined == "." {
		return base + suffix
	}
	return base + "/" + strings.TrimPrefix(joined, "/") + suffix
}

// RepoKey returns "owner/repo" when href is an https github.com repository
// link whose owner is not a reserved path.
func RepoKey(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil || u.Scheme != "https" || !strings.EqualFold(u.Hostname(), "github.com") {
		return "", false
	}
	parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	owner, repo := parts[0], strings.TrimSuffix(parts[1], ".git")
	if reservedOwners[strings.ToLower(owner)] || repo == "" {
		return "", false
	}
	return owner + "/" + repo, true
}

// BadgeCandidates returns the repository keys of every badgeable link.
func BadgeCandidates(n md.Node) []string {
	var keys []string
	for _, link := range md.Links(n) {
		if hasBadge(link) {
			continue
		}
		if key, ok := RepoKey(link.URL); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// ApplyBadges appends " (⭐N)" to links whose repository has a known count.
func ApplyBadges(n md.Node, stars map[string]int) md.Node {
	if len(stars) == 0 {
		return n
	}
	return md.Map(n, func(c md.Node) md.Node {
		if c.Kind != md.Link || hasBadge(c) {
			return c
		}
		key, ok := RepoKey(c.URL)
		if !ok {
			return c
		}
		count, ok := stars[key]
		if !ok {
			return c
		}
		children := make([]md.Node, 0, len(c.Children)+1)
		children = append(children, c.Children...)
		c.Children = append(children, md.NewText(badgePrefix+CompactCount(count)+")"))
		return c
	})
}

func hasBadge(link md.Node) bool {
	return badgeSuffix.MatchString(md.PlainText(link))
}

// CompactCount renders a star count the way badges do: 999, 1.2k, 54k, 1.2M.
func CompactCount(n int) string {
	switch {
	case n < 1000:
		return strconv.Itoa(n)
	case n < 1_000_000:
		return shorten(float64(n)/1000) + "k"
	default:
		return shorten(float64(n)/1_000_000) + "M"
	}
}

func shorten(v float64) string {
	if v < 10 {
		s := strconv.FormatFloat(math.Floor(v*10)/10, 'f', 1, 64)
		return strings.TrimSuffix(s, ".0")
	}
	return strconv.FormatFloat(math.Floor(v), 'f', 0, 64)
}
