package markdown

import (
	"context"
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
	"github.com/custodia-labs/awesometrack/internal/logger"
	md "github.com/custodia-labs/awesometrack/internal/markdown"
	"github.com/custodia-labs/awesometrack/internal/parser"
)

// DefaultBadgeConcurrency caps in-flight star lookups per batch.
const DefaultBadgeConcurrency = 30

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser parses awesome-list documents and normalises their items.
type Normaliser struct {
	parser      *parser.Parser
	stars       driven.StarCounter
	concurrency int
	mock        bool
}

// Option configures a Normaliser.
type Option func(*Normaliser)

// WithStarCounter enables popularity badges.
func WithStarCounter(c driven.StarCounter) Option {
	return func(n *Normaliser) {
		n.stars = c
	}
}

// WithBadgeConcurrency sets the number of concurrent star lookups.
func WithBadgeConcurrency(limit int) Option {
	return func(n *Normaliser) {
		if limit > 0 {
			n.concurrency = limit
		}
	}
}

// WithMock disables star lookups for deterministic output.
func WithMock(mock bool) Option {
	return func(n *Normaliser) {
		n.mock = mock
	}
}

// WithParser replaces the default parser.
func WithParser(p *parser.Parser) Option {
	return func(n *Normaliser) {
		n.parser = p
	}
}

// New creates a normaliser.
func New(opts ...Option) *Normaliser {
	n := &Normaliser{
		parser:      parser.New(),
		concurrency: DefaultBadgeConcurrency,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalise parses content and returns its items in document order.
func (n *Normaliser) Normalise(ctx context.Context, content []byte, req driven.NormaliseRequest) ([]domain.ParsedItem, error) {
	sections, err := n.parser.Parse(content, req.File.Options)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", req.File.Path, err)
	}
	return n.NormaliseSections(ctx, sections, req)
}

// NormaliseSections normalises already parsed sections as one batch.
// Star lookups for the whole batch share one bounded worker pool.
func (n *Normaliser) NormaliseSections(ctx context.Context, sections []parser.Section, req driven.NormaliseRequest) ([]domain.ParsedItem, error) {
	links := Links{RepoURL: req.RepoURL, Branch: req.DefaultBranch, File: req.File.Path}

	type pending struct {
		section parser.Section
		rawID   string
		node    md.Node
		header  []md.Node
	}
	work := make([]pending, len(sections))
	repos := map[string]struct{}{}
	for i, s := range sections {
		p := pending{section: s, rawID: Identifier(s, req.File.IDStrategy), node: s.Fragment}
		if s.Format == domain.FormatTable {
			p.node = md.RemoveResidue(p.node)
			p.header = make([]md.Node, len(s.Header))
			for j, h := range s.Header {
				p.header[j] = md.RemoveResidue(h)
			}
		}
		// Candidates come from the source links: relative links resolve to
		// the list's own repository and are never badged.
		for _, repo := range BadgeCandidates(p.node) {
			repos[repo] = struct{}{}
		}
		work[i] = p
	}

	stars, err := n.lookupStars(ctx, repos)
	if err != nil {
		return nil, err
	}

	categoryHTML := map[string]string{}
	items := make([]domain.ParsedItem, 0, len(work))
	for _, p := range work {
		node := links.Rewrite(ApplyBadges(p.node, stars))

		var formatted string
		if p.section.Format == domain.FormatTable {
			formatted = FormatTableItem(p.header, node)
		} else {
			formatted = md.Format(node)
		}
		html, err := md.RenderHTML(formatted)
		if err != nil {
			return nil, err
		}
		catHTML, ok := categoryHTML[p.section.Category]
		if !ok && p.section.Category != "" {
			if catHTML, err = md.RenderHTML(p.section.Category); err != nil {
				return nil, err
			}
			categoryHTML[p.section.Category] = catHTML
		}

		items = append(items, domain.ParsedItem{
			Fingerprint:   Fingerprint(p.rawID),
			RawIdentifier: p.rawID,
			Category:      p.section.Category,
			CategoryHTML:  catHTML,
			Markdown:      formatted,
			HTML:          html,
			Line:          p.section.Line,
		})
	}
	return items, nil
}

// lookupStars resolves star counts for "owner/repo" keys. Failed lookups
// are logged and left out; only context cancellation fails the batch.
func (n *Normaliser) lookupStars(ctx context.Context, repos map[string]struct{}) (map[string]int, error) {
	out := make(map[string]int, len(repos))
	if n.mock || n.stars == nil || len(repos) == 0 {
		return out, nil
	}

	results := make(chan struct {
		repo  string
		count int
	}, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for repo := range repos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			owner, name, _ := strings.Cut(repo, "/")
			count, err := n.stars.Stars(gctx, owner, name)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Debug("star lookup for %s failed: %v", repo, err)
				return nil
			}
			results <- struct {
				repo  string
				count int
			}{repo, count}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)
	for r := range results {
		out[r.repo] = r.count
	}
	return out, nil
}

// Identifier returns the raw identifier of a section: the serialized
// fragment, or its first link under IDFirstLink.
func Identifier(s parser.Section, strategy domain.IDStrategy) string {
	if strategy == domain.IDFirstLink {
		if link, ok := md.FirstLink(s.Fragment); ok {
			return strings.TrimSpace(md.Format(link))
		}
	}
	return strings.TrimSpace(md.Format(s.Fragment))
}

// Fingerprint returns the SHA-1 hex digest of a raw identifier.
func Fingerprint(rawID string) string {
	sum := sha1.Sum([]byte(rawID)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// FormatTableItem renders a table row as the leading unlabeled value
// followed by one "  Header: value" paragraph per remaining column.
func FormatTableItem(header []md.Node, row md.Node) string {
	var b strings.Builder
	for i, cell := range row.Children {
		value := strings.TrimSpace(md.FormatInline(cell))
		if i == 0 {
			b.WriteString(value)
			b.WriteString("\n\n")
			continue
		}
		label := ""
		if i < len(header) {
			label = strings.TrimSpace(md.FormatInline(header[i]))
		}
		b.WriteString("  ")
		if label != "" {
			b.WriteString(label)
			b.WriteString(": ")
		}
		b.WriteString(value)
		b.WriteString("\n\n")
	}
	return b.String()
}
