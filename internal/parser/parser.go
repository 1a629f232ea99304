// Package parser cuts an awesome-list markdown document into item sections.
//
// # Formats
//
//   - list: every top-level list item is one item
//   - table: every table body row is one item
//   - heading: every heading at HeadingLevel and the blocks below it is one item
//
// # Categories
//
// Content before the first heading at MaxHeadingLevel is never itemized.
// Headings with MaxHeadingLevel <= depth < MinHeadingLevel set the current
// category, headings at MinHeadingLevel set the subcategory. Lists that look
// like a table of contents are dropped before segmentation.
package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/markdown"
)

const (
	// DefaultTOCMinAnchors and DefaultTOCMaxExternal form the anchor to
	// external link ratio (10:2) above which a list is navigational.
	DefaultTOCMinAnchors = 10

	DefaultTOCMaxExternal = 2

	// categorySeparator joins category and subcategory.
	categorySeparator = " / "
)

// Section is one raw item cut out of a document.
type Section struct {
	// Format is the segmentation rule that produced the section.
	Format domain.Format

	// Fragment is the raw item: a ListItem, a TableRow, or a Document
	// holding a heading and its blocks.
	Fragment markdown.Node

	// Header holds the table header cells for table sections.
	Header []markdown.Node

	// Category is the " / " joined heading path as markdown.
	Category string

	// Line is the 1-based line the fragment ends on.
	Line int
}

// TOCRule decides whether a list is a table of contents. MinAnchors and
// MaxExternal are the two sides of an anchor to external link ratio.
type TOCRule struct {
	MinAnchors  int
	MaxExternal int
}

// IsTOC reports whether a list with the given link counts is navigational:
// it must hold at least one same-page anchor and either no external links,
// or anchors outnumbering external links by more than MinAnchors:MaxExternal.
func (r TOCRule) IsTOC(anchors, external int) bool {
	if anchors == 0 {
		return false
	}
	return external == 0 || anchors*r.MaxExternal > external*r.MinAnchors
}

// Parser parses documents. It is stateless and safe for concurrent use.
type Parser struct {
	toc TOCRule
}

// Option configures a Parser.
type Option func(*Parser)

// WithTOCRule overrides the table-of-contents thresholds.
func WithTOCRule(rule TOCRule) Option {
	return func(p *Parser) {
		p.toc = rule
	}
}

// New creates a parser.
func New(opts ...Option) *Parser {
	p := &Parser{toc: TOCRule{MinAnchors: DefaultTOCMinAnchors, MaxExternal: DefaultTOCMaxExternal}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse cuts document into sections according to opts.
func (p *Parser) Parse(document []byte, opts domain.ParseOptions) ([]Section, error) {
	switch opts.Format {
	case domain.FormatList, domain.FormatTable:
	case domain.FormatHeading:
		if opts.HeadingLevel <= 0 {
			return nil, fmt.Errorf("%w: heading format requires heading_level", domain.ErrFormatMismatch)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", domain.ErrFormatMismatch, opts.Format)
	}

	body, offset, _ := markdown.StripFrontMatter(document)
	blocks := markdown.Parse(body, offset).Children

	maxLevel, minLevel := ResolveLevels(blocks, opts)
	start := -1
	for i, b := range blocks {
		if b.Kind == markdown.Heading && b.Depth == maxLevel {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil
	}
	blocks = p.dropTOC(blocks[start:])

	s := &segmenter{opts: opts, maxLevel: maxLevel, minLevel: minLevel}
	switch opts.Format {
	case domain.FormatList:
		s.list(blocks)
	case domain.FormatTable:
		s.table(blocks)
	case domain.FormatHeading:
		s.heading(blocks)
	}
	return s.sections, nil
}

// ResolveLevels returns the effective max and min heading levels. Unset
// levels are detected from the document: max is the shallowest heading
// depth and min the second shallowest. A single depth-1 heading is the
// document title and does not take part in detection.
func ResolveLevels(blocks []markdown.Node, opts domain.ParseOptions) (maxLevel, minLevel int) {
	seen := map[int]int{}
	for _, b := range blocks {
		if b.Kind == markdown.Heading {
			seen[b.Depth]++
		}
	}
	var depths []int
	for d := range seen {
		if d == 1 && seen[1] == 1 && len(seen) > 1 {
			continue
		}
		depths = append(depths, d)
	}
	sort.Ints(depths)

	maxLevel = opts.MaxHeadingLevel
	if maxLevel == 0 {
		maxLevel = 2
		if len(depths) > 0 {
			maxLevel = depths[0]
		}
	}
	minLevel = opts.MinHeadingLevel
	if minLevel == 0 {
		minLevel = maxLevel + 1
		for _, d := range depths {
			if d > maxLevel {
				minLevel = d
				break
			}
		}
	}
	return maxLevel, minLevel
}

func (p *Parser) dropTOC(blocks []markdown.Node) []markdown.Node {
	out := make([]markdown.Node, 0, len(blocks))
	for _, b := range blocks {
		if b.Kind == markdown.List && p.isTOC(b) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (p *Parser) isTOC(list markdown.Node) bool {
	anchors, external := 0, 0
	for _, l := range markdown.Links(list) {
		if l.IsAnchorLink() {
			anchors++
		} else {
			external++
		}
	}
	return p.toc.IsTOC(anchors, external)
}

// segmenter accumulates categories and sections while walking blocks.
type segmenter struct {
	opts     domain.ParseOptions
	maxLevel int
	minLevel int

	category    string
	subcategory string
	sections    []Section
}

// observe updates the category state for a heading.
func (s *segmenter) observe(h markdown.Node) {
	if s.opts.Format == domain.FormatHeading && h.Depth >= s.opts.HeadingLevel {
		return
	}
	switch {
	case h.Depth >= s.maxLevel && h.Depth < s.minLevel:
		s.category = headingCategory(h)
		s.subcategory = ""
	case h.Depth == s.minLevel:
		s.subcategory = headingCategory(h)
	}
}

// current returns the effective category string.
func (s *segmenter) current() string {
	if !s.opts.ParseCategory {
		return ""
	}
	var parts []string
	if s.category != "" {
		parts = append(parts, s.category)
	}
	if s.subcategory != "" {
		parts = append(parts, s.subcategory)
	}
	return strings.ReplaceAll(strings.Join(parts, categorySeparator), "\n", " ")
}

func (s *segmenter) emit(sec Section) {
	for _, prefix := range s.opts.CategoryExclusions {
		if prefix != "" && strings.HasPrefix(sec.Category, prefix) {
			return
		}
	}
	if sec.Line == 0 {
		if n := len(s.sections); n > 0 {
			sec.Line = s.sections[n-1].Line
		}
	}
	s.sections = append(s.sections, sec)
}

func (s *segmenter) list(blocks []markdown.Node) {
	for _, b := range blocks {
		switch b.Kind {
		case markdown.Heading:
			s.observe(b)
		case markdown.List:
			for _, item := range b.Children {
				s.emit(Section{
					Format:   domain.FormatList,
					Fragment: item,
					Category: s.current(),
					Line:     markdown.LastLine(item),
				})
			}
		}
	}
}

func (s *segmenter) table(blocks []markdown.Node) {
	for _, b := range blocks {
		switch b.Kind {
		case markdown.Heading:
			s.observe(b)
		case markdown.Table:
			if len(b.Children) < 2 {
				continue
			}
			header := b.Children[0].Children
			for _, row := range b.Children[1:] {
				line := markdown.LastLine(row)
				if line == 0 {
					line = b.Line
				}
				s.emit(Section{
					Format:   domain.FormatTable,
					Fragment: row,
					Header:   header,
					Category: s.current(),
					Line:     line,
				})
			}
		}
	}
}

func (s *segmenter) heading(blocks []markdown.Node) {
	var (
		item     []markdown.Node
		category string
	)
	flush := func() {
		if len(item) == 0 {
			return
		}
		last := item[len(item)-1]
		s.emit(Section{
			Format:   domain.FormatHeading,
			Fragment: markdown.Node{Kind: markdown.Document, Children: item},
			Category: category,
			Line:     markdown.LastLine(last),
		})
		item = nil
	}

	level := s.opts.HeadingLevel
	for _, b := range blocks {
		switch {
		case b.Kind == markdown.Heading && b.Depth <= level:
			flush()
			if b.Depth == level {
				item = []markdown.Node{b}
				category = s.current()
			} else {
				s.observe(b)
			}
		case b.Kind == markdown.ThematicBreak:
		case item != nil:
			item = append(item, b)
		}
	}
	flush()
}

// headingCategory renders a heading's text without anchors or raw HTML.
func headingCategory(h markdown.Node) string {
	return markdown.HeadingText(markdown.RemoveResidue(h))
}
