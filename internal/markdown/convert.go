package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// newEngine builds the goldmark engine shared by parsing and rendering.
// Linkify is left out so that bare URLs stay text and the serializer
// reproduces them verbatim.
func newEngine() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}

var engine = newEngine()

// Parse parses src into a Document node. Block nodes carry the line they
// end on, shifted by lineOffset.
func Parse(src []byte, lineOffset int) Node {
	doc := engine.Parser().Parse(text.NewReader(src))
	c := converter{src: src, offset: lineOffset, lines: newLineIndex(src)}
	return c.node(doc)
}

type converter struct {
	src    []byte
	offset int
	lines  lineIndex
}

func (c *converter) children(n ast.Node) []Node {
	if n.ChildCount() == 0 {
		return nil
	}
	out := make([]Node, 0, n.ChildCount())
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		out = append(out, c.expand(child)...)
	}
	return out
}

// expand converts one goldmark node. Text nodes followed by a line
// break expand to two nodes.
func (c *converter) expand(n ast.Node) []Node {
	if t, ok := n.(*ast.Text); ok {
		out := []Node{NewText(string(t.Segment.Value(c.src)))}
		switch {
		case t.HardLineBreak():
			out = append(out, Node{Kind: Break, Hard: true})
		case t.SoftLineBreak():
			out = append(out, Node{Kind: Break})
		}
		if out[0].Value == "" {
			out = out[1:]
		}
		return out
	}
	switch n.(type) {
	case *east.TaskCheckBox:
		// folded into the enclosing list item
		return nil
	case *ast.Emphasis, *east.Strikethrough, *ast.CodeSpan, *ast.Link,
		*ast.AutoLink, *ast.Image, *ast.RawHTML, *ast.String:
		return []Node{c.node(n)}
	}
	if n.Type() == ast.TypeInline {
		// unknown inline extensions contribute only their content
		return c.children(n)
	}
	return []Node{c.node(n)}
}

func (c *converter) node(n ast.Node) Node {
	var out Node
	switch v := n.(type) {
	case *ast.Document:
		out = Node{Kind: Document, Children: c.children(n)}
	case *ast.Paragraph, *ast.TextBlock:
		out = Node{Kind: Paragraph, Children: c.children(n)}
	case *ast.Heading:
		out = Node{Kind: Heading, Depth: v.Level, Children: c.children(n)}
	case *ast.List:
		out = Node{Kind: List, Ordered: v.IsOrdered(), Start: v.Start, Tight: v.IsTight, Children: c.children(n)}
	case *ast.ListItem:
		out = Node{Kind: ListItem, Checked: taskState(n), Children: c.children(n)}
	case *ast.Blockquote:
		out = Node{Kind: Blockquote, Children: c.children(n)}
	case *ast.FencedCodeBlock:
		out = Node{Kind: CodeBlock, Lang: string(v.Language(c.src)), Value: c.segments(v.Lines())}
	case *ast.CodeBlock:
		out = Node{Kind: CodeBlock, Value: c.segments(v.Lines())}
	case *ast.HTMLBlock:
		value := c.segments(v.Lines())
		if v.HasClosure() {
			value += string(v.ClosureLine.Value(c.src))
		}
		out = Node{Kind: HTMLBlock, Value: value}
	case *ast.ThematicBreak:
		out = Node{Kind: ThematicBreak}
	case *east.Table:
		align := make([]Align, len(v.Alignments))
		for i, a := range v.Alignments {
			align[i] = convertAlign(a)
		}
		out = Node{Kind: Table, Align: align, Children: c.children(n)}
	case *east.TableHeader, *east.TableRow:
		out = Node{Kind: TableRow, Children: c.children(n)}
	case *east.TableCell:
		out = Node{Kind: TableCell, Children: c.children(n)}
	case *ast.Emphasis:
		kind := Emphasis
		if v.Level >= 2 {
			kind = Strong
		}
		out = Node{Kind: kind, Children: c.children(n)}
	case *east.Strikethrough:
		out = Node{Kind: Delete, Children: c.children(n)}
	case *ast.CodeSpan:
		var b bytes.Buffer
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			switch t := child.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(c.src))
			case *ast.String:
				b.Write(t.Value)
			}
		}
		out = Node{Kind: InlineCode, Value: b.String()}
	case *ast.Link:
		out = Node{Kind: Link, URL: string(v.Destination), Title: string(v.Title), Children: c.children(n)}
	case *ast.AutoLink:
		label := string(v.Label(c.src))
		url := string(v.URL(c.src))
		if v.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(url), "mailto:") {
			url = "mailto:" + url
		}
		out = Node{Kind: Link, URL: url, Auto: true, Children: []Node{NewText(label)}}
	case *ast.Image:
		out = Node{Kind: Image, URL: string(v.Destination), Title: string(v.Title), Children: c.children(n)}
	case *ast.RawHTML:
		out = Node{Kind: InlineHTML, Value: c.segments(v.Segments)}
	case *ast.String:
		out = NewText(string(v.Value))
	default:
		// unknown extension blocks keep their content as a paragraph
		out = Node{Kind: Paragraph, Children: c.children(n)}
	}
	if out.Kind.IsBlock() && out.Kind != Document {
		out.Line = c.endLine(n)
	}
	return out
}

func (c *converter) segments(lines *text.Segments) string {
	if lines == nil {
		return ""
	}
	var b bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.src))
	}
	return b.String()
}

// endLine finds the last source byte covered by n or its descendants.
func (c *converter) endLine(n ast.Node) int {
	stop := c.maxStop(n)
	if stop <= 0 {
		return 0
	}
	return c.lines.lineOf(c.src, stop) + c.offset
}

func (c *converter) maxStop(n ast.Node) int {
	stop := 0
	switch v := n.(type) {
	case *ast.Text:
		stop = v.Segment.Stop
	case *ast.RawHTML:
		if v.Segments != nil && v.Segments.Len() > 0 {
			stop = v.Segments.At(v.Segments.Len() - 1).Stop
		}
	default:
		if n.Type() == ast.TypeBlock {
			if lines := n.Lines(); lines != nil && lines.Len() > 0 {
				stop = lines.At(lines.Len() - 1).Stop
			}
			if h, ok := n.(*ast.HTMLBlock); ok && h.HasClosure() {
				stop = max(stop, h.ClosureLine.Stop)
			}
		}
	}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		stop = max(stop, c.maxStop(child))
	}
	return stop
}

func taskState(item ast.Node) *bool {
	first := item.FirstChild()
	if first == nil {
		return nil
	}
	if box, ok := first.FirstChild().(*east.TaskCheckBox); ok {
		checked := box.IsChecked
		return &checked
	}
	return nil
}

func convertAlign(a east.Alignment) Align {
	switch a {
	case east.AlignLeft:
		return AlignLeft
	case east.AlignCenter:
		return AlignCenter
	case east.AlignRight:
		return AlignRight
	default:
		return AlignNone
	}
}

// lineIndex holds the offsets of every newline in a source.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	var idx lineIndex
	for i, b := range src {
		if b == '\n' {
			idx = append(idx, i)
		}
	}
	return idx
}

// lineOf returns the 1-based line of the last non-newline byte before stop.
func (idx lineIndex) lineOf(src []byte, stop int) int {
	p := min(stop, len(src)) - 1
	for p > 0 && (src[p] == '\n' || src[p] == '\r') {
		p--
	}
	// number of newlines strictly before p
	lo, hi := 0, len(idx)
	for lo < hi {
		mid := (lo + hi) / 2
		if idx[mid] < p {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo + 1
}
