// Package markdown provides an immutable markdown node tree built from
// goldmark's AST, transforms over it, and a canonical serializer.
//
// Nodes are values. Transforms never modify their input: Map and Filter
// return new trees with freshly allocated child slices, so two views of
// the same fragment (for example the raw identifier and the normalised
// form) cannot observe each other's edits.
package markdown

// Kind identifies a node type.
type Kind uint8

const (
	Document Kind = iota
	Paragraph
	Heading
	List
	ListItem
	Blockquote
	CodeBlock
	HTMLBlock
	ThematicBreak
	Table
	TableRow
	TableCell
	Text
	Emphasis
	Strong
	Delete
	InlineCode
	Break
	Link
	Image
	InlineHTML
)

var kindNames = [...]string{
	"document", "paragraph", "heading", "list", "listItem", "blockquote",
	"code", "html", "thematicBreak", "table", "tableRow", "tableCell",
	"text", "emphasis", "strong", "delete", "inlineCode", "break", "link",
	"image", "inlineHTML",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsBlock reports whether nodes of this kind are block level.
func (k Kind) IsBlock() bool {
	return k <= TableCell
}

// Align is a table column alignment.
type Align uint8

const (
	AlignNone Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// Node is one element of the tree. Fields that do not apply to a kind
// are left zero.
type Node struct {
	Kind     Kind
	Children []Node

	// Value holds the literal content of Text, InlineCode, CodeBlock,
	// HTMLBlock and InlineHTML nodes.
	Value string

	// URL and Title belong to Link and Image nodes.
	URL   string
	Title string

	// Auto marks a Link written as <url>.
	Auto bool

	// Depth is the Heading level.
	Depth int

	// Ordered, Start and Tight describe a List.
	Ordered bool
	Start   int
	Tight   bool

	// Checked is set on task ListItems.
	Checked *bool

	// Lang is the CodeBlock info string.
	Lang string

	// Hard marks a hard Break; soft breaks leave it false.
	Hard bool

	// Align holds a Table's column alignments.
	Align []Align

	// Line is the 1-based source line a block ends on.
	Line int
}

// NewText returns a text node.
func NewText(s string) Node {
	return Node{Kind: Text, Value: s}
}

// IsAnchorLink reports whether n links to a same-page anchor.
func (n Node) IsAnchorLink() bool {
	return n.Kind == Link && len(n.URL) > 0 && n.URL[0] == '#'
}

// WithChildren returns a copy of n holding children.
func (n Node) WithChildren(children []Node) Node {
	n.Children = children
	return n
}
