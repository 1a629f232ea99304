package markdown

import "strings"

// Map rebuilds the tree bottom-up, replacing every node with fn's result.
// fn receives a node whose children were already mapped.
func Map(n Node, fn func(Node) Node) Node {
	if len(n.Children) > 0 {
		children := make([]Node, len(n.Children))
		for i, c := range n.Children {
			children[i] = Map(c, fn)
		}
		n.Children = children
	}
	return fn(n)
}

// Filter returns a copy of the tree without the nodes (and their
// subtrees) for which keep returns false. The root is always kept.
func Filter(n Node, keep func(Node) bool) Node {
	if len(n.Children) == 0 {
		return n
	}
	children := make([]Node, 0, len(n.Children))
	for _, c := range n.Children {
		if keep(c) {
			children = append(children, Filter(c, keep))
		}
	}
	n.Children = children
	return n
}

// Walk visits the tree depth-first in document order. Returning false
// from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Links returns every Link node in document order.
func Links(n Node) []Node {
	var links []Node
	Walk(n, func(c Node) bool {
		if c.Kind == Link {
			links = append(links, c)
		}
		return true
	})
	return links
}

// FirstLink returns the first Link node in document order.
func FirstLink(n Node) (Node, bool) {
	var (
		found Node
		ok    bool
	)
	Walk(n, func(c Node) bool {
		if ok {
			return false
		}
		if c.Kind == Link {
			found, ok = c, true
			return false
		}
		return true
	})
	return found, ok
}

// PlainText concatenates the literal text below n.
func PlainText(n Node) string {
	var b strings.Builder
	Walk(n, func(c Node) bool {
		switch c.Kind {
		case Text, InlineCode:
			b.WriteString(c.Value)
		case Break:
			b.WriteByte(' ')
		}
		return true
	})
	return b.String()
}

// LastLine returns the greatest Line recorded below n.
func LastLine(n Node) int {
	line := n.Line
	for _, c := range n.Children {
		if l := LastLine(c); l > line {
			line = l
		}
	}
	return line
}

// RemoveResidue strips navigational leftovers: same-page anchor links
// and raw HTML, both block and inline.
func RemoveResidue(n Node) Node {
	return Filter(n, func(c Node) bool {
		switch c.Kind {
		case HTMLBlock, InlineHTML:
			return false
		case Link:
			return !c.IsAnchorLink()
		}
		return true
	})
}
