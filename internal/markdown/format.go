package markdown

import (
	"strconv"
	"strings"
)

// Format serializes n to canonical markdown without a trailing newline.
// Bullets are "-", emphasis uses "*", code is always fenced and headings
// are ATX. Text values are emitted verbatim, so escapes written in the
// source survive a parse and format round trip.
func Format(n Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return strings.TrimRight(b.String(), "\n")
}

// FormatInline serializes the children of n as one line of inline markdown.
func FormatInline(n Node) string {
	var b strings.Builder
	writeInlines(&b, n.Children)
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	switch n.Kind {
	case Document:
		writeBlocks(b, n.Children, "\n\n")
	case ListItem:
		writeList(b, Node{Kind: List, Tight: true, Children: []Node{n}})
	case TableRow:
		writeRow(b, n)
	case TableCell:
		writeInlines(b, n.Children)
	default:
		if n.Kind.IsBlock() {
			writeBlock(b, n)
		} else {
			writeInline(b, n)
		}
	}
}

func writeBlocks(b *strings.Builder, blocks []Node, sep string) {
	first := true
	for _, n := range blocks {
		var nb strings.Builder
		writeBlock(&nb, n)
		s := strings.TrimRight(nb.String(), "\n")
		if s == "" {
			continue
		}
		if !first {
			b.WriteString(sep)
		}
		first = false
		b.WriteString(s)
	}
}

func writeBlock(b *strings.Builder, n Node) {
	switch n.Kind {
	case Paragraph:
		writeInlines(b, n.Children)
	case Heading:
		b.WriteString(strings.Repeat("#", max(n.Depth, 1)))
		b.WriteByte(' ')
		b.WriteString(HeadingText(n))
	case ThematicBreak:
		b.WriteString("***")
	case CodeBlock:
		writeCode(b, n)
	case HTMLBlock:
		b.WriteString(strings.TrimRight(n.Value, "\n"))
	case Blockquote:
		var inner strings.Builder
		writeBlocks(&inner, n.Children, "\n\n")
		for i, line := range strings.Split(inner.String(), "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			if line == "" {
				b.WriteByte('>')
			} else {
				b.WriteString("> ")
				b.WriteString(line)
			}
		}
	case List:
		writeList(b, n)
	case ListItem, TableRow, TableCell, Document:
		writeNode(b, n)
	case Table:
		writeTable(b, n)
	default:
		writeInline(b, n)
	}
}

func writeCode(b *strings.Builder, n Node) {
	fence := "```"
	for strings.Contains(n.Value, fence) {
		fence += "`"
	}
	b.WriteString(fence)
	b.WriteString(n.Lang)
	b.WriteByte('\n')
	if v := strings.TrimRight(n.Value, "\n"); v != "" {
		b.WriteString(v)
		b.WriteByte('\n')
	}
	b.WriteString(fence)
}

func writeList(b *strings.Builder, n Node) {
	sep := "\n\n"
	if n.Tight {
		sep = "\n"
	}
	start := n.Start
	if n.Ordered && start == 0 {
		start = 1
	}
	for i, item := range n.Children {
		if i > 0 {
			b.WriteString(sep)
		}
		marker := "- "
		if n.Ordered {
			marker = strconv.Itoa(start+i) + ". "
		}
		var inner strings.Builder
		if item.Checked != nil {
			if *item.Checked {
				inner.WriteString("[x] ")
			} else {
				inner.WriteString("[ ] ")
			}
		}
		writeBlocks(&inner, item.Children, sep)
		content := inner.String()
		if strings.TrimSpace(content) == "" {
			b.WriteString(strings.TrimRight(marker, " "))
			continue
		}
		indent := strings.Repeat(" ", len(marker))
		for j, line := range strings.Split(content, "\n") {
			switch {
			case j == 0:
				b.WriteString(marker)
			case line == "":
				b.WriteByte('\n')
				continue
			default:
				b.WriteByte('\n')
				b.WriteString(indent)
			}
			b.WriteString(line)
		}
	}
}

func writeTable(b *strings.Builder, n Node) {
	for i, row := range n.Children {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeRow(b, row)
		if i == 0 {
			b.WriteByte('\n')
			b.WriteByte('|')
			for j := range row.Children {
				align := AlignNone
				if j < len(n.Align) {
					align = n.Align[j]
				}
				switch align {
				case AlignLeft:
					b.WriteString(" :-- |")
				case AlignCenter:
					b.WriteString(" :-: |")
				case AlignRight:
					b.WriteString(" --: |")
				default:
					b.WriteString(" --- |")
				}
			}
		}
	}
}

func writeRow(b *strings.Builder, row Node) {
	b.WriteByte('|')
	for _, cell := range row.Children {
		b.WriteByte(' ')
		writeInlines(b, cell.Children)
		b.WriteString(" |")
	}
}

// HeadingText serializes a heading's content on a single line.
func HeadingText(n Node) string {
	var b strings.Builder
	writeInlines(&b, n.Children)
	return strings.TrimSpace(strings.ReplaceAll(b.String(), "\n", " "))
}

func writeInlines(b *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		writeInline(b, n)
	}
}

func writeInline(b *strings.Builder, n Node) {
	switch n.Kind {
	case Text:
		b.WriteString(n.Value)
		writeInlines(b, n.Children)
	case Break:
		if n.Hard {
			b.WriteByte('\\')
		}
		b.WriteByte('\n')
	case Emphasis:
		b.WriteByte('*')
		writeInlines(b, n.Children)
		b.WriteByte('*')
	case Strong:
		b.WriteString("**")
		writeInlines(b, n.Children)
		b.WriteString("**")
	case Delete:
		b.WriteString("~~")
		writeInlines(b, n.Children)
		b.WriteString("~~")
	case InlineCode:
		writeCodeSpan(b, n.Value)
	case InlineHTML:
		b.WriteString(n.Value)
	case Link:
		if n.Auto {
			b.WriteByte('<')
			b.WriteString(PlainText(n))
			b.WriteByte('>')
			return
		}
		b.WriteByte('[')
		writeInlines(b, n.Children)
		b.WriteString("](")
		writeDestination(b, n.URL, n.Title)
		b.WriteByte(')')
	case Image:
		b.WriteString("![")
		writeInlines(b, n.Children)
		b.WriteString("](")
		writeDestination(b, n.URL, n.Title)
		b.WriteByte(')')
	default:
		if n.Kind.IsBlock() {
			writeBlock(b, n)
		}
	}
}

func writeCodeSpan(b *strings.Builder, value string) {
	longest, run := 0, 0
	for _, r := range value {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", longest+1)
	pad := strings.HasPrefix(value, "`") || strings.HasSuffix(value, "`")
	b.WriteString(fence)
	if pad {
		b.WriteByte(' ')
	}
	b.WriteString(value)
	if pad {
		b.WriteByte(' ')
	}
	b.WriteString(fence)
}

func writeDestination(b *strings.Builder, url, title string) {
	if url == "" || strings.ContainsAny(url, " <>") || !balancedParens(url) {
		b.WriteByte('<')
		b.WriteString(url)
		b.WriteByte('>')
	} else {
		b.WriteString(url)
	}
	if title != "" {
		b.WriteString(` "`)
		writeTitle(b, title)
		b.WriteByte('"')
	}
}

// writeTitle writes a raw link title, which keeps its source escapes.
// Only quotes that are not already escaped get a backslash.
func writeTitle(b *strings.Builder, title string) {
	backslashes := 0
	for i := 0; i < len(title); i++ {
		c := title[i]
		if c == '"' && backslashes%2 == 0 {
			b.WriteByte('\\')
		}
		if c == '\\' {
			backslashes++
		} else {
			backslashes = 0
		}
		b.WriteByte(c)
	}
}

func balancedParens(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
