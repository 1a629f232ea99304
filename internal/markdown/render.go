package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
)

// RenderHTML renders a markdown fragment to HTML with the same engine
// that parses documents. Raw HTML is passed through.
func RenderHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// StripFrontMatter removes a leading YAML or TOML front matter block.
// It returns the remaining body and the number of lines removed, so
// that line numbers in the body can be mapped back to the file.
// Documents without (or with malformed) front matter are returned as is.
func StripFrontMatter(src []byte) (body []byte, lineOffset int, meta map[string]any) {
	if !bytes.HasPrefix(src, []byte("---")) && !bytes.HasPrefix(src, []byte("+++")) {
		return src, 0, nil
	}
	meta = map[string]any{}
	rest, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil || len(rest) == len(src) || !bytes.HasSuffix(src, rest) {
		return src, 0, nil
	}
	head := src[:len(src)-len(rest)]
	return rest, bytes.Count(head, []byte("\n")), meta
}
