// Package files provides the tracked files view of one source.
package files

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

// View lists the tracked files of a source.
type View struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	canSync bool

	source   *domain.Source
	selected int
	width    int
	height   int
	ready    bool
}

// NewView creates a new files view. canSync enables the sync key.
func NewView(s *styles.Styles, km *keymap.KeyMap, canSync bool) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:  s,
		keymap:  km,
		canSync: canSync,
	}
}

// SetSource sets the source whose files are shown.
func (v *View) SetSource(source domain.Source) {
	v.source = &source
	v.selected = 0
}

// Source returns the current source, or nil.
func (v *View) Source() *domain.Source {
	return v.source
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the files view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.source == nil {
			return v, nil
		}
		switch {
		case key.Matches(msg, v.keymap.Up):
			if v.selected > 0 {
				v.selected--
			}
		case key.Matches(msg, v.keymap.Down):
			if v.selected < len(v.source.Files)-1 {
				v.selected++
			}
		case key.Matches(msg, v.keymap.Select):
			if v.selected < len(v.source.Files) {
				q := v.query(v.source.Files[v.selected])
				return v, func() tea.Msg {
					return messages.ItemsRequested{Query: q}
				}
			}
		case key.Matches(msg, v.keymap.Sync):
			if v.canSync {
				ids := []string{v.source.Identifier}
				return v, func() tea.Msg {
					return messages.SyncRequested{SourceIDs: ids}
				}
			}
		}
	}
	return v, nil
}

func (v *View) query(f domain.TrackedFile) messages.ItemQuery {
	title := f.Name
	if title == "" {
		title = v.source.Identifier + "/" + f.Path
	}
	return messages.ItemQuery{Title: title, SourceID: v.source.Identifier, File: f.Path}
}

// View renders the files view.
func (v *View) View() string {
	var b strings.Builder

	if v.source == nil {
		b.WriteString(v.styles.Error.Render("No source selected"))
		return b.String()
	}

	b.WriteString(v.styles.Title.Render(v.source.Identifier))
	b.WriteString("\n")
	if v.source.Category != "" {
		b.WriteString(v.styles.Category.Render(v.source.Category))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(v.source.Files) == 0 {
		b.WriteString(v.styles.Muted.Render("No tracked files."))
		b.WriteString("\n")
	}
	for i, f := range v.source.Files {
		b.WriteString(v.renderFile(i, f))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := "[enter] items  [esc] back  [q] quit"
	if v.canSync {
		help = "[enter] items  [s] sync  [esc] back  [q] quit"
	}
	b.WriteString(v.styles.Help.Render(help))
	return b.String()
}

func (v *View) renderFile(index int, f domain.TrackedFile) string {
	marker := " "
	if f.Index {
		marker = "*"
	}
	detail := string(f.Options.Format)
	if f.Options.Format == domain.FormatHeading {
		detail = fmt.Sprintf("%s h%d", detail, f.Options.HeadingLevel)
	}
	label := fmt.Sprintf("%s %s", marker, f.Path)
	if f.Name != "" {
		label += "  " + f.Name
	}

	if index == v.selected {
		return v.styles.Selected.Render("> "+label) + "  " + v.styles.Muted.Render(detail)
	}
	return v.styles.Normal.Render("  "+label) + "  " + v.styles.Muted.Render(detail)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// SelectedIndex returns the selected file index.
func (v *View) SelectedIndex() int {
	return v.selected
}
