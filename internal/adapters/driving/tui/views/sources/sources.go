// Package sources provides the sources view component for the TUI.
package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

var errNoSourceService = errors.New("source service not available")

// View lists the configured sources with their tracking status.
type View struct {
	styles        *styles.Styles
	keymap        *keymap.KeyMap
	sourceService driving.SourceService
	tracker       driving.Tracker

	sources  []domain.Source
	status   map[string]*driving.SyncStatus
	selected int
	width    int
	height   int
	ready    bool
	err      error
	loading  bool
}

// NewView creates a new sources view. tracker may be nil, in which case
// status columns stay empty and syncing is disabled.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	sourceService driving.SourceService,
	tracker driving.Tracker,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:        s,
		keymap:        km,
		sourceService: sourceService,
		tracker:       tracker,
		status:        make(map[string]*driving.SyncStatus),
	}
}

// Init initialises the view and loads sources.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadSources()
}

// loadSources returns a command that loads sources and their status.
func (v *View) loadSources() tea.Cmd {
	svc, tracker := v.sourceService, v.tracker
	return func() tea.Msg {
		if svc == nil {
			return messages.SourcesLoaded{Err: errNoSourceService}
		}

		ctx := context.Background()
		sources, err := svc.List(ctx)
		if err != nil {
			return messages.SourcesLoaded{Err: err}
		}

		status := make(map[string]*driving.SyncStatus, len(sources))
		if tracker != nil {
			for _, src := range sources {
				st, err := tracker.Status(ctx, src.Identifier)
				if err != nil {
					continue
				}
				status[src.Identifier] = st
			}
		}
		return messages.SourcesLoaded{Sources: sources, Status: status}
	}
}

// Update handles messages for the sources view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SourcesLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.sources = msg.Sources
		v.status = msg.Status
		if v.status == nil {
			v.status = make(map[string]*driving.SyncStatus)
		}
		if v.selected >= len(v.sources) {
			v.selected = max(len(v.sources)-1, 0)
		}
		v.err = nil
		return v, nil

	case messages.SyncCompleted:
		// Item counts changed.
		return v, v.loadSources()
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
		}
	case key.Matches(msg, v.keymap.Down):
		if v.selected < len(v.sources)-1 {
			v.selected++
		}
	case key.Matches(msg, v.keymap.Select):
		if src, ok := v.current(); ok {
			return v, func() tea.Msg {
				return messages.SourceSelected{Source: src}
			}
		}
	case key.Matches(msg, v.keymap.Sync):
		if v.tracker == nil {
			return v, nil
		}
		if src, ok := v.current(); ok {
			ids := []string{src.Identifier}
			return v, func() tea.Msg {
				return messages.SyncRequested{SourceIDs: ids}
			}
		}
	case key.Matches(msg, v.keymap.Reload):
		v.loading = true
		return v, v.loadSources()
	}

	return v, nil
}

func (v *View) current() (domain.Source, bool) {
	if v.selected < 0 || v.selected >= len(v.sources) {
		return domain.Source{}, false
	}
	return v.sources[v.selected], true
}

// View renders the sources view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Sources"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading sources..."))
		b.WriteString("\n\n")
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	case len(v.sources) == 0:
		b.WriteString(v.styles.Muted.Render("No sources configured."))
		b.WriteString("\n\n")
	default:
		for i := range v.sources {
			b.WriteString(v.renderSource(i, &v.sources[i]))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(v.renderHelp())
	return b.String()
}

// renderSource renders a single source line.
func (v *View) renderSource(index int, source *domain.Source) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	name := source.Identifier
	maxNameLen := v.width - 30
	if maxNameLen < 10 {
		maxNameLen = 10
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen-3] + "..."
	}

	counts := fmt.Sprintf("%d files", len(source.Files))
	if st, ok := v.status[source.Identifier]; ok && st != nil {
		counts = fmt.Sprintf("%d/%d files  %d items", st.Files, len(source.Files), st.Items)
		if st.Running {
			counts += "  syncing"
		}
	}

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-*s %s", indicator, maxNameLen, name, counts))
	}
	return v.styles.Normal.Render(indicator) +
		v.styles.Normal.Render(fmt.Sprintf("%-*s ", maxNameLen, name)) +
		v.styles.Muted.Render(counts)
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	if v.tracker == nil {
		return v.styles.Help.Render("[enter] files  [r] reload  [esc] back  [q] quit")
	}
	return v.styles.Help.Render("[enter] files  [s] sync  [r] reload  [esc] back  [q] quit")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Sources returns the current list of sources.
func (v *View) Sources() []domain.Source {
	return v.sources
}

// SelectedIndex returns the currently selected source index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
