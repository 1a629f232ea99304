// Package items provides a scrollable view of tracked items.
package items

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

var errNoItemQuery = errors.New("item query not available")

// View shows the items selected by an ItemQuery, newest first,
// grouped by file and category.
type View struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	query    driving.ItemQuery
	viewport viewport.Model
	now      func() time.Time

	current messages.ItemQuery
	items   []domain.Item
	loading bool
	err     error
	width   int
	height  int
}

// NewView creates a new items view.
func NewView(s *styles.Styles, km *keymap.KeyMap, query driving.ItemQuery) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	vp := viewport.New(80, 20)
	vp.KeyMap.PageDown = km.PageDown
	vp.KeyMap.PageUp = km.PageUp
	vp.KeyMap.Up = km.Up
	vp.KeyMap.Down = km.Down

	return &View{
		styles:   s,
		keymap:   km,
		query:    query,
		viewport: vp,
		now:      time.Now,
		width:    80,
		height:   24,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load starts loading the items of q.
func (v *View) Load(q messages.ItemQuery) tea.Cmd {
	v.current = q
	v.loading = true
	v.err = nil
	svc, now := v.query, v.now()
	return func() tea.Msg {
		if svc == nil {
			return messages.ItemsLoaded{Query: q, Err: errNoItemQuery}
		}
		items, err := fetch(context.Background(), svc, q, now)
		return messages.ItemsLoaded{Query: q, Items: items, Err: err}
	}
}

func fetch(ctx context.Context, svc driving.ItemQuery, q messages.ItemQuery, now time.Time) ([]domain.Item, error) {
	switch {
	case q.File != "":
		return svc.GetByFile(ctx, q.SourceID, q.File)
	case q.Day != 0:
		return svc.GetByDayBucket(ctx, q.Day)
	case q.Week != 0:
		return svc.GetByWeekBucket(ctx, q.Week)
	default:
		days := q.SinceDays
		if days <= 0 {
			days = 7
		}
		var sources []string
		if q.SourceID != "" {
			sources = []string{q.SourceID}
		}
		groups, err := svc.GetFilesChangedSince(ctx, now.AddDate(0, 0, -days), sources...)
		if err != nil {
			return nil, err
		}
		var out []domain.Item
		for _, g := range groups {
			out = append(out, g.Items...)
		}
		return out, nil
	}
}

// Update handles messages for the items view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.ItemsLoaded:
		if msg.Query != v.current {
			return v, nil // stale
		}
		v.loading = false
		v.err = msg.Err
		v.items = msg.Items
		v.viewport.SetContent(v.render())
		v.viewport.GotoTop()
		return v, nil

	case messages.SyncCompleted:
		if msg.Err == nil {
			return v, v.Load(v.current)
		}
		return v, nil

	case tea.KeyMsg:
		if key.Matches(msg, v.keymap.Reload) {
			return v, v.Load(v.current)
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// render lays out the loaded items for the viewport.
func (v *View) render() string {
	if v.err != nil {
		return v.styles.Error.Render("Error: " + v.err.Error())
	}
	if len(v.items) == 0 {
		return v.styles.Muted.Render("No items.")
	}

	var b strings.Builder
	lastFile, lastCategory := "", "\x00"
	single := v.current.File != ""
	for _, it := range v.items {
		file := it.SourceID + "/" + it.File
		if !single && file != lastFile {
			if lastFile != "" {
				b.WriteString("\n")
			}
			b.WriteString(v.styles.Subtitle.Render(file))
			b.WriteString("\n")
			lastFile, lastCategory = file, "\x00"
		}
		if it.Category != lastCategory {
			if it.Category != "" {
				b.WriteString(v.styles.Category.Render(it.Category))
				b.WriteString("\n")
			}
			lastCategory = it.Category
		}
		b.WriteString(v.styles.Timestamp.Render(it.FirstObservedAt.UTC().Format(time.DateOnly)))
		b.WriteString(v.styles.Normal.Render(firstLine(it.Markdown)))
		b.WriteString("\n")
	}
	return b.String()
}

// firstLine returns the first line of a markdown fragment without its
// list marker.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	for _, marker := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(s, marker) {
			return strings.TrimPrefix(s, marker)
		}
	}
	return s
}

// View renders the items view.
func (v *View) View() string {
	var b strings.Builder

	title := v.current.Title
	if title == "" {
		title = "Items"
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading items..."))
		b.WriteString("\n")
	default:
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%d items  %3.f%%", len(v.items), v.viewport.ScrollPercent()*100)))
		b.WriteString("\n\n")
		b.WriteString(v.viewport.View())
		b.WriteString("\n")
	}

	b.WriteString(v.styles.Help.Render("[j/k] scroll  [pgup/pgdn] page  [r] reload  [esc] back"))
	return b.String()
}

// SetDimensions resizes the view. Title, counter and help take five rows.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-5, 1)
}

// Items returns the loaded items.
func (v *View) Items() []domain.Item {
	return v.items
}

// Query returns the current query.
func (v *View) Query() messages.ItemQuery {
	return v.current
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
