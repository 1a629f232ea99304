// Package menu provides the main navigation menu view for the TUI.
package menu

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/awesometrack/internal/core/calendar"
)

// Item represents a single menu option.
type Item struct {
	Label string
	View  messages.ViewType

	// Query, when set, opens the items view instead of View.
	Query func(now time.Time) messages.ItemQuery

	Quit bool // If true, selecting this item quits the app
}

// View represents the main menu view.
type View struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	items    []Item
	selected int
	width    int
	height   int
	ready    bool
	now      func() time.Time
}

// NewView creates a new menu view.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles: s,
		keymap: km,
		items: []Item{
			{Label: "Sources", View: messages.ViewSources},
			{Label: "Today", Query: func(now time.Time) messages.ItemQuery {
				return messages.ItemQuery{Title: "Today", Day: calendar.DayNumber(now)}
			}},
			{Label: "This week", Query: func(now time.Time) messages.ItemQuery {
				return messages.ItemQuery{Title: "This week", Week: calendar.WeekNumber(now)}
			}},
			{Label: "Last 7 days", Query: func(time.Time) messages.ItemQuery {
				return messages.ItemQuery{Title: "Last 7 days", SinceDays: 7}
			}},
			{Label: "Help", View: messages.ViewHelp},
			{Label: "Quit", Quit: true},
		},
		width:  80,
		height: 24,
		now:    time.Now,
	}
}

// Init initialises the menu view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the menu view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keymap.Up):
			if v.selected > 0 {
				v.selected--
			}
			return v, nil

		case key.Matches(msg, v.keymap.Down):
			if v.selected < len(v.items)-1 {
				v.selected++
			}
			return v, nil

		case key.Matches(msg, v.keymap.Select):
			return v, v.choose(v.items[v.selected])

		case key.Matches(msg, v.keymap.Quit):
			return v, tea.Quit
		}
	}

	return v, nil
}

func (v *View) choose(item Item) tea.Cmd {
	switch {
	case item.Quit:
		return tea.Quit
	case item.Query != nil:
		q := item.Query(v.now())
		return func() tea.Msg {
			return messages.ItemsRequested{Query: q}
		}
	default:
		return func() tea.Msg {
			return messages.ViewChanged{View: item.View}
		}
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder

	b.WriteString(v.styles.Title.Render("awesometrack"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Subtitle.Render("What's new on your awesome lists"))
	b.WriteString("\n\n")

	for i, item := range v.items {
		if i == v.selected {
			b.WriteString("> " + v.styles.Selected.Render(item.Label))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(item.Label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Select  [q] Quit"))

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}
