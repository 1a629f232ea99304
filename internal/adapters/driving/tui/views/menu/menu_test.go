package menu

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/messages"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestView() *View {
	v := NewView(nil, nil)
	v.now = func() time.Time { return fixedNow }
	return v
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.NotNil(t, view.keymap)
	assert.Len(t, view.items, 6)
	assert.Equal(t, 0, view.Selected())
	assert.Nil(t, view.Init())
}

func TestView_Update_WindowSize(t *testing.T) {
	view := newTestView()

	updated, cmd := view.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.True(t, view.ready)
	assert.Equal(t, 100, view.width)
	assert.Equal(t, 50, view.height)
}

func TestView_Update_Navigate(t *testing.T) {
	view := newTestView()

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.Selected())

	for range 10 {
		view.Update(keyRune('j'))
	}
	assert.Equal(t, 5, view.Selected(), "cursor stops at last item")

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 4, view.Selected())

	for range 10 {
		view.Update(keyRune('k'))
	}
	assert.Equal(t, 0, view.Selected(), "cursor stops at first item")
}

func TestView_Update_SelectSources(t *testing.T) {
	view := newTestView()

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ViewChanged{View: messages.ViewSources}, cmd())
}

func TestView_Update_SelectQueries(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  messages.ItemQuery
	}{
		{"today", 1, messages.ItemQuery{Title: "Today", Day: 20240310}},
		{"this week", 2, messages.ItemQuery{Title: "This week", Week: 202410}},
		{"last 7 days", 3, messages.ItemQuery{Title: "Last 7 days", SinceDays: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := newTestView()
			view.selected = tt.index

			_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
			require.NotNil(t, cmd)

			msg, ok := cmd().(messages.ItemsRequested)
			require.True(t, ok)
			assert.Equal(t, tt.want, msg.Query)
		})
	}
}

func TestView_Update_Quit(t *testing.T) {
	view := newTestView()
	view.selected = 5

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = view.Update(keyRune('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestView_View(t *testing.T) {
	view := newTestView()
	assert.Equal(t, "Initialising...", view.View())

	view.SetDimensions(80, 24)
	out := view.View()

	assert.Contains(t, out, "awesometrack")
	assert.Contains(t, out, "> ")
	for _, label := range []string{"Sources", "Today", "This week", "Last 7 days", "Help", "Quit"} {
		assert.Contains(t, out, label)
	}
}
