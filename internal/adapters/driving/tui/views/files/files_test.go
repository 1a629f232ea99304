package files

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

func testSource() domain.Source {
	return domain.Source{
		Identifier: "avelino/awesome-go",
		Category:   "Languages",
		Files: []domain.TrackedFile{
			{Path: "README.md", Name: "Awesome Go", Index: true, Options: domain.ParseOptions{Format: domain.FormatList}},
			{Path: "docs/talks.md", Options: domain.ParseOptions{Format: domain.FormatHeading, HeadingLevel: 3}},
		},
	}
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil, true)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Nil(t, view.Source())
	assert.Nil(t, view.Init())
	assert.Contains(t, view.View(), "No source selected")
}

func TestView_View(t *testing.T) {
	view := NewView(nil, nil, true)
	view.SetSource(testSource())

	out := view.View()
	assert.Contains(t, out, "avelino/awesome-go")
	assert.Contains(t, out, "Languages")
	assert.Contains(t, out, "* README.md  Awesome Go")
	assert.Contains(t, out, "docs/talks.md")
	assert.Contains(t, out, "heading h3")
	assert.Contains(t, out, "[s] sync")
}

func TestView_View_NoFiles(t *testing.T) {
	view := NewView(nil, nil, false)
	view.SetSource(domain.Source{Identifier: "a/b"})

	out := view.View()
	assert.Contains(t, out, "No tracked files.")
	assert.NotContains(t, out, "[s] sync")
}

func TestView_Update_SelectFile(t *testing.T) {
	view := NewView(nil, nil, true)
	view.SetSource(testSource())

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ItemsRequested{Query: messages.ItemQuery{
		Title: "Awesome Go", SourceID: "avelino/awesome-go", File: "README.md",
	}}, cmd())

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.SelectedIndex())

	_, cmd = view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd().(messages.ItemsRequested)
	assert.Equal(t, "avelino/awesome-go/docs/talks.md", msg.Query.Title)

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, view.SelectedIndex())
}

func TestView_Update_Sync(t *testing.T) {
	view := NewView(nil, nil, true)
	view.SetSource(testSource())

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.SyncRequested{SourceIDs: []string{"avelino/awesome-go"}}, cmd())

	readOnly := NewView(nil, nil, false)
	readOnly.SetSource(testSource())
	_, cmd = readOnly.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	assert.Nil(t, cmd)
}

func TestView_SetSourceResetsSelection(t *testing.T) {
	view := NewView(nil, nil, true)
	view.SetSource(testSource())
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	view.SetSource(testSource())

	assert.Equal(t, 0, view.SelectedIndex())
}

func TestView_Update_NoSource(t *testing.T) {
	view := NewView(nil, nil, true)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	view.Update(tea.WindowSizeMsg{Width: 90, Height: 20})
	assert.True(t, view.ready)
}
