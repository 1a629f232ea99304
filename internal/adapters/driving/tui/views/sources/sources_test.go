package sources

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

// MockSourceService implements driving.SourceService for testing.
type MockSourceService struct {
	ListFunc func(ctx context.Context) ([]domain.Source, error)
}

func (m *MockSourceService) List(ctx context.Context) ([]domain.Source, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []domain.Source{}, nil
}

func (m *MockSourceService) Get(_ context.Context, _ string) (*domain.Source, error) {
	return nil, domain.ErrNotFound
}

func (m *MockSourceService) Records(_ context.Context) ([]domain.SourceRecord, error) {
	return nil, nil
}

// MockTracker implements driving.Tracker for testing.
type MockTracker struct {
	StatusErr error
}

func (m *MockTracker) Sync(_ context.Context, _ domain.SyncOptions) (*domain.RunReport, error) {
	return &domain.RunReport{}, nil
}

func (m *MockTracker) Status(_ context.Context, id string) (*driving.SyncStatus, error) {
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	return &driving.SyncStatus{SourceID: id, Files: 1, Items: 12}, nil
}

func testSources() []domain.Source {
	return []domain.Source{
		{Identifier: "sindresorhus/awesome", Files: []domain.TrackedFile{{Path: "readme.md", Index: true}}},
		{Identifier: "avelino/awesome-go", Files: []domain.TrackedFile{{Path: "README.md", Index: true}, {Path: "docs/extra.md"}}},
	}
}

func loadedView(t *testing.T, tracker driving.Tracker) *View {
	t.Helper()
	svc := &MockSourceService{ListFunc: func(context.Context) ([]domain.Source, error) {
		return testSources(), nil
	}}
	view := NewView(nil, nil, svc, tracker)
	cmd := view.Init()
	require.NotNil(t, cmd)
	view.Update(cmd())
	view.SetDimensions(100, 30)
	return view
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil, &MockSourceService{}, nil)

	require.NotNil(t, view)
	assert.False(t, view.ready)
	assert.NotNil(t, view.styles)
	assert.NotNil(t, view.keymap)
	assert.Empty(t, view.Sources())
}

func TestView_Init_LoadsSourcesWithStatus(t *testing.T) {
	view := loadedView(t, &MockTracker{})

	require.Len(t, view.Sources(), 2)
	require.NoError(t, view.Err())
	assert.Equal(t, 12, view.status["avelino/awesome-go"].Items)

	out := view.View()
	assert.Contains(t, out, "sindresorhus/awesome")
	assert.Contains(t, out, "1/2 files  12 items")
	assert.Contains(t, out, "[s] sync")
}

func TestView_Init_StatusErrorsIgnored(t *testing.T) {
	view := loadedView(t, &MockTracker{StatusErr: errors.New("db closed")})

	require.NoError(t, view.Err())
	assert.Empty(t, view.status)
	assert.Contains(t, view.View(), "2 files")
}

func TestView_Init_ListError(t *testing.T) {
	svc := &MockSourceService{ListFunc: func(context.Context) ([]domain.Source, error) {
		return nil, errors.New("boom")
	}}
	view := NewView(nil, nil, svc, nil)

	view.Update(view.Init()())

	require.Error(t, view.Err())
	assert.Contains(t, view.View(), "Error: boom")
}

func TestView_Init_NoService(t *testing.T) {
	view := NewView(nil, nil, nil, nil)

	view.Update(view.Init()())

	assert.ErrorIs(t, view.Err(), errNoSourceService)
}

func TestView_View_Empty(t *testing.T) {
	view := NewView(nil, nil, &MockSourceService{}, nil)
	view.Update(view.Init()())

	out := view.View()
	assert.Contains(t, out, "No sources configured.")
	assert.NotContains(t, out, "[s] sync")
}

func TestView_View_Loading(t *testing.T) {
	view := NewView(nil, nil, &MockSourceService{}, nil)
	view.Init()

	assert.Contains(t, view.View(), "Loading sources...")
}

func TestView_Update_Navigate(t *testing.T) {
	view := loadedView(t, nil)

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.SelectedIndex())
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.SelectedIndex())
	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, view.SelectedIndex())
}

func TestView_Update_Select(t *testing.T) {
	view := loadedView(t, nil)
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg, ok := cmd().(messages.SourceSelected)
	require.True(t, ok)
	assert.Equal(t, "avelino/awesome-go", msg.Source.Identifier)
}

func TestView_Update_Sync(t *testing.T) {
	view := loadedView(t, &MockTracker{})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.SyncRequested{SourceIDs: []string{"sindresorhus/awesome"}}, cmd())
}

func TestView_Update_SyncWithoutTracker(t *testing.T) {
	view := loadedView(t, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	assert.Nil(t, cmd)
}

func TestView_Update_Reload(t *testing.T) {
	view := loadedView(t, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)
	assert.True(t, view.loading)

	view.Update(cmd())
	assert.False(t, view.loading)
}

func TestView_Update_SyncCompletedReloads(t *testing.T) {
	view := loadedView(t, &MockTracker{})

	_, cmd := view.Update(messages.SyncCompleted{Report: &domain.RunReport{}})
	require.NotNil(t, cmd)

	_, ok := cmd().(messages.SourcesLoaded)
	assert.True(t, ok)
}

func TestView_Update_SelectionClampedOnShrink(t *testing.T) {
	view := loadedView(t, nil)
	view.selected = 1

	view.Update(messages.SourcesLoaded{Sources: testSources()[:1]})

	assert.Equal(t, 0, view.SelectedIndex())
}
