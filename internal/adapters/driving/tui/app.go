package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/views/files"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/views/items"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/views/sources"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx bounds reconciliation runs started from the TUI.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	menuView    *menu.View
	sourcesView *sources.View
	filesView   *files.View
	itemsView   *items.View
	statusBar   *status.Bar

	// currentView tracks which view is active.
	currentView messages.ViewType

	// itemsParent is where esc leads from the items view.
	itemsParent messages.ViewType

	// syncing is set while a reconciliation started here is running.
	syncing bool

	// lastReport is the report of the last finished reconciliation.
	lastReport *domain.RunReport

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	h := help.New()
	h.ShowAll = true

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		help:        h,
		menuView:    menu.NewView(s, km),
		sourcesView: sources.NewView(s, km, ports.Sources, ports.Tracker),
		filesView:   files.NewView(s, km, ports.Tracker != nil),
		itemsView:   items.NewView(s, km, ports.Items),
		statusBar:   status.NewBar(s, km),
		currentView: messages.ViewMenu,
		itemsParent: messages.ViewMenu,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.SetWindowTitle("awesometrack")
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		if msg.View == messages.ViewSources {
			return a, a.sourcesView.Init()
		}
		return a, nil

	case messages.SourceSelected:
		a.filesView.SetSource(msg.Source)
		a.currentView = messages.ViewFiles
		return a, nil

	case messages.ItemsRequested:
		if a.currentView != messages.ViewItems {
			a.itemsParent = a.currentView
		}
		a.currentView = messages.ViewItems
		return a, a.itemsView.Load(msg.Query)

	case messages.ItemsLoaded:
		a.itemsView, cmd = a.itemsView.Update(msg)
		a.statusBar.Update(msg)
		return a, cmd

	case messages.SourcesLoaded:
		a.sourcesView, cmd = a.sourcesView.Update(msg)
		return a, cmd

	case messages.SyncRequested:
		return a, a.startSync(msg)

	case messages.SyncCompleted:
		a.syncing = false
		a.lastReport = msg.Report
		a.err = msg.Err
		a.statusBar.Update(msg)
		var sourcesCmd, itemsCmd tea.Cmd
		a.sourcesView, sourcesCmd = a.sourcesView.Update(msg)
		if a.currentView == messages.ViewItems {
			a.itemsView, itemsCmd = a.itemsView.Update(msg)
		}
		return a, tea.Batch(sourcesCmd, itemsCmd)

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.statusBar.Update(msg)
		return a, nil
	}

	// Spinner ticks and other component messages.
	var barCmd tea.Cmd
	a.statusBar, barCmd = a.statusBar.Update(msg)
	if a.currentView == messages.ViewItems {
		a.itemsView, cmd = a.itemsView.Update(msg)
	}
	return a, tea.Batch(barCmd, cmd)
}

// handleKey routes key presses to the global bindings and then the active view.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}

	if key.Matches(msg, a.keymap.Back) {
		switch a.currentView {
		case messages.ViewFiles:
			a.currentView = messages.ViewSources
		case messages.ViewItems:
			a.currentView = a.itemsParent
		case messages.ViewMenu:
		default:
			a.currentView = messages.ViewMenu
		}
		return a, nil
	}

	if a.currentView != messages.ViewMenu && key.Matches(msg, a.keymap.Quit) {
		return a, tea.Quit
	}
	if key.Matches(msg, a.keymap.Help) {
		a.currentView = messages.ViewHelp
		return a, nil
	}

	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewSources:
		a.sourcesView, cmd = a.sourcesView.Update(msg)
	case messages.ViewFiles:
		a.filesView, cmd = a.filesView.Update(msg)
	case messages.ViewItems:
		a.itemsView, cmd = a.itemsView.Update(msg)
	case messages.ViewHelp:
		// Help only reacts to navigation keys.
	}
	return a, cmd
}

// startSync runs a reconciliation in the background. A second request
// while one is running is dropped.
func (a *App) startSync(msg messages.SyncRequested) tea.Cmd {
	if a.ports.Tracker == nil || a.syncing {
		return nil
	}
	a.syncing = true
	_, barCmd := a.statusBar.Update(msg)

	ctx, tracker := a.ctx, a.ports.Tracker
	opts := domain.SyncOptions{SourceIDs: msg.SourceIDs, Trigger: domain.TriggerManual}
	run := func() tea.Msg {
		report, err := tracker.Sync(ctx, opts)
		return messages.SyncCompleted{Report: report, Err: err}
	}
	return tea.Batch(barCmd, run)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewSources:
		body = a.sourcesView.View()
	case messages.ViewFiles:
		body = a.filesView.View()
	case messages.ViewItems:
		body = a.itemsView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.menuView.View()
	}

	return body + "\n" + a.statusBar.View()
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	b.WriteString(a.help.View(a.keymap))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Help.Render("[esc] back to menu"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Syncing reports whether a reconciliation started from the TUI is running.
func (a *App) Syncing() bool {
	return a.syncing
}

// LastReport returns the report of the last finished reconciliation.
func (a *App) LastReport() *domain.RunReport {
	return a.lastReport
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions. The status bar takes one row.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	body := max(height-1, 1)
	a.menuView.SetDimensions(width, body)
	a.sourcesView.SetDimensions(width, body)
	a.filesView.SetDimensions(width, body)
	a.itemsView.SetDimensions(width, body)
	a.statusBar.SetWidth(width)
	a.help.Width = width
}
