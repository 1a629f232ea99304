// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady   State = "ready"
	StateSyncing State = "syncing"
	StateError   State = "error"
)

// Bar displays application status and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	spinner spinner.Model
	state   State
	message string
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = s.Success

	return &Bar{
		styles:  s,
		keymap:  km,
		spinner: sp,
		state:   StateReady,
		width:   80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update follows sync and load messages. The spinner only ticks while a
// sync is running.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.SyncRequested:
		s.state = StateSyncing
		s.message = ""
		return s, s.spinner.Tick

	case messages.SyncCompleted:
		if msg.Err != nil {
			s.state = StateError
			s.message = msg.Err.Error()
			return s, nil
		}
		s.state = StateReady
		if msg.Report != nil {
			s.message = fmt.Sprintf("sync done: %d changed, %d new items",
				msg.Report.Changed(), msg.Report.NewItems())
		}
		return s, nil

	case messages.ItemsLoaded:
		if s.state == StateSyncing {
			return s, nil
		}
		if msg.Err != nil {
			s.state = StateError
			s.message = msg.Err.Error()
			return s, nil
		}
		s.state = StateReady
		s.message = fmt.Sprintf("%d items", len(msg.Items))
		return s, nil

	case messages.ErrorOccurred:
		s.state = StateError
		s.message = msg.Err.Error()
		return s, nil

	case spinner.TickMsg:
		if s.state != StateSyncing {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()
	if s.width <= 0 {
		return s.styles.StatusBar.Render(left + " " + right)
	}

	// The bar must stay on one line: trim the state text first, then drop
	// the hints when even they do not fit.
	inner := max(s.width-s.styles.StatusBar.GetHorizontalFrameSize(), 0)
	if lipgloss.Width(right)+1 > inner {
		right = ""
	}
	room := inner - lipgloss.Width(right)
	if right != "" {
		room--
	}
	if lipgloss.Width(left) > room {
		left = lipgloss.NewStyle().MaxWidth(max(room, 0)).Render(left)
	}

	padding := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

// renderLeft renders the left side of the status bar.
func (s *Bar) renderLeft() string {
	switch s.state {
	case StateSyncing:
		return s.spinner.View() + s.styles.Muted.Render(" Syncing...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render("Error: " + s.message)
		}
		return s.styles.Error.Render("Error")
	case StateReady:
		if s.message != "" {
			return s.styles.Normal.Render(s.message)
		}
	}
	return s.styles.Muted.Render("Ready")
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// Bindings returns the bindings shown in the bar.
func (s *Bar) Bindings() []key.Binding {
	return s.keymap.ShortHelp()
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
}
