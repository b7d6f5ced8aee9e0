package screen

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cardexlabs/cardex/internal/bridge"
	"github.com/cardexlabs/cardex/internal/migration"
	"github.com/cardexlabs/cardex/internal/ui"
	"github.com/cardexlabs/cardex/internal/ui/component"
	"github.com/cardexlabs/cardex/internal/ui/router"
	"github.com/cardexlabs/cardex/internal/ui/style"
)

// switchDoneMsg reports the outcome of a Switch call.
type switchDoneMsg struct {
	err error
}

// MigrationScreen controls the wallet-implementation shim.
type MigrationScreen struct {
	width    int
	height   int
	keyMap   ui.KeyMap
	services ui.ServiceProvider

	// UI components
	helpBar *component.HelpBar
	header  *component.StatusHeader
	gauge   *component.ProgressGauge

	// State
	state      migration.State
	statusLine string

	// Styling
	titleStyle   lipgloss.Style
	headerStyle  lipgloss.Style
	statusStyle  lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	panelStyle   lipgloss.Style
	activeStyle  lipgloss.Style
	idleStyle    lipgloss.Style
}

// NewMigrationScreen creates the shim control screen
func NewMigrationScreen(services ui.ServiceProvider) *MigrationScreen {
	palette := style.DefaultPalette()
	keyMap := ui.DefaultKeyMap()

	return &MigrationScreen{
		keyMap:   keyMap,
		services: services,
		helpBar:  component.NewHelpBar().SetKeyBindings(keyMap.ContextualHelp(ui.RouteMigration)),
		header:   component.NewStatusHeader(),
		gauge:    component.NewProgressGauge(40),
		state:    services.GetMigration().Current(),

		titleStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Margin(1, 0).
			Align(lipgloss.Center),

		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 2),

		statusStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 2),

		errorStyle: lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true).
			Padding(0, 2),

		successStyle: lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true),

		warningStyle: lipgloss.NewStyle().
			Foreground(palette.Warning).
			Bold(true).
			Padding(0, 2),

		panelStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary).
			Padding(1, 2).
			Margin(1, 0),

		activeStyle: lipgloss.NewStyle().
			Foreground(palette.Background).
			Background(palette.Success).
			Padding(0, 2).
			Bold(true),

		idleStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Padding(0, 2),
	}
}

// Init initializes the migration screen
func (s *MigrationScreen) Init() tea.Cmd {
	s.state = s.services.GetMigration().Current()
	return nil
}

// Update handles screen updates
func (s *MigrationScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keyMap.Quit):
			return s, tea.Quit

		case key.Matches(msg, s.keyMap.Switch):
			if !s.state.Transitioning {
				cmds = append(cmds, s.switchCmd())
			}

		case key.Matches(msg, s.keyMap.Reset):
			s.services.GetMigration().Reset()
			s.state = s.services.GetMigration().Current()
			s.statusLine = "shim reset to legacy"
		}

	case ui.MigrationMsg:
		s.state = msg.State

	case switchDoneMsg:
		s.state = s.services.GetMigration().Current()
		if msg.err != nil {
			s.statusLine = "✗ switch failed: " + msg.err.Error()
		} else {
			s.statusLine = fmt.Sprintf("✓ now on the %s implementation", s.state.Active)
		}
		s.header.Update()

	case ui.SessionMsg:
		s.header.Update()

	case ui.ErrorMsg:
		s.statusLine = "✗ " + msg.Title + ": " + msg.Error.Error()

	case ui.SuccessMsg:
		s.statusLine = "✓ " + msg.Message
	}

	return s, tea.Batch(cmds...)
}

// View renders the migration screen
func (s *MigrationScreen) View() string {
	if s.width == 0 || s.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	content.WriteString(s.header.View())
	content.WriteString("\n")

	content.WriteString(s.titleStyle.Width(s.width).Render("⇄ Implementation Migration"))
	content.WriteString("\n\n")

	content.WriteString(s.renderImpls())
	content.WriteString("\n")

	content.WriteString(s.panelStyle.Render(s.renderState()))
	content.WriteString("\n")

	if s.statusLine != "" {
		content.WriteString(s.statusStyle.Render(s.statusLine))
		content.WriteString("\n")
	}

	content.WriteString(s.helpBar.SetWidth(s.width).View())

	return content.String()
}

// SetSize sets the screen dimensions
func (s *MigrationScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.helpBar.SetWidth(width)
	s.header.SetWidth(width)
}

// renderImpls renders the two implementation badges
func (s *MigrationScreen) renderImpls() string {
	legacy := s.idleStyle.Render("legacy (HTTP daemon)")
	v2 := s.idleStyle.Render("v2 (WebSocket)")

	if s.state.Active == bridge.ImplLegacy {
		legacy = s.activeStyle.Render("legacy (HTTP daemon)")
	} else {
		v2 = s.activeStyle.Render("v2 (WebSocket)")
	}

	arrow := " ⇄ "
	if s.state.Transitioning {
		arrow = " → "
	}

	line := lipgloss.JoinHorizontal(lipgloss.Center, legacy, arrow, v2)
	return lipgloss.NewStyle().Padding(0, 2).Render(line)
}

// renderState renders the shim state panel
func (s *MigrationScreen) renderState() string {
	var content strings.Builder

	content.WriteString(s.headerStyle.Render(fmt.Sprintf("Active: %s", s.state.Active)))
	content.WriteString("\n\n")

	if s.state.Transitioning {
		s.gauge.SetValue(s.state.Progress).SetFailed(false).SetLabel("switching")
		content.WriteString(s.statusStyle.Render(s.gauge.View()))
		content.WriteString("\n")
	} else if s.state.Progress == 100 {
		s.gauge.SetValue(100).SetFailed(false).SetLabel("done")
		content.WriteString(s.statusStyle.Render(s.gauge.View()))
		content.WriteString("\n")
	}

	if s.state.LastError != "" {
		s.gauge.SetFailed(true)
		content.WriteString(s.errorStyle.Render("✗ last error: " + s.state.LastError))
		content.WriteString("\n")
		if s.state.FallbackAvailable {
			content.WriteString(s.warningStyle.Render(
				fmt.Sprintf("⚠ fallback active: staying on %s", s.state.Active)))
			content.WriteString("\n")
		}
	}

	if !s.state.Transitioning && s.state.LastError == "" && s.state.Progress == 0 {
		content.WriteString(s.statusStyle.Render("Shim idle. Press s to switch, R to reset."))
		content.WriteString("\n")
	}

	if session := s.services.GetMigration().Session(); session != nil {
		content.WriteString(s.statusStyle.Render("Session: " + session.Wallet()))
	} else {
		content.WriteString(s.statusStyle.Render("Session: none"))
	}

	return content.String()
}

// switchCmd runs the staged switch off the update loop
func (s *MigrationScreen) switchCmd() tea.Cmd {
	manager := s.services.GetMigration()
	ctx := s.services.GetContext()

	return func() tea.Msg {
		return switchDoneMsg{err: manager.Switch(ctx)}
	}
}
