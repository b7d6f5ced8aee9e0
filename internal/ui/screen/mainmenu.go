package screen

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cardexlabs/cardex/internal/ui"
	"github.com/cardexlabs/cardex/internal/ui/component"
	"github.com/cardexlabs/cardex/internal/ui/router"
	"github.com/cardexlabs/cardex/internal/ui/style"
)

// MenuItem represents a menu item
type MenuItem struct {
	Label       string
	Description string
	Route       ui.Route
	Enabled     bool
}

// MainMenuScreen represents the main menu screen
type MainMenuScreen struct {
	width    int
	height   int
	keyMap   ui.KeyMap
	services ui.ServiceProvider

	// UI components
	helpBar *component.HelpBar
	header  *component.StatusHeader

	// State
	selectedIndex int
	menuItems     []MenuItem
	lastUpdate    time.Time
	statusLine    string

	// Styling
	titleStyle       lipgloss.Style
	menuItemStyle    lipgloss.Style
	selectedStyle    lipgloss.Style
	descriptionStyle lipgloss.Style
	headerStyle      lipgloss.Style
}

// NewMainMenuScreen creates a new main menu screen
func NewMainMenuScreen(services ui.ServiceProvider) *MainMenuScreen {
	palette := style.DefaultPalette()
	keyMap := ui.DefaultKeyMap()

	menuItems := []MenuItem{
		{
			Label:       "◈ Tokens",
			Description: "Browse tradable tokens and pool liquidity",
			Route:       ui.RouteTokens,
			Enabled:     true,
		},
		{
			Label:       "◆ Portfolio",
			Description: "Connect a wallet and view aggregated balances",
			Route:       ui.RoutePortfolio,
			Enabled:     true,
		},
		{
			Label:       "⇄ Migration",
			Description: "Switch between the legacy and v2 bridge implementations",
			Route:       ui.RouteMigration,
			Enabled:     true,
		},
		{
			Label:       "✓ Diagnostics",
			Description: "Run the assertion battery against current state",
			Route:       ui.RouteDiagnostics,
			Enabled:     true,
		},
		{
			Label:       "≡ Logs",
			Description: "View session logs and activity",
			Route:       ui.RouteLogs,
			Enabled:     true,
		},
	}

	helpBar := component.NewHelpBar().
		SetKeyBindings(keyMap.ContextualHelp(ui.RouteMainMenu)).
		SetCompact(false)

	return &MainMenuScreen{
		keyMap:        keyMap,
		services:      services,
		selectedIndex: 0,
		menuItems:     menuItems,
		helpBar:       helpBar,
		header:        component.NewStatusHeader(),
		lastUpdate:    time.Now(),

		titleStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Margin(1, 0).
			Align(lipgloss.Center),

		menuItemStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 2).
			Margin(0, 0, 1, 0),

		selectedStyle: lipgloss.NewStyle().
			Foreground(palette.Background).
			Background(palette.Primary).
			Padding(0, 2).
			Margin(0, 0, 1, 0).
			Bold(true),

		descriptionStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Padding(0, 4).
			Margin(0, 0, 1, 0).
			Italic(true),

		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 2),
	}
}

// Init initializes the main menu screen
func (m *MainMenuScreen) Init() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return t
	})
}

// Update handles screen updates
func (m *MainMenuScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Up):
			m.moveUp()

		case key.Matches(msg, m.keyMap.Down):
			m.moveDown()

		case key.Matches(msg, m.keyMap.Enter):
			if m.selectedIndex < len(m.menuItems) && m.menuItems[m.selectedIndex].Enabled {
				route := m.menuItems[m.selectedIndex].Route
				cmds = append(cmds, func() tea.Msg {
					return ui.RouterMsg{To: route}
				})
			}

		// Direct shortcuts
		case key.Matches(msg, m.keyMap.Tokens):
			cmds = append(cmds, navigateCmd(ui.RouteTokens))

		case key.Matches(msg, m.keyMap.Portfolio):
			cmds = append(cmds, navigateCmd(ui.RoutePortfolio))

		case key.Matches(msg, m.keyMap.Migration):
			cmds = append(cmds, navigateCmd(ui.RouteMigration))

		case key.Matches(msg, m.keyMap.Diagnostics):
			cmds = append(cmds, navigateCmd(ui.RouteDiagnostics))

		case key.Matches(msg, m.keyMap.Logs):
			cmds = append(cmds, navigateCmd(ui.RouteLogs))
		}

	case time.Time:
		m.lastUpdate = msg
		m.header.Update()
		cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg {
			return t
		}))

	case ui.SessionMsg:
		m.header.Update()

	case ui.ErrorMsg:
		m.statusLine = "✗ " + msg.Title + ": " + msg.Error.Error()

	case ui.SuccessMsg:
		m.statusLine = "✓ " + msg.Message

	case ui.StatusMsg:
		m.statusLine = msg.Message
	}

	return m, tea.Batch(cmds...)
}

// navigateCmd returns a command emitting a navigation message
func navigateCmd(route ui.Route) tea.Cmd {
	return func() tea.Msg {
		return ui.RouterMsg{To: route}
	}
}

// View renders the main menu screen
func (m *MainMenuScreen) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	content.WriteString(m.header.View())
	content.WriteString("\n")

	header := m.renderHeader()
	content.WriteString(header)
	content.WriteString("\n\n")

	menu := m.renderMenu()
	content.WriteString(menu)
	content.WriteString("\n")

	if m.statusLine != "" {
		content.WriteString(m.headerStyle.Render(m.statusLine))
		content.WriteString("\n")
	}

	help := m.helpBar.SetWidth(m.width).View()
	content.WriteString(help)

	result := content.String()
	if m.width > 80 {
		result = lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			result)
	}

	return result
}

// SetSize sets the screen dimensions
func (m *MainMenuScreen) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.helpBar.SetWidth(width)
	m.header.SetWidth(width)
}

// renderHeader renders the screen header
func (m *MainMenuScreen) renderHeader() string {
	title := "◇ Cardex — Cardano DEX Client"
	styledTitle := m.titleStyle.Width(m.width).Render(title)

	timeStr := m.lastUpdate.Format("15:04:05")
	snap := m.services.GetCache().Tokens()
	tokensStr := "discovery idle"
	if len(snap.Tokens) > 0 {
		tokensStr = fmt.Sprintf("%d tokens tracked", len(snap.Tokens))
	} else if snap.Err != "" {
		tokensStr = "discovery error"
	}

	statusLine := fmt.Sprintf("Time: %s • %s", timeStr, tokensStr)
	styledStatus := m.headerStyle.Width(m.width).Align(lipgloss.Center).Render(statusLine)

	return lipgloss.JoinVertical(lipgloss.Center, styledTitle, styledStatus)
}

// renderMenu renders the menu items
func (m *MainMenuScreen) renderMenu() string {
	var menuItems []string

	for i, item := range m.menuItems {
		var itemStyle lipgloss.Style
		if i == m.selectedIndex {
			itemStyle = m.selectedStyle
		} else {
			itemStyle = m.menuItemStyle
		}

		if !item.Enabled {
			palette := style.DefaultPalette()
			itemStyle = itemStyle.Foreground(palette.TextMuted)
		}

		styledItem := itemStyle.Render(item.Label)
		menuItems = append(menuItems, styledItem)

		if i == m.selectedIndex {
			description := m.descriptionStyle.Render(item.Description)
			menuItems = append(menuItems, description)
		}
	}

	menu := strings.Join(menuItems, "\n")

	menuStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.DefaultPalette().Primary).
		Padding(2, 4).
		Margin(1, 0)

	return menuStyle.Render(menu)
}

// moveUp moves selection up
func (m *MainMenuScreen) moveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	} else {
		m.selectedIndex = len(m.menuItems) - 1
	}
}

// moveDown moves selection down
func (m *MainMenuScreen) moveDown() {
	if m.selectedIndex < len(m.menuItems)-1 {
		m.selectedIndex++
	} else {
		m.selectedIndex = 0
	}
}

// GetSelectedRoute returns the currently selected route
func (m *MainMenuScreen) GetSelectedRoute() ui.Route {
	if m.selectedIndex < len(m.menuItems) {
		return m.menuItems[m.selectedIndex].Route
	}
	return ui.RouteMainMenu
}
