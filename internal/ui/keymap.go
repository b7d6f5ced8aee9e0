package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keyboard shortcuts for the application
type KeyMap struct {
	// Global navigation
	Quit key.Binding
	Back key.Binding
	Help key.Binding

	// Navigation
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding

	// Screen shortcuts
	Tokens      key.Binding
	Portfolio   key.Binding
	Migration   key.Binding
	Diagnostics key.Binding
	Logs        key.Binding

	// Actions
	Refresh key.Binding
	Switch  key.Binding
	Reset   key.Binding
	Export  key.Binding
	Run     key.Binding
	Quote   key.Binding
	Enable  key.Binding

	// Logs
	FilterDebug key.Binding
	FilterInfo  key.Binding
	FilterWarn  key.Binding
	FilterError key.Binding
	TailMode    key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Global navigation
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),

		// Screen shortcuts
		Tokens: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tokens"),
		),
		Portfolio: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "portfolio"),
		),
		Migration: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "migration"),
		),
		Diagnostics: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "diagnostics"),
		),
		Logs: key.NewBinding(
			key.WithKeys("l", "f12"),
			key.WithHelp("l/F12", "logs"),
		),

		// Actions
		Refresh: key.NewBinding(
			key.WithKeys("r", "f5"),
			key.WithHelp("r/F5", "refresh"),
		),
		Switch: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "switch impl"),
		),
		Reset: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reset shim"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export"),
		),
		Run: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "run checks"),
		),
		Quote: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "quote"),
		),
		Enable: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "enable wallet"),
		),

		// Logs
		FilterDebug: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "debug"),
		),
		FilterInfo: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "info"),
		),
		FilterWarn: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "warn"),
		),
		FilterError: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "error"),
		),
		TailMode: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow"),
		),
	}
}

// ShortHelp returns key help text for the current context
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns extended help text for the current context
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Back},
		{k.Tokens, k.Portfolio, k.Migration},
		{k.Diagnostics, k.Logs, k.Refresh},
		{k.Export, k.Help, k.Quit},
	}
}

// ContextualHelp returns help text based on the current route
func (k KeyMap) ContextualHelp(route Route) []key.Binding {
	switch route {
	case RouteMainMenu:
		return []key.Binding{k.Up, k.Down, k.Enter, k.Quit}
	case RouteTokens:
		return []key.Binding{k.Up, k.Down, k.Quote, k.Refresh, k.Export, k.Back, k.Quit}
	case RoutePortfolio:
		return []key.Binding{k.Up, k.Down, k.Enable, k.Refresh, k.Export, k.Back, k.Quit}
	case RouteMigration:
		return []key.Binding{k.Switch, k.Reset, k.Back, k.Quit}
	case RouteDiagnostics:
		return []key.Binding{k.Run, k.Export, k.Back, k.Quit}
	case RouteLogs:
		return []key.Binding{k.FilterDebug, k.FilterInfo, k.FilterWarn, k.FilterError, k.TailMode, k.Back, k.Quit}
	default:
		return k.ShortHelp()
	}
}
