package screen

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cardexlabs/cardex/internal/export"
	"github.com/cardexlabs/cardex/internal/portfolio"
	"github.com/cardexlabs/cardex/internal/ui"
	"github.com/cardexlabs/cardex/internal/ui/component"
	"github.com/cardexlabs/cardex/internal/ui/router"
	"github.com/cardexlabs/cardex/internal/ui/style"
)

// walletsProbedMsg carries the registry availability probe result.
type walletsProbedMsg struct {
	wallets []string
}

// PortfolioScreen shows aggregated balances for the connected wallet.
type PortfolioScreen struct {
	width    int
	height   int
	keyMap   ui.KeyMap
	services ui.ServiceProvider

	// UI components
	helpBar *component.HelpBar
	header  *component.StatusHeader
	table   *component.Table

	// State
	wallets    []string
	balance    *portfolio.WalletBalance
	wallet     string
	connecting bool
	statusLine string

	// Styling
	titleStyle  lipgloss.Style
	headerStyle lipgloss.Style
	statusStyle lipgloss.Style
	errorStyle  lipgloss.Style
	adaStyle    lipgloss.Style
}

// NewPortfolioScreen creates the wallet balance screen
func NewPortfolioScreen(services ui.ServiceProvider) *PortfolioScreen {
	palette := style.DefaultPalette()
	keyMap := ui.DefaultKeyMap()

	s := &PortfolioScreen{
		keyMap:   keyMap,
		services: services,
		helpBar:  component.NewHelpBar().SetKeyBindings(keyMap.ContextualHelp(ui.RoutePortfolio)),
		header:   component.NewStatusHeader(),

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

		adaStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),
	}

	s.table = component.NewTable().
		SetColumns([]component.TableColumn{
			{Header: "Symbol", Width: 10, Align: lipgloss.Left},
			{Header: "Name", Width: 22, Align: lipgloss.Left},
			{Header: "Amount", Width: 18, Align: lipgloss.Right},
			{Header: "Unit", Width: 20, Align: lipgloss.Left},
		}).
		SetZebra(true)

	// A previously fetched balance survives screen re-entry.
	conn := services.GetCache().Connection()
	s.wallet = conn.Wallet
	if bal, ok := services.GetCache().Balance(conn.Wallet); ok {
		s.balance = bal
		s.updateTableDisplay()
	}

	return s
}

// Init initializes the portfolio screen
func (s *PortfolioScreen) Init() tea.Cmd {
	return s.probeWalletsCmd()
}

// Update handles screen updates
func (s *PortfolioScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keyMap.Quit):
			return s, tea.Quit

		case key.Matches(msg, s.keyMap.Up):
			s.table.MoveUp()

		case key.Matches(msg, s.keyMap.Down):
			s.table.MoveDown()

		case key.Matches(msg, s.keyMap.Enable):
			if !s.connecting {
				s.connecting = true
				cmds = append(cmds, s.fetchBalanceCmd())
			}

		case key.Matches(msg, s.keyMap.Refresh):
			if !s.connecting {
				s.connecting = true
				cmds = append(cmds, s.fetchBalanceCmd())
			}

		case key.Matches(msg, s.keyMap.Export):
			cmds = append(cmds, s.exportCmd())
		}

	case walletsProbedMsg:
		s.wallets = msg.wallets

	case ui.BalanceMsg:
		s.connecting = false
		s.wallet = msg.Wallet
		s.balance = msg.Balance
		s.updateTableDisplay()
		s.header.Update()

	case ui.SessionMsg:
		s.header.Update()

	case ui.ErrorMsg:
		s.connecting = false
		s.statusLine = "✗ " + msg.Title + ": " + msg.Error.Error()

	case ui.SuccessMsg:
		s.statusLine = "✓ " + msg.Message

	case ui.StatusMsg:
		s.statusLine = msg.Message
	}

	return s, tea.Batch(cmds...)
}

// View renders the portfolio screen
func (s *PortfolioScreen) View() string {
	if s.width == 0 || s.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	content.WriteString(s.header.View())
	content.WriteString("\n")

	title := "◆ Portfolio"
	if s.connecting {
		title += " (connecting...)"
	}
	content.WriteString(s.titleStyle.Width(s.width).Render(title))
	content.WriteString("\n\n")

	content.WriteString(s.renderStatusBar())
	content.WriteString("\n\n")

	if s.balance != nil {
		content.WriteString(s.renderAdaLine())
		content.WriteString("\n\n")
		content.WriteString(s.table.View())
	} else {
		empty := "No wallet connected.\nPress enter to enable the preferred wallet through the active bridge."
		content.WriteString(s.statusStyle.Render(empty))
	}

	content.WriteString("\n")

	if s.statusLine != "" {
		content.WriteString(s.statusStyle.Render(s.statusLine))
		content.WriteString("\n")
	}

	content.WriteString(s.helpBar.SetWidth(s.width).View())

	return content.String()
}

// SetSize sets the screen dimensions
func (s *PortfolioScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.helpBar.SetWidth(width)
	s.header.SetWidth(width)
	s.table.SetSize(width-4, height-18)
}

// renderStatusBar renders the status information
func (s *PortfolioScreen) renderStatusBar() string {
	var parts []string

	if len(s.wallets) > 0 {
		parts = append(parts, "Detected: "+strings.Join(s.wallets, ", "))
	} else {
		parts = append(parts, "Detected: none")
	}

	parts = append(parts, "Preferred: "+s.services.GetConfig().Bridge.PreferredWallet)

	mig := s.services.GetMigration().Current()
	parts = append(parts, fmt.Sprintf("Impl: %s", mig.Active))

	if s.balance != nil {
		parts = append(parts, fmt.Sprintf("Assets: %d", len(s.balance.Assets)))
		parts = append(parts, fmt.Sprintf("Fetched: %s", s.balance.FetchedAt.Format("15:04:05")))
	}

	return s.headerStyle.Render(strings.Join(parts, " • "))
}

// renderAdaLine renders the pinned native balance row
func (s *PortfolioScreen) renderAdaLine() string {
	line := fmt.Sprintf("₳ ADA: %s (%d lovelace)", s.balance.Ada.StringFixed(6), s.balance.Lovelace)
	return s.statusStyle.Render(s.adaStyle.Render(line))
}

// updateTableDisplay updates the asset table from the current balance
func (s *PortfolioScreen) updateTableDisplay() {
	if s.balance == nil {
		s.table.Clear()
		return
	}

	rows := make([][]string, 0, len(s.balance.Assets))
	for _, a := range s.balance.Assets {
		unit := a.Unit
		if len(unit) > 18 {
			unit = unit[:18] + "…"
		}
		rows = append(rows, []string{
			a.Symbol,
			a.Name,
			a.Display.StringFixed(int32(a.Decimals)),
			unit,
		})
	}
	s.table.SetRows(rows)
}

// probeWalletsCmd asks the registry which wallets respond
func (s *PortfolioScreen) probeWalletsCmd() tea.Cmd {
	registry := s.services.GetRegistry()
	ctx := s.services.GetContext()

	return func() tea.Msg {
		return walletsProbedMsg{wallets: registry.Available(ctx)}
	}
}

// fetchBalanceCmd connects through the migration shim and aggregates
// the wallet balance
func (s *PortfolioScreen) fetchBalanceCmd() tea.Cmd {
	manager := s.services.GetMigration()
	aggregator := s.services.GetPortfolio()
	cache := s.services.GetCache()
	ctx := s.services.GetContext()

	return func() tea.Msg {
		session, err := manager.Connect(ctx)
		if err != nil {
			return ui.ErrorMsg{Error: err, Title: "Wallet"}
		}

		start := time.Now()
		balance, err := aggregator.Fetch(ctx, session)
		latency := time.Since(start)
		if err != nil {
			return ui.ErrorMsg{Error: err, Title: "Balance"}
		}

		cache.SetBalance(session.Wallet(), balance)
		cache.SetLatency(latency)
		return ui.BalanceMsg{Wallet: session.Wallet(), Balance: balance, Latency: latency}
	}
}

// exportCmd writes the current balance to disk
func (s *PortfolioScreen) exportCmd() tea.Cmd {
	exporter := s.services.GetExporter()
	wallet := s.wallet
	balance := s.balance

	return func() tea.Msg {
		if balance == nil {
			return ui.ErrorMsg{Error: fmt.Errorf("no balance to export"), Title: "Export"}
		}
		path, err := exporter.WriteBalance(wallet, balance, export.Options{
			Format:    export.FormatJSON,
			OutputDir: "exports",
		})
		if err != nil {
			return ui.ErrorMsg{Error: err, Title: "Export"}
		}
		return ui.SuccessMsg{Message: "balance exported to " + path, Title: "Export"}
	}
}
