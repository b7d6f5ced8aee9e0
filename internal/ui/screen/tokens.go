package screen

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/export"
	"github.com/cardexlabs/cardex/internal/portfolio"
	"github.com/cardexlabs/cardex/internal/swap"
	"github.com/cardexlabs/cardex/internal/ui"
	"github.com/cardexlabs/cardex/internal/ui/component"
	"github.com/cardexlabs/cardex/internal/ui/router"
	"github.com/cardexlabs/cardex/internal/ui/style"
)

// quoteSampleAda is the ADA amount the quote preview is computed for.
var quoteSampleAda = decimal.NewFromInt(100)

// TokensScreen lists tradable tokens from the discovery service.
type TokensScreen struct {
	width    int
	height   int
	keyMap   ui.KeyMap
	services ui.ServiceProvider

	// UI components
	helpBar   *component.HelpBar
	header    *component.StatusHeader
	table     *component.Table
	sparkline *component.Sparkline
	spinner   spinner.Model

	// State
	snapshot   discovery.Snapshot
	selected   int
	refreshing bool
	quote      *swap.Quote
	quoteErr   string
	statusLine string

	// Styling
	titleStyle   lipgloss.Style
	headerStyle  lipgloss.Style
	statusStyle  lipgloss.Style
	errorStyle   lipgloss.Style
	warningStyle lipgloss.Style
	panelStyle   lipgloss.Style
}

// NewTokensScreen creates the token discovery screen
func NewTokensScreen(services ui.ServiceProvider) *TokensScreen {
	palette := style.DefaultPalette()
	keyMap := ui.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(palette.Primary)

	s := &TokensScreen{
		keyMap:    keyMap,
		services:  services,
		helpBar:   component.NewHelpBar().SetKeyBindings(keyMap.ContextualHelp(ui.RouteTokens)),
		header:    component.NewStatusHeader(),
		sparkline: component.NewSparkline(32),
		spinner:   sp,

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

		warningStyle: lipgloss.NewStyle().
			Foreground(palette.Warning).
			Bold(true),

		panelStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary).
			Padding(1, 2).
			Margin(1, 0),
	}

	s.table = component.NewTable().
		SetColumns([]component.TableColumn{
			{Header: "Symbol", Width: 10, Align: lipgloss.Left},
			{Header: "Policy", Width: 14, Align: lipgloss.Left},
			{Header: "ADA Reserve", Width: 16, Align: lipgloss.Right},
			{Header: "Token Reserve", Width: 16, Align: lipgloss.Right},
			{Header: "Dec", Width: 4, Align: lipgloss.Right},
			{Header: "Liquidity", Width: 10, Align: lipgloss.Center},
		}).
		SetZebra(true)

	s.snapshot = services.GetCache().Tokens()
	s.updateTableDisplay()

	return s
}

// Init initializes the tokens screen
func (s *TokensScreen) Init() tea.Cmd {
	cmds := []tea.Cmd{s.spinner.Tick}
	if len(s.snapshot.Tokens) == 0 {
		cmds = append(cmds, s.refreshCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles screen updates
func (s *TokensScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keyMap.Quit):
			return s, tea.Quit

		case key.Matches(msg, s.keyMap.Up):
			s.table.MoveUp()
			s.selected = s.table.GetSelectedRow()
			s.quote = nil
			s.quoteErr = ""

		case key.Matches(msg, s.keyMap.Down):
			s.table.MoveDown()
			s.selected = s.table.GetSelectedRow()
			s.quote = nil
			s.quoteErr = ""

		case key.Matches(msg, s.keyMap.Quote):
			s.quoteSelected()

		case key.Matches(msg, s.keyMap.Refresh):
			if !s.refreshing {
				s.refreshing = true
				cmds = append(cmds, s.refreshCmd())
			}

		case key.Matches(msg, s.keyMap.Export):
			cmds = append(cmds, s.exportCmd())
		}

	case ui.TokenListMsg:
		s.refreshing = false
		s.snapshot = msg.Snapshot
		if s.selected >= len(s.snapshot.Tokens) {
			s.selected = 0
		}
		s.updateTableDisplay()

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ui.SessionMsg:
		s.header.Update()

	case ui.ErrorMsg:
		s.statusLine = "✗ " + msg.Title + ": " + msg.Error.Error()

	case ui.SuccessMsg:
		s.statusLine = "✓ " + msg.Message

	case ui.StatusMsg:
		s.statusLine = msg.Message
	}

	return s, tea.Batch(cmds...)
}

// View renders the tokens screen
func (s *TokensScreen) View() string {
	if s.width == 0 || s.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	content.WriteString(s.header.View())
	content.WriteString("\n")

	title := "◈ Token Discovery"
	if s.refreshing {
		title += " " + s.spinner.View()
	}
	content.WriteString(s.titleStyle.Width(s.width).Render(title))
	content.WriteString("\n\n")

	content.WriteString(s.renderStatusBar())
	content.WriteString("\n\n")

	if s.snapshot.Err != "" {
		content.WriteString(s.errorStyle.Render("✗ discovery: " + s.snapshot.Err))
		content.WriteString("\n\n")
	}

	if len(s.snapshot.Tokens) > 0 {
		content.WriteString(s.table.View())
		content.WriteString("\n")
		content.WriteString(s.renderTrend())
		content.WriteString("\n")
		if details := s.renderDetails(); details != "" {
			content.WriteString(s.panelStyle.Render(details))
			content.WriteString("\n")
		}
	} else {
		content.WriteString(s.statusStyle.Render("No tokens discovered yet. Press r to refresh."))
		content.WriteString("\n")
	}

	if s.statusLine != "" {
		content.WriteString(s.statusStyle.Render(s.statusLine))
		content.WriteString("\n")
	}

	content.WriteString(s.helpBar.SetWidth(s.width).View())

	return content.String()
}

// SetSize sets the screen dimensions
func (s *TokensScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.helpBar.SetWidth(width)
	s.header.SetWidth(width)
	s.table.SetSize(width-4, height-20)
}

// renderStatusBar renders the status information
func (s *TokensScreen) renderStatusBar() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Tokens: %d", len(s.snapshot.Tokens)))

	low := 0
	for _, t := range s.snapshot.Tokens {
		if t.LowLiquidity {
			low++
		}
	}
	if low > 0 {
		parts = append(parts, s.warningStyle.Render(fmt.Sprintf("Low liquidity: %d", low)))
	}

	cfg := s.services.GetConfig()
	parts = append(parts, fmt.Sprintf("Threshold: %d ADA", cfg.Discovery.MinLiquidityAda))

	if cfg.Discovery.Refresh > 0 && !s.snapshot.FetchedAt.IsZero() {
		next := time.Until(s.snapshot.FetchedAt.Add(cfg.Discovery.Refresh))
		if next < 0 {
			next = 0
		}
		parts = append(parts, fmt.Sprintf("Next poll: %ds", int(next.Seconds())))
	}

	if !s.snapshot.FetchedAt.IsZero() {
		parts = append(parts, fmt.Sprintf("Fetched: %s", s.snapshot.FetchedAt.Format("15:04:05")))
	}

	return s.headerStyle.Render(strings.Join(parts, " • "))
}

// renderTrend renders the total-liquidity sparkline
func (s *TokensScreen) renderTrend() string {
	points := s.services.GetDiscovery().History().Recent(32)
	if len(points) < 2 {
		return ""
	}

	data := make([]float64, len(points))
	for i, p := range points {
		data[i] = float64(p.TotalAdaReserve)
	}
	s.sparkline.SetData(data)

	return s.statusStyle.Render("Liquidity trend: " + s.sparkline.View())
}

// renderDetails renders the selected token plus any quote preview
func (s *TokensScreen) renderDetails() string {
	if s.selected >= len(s.snapshot.Tokens) {
		return ""
	}
	t := s.snapshot.Tokens[s.selected]

	var content strings.Builder
	content.WriteString(s.headerStyle.Render(fmt.Sprintf("%s (%s)", t.Symbol, t.Unit)))
	content.WriteString("\n\n")

	if t.IsNative {
		content.WriteString(s.statusStyle.Render("Native base asset. Not a pool token; nothing to quote."))
		return content.String()
	}

	info := fmt.Sprintf("Pool: %s | Reserves: %s ADA / %s %s",
		t.PoolAddress,
		portfolio.LovelaceToAda(t.AdaReserve).StringFixed(0),
		portfolio.ScaleAmount(t.TokenReserve, t.Decimals).StringFixed(0),
		t.Symbol)
	content.WriteString(s.statusStyle.Render(info))
	content.WriteString("\n")

	switch {
	case s.quoteErr != "":
		content.WriteString(s.errorStyle.Render("✗ quote: " + s.quoteErr))
	case s.quote != nil:
		q := s.quote
		line := fmt.Sprintf("Quote %s ADA → %s %s (min %s, impact %s%%, fee %d bps)",
			q.AmountIn.StringFixed(0),
			q.AmountOut.StringFixed(int32(t.Decimals)),
			t.Symbol,
			q.MinReceived.StringFixed(int32(t.Decimals)),
			q.PriceImpact.StringFixed(2),
			q.FeeBps)
		content.WriteString(s.statusStyle.Render(line))
	default:
		content.WriteString(s.statusStyle.Render("Press enter for a 100 ADA quote preview."))
	}

	return content.String()
}

// quoteSelected computes a sample quote for the selected pool
func (s *TokensScreen) quoteSelected() {
	if s.selected >= len(s.snapshot.Tokens) {
		return
	}
	t := s.snapshot.Tokens[s.selected]
	s.quote = nil
	s.quoteErr = ""

	cfg := s.services.GetConfig()
	slip, err := swap.ParseSlippage(cfg.Swap.DefaultSlippage)
	if err != nil {
		s.quoteErr = err.Error()
		return
	}

	q, err := swap.Estimate(t, quoteSampleAda, swap.AdaToToken, cfg.Swap.FeeBps, slip)
	if err != nil {
		s.quoteErr = err.Error()
		return
	}
	s.quote = &q
}

// updateTableDisplay updates the table with current snapshot data
func (s *TokensScreen) updateTableDisplay() {
	palette := style.DefaultPalette()

	rows := make([][]string, 0, len(s.snapshot.Tokens))
	for _, t := range s.snapshot.Tokens {
		policy := t.PolicyID
		if len(policy) > 12 {
			policy = policy[:12] + "…"
		}
		if t.IsNative {
			policy = "native"
		}

		liquidity := "ok"
		if t.IsNative {
			liquidity = "—"
		} else if t.LowLiquidity {
			liquidity = "LOW"
		}

		rows = append(rows, []string{
			t.Symbol,
			policy,
			portfolio.LovelaceToAda(t.AdaReserve).StringFixed(0),
			portfolio.ScaleAmount(t.TokenReserve, t.Decimals).StringFixed(0),
			fmt.Sprintf("%d", t.Decimals),
			liquidity,
		})
	}

	s.table.SetRows(rows)
	s.table.SetSelectedRow(s.selected)

	for i, t := range s.snapshot.Tokens {
		if t.LowLiquidity {
			s.table.SetRowStyle(i, lipgloss.NewStyle().Foreground(palette.Warning))
		}
	}
}

// refreshCmd triggers an immediate discovery poll
func (s *TokensScreen) refreshCmd() tea.Cmd {
	svc := s.services.GetDiscovery()
	ctx := s.services.GetContext()
	cache := s.services.GetCache()

	return func() tea.Msg {
		snap := svc.RefreshNow(ctx)
		cache.SetTokens(snap)
		return ui.TokenListMsg{Snapshot: snap}
	}
}

// exportCmd writes the current snapshot to disk
func (s *TokensScreen) exportCmd() tea.Cmd {
	exporter := s.services.GetExporter()
	snap := s.snapshot

	return func() tea.Msg {
		path, err := exporter.WriteTokens(snap, export.Options{
			Format:    export.FormatCSV,
			OutputDir: "exports",
		})
		if err != nil {
			return ui.ErrorMsg{Error: err, Title: "Export"}
		}
		return ui.SuccessMsg{Message: "tokens exported to " + path, Title: "Export"}
	}
}
