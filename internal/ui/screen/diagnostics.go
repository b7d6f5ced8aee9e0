package screen

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cardexlabs/cardex/internal/diag"
	"github.com/cardexlabs/cardex/internal/export"
	"github.com/cardexlabs/cardex/internal/ui"
	"github.com/cardexlabs/cardex/internal/ui/component"
	"github.com/cardexlabs/cardex/internal/ui/router"
	"github.com/cardexlabs/cardex/internal/ui/style"
)

// DiagnosticsScreen runs the assertion battery and shows results.
type DiagnosticsScreen struct {
	width    int
	height   int
	keyMap   ui.KeyMap
	services ui.ServiceProvider

	// UI components
	helpBar *component.HelpBar
	header  *component.StatusHeader
	table   *component.Table

	// State
	report     *diag.Report
	running    bool
	statusLine string

	// Styling
	titleStyle  lipgloss.Style
	headerStyle lipgloss.Style
	statusStyle lipgloss.Style
	passStyle   lipgloss.Style
	warnStyle   lipgloss.Style
	failStyle   lipgloss.Style
}

// NewDiagnosticsScreen creates the diagnostics screen
func NewDiagnosticsScreen(services ui.ServiceProvider) *DiagnosticsScreen {
	palette := style.DefaultPalette()
	keyMap := ui.DefaultKeyMap()

	s := &DiagnosticsScreen{
		keyMap:   keyMap,
		services: services,
		helpBar:  component.NewHelpBar().SetKeyBindings(keyMap.ContextualHelp(ui.RouteDiagnostics)),
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

		passStyle: lipgloss.NewStyle().Foreground(palette.Pass),
		warnStyle: lipgloss.NewStyle().Foreground(palette.Warn).Bold(true),
		failStyle: lipgloss.NewStyle().Foreground(palette.Fail).Bold(true),
	}

	s.table = component.NewTable().
		SetColumns([]component.TableColumn{
			{Header: "Check", Width: 24, Align: lipgloss.Left},
			{Header: "Status", Width: 8, Align: lipgloss.Center},
			{Header: "Detail", Width: 46, Align: lipgloss.Left},
		}).
		SetSelectable(false)

	if report, ok := services.GetCache().Report(); ok {
		s.report = &report
		s.updateTableDisplay()
	}

	return s
}

// Init initializes the diagnostics screen
func (s *DiagnosticsScreen) Init() tea.Cmd {
	return nil
}

// Update handles screen updates
func (s *DiagnosticsScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keyMap.Quit):
			return s, tea.Quit

		case key.Matches(msg, s.keyMap.Run):
			if !s.running {
				s.running = true
				cmds = append(cmds, s.runCmd())
			}

		case key.Matches(msg, s.keyMap.Export):
			cmds = append(cmds, s.exportCmd())
		}

	case ui.DiagnosticsMsg:
		s.running = false
		report := msg.Report
		s.report = &report
		s.updateTableDisplay()

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

// View renders the diagnostics screen
func (s *DiagnosticsScreen) View() string {
	if s.width == 0 || s.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	content.WriteString(s.header.View())
	content.WriteString("\n")

	title := "✓ Diagnostics"
	if s.running {
		title += " (running...)"
	}
	content.WriteString(s.titleStyle.Width(s.width).Render(title))
	content.WriteString("\n\n")

	if s.report != nil {
		content.WriteString(s.renderSummary())
		content.WriteString("\n\n")
		content.WriteString(s.table.View())
	} else {
		content.WriteString(s.statusStyle.Render("No battery run yet. Press r to run all checks."))
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
func (s *DiagnosticsScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.helpBar.SetWidth(width)
	s.header.SetWidth(width)
	s.table.SetSize(width-4, height-16)
}

// renderSummary renders the pass/warn/fail totals
func (s *DiagnosticsScreen) renderSummary() string {
	parts := []string{
		s.passStyle.Render(fmt.Sprintf("✓ %d passed", s.report.Passes)),
		s.warnStyle.Render(fmt.Sprintf("⚠ %d warnings", s.report.Warns)),
		s.failStyle.Render(fmt.Sprintf("✗ %d failed", s.report.Fails)),
		fmt.Sprintf("Ran: %s", s.report.RanAt.Format("15:04:05")),
	}
	return s.headerStyle.Render(strings.Join(parts, " • "))
}

// updateTableDisplay updates the result rows
func (s *DiagnosticsScreen) updateTableDisplay() {
	if s.report == nil {
		s.table.Clear()
		return
	}

	rows := make([][]string, 0, len(s.report.Results))
	for _, res := range s.report.Results {
		marker := "✓"
		switch res.Status {
		case diag.StatusWarn:
			marker = "⚠"
		case diag.StatusFail:
			marker = "✗"
		}
		rows = append(rows, []string{res.Name, marker + " " + string(res.Status), res.Detail})
	}
	s.table.SetRows(rows)

	for i, res := range s.report.Results {
		switch res.Status {
		case diag.StatusWarn:
			s.table.SetRowStyle(i, s.warnStyle)
		case diag.StatusFail:
			s.table.SetRowStyle(i, s.failStyle)
		default:
			s.table.SetRowStyle(i, s.passStyle)
		}
	}
}

// runCmd assembles a probe from current state and runs the battery
func (s *DiagnosticsScreen) runCmd() tea.Cmd {
	runner := s.services.GetDiagnostics()
	cache := s.services.GetCache()
	cfg := s.services.GetConfig()
	manager := s.services.GetMigration()
	ctx := s.services.GetContext()

	return func() tea.Msg {
		probe := diag.Probe{
			Snapshot:     cache.Tokens(),
			ThresholdAda: cfg.Discovery.MinLiquidityAda,
		}

		conn := cache.Connection()
		if balance, ok := cache.Balance(conn.Wallet); ok {
			probe.Balance = balance
		}

		state := manager.Current()
		probe.Migration = &state

		report := runner.Run(ctx, probe)
		cache.SetReport(report)
		return ui.DiagnosticsMsg{Report: report}
	}
}

// exportCmd writes the last report to disk
func (s *DiagnosticsScreen) exportCmd() tea.Cmd {
	exporter := s.services.GetExporter()
	report := s.report

	return func() tea.Msg {
		if report == nil {
			return ui.ErrorMsg{Error: fmt.Errorf("no report to export"), Title: "Export"}
		}
		path, err := exporter.WriteReport(*report, export.Options{
			Format:          export.FormatJSON,
			OutputDir:       "exports",
			IncludeWarnings: true,
		})
		if err != nil {
			return ui.ErrorMsg{Error: err, Title: "Export"}
		}
		return ui.SuccessMsg{Message: "report exported to " + path, Title: "Export"}
	}
}
