package screen

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"

	"github.com/cardexlabs/cardex/internal/logger"
	"github.com/cardexlabs/cardex/internal/ui"
	"github.com/cardexlabs/cardex/internal/ui/component"
	"github.com/cardexlabs/cardex/internal/ui/router"
	"github.com/cardexlabs/cardex/internal/ui/style"
)

const (
	logsFetchLimit  = 500
	logsTailRefresh = time.Second
)

type logsTickMsg time.Time

// LogsScreen tails the in-memory log buffer with level filtering.
type LogsScreen struct {
	width    int
	height   int
	keyMap   ui.KeyMap
	services ui.ServiceProvider

	// UI components
	helpBar *component.HelpBar

	// State
	entries  []logger.LogEntry
	minLevel zapcore.Level
	tail     bool
	offset   int

	// Styling
	titleStyle  lipgloss.Style
	statusStyle lipgloss.Style
	timeStyle   lipgloss.Style
	debugStyle  lipgloss.Style
	infoStyle   lipgloss.Style
	warnStyle   lipgloss.Style
	errorStyle  lipgloss.Style
	fieldStyle  lipgloss.Style
}

// NewLogsScreen creates the log viewer screen
func NewLogsScreen(services ui.ServiceProvider) *LogsScreen {
	palette := style.DefaultPalette()
	keyMap := ui.DefaultKeyMap()

	return &LogsScreen{
		keyMap:   keyMap,
		services: services,
		helpBar:  component.NewHelpBar().SetKeyBindings(keyMap.ContextualHelp(ui.RouteLogs)),
		minLevel: zapcore.InfoLevel,
		tail:     true,

		titleStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Margin(1, 0).
			Align(lipgloss.Center),

		statusStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Padding(0, 2),

		timeStyle:  lipgloss.NewStyle().Foreground(palette.TextMuted),
		debugStyle: lipgloss.NewStyle().Foreground(palette.TextSecondary),
		infoStyle:  lipgloss.NewStyle().Foreground(palette.Info),
		warnStyle:  lipgloss.NewStyle().Foreground(palette.Warning).Bold(true),
		errorStyle: lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
		fieldStyle: lipgloss.NewStyle().Foreground(palette.TextMuted),
	}
}

// Init loads the initial tail from the buffer
func (s *LogsScreen) Init() tea.Cmd {
	s.reload()
	return s.tickCmd()
}

func (s *LogsScreen) tickCmd() tea.Cmd {
	return tea.Tick(logsTailRefresh, func(t time.Time) tea.Msg {
		return logsTickMsg(t)
	})
}

// Update handles screen updates
func (s *LogsScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keyMap.Quit):
			return s, tea.Quit

		case key.Matches(msg, s.keyMap.FilterDebug):
			s.setMinLevel(zapcore.DebugLevel)
		case key.Matches(msg, s.keyMap.FilterInfo):
			s.setMinLevel(zapcore.InfoLevel)
		case key.Matches(msg, s.keyMap.FilterWarn):
			s.setMinLevel(zapcore.WarnLevel)
		case key.Matches(msg, s.keyMap.FilterError):
			s.setMinLevel(zapcore.ErrorLevel)

		case key.Matches(msg, s.keyMap.TailMode):
			s.tail = !s.tail
			if s.tail {
				s.offset = 0
				s.reload()
			}

		case key.Matches(msg, s.keyMap.Up):
			s.tail = false
			if s.offset < len(s.entries)-s.visibleLines() {
				s.offset++
			}

		case key.Matches(msg, s.keyMap.Down):
			if s.offset > 0 {
				s.offset--
			} else {
				s.tail = true
			}
		}

	case logsTickMsg:
		if s.tail {
			s.reload()
		}
		return s, s.tickCmd()

	case ui.LogMsg:
		if s.tail {
			s.reload()
		}
	}

	return s, nil
}

// View renders the log viewer
func (s *LogsScreen) View() string {
	if s.width == 0 || s.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	content.WriteString(s.titleStyle.Width(s.width).Render("≡ Logs"))
	content.WriteString("\n")
	content.WriteString(s.renderStatusLine())
	content.WriteString("\n\n")
	content.WriteString(s.renderEntries())
	content.WriteString("\n")
	content.WriteString(s.helpBar.SetWidth(s.width).View())

	return content.String()
}

// SetSize sets the screen dimensions
func (s *LogsScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.helpBar.SetWidth(width)
}

func (s *LogsScreen) setMinLevel(level zapcore.Level) {
	s.minLevel = level
	s.offset = 0
	s.reload()
}

// reload re-reads the buffer and applies the level filter
func (s *LogsScreen) reload() {
	recent := s.services.GetLogBuffer().GetRecentLogs(logsFetchLimit)

	filtered := make([]logger.LogEntry, 0, len(recent))
	for _, entry := range recent {
		level, err := zapcore.ParseLevel(strings.ToLower(entry.Level))
		if err != nil {
			level = zapcore.InfoLevel
		}
		if level >= s.minLevel {
			filtered = append(filtered, entry)
		}
	}
	s.entries = filtered
}

func (s *LogsScreen) visibleLines() int {
	// title + status line + spacing + help bar
	lines := s.height - 8
	if lines < 3 {
		lines = 3
	}
	return lines
}

func (s *LogsScreen) renderStatusLine() string {
	mode := "paused"
	if s.tail {
		mode = "following"
	}
	return s.statusStyle.Render(fmt.Sprintf(
		"level ≥ %s • %s • %d entries buffered",
		s.minLevel.CapitalString(), mode, len(s.entries),
	))
}

func (s *LogsScreen) renderEntries() string {
	if len(s.entries) == 0 {
		return s.statusStyle.Render("No log entries at this level yet.")
	}

	visible := s.visibleLines()
	end := len(s.entries) - s.offset
	if end > len(s.entries) {
		end = len(s.entries)
	}
	start := end - visible
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, entry := range s.entries[start:end] {
		b.WriteString(s.renderEntry(entry))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *LogsScreen) renderEntry(entry logger.LogEntry) string {
	levelStyle := s.infoStyle
	switch strings.ToUpper(entry.Level) {
	case "DEBUG":
		levelStyle = s.debugStyle
	case "WARN":
		levelStyle = s.warnStyle
	case "ERROR", "FATAL", "PANIC":
		levelStyle = s.errorStyle
	}

	line := fmt.Sprintf("%s %s %s",
		s.timeStyle.Render(entry.Timestamp.Format("15:04:05.000")),
		levelStyle.Render(fmt.Sprintf("%-5s", strings.ToUpper(entry.Level))),
		entry.Message,
	)

	if len(entry.Fields) > 0 {
		pairs := make([]string, 0, len(entry.Fields))
		for k, v := range entry.Fields {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
		}
		line += " " + s.fieldStyle.Render(strings.Join(pairs, " "))
	}

	return line
}
