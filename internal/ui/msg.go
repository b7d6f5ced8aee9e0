package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap/zapcore"

	"github.com/cardexlabs/cardex/internal/bridge"
	"github.com/cardexlabs/cardex/internal/diag"
	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/migration"
	"github.com/cardexlabs/cardex/internal/portfolio"
)

// Tea message types for UI communication

// RouterMsg represents navigation between screens
type RouterMsg struct {
	To Route
}

// TokenListMsg carries a fresh discovery snapshot into the UI.
type TokenListMsg struct {
	Snapshot discovery.Snapshot
}

// BalanceMsg carries an aggregated wallet balance into the UI.
type BalanceMsg struct {
	Wallet  string
	Balance *portfolio.WalletBalance
	Latency time.Duration
}

// MigrationMsg carries a shim state snapshot into the UI. One is sent
// for every progress stage of a switch and for the final outcome.
type MigrationMsg struct {
	State migration.State
}

// DiagnosticsMsg carries a completed battery report into the UI.
type DiagnosticsMsg struct {
	Report diag.Report
}

// SessionMsg reports a wallet session opening or closing.
type SessionMsg struct {
	Wallet    string
	Impl      bridge.Impl
	Connected bool
	Reason    string
}

// SwapMsg reports a submitted swap transaction.
type SwapMsg struct {
	Wallet string
	Pair   string
	TxHash string
}

// LogMsg represents log messages
type LogMsg struct {
	Level   zapcore.Level
	Message string
	Fields  map[string]interface{}
}

// ErrorMsg represents error conditions
type ErrorMsg struct {
	Error error
	Title string
}

// SuccessMsg represents success conditions
type SuccessMsg struct {
	Message string
	Title   string
}

// StatusMsg represents transient status updates shown in the footer.
type StatusMsg struct {
	Message string
}

// Event Bus for UI communication
var (
	// Bus is the global event bus for UI communication
	Bus = make(chan tea.Msg, 1024)
)

// Publish publishes any message to the UI bus without blocking.
func Publish(msg tea.Msg) {
	select {
	case Bus <- msg:
	default:
		// Bus is full, drop the message
	}
}

// PublishLog publishes a log message to the UI bus
func PublishLog(level zapcore.Level, message string, fields map[string]interface{}) {
	select {
	case Bus <- LogMsg{Level: level, Message: message, Fields: fields}:
	default:
		// Bus is full, drop the log
	}
}

// PublishError publishes an error message to the UI bus
func PublishError(err error, title string) {
	select {
	case Bus <- ErrorMsg{Error: err, Title: title}:
	default:
		// Bus is full, drop the error
	}
}

// PublishSuccess publishes a success message to the UI bus
func PublishSuccess(message, title string) {
	select {
	case Bus <- SuccessMsg{Message: message, Title: title}:
	default:
		// Bus is full, drop the success message
	}
}

// PublishStatus publishes a transient status line to the UI bus
func PublishStatus(message string) {
	select {
	case Bus <- StatusMsg{Message: message}:
	default:
		// Bus is full, drop the status
	}
}

// BusMsg wraps one message taken off the Bus. The envelope lets the
// program loop tell bus deliveries apart from terminal events, so the
// listener is re-armed once per delivery instead of once per Update.
type BusMsg struct {
	Msg tea.Msg
}

// ListenBus returns a tea.Cmd that delivers the next bus message.
func ListenBus() tea.Cmd {
	return func() tea.Msg {
		return BusMsg{Msg: <-Bus}
	}
}

// Route represents different screens in the application
type Route int

const (
	RouteMainMenu Route = iota
	RouteTokens
	RoutePortfolio
	RouteMigration
	RouteDiagnostics
	RouteLogs
)

// String returns the string representation of the route
func (r Route) String() string {
	switch r {
	case RouteMainMenu:
		return "main_menu"
	case RouteTokens:
		return "tokens"
	case RoutePortfolio:
		return "portfolio"
	case RouteMigration:
		return "migration"
	case RouteDiagnostics:
		return "diagnostics"
	case RouteLogs:
		return "logs"
	default:
		return "unknown"
	}
}
