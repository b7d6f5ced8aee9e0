package component

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/cardexlabs/cardex/internal/bridge"
	"github.com/cardexlabs/cardex/internal/ui/state"
	"github.com/cardexlabs/cardex/internal/ui/style"
)

// BridgeStatus represents the current wallet-bridge connection status
type BridgeStatus struct {
	Connected bool
	Latency   time.Duration
	LastCheck time.Time
}

// StatusHeader provides a clean header with essential status information
type StatusHeader struct {
	wallet     string
	impl       bridge.Impl
	status     BridgeStatus
	ada        decimal.Decimal
	hasBalance bool
	style      StatusHeaderStyle
	width      int
}

// StatusHeaderStyle contains all styling for the status header
type StatusHeaderStyle struct {
	container  lipgloss.Style
	title      lipgloss.Style
	wallet     lipgloss.Style
	bridgeGood lipgloss.Style
	bridgeBad  lipgloss.Style
	implLegacy lipgloss.Style
	implV2     lipgloss.Style
	balance    lipgloss.Style
	balanceNA  lipgloss.Style
}

// NewStatusHeader creates a new status header component
func NewStatusHeader() *StatusHeader {
	palette := style.DefaultPalette()

	return &StatusHeader{
		wallet: "none",
		impl:   bridge.ImplLegacy,
		style: StatusHeaderStyle{
			container: lipgloss.NewStyle().
				Background(palette.Background).
				Foreground(palette.Text).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 2).
				MarginBottom(1),

			title: lipgloss.NewStyle().
				Foreground(palette.Primary).
				Bold(true),

			wallet: lipgloss.NewStyle().
				Foreground(palette.TextSecondary).
				Bold(false),

			bridgeGood: lipgloss.NewStyle().
				Foreground(palette.Success).
				Bold(true),

			bridgeBad: lipgloss.NewStyle().
				Foreground(palette.Error).
				Bold(true),

			implLegacy: lipgloss.NewStyle().
				Foreground(palette.Warning).
				Bold(true),

			implV2: lipgloss.NewStyle().
				Foreground(palette.Success).
				Bold(true),

			balance: lipgloss.NewStyle().
				Foreground(palette.Text).
				Bold(true),

			balanceNA: lipgloss.NewStyle().
				Foreground(palette.TextMuted).
				Bold(false),
		},
	}
}

// SetWallet updates the wallet name display
func (sh *StatusHeader) SetWallet(wallet string) {
	if wallet == "" {
		sh.wallet = "none"
		return
	}
	if len(wallet) > 8 {
		sh.wallet = wallet[:8] + "..."
	} else {
		sh.wallet = wallet
	}
}

// SetImpl updates the active bridge implementation display
func (sh *StatusHeader) SetImpl(impl bridge.Impl) {
	sh.impl = impl
}

// SetBridgeStatus updates the wallet-bridge connection status
func (sh *StatusHeader) SetBridgeStatus(status BridgeStatus) {
	sh.status = status
}

// SetBalance updates the ADA balance display
func (sh *StatusHeader) SetBalance(ada decimal.Decimal) {
	sh.ada = ada
	sh.hasBalance = true
}

// SetWidth sets the component width for responsive layout
func (sh *StatusHeader) SetWidth(width int) {
	sh.width = width
	sh.style.container = sh.style.container.Width(width - 4)
}

// Update refreshes wallet, connection and balance from the global cache
func (sh *StatusHeader) Update() {
	if state.GlobalCache == nil {
		return
	}

	conn := state.GlobalCache.Connection()
	sh.SetWallet(conn.Wallet)
	if conn.Impl != "" {
		sh.impl = conn.Impl
	}
	sh.status = BridgeStatus{
		Connected: conn.Connected,
		Latency:   conn.Latency,
		LastCheck: conn.UpdatedAt,
	}

	if balance, ok := state.GlobalCache.Balance(conn.Wallet); ok {
		sh.ada = balance.Ada
		sh.hasBalance = true
	}
}

// View renders the status header
func (sh *StatusHeader) View() string {
	title := sh.style.title.Render("Cardex")
	wallet := sh.style.wallet.Render(fmt.Sprintf("Wallet: %s", sh.wallet))
	impl := sh.renderImpl()
	bridgeStatus := sh.renderBridgeStatus()
	balance := sh.renderBalance()

	content := lipgloss.JoinHorizontal(
		lipgloss.Left,
		title,
		" | ",
		wallet,
		" | ",
		impl,
		" | ",
		bridgeStatus,
		" | ",
		balance,
	)

	return sh.style.container.Render(content)
}

// renderImpl renders the active wallet implementation badge
func (sh *StatusHeader) renderImpl() string {
	if sh.impl == bridge.ImplV2 {
		return sh.style.implV2.Render("impl: v2")
	}
	return sh.style.implLegacy.Render("impl: legacy")
}

// renderBridgeStatus renders the bridge connection status with emoji
func (sh *StatusHeader) renderBridgeStatus() string {
	if sh.status.Connected {
		latencyMs := sh.status.Latency.Milliseconds()
		status := fmt.Sprintf("🟢 Bridge: OK (%dms)", latencyMs)
		return sh.style.bridgeGood.Render(status)
	}

	status := "🔴 Bridge: Disconnected"
	return sh.style.bridgeBad.Render(status)
}

// renderBalance renders the cached ADA balance
func (sh *StatusHeader) renderBalance() string {
	if !sh.hasBalance {
		return sh.style.balanceNA.Render("ADA: —")
	}

	status := fmt.Sprintf("ADA: %s", sh.ada.StringFixed(6))
	return sh.style.balance.Render(status)
}

// GetHeight returns the component height for layout calculations
func (sh *StatusHeader) GetHeight() int {
	return 3 // Border + padding + content
}
