package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cardexlabs/cardex/internal/ui/style"
)

// ProgressGauge renders a 0-100 progress bar for the migration shim.
type ProgressGauge struct {
	value     int // 0..100
	width     int
	showValue bool
	label     string
	failed    bool
}

// NewProgressGauge creates a new progress gauge component
func NewProgressGauge(width int) *ProgressGauge {
	return &ProgressGauge{
		value:     0,
		width:     width,
		showValue: true,
	}
}

// SetValue sets the progress percentage, clamped to [0, 100]
func (p *ProgressGauge) SetValue(value int) *ProgressGauge {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	p.value = value
	return p
}

// SetWidth sets the gauge width
func (p *ProgressGauge) SetWidth(width int) *ProgressGauge {
	p.width = width
	return p
}

// SetShowValue enables/disables the percentage text
func (p *ProgressGauge) SetShowValue(show bool) *ProgressGauge {
	p.showValue = show
	return p
}

// SetLabel sets a short stage label rendered after the bar
func (p *ProgressGauge) SetLabel(label string) *ProgressGauge {
	p.label = label
	return p
}

// SetFailed switches the gauge to the error color
func (p *ProgressGauge) SetFailed(failed bool) *ProgressGauge {
	p.failed = failed
	return p
}

// GetValue returns the current percentage
func (p *ProgressGauge) GetValue() int {
	return p.value
}

// View renders the progress gauge
func (p *ProgressGauge) View() string {
	palette := style.DefaultPalette()

	var color lipgloss.Color
	switch {
	case p.failed:
		color = palette.Error
	case p.value >= 100:
		color = palette.Success
	default:
		color = palette.Primary
	}

	bar := p.generateBar()
	styledBar := lipgloss.NewStyle().Foreground(color).Render(bar)

	if !p.showValue {
		return styledBar
	}

	text := fmt.Sprintf("%3d%%", p.value)
	if p.label != "" {
		text += " " + p.label
	}
	styledText := lipgloss.NewStyle().Foreground(color).Bold(true).Render(text)

	return styledBar + " " + styledText
}

// generateBar builds the bracketed bar string
func (p *ProgressGauge) generateBar() string {
	barWidth := p.width
	if barWidth < 4 {
		barWidth = 4
	}
	inner := barWidth - 2 // Brackets

	filled := inner * p.value / 100
	if filled > inner {
		filled = inner
	}

	var bar strings.Builder
	bar.WriteString("[")
	bar.WriteString(strings.Repeat("█", filled))
	bar.WriteString(strings.Repeat("░", inner-filled))
	bar.WriteString("]")

	return bar.String()
}
