package component

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cardexlabs/cardex/internal/ui/style"
)

// Sparkline represents a mini graph component for showing liquidity trends
type Sparkline struct {
	data     []float64
	width    int
	style    lipgloss.Style
	color    lipgloss.Color
	showText bool
}

// NewSparkline creates a new sparkline component
func NewSparkline(width int) *Sparkline {
	return &Sparkline{
		data:     make([]float64, 0),
		width:    width,
		style:    lipgloss.NewStyle(),
		color:    style.DefaultPalette().Primary,
		showText: false,
	}
}

// SetData sets the data points for the sparkline
func (s *Sparkline) SetData(data []float64) *Sparkline {
	s.data = make([]float64, len(data))
	copy(s.data, data)
	return s
}

// AddDataPoint adds a new data point to the sparkline
func (s *Sparkline) AddDataPoint(value float64) *Sparkline {
	s.data = append(s.data, value)
	// Keep only the last `width` points
	if len(s.data) > s.width {
		s.data = s.data[len(s.data)-s.width:]
	}
	return s
}

// SetWidth sets the width of the sparkline
func (s *Sparkline) SetWidth(width int) *Sparkline {
	s.width = width
	if len(s.data) > width {
		s.data = s.data[len(s.data)-width:]
	}
	return s
}

// SetColor sets the color for the sparkline
func (s *Sparkline) SetColor(color lipgloss.Color) *Sparkline {
	s.color = color
	return s
}

// ShowText enables/disables the trend arrow alongside the sparkline
func (s *Sparkline) ShowText(show bool) *Sparkline {
	s.showText = show
	return s
}

// View renders the sparkline
func (s *Sparkline) View() string {
	if len(s.data) == 0 {
		return s.style.Render(strings.Repeat("▁", s.width))
	}

	blocks := s.generateSparkBlocks()
	styledBlocks := s.style.Foreground(s.color).Render(blocks)

	if s.showText {
		// Short-term trend: compare the two most recent points
		var trend string
		var trendColor lipgloss.Color

		current := s.data[len(s.data)-1]
		if len(s.data) >= 2 {
			prev := s.data[len(s.data)-2]
			switch {
			case current > prev:
				trend = "↗"
				trendColor = style.DefaultPalette().Success
			case current < prev:
				trend = "↘"
				trendColor = style.DefaultPalette().Error
			default:
				trend = "→"
				trendColor = style.DefaultPalette().TextMuted
			}
		}

		trendStyled := lipgloss.NewStyle().Foreground(trendColor).Render(trend)
		return styledBlocks + " " + trendStyled
	}

	return styledBlocks
}

// generateSparkBlocks creates the spark characters based on data
func (s *Sparkline) generateSparkBlocks() string {
	if len(s.data) == 0 {
		return strings.Repeat("▁", s.width)
	}

	min, max := s.getMinMax()

	// All values equal: flat line
	if min == max {
		n := len(s.data)
		if n > s.width {
			n = s.width
		}
		return strings.Repeat("▄", n)
	}

	// Spark characters from lowest to highest
	sparkChars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var result strings.Builder

	for i, value := range s.data {
		if i >= s.width {
			break
		}

		// Normalize value to the spark character range
		normalized := (value - min) / (max - min)
		index := int(normalized * float64(len(sparkChars)-1))

		if index < 0 {
			index = 0
		} else if index >= len(sparkChars) {
			index = len(sparkChars) - 1
		}

		result.WriteRune(sparkChars[index])
	}

	// Pad with spaces if we have fewer data points than width
	for result.Len() < s.width {
		result.WriteRune(' ')
	}

	return result.String()
}

// getMinMax finds the minimum and maximum values in the data
func (s *Sparkline) getMinMax() (float64, float64) {
	if len(s.data) == 0 {
		return 0, 0
	}

	min := s.data[0]
	max := s.data[0]

	for _, value := range s.data {
		if value < min {
			min = value
		}
		if value > max {
			max = value
		}
	}

	return min, max
}

// GetTrend returns the overall trend of the data
func (s *Sparkline) GetTrend() string {
	if len(s.data) < 2 {
		return "→"
	}

	change := s.GetChangePercent()

	if math.Abs(change) < 0.1 {
		return "→"
	} else if change > 0 {
		return "↗"
	}
	return "↘"
}

// GetChangePercent returns the percentage change from first to last data point
func (s *Sparkline) GetChangePercent() float64 {
	if len(s.data) < 2 {
		return 0
	}

	first := s.data[0]
	last := s.data[len(s.data)-1]

	if first == 0 {
		return 0
	}

	return (last - first) / first * 100
}

// Clear removes all data points
func (s *Sparkline) Clear() *Sparkline {
	s.data = make([]float64, 0)
	return s
}
