// internal/swap/slippage.go
package swap

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Slippage is a tolerance on the quoted output, in percent.
type Slippage struct {
	Percent decimal.Decimal
}

// DefaultSlippage matches the swap form's preselected tolerance.
var DefaultSlippage = Slippage{Percent: decimal.RequireFromString("0.5")}

var oneHundred = decimal.NewFromInt(100)

// ParseSlippage parses user input like "0.5%", "1" or "2.5 %".
func ParseSlippage(s string) (Slippage, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if trimmed == "" {
		return Slippage{}, fmt.Errorf("empty slippage")
	}

	pct, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Slippage{}, fmt.Errorf("invalid slippage %q: %w", s, err)
	}
	if pct.IsNegative() || pct.GreaterThan(oneHundred) {
		return Slippage{}, fmt.Errorf("slippage %s%% out of range (0-100)", pct)
	}
	return Slippage{Percent: pct}, nil
}

// Multiplier returns the factor applied to a quoted output to obtain
// the minimum acceptable one: 1 - percent/100.
func (s Slippage) Multiplier() decimal.Decimal {
	return decimal.NewFromInt(1).Sub(s.Percent.Div(oneHundred))
}

func (s Slippage) String() string {
	return s.Percent.String() + "%"
}
