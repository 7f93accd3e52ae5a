package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultProfitFloor is the lowest balance any client may reach.
var DefaultProfitFloor = decimal.NewFromInt(-1000)

// ParseAmount parses a decimal amount from its string form. Values are kept
// at full precision; nothing is rounded.
func ParseAmount(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", trimmed, err)
	}
	return d, nil
}
