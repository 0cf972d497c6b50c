package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount normalizes a heterogeneous extracted value into a decimal
// amount. This is the single source of truth for what counts as a valid
// amount: nil and unparseable values become zero, never an error.
func ParseAmount(value any) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(v)
	case float32:
		return ParseAmount(float64(v))
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case string:
		return parseAmountString(v)
	default:
		return decimal.Zero
	}
}

func parseAmountString(raw string) decimal.Decimal {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return decimal.Zero
	}

	// Accounting notation: (123.45) means -123.45.
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "("), ")")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return amount.Neg()
	}
	return amount
}

// RoundCents rounds a monetary amount to two decimal places.
func RoundCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
