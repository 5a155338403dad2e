package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	amountToken     = regexp.MustCompile(`\d{1,3}(?:[\s,]\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?`)
	reThousandComma = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
)

// ParseAmount pulls the first monetary value out of a string, tolerating
// currency glyphs and thousand separators ("₹98,535.00" -> 98535). Returns
// nil when no usable number is found. Negative amounts never occur in the
// inputs this sees; the token pattern has no sign.
func ParseAmount(input string) *float64 {
	line := strings.ReplaceAll(input, "\u00a0", " ")
	token := amountToken.FindString(line)
	if token == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(normalizeAmountToken(token), 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// AmountFromAny coerces a raw seeded value (JSON number or string) into an
// amount. Non-numeric input yields nil; the raw record keeps the original.
func AmountFromAny(value any) *float64 {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return nil
		}
		out := v
		return &out
	case string:
		return ParseAmount(v)
	default:
		return nil
	}
}

func normalizeAmountToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if reThousandComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
