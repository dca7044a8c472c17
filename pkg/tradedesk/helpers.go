package tradedesk

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func normalizeTicker(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// normalizeDate accepts a calendar day, optionally with a time suffix, and
// returns it as YYYY-MM-DD.
func normalizeDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalidf("date is required")
	}
	if len(value) > len(dateLayout) {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t.Format(dateLayout), nil
		}
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return "", invalidf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t.Format(dateLayout), nil
}

func round2(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

func floatPtr(value float64) *float64 {
	return &value
}

// optionalText trims a free-text field and drops it when empty.
func optionalText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
