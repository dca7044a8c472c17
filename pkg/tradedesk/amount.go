package tradedesk

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Amount wraps decimal.Decimal for monetary values. It marshals to a JSON
// number so clients keep working with plain floats.
type Amount struct {
	decimal.Decimal
}

// MarshalJSON outputs as a JSON number (not a string).
func (a Amount) MarshalJSON() ([]byte, error) {
	f, _ := a.Round(4).Float64()
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// NewAmount creates an Amount from a float64.
func NewAmount(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

func amountFrom(d decimal.Decimal) Amount {
	return Amount{d}
}

// percentOf returns part/whole*100 rounded to two places, or nil when whole
// is zero.
func percentOf(part, whole decimal.Decimal) *float64 {
	if whole.IsZero() {
		return nil
	}
	pct := part.Div(whole.Abs()).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	return &pct
}
