// Package core provides money parsing and handling utilities.
//
// Amounts are fixed-point decimals carried by shopspring/decimal and always
// rendered with two fraction digits, both on the wire and in storage.
package core

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	maxDecimalLen = 32
	minExponent   = -maxDecimalLen
	maxExponent   = 8
)

// maxAmount bounds the magnitude of an amount, exclusive: DECIMAL(10,2).
var maxAmount = decimal.New(1, maxExponent)

// parseDecimal parses s with its length, exponent and magnitude bounded,
// before any rescaling can blow up a hostile "1e2000000000".
func parseDecimal(s string) (decimal.Decimal, bool) {
	if s == "" || len(s) > maxDecimalLen {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if exp := d.Exponent(); exp < minExponent || exp > maxExponent {
		return decimal.Decimal{}, false
	}
	d = d.Round(2)
	if d.Abs().Cmp(maxAmount) >= 0 {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Money is a fixed-point monetary amount. The zero value is 0.00.
type Money struct {
	Amount decimal.Decimal
}

// NewMoney parses a decimal string. Both dot (12.34) and comma (12,34)
// separators are accepted; the result is rounded half away from zero to
// two fraction digits and must stay below 100,000,000 in magnitude.
//
// Examples:
//
//	NewMoney("1500.00") -> 1500.00
//	NewMoney("12,345")  -> 12.35
//	NewMoney("-20")     -> -20.00
func NewMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, ok := parseDecimal(s)
	if !ok {
		return Money{}, ErrInvalidAmount
	}
	return Money{Amount: d}, nil
}

// MustMoney is NewMoney for constants and tests.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(fmt.Sprintf("core: invalid money %q", s))
	}
	return m
}

func (m Money) Rounded() Money {
	return Money{Amount: m.Amount.Round(2)}
}

func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount.Add(other.Amount)}
}

func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount.Sub(other.Amount)}
}

func (m Money) Abs() Money {
	return Money{Amount: m.Amount.Abs()}
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

func (m Money) Equal(other Money) bool {
	return m.Amount.Equal(other.Amount)
}

// Percent returns m as a share of total, rounded to an integer percentage.
// A zero total yields 0.
func (m Money) Percent(total Money) int {
	if total.IsZero() {
		return 0
	}
	return int(m.Amount.Mul(decimal.NewFromInt(100)).Div(total.Amount).Round(0).IntPart())
}

// String renders the amount with exactly two fraction digits.
func (m Money) String() string {
	return m.Amount.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = Money{}
		return nil
	}
	parsed, err := NewMoney(strings.Trim(raw, `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the amount as TEXT so no binary float is ever involved.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	m.Amount = d
	return nil
}

// Rate is a bounded decimal ratio such as a savings rate.
type Rate struct {
	Value decimal.Decimal
}

func NewRate(s string) (Rate, error) {
	d, ok := parseDecimal(strings.TrimSpace(s))
	if !ok {
		return Rate{}, ErrInvalidRate
	}
	return Rate{Value: d}, nil
}

// MustRate is NewRate for constants and tests.
func MustRate(s string) Rate {
	r, err := NewRate(s)
	if err != nil {
		panic(fmt.Sprintf("core: invalid rate %q", s))
	}
	return r
}

func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.Value.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (r *Rate) UnmarshalJSON(data []byte) error {
	parsed, err := NewRate(strings.Trim(strings.TrimSpace(string(data)), `"`))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
