package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units (centavos).
type Money int64

const minorUnitExp = -2

const (
	// MaxMoney bounds any single amount and any cart total: one trillion currency units.
	MaxMoney Money = 100_000_000_000_000
	// MaxQuantity matches the INTEGER columns that hold quantities and stock.
	MaxQuantity = math.MaxInt32
)

var (
	// ErrNotNumeric is returned when a price or quantity cannot be parsed as a number.
	ErrNotNumeric = errors.New("value is not numeric")
	// ErrNotInteger is returned when a quantity carries a fractional part.
	ErrNotInteger = errors.New("value is not an integer")
	// ErrMissingValue is returned when a required numeric field is absent or null.
	ErrMissingValue = errors.New("value is required")
	// ErrOutOfRange is returned when a value does not fit its column or would overflow a total.
	ErrOutOfRange = errors.New("value out of range")
)

// Decimal returns the value as a decimal in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), minorUnitExp)
}

// String formats the value in major units without trailing zeros.
func (m Money) String() string {
	return m.Decimal().String()
}

// Mul multiplies the amount by an integer quantity without an overflow check. LineSubtotal is the
// checked form.
func (m Money) Mul(qty int) Money {
	return m * Money(qty)
}

// LineSubtotal returns m x qty, failing with ErrOutOfRange when the product exceeds MaxMoney.
func LineSubtotal(m Money, qty int) (Money, error) {
	if m < 0 || qty < 0 {
		return 0, fmt.Errorf("%w: negative amount", ErrOutOfRange)
	}
	if qty != 0 && m > MaxMoney/Money(qty) {
		return 0, fmt.Errorf("%w: %s x %d", ErrOutOfRange, m, qty)
	}
	return m.Mul(qty), nil
}

// AddTotal returns a + b, failing with ErrOutOfRange when the sum exceeds MaxMoney.
func AddTotal(a, b Money) (Money, error) {
	if a > MaxMoney-b {
		return 0, fmt.Errorf("%w: total above %s", ErrOutOfRange, MaxMoney)
	}
	return a + b, nil
}

// MarshalJSON writes the amount as a plain JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMoney(data)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// FromDecimal converts a decimal in major units to Money, rounding half away from zero to centavos.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(-minorUnitExp).Shift(-minorUnitExp).IntPart())
}

const (
	maxIntegerDigits = 20
	minExponent      = -64
)

var maxMoneyDecimal = MaxMoney.Decimal()

// ParseMoney parses a raw JSON value (number or numeric string) into Money. Amounts whose
// magnitude exceeds MaxMoney fail with ErrOutOfRange.
func ParseMoney(raw json.RawMessage) (Money, error) {
	d, text, err := parseDecimal(raw)
	if err != nil {
		return 0, err
	}
	if d.Abs().GreaterThan(maxMoneyDecimal) {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, text)
	}
	return FromDecimal(d), nil
}

// ParseQuantity parses a raw JSON value (number or numeric string) into a whole quantity between
// -MaxQuantity and MaxQuantity.
func ParseQuantity(raw json.RawMessage) (int, error) {
	n, err := parseInteger(raw, MaxQuantity)
	return int(n), err
}

// ParseID parses a raw JSON value into a row identifier that fits a BIGINT column.
func ParseID(raw json.RawMessage) (int64, error) {
	return parseInteger(raw, math.MaxInt64)
}

func parseInteger(raw json.RawMessage, limit int64) (int64, error) {
	d, text, err := parseDecimal(raw)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %q", ErrNotInteger, text)
	}
	n := d.BigInt()
	if !n.IsInt64() || n.Int64() > limit || n.Int64() < -limit {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, text)
	}
	return n.Int64(), nil
}

func parseDecimal(raw json.RawMessage) (decimal.Decimal, string, error) {
	text, err := numericText(raw)
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, text, fmt.Errorf("%w: %q", ErrNotNumeric, text)
	}
	// bound the magnitude before anything rescales the coefficient
	if d.Exponent() < minExponent || int64(d.NumDigits())+int64(d.Exponent()) > maxIntegerDigits {
		return decimal.Decimal{}, text, fmt.Errorf("%w: %q", ErrOutOfRange, text)
	}
	return d, text, nil
}

func numericText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", ErrMissingValue
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotNumeric, trimmed)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", ErrMissingValue
		}
		return s, nil
	}
	return string(trimmed), nil
}
