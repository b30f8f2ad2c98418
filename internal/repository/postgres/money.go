package postgres

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are stored as NUMERIC in major units and held as int64 minor units
// in the domain. Conversion goes through decimal so a stored "123.45" is
// always exactly 12345 minor units of a two-decimal currency.

func numericStringToMinor(s string, exponent int32) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty numeric string")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse numeric %q: %w", s, err)
	}

	minor := d.Shift(exponent)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("numeric %q has more than %d decimal places", s, exponent)
	}
	return minor.IntPart(), nil
}

func minorToNumericString(minor int64, exponent int32) string {
	return decimal.New(minor, -exponent).StringFixed(exponent)
}
