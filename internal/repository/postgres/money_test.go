package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericStringToMinor(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		exponent int32
		expected int64
	}{
		{"two decimals", "123.45", 2, 12345},
		{"whole number", "100", 2, 10000},
		{"trailing zeros", "100.00", 2, 10000},
		{"sub-unit", "0.05", 2, 5},
		{"zero", "0", 2, 0},
		{"zero-decimal currency", "12345", 0, 12345},
		{"three-decimal currency", "12.345", 3, 12345},
		{"whitespace tolerated", " 99.99 ", 2, 9999},
		// Postgres NUMERIC may come back with fewer digits than the scale.
		{"short fraction", "123.4", 2, 12340},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := numericStringToMinor(tt.input, tt.exponent)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNumericStringToMinor_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		exponent int32
	}{
		{"empty", "", 2},
		{"not a number", "abc", 2},
		{"excess precision", "123.456", 2},
		{"fraction for zero-decimal currency", "123.4", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := numericStringToMinor(tt.input, tt.exponent)
			assert.Error(t, err)
		})
	}
}

func TestMinorToNumericString(t *testing.T) {
	assert.Equal(t, "123.45", minorToNumericString(12345, 2))
	assert.Equal(t, "100.00", minorToNumericString(10000, 2))
	assert.Equal(t, "0.05", minorToNumericString(5, 2))
	assert.Equal(t, "12345", minorToNumericString(12345, 0))
	assert.Equal(t, "12.345", minorToNumericString(12345, 3))
}

func TestMoneyRoundTrip(t *testing.T) {
	for _, minor := range []int64{0, 1, 99, 100, 12345, 9_007_199_254_740_993} {
		s := minorToNumericString(minor, 2)
		got, err := numericStringToMinor(s, 2)
		require.NoError(t, err)
		assert.Equal(t, minor, got, "round trip through %s", s)
	}
}
