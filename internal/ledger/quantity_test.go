package ledger

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateQuantity(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		available string
		useAll    bool
		expected  string
		expectErr error
	}{
		{name: "Four decimals", raw: "1.2345", expected: "1.2345"},
		{name: "Five decimals", raw: "1.23456", expectErr: ErrPrecisionExceeded},
		{name: "Trailing zeros are fine", raw: "1.234500", expected: "1.2345"},
		{name: "Integer", raw: "100", expected: "100"},
		{name: "Zero parses", raw: "0", expected: "0"},
		{name: "Surrounding spaces", raw: " 2.5 ", expected: "2.5"},
		{name: "Exponent form", raw: "1e-4", expected: "0.0001"},
		{name: "Exponent too fine", raw: "1e-5", expectErr: ErrPrecisionExceeded},
		{name: "Negative", raw: "-1", expectErr: ErrInvalidQuantityFormat},
		{name: "Not a number", raw: "abc", expectErr: ErrInvalidQuantityFormat},
		{name: "NaN", raw: "NaN", expectErr: ErrInvalidQuantityFormat},
		{name: "Infinity", raw: "Infinity", expectErr: ErrInvalidQuantityFormat},
		{name: "Empty", raw: "", expectErr: ErrInvalidQuantityFormat},
		{name: "Fifteen nines", raw: "999999999999999", expected: "999999999999999"},
		{name: "Largest whole part", raw: "999999999999999.9999", expected: "999999999999999.9999"},
		{name: "Too many integer digits", raw: "1000000000000000", expectErr: ErrInvalidQuantityFormat},
		{name: "Huge exponent", raw: "1e5000000", expectErr: ErrInvalidQuantityFormat},
		{name: "Exponent just over", raw: "1e15", expectErr: ErrInvalidQuantityFormat},
		{name: "Tiny exponent", raw: "1e-5000000", expectErr: ErrInvalidQuantityFormat},
		{name: "Zero with huge exponent", raw: "0e5000000", expectErr: ErrInvalidQuantityFormat},
		{name: "Overlong input", raw: "0." + strings.Repeat("0", 70), expectErr: ErrInvalidQuantityFormat},
		{name: "Use all", raw: "garbage", available: "3.5", useAll: true, expected: "3.5"},
		{name: "Use all on empty balance", available: "0", useAll: true, expectErr: ErrInsufficientBalance},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			available := decimal.Zero
			if tc.available != "" {
				available = decimal.RequireFromString(tc.available)
			}

			qty, err := ValidateQuantity(tc.raw, available, tc.useAll)

			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			assert.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.expected).Equal(qty), "got %s", qty)
		})
	}
}

func TestCheckPrecision(t *testing.T) {
	assert.NoError(t, CheckPrecision(decimal.RequireFromString("2468.0617")))
	assert.ErrorIs(t, CheckPrecision(decimal.RequireFromString("0.00001")), ErrPrecisionExceeded)
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "bitcoin", NormalizeSymbol("  BitCoin "))
}
