package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits every quantity and amount is held to.
const Precision int32 = 4

// MaxIntegerDigits bounds the whole part of a requested quantity.
const MaxIntegerDigits = 15

// maxQuantityLength bounds the raw text so the exponent checks below stay cheap.
const maxQuantityLength = 64

var precisionScale = decimal.New(1, Precision)

// ValidateQuantity turns a requested quantity into an exact fixed-point value.
// With useAll the result is exactly available and raw is ignored.
func ValidateQuantity(raw string, available decimal.Decimal, useAll bool) (decimal.Decimal, error) {
	if useAll {
		if !available.IsPositive() {
			return decimal.Zero, ErrInsufficientBalance
		}
		return available, nil
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: quantity is required", ErrInvalidQuantityFormat)
	}

	if len(raw) > maxQuantityLength {
		return decimal.Zero, fmt.Errorf("%w: quantity is longer than %d characters", ErrInvalidQuantityFormat, maxQuantityLength)
	}

	qty, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidQuantityFormat, raw)
	}
	if qty.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidQuantityFormat, raw)
	}

	// Checked on the exponent before any arithmetic: "1e5000000" is nine bytes
	// but rescaling it allocates millions of digits.
	if exp := qty.Exponent(); exp < -maxQuantityLength || exp > MaxIntegerDigits {
		return decimal.Zero, fmt.Errorf("%w: %q is out of range", ErrInvalidQuantityFormat, raw)
	}
	if !qty.IsZero() && len(qty.Coefficient().String())+int(qty.Exponent()) > MaxIntegerDigits {
		return decimal.Zero, fmt.Errorf("%w: %q has more than %d integer digits", ErrInvalidQuantityFormat, raw, MaxIntegerDigits)
	}

	if !qty.Mul(precisionScale).IsInteger() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrPrecisionExceeded, raw)
	}

	return qty, nil
}

// CheckPrecision rejects amounts with more than Precision fractional digits.
func CheckPrecision(amount decimal.Decimal) error {
	if !amount.Mul(precisionScale).IsInteger() {
		return fmt.Errorf("%w: %s", ErrPrecisionExceeded, amount.String())
	}
	return nil
}
