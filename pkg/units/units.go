// Package units converts between human-readable token amounts and their
// fixed-point integer representation.
package units

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the precision of native currency and of most ERC20 tokens.
const EtherDecimals = 18

// ParseUnits scales a decimal string by 10^decimals and returns the exact
// integer. Amounts with more fractional digits than decimals are rejected
// rather than truncated.
func ParseUnits(value string, decimals int32) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("negative decimals: %d", decimals)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount: %s", value)
	}

	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d fractional digits", value, decimals)
	}
	return scaled.BigInt(), nil
}

// ParseEther is ParseUnits with 18 decimals.
func ParseEther(value string) (*big.Int, error) {
	return ParseUnits(value, EtherDecimals)
}

// FormatUnits renders an integer amount as a decimal string with the given
// precision, dropping trailing zeros.
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}
