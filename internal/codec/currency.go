package codec

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// MinorUnitsPerCoin is the fixed-point scale of ledger amounts: every
// on-chain u64 amount is in minor units, 10^8 per display coin.
const MinorUnitsPerCoin = 100_000_000

var minorScale = decimal.NewFromInt(MinorUnitsPerCoin)

// ToMajorUnits converts a minor-unit ledger amount to display units.
func ToMajorUnits(minor uint64) decimal.Decimal {
	return decimal.NewFromUint64(minor).Div(minorScale)
}

// ToMinorUnits converts a display amount to minor units, rounding to the
// nearest integer. Negative amounts are rejected.
func ToMinorUnits(major decimal.Decimal) (uint64, error) {
	if major.IsNegative() {
		return 0, fmt.Errorf("amount %s: negative amounts not representable", major)
	}
	scaled := major.Mul(minorScale).Round(0)
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %s: exceeds u64 range in minor units", major)
	}
	return bi.Uint64(), nil
}

// FormatMinorUnits converts a display amount to the decimal-string minor
// unit encoding used for transaction arguments.
func FormatMinorUnits(major decimal.Decimal) (string, error) {
	minor, err := ToMinorUnits(major)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(minor, 10), nil
}

// ParseMinorUnits parses the decimal-string minor-unit encoding the node
// uses for u64 values and converts it to display units.
func ParseMinorUnits(s string) (decimal.Decimal, error) {
	minor, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return decimal.Decimal{}, &DecodeError{What: "minor units", Err: err}
	}
	return ToMajorUnits(minor), nil
}
