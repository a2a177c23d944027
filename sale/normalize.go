package sale

import "github.com/shopspring/decimal"

// FundingDecimals is the canonical funding unit scale: every payment,
// whatever its asset's native decimals, settles in 18-decimal units.
const FundingDecimals int32 = 18

// Normalize rescales an integral base-unit amount from one decimal base
// to another, truncating toward zero. Repeated small conversions can
// shed sub-unit dust; that rounding loss is accepted across the ledger.
func Normalize(amount decimal.Decimal, fromDecimals, toDecimals int32) decimal.Decimal {
	return amount.Shift(toDecimals - fromDecimals).Truncate(0)
}

// mulDiv computes a*b/den with the quotient truncated toward zero.
func mulDiv(a, b, den decimal.Decimal) decimal.Decimal {
	q, _ := a.Mul(b).QuoRem(den, 0)
	return q
}

// perMille applies a per-mille rate to an amount, truncating toward zero.
func perMille(amount decimal.Decimal, rate uint32) decimal.Decimal {
	q, _ := amount.Mul(decimal.NewFromInt(int64(rate))).QuoRem(decimal.NewFromInt(1000), 0)
	return q
}
