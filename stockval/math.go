// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package stockval

import (
	"fmt"
	"strconv"

	"github.com/ericlagergren/decimal"
)

// Returns a new decimal containing the delta percentage value.
func CalculateDeltaPercentage(baseValue, currentValue *decimal.Big) *decimal.Big {
	percentage := new(decimal.Big)
	// Check for non-zero, see https://github.com/ericlagergren/decimal/pull/157
	if baseValue.Sign() != 0 {
		percentage.Quo(currentValue, baseValue)
		percentage.Sub(percentage, decimal.New(1, 0))
		percentage.Mul(percentage, decimal.New(100, 0))
	}
	return percentage
}

// RoundPrice rounds price z to two digits after decimal point and returns z.
func RoundPrice(z *decimal.Big) *decimal.Big {
	// Call Quantize twice, otherwise one digit may be missing, see https://github.com/ericlagergren/decimal/issues/151
	return z.Quantize(2).Quantize(2)
}

// Convert float to string and then to decimal.
// The builtin conversion from float64 is exact, which is not what we want for prices.
func ConvertFloatToDecimal(v float64, bitSize int) *decimal.Big {
	d, _ := new(decimal.Big).SetString(strconv.FormatFloat(v, 'f', -1, bitSize))
	return d
}

func IsGreenQuote(percentage *decimal.Big) bool {
	return percentage != nil && !percentage.Signbit()
}

// FormatPrice formats a price with two digits, or "-" if missing.
func FormatPrice(p *decimal.Big) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", RoundPrice(new(decimal.Big).Copy(p)))
}

// FormatPercent formats a percentage with sign, e.g. "+1.25%".
func FormatPercent(p *decimal.Big) string {
	if p == nil {
		return "0.00%"
	}
	s := fmt.Sprintf("%.2f%%", RoundPrice(new(decimal.Big).Copy(p)))
	if IsGreenQuote(p) {
		return "+" + s
	}
	return s
}

// FormatNumber abbreviates large volumes, e.g. 1.5M or 12.3K.
func FormatNumber(n float64) string {
	switch {
	case n >= 1000000:
		return strconv.FormatFloat(n/1000000, 'f', 1, 64) + "M"
	case n >= 1000:
		return strconv.FormatFloat(n/1000, 'f', 1, 64) + "K"
	default:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
}
