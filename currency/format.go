package currency

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// toSignificant rounds half away from zero to n significant digits and trims trailing zeros
func toSignificant(d decimal.Decimal, n int) string {
	if n <= 0 {
		panic("significant digits must be positive")
	}
	if d.IsZero() {
		return "0"
	}
	// floor(log10(|d|)) from the coefficient length and exponent
	digits := len(new(big.Int).Abs(d.Coefficient()).String())
	magnitude := digits + int(d.Exponent()) - 1
	return d.Round(int32(n - 1 - magnitude)).String()
}
