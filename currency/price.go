package currency

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// divisionPrecision is the number of decimal places kept when a price is rendered
const divisionPrecision = 36

// Price is the ratio of quote raw units per base raw units
type Price struct {
	base        Currency
	quote       Currency
	numerator   *big.Int // quote raw
	denominator *big.Int // base raw
}

// NewPrice creates a price where denominator base units trade for numerator quote units
func NewPrice(base, quote Currency, denominator, numerator *big.Int) Price {
	if denominator == nil || denominator.Sign() == 0 {
		panic(fmt.Sprintf("price %s/%s has zero denominator", quote.Symbol, base.Symbol))
	}
	num := new(big.Int)
	if numerator != nil {
		num.Set(numerator)
	}
	return Price{
		base:        base,
		quote:       quote,
		numerator:   num,
		denominator: new(big.Int).Set(denominator),
	}
}

// PriceFromAmounts creates the price at which base trades for quote
func PriceFromAmounts(base, quote Amount) Price {
	return NewPrice(base.currency, quote.currency, base.rawOrZero(), quote.rawOrZero())
}

func (p Price) BaseCurrency() Currency  { return p.base }
func (p Price) QuoteCurrency() Currency { return p.quote }

// Numerator returns a copy of the quote side of the fraction
func (p Price) Numerator() *big.Int { return new(big.Int).Set(p.numerator) }

// Denominator returns a copy of the base side of the fraction
func (p Price) Denominator() *big.Int { return new(big.Int).Set(p.denominator) }

// Invert swaps base and quote
func (p Price) Invert() Price {
	return NewPrice(p.quote, p.base, p.numerator, p.denominator)
}

// Quote converts an amount of the base currency into the quote currency, rounding down.
// Panics when the amount is not denominated in the base currency.
func (p Price) Quote(a Amount) Amount {
	mustMatch(p.base, a.currency)
	raw := new(big.Int).Mul(a.rawOrZero(), p.numerator)
	raw.Quo(raw, p.denominator)
	return Amount{currency: p.quote, raw: raw}
}

// Decimal returns whole quote units per whole base unit
func (p Price) Decimal() decimal.Decimal {
	shift := int32(p.base.Decimals) - int32(p.quote.Decimals)
	num := decimal.NewFromBigInt(p.numerator, shift)
	return num.DivRound(decimal.NewFromBigInt(p.denominator, 0), divisionPrecision)
}

// ToSignificant formats the decimal-adjusted price with n significant digits
func (p Price) ToSignificant(n int) string {
	return toSignificant(p.Decimal(), n)
}

func (p Price) String() string {
	return fmt.Sprintf("%s %s/%s", p.Decimal().String(), p.quote.Symbol, p.base.Symbol)
}
