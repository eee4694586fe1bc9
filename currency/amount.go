package currency

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an immutable raw magnitude of a currency
type Amount struct {
	currency Currency
	raw      *big.Int
}

// FromRawAmount creates an amount from a raw magnitude in the smallest unit
func FromRawAmount(c Currency, raw *big.Int) Amount {
	value := new(big.Int)
	if raw != nil {
		value.Set(raw)
	}
	return Amount{currency: c, raw: value}
}

// FromRawString creates an amount from a string-encoded integer. An empty string is zero.
func FromRawString(c Currency, raw string) (Amount, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "0"
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: raw amount %q is not an integer", ErrInvalidAmount, raw)
	}
	return Amount{currency: c, raw: value}, nil
}

// ParseAmount converts a human readable amount ("1.5") into raw units.
// Digits beyond the currency precision are truncated.
func ParseAmount(c Currency, value string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, value)
	}
	raw := d.Shift(int32(c.Decimals)).Truncate(0).BigInt()
	return Amount{currency: c, raw: raw}, nil
}

// Currency returns the asset of the amount
func (a Amount) Currency() Currency {
	return a.currency
}

// Raw returns a copy of the raw magnitude
func (a Amount) Raw() *big.Int {
	return new(big.Int).Set(a.rawOrZero())
}

func (a Amount) rawOrZero() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return a.raw
}

// Add returns a + b. Panics when the currencies differ.
func (a Amount) Add(b Amount) Amount {
	mustMatch(a.currency, b.currency)
	return Amount{currency: a.currency, raw: new(big.Int).Add(a.rawOrZero(), b.rawOrZero())}
}

// Sub returns a - b. Panics when the currencies differ.
func (a Amount) Sub(b Amount) Amount {
	mustMatch(a.currency, b.currency)
	return Amount{currency: a.currency, raw: new(big.Int).Sub(a.rawOrZero(), b.rawOrZero())}
}

// Cmp compares raw magnitudes. Panics when the currencies differ.
func (a Amount) Cmp(b Amount) int {
	mustMatch(a.currency, b.currency)
	return a.rawOrZero().Cmp(b.rawOrZero())
}

func (a Amount) GreaterThan(b Amount) bool { return a.Cmp(b) > 0 }

func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }

// IsZero reports whether the raw magnitude is zero
func (a Amount) IsZero() bool {
	return a.rawOrZero().Sign() == 0
}

// Sign returns -1, 0 or +1
func (a Amount) Sign() int {
	return a.rawOrZero().Sign()
}

// Equal reports same asset and same raw magnitude
func (a Amount) Equal(b Amount) bool {
	return a.currency.Equals(b.currency) && a.rawOrZero().Cmp(b.rawOrZero()) == 0
}

// Decimal returns the amount in whole units
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.rawOrZero(), -int32(a.currency.Decimals))
}

// ToSignificant formats the amount with n significant digits
func (a Amount) ToSignificant(n int) string {
	return toSignificant(a.Decimal(), n)
}

// ToFixed formats the amount with a fixed number of decimal places, rounding half up
func (a Amount) ToFixed(places int32) string {
	return a.Decimal().StringFixed(places)
}

func (a Amount) String() string {
	return a.Decimal().String() + " " + a.currency.Symbol
}
