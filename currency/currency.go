// Package currency provides exact amounts and prices tied to fungible assets.
//
// Raw magnitudes are kept as big.Int in the asset's smallest unit. Display values are
// derived through shopspring/decimal and never fed back into arithmetic.
package currency

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrCurrencyMismatch is the panic value for arithmetic across different assets
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrInvalidAmount is returned when an amount string cannot be parsed
	ErrInvalidAmount = errors.New("invalid amount")
)

// Currency identifies a fungible asset on a chain
type Currency struct {
	ChainID  int64
	Address  common.Address // zero for the native currency
	Decimals uint8
	Symbol   string
	Name     string
	IsNative bool
}

// NewNative creates the native currency of a chain
func NewNative(chainID int64, decimals uint8, symbol, name string) Currency {
	return Currency{
		ChainID:  chainID,
		Decimals: decimals,
		Symbol:   symbol,
		Name:     name,
		IsNative: true,
	}
}

// NewToken creates an ERC20 token currency
func NewToken(chainID int64, address string, decimals uint8, symbol, name string) Currency {
	return Currency{
		ChainID:  chainID,
		Address:  common.HexToAddress(address),
		Decimals: decimals,
		Symbol:   symbol,
		Name:     name,
	}
}

// Equals reports whether both values reference the same asset
func (c Currency) Equals(other Currency) bool {
	if c.ChainID != other.ChainID || c.IsNative != other.IsNative {
		return false
	}
	if c.IsNative {
		return true
	}
	return c.Address == other.Address
}

func (c Currency) String() string {
	if c.IsNative {
		return fmt.Sprintf("%s(native:%d)", c.Symbol, c.ChainID)
	}
	return fmt.Sprintf("%s(%s:%d)", c.Symbol, c.Address.Hex(), c.ChainID)
}

func mustMatch(a, b Currency) {
	if !a.Equals(b) {
		panic(fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a, b))
	}
}
