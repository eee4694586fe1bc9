package rangeorders

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/kaifufi/range-orders-sdk-go/currency"
)

const (
	// UnknownDisplay is shown for values that cannot be computed yet
	UnknownDisplay = "-"
	// NeverExecutesDisplay is shown when gas costs make every reachable price unprofitable
	NeverExecutesDisplay = "never executes"

	gweiDecimals         = 9
	gasPriceUnit         = "GWEI"
	executionPriceDigits = 6
	minimumReturnDigits  = 4
)

// ExecutionPriceState tells the three outcomes of a real execution price apart
type ExecutionPriceState int

const (
	ExecutionPriceUnknown ExecutionPriceState = iota
	ExecutionPriceNeverExecutes
	ExecutionPriceKnown
)

// ExecutionPrice is the gas-adjusted break-even price, already in the requested orientation
type ExecutionPrice struct {
	state ExecutionPriceState
	price currency.Price
}

func neverExecutes() ExecutionPrice {
	return ExecutionPrice{state: ExecutionPriceNeverExecutes}
}

func knownExecutionPrice(p currency.Price) ExecutionPrice {
	return ExecutionPrice{state: ExecutionPriceKnown, price: p}
}

func (p ExecutionPrice) State() ExecutionPriceState { return p.state }

func (p ExecutionPrice) IsUnknown() bool { return p.state == ExecutionPriceUnknown }

func (p ExecutionPrice) NeverExecutes() bool { return p.state == ExecutionPriceNeverExecutes }

// Price returns the numeric price when the state is ExecutionPriceKnown
func (p ExecutionPrice) Price() (currency.Price, bool) {
	return p.price, p.state == ExecutionPriceKnown
}

// String returns "-", "never executes" or the price with six significant digits
func (p ExecutionPrice) String() string {
	switch p.state {
	case ExecutionPriceNeverExecutes:
		return NeverExecutesDisplay
	case ExecutionPriceKnown:
		return p.price.ToSignificant(executionPriceDigits)
	default:
		return UnknownDisplay
	}
}

// WithSymbols returns "1 A = X B", "never executes", or "" when unknown
func (p ExecutionPrice) WithSymbols() string {
	switch p.state {
	case ExecutionPriceNeverExecutes:
		return NeverExecutesDisplay
	case ExecutionPriceKnown:
		return "1 " + p.price.BaseCurrency().Symbol + " = " + p.String() + " " + p.price.QuoteCurrency().Symbol
	default:
		return ""
	}
}

// GasOverhead is the estimator output
type GasOverhead struct {
	RealExecutionPrice ExecutionPrice
	GasPrice           *big.Int // wei, nil when unknown
}

// RealExecutionPriceDisplay returns the price without symbols
func (g GasOverhead) RealExecutionPriceDisplay() string {
	return g.RealExecutionPrice.String()
}

// GasPriceDisplay returns the gas price in whole gwei, e.g. "30 GWEI"
func (g GasOverhead) GasPriceDisplay() string {
	if g.GasPrice == nil {
		return UnknownDisplay
	}
	gwei := decimal.NewFromBigInt(g.GasPrice, -gweiDecimals)
	return gwei.StringFixed(0) + " " + gasPriceUnit
}

// GasOverheadInput is everything the estimator reads
type GasOverheadInput struct {
	InputAmount  *currency.Amount
	OutputAmount *currency.Amount
	Orientation  RateOrientation
	Gas          *GasSample
	// NativePrice quotes the native currency in the output currency. Not needed
	// when the output is the native currency itself.
	NativePrice *currency.Price
}

// GasOverheadEstimator derives the gas-adjusted real execution price of an order
type GasOverheadEstimator struct {
	ExecutionGasLimit uint64
}

// NewGasOverheadEstimator creates an estimator. A zero limit uses DefaultExecutionGasLimit.
func NewGasOverheadEstimator(executionGasLimit uint64) GasOverheadEstimator {
	if executionGasLimit == 0 {
		executionGasLimit = DefaultExecutionGasLimit
	}
	return GasOverheadEstimator{ExecutionGasLimit: executionGasLimit}
}

// Estimate computes the real execution price. Missing inputs yield unknown fields, never errors.
func (e GasOverheadEstimator) Estimate(in GasOverheadInput) GasOverhead {
	if in.InputAmount == nil || in.OutputAmount == nil {
		return GasOverhead{}
	}
	if in.Gas == nil || in.Gas.Price == nil {
		return GasOverhead{}
	}

	result := GasOverhead{GasPrice: new(big.Int).Set(in.Gas.Price)}
	input, output := *in.InputAmount, *in.OutputAmount
	if input.Sign() <= 0 || output.Sign() <= 0 {
		return result
	}

	gasCost, ok := e.gasCostInOutput(output.Currency(), in.Gas.Price, in.NativePrice)
	if !ok {
		return result
	}

	if !gasCost.LessThan(output) {
		result.RealExecutionPrice = neverExecutes()
		return result
	}

	price := breakEvenPrice(input, output, gasCost)
	if in.Orientation == RateOutputPerInput {
		price = price.Invert()
	}
	result.RealExecutionPrice = knownExecutionPrice(price)
	return result
}

// gasCostInOutput prices ExecutionGasLimit * gasPrice wei in the output currency
func (e GasOverheadEstimator) gasCostInOutput(output currency.Currency, gasPrice *big.Int, nativePrice *currency.Price) (currency.Amount, bool) {
	wei := new(big.Int).Mul(new(big.Int).SetUint64(e.ExecutionGasLimit), gasPrice)
	if output.IsNative {
		return currency.FromRawAmount(output, wei), true
	}
	if nativePrice == nil || !nativePrice.BaseCurrency().IsNative || !nativePrice.QuoteCurrency().Equals(output) {
		return currency.Amount{}, false
	}
	native := currency.FromRawAmount(nativePrice.BaseCurrency(), wei)
	return nativePrice.Quote(native), true
}

// breakEvenPrice inflates the nominal rate O/I by O/(O-G): O² / (I·(O-G)) output per input
func breakEvenPrice(input, output, gasCost currency.Amount) currency.Price {
	o := output.Raw()
	numerator := new(big.Int).Mul(o, o)
	denominator := new(big.Int).Mul(input.Raw(), output.Sub(gasCost).Raw())
	return currency.NewPrice(input.Currency(), output.Currency(), denominator, numerator)
}
