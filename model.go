package rangeorders

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/kaifufi/range-orders-sdk-go/currency"
)

// RateOrientation selects how the execution rate is quoted
type RateOrientation int

const (
	// RateInputPerOutput quotes "1 <input> = X <output>" (MUL)
	RateInputPerOutput RateOrientation = iota
	// RateOutputPerInput quotes "1 <output> = X <input>" (DIV)
	RateOutputPerInput
)

const (
	RateMul = RateInputPerOutput
	RateDiv = RateOutputPerInput
)

func (r RateOrientation) String() string {
	if r == RateOutputPerInput {
		return "DIV"
	}
	return "MUL"
}

// ChainClassifier decides whether a chain uses simple routing
type ChainClassifier interface {
	UsesSimpleRouting(id ChainID) bool
}

// ChainClassifierFunc adapts a predicate to ChainClassifier
type ChainClassifierFunc func(id ChainID) bool

func (f ChainClassifierFunc) UsesSimpleRouting(id ChainID) bool {
	return f(id)
}

// ChainContext is either a SimpleRoutingChain or an AdvancedRoutingChain
type ChainContext interface {
	ChainID() ChainID
	UsesSimpleRouting() bool
	chainContext()
}

// SimpleRoutingChain settles fee and slippage at execution time; nothing can be simulated client side
type SimpleRoutingChain struct {
	ID ChainID
}

func (c SimpleRoutingChain) ChainID() ChainID        { return c.ID }
func (c SimpleRoutingChain) UsesSimpleRouting() bool { return true }
func (SimpleRoutingChain) chainContext()             {}

// AdvancedRoutingChain routes through tick-threshold range orders with fixed fee constants
type AdvancedRoutingChain struct {
	ID ChainID
}

func (c AdvancedRoutingChain) ChainID() ChainID        { return c.ID }
func (c AdvancedRoutingChain) UsesSimpleRouting() bool { return false }
func (AdvancedRoutingChain) chainContext()             {}

// ResolveChain classifies a chain once
func ResolveChain(id ChainID, classifier ChainClassifier) ChainContext {
	if classifier == nil {
		classifier = ChainClassifierFunc(IsEthereumChain)
	}
	if classifier.UsesSimpleRouting(id) {
		return SimpleRoutingChain{ID: id}
	}
	return AdvancedRoutingChain{ID: id}
}

// GasSample is a gas price in wei and the moment it was read
type GasSample struct {
	Price     *big.Int
	SampledAt time.Time
}

// GasOracle exposes the latest gas sample. Sample never blocks and returns nil while unresolved.
type GasOracle interface {
	Sample() *GasSample
}

// RoutingHandle exposes the fee constants of advanced routing
type RoutingHandle interface {
	SlippageBPS() int64
	FeeBPS() int64
}

// FeeConstants is a fixed RoutingHandle
type FeeConstants struct {
	Slippage int64
	Fee      int64
}

func (f FeeConstants) SlippageBPS() int64 { return f.Slippage }
func (f FeeConstants) FeeBPS() int64      { return f.Fee }

// RangeOrderParams keys the on-chain minimum return query
type RangeOrderParams struct {
	Pool          common.Address
	ZeroForOne    bool
	TickThreshold int32
	AmountIn      *big.Int
	Receiver      common.Address
	MaxFeeAmount  *big.Int
}

// MinReturnQuerier reads the guaranteed minimum return of a range order
type MinReturnQuerier interface {
	GetMinReturn(ctx context.Context, params RangeOrderParams) (*big.Int, error)
}

// NativePriceSource prices the chain's native currency in another currency
type NativePriceSource interface {
	NativePrice(ctx context.Context, quote currency.Currency) (*currency.Price, error)
}

// OrderState is the parsed order supplied by the order-state provider
type OrderState struct {
	InputAmount     *currency.Amount
	OutputAmount    *currency.Amount
	RawOutputAmount string // string-encoded integer, "0" when absent
	Orientation     RateOrientation
	RangeOrder      *RangeOrderParams
}

// RawOutput parses RawOutputAmount, treating absent or malformed values as zero
func (o OrderState) RawOutput() *big.Int {
	raw := strings.TrimSpace(o.RawOutputAmount)
	if raw == "" {
		raw = "0"
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return new(big.Int)
	}
	return value
}

// OrderEconomics holds the display-ready figures of an order. Every field may be unknown.
type OrderEconomics struct {
	GasOverhead
	ReturnAndFee
}

// DetailRow is one labeled value of the order details
type DetailRow struct {
	Label string
	Value string
}

// OrderDetails is the economics of an order plus its display rows
type OrderDetails struct {
	Chain     ChainContext
	Economics OrderEconomics
	Rows      []DetailRow
}

// EconomicsSource computes order details
type EconomicsSource interface {
	OrderEconomics(ctx context.Context, order OrderState) (*OrderDetails, error)
}

func percentageFromBPS(bps int64) *decimal.Decimal {
	pct := decimal.NewFromInt(bps).Div(decimal.NewFromInt(100))
	return &pct
}
