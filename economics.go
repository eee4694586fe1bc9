package rangeorders

import (
	"math/big"

	"github.com/kaifufi/range-orders-sdk-go/currency"
)

// EconomicsInput is one snapshot of everything the calculators read
type EconomicsInput struct {
	Order        OrderState
	Chain        ChainContext
	Handle       RoutingHandle
	Gas          *GasSample
	NativePrice  *currency.Price
	MinReturnRaw *big.Int
}

// Calculator runs both calculators over a snapshot. It holds no state between calls.
type Calculator struct {
	Estimator GasOverheadEstimator
}

// NewCalculator creates a calculator with the given execution gas limit
func NewCalculator(executionGasLimit uint64) Calculator {
	return Calculator{Estimator: NewGasOverheadEstimator(executionGasLimit)}
}

// Calculate derives the order economics of a snapshot
func (c Calculator) Calculate(in EconomicsInput) OrderEconomics {
	overhead := c.Estimator.Estimate(GasOverheadInput{
		InputAmount:  in.Order.InputAmount,
		OutputAmount: in.Order.OutputAmount,
		Orientation:  in.Order.Orientation,
		Gas:          in.Gas,
		NativePrice:  in.NativePrice,
	})

	return OrderEconomics{
		GasOverhead:  overhead,
		ReturnAndFee: CalculateReturnAndFee(in.Order.OutputAmount, in.Chain, in.Handle, in.MinReturnRaw),
	}
}
