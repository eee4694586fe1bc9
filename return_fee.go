package rangeorders

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/kaifufi/range-orders-sdk-go/currency"
)

// ReturnAndFee holds the minimum return and the percentages deducted on the way there
type ReturnAndFee struct {
	MinimumReturn      *currency.Amount
	SlippagePercentage *decimal.Decimal
	FeePercentage      *decimal.Decimal
}

// CalculateReturnAndFee derives the minimum receivable amount for the chain family.
//
// On simple-routing chains the minimum is the nominal output and the percentages are
// unknown. On advanced-routing chains the percentages come from the handle and the
// minimum is minReturnRaw of the output currency; a nil minReturnRaw means the on-chain
// query has not produced a value and the minimum stays unknown.
func CalculateReturnAndFee(output *currency.Amount, chain ChainContext, handle RoutingHandle, minReturnRaw *big.Int) ReturnAndFee {
	if output == nil || chain == nil || handle == nil {
		return ReturnAndFee{}
	}

	switch chain.(type) {
	case SimpleRoutingChain:
		minReturn := currency.FromRawAmount(output.Currency(), output.Raw())
		return ReturnAndFee{MinimumReturn: &minReturn}
	case AdvancedRoutingChain:
		result := ReturnAndFee{
			SlippagePercentage: percentageFromBPS(handle.SlippageBPS()),
			FeePercentage:      percentageFromBPS(handle.FeeBPS()),
		}
		if minReturnRaw != nil {
			minReturn := currency.FromRawAmount(output.Currency(), minReturnRaw)
			result.MinimumReturn = &minReturn
		}
		return result
	default:
		return ReturnAndFee{}
	}
}

// MinimumReturnDisplay returns "<amount> <symbol>" with four significant digits
func (r ReturnAndFee) MinimumReturnDisplay() string {
	if r.MinimumReturn == nil {
		return UnknownDisplay
	}
	return r.MinimumReturn.ToSignificant(minimumReturnDigits) + " " + r.MinimumReturn.Currency().Symbol
}

// SlippageDisplay returns the slippage as "0.4%"
func (r ReturnAndFee) SlippageDisplay() string {
	return percentDisplay(r.SlippagePercentage)
}

// FeeDisplay returns the fee as "0.1%"
func (r ReturnAndFee) FeeDisplay() string {
	return percentDisplay(r.FeePercentage)
}

func percentDisplay(pct *decimal.Decimal) string {
	if pct == nil {
		return UnknownDisplay
	}
	return pct.String() + "%"
}
