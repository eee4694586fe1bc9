package rangeorders

const (
	LabelFee                = "Fee"
	LabelSlippage           = "Slippage"
	LabelGasPrice           = "Gas Price"
	LabelRealExecutionPrice = "Real Execution Price"
	LabelMinimumReceived    = "Minimum Received"
)

// BuildRows lays out the economics the way the selected chain family shows them.
// Advanced chains show fee and slippage, simple chains show gas price and real
// execution price, and both end with the minimum received. No rows without a chain.
func BuildRows(chainCtx ChainContext, e OrderEconomics) []DetailRow {
	if chainCtx == nil {
		return nil
	}

	var rows []DetailRow
	if chainCtx.UsesSimpleRouting() {
		realPrice := e.RealExecutionPrice.WithSymbols()
		if realPrice == "" {
			realPrice = UnknownDisplay
		}
		rows = append(rows,
			DetailRow{Label: LabelGasPrice, Value: e.GasPriceDisplay()},
			DetailRow{Label: LabelRealExecutionPrice, Value: realPrice},
		)
	} else {
		rows = append(rows,
			DetailRow{Label: LabelFee, Value: e.FeeDisplay()},
			DetailRow{Label: LabelSlippage, Value: e.SlippageDisplay()},
		)
	}

	return append(rows, DetailRow{Label: LabelMinimumReceived, Value: e.MinimumReturnDisplay()})
}
