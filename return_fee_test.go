package rangeorders

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateReturnAndFeeAbsentInputs(t *testing.T) {
	output := mustAmount(t, testUSDC, "100")
	fees := FeeConstants{Slippage: 50, Fee: 20}

	tests := []struct {
		name   string
		result ReturnAndFee
	}{
		{"no output", CalculateReturnAndFee(nil, AdvancedRoutingChain{ID: ChainIDPolygon}, fees, big.NewInt(1))},
		{"no chain", CalculateReturnAndFee(output, nil, fees, big.NewInt(1))},
		{"no handle", CalculateReturnAndFee(output, AdvancedRoutingChain{ID: ChainIDPolygon}, nil, big.NewInt(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, tt.result.MinimumReturn)
			assert.Nil(t, tt.result.SlippagePercentage)
			assert.Nil(t, tt.result.FeePercentage)
			assert.Equal(t, UnknownDisplay, tt.result.MinimumReturnDisplay())
			assert.Equal(t, UnknownDisplay, tt.result.SlippageDisplay())
			assert.Equal(t, UnknownDisplay, tt.result.FeeDisplay())
		})
	}
}

func TestCalculateReturnAndFeeSimpleRouting(t *testing.T) {
	output := mustAmount(t, testUSDC, "100")

	got := CalculateReturnAndFee(output, SimpleRoutingChain{ID: ChainIDEthereum}, FeeConstants{Slippage: 50, Fee: 20}, big.NewInt(7))

	require.NotNil(t, got.MinimumReturn)
	assert.True(t, got.MinimumReturn.Currency().Equals(testUSDC))
	assert.Equal(t, 0, got.MinimumReturn.Raw().Cmp(output.Raw()))
	assert.Nil(t, got.SlippagePercentage)
	assert.Nil(t, got.FeePercentage)
	assert.Equal(t, "100 USDC", got.MinimumReturnDisplay())
	assert.Equal(t, UnknownDisplay, got.SlippageDisplay())
	assert.Equal(t, UnknownDisplay, got.FeeDisplay())
}

func TestCalculateReturnAndFeeAdvancedRouting(t *testing.T) {
	output := mustAmount(t, testUSDC, "100")

	got := CalculateReturnAndFee(output, AdvancedRoutingChain{ID: ChainIDPolygon}, FeeConstants{Slippage: 50, Fee: 20}, big.NewInt(99_300_000))

	require.NotNil(t, got.SlippagePercentage)
	require.NotNil(t, got.FeePercentage)
	assert.True(t, decimal.RequireFromString("0.5").Equal(*got.SlippagePercentage))
	assert.True(t, decimal.RequireFromString("0.2").Equal(*got.FeePercentage))
	assert.Equal(t, "0.5%", got.SlippageDisplay())
	assert.Equal(t, "0.2%", got.FeeDisplay())

	require.NotNil(t, got.MinimumReturn)
	assert.True(t, got.MinimumReturn.Currency().Equals(testUSDC))
	assert.Equal(t, "99.3 USDC", got.MinimumReturnDisplay())
}

func TestCalculateReturnAndFeeBasisPoints(t *testing.T) {
	output := mustAmount(t, testUSDC, "1")

	for _, bps := range []int64{0, 1, 10, 40, 125, 10_000} {
		got := CalculateReturnAndFee(output, AdvancedRoutingChain{ID: ChainIDBSC}, FeeConstants{Slippage: bps, Fee: bps}, nil)
		want := decimal.NewFromInt(bps).Div(decimal.NewFromInt(100))
		assert.True(t, want.Equal(*got.SlippagePercentage), "slippage for %d bps", bps)
		assert.True(t, want.Equal(*got.FeePercentage), "fee for %d bps", bps)
	}
}

func TestCalculateReturnAndFeePendingMinReturn(t *testing.T) {
	output := mustAmount(t, testUSDC, "100")

	got := CalculateReturnAndFee(output, AdvancedRoutingChain{ID: ChainIDPolygon}, FeeConstants{Slippage: 40, Fee: 10}, nil)

	assert.Nil(t, got.MinimumReturn)
	assert.Equal(t, UnknownDisplay, got.MinimumReturnDisplay())
	assert.Equal(t, "0.4%", got.SlippageDisplay())
	assert.Equal(t, "0.1%", got.FeeDisplay())
}

func TestCalculateReturnAndFeeZeroIsNotUnknown(t *testing.T) {
	output := mustAmount(t, testUSDC, "100")

	got := CalculateReturnAndFee(output, AdvancedRoutingChain{ID: ChainIDPolygon}, FeeConstants{}, big.NewInt(0))

	require.NotNil(t, got.MinimumReturn)
	assert.True(t, got.MinimumReturn.IsZero())
	assert.Equal(t, "0 USDC", got.MinimumReturnDisplay())
	assert.Equal(t, "0%", got.SlippageDisplay())
	assert.Equal(t, "0%", got.FeeDisplay())
}

func TestBranchSelectionIsStable(t *testing.T) {
	registry := DefaultChainRegistry()
	output := mustAmount(t, testUSDC, "100")

	for _, id := range []ChainID{ChainIDEthereum, ChainIDGoerli, ChainIDBSC, ChainIDPolygon, 424242} {
		first := CalculateReturnAndFee(output, ResolveChain(id, registry), FeeConstants{Slippage: 40, Fee: 10}, nil)
		for i := 0; i < 3; i++ {
			again := CalculateReturnAndFee(output, ResolveChain(id, registry), FeeConstants{Slippage: 40, Fee: 10}, nil)
			assert.Equal(t, first.MinimumReturnDisplay(), again.MinimumReturnDisplay())
			assert.Equal(t, first.SlippageDisplay(), again.SlippageDisplay())
		}
	}
}

func TestResolveChain(t *testing.T) {
	assert.Equal(t, SimpleRoutingChain{ID: ChainIDEthereum}, ResolveChain(ChainIDEthereum, nil))
	assert.Equal(t, SimpleRoutingChain{ID: ChainIDSepolia}, ResolveChain(ChainIDSepolia, nil))
	assert.Equal(t, AdvancedRoutingChain{ID: ChainIDPolygon}, ResolveChain(ChainIDPolygon, nil))

	everything := ChainClassifierFunc(func(ChainID) bool { return true })
	assert.True(t, ResolveChain(ChainIDPolygon, everything).UsesSimpleRouting())
}

func TestOrderStateRawOutput(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"", 0},
		{"  ", 0},
		{"0", 0},
		{"12345", 12345},
		{"not a number", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OrderState{RawOutputAmount: tt.raw}.RawOutput().Int64(), tt.raw)
	}
}
