package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testToken      = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	testRouter     = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	testRangeOrder = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

type revertError struct{}

func (revertError) Error() string          { return "execution reverted" }
func (revertError) ErrorData() interface{} { return "0x" }

// fakeBackend decodes calldata against the known ABIs and hands it to handle
type fakeBackend struct {
	mu       sync.Mutex
	calls    map[string]int
	handle   func(to common.Address, method *abi.Method, args []interface{}) ([]byte, error)
	gasCalls int
	gas      func(n int) (*big.Int, error)
	closed   bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int)}
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	var method *abi.Method
	for _, candidate := range []abi.ABI{erc20ABI, routerABI, rangeOrderABI} {
		if m, err := candidate.MethodById(msg.Data[:4]); err == nil {
			method = m
			break
		}
	}
	if method == nil {
		return nil, errors.New("unknown selector")
	}

	f.mu.Lock()
	f.calls[method.Name]++
	f.mu.Unlock()

	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	return f.handle(*msg.To, method, args)
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	f.gasCalls++
	n := f.gasCalls
	f.mu.Unlock()
	return f.gas(n)
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(137), nil
}

func (f *fakeBackend) Close() {
	f.closed = true
}

func (f *fakeBackend) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func newTestCaller(t *testing.T, backend *fakeBackend) *ContractCaller {
	t.Helper()
	cc, err := NewContractCallerWithBackend(backend, CallerConfig{
		RangeOrderAddr: testRangeOrder,
		RouterAddr:     testRouter,
		RetryInterval:  time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return cc
}

func TestNewContractCallerWithBackendRequiresBackend(t *testing.T) {
	_, err := NewContractCallerWithBackend(nil, CallerConfig{}, nil)
	assert.Error(t, err)
}

func TestGetTokenMetadata(t *testing.T) {
	backend := newFakeBackend()
	backend.handle = func(to common.Address, method *abi.Method, _ []interface{}) ([]byte, error) {
		assert.Equal(t, testToken, to)
		switch method.Name {
		case "decimals":
			return method.Outputs.Pack(uint8(6))
		case "symbol":
			return method.Outputs.Pack("USDC")
		default:
			return method.Outputs.Pack("USD Coin")
		}
	}
	cc := newTestCaller(t, backend)

	meta, err := cc.GetTokenMetadata(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, TokenMetadata{Address: testToken, Decimals: 6, Symbol: "USDC", Name: "USD Coin"}, meta)

	decimals, err := cc.GetTokenDecimals(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)

	assert.Equal(t, 1, backend.callCount("decimals"))
	assert.Equal(t, 1, backend.callCount("symbol"))
}

func TestGetTokenMetadataWithoutSymbol(t *testing.T) {
	backend := newFakeBackend()
	backend.handle = func(_ common.Address, method *abi.Method, _ []interface{}) ([]byte, error) {
		if method.Name == "decimals" {
			return method.Outputs.Pack(uint8(18))
		}
		return nil, revertError{}
	}
	cc := newTestCaller(t, backend)

	meta, err := cc.GetTokenMetadata(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, uint8(18), meta.Decimals)
	assert.Empty(t, meta.Symbol)
	assert.Empty(t, meta.Name)
	assert.Equal(t, 1, backend.callCount("symbol"))
}

func TestGetTokenMetadataNotAToken(t *testing.T) {
	backend := newFakeBackend()
	backend.handle = func(common.Address, *abi.Method, []interface{}) ([]byte, error) {
		return []byte{}, nil
	}
	cc := newTestCaller(t, backend)

	_, err := cc.GetTokenMetadata(context.Background(), testToken)
	assert.Error(t, err)
}

func TestGetMinReturn(t *testing.T) {
	pool := common.HexToAddress("0x2222222222222222222222222222222222222222")
	receiver := common.HexToAddress("0x3333333333333333333333333333333333333333")

	backend := newFakeBackend()
	backend.handle = func(to common.Address, method *abi.Method, args []interface{}) ([]byte, error) {
		assert.Equal(t, testRangeOrder, to)
		require.Equal(t, "getMinReturn", method.Name)

		params := *abi.ConvertType(args[0], new(RangeOrderParams)).(*RangeOrderParams)
		assert.Equal(t, pool, params.Pool)
		assert.True(t, params.ZeroForOne)
		assert.Equal(t, int64(-887220), params.TickThreshold.Int64())
		assert.Equal(t, int64(1_000_000), params.AmountIn.Int64())
		assert.Equal(t, receiver, params.Receiver)
		assert.Equal(t, int64(0), params.MaxFeeAmount.Int64())

		return method.Outputs.Pack(big.NewInt(996_000))
	}
	cc := newTestCaller(t, backend)

	got, err := cc.GetMinReturn(context.Background(), RangeOrderParams{
		Pool:          pool,
		ZeroForOne:    true,
		TickThreshold: big.NewInt(-887220),
		AmountIn:      big.NewInt(1_000_000),
		Receiver:      receiver,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(996_000), got.Int64())
}

func TestGetMinReturnRevertIsNotRetried(t *testing.T) {
	backend := newFakeBackend()
	backend.handle = func(common.Address, *abi.Method, []interface{}) ([]byte, error) {
		return nil, revertError{}
	}
	cc := newTestCaller(t, backend)

	_, err := cc.GetMinReturn(context.Background(), RangeOrderParams{})
	require.Error(t, err)
	assert.ErrorAs(t, err, new(revertError))
	assert.Equal(t, 1, backend.callCount("getMinReturn"))
}

func TestContractNotConfigured(t *testing.T) {
	cc, err := NewContractCallerWithBackend(newFakeBackend(), CallerConfig{}, nil)
	require.NoError(t, err)

	_, err = cc.GetMinReturn(context.Background(), RangeOrderParams{})
	assert.ErrorIs(t, err, ErrContractNotConfigured)

	_, err = cc.GetAmountsOut(context.Background(), big.NewInt(1), []common.Address{testToken, testRouter})
	assert.ErrorIs(t, err, ErrContractNotConfigured)
}

func TestGetAmountsOut(t *testing.T) {
	wrapped := common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")

	backend := newFakeBackend()
	backend.handle = func(to common.Address, method *abi.Method, args []interface{}) ([]byte, error) {
		assert.Equal(t, testRouter, to)
		amountIn := args[0].(*big.Int)
		path := args[1].([]common.Address)
		assert.Equal(t, []common.Address{wrapped, testToken}, path)
		return method.Outputs.Pack([]*big.Int{amountIn, big.NewInt(850_000)})
	}
	cc := newTestCaller(t, backend)

	amounts, err := cc.GetAmountsOut(context.Background(), big.NewInt(1e18), []common.Address{wrapped, testToken})
	require.NoError(t, err)
	require.Len(t, amounts, 2)
	assert.Equal(t, int64(850_000), amounts[1].Int64())

	_, err = cc.GetAmountsOut(context.Background(), big.NewInt(1), []common.Address{wrapped})
	assert.Error(t, err)
}

func TestSuggestGasPriceRetriesTransientErrors(t *testing.T) {
	backend := newFakeBackend()
	backend.gas = func(n int) (*big.Int, error) {
		if n < 3 {
			return nil, errors.New("connection reset")
		}
		return big.NewInt(30_000_000_000), nil
	}
	cc := newTestCaller(t, backend)

	price, err := cc.SuggestGasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(30_000_000_000), price.Int64())
	assert.Equal(t, 3, backend.gasCalls)
}

func TestSuggestGasPriceGivesUp(t *testing.T) {
	backend := newFakeBackend()
	backend.gas = func(int) (*big.Int, error) {
		return nil, errors.New("connection reset")
	}
	cc := newTestCaller(t, backend)

	_, err := cc.SuggestGasPrice(context.Background())
	require.Error(t, err)
	assert.Equal(t, defaultMaxTries, backend.gasCalls)
}

func TestChainIDAndClose(t *testing.T) {
	backend := newFakeBackend()
	cc := newTestCaller(t, backend)

	id, err := cc.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(137), id.Int64())

	cc.Close()
	assert.True(t, backend.closed)
}
