// Package mocks provides function-field fakes of the SDK's collaborator interfaces.
package mocks

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"

	rangeorders "github.com/kaifufi/range-orders-sdk-go"
	"github.com/kaifufi/range-orders-sdk-go/chain"
)

var errNotImplemented = errors.New("mock: not implemented")

// Backend is a chain.Backend built from function fields
type Backend struct {
	CallContractFn    func(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPriceFn func(ctx context.Context) (*big.Int, error)
	ChainIDFn         func(ctx context.Context) (*big.Int, error)

	mu     sync.Mutex
	calls  int
	closed bool
}

var _ chain.Backend = (*Backend)(nil)

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.CallContractFn == nil {
		return nil, errNotImplemented
	}
	return b.CallContractFn(ctx, msg, blockNumber)
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if b.SuggestGasPriceFn == nil {
		return nil, errNotImplemented
	}
	return b.SuggestGasPriceFn(ctx)
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	if b.ChainIDFn == nil {
		return nil, errNotImplemented
	}
	return b.ChainIDFn(ctx)
}

func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Calls returns how many eth_calls were made
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Closed reports whether Close was called
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// GasOracle is a rangeorders.GasOracle returning a settable sample
type GasOracle struct {
	mu     sync.Mutex
	sample *rangeorders.GasSample
}

var _ rangeorders.GasOracle = (*GasOracle)(nil)

func (o *GasOracle) Sample() *rangeorders.GasSample {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sample
}

// Set replaces the sample; nil makes the oracle unresolved
func (o *GasOracle) Set(sample *rangeorders.GasSample) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sample = sample
}

// EconomicsSource is a rangeorders.EconomicsSource built from a function field
type EconomicsSource struct {
	OrderEconomicsFn func(ctx context.Context, order rangeorders.OrderState) (*rangeorders.OrderDetails, error)
}

var _ rangeorders.EconomicsSource = (*EconomicsSource)(nil)

func (s *EconomicsSource) OrderEconomics(ctx context.Context, order rangeorders.OrderState) (*rangeorders.OrderDetails, error) {
	if s.OrderEconomicsFn == nil {
		return nil, errNotImplemented
	}
	return s.OrderEconomicsFn(ctx, order)
}
