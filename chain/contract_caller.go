package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	defaultMaxTries       = 3
	defaultRetryInterval  = 250 * time.Millisecond
	defaultTokenCacheSize = 256
)

// ErrContractNotConfigured is returned when a call needs a contract address that was not set
var ErrContractNotConfigured = errors.New("contract address not configured")

// Backend is the subset of ethclient.Client used for read-only calls
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// CallerConfig holds the contract addresses and retry settings of a ContractCaller
type CallerConfig struct {
	RangeOrderAddr common.Address
	RouterAddr     common.Address
	MaxTries       uint
	RetryInterval  time.Duration
	TokenCacheSize int
}

// ContractCaller handles read-only contract interactions
type ContractCaller struct {
	client         Backend
	logger         *zap.Logger
	rangeOrderAddr common.Address
	routerAddr     common.Address
	maxTries       uint
	retryInterval  time.Duration
	tokenCache     *lru.Cache[common.Address, TokenMetadata]
}

// NewContractCaller dials rpcURL and creates a new ContractCaller instance
func NewContractCaller(rpcURL string, cfg CallerConfig, logger *zap.Logger) (*ContractCaller, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	cc, err := NewContractCallerWithBackend(client, cfg, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	return cc, nil
}

// NewContractCallerWithBackend creates a ContractCaller over an existing backend
func NewContractCallerWithBackend(client Backend, cfg CallerConfig, logger *zap.Logger) (*ContractCaller, error) {
	if client == nil {
		return nil, errors.New("backend is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = defaultMaxTries
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.TokenCacheSize <= 0 {
		cfg.TokenCacheSize = defaultTokenCacheSize
	}

	cache, err := lru.New[common.Address, TokenMetadata](cfg.TokenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cache: %w", err)
	}

	return &ContractCaller{
		client:         client,
		logger:         logger.Named("chain"),
		rangeOrderAddr: cfg.RangeOrderAddr,
		routerAddr:     cfg.RouterAddr,
		maxTries:       cfg.MaxTries,
		retryInterval:  cfg.RetryInterval,
		tokenCache:     cache,
	}, nil
}

// RangeOrderAddress returns the configured range order contract
func (cc *ContractCaller) RangeOrderAddress() common.Address {
	return cc.rangeOrderAddr
}

// RouterAddress returns the configured quote router
func (cc *ContractCaller) RouterAddress() common.Address {
	return cc.routerAddr
}

// ChainID returns the chain ID reported by the node
func (cc *ContractCaller) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := retry(ctx, cc, "chainId", func() (*big.Int, error) {
		return cc.client.ChainID(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	return id, nil
}

// SuggestGasPrice returns the node's suggested gas price in wei
func (cc *ContractCaller) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := retry(ctx, cc, "gasPrice", func() (*big.Int, error) {
		return cc.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return price, nil
}

// GetTokenMetadata reads decimals, symbol and name of an ERC20 token with caching.
// Tokens without string symbol or name getters come back with empty fields.
func (cc *ContractCaller) GetTokenMetadata(ctx context.Context, tokenAddr common.Address) (TokenMetadata, error) {
	if meta, ok := cc.tokenCache.Get(tokenAddr); ok {
		return meta, nil
	}

	var decimals uint8
	if err := cc.call(ctx, erc20ABI, tokenAddr, &decimals, "decimals"); err != nil {
		return TokenMetadata{}, fmt.Errorf("failed to get decimals for %s: %w", tokenAddr.Hex(), err)
	}

	meta := TokenMetadata{Address: tokenAddr, Decimals: decimals}
	if err := cc.call(ctx, erc20ABI, tokenAddr, &meta.Symbol, "symbol"); err != nil {
		cc.logger.Debug("Token has no readable symbol", zap.String("token", tokenAddr.Hex()), zap.Error(err))
	}
	if err := cc.call(ctx, erc20ABI, tokenAddr, &meta.Name, "name"); err != nil {
		cc.logger.Debug("Token has no readable name", zap.String("token", tokenAddr.Hex()), zap.Error(err))
	}

	cc.tokenCache.Add(tokenAddr, meta)
	return meta, nil
}

// GetTokenDecimals gets token decimals with caching
func (cc *ContractCaller) GetTokenDecimals(ctx context.Context, tokenAddr common.Address) (uint8, error) {
	meta, err := cc.GetTokenMetadata(ctx, tokenAddr)
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

// GetAmountsOut quotes amountIn along path on the configured router
func (cc *ContractCaller) GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if cc.routerAddr == (common.Address{}) {
		return nil, fmt.Errorf("router: %w", ErrContractNotConfigured)
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("quote path needs at least two tokens, got %d", len(path))
	}

	var amounts []*big.Int
	if err := cc.call(ctx, routerABI, cc.routerAddr, &amounts, "getAmountsOut", amountIn, path); err != nil {
		return nil, fmt.Errorf("failed to get amounts out: %w", err)
	}
	if len(amounts) != len(path) {
		return nil, fmt.Errorf("router returned %d amounts for a path of %d", len(amounts), len(path))
	}
	return amounts, nil
}

// GetMinReturn reads the guaranteed minimum return of a range order
func (cc *ContractCaller) GetMinReturn(ctx context.Context, params RangeOrderParams) (*big.Int, error) {
	if cc.rangeOrderAddr == (common.Address{}) {
		return nil, fmt.Errorf("range order: %w", ErrContractNotConfigured)
	}
	if params.TickThreshold == nil {
		params.TickThreshold = new(big.Int)
	}
	if params.AmountIn == nil {
		params.AmountIn = new(big.Int)
	}
	if params.MaxFeeAmount == nil {
		params.MaxFeeAmount = new(big.Int)
	}

	var minReturn *big.Int
	if err := cc.call(ctx, rangeOrderABI, cc.rangeOrderAddr, &minReturn, "getMinReturn", params); err != nil {
		return nil, fmt.Errorf("failed to get min return: %w", err)
	}
	return minReturn, nil
}

// call packs method, runs eth_call against to with retries and unpacks the single result into out
func (cc *ContractCaller) call(ctx context.Context, contractABI abi.ABI, to common.Address, out interface{}, method string, args ...interface{}) error {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := retry(ctx, cc, method, func() ([]byte, error) {
		return cc.client.CallContract(ctx, ethereum.CallMsg{
			To:   &to,
			Data: data,
		}, nil)
	})
	if err != nil {
		return err
	}

	if err := contractABI.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return nil
}

// Close closes the Ethereum client connection
func (cc *ContractCaller) Close() {
	if cc.client != nil {
		cc.client.Close()
	}
}

// retry runs op with exponential backoff. Reverts and cancellations are not retried.
func retry[T any](ctx context.Context, cc *ContractCaller, op string, fn func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cc.retryInterval
	policy.MaxInterval = cc.retryInterval * 10

	notify := func(err error, d time.Duration) {
		cc.logger.Debug("Retrying chain call", zap.String("op", op), zap.Error(err), zap.Duration("backoff", d))
	}

	operation := func() (T, error) {
		v, err := fn()
		if err != nil && isPermanent(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(cc.maxTries),
		backoff.WithNotify(notify))
}

func isPermanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dataErr rpc.DataError
	return errors.As(err, &dataErr)
}
