package rangeorders

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kaifufi/range-orders-sdk-go/chain"
	"github.com/kaifufi/range-orders-sdk-go/currency"
)

const (
	DefaultMinReturnTimeout = 5 * time.Second
	DefaultNativePriceTTL   = time.Minute
	DefaultGasSampleMaxAge  = 2 * time.Minute

	nativePriceCacheSize = 128
)

// ClientConfig holds configuration for creating a Client
type ClientConfig struct {
	ChainID ChainID
	RPCURL  string
	// Backend replaces the RPC connection dialed from RPCURL
	Backend chain.Backend
	// GasOracle replaces the built-in gas price poller
	GasOracle         GasOracle
	GasStationURL     string
	WSURL             string
	RangeOrderAddr    string
	RouterAddr        string
	ExecutionGasLimit uint64
	SlippageBPS       int64
	FeeBPS            int64
	GasPollInterval   time.Duration
	GasSampleMaxAge   time.Duration
	MinReturnTimeout  time.Duration
	NativePriceTTL    time.Duration
	Registry          *ChainRegistry
	Logger            *zap.Logger
	Registerer        prometheus.Registerer
}

// Client computes order economics against a live chain
type Client struct {
	chainInfo        ChainInfo
	chainCtx         ChainContext
	fees             FeeConstants
	contractCaller   *chain.ContractCaller
	gasOracle        GasOracle
	poller           *chain.GasOracle
	headWatcher      *HeadWatcher
	calculator       Calculator
	minReturnTimeout time.Duration
	nativePrices     *expirable.LRU[common.Address, currency.Price]
	metrics          *Metrics
	logger           *zap.Logger

	runMu   sync.Mutex
	runCtx  context.Context
	stopRun context.CancelFunc
}

// NewClient creates a new range orders client
func NewClient(config ClientConfig) (*Client, error) {
	registry := config.Registry
	if registry == nil {
		registry = DefaultChainRegistry()
	}
	info, ok := registry.Lookup(config.ChainID)
	if !ok {
		return nil, fmt.Errorf("%w: chain_id must be one of %v, got %d", ErrUnsupportedChain, registry.SupportedChainIDs(), config.ChainID)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("chain", info.Name))

	// Use registry addresses if not provided
	if config.RangeOrderAddr == "" {
		config.RangeOrderAddr = info.RangeOrder
	}
	if config.RouterAddr == "" {
		config.RouterAddr = info.Router
	}
	for name, addr := range map[string]string{"range_order": config.RangeOrderAddr, "router": config.RouterAddr} {
		if addr != "" && !common.IsHexAddress(addr) {
			return nil, &InvalidParamError{Message: fmt.Sprintf("%s address %q is not a hex address", name, addr)}
		}
	}

	// Set defaults
	if config.MinReturnTimeout == 0 {
		config.MinReturnTimeout = DefaultMinReturnTimeout
	}
	if config.NativePriceTTL == 0 {
		config.NativePriceTTL = DefaultNativePriceTTL
	}
	if config.GasSampleMaxAge == 0 {
		config.GasSampleMaxAge = DefaultGasSampleMaxAge
	}

	fees := info.Fees()
	if config.SlippageBPS != 0 {
		fees.Slippage = config.SlippageBPS
	}
	if config.FeeBPS != 0 {
		fees.Fee = config.FeeBPS
	}
	if fees.Slippage < 0 || fees.Fee < 0 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("basis points must not be negative, got slippage %d fee %d", fees.Slippage, fees.Fee)}
	}

	callerConfig := chain.CallerConfig{
		RangeOrderAddr: common.HexToAddress(config.RangeOrderAddr),
		RouterAddr:     common.HexToAddress(config.RouterAddr),
	}

	var contractCaller *chain.ContractCaller
	var err error
	if config.Backend != nil {
		contractCaller, err = chain.NewContractCallerWithBackend(config.Backend, callerConfig, logger)
	} else {
		contractCaller, err = chain.NewContractCaller(config.RPCURL, callerConfig, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create contract caller: %w", err)
	}

	metrics := NewMetrics(config.Registerer)

	c := &Client{
		chainInfo:        info,
		chainCtx:         ResolveChain(info.ID, registry),
		fees:             fees,
		contractCaller:   contractCaller,
		gasOracle:        config.GasOracle,
		calculator:       NewCalculator(config.ExecutionGasLimit),
		minReturnTimeout: config.MinReturnTimeout,
		nativePrices:     expirable.NewLRU[common.Address, currency.Price](nativePriceCacheSize, nil, config.NativePriceTTL),
		metrics:          metrics,
		logger:           logger,
	}

	if _, advanced := c.chainCtx.(AdvancedRoutingChain); advanced && callerConfig.RangeOrderAddr == (common.Address{}) {
		logger.Info("No range order contract configured, minimum return stays unknown")
	}

	if c.gasOracle == nil {
		var source chain.GasPriceSource = contractCaller
		if config.GasStationURL != "" {
			source = chain.FallbackSource{NewGasStationSource(config.GasStationURL, GasSpeedStandard), contractCaller}
		}
		c.poller = chain.NewGasOracle(source, chain.GasOracleConfig{
			PollInterval: config.GasPollInterval,
			MaxAge:       config.GasSampleMaxAge,
			Observer:     metrics.ObserveGasFetch,
		}, logger)
		c.gasOracle = pollerOracle{c.poller}

		if config.WSURL != "" {
			c.headWatcher = NewHeadWatcher(HeadWatcherConfig{
				Endpoint: config.WSURL,
				OnHead:   c.onHead,
				Logger:   logger,
			})
		}
	}

	return c, nil
}

// pollerOracle exposes a chain.GasOracle as a GasOracle
type pollerOracle struct {
	oracle *chain.GasOracle
}

func (p pollerOracle) Sample() *GasSample {
	s := p.oracle.Latest()
	if s == nil {
		return nil
	}
	return &GasSample{Price: s.Price, SampledAt: s.SampledAt}
}

// Start begins gas price polling and, when configured, the new-head subscription
func (c *Client) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.stopRun != nil {
		return nil
	}
	c.runCtx, c.stopRun = context.WithCancel(ctx)

	if c.poller != nil {
		c.poller.Start(c.runCtx)
	}
	if c.headWatcher != nil {
		if err := c.headWatcher.Connect(c.runCtx); err != nil {
			// Polling still covers gas prices
			c.logger.Warn("Failed to subscribe to new heads", zap.Error(err))
		}
	}
	return nil
}

func (c *Client) onHead(head BlockHeader) {
	c.runMu.Lock()
	ctx := c.runCtx
	c.runMu.Unlock()
	if ctx == nil {
		return
	}

	go func() {
		if err := c.poller.Refresh(ctx); err != nil && ctx.Err() == nil {
			c.logger.Debug("Failed to refresh gas price on new head", zap.Error(err))
		}
	}()
}

// Close closes the client and cleans up resources
func (c *Client) Close() {
	c.runMu.Lock()
	stop := c.stopRun
	c.stopRun, c.runCtx = nil, nil
	c.runMu.Unlock()

	if stop != nil {
		stop()
	}
	if c.headWatcher != nil {
		_ = c.headWatcher.Disconnect()
	}
	if c.poller != nil {
		c.poller.Stop()
	}
	if c.contractCaller != nil {
		c.contractCaller.Close()
	}
}

// Chain returns the resolved chain context
func (c *Client) Chain() ChainContext {
	return c.chainCtx
}

// ChainInfo returns the registry settings of the client's chain
func (c *Client) ChainInfo() ChainInfo {
	return c.chainInfo
}

// Fees returns the fee constants applied on advanced-routing chains
func (c *Client) Fees() RoutingHandle {
	return c.fees
}

// Sample returns the latest gas sample, or nil while none is available
func (c *Client) Sample() *GasSample {
	if c.gasOracle == nil {
		return nil
	}
	return c.gasOracle.Sample()
}

// NativeCurrency returns the chain's gas currency
func (c *Client) NativeCurrency() currency.Currency {
	return c.chainInfo.NativeCurrency()
}

// Currency builds a currency from its ERC20 metadata. The zero address is the native currency.
func (c *Client) Currency(ctx context.Context, addr common.Address) (currency.Currency, error) {
	if addr == (common.Address{}) {
		return c.NativeCurrency(), nil
	}

	meta, err := c.contractCaller.GetTokenMetadata(ctx, addr)
	if err != nil {
		return currency.Currency{}, &ChainCallError{Op: "token metadata", Err: err}
	}
	return currency.NewToken(int64(c.chainInfo.ID), addr.Hex(), meta.Decimals, meta.Symbol, meta.Name), nil
}

// NativePrice quotes one native unit in quote. Nil when quote is the native currency itself.
func (c *Client) NativePrice(ctx context.Context, quote currency.Currency) (*currency.Price, error) {
	native := c.NativeCurrency()
	if quote.IsNative {
		return nil, nil
	}

	oneNative := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(native.Decimals)), nil)
	wrapped := c.chainInfo.WrappedNativeAddress()
	if quote.Address == wrapped {
		oneQuote := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(quote.Decimals)), nil)
		price := currency.NewPrice(native, quote, oneNative, oneQuote)
		return &price, nil
	}

	if price, ok := c.nativePrices.Get(quote.Address); ok {
		return &price, nil
	}
	if c.contractCaller.RouterAddress() == (common.Address{}) {
		return nil, ErrNoQuoteRouter
	}

	amounts, err := c.contractCaller.GetAmountsOut(ctx, oneNative, []common.Address{wrapped, quote.Address})
	if err != nil {
		return nil, &ChainCallError{Op: "native price", Err: err}
	}
	out := amounts[len(amounts)-1]
	if out.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoLiquidity, quote.Symbol, native.Symbol)
	}

	price := currency.NewPrice(native, quote, oneNative, out)
	c.nativePrices.Add(quote.Address, price)
	return &price, nil
}

// GetMinReturn queries the range order contract for the guaranteed minimum return.
// The query is bounded by the client's MinReturnTimeout.
func (c *Client) GetMinReturn(ctx context.Context, params RangeOrderParams) (*big.Int, error) {
	if c.contractCaller.RangeOrderAddress() == (common.Address{}) {
		c.metrics.ObserveMinReturn(outcomeSkipped, 0)
		return nil, ErrNoRangeOrderContract
	}

	start := time.Now()
	queryCtx, cancel := context.WithTimeout(ctx, c.minReturnTimeout)
	defer cancel()

	raw, err := c.contractCaller.GetMinReturn(queryCtx, chain.RangeOrderParams{
		Pool:          params.Pool,
		ZeroForOne:    params.ZeroForOne,
		TickThreshold: big.NewInt(int64(params.TickThreshold)),
		AmountIn:      params.AmountIn,
		Receiver:      params.Receiver,
		MaxFeeAmount:  params.MaxFeeAmount,
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		c.metrics.ObserveMinReturn(outcomeSuccess, elapsed)
		return raw, nil
	case errors.Is(queryCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		c.metrics.ObserveMinReturn(outcomeTimeout, elapsed)
		return nil, fmt.Errorf("%w after %s", ErrQueryTimeout, c.minReturnTimeout)
	default:
		c.metrics.ObserveMinReturn(outcomeError, elapsed)
		return nil, &ChainCallError{Op: "min return", Err: err}
	}
}

// OrderEconomics computes the economics of order from the current gas sample and chain state.
// Failed or slow chain reads leave the affected fields unknown; only a canceled ctx is an error.
func (c *Client) OrderEconomics(ctx context.Context, order OrderState) (*OrderDetails, error) {
	start := time.Now()
	gas := c.Sample()

	var (
		nativePrice  *currency.Price
		minReturnRaw *big.Int
	)

	g, gctx := errgroup.WithContext(ctx)

	if order.InputAmount != nil && order.OutputAmount != nil && gas != nil && !order.OutputAmount.Currency().IsNative {
		quote := order.OutputAmount.Currency()
		g.Go(func() error {
			price, err := c.NativePrice(gctx, quote)
			if err != nil {
				c.logger.Warn("Failed to price gas in output currency",
					zap.String("currency", quote.String()), zap.Error(err))
				return nil
			}
			nativePrice = price
			return nil
		})
	}

	if _, advanced := c.chainCtx.(AdvancedRoutingChain); advanced && order.OutputAmount != nil && order.RangeOrder != nil {
		params := *order.RangeOrder
		g.Go(func() error {
			raw, err := c.GetMinReturn(gctx, params)
			if err != nil {
				c.logger.Warn("Failed to query minimum return", zap.Error(err))
				return nil
			}
			minReturnRaw = raw
			return nil
		})
	}

	// Both goroutines return nil; a failed read leaves its field unknown
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	economics := c.calculator.Calculate(EconomicsInput{
		Order:        order,
		Chain:        c.chainCtx,
		Handle:       c.fees,
		Gas:          gas,
		NativePrice:  nativePrice,
		MinReturnRaw: minReturnRaw,
	})
	c.metrics.ObserveEconomics(economics, time.Since(start))

	return &OrderDetails{
		Chain:     c.chainCtx,
		Economics: economics,
		Rows:      BuildRows(c.chainCtx, economics),
	}, nil
}
