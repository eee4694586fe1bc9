package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultGasPollInterval = 15 * time.Second
	DefaultGasFetchTimeout = 10 * time.Second
)

// GasPriceSource returns the current gas price in wei
type GasPriceSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// GasPriceSourceFunc adapts a function to GasPriceSource
type GasPriceSourceFunc func(ctx context.Context) (*big.Int, error)

func (f GasPriceSourceFunc) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f(ctx)
}

// FallbackSource asks each source in turn until one answers
type FallbackSource []GasPriceSource

func (s FallbackSource) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var errs []error
	for _, source := range s {
		price, err := source.SuggestGasPrice(ctx)
		if err == nil {
			return price, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return nil, errors.New("no gas price source configured")
	}
	return nil, errors.Join(errs...)
}

// GasSample is a gas price and the moment it was requested
type GasSample struct {
	Price     *big.Int
	SampledAt time.Time
}

// GasOracleConfig configures polling of a GasOracle
type GasOracleConfig struct {
	PollInterval time.Duration
	FetchTimeout time.Duration
	// MaxAge hides samples older than this. Zero keeps samples forever.
	MaxAge time.Duration
	// Observer is called after every fetch
	Observer func(price *big.Int, err error)
}

// GasOracle polls a GasPriceSource and keeps the newest sample.
// Latest never blocks; it returns nil until the first fetch succeeds.
type GasOracle struct {
	source GasPriceSource
	config GasOracleConfig
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	latest *GasSample

	runMu   sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewGasOracle creates a new GasOracle
func NewGasOracle(source GasPriceSource, config GasOracleConfig, logger *zap.Logger) *GasOracle {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultGasPollInterval
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultGasFetchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GasOracle{
		source: source,
		config: config,
		logger: logger.Named("gas_oracle"),
		now:    time.Now,
	}
}

// Start begins polling in the background. Calling Start twice is a no-op.
func (o *GasOracle) Start(ctx context.Context) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	if o.cancel != nil {
		return
	}

	ctx, o.cancel = context.WithCancel(ctx)
	o.stopped = make(chan struct{})
	go o.pollLoop(ctx, o.stopped)
}

// Stop ends polling and waits for the poll loop to exit
func (o *GasOracle) Stop() {
	o.runMu.Lock()
	cancel, stopped := o.cancel, o.stopped
	o.cancel, o.stopped = nil, nil
	o.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

func (o *GasOracle) pollLoop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(o.config.PollInterval)
	defer ticker.Stop()

	o.safeRefresh(ctx)
	for {
		select {
		case <-ticker.C:
			o.safeRefresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (o *GasOracle) safeRefresh(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Recovered from panic in gas price fetch", zap.Any("panic", r))
		}
	}()

	if err := o.Refresh(ctx); err != nil && ctx.Err() == nil {
		o.logger.Warn("Failed to refresh gas price", zap.Error(err))
	}
}

// Refresh fetches a new sample now. A fetch that was requested before the
// stored sample finishes without replacing it.
func (o *GasOracle) Refresh(ctx context.Context) error {
	requestedAt := o.now()

	fetchCtx, cancel := context.WithTimeout(ctx, o.config.FetchTimeout)
	defer cancel()

	price, err := o.source.SuggestGasPrice(fetchCtx)
	if err == nil && (price == nil || price.Sign() < 0) {
		err = fmt.Errorf("invalid gas price %v", price)
	}
	if o.config.Observer != nil {
		o.config.Observer(price, err)
	}
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.latest != nil && requestedAt.Before(o.latest.SampledAt) {
		o.logger.Debug("Discarding superseded gas price", zap.Time("requested_at", requestedAt))
		return nil
	}
	o.latest = &GasSample{Price: new(big.Int).Set(price), SampledAt: requestedAt}
	return nil
}

// Latest returns a copy of the newest sample, or nil when none is fresh enough
func (o *GasOracle) Latest() *GasSample {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.latest == nil {
		return nil
	}
	if o.config.MaxAge > 0 && o.now().Sub(o.latest.SampledAt) > o.config.MaxAge {
		return nil
	}
	return &GasSample{Price: new(big.Int).Set(o.latest.Price), SampledAt: o.latest.SampledAt}
}
