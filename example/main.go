// Example usage of the Range Orders SDK Go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	rangeorders "github.com/kaifufi/range-orders-sdk-go"
	"github.com/kaifufi/range-orders-sdk-go/currency"
	"github.com/kaifufi/range-orders-sdk-go/internal/config"
	"github.com/kaifufi/range-orders-sdk-go/internal/logger"
)

func main() {
	var (
		configPath  string
		inputToken  string
		outputToken string
		inputValue  string
		outputValue string
		divide      bool
		watch       time.Duration
		pool        string
		zeroForOne  bool
		tick        int
		maxFee      string
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML config file (RANGEORDERS_* env vars override it)")
	flag.StringVar(&inputToken, "in", "", "input token address, empty for the native currency")
	flag.StringVar(&outputToken, "out", "", "output token address, empty for the native currency")
	flag.StringVar(&inputValue, "in-amount", "1", "input amount in display units")
	flag.StringVar(&outputValue, "out-amount", "1", "output amount in display units")
	flag.BoolVar(&divide, "div", false, "quote the execution price as 1 <output> = X <input>")
	flag.DurationVar(&watch, "watch", 0, "recompute on this interval until interrupted")
	flag.StringVar(&pool, "pool", "", "range order pool address; enables the minimum return query")
	flag.BoolVar(&zeroForOne, "zero-for-one", true, "the order sells the pool's token0")
	flag.IntVar(&tick, "tick", 0, "range order tick threshold")
	flag.StringVar(&maxFee, "max-fee", "0", "maximum executor fee in native units")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	clientConfig, err := cfg.ToClientConfig(zlog, prometheus.DefaultRegisterer)
	if err != nil {
		zlog.Fatal("Invalid client config", zap.Error(err))
	}

	client, err := rangeorders.NewClient(clientConfig)
	if err != nil {
		zlog.Fatal("Failed to create client", zap.Error(err))
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		zlog.Fatal("Failed to start client", zap.Error(err))
	}

	order, err := buildOrder(ctx, client, inputToken, outputToken, inputValue, outputValue)
	if err != nil {
		zlog.Fatal("Failed to build order", zap.Error(err))
	}
	if divide {
		order.Orientation = rangeorders.RateDiv
	}
	if pool != "" {
		params, err := rangeOrderParams(client, order, pool, zeroForOne, tick, inputValue, maxFee)
		if err != nil {
			zlog.Fatal("Invalid range order", zap.Error(err))
		}
		order.RangeOrder = params
	}

	tracker := rangeorders.NewTracker(client, func(details *rangeorders.OrderDetails) {
		printDetails(client, details)
	}, zlog)

	// Give the poller a moment to take its first gas sample
	time.Sleep(2 * time.Second)
	if _, _, err := tracker.Update(ctx, order); err != nil {
		zlog.Fatal("Failed to compute order economics", zap.Error(err))
	}
	if watch <= 0 {
		return
	}

	ticker := time.NewTicker(watch)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := tracker.Update(ctx, order); err != nil && ctx.Err() == nil {
				zlog.Warn("Failed to compute order economics", zap.Error(err))
			}
		}
	}
}

func buildOrder(ctx context.Context, client *rangeorders.Client, in, out, inValue, outValue string) (rangeorders.OrderState, error) {
	inCurrency, err := client.Currency(ctx, common.HexToAddress(in))
	if err != nil {
		return rangeorders.OrderState{}, err
	}
	outCurrency, err := client.Currency(ctx, common.HexToAddress(out))
	if err != nil {
		return rangeorders.OrderState{}, err
	}

	inAmount, err := currency.ParseAmount(inCurrency, inValue)
	if err != nil {
		return rangeorders.OrderState{}, err
	}
	outAmount, err := currency.ParseAmount(outCurrency, outValue)
	if err != nil {
		return rangeorders.OrderState{}, err
	}

	return rangeorders.OrderState{
		InputAmount:     &inAmount,
		OutputAmount:    &outAmount,
		RawOutputAmount: outAmount.Raw().String(),
	}, nil
}

func rangeOrderParams(client *rangeorders.Client, order rangeorders.OrderState, pool string, zeroForOne bool, tick int, amountIn, maxFee string) (*rangeorders.RangeOrderParams, error) {
	if !common.IsHexAddress(pool) {
		return nil, fmt.Errorf("pool %q is not a hex address", pool)
	}
	in, err := rangeorders.ParseUnits(amountIn, int(order.InputAmount.Currency().Decimals))
	if err != nil {
		return nil, err
	}
	fee, err := rangeorders.ParseUnits(maxFee, int(client.NativeCurrency().Decimals))
	if err != nil {
		return nil, err
	}

	return &rangeorders.RangeOrderParams{
		Pool:          common.HexToAddress(pool),
		ZeroForOne:    zeroForOne,
		TickThreshold: int32(tick),
		AmountIn:      in,
		MaxFeeAmount:  fee,
	}, nil
}

func printDetails(client *rangeorders.Client, details *rangeorders.OrderDetails) {
	fmt.Printf("\n[%s] chain %d\n", time.Now().Format(time.TimeOnly), details.Chain.ChainID())
	if sample := client.Sample(); sample != nil {
		fmt.Printf("  %-24s %s gwei\n", "Gas sample", rangeorders.FormatUnits(sample.Price, 9))
	}
	for _, row := range details.Rows {
		fmt.Printf("  %-24s %s\n", row.Label, row.Value)
	}
}
