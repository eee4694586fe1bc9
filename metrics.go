package rangeorders

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const metricsNamespace = "range_orders"

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
	outcomeSkipped = "skipped"
)

// Metrics collects client counters. A nil *Metrics records nothing.
type Metrics struct {
	gasFetches        *prometheus.CounterVec
	gasPriceGwei      prometheus.Gauge
	minReturnDuration *prometheus.HistogramVec
	executionOutcomes *prometheus.CounterVec
	economicsDuration prometheus.Histogram
}

// NewMetrics creates the client metrics and registers them with reg when reg is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		gasFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "gas_price_fetches_total",
				Help:      "Gas price fetches by outcome",
			},
			[]string{"outcome"},
		),
		gasPriceGwei: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "gas_price_gwei",
			Help:      "Latest sampled gas price in gwei",
		}),
		minReturnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "min_return_query_duration_seconds",
				Help:      "On-chain minimum return query duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"outcome"},
		),
		executionOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "execution_price_total",
				Help:      "Computed real execution prices by state",
			},
			[]string{"state"},
		),
		economicsDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "order_economics_duration_seconds",
			Help:      "Time to compute order economics in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(m.gasFetches, m.gasPriceGwei, m.minReturnDuration, m.executionOutcomes, m.economicsDuration)
	}
	return m
}

// ObserveGasFetch records the result of a gas price fetch
func (m *Metrics) ObserveGasFetch(price *big.Int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.gasFetches.WithLabelValues(outcomeError).Inc()
		return
	}
	m.gasFetches.WithLabelValues(outcomeSuccess).Inc()
	gwei, _ := decimal.NewFromBigInt(price, -gweiDecimals).Float64()
	m.gasPriceGwei.Set(gwei)
}

// ObserveMinReturn records one minimum return query
func (m *Metrics) ObserveMinReturn(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.minReturnDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveEconomics records one computed set of order economics
func (m *Metrics) ObserveEconomics(e OrderEconomics, d time.Duration) {
	if m == nil {
		return
	}
	m.economicsDuration.Observe(d.Seconds())

	state := "unknown"
	switch e.RealExecutionPrice.State() {
	case ExecutionPriceNeverExecutes:
		state = "never_executes"
	case ExecutionPriceKnown:
		state = "known"
	}
	m.executionOutcomes.WithLabelValues(state).Inc()
}
