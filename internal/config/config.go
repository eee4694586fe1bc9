package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	rangeorders "github.com/kaifufi/range-orders-sdk-go"
	"github.com/kaifufi/range-orders-sdk-go/internal/logger"
)

// EnvPrefix prefixes environment overrides, e.g. RANGEORDERS_CHAIN_RPC_URL
const EnvPrefix = "RANGEORDERS"

type Config struct {
	Chain   ChainConfig   `mapstructure:"chain"`
	Gas     GasConfig     `mapstructure:"gas"`
	Fees    FeesConfig    `mapstructure:"fees"`
	Queries QueriesConfig `mapstructure:"queries"`
	Log     LogConfig     `mapstructure:"log"`
}

type ChainConfig struct {
	ID                int64  `mapstructure:"id"`
	RPCURL            string `mapstructure:"rpc_url"`
	WSURL             string `mapstructure:"ws_url"`
	RegistryFile      string `mapstructure:"registry_file"`
	RangeOrderAddress string `mapstructure:"range_order_address"`
	RouterAddress     string `mapstructure:"router_address"`
}

type GasConfig struct {
	StationURL        string        `mapstructure:"station_url"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MaxAge            time.Duration `mapstructure:"max_age"`
	ExecutionGasLimit uint64        `mapstructure:"execution_gas_limit"`
}

// FeesConfig overrides the registry fee constants; zero keeps the registry value
type FeesConfig struct {
	SlippageBPS int64 `mapstructure:"slippage_bps"`
	FeeBPS      int64 `mapstructure:"fee_bps"`
}

type QueriesConfig struct {
	MinReturnTimeout time.Duration `mapstructure:"min_return_timeout"`
	NativePriceTTL   time.Duration `mapstructure:"native_price_ttl"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"chain.id":                   int64(rangeorders.ChainIDEthereum),
		"chain.rpc_url":              "",
		"chain.ws_url":               "",
		"chain.registry_file":        "",
		"chain.range_order_address":  "",
		"chain.router_address":       "",
		"gas.station_url":            "",
		"gas.poll_interval":          15 * time.Second,
		"gas.max_age":                rangeorders.DefaultGasSampleMaxAge,
		"gas.execution_gas_limit":    rangeorders.DefaultExecutionGasLimit,
		"fees.slippage_bps":          int64(0),
		"fees.fee_bps":               int64(0),
		"queries.min_return_timeout": rangeorders.DefaultMinReturnTimeout,
		"queries.native_price_ttl":   rangeorders.DefaultNativePriceTTL,
		"log.level":                  "info",
		"log.development":            false,
		"log.file":                   "",
		"log.max_size":               10,
		"log.max_backups":            3,
		"log.max_age":                28,
		"log.compress":               true,
	}
}

// LoadConfig reads path (optional) and applies RANGEORDERS_* environment overrides
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.Chain.ID <= 0 {
		return errors.New("invalid chain.id")
	}
	if cfg.Chain.RPCURL == "" {
		return errors.New("chain.rpc_url is empty")
	}
	if err := validateURL(cfg.Chain.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid chain.rpc_url: %w", err)
	}
	if cfg.Chain.WSURL != "" {
		if err := validateURL(cfg.Chain.WSURL, "ws"); err != nil {
			return fmt.Errorf("invalid chain.ws_url: %w", err)
		}
	}
	if cfg.Gas.StationURL != "" {
		if err := validateURL(cfg.Gas.StationURL, "http"); err != nil {
			return fmt.Errorf("invalid gas.station_url: %w", err)
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Gas.PollInterval <= 0 {
		return errors.New("invalid gas.poll_interval")
	}
	if cfg.Gas.MaxAge < 0 {
		return errors.New("invalid gas.max_age")
	}
	if cfg.Fees.SlippageBPS < 0 || cfg.Fees.FeeBPS < 0 {
		return errors.New("fees must not be negative")
	}
	if cfg.Queries.MinReturnTimeout <= 0 {
		return errors.New("invalid queries.min_return_timeout")
	}
	if cfg.Queries.NativePriceTTL <= 0 {
		return errors.New("invalid queries.native_price_ttl")
	}
	if cfg.Log.MaxSize < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAge < 0 {
		return errors.New("invalid log rotation settings")
	}
	return nil
}

// validateURL accepts schemes starting with protocol, so "http" admits https
func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return fmt.Errorf("expected a %s URL, got %q", protocol, rawURL)
	}
	return nil
}

// LoggerConfig returns the logger settings
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:       c.Log.Level,
		Development: c.Log.Development,
		LogFile:     c.Log.File,
		MaxSize:     c.Log.MaxSize,
		MaxBackups:  c.Log.MaxBackups,
		MaxAge:      c.Log.MaxAge,
		Compress:    c.Log.Compress,
	}
}

// ToClientConfig builds the client settings. A registry file, when set, replaces the embedded registry.
func (c *Config) ToClientConfig(log *zap.Logger, reg prometheus.Registerer) (rangeorders.ClientConfig, error) {
	cc := rangeorders.ClientConfig{
		ChainID:           rangeorders.ChainID(c.Chain.ID),
		RPCURL:            c.Chain.RPCURL,
		WSURL:             c.Chain.WSURL,
		GasStationURL:     c.Gas.StationURL,
		RangeOrderAddr:    c.Chain.RangeOrderAddress,
		RouterAddr:        c.Chain.RouterAddress,
		ExecutionGasLimit: c.Gas.ExecutionGasLimit,
		SlippageBPS:       c.Fees.SlippageBPS,
		FeeBPS:            c.Fees.FeeBPS,
		GasPollInterval:   c.Gas.PollInterval,
		GasSampleMaxAge:   c.Gas.MaxAge,
		MinReturnTimeout:  c.Queries.MinReturnTimeout,
		NativePriceTTL:    c.Queries.NativePriceTTL,
		Logger:            log,
		Registerer:        reg,
	}

	if c.Chain.RegistryFile != "" {
		data, err := os.ReadFile(c.Chain.RegistryFile)
		if err != nil {
			return rangeorders.ClientConfig{}, fmt.Errorf("failed to read chain registry: %w", err)
		}
		registry, err := rangeorders.LoadChainRegistry(data)
		if err != nil {
			return rangeorders.ClientConfig{}, err
		}
		cc.Registry = registry
	}

	return cc, nil
}
