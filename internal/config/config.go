package config

import (
	"fmt"
	"os"
	"time"

	"github.com/you/arb-engine/internal/types"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode   string `yaml:"mode"` // "rest" or "ws"
	DryRun bool   `yaml:"dry_run"`

	Trading struct {
		MinProfitThresholdPct float64          `yaml:"min_profit_threshold_pct"`
		MaxPositionSize       float64          `yaml:"max_position_size"`
		Pairs                 []string         `yaml:"pairs"`
		Triangles             []types.Triangle `yaml:"triangles"`
		Settlement            string           `yaml:"settlement"`
		EnableExecution       bool             `yaml:"enable_execution"`
		MaxSlippagePct        float64          `yaml:"max_slippage_pct"`
		MinLiquidityUSD       float64          `yaml:"min_liquidity_usd"`
	} `yaml:"trading"`

	Fees struct {
		MakerPct      float64 `yaml:"maker_pct"`
		TakerPct      float64 `yaml:"taker_pct"`
		WithdrawalPct float64 `yaml:"withdrawal_pct"`
	} `yaml:"fees"`

	Risk struct {
		CircuitBreakerThreshold uint32  `yaml:"circuit_breaker_threshold"`
		CircuitBreakerResetMin  int     `yaml:"circuit_breaker_reset_minutes"`
		MaxConsecutiveErrors    int     `yaml:"max_consecutive_errors"`
		MaxRiskScore            float64 `yaml:"max_risk_score"`
	} `yaml:"risk"`

	Binance struct {
		ApiKey    string `yaml:"api_key"`
		ApiSecret string `yaml:"api_secret"`
		RestURL   string `yaml:"rest_url"`
		WsURL     string `yaml:"ws_url"`
		Enabled   bool   `yaml:"enabled"`
	} `yaml:"binance"`

	Bybit struct {
		ApiKey    string `yaml:"api_key"`
		ApiSecret string `yaml:"api_secret"`
		RestURL   string `yaml:"rest_url"`
		Enabled   bool   `yaml:"enabled"`
	} `yaml:"bybit"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Stream   string `yaml:"stream"`
	} `yaml:"redis"`

	Monitoring struct {
		MetricsAddr        string `yaml:"metrics_addr"`
		StalenessSeconds   int    `yaml:"staleness_seconds"`
		VariancePct        int    `yaml:"variance_pct"`
		HistoryDays        int    `yaml:"history_days"`
		ScanTimeoutSeconds int    `yaml:"scan_timeout_seconds"`
		ScanIntervalMs     int    `yaml:"scan_interval_ms"`
		RateLimitMs        int    `yaml:"rate_limit_ms"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "rest"
	}
	if c.Trading.MinProfitThresholdPct == 0 {
		c.Trading.MinProfitThresholdPct = 0.5
	}
	if c.Trading.MaxPositionSize == 0 {
		c.Trading.MaxPositionSize = 1000.0
	}
	if len(c.Trading.Pairs) == 0 {
		c.Trading.Pairs = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "DOTUSDT", "SOLUSDT"}
	}
	if len(c.Trading.Triangles) == 0 {
		c.Trading.Triangles = []types.Triangle{
			{Pair1: "BTCUSDT", Pair2: "ETHBTC", Pair3: "ETHUSDT"},
			{Pair1: "BTCUSDT", Pair2: "BNBBTC", Pair3: "BNBUSDT"},
			{Pair1: "ETHUSDT", Pair2: "ADAETH", Pair3: "ADAUSDT"},
		}
	}
	if c.Trading.Settlement == "" {
		c.Trading.Settlement = "USDT"
	}
	if c.Trading.MinLiquidityUSD == 0 {
		c.Trading.MinLiquidityUSD = 10000.0
	}
	if c.Fees.TakerPct == 0 {
		c.Fees.TakerPct = 0.1
	}
	if c.Fees.MakerPct == 0 {
		c.Fees.MakerPct = 0.1
	}
	if c.Fees.WithdrawalPct == 0 {
		c.Fees.WithdrawalPct = 0.05
	}
	if c.Risk.CircuitBreakerThreshold == 0 {
		c.Risk.CircuitBreakerThreshold = 5
	}
	if c.Risk.CircuitBreakerResetMin == 0 {
		c.Risk.CircuitBreakerResetMin = 5
	}
	if c.Risk.MaxConsecutiveErrors == 0 {
		c.Risk.MaxConsecutiveErrors = 10
	}
	if c.Risk.MaxRiskScore == 0 {
		c.Risk.MaxRiskScore = 0.7
	}
	if c.Binance.RestURL == "" {
		c.Binance.RestURL = "https://api.binance.com"
	}
	if c.Binance.WsURL == "" {
		c.Binance.WsURL = "wss://stream.binance.com:9443/ws"
	}
	if c.Bybit.RestURL == "" {
		c.Bybit.RestURL = "https://api.bybit.com"
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "arb:opportunities"
	}
	if c.Monitoring.StalenessSeconds == 0 {
		c.Monitoring.StalenessSeconds = 30
	}
	if c.Monitoring.VariancePct == 0 {
		c.Monitoring.VariancePct = 10
	}
	if c.Monitoring.HistoryDays == 0 {
		c.Monitoring.HistoryDays = 7
	}
	if c.Monitoring.ScanTimeoutSeconds == 0 {
		c.Monitoring.ScanTimeoutSeconds = 30
	}
	if c.Monitoring.ScanIntervalMs == 0 {
		c.Monitoring.ScanIntervalMs = 250
	}
	if c.Monitoring.RateLimitMs == 0 {
		c.Monitoring.RateLimitMs = 250
	}
}

// Validate enforces the invariants the engine refuses to start without.
func (c *Config) Validate() error {
	if c.Trading.MinProfitThresholdPct < 0 {
		return fmt.Errorf("min_profit_threshold_pct cannot be negative")
	}
	if c.Trading.MaxPositionSize <= 0 {
		return fmt.Errorf("max_position_size must be positive")
	}
	if len(c.Trading.Pairs) == 0 {
		return fmt.Errorf("trading pairs cannot be empty")
	}
	if c.Trading.MaxSlippagePct < 0 || c.Trading.MaxSlippagePct > 10 {
		return fmt.Errorf("max_slippage_pct must be between 0 and 10")
	}
	if c.Fees.TakerPct < 0 || c.Fees.MakerPct < 0 || c.Fees.WithdrawalPct < 0 {
		return fmt.Errorf("fee percentages cannot be negative")
	}
	if c.Risk.CircuitBreakerThreshold == 0 {
		return fmt.Errorf("circuit_breaker_threshold must be greater than 0")
	}
	if c.Risk.MaxConsecutiveErrors <= 0 {
		return fmt.Errorf("max_consecutive_errors must be greater than 0")
	}
	if !c.Binance.Enabled && !c.Bybit.Enabled {
		return fmt.Errorf("at least one venue must be enabled")
	}
	if c.Monitoring.ScanTimeoutSeconds <= 0 {
		return fmt.Errorf("scan_timeout_seconds must be greater than 0")
	}
	for _, tri := range c.Trading.Triangles {
		if tri.Pair1 == "" || tri.Pair2 == "" || tri.Pair3 == "" {
			return fmt.Errorf("triangle legs cannot be empty")
		}
	}
	return nil
}

func (c *Config) StalenessWindow() time.Duration {
	return time.Duration(c.Monitoring.StalenessSeconds) * time.Second
}
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.Monitoring.HistoryDays) * 24 * time.Hour
}
func (c *Config) BreakerResetWindow() time.Duration {
	return time.Duration(c.Risk.CircuitBreakerResetMin) * time.Minute
}
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.Monitoring.ScanTimeoutSeconds) * time.Second
}
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Monitoring.ScanIntervalMs) * time.Millisecond
}
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.Monitoring.RateLimitMs) * time.Millisecond
}
