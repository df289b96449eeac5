package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Trading modes.
const (
	ModePaper = "PAPER"
	ModeLive  = "LIVE"
)

// Config holds every non-secret setting. Secrets live in Secrets and are
// read from the environment only.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode    string `yaml:"mode"`
		Testnet bool   `yaml:"testnet"`
	} `yaml:"trading"`

	Paper PaperConfig `yaml:"paper"`

	Venue VenueConfig `yaml:"venue"`

	Feed struct {
		Enabled bool     `yaml:"enabled"`
		Symbols []string `yaml:"symbols"`
	} `yaml:"feed"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// Secrets found in the yaml file; only used to warn.
	API struct {
		PrivateKey string `yaml:"private_key"`
	} `yaml:"api"`
}

// PaperConfig configures the simulator. Decimal values are strings so the
// yaml file never goes through float64.
type PaperConfig struct {
	InitialBalance string   `yaml:"initial_balance"`
	Currency       string   `yaml:"currency"`
	SlippageBps    string   `yaml:"slippage_bps"`
	Leverage       string   `yaml:"leverage"`
	DefaultPrice   string   `yaml:"default_price"`
	TradeLog       string   `yaml:"trade_log"`
	JournalDB      string   `yaml:"journal_db"`
	Symbols        []string `yaml:"symbols"`
}

// VenueConfig configures the live adapter and its SDK client.
type VenueConfig struct {
	MaxRetries        int     `yaml:"max_retries"`
	BaseDelayMS       int     `yaml:"base_delay_ms"`
	MaxDelayMS        int     `yaml:"max_delay_ms"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MarketSlippage    string  `yaml:"market_slippage"`
	BreakerFailures   uint32  `yaml:"breaker_failures"`
	BreakerTimeoutSec int     `yaml:"breaker_timeout_sec"`
}

// DefaultConfig returns a paper-trading configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = AppName
	cfg.Trading.Mode = ModePaper
	cfg.Trading.Testnet = true
	cfg.Paper = PaperConfig{
		InitialBalance: "10000",
		Currency:       "USD",
		SlippageBps:    "5",
		Leverage:       "10",
		DefaultPrice:   "100",
	}
	cfg.Venue = VenueConfig{
		MaxRetries:        3,
		BaseDelayMS:       1000,
		MaxDelayMS:        30000,
		RequestsPerSecond: 10,
		Burst:             5,
		MarketSlippage:    "0.05",
		BreakerFailures:   5,
		BreakerTimeoutSec: 30,
	}
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return cfg
}

// LoadConfig reads the yaml file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Trading.Mode = strings.ToUpper(cfg.Trading.Mode)

	if cfg.API.PrivateKey != "" {
		// Using fmt instead of slog: the logger is configured from this file.
		fmt.Println("⚠️  SECURITY WARNING: private key found in config file; it is ignored.")
		fmt.Println("   Use the HYPERLIQUID_PRIVATE_KEY environment variable instead.")
		cfg.API.PrivateKey = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	switch c.Trading.Mode {
	case ModePaper, ModeLive:
	default:
		return fmt.Errorf("unknown trading mode: %q", c.Trading.Mode)
	}

	p, err := c.Paper.Parse()
	if err != nil {
		return err
	}
	if !p.Leverage.IsPositive() {
		return fmt.Errorf("paper leverage must be positive")
	}
	if p.SlippageBps.IsNegative() {
		return fmt.Errorf("paper slippage must not be negative")
	}
	if p.InitialBalance.IsNegative() {
		return fmt.Errorf("paper initial balance must not be negative")
	}

	if c.Venue.MaxRetries < 0 {
		return fmt.Errorf("venue max_retries must not be negative")
	}
	if c.Venue.RequestsPerSecond <= 0 {
		return fmt.Errorf("venue requests_per_second must be positive")
	}
	if _, err := decimal.NewFromString(c.Venue.MarketSlippage); err != nil {
		return fmt.Errorf("invalid venue market_slippage %q: %w", c.Venue.MarketSlippage, err)
	}

	return nil
}

// PaperSettings is PaperConfig with parsed decimals.
type PaperSettings struct {
	InitialBalance decimal.Decimal
	Currency       string
	SlippageBps    decimal.Decimal
	Leverage       decimal.Decimal
	DefaultPrice   decimal.Decimal
	TradeLog       string
	JournalDB      string
	Symbols        []string
}

// Parse converts the decimal strings.
func (p PaperConfig) Parse() (PaperSettings, error) {
	out := PaperSettings{
		Currency:  p.Currency,
		TradeLog:  p.TradeLog,
		JournalDB: p.JournalDB,
		Symbols:   p.Symbols,
	}
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"initial_balance", p.InitialBalance, &out.InitialBalance},
		{"slippage_bps", p.SlippageBps, &out.SlippageBps},
		{"leverage", p.Leverage, &out.Leverage},
		{"default_price", p.DefaultPrice, &out.DefaultPrice},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return PaperSettings{}, fmt.Errorf("invalid paper %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return out, nil
}

// RetryPolicy builds the venue retry policy.
func (v VenueConfig) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: v.MaxRetries,
		BaseDelay:  time.Duration(v.BaseDelayMS) * time.Millisecond,
		MaxDelay:   time.Duration(v.MaxDelayMS) * time.Millisecond,
	}
}

// Slippage returns MarketSlippage as a fraction (0.05 = 5%).
func (v VenueConfig) Slippage() decimal.Decimal {
	d, err := decimal.NewFromString(v.MarketSlippage)
	if err != nil {
		return decimal.NewFromFloat(0.05)
	}
	return d
}
