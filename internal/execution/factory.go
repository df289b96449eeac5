package execution

import (
	"fmt"
	"log/slog"
	"time"

	"tradecore/internal/infra"
	"tradecore/internal/metrics"
	"tradecore/internal/storage"
)

// ExchangeFactory creates the Exchange selected by the trading mode.
type ExchangeFactory struct {
	config  *infra.Config
	secrets infra.Secrets
	journal storage.Journal
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewExchangeFactory creates a new factory. journal and m may be nil.
func NewExchangeFactory(cfg *infra.Config, secrets infra.Secrets, journal storage.Journal, m *metrics.Metrics, logger *slog.Logger) *ExchangeFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExchangeFactory{config: cfg, secrets: secrets, journal: journal, metrics: m, logger: logger}
}

// CreateExchange returns the configured implementation, not yet connected.
func (f *ExchangeFactory) CreateExchange() (Exchange, error) {
	mode := f.config.Trading.Mode
	f.logger.Info("Initializing exchange", slog.String("mode", mode))

	paper, err := f.paperConfig()
	if err != nil {
		return nil, err
	}

	switch mode {
	case infra.ModePaper:
		return NewPaperExchange(paper,
			WithJournal(f.journal),
			WithMetrics(f.metrics),
			WithLogger(f.logger)), nil

	case infra.ModeLive:
		// Safety latch: real funds need an explicit opt-in.
		if f.secrets.HasPrivateKey() && !f.config.Trading.Testnet && !f.secrets.ConfirmRealMoney {
			return nil, fmt.Errorf("SAFETY_GUARD: live mainnet trading requires CONFIRM_REAL_MONEY=true")
		}
		if f.secrets.HasPrivateKey() && !f.config.Trading.Testnet {
			f.logger.Warn("🚨 Trading with REAL funds on mainnet")
		}
		return NewLiveExchange(f.liveConfig(paper),
			WithLiveJournal(f.journal),
			WithLiveMetrics(f.metrics),
			WithLiveLogger(f.logger)), nil

	default:
		return nil, fmt.Errorf("unknown trading mode: %s", mode)
	}
}

func (f *ExchangeFactory) paperConfig() (PaperConfig, error) {
	s, err := f.config.Paper.Parse()
	if err != nil {
		return PaperConfig{}, err
	}
	cfg := PaperConfig{
		Name:           "paper",
		InitialBalance: s.InitialBalance,
		Currency:       s.Currency,
		SlippageBps:    s.SlippageBps,
		Leverage:       s.Leverage,
		DefaultPrice:   s.DefaultPrice,
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if len(s.Symbols) > 0 {
		cfg.Markets = DefaultMarkets(cfg.Currency, s.Symbols...)
	} else {
		cfg.Markets = DefaultPaperConfig().Markets
	}
	return cfg, nil
}

func (f *ExchangeFactory) liveConfig(paper PaperConfig) LiveConfig {
	v := f.config.Venue
	cfg := DefaultLiveConfig()
	cfg.Credentials = Credentials{
		PrivateKey:     f.secrets.PrivateKey,
		AccountAddress: f.secrets.AccountAddress,
	}
	cfg.Testnet = f.config.Trading.Testnet
	cfg.Retry = v.RetryPolicy()
	cfg.MarketSlippage = v.Slippage()
	cfg.RequestsPerSecond = v.RequestsPerSecond
	cfg.Burst = v.Burst
	cfg.BreakerFailures = v.BreakerFailures
	cfg.BreakerTimeout = time.Duration(v.BreakerTimeoutSec) * time.Second

	// The mock ledger follows the paper settings but settles like the venue.
	mock := paper
	mock.Name = "hyperliquid-mock"
	mock.Currency = venueCurrency
	symbols := make([]string, 0, len(paper.Markets))
	for _, m := range paper.Markets {
		symbols = append(symbols, m.Symbol)
	}
	mock.Markets = DefaultMarkets(venueCurrency, symbols...)
	cfg.Paper = mock
	return cfg
}
