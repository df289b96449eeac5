package execution

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/infra"
	"tradecore/internal/infra/hyperliquid"
	"tradecore/internal/metrics"
	"tradecore/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Credentials unlock the live venue. AccountAddress is the trading account
// and may differ from the key's own address when an agent wallet signs.
type Credentials struct {
	PrivateKey     string
	AccountAddress string
}

func (c Credentials) String() string {
	key := "<empty>"
	if c.PrivateKey != "" {
		key = "<redacted>"
	}
	return "Credentials{PrivateKey:" + key + ", AccountAddress:" + c.AccountAddress + "}"
}

// Mode is how a LiveExchange operates once connected: Live or Mock.
type Mode interface {
	mode() string
}

// Live trades on the venue with the given credentials.
type Live struct {
	Credentials Credentials
}

// Mock simulates the venue locally because no private key was configured.
type Mock struct{}

func (Live) mode() string { return "live" }
func (Mock) mode() string { return "mock" }

// backend is what a mode dispatches to. Both the venue and the simulator
// implement it.
type backend interface {
	GetMarkets(ctx context.Context) ([]domain.Market, error)
	GetMarket(ctx context.Context, symbol string) (*domain.Market, error)
	GetBalance(ctx context.Context, currency string) ([]domain.Balance, error)
	GetPositions(ctx context.Context, symbol string) ([]domain.Position, error)
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID, symbol string) (domain.Order, error)
	GetOrder(ctx context.Context, orderID, symbol string) (*domain.Order, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error)
}

// LiveConfig configures a LiveExchange.
type LiveConfig struct {
	Credentials Credentials
	// Testnet selects the network; it cannot change after construction.
	Testnet bool
	// BaseURL overrides the network URL, for tests and proxies.
	BaseURL    string
	HTTPClient *http.Client

	Retry             infra.RetryPolicy
	MarketSlippage    decimal.Decimal
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32
	BreakerTimeout    time.Duration

	// Paper configures the simulator used in mock mode.
	Paper PaperConfig
}

// DefaultLiveConfig returns testnet settings with 5% market slippage.
func DefaultLiveConfig() LiveConfig {
	paper := DefaultPaperConfig()
	paper.Name = "hyperliquid-mock"
	paper.Currency = venueCurrency
	paper.Markets = DefaultMarkets(venueCurrency, "BTC-PERP", "ETH-PERP", "SOL-PERP")
	return LiveConfig{
		Testnet:           true,
		Retry:             infra.DefaultRetryPolicy(),
		MarketSlippage:    decimal.New(5, -2),
		RequestsPerSecond: 10,
		Burst:             5,
		BreakerFailures:   5,
		BreakerTimeout:    30 * time.Second,
		Paper:             paper,
	}
}

// LiveExchange adapts a Hyperliquid-style perpetuals venue. Without a
// private key it falls back, for its whole lifetime, to a local simulator
// behind the same contract.
type LiveExchange struct {
	cfg     LiveConfig
	journal storage.Journal
	metrics *metrics.Metrics
	logger  *slog.Logger

	mode      Mode
	backend   backend
	connected bool
}

// NewLiveExchange creates an unconnected adapter. The mode is decided on
// the first Connect.
func NewLiveExchange(cfg LiveConfig, opts ...LiveOption) *LiveExchange {
	if cfg.Paper.Name == "" {
		cfg.Paper = DefaultLiveConfig().Paper
	}
	l := &LiveExchange{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(slog.String("exchange", l.Name()))
	return l
}

// LiveOption customizes a LiveExchange.
type LiveOption func(*LiveExchange)

// WithLiveJournal records lifecycle events, and mock-mode fills, to j.
func WithLiveJournal(j storage.Journal) LiveOption {
	return func(l *LiveExchange) { l.journal = j }
}

// WithLiveMetrics counts orders, retries and venue requests.
func WithLiveMetrics(m *metrics.Metrics) LiveOption {
	return func(l *LiveExchange) { l.metrics = m }
}

// WithLiveLogger sets the parent logger.
func WithLiveLogger(logger *slog.Logger) LiveOption {
	return func(l *LiveExchange) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func (l *LiveExchange) Name() string {
	return "hyperliquid"
}

// Mode returns the operating mode, or nil before the first Connect.
func (l *LiveExchange) Mode() Mode {
	return l.mode
}

// IsMock reports whether the adapter simulates the venue.
func (l *LiveExchange) IsMock() bool {
	_, ok := l.mode.(Mock)
	return ok
}

// Connect selects the mode on first use and loads venue metadata.
func (l *LiveExchange) Connect(ctx context.Context) error {
	if l.connected {
		return nil
	}

	if l.mode == nil {
		if err := l.selectMode(ctx); err != nil {
			return err
		}
	}

	switch m := l.mode.(type) {
	case Mock:
		if err := l.backend.(*PaperExchange).Connect(ctx); err != nil {
			return err
		}
	case Live:
		l.recordEvent(ctx, storage.EventConnected)
		l.logger.Info("Connected to venue",
			slog.String("url", l.venue().client.BaseURL()),
			slog.Bool("testnet", l.cfg.Testnet),
			slog.String("account", m.Credentials.AccountAddress))
	}

	l.connected = true
	return nil
}

func (l *LiveExchange) selectMode(ctx context.Context) error {
	creds := l.cfg.Credentials
	if creds.PrivateKey == "" {
		l.logger.Warn("No private key configured, running in mock mode")
		l.mode = Mock{}
		l.backend = NewPaperExchange(l.cfg.Paper,
			WithJournal(l.journal),
			WithMetrics(l.metrics),
			WithLogger(l.logger))
		return nil
	}

	signer, err := hyperliquid.NewSigner(creds.PrivateKey)
	if err != nil {
		return domain.Errorf(domain.KindAuthentication, "%w", err)
	}

	client := hyperliquid.NewClient(hyperliquid.Options{
		Testnet:           l.cfg.Testnet,
		BaseURL:           l.cfg.BaseURL,
		HTTPClient:        l.cfg.HTTPClient,
		RequestsPerSecond: l.cfg.RequestsPerSecond,
		Burst:             l.cfg.Burst,
		BreakerFailures:   l.cfg.BreakerFailures,
		BreakerTimeout:    l.cfg.BreakerTimeout,
		Observe:           l.metrics.VenueRequest,
		Logger:            l.logger,
	})

	v := newVenue(client, hyperliquid.NewExchange(client, signer), creds.AccountAddress, l.cfg.MarketSlippage, l.metrics, l.logger)
	if _, err := retry(ctx, l, "connect", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, v.loadMeta(ctx)
	}); err != nil {
		return err
	}

	l.logger.Info("Venue metadata loaded",
		slog.Int("assets", len(v.markets)),
		slog.String("signer", signer.Address()))
	l.mode = Live{Credentials: creds}
	l.backend = v
	return nil
}

func (l *LiveExchange) venue() *venue {
	v, _ := l.backend.(*venue)
	return v
}

func (l *LiveExchange) Disconnect(ctx context.Context) error {
	if !l.connected {
		return nil
	}
	l.connected = false

	if p, ok := l.backend.(*PaperExchange); ok {
		return p.Disconnect(ctx)
	}
	l.recordEvent(ctx, storage.EventDisconnected)
	l.logger.Info("Disconnected from venue")
	return nil
}

func (l *LiveExchange) IsConnected() bool {
	return l.connected
}

// SetPrice feeds the mock-mode simulator. The live venue prices itself.
func (l *LiveExchange) SetPrice(symbol string, price decimal.Decimal) {
	if p, ok := l.backend.(*PaperExchange); ok {
		p.SetPrice(symbol, price)
	}
}

func (l *LiveExchange) ready() error {
	if !l.connected {
		return domain.Errorf(domain.KindConnection, "%s is not connected", l.Name())
	}
	return nil
}

// retry runs fn under the adapter's retry policy. Only transient error
// kinds are retried; the last error is returned after exhaustion.
func retry[T any](ctx context.Context, l *LiveExchange, op string, fn func(context.Context) (T, error)) (T, error) {
	policy := l.cfg.Retry
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		l.metrics.Retry(op)
		l.logger.Warn("Retrying venue call",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", err))
	}
	v, err := infra.Retry(ctx, policy, domain.IsRetryable, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		return v, domain.Wrap(err, op)
	})
	return v, domain.Wrap(err, op)
}

func (l *LiveExchange) GetMarkets(ctx context.Context) ([]domain.Market, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	return retry(ctx, l, "get_markets", l.backend.GetMarkets)
}

func (l *LiveExchange) GetMarket(ctx context.Context, symbol string) (*domain.Market, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	return retry(ctx, l, "get_market", func(ctx context.Context) (*domain.Market, error) {
		return l.backend.GetMarket(ctx, symbol)
	})
}

func (l *LiveExchange) GetBalance(ctx context.Context, currency string) ([]domain.Balance, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	return retry(ctx, l, "get_balance", func(ctx context.Context) ([]domain.Balance, error) {
		return l.backend.GetBalance(ctx, currency)
	})
}

func (l *LiveExchange) GetPositions(ctx context.Context, symbol string) ([]domain.Position, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	return retry(ctx, l, "get_positions", func(ctx context.Context) ([]domain.Position, error) {
		return l.backend.GetPositions(ctx, symbol)
	})
}

func (l *LiveExchange) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	if err := l.ready(); err != nil {
		return domain.Order{}, err
	}
	// Every attempt carries the same cloid so the venue drops resubmissions.
	if !l.IsMock() && req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}
	return retry(ctx, l, "place_order", func(ctx context.Context) (domain.Order, error) {
		return l.backend.PlaceOrder(ctx, req)
	})
}

func (l *LiveExchange) CancelOrder(ctx context.Context, orderID, symbol string) (domain.Order, error) {
	if err := l.ready(); err != nil {
		return domain.Order{}, err
	}
	return retry(ctx, l, "cancel_order", func(ctx context.Context) (domain.Order, error) {
		return l.backend.CancelOrder(ctx, orderID, symbol)
	})
}

func (l *LiveExchange) GetOrder(ctx context.Context, orderID, symbol string) (*domain.Order, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	return retry(ctx, l, "get_order", func(ctx context.Context) (*domain.Order, error) {
		return l.backend.GetOrder(ctx, orderID, symbol)
	})
}

func (l *LiveExchange) GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	return retry(ctx, l, "get_open_orders", func(ctx context.Context) ([]domain.Order, error) {
		return l.backend.GetOpenOrders(ctx, symbol)
	})
}

func (l *LiveExchange) CancelAllOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	return cancelAll(ctx, l, symbol, l.logger)
}

func (l *LiveExchange) ClosePosition(ctx context.Context, symbol string) (*domain.Order, error) {
	return closePosition(ctx, l, symbol)
}

// Lifecycle lines in live mode carry the withdrawable balance when the
// account is known, zero otherwise.
func (l *LiveExchange) recordEvent(ctx context.Context, name string) {
	if l.journal == nil {
		return
	}
	bal := decimal.Zero
	if v := l.venue(); v != nil && v.account != "" {
		if balances, err := v.GetBalance(ctx, ""); err == nil && len(balances) > 0 {
			bal = balances[0].Available
		}
	}
	err := l.journal.RecordEvent(ctx, storage.EventRecord{Timestamp: time.Now().UTC(), Event: name, Balance: bal})
	if err != nil {
		l.logger.Error("Failed to journal event", slog.String("event", name), slog.Any("error", err))
	}
}
