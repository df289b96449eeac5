package execution

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/metrics"
	"tradecore/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var bpsDivisor = decimal.NewFromInt(10000)

// PaperConfig configures the simulator.
type PaperConfig struct {
	Name           string
	InitialBalance decimal.Decimal
	Currency       string
	SlippageBps    decimal.Decimal
	Leverage       decimal.Decimal
	// DefaultPrice seeds the reference price of a symbol nobody priced yet.
	DefaultPrice decimal.Decimal
	Markets      []domain.Market
}

// DefaultPaperConfig returns 10,000 USD at 10x leverage and 5 bps slippage.
func DefaultPaperConfig() PaperConfig {
	return PaperConfig{
		Name:           "paper",
		InitialBalance: decimal.NewFromInt(10000),
		Currency:       "USD",
		SlippageBps:    decimal.NewFromInt(5),
		Leverage:       decimal.NewFromInt(10),
		DefaultPrice:   decimal.NewFromInt(100),
		Markets:        DefaultMarkets("USD", "BTC-PERP", "ETH-PERP", "SOL-PERP"),
	}
}

// DefaultMarkets builds a permissive catalog for the given symbols.
func DefaultMarkets(quote string, symbols ...string) []domain.Market {
	markets := make([]domain.Market, 0, len(symbols))
	for _, s := range symbols {
		markets = append(markets, domain.Market{
			Symbol:            s,
			BaseAsset:         strings.TrimSuffix(s, "-PERP"),
			QuoteAsset:        quote,
			MinQuantity:       decimal.New(1, -4),
			MaxQuantity:       decimal.NewFromInt(1_000_000),
			QuantityPrecision: 4,
			PricePrecision:    2,
			TickSize:          decimal.New(1, -2),
			LotSize:           decimal.New(1, -4),
			MaxLeverage:       50,
			Active:            true,
		})
	}
	return markets
}

// Trade is one simulated fill.
type Trade struct {
	OrderID      string
	Symbol       string
	Side         domain.OrderSide
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	RealizedPnL  decimal.Decimal
	BalanceAfter decimal.Decimal
	Timestamp    time.Time
}

// AccountSummary is a point-in-time view of the simulated account.
type AccountSummary struct {
	Balance       decimal.Decimal
	RealizedPnL   decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Equity        decimal.Decimal
	OpenPositions int
	TradeCount    int
}

// PaperExchange simulates a perpetual futures venue in memory. Every order
// fills completely at placement, so no order ever rests.
//
// It is not safe for concurrent use.
type PaperExchange struct {
	cfg    PaperConfig
	logger *slog.Logger

	journal storage.Journal
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	connected   bool
	balance     decimal.Decimal
	realizedPnL decimal.Decimal
	prices      map[string]decimal.Decimal
	positions   map[string]*domain.Position
	orders      map[string]*domain.Order
	trades      []Trade
}

// PaperOption customizes a PaperExchange.
type PaperOption func(*PaperExchange)

// WithJournal appends fills and lifecycle events to j.
func WithJournal(j storage.Journal) PaperOption {
	return func(p *PaperExchange) { p.journal = j }
}

// WithMetrics counts placed orders.
func WithMetrics(m *metrics.Metrics) PaperOption {
	return func(p *PaperExchange) { p.metrics = m }
}

// WithLogger sets the parent logger.
func WithLogger(l *slog.Logger) PaperOption {
	return func(p *PaperExchange) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PaperOption {
	return func(p *PaperExchange) { p.now = now }
}

// NewPaperExchange creates a simulator holding cfg.InitialBalance.
func NewPaperExchange(cfg PaperConfig, opts ...PaperOption) *PaperExchange {
	def := DefaultPaperConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	if !cfg.Leverage.IsPositive() {
		cfg.Leverage = def.Leverage
	}
	if !cfg.DefaultPrice.IsPositive() {
		cfg.DefaultPrice = def.DefaultPrice
	}

	p := &PaperExchange{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("exchange", cfg.Name))
	p.reset()
	return p
}

func (p *PaperExchange) reset() {
	p.balance = p.cfg.InitialBalance
	p.realizedPnL = decimal.Zero
	p.prices = make(map[string]decimal.Decimal)
	p.positions = make(map[string]*domain.Position)
	p.orders = make(map[string]*domain.Order)
	p.trades = nil
}

func (p *PaperExchange) Name() string {
	return p.cfg.Name
}

func (p *PaperExchange) Connect(ctx context.Context) error {
	if p.connected {
		return nil
	}
	p.connected = true
	p.recordEvent(ctx, storage.EventConnected)
	p.logger.Info("Paper exchange connected",
		slog.String("balance", p.balance.String()),
		slog.String("currency", p.cfg.Currency))
	return nil
}

func (p *PaperExchange) Disconnect(ctx context.Context) error {
	if !p.connected {
		return nil
	}
	p.connected = false
	p.recordEvent(ctx, storage.EventDisconnected)
	p.logger.Info("Paper exchange disconnected", slog.String("balance", p.balance.String()))
	return nil
}

func (p *PaperExchange) IsConnected() bool {
	return p.connected
}

func (p *PaperExchange) GetMarkets(_ context.Context) ([]domain.Market, error) {
	out := make([]domain.Market, len(p.cfg.Markets))
	copy(out, p.cfg.Markets)
	return out, nil
}

func (p *PaperExchange) GetMarket(_ context.Context, symbol string) (*domain.Market, error) {
	return domain.FindMarket(p.cfg.Markets, symbol), nil
}

func (p *PaperExchange) GetBalance(_ context.Context, currency string) ([]domain.Balance, error) {
	return domain.FilterBalances([]domain.Balance{p.account()}, currency), nil
}

// account is the single balance the engine keeps. Nothing is ever locked.
func (p *PaperExchange) account() domain.Balance {
	return domain.Balance{
		Currency:      p.cfg.Currency,
		Total:         p.balance,
		Available:     p.balance,
		Locked:        decimal.Zero,
		UnrealizedPnL: p.unrealizedPnL(),
	}
}

func (p *PaperExchange) GetPositions(_ context.Context, symbol string) ([]domain.Position, error) {
	out := make([]domain.Position, 0, len(p.positions))
	for sym, pos := range p.positions {
		if symbol != "" && sym != symbol {
			continue
		}
		if px, ok := p.prices[sym]; ok {
			pos.Mark(px)
		}
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// PlaceOrder fills req immediately. Validation, reduce-only and margin
// checks all run before any state changes.
func (p *PaperExchange) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	order, err := p.placeOrder(ctx, req.WithDefaults())
	if err != nil {
		p.metrics.OrderPlaced(p.cfg.Name, string(req.Side), string(domain.OrderStatusRejected))
		p.logger.Warn("Paper order rejected",
			slog.String("symbol", req.Symbol),
			slog.String("side", string(req.Side)),
			slog.String("quantity", req.Quantity.String()),
			slog.Any("error", err))
		return domain.Order{}, err
	}
	p.metrics.OrderPlaced(p.cfg.Name, string(order.Side), string(order.Status))
	return order, nil
}

func (p *PaperExchange) placeOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	if err := req.Validate(); err != nil {
		return domain.Order{}, err
	}

	pos := p.positions[req.Symbol]
	if req.ReduceOnly {
		if err := checkReduceOnly(pos, req); err != nil {
			return domain.Order{}, err
		}
	}

	ref, seeded := p.referencePrice(req)
	fill := p.fillPrice(req, ref)
	if !fill.IsPositive() {
		return domain.Order{}, domain.Errorf(domain.KindOrder, "fill price %s for %s is not positive", fill, req.Symbol)
	}

	if !req.ReduceOnly {
		required := req.Quantity.Mul(fill).Div(p.cfg.Leverage)
		if !p.account().CanAfford(required) {
			return domain.Order{}, domain.Errorf(domain.KindInsufficientBalance,
				"required margin %s exceeds available %s %s", required.StringFixed(2), p.balance.StringFixed(2), p.cfg.Currency)
		}
	}

	// Checks passed: mutate.
	if seeded {
		p.prices[req.Symbol] = ref
	}

	realized := p.applyFill(req.Symbol, req.Side, req.Quantity, fill)
	p.balance = p.balance.Add(realized)
	p.realizedPnL = p.realizedPnL.Add(realized)

	now := p.now()
	order := domain.Order{
		ID:               p.newID(),
		ClientOrderID:    req.ClientOrderID,
		Symbol:           req.Symbol,
		Side:             req.Side,
		Type:             req.Type,
		Quantity:         req.Quantity,
		Price:            req.Price,
		StopPrice:        req.StopPrice,
		Status:           domain.OrderStatusFilled,
		FilledQuantity:   req.Quantity,
		AverageFillPrice: fill,
		ReduceOnly:       req.ReduceOnly,
		TimeInForce:      req.TimeInForce,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	stored := order
	p.orders[order.ID] = &stored

	trade := Trade{
		OrderID:      order.ID,
		Symbol:       order.Symbol,
		Side:         order.Side,
		Quantity:     order.Quantity,
		Price:        fill,
		RealizedPnL:  realized,
		BalanceAfter: p.balance,
		Timestamp:    now,
	}
	p.trades = append(p.trades, trade)
	p.recordTrade(ctx, trade)

	p.logger.Info("Paper order filled",
		slog.String("order_id", order.ID),
		slog.String("symbol", order.Symbol),
		slog.String("side", string(order.Side)),
		slog.String("quantity", order.Quantity.String()),
		slog.String("price", fill.String()),
		slog.String("realized_pnl", realized.String()),
		slog.String("balance", p.balance.String()))

	return order, nil
}

// checkReduceOnly rejects orders that would open or flip exposure.
func checkReduceOnly(pos *domain.Position, req domain.OrderRequest) error {
	if pos == nil || pos.ClosingSide() != req.Side {
		return domain.Errorf(domain.KindOrder, "reduce-only %s order on %s has no position to reduce", req.Side, req.Symbol)
	}
	if req.Quantity.Sub(pos.Quantity).GreaterThanOrEqual(domain.Epsilon) {
		return domain.Errorf(domain.KindOrder, "reduce-only quantity %s exceeds position %s on %s", req.Quantity, pos.Quantity, req.Symbol)
	}
	return nil
}

// referencePrice returns the last known price, or a seed when the symbol
// was never priced. seeded reports that the caller must store it.
func (p *PaperExchange) referencePrice(req domain.OrderRequest) (price decimal.Decimal, seeded bool) {
	if px, ok := p.prices[req.Symbol]; ok {
		return px, false
	}
	switch {
	case req.Price.IsPositive():
		return req.Price, true
	case req.StopPrice.IsPositive():
		return req.StopPrice, true
	default:
		return p.cfg.DefaultPrice, true
	}
}

// fillPrice is the limit price for limit variants, otherwise the reference
// moved against the taker by the slippage.
func (p *PaperExchange) fillPrice(req domain.OrderRequest, ref decimal.Decimal) decimal.Decimal {
	if req.Type.HasLimitPrice() {
		return req.Price
	}
	slip := ref.Mul(p.cfg.SlippageBps).Div(bpsDivisor)
	if req.Side == domain.SideBuy {
		return ref.Add(slip)
	}
	return ref.Sub(slip)
}

// applyFill updates the position of symbol and returns the realized P&L.
func (p *PaperExchange) applyFill(symbol string, side domain.OrderSide, qty, price decimal.Decimal) decimal.Decimal {
	delta := qty.Mul(side.Sign())
	pos, ok := p.positions[symbol]
	if !ok {
		p.positions[symbol] = p.newPosition(symbol, delta, price)
		return decimal.Zero
	}

	current := pos.SignedQuantity()

	// Same direction: weighted average entry.
	if current.Sign() == delta.Sign() {
		total := pos.Quantity.Add(qty)
		pos.EntryPrice = pos.Quantity.Mul(pos.EntryPrice).Add(qty.Mul(price)).Div(total)
		pos.Quantity = total
		pos.Margin = pos.Notional().Div(p.cfg.Leverage)
		pos.Mark(price)
		return decimal.Zero
	}

	closed := decimal.Min(pos.Quantity, qty)
	realized := pos.PnLOn(price, closed)
	remaining := current.Add(delta)

	switch {
	case domain.IsFlat(remaining):
		delete(p.positions, symbol)
	case remaining.Sign() == current.Sign():
		pos.Quantity = remaining.Abs()
		pos.RealizedPnL = pos.RealizedPnL.Add(realized)
		pos.Margin = pos.Notional().Div(p.cfg.Leverage)
		pos.Mark(price)
	default:
		// Flip: the remainder opens a fresh position at the fill price.
		p.positions[symbol] = p.newPosition(symbol, remaining, price)
	}
	return realized
}

func (p *PaperExchange) newPosition(symbol string, size, price decimal.Decimal) *domain.Position {
	qty := size.Abs()
	return &domain.Position{
		Symbol:        symbol,
		Side:          domain.SideFor(size),
		Quantity:      qty,
		EntryPrice:    price,
		MarkPrice:     price,
		UnrealizedPnL: decimal.Zero,
		RealizedPnL:   decimal.Zero,
		Leverage:      p.cfg.Leverage,
		Margin:        qty.Mul(price).Div(p.cfg.Leverage),
	}
}

func (p *PaperExchange) CancelOrder(_ context.Context, orderID, _ string) (domain.Order, error) {
	order, ok := p.orders[orderID]
	if !ok {
		return domain.Order{}, domain.Errorf(domain.KindOrder, "order %s not found", orderID)
	}
	if !order.IsOpen() {
		return domain.Order{}, domain.Errorf(domain.KindOrder, "order %s is %s and cannot be cancelled", orderID, order.Status)
	}

	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = p.now()
	p.logger.Info("Paper order cancelled", slog.String("order_id", orderID))
	return *order, nil
}

func (p *PaperExchange) GetOrder(_ context.Context, orderID, _ string) (*domain.Order, error) {
	order, ok := p.orders[orderID]
	if !ok {
		return nil, nil
	}
	out := *order
	return &out, nil
}

func (p *PaperExchange) GetOpenOrders(_ context.Context, symbol string) ([]domain.Order, error) {
	out := make([]domain.Order, 0)
	for _, o := range p.orders {
		if o.IsOpen() && (symbol == "" || o.Symbol == symbol) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (p *PaperExchange) CancelAllOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	return cancelAll(ctx, p, symbol, p.logger)
}

func (p *PaperExchange) ClosePosition(ctx context.Context, symbol string) (*domain.Order, error) {
	return closePosition(ctx, p, symbol)
}

// SetPrice updates the reference (and mark) price of symbol.
// Non-positive prices are ignored.
func (p *PaperExchange) SetPrice(symbol string, price decimal.Decimal) {
	if !price.IsPositive() {
		return
	}
	p.prices[symbol] = price
	if pos, ok := p.positions[symbol]; ok {
		pos.Mark(price)
	}
}

// Price returns the reference price of symbol, if any.
func (p *PaperExchange) Price(symbol string) (decimal.Decimal, bool) {
	px, ok := p.prices[symbol]
	return px, ok
}

// TradeHistory returns every fill since construction or the last Reset.
func (p *PaperExchange) TradeHistory() []Trade {
	out := make([]Trade, len(p.trades))
	copy(out, p.trades)
	return out
}

// RealizedPnL is the running total across all symbols.
func (p *PaperExchange) RealizedPnL() decimal.Decimal {
	return p.realizedPnL
}

// AccountSummary marks all positions and totals the account.
func (p *PaperExchange) AccountSummary() AccountSummary {
	unrealized := p.unrealizedPnL()
	return AccountSummary{
		Balance:       p.balance,
		RealizedPnL:   p.realizedPnL,
		UnrealizedPnL: unrealized,
		Equity:        p.balance.Add(unrealized),
		OpenPositions: len(p.positions),
		TradeCount:    len(p.trades),
	}
}

// Reset restores the initial balance and drops all positions, orders,
// trades and prices. The connection state is kept.
func (p *PaperExchange) Reset(ctx context.Context) {
	p.reset()
	p.recordEvent(ctx, storage.EventReset)
	p.logger.Info("Paper exchange reset", slog.String("balance", p.balance.String()))
}

func (p *PaperExchange) unrealizedPnL() decimal.Decimal {
	total := decimal.Zero
	for sym, pos := range p.positions {
		if px, ok := p.prices[sym]; ok {
			pos.Mark(px)
		}
		total = total.Add(pos.UnrealizedPnL)
	}
	return total
}

// Journal failures never undo a fill; they are logged.
func (p *PaperExchange) recordTrade(ctx context.Context, t Trade) {
	if p.journal == nil {
		return
	}
	err := p.journal.RecordTrade(ctx, storage.TradeRecord{
		Timestamp:    t.Timestamp.UTC(),
		OrderID:      t.OrderID,
		Symbol:       t.Symbol,
		Side:         string(t.Side),
		Quantity:     t.Quantity,
		Price:        t.Price,
		BalanceAfter: t.BalanceAfter,
		RealizedPnL:  p.realizedPnL,
	})
	if err != nil {
		p.logger.Error("Failed to journal trade", slog.String("order_id", t.OrderID), slog.Any("error", err))
	}
}

func (p *PaperExchange) recordEvent(ctx context.Context, name string) {
	if p.journal == nil {
		return
	}
	err := p.journal.RecordEvent(ctx, storage.EventRecord{
		Timestamp: p.now().UTC(),
		Event:     name,
		Balance:   p.balance,
	})
	if err != nil {
		p.logger.Error("Failed to journal event", slog.String("event", name), slog.Any("error", err))
	}
}
