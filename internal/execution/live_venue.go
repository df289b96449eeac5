package execution

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/infra/hyperliquid"
	"tradecore/internal/metrics"

	"github.com/shopspring/decimal"
)

// venueCurrency is the settlement currency of every perpetual.
const venueCurrency = "USDC"

// venue is the live backend: it talks to the SDK and translates in both
// directions. Errors it returns are already typed.
type venue struct {
	client   *hyperliquid.Client
	exchange *hyperliquid.Exchange
	account  string
	slippage decimal.Decimal
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	assets  map[string]assetRef
	markets []domain.Market
}

func newVenue(client *hyperliquid.Client, exchange *hyperliquid.Exchange, account string, slippage decimal.Decimal, m *metrics.Metrics, logger *slog.Logger) *venue {
	return &venue{
		client:   client,
		exchange: exchange,
		account:  account,
		slippage: slippage,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// loadMeta caches the asset universe; asset ids are indexes into it.
func (v *venue) loadMeta(ctx context.Context) error {
	meta, err := v.client.Meta(ctx)
	if err != nil {
		return translateError(err, "meta")
	}

	assets := make(map[string]assetRef, len(meta.Universe))
	markets := make([]domain.Market, 0, len(meta.Universe))
	for i, a := range meta.Universe {
		assets[a.Name] = assetRef{index: i, szDecimals: a.SzDecimals}
		markets = append(markets, marketFromAsset(a))
	}
	v.assets = assets
	v.markets = markets
	return nil
}

func marketFromAsset(a hyperliquid.AssetInfo) domain.Market {
	priceDecimals := 6 - a.SzDecimals
	if priceDecimals < 0 {
		priceDecimals = 0
	}
	lot := decimal.New(1, -a.SzDecimals)
	return domain.Market{
		Symbol:            hyperliquid.SymbolFromCoin(a.Name),
		BaseAsset:         a.Name,
		QuoteAsset:        venueCurrency,
		MinQuantity:       lot,
		QuantityPrecision: a.SzDecimals,
		PricePrecision:    priceDecimals,
		TickSize:          decimal.New(1, -priceDecimals),
		LotSize:           lot,
		MaxLeverage:       a.MaxLeverage,
		Active:            !a.IsDelisted,
	}
}

func (v *venue) asset(symbol string) (string, assetRef, error) {
	coin := hyperliquid.CoinFromSymbol(symbol)
	ref, ok := v.assets[coin]
	if !ok {
		return "", assetRef{}, domain.Errorf(domain.KindOrder, "unknown symbol %q", symbol)
	}
	return coin, ref, nil
}

func (v *venue) requireAccount() error {
	if v.account == "" {
		return domain.Errorf(domain.KindAuthentication, "account address is not configured")
	}
	return nil
}

func (v *venue) GetMarkets(_ context.Context) ([]domain.Market, error) {
	out := make([]domain.Market, len(v.markets))
	copy(out, v.markets)
	return out, nil
}

func (v *venue) GetMarket(_ context.Context, symbol string) (*domain.Market, error) {
	m := domain.FindMarket(v.markets, hyperliquid.SymbolFromCoin(hyperliquid.CoinFromSymbol(symbol)))
	if m == nil {
		return nil, nil
	}
	out := *m
	return &out, nil
}

func (v *venue) GetBalance(ctx context.Context, currency string) ([]domain.Balance, error) {
	if err := v.requireAccount(); err != nil {
		return nil, err
	}
	state, err := v.client.ClearinghouseState(ctx, v.account)
	if err != nil {
		return nil, translateError(err, "clearinghouse_state")
	}
	return domain.FilterBalances([]domain.Balance{balanceFromVenue(state)}, currency), nil
}

func (v *venue) GetPositions(ctx context.Context, symbol string) ([]domain.Position, error) {
	if err := v.requireAccount(); err != nil {
		return nil, err
	}
	state, err := v.client.ClearinghouseState(ctx, v.account)
	if err != nil {
		return nil, translateError(err, "clearinghouse_state")
	}

	coin := hyperliquid.CoinFromSymbol(symbol)
	out := make([]domain.Position, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		if domain.IsFlat(ap.Position.Szi) {
			continue
		}
		if symbol != "" && ap.Position.Coin != coin {
			continue
		}
		out = append(out, positionFromVenue(ap.Position))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (v *venue) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	if err := req.Validate(); err != nil {
		return domain.Order{}, err
	}
	req = req.WithDefaults()

	coin, ref, err := v.asset(req.Symbol)
	if err != nil {
		return domain.Order{}, err
	}

	mid := decimal.Zero
	if req.Type == domain.OrderTypeMarket {
		mids, err := v.client.AllMids(ctx)
		if err != nil {
			return domain.Order{}, translateError(err, "all_mids")
		}
		mid = mids[coin]
	}

	wire, err := buildOrderWire(req, ref, mid, v.slippage)
	if err != nil {
		return domain.Order{}, err
	}

	statuses, err := v.exchange.PlaceOrders(ctx, []hyperliquid.OrderWire{wire})
	if err != nil {
		return domain.Order{}, translateError(err, "order")
	}
	if len(statuses) == 0 {
		return domain.Order{}, domain.Errorf(domain.KindExchange, "order on %s: empty response", req.Symbol)
	}

	order, err := orderFromStatus(req, statuses[0], v.now().UTC())
	if err != nil {
		v.metrics.OrderPlaced("hyperliquid", string(req.Side), string(domain.OrderStatusRejected))
		v.logger.Warn("Order rejected",
			slog.String("symbol", req.Symbol),
			slog.String("side", string(req.Side)),
			slog.Any("error", err))
		return domain.Order{}, err
	}

	v.metrics.OrderPlaced("hyperliquid", string(order.Side), string(order.Status))
	v.logger.Info("Order placed",
		slog.String("order_id", order.ID),
		slog.String("symbol", order.Symbol),
		slog.String("side", string(order.Side)),
		slog.String("type", string(order.Type)),
		slog.String("quantity", order.Quantity.String()),
		slog.String("limit_px", wire.LimitPx),
		slog.String("status", string(order.Status)))
	return order, nil
}

func (v *venue) CancelOrder(ctx context.Context, orderID, symbol string) (domain.Order, error) {
	if symbol == "" {
		return domain.Order{}, domain.Errorf(domain.KindOrder, "cancel requires a symbol")
	}
	oid, cloid, ok := parseOrderID(orderID)
	if !ok {
		return domain.Order{}, domain.Errorf(domain.KindOrder, "invalid order id %q", orderID)
	}
	_, ref, err := v.asset(symbol)
	if err != nil {
		return domain.Order{}, err
	}

	var entry hyperliquid.StatusEntry
	if cloid != "" {
		entry, err = v.exchange.CancelByCloid(ctx, ref.index, cloid)
	} else {
		entry, err = v.exchange.Cancel(ctx, ref.index, oid)
	}
	if err != nil {
		return domain.Order{}, translateError(err, "cancel")
	}
	if entry.Error != "" {
		return domain.Order{}, domain.Errorf(domain.KindOrder, "cancel %s: %s", orderID, entry.Error)
	}

	now := v.now().UTC()
	v.logger.Info("Order cancelled", slog.String("order_id", orderID), slog.String("symbol", symbol))
	return domain.Order{
		ID:        orderID,
		Symbol:    symbol,
		Status:    domain.OrderStatusCancelled,
		UpdatedAt: now,
	}, nil
}

func (v *venue) GetOrder(ctx context.Context, orderID, _ string) (*domain.Order, error) {
	if err := v.requireAccount(); err != nil {
		return nil, err
	}
	oid, cloid, ok := parseOrderID(orderID)
	if !ok {
		return nil, nil
	}

	var (
		resp *hyperliquid.OrderStatusResponse
		err  error
	)
	if cloid != "" {
		resp, err = v.client.OrderStatusByCloid(ctx, v.account, cloid)
	} else {
		resp, err = v.client.OrderStatus(ctx, v.account, oid)
	}
	if err != nil {
		return nil, translateError(err, "order_status")
	}
	if resp.Status == "unknownOid" || resp.Order == nil {
		return nil, nil
	}

	order := orderFromOpen(resp.Order.Order)
	order.Status = statusFromVenue(resp.Order.Status)
	if order.Status == domain.OrderStatusFilled {
		order.FilledQuantity = order.Quantity
	}
	if resp.Order.StatusTimestamp > 0 {
		order.UpdatedAt = time.UnixMilli(resp.Order.StatusTimestamp).UTC()
	}
	return &order, nil
}

func (v *venue) GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	if err := v.requireAccount(); err != nil {
		return nil, err
	}
	open, err := v.client.OpenOrders(ctx, v.account)
	if err != nil {
		return nil, translateError(err, "open_orders")
	}

	coin := hyperliquid.CoinFromSymbol(symbol)
	out := make([]domain.Order, 0, len(open))
	for _, o := range open {
		if symbol != "" && !strings.EqualFold(o.Coin, coin) {
			continue
		}
		out = append(out, orderFromOpen(o))
	}
	return out, nil
}

// parseOrderID accepts a venue id or a client order id (UUID or cloid).
func parseOrderID(orderID string) (oid int64, cloid string, ok bool) {
	if n, err := strconv.ParseInt(orderID, 10, 64); err == nil {
		return n, "", true
	}
	if c, err := hyperliquid.ToCloid(orderID); err == nil {
		return 0, c, true
	}
	return 0, "", false
}
