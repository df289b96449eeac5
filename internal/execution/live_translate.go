package execution

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/infra/hyperliquid"

	"github.com/shopspring/decimal"
)

// assetRef is what order translation needs to know about a coin.
type assetRef struct {
	index      int
	szDecimals int32
}

// buildOrderWire translates a validated request. mid is only read for
// market orders.
func buildOrderWire(req domain.OrderRequest, asset assetRef, mid, slippage decimal.Decimal) (hyperliquid.OrderWire, error) {
	isBuy := req.Side == domain.SideBuy

	if !req.Quantity.Equal(req.Quantity.Round(asset.szDecimals)) {
		return hyperliquid.OrderWire{}, domain.Errorf(domain.KindOrder,
			"quantity %s has more than %d decimals", req.Quantity, asset.szDecimals)
	}
	size, err := hyperliquid.ToWire(req.Quantity)
	if err != nil {
		return hyperliquid.OrderWire{}, domain.Errorf(domain.KindOrder, "%w", err)
	}

	var (
		price     decimal.Decimal
		orderType hyperliquid.OrderTypeWire
	)
	switch {
	case req.Type == domain.OrderTypeMarket:
		if !mid.IsPositive() {
			return hyperliquid.OrderWire{}, domain.Errorf(domain.KindOrder, "no mid price for %s", req.Symbol)
		}
		price = hyperliquid.SlippagePrice(mid, isBuy, slippage, asset.szDecimals)
		orderType.Limit = &hyperliquid.LimitWire{Tif: hyperliquid.TifIoc}

	case req.Type.IsTrigger():
		trigger, err := hyperliquid.ToWire(req.StopPrice)
		if err != nil {
			return hyperliquid.OrderWire{}, domain.Errorf(domain.KindOrder, "stop price: %w", err)
		}
		tpsl := hyperliquid.TpslStopLoss
		if req.Type.IsTakeProfit() {
			tpsl = hyperliquid.TpslTakeProfit
		}
		isMarket := !req.Type.HasLimitPrice()
		price = req.Price
		if isMarket {
			price = hyperliquid.SlippagePrice(req.StopPrice, isBuy, slippage, asset.szDecimals)
		}
		orderType.Trigger = &hyperliquid.TriggerWire{IsMarket: isMarket, TriggerPx: trigger, Tpsl: tpsl}

	default:
		tif, err := venueTIF(req.TimeInForce)
		if err != nil {
			return hyperliquid.OrderWire{}, err
		}
		price = req.Price
		orderType.Limit = &hyperliquid.LimitWire{Tif: tif}
	}

	px, err := hyperliquid.ToWire(price)
	if err != nil {
		return hyperliquid.OrderWire{}, domain.Errorf(domain.KindOrder, "price: %w", err)
	}

	wire := hyperliquid.OrderWire{
		Asset:      asset.index,
		IsBuy:      isBuy,
		LimitPx:    px,
		Size:       size,
		ReduceOnly: req.ReduceOnly,
		OrderType:  orderType,
	}
	if req.ClientOrderID != "" {
		cloid, err := hyperliquid.ToCloid(req.ClientOrderID)
		if err != nil {
			return hyperliquid.OrderWire{}, domain.Errorf(domain.KindOrder, "%w", err)
		}
		wire.Cloid = cloid
	}
	return wire, nil
}

func venueTIF(tif domain.TimeInForce) (string, error) {
	switch tif {
	case domain.TimeInForceGTC, "":
		return hyperliquid.TifGtc, nil
	case domain.TimeInForceIOC:
		return hyperliquid.TifIoc, nil
	}
	return "", domain.Errorf(domain.KindOrder, "time in force %s is not supported by the venue", tif)
}

func domainTIF(tif string) domain.TimeInForce {
	if tif == hyperliquid.TifIoc {
		return domain.TimeInForceIOC
	}
	return domain.TimeInForceGTC
}

// orderFromStatus turns the per-order result of a placement into an Order.
func orderFromStatus(req domain.OrderRequest, entry hyperliquid.StatusEntry, now time.Time) (domain.Order, error) {
	order := domain.Order{
		ID:            req.ClientOrderID,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         req.Price,
		StopPrice:     req.StopPrice,
		Status:        domain.OrderStatusPending,
		ReduceOnly:    req.ReduceOnly,
		TimeInForce:   req.TimeInForce,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch {
	case entry.Error != "":
		return domain.Order{}, domain.Errorf(classifyRejection(entry.Error), "%s", entry.Error)
	case entry.Filled != nil:
		order.ID = strconv.FormatInt(entry.Filled.Oid, 10)
		order.FilledQuantity = entry.Filled.TotalSz
		order.AverageFillPrice = entry.Filled.AvgPx
		order.Status = domain.OrderStatusPartiallyFilled
		if entry.Filled.TotalSz.GreaterThanOrEqual(req.Quantity) {
			order.Status = domain.OrderStatusFilled
		}
	case entry.Resting != nil:
		order.ID = strconv.FormatInt(entry.Resting.Oid, 10)
		order.Status = domain.OrderStatusOpen
	}
	if order.ID == "" {
		return domain.Order{}, domain.Errorf(domain.KindOrder, "%s order on %s accepted without an order id or client order id", req.Side, req.Symbol)
	}
	return order, nil
}

// orderFromOpen maps a resting venue order.
func orderFromOpen(o hyperliquid.OpenOrder) domain.Order {
	side := domain.SideBuy
	if o.Side == hyperliquid.SideAsk {
		side = domain.SideSell
	}
	quantity := o.OrigSz
	if quantity.IsZero() {
		quantity = o.Sz
	}
	created := time.UnixMilli(o.Timestamp).UTC()

	order := domain.Order{
		ID:             strconv.FormatInt(o.Oid, 10),
		ClientOrderID:  o.Cloid,
		Symbol:         hyperliquid.SymbolFromCoin(o.Coin),
		Side:           side,
		Type:           orderTypeFromVenue(o.OrderType),
		Quantity:       quantity,
		Price:          o.LimitPx,
		Status:         domain.OrderStatusOpen,
		FilledQuantity: quantity.Sub(o.Sz),
		ReduceOnly:     o.ReduceOnly,
		TimeInForce:    domainTIF(o.Tif),
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	if o.IsTrigger {
		order.StopPrice = o.TriggerPx
	}
	return order
}

func orderTypeFromVenue(t string) domain.OrderType {
	switch t {
	case "Market":
		return domain.OrderTypeMarket
	case "Stop Market":
		return domain.OrderTypeStopMarket
	case "Stop Limit":
		return domain.OrderTypeStopLimit
	case "Take Profit Market":
		return domain.OrderTypeTakeProfitMarket
	case "Take Profit Limit":
		return domain.OrderTypeTakeProfitLimit
	}
	return domain.OrderTypeLimit
}

// statusFromVenue maps orderStatus strings. The venue has a family of
// "...Canceled" and "...Rejected" reasons.
func statusFromVenue(s string) domain.OrderStatus {
	switch {
	case s == "open" || s == "triggered":
		return domain.OrderStatusOpen
	case s == "filled":
		return domain.OrderStatusFilled
	case strings.HasSuffix(strings.ToLower(s), "canceled") || s == "scheduledCancel":
		return domain.OrderStatusCancelled
	case strings.HasSuffix(strings.ToLower(s), "rejected"):
		return domain.OrderStatusRejected
	}
	return domain.OrderStatusPending
}

func positionFromVenue(p hyperliquid.PositionData) domain.Position {
	size := p.Szi.Abs()
	pos := domain.Position{
		Symbol:        hyperliquid.SymbolFromCoin(p.Coin),
		Side:          domain.SideFor(p.Szi),
		Quantity:      size,
		EntryPrice:    p.EntryPx,
		UnrealizedPnL: p.UnrealizedPnl,
		Leverage:      decimal.NewFromInt(int64(p.Leverage.Value)),
		Margin:        p.MarginUsed,
	}
	if size.IsPositive() {
		pos.MarkPrice = p.PositionValue.Div(size)
	}
	return pos
}

func balanceFromVenue(state *hyperliquid.ClearinghouseState) domain.Balance {
	unrealized := decimal.Zero
	for _, ap := range state.AssetPositions {
		unrealized = unrealized.Add(ap.Position.UnrealizedPnl)
	}
	available := state.Withdrawable
	locked := state.MarginSummary.TotalMarginUsed
	return domain.Balance{
		Currency:      venueCurrency,
		Total:         available.Add(locked),
		Available:     available,
		Locked:        locked,
		UnrealizedPnL: unrealized,
	}
}

// classifyRejection maps a venue rejection message to an error kind.
func classifyRejection(msg string) domain.Kind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "wallet"),
		strings.Contains(lower, "signature"):
		return domain.KindAuthentication
	case strings.Contains(lower, "margin"), strings.Contains(lower, "insufficient"):
		return domain.KindInsufficientBalance
	}
	return domain.KindOrder
}

// translateError maps SDK failures into the error taxonomy.
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}

	var apiErr *hyperliquid.APIError
	switch {
	case errors.Is(err, hyperliquid.ErrRateLimited):
		return domain.Errorf(domain.KindRateLimit, "%s: %w", op, err)
	case errors.Is(err, hyperliquid.ErrUnavailable):
		return domain.Errorf(domain.KindConnection, "%s: %w", op, err)
	case errors.As(err, &apiErr):
		return domain.Errorf(apiErrorKind(apiErr.StatusCode), "%s: %w", op, err)
	case errors.Is(err, hyperliquid.ErrRejected):
		return domain.Errorf(classifyRejection(err.Error()), "%s: %w", op, err)
	}
	return domain.Wrap(err, op)
}

func apiErrorKind(code int) domain.Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.KindAuthentication
	case code == http.StatusTooManyRequests:
		return domain.KindRateLimit
	case code >= http.StatusInternalServerError:
		return domain.KindConnection
	}
	return domain.KindOrder
}
