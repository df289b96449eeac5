package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// Sign returns +1 for BUY and -1 for SELL.
func (s OrderSide) Sign() decimal.Decimal {
	if s == SideSell {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

func (s OrderSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket           OrderType = "market"
	OrderTypeLimit            OrderType = "limit"
	OrderTypeStopMarket       OrderType = "stop_market"
	OrderTypeStopLimit        OrderType = "stop_limit"
	OrderTypeTakeProfitMarket OrderType = "take_profit_market"
	OrderTypeTakeProfitLimit  OrderType = "take_profit_limit"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStopMarket, OrderTypeStopLimit,
		OrderTypeTakeProfitMarket, OrderTypeTakeProfitLimit:
		return true
	}
	return false
}

// HasLimitPrice reports whether the type executes at a caller-supplied price.
func (t OrderType) HasLimitPrice() bool {
	return t == OrderTypeLimit || t == OrderTypeStopLimit || t == OrderTypeTakeProfitLimit
}

// IsTrigger reports whether the type needs a stop (trigger) price.
func (t OrderType) IsTrigger() bool {
	switch t {
	case OrderTypeStopMarket, OrderTypeStopLimit, OrderTypeTakeProfitMarket, OrderTypeTakeProfitLimit:
		return true
	}
	return false
}

// IsTakeProfit reports whether a trigger order is a take-profit variant.
func (t OrderType) IsTakeProfit() bool {
	return t == OrderTypeTakeProfitMarket || t == OrderTypeTakeProfitLimit
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

// IsOpen checks if the order can still trade.
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusPending || s == OrderStatusOpen || s == OrderStatusPartiallyFilled
}

// TimeInForce controls how long an order rests.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

func (t TimeInForce) Valid() bool {
	return t == TimeInForceGTC || t == TimeInForceIOC || t == TimeInForceFOK
}

// Order represents a trading order as last known by the issuing exchange.
// A zero Price, StopPrice or AverageFillPrice means "not set".
type Order struct {
	ID               string          `json:"order_id"`
	ClientOrderID    string          `json:"client_order_id,omitempty"`
	Symbol           string          `json:"symbol"`
	Side             OrderSide       `json:"side"`
	Type             OrderType       `json:"order_type"`
	Quantity         decimal.Decimal `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
	StopPrice        decimal.Decimal `json:"stop_price"`
	Status           OrderStatus     `json:"status"`
	FilledQuantity   decimal.Decimal `json:"filled_quantity"`
	AverageFillPrice decimal.Decimal `json:"average_fill_price"`
	ReduceOnly       bool            `json:"reduce_only"`
	TimeInForce      TimeInForce     `json:"time_in_force"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsOpen checks if the order is still active.
func (o Order) IsOpen() bool {
	return o.Status.IsOpen()
}

// RemainingQuantity is the unfilled part of the order.
func (o Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// SignedQuantity is +quantity for BUY and -quantity for SELL.
func (o Order) SignedQuantity() decimal.Decimal {
	return o.Quantity.Mul(o.Side.Sign())
}

// OrderRequest carries the parameters of PlaceOrder.
type OrderRequest struct {
	Symbol        string
	Side          OrderSide
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	StopPrice     decimal.Decimal
	ReduceOnly    bool
	ClientOrderID string
	TimeInForce   TimeInForce
}

// Validate checks the request shape. It never touches exchange state.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return Errorf(KindOrder, "symbol is required")
	}
	if !r.Side.Valid() {
		return Errorf(KindOrder, "invalid side %q", r.Side)
	}
	if !r.Type.Valid() {
		return Errorf(KindOrder, "invalid order type %q", r.Type)
	}
	if !r.Quantity.IsPositive() {
		return Errorf(KindOrder, "quantity must be positive, got %s", r.Quantity)
	}
	if r.TimeInForce != "" && !r.TimeInForce.Valid() {
		return Errorf(KindOrder, "invalid time in force %q", r.TimeInForce)
	}
	if r.Type.HasLimitPrice() && !r.Price.IsPositive() {
		return Errorf(KindOrder, "%s order requires a positive price", r.Type)
	}
	if r.Type.IsTrigger() && !r.StopPrice.IsPositive() {
		return Errorf(KindOrder, "%s order requires a positive stop price", r.Type)
	}
	if r.Price.IsNegative() {
		return Errorf(KindOrder, "price must not be negative, got %s", r.Price)
	}
	return nil
}

// WithDefaults fills optional fields.
func (r OrderRequest) WithDefaults() OrderRequest {
	if r.TimeInForce == "" {
		r.TimeInForce = TimeInForceGTC
	}
	return r
}
