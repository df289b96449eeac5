package execution

import (
	"context"

	"tradecore/internal/domain"

	"github.com/shopspring/decimal"
)

// Exchange is the contract every venue implementation satisfies. Callers
// hold one Exchange and never learn whether it is simulated or live.
//
// Implementations own their order and position ledgers and return copies.
// They assume a single writer: callers running concurrent strategies must
// serialize access or use one instance per strategy.
type Exchange interface {
	Name() string

	// Connect and Disconnect are idempotent.
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	GetMarkets(ctx context.Context) ([]domain.Market, error)
	// GetMarket returns nil, nil for an unknown symbol.
	GetMarket(ctx context.Context, symbol string) (*domain.Market, error)

	// GetBalance filters by currency unless it is empty.
	GetBalance(ctx context.Context, currency string) ([]domain.Balance, error)
	// GetPositions marks positions to the latest price and filters by
	// symbol unless it is empty.
	GetPositions(ctx context.Context, symbol string) ([]domain.Position, error)

	// PlaceOrder validates req before touching any state.
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error)
	// CancelOrder fails with an order error when the order is unknown or
	// no longer open.
	CancelOrder(ctx context.Context, orderID, symbol string) (domain.Order, error)
	// GetOrder returns nil, nil for an unknown order.
	GetOrder(ctx context.Context, orderID, symbol string) (*domain.Order, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error)

	CancelAllOrders(ctx context.Context, symbol string) ([]domain.Order, error)
	// ClosePosition returns nil, nil when there is nothing to close.
	ClosePosition(ctx context.Context, symbol string) (*domain.Order, error)
}

// PriceSetter accepts reference prices from a market data feed.
type PriceSetter interface {
	SetPrice(symbol string, price decimal.Decimal)
}
