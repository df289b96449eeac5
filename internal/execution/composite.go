package execution

import (
	"context"
	"errors"
	"log/slog"

	"tradecore/internal/domain"
)

// primitives is the subset of Exchange the composite operations use.
type primitives interface {
	GetPositions(ctx context.Context, symbol string) ([]domain.Position, error)
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID, symbol string) (domain.Order, error)
	GetOrder(ctx context.Context, orderID, symbol string) (*domain.Order, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error)
}

// cancelAll cancels every open order. An order that stopped being open
// between the listing and its cancel is skipped; any other failure aborts.
func cancelAll(ctx context.Context, ex primitives, symbol string, logger *slog.Logger) ([]domain.Order, error) {
	open, err := ex.GetOpenOrders(ctx, symbol)
	if err != nil {
		return nil, err
	}

	cancelled := make([]domain.Order, 0, len(open))
	for _, o := range open {
		out, err := ex.CancelOrder(ctx, o.ID, o.Symbol)
		if err == nil {
			cancelled = append(cancelled, out)
			continue
		}
		if !errors.Is(err, domain.ErrOrder) {
			return cancelled, err
		}

		current, lookupErr := ex.GetOrder(ctx, o.ID, o.Symbol)
		if lookupErr != nil || (current != nil && current.IsOpen()) {
			return cancelled, err
		}
		logger.Debug("Order closed before cancel",
			slog.String("order_id", o.ID),
			slog.String("symbol", o.Symbol))
	}
	return cancelled, nil
}

// closePosition flattens symbol with one reduce-only market order.
func closePosition(ctx context.Context, ex primitives, symbol string) (*domain.Order, error) {
	if symbol == "" {
		return nil, domain.Errorf(domain.KindOrder, "symbol is required")
	}

	positions, err := ex.GetPositions(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, nil
	}
	pos := positions[0]

	order, err := ex.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:     pos.Symbol,
		Side:       pos.ClosingSide(),
		Type:       domain.OrderTypeMarket,
		Quantity:   pos.Quantity,
		ReduceOnly: true,
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
