package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"tradecore/internal/app"
	"tradecore/internal/domain"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Places a resting limit order far below the market, checks it is listed,
// then cancels it. Against PAPER or mock mode the order fills instantly and
// the run closes the resulting position instead.
func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	symbol := flag.String("symbol", "BTC-PERP", "market to test")
	qty := flag.String("qty", "0.001", "order quantity")
	price := flag.String("price", "10000", "limit price, far from the market")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", slog.Any("error", err))
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	if err := run(bootstrap, *symbol, *qty, *price); err != nil {
		slog.Error("❌ Integration run failed", slog.Any("error", err))
		bootstrap.Close()
		os.Exit(1)
	}
	slog.Info("🎉 Integration run passed")
}

func run(b *app.Bootstrap, symbol, qty, price string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ex := b.Exchange
	slog.Info("🚀 Starting integration run", slog.String("exchange", ex.Name()))
	if err := ex.Connect(ctx); err != nil {
		return err
	}
	defer ex.Disconnect(context.Background())

	quantity, err := decimal.NewFromString(qty)
	if err != nil {
		return err
	}
	limitPx, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}

	// STEP 1: place
	order, err := ex.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:        symbol,
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeLimit,
		Quantity:      quantity,
		Price:         limitPx,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return err
	}
	slog.Info("✅ STEP 1: order placed",
		slog.String("order_id", order.ID),
		slog.String("status", string(order.Status)))

	if !order.IsOpen() {
		// Simulated venues fill everything; flatten what we bought.
		closed, err := ex.ClosePosition(ctx, symbol)
		if err != nil {
			return err
		}
		if closed != nil {
			slog.Info("✅ STEP 2: position closed", slog.String("order_id", closed.ID))
		}
		return nil
	}

	// STEP 2: listed
	open, err := ex.GetOpenOrders(ctx, symbol)
	if err != nil {
		return err
	}
	slog.Info("✅ STEP 2: open orders listed", slog.Int("count", len(open)))

	// STEP 3: cancel
	cancelled, err := ex.CancelOrder(ctx, order.ID, symbol)
	if err != nil {
		return err
	}
	slog.Info("✅ STEP 3: order cancelled", slog.String("status", string(cancelled.Status)))
	return nil
}
