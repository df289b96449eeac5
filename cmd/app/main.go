package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradecore/internal/app"
	"tradecore/internal/execution"
	"tradecore/internal/infra"
	"tradecore/internal/infra/hyperliquid"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

type midUpdate struct {
	symbol string
	mid    decimal.Decimal
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: resolved automatically)")
	snapshotEvery := flag.Duration("snapshot", 30*time.Second, "account snapshot interval, 0 disables")
	flag.Parse()

	// .env is optional; real deployments export the variables.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", slog.Any("error", err))
	}

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	cfg := bootstrap.Config
	logger := bootstrap.Logger
	ex := bootstrap.Exchange
	infra.PrintBanner(os.Stdout, cfg, bootstrap.Secrets)

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Metrics endpoint
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(bootstrap.Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("📈 Metrics server started", slog.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", slog.Any("error", err))
			}
		}()
		defer srv.Close()
	}

	// 4. Connect
	if err := ex.Connect(ctx); err != nil {
		logger.Error("❌ Connect failed", slog.String("exchange", ex.Name()), slog.Any("error", err))
		bootstrap.Close()
		os.Exit(1)
	}
	defer func() {
		if err := ex.Disconnect(context.Background()); err != nil {
			logger.Error("Disconnect failed", slog.Any("error", err))
		}
	}()

	// 5. Mark-price feed. The exchange is single-writer, so the feed only
	// hands prices to this goroutine.
	mids := make(chan midUpdate, 256)
	setter, canPrice := ex.(execution.PriceSetter)
	if cfg.Feed.Enabled && canPrice {
		base := hyperliquid.MainnetURL
		if cfg.Trading.Testnet {
			base = hyperliquid.TestnetURL
		}
		feed := hyperliquid.NewMidFeed(hyperliquid.WSURL(base), cfg.Feed.Symbols, func(coin string, mid decimal.Decimal) {
			select {
			case mids <- midUpdate{symbol: hyperliquid.SymbolFromCoin(coin), mid: mid}:
			default:
				// Stale marks are harmless; the next update supersedes them.
			}
		}, logger)
		if err := feed.Connect(ctx); err != nil {
			logger.Error("Failed to start mid feed", slog.Any("error", err))
		}
		defer feed.Disconnect()
		logger.Info("✅ Mid feed started", slog.Int("symbols", len(cfg.Feed.Symbols)))
	}

	var ticks <-chan time.Time
	if *snapshotEvery > 0 {
		ticker := time.NewTicker(*snapshotEvery)
		defer ticker.Stop()
		ticks = ticker.C
	}

	logger.Info("✨ Exchange operational. Press Ctrl+C to exit.", slog.String("exchange", ex.Name()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("👋 Shutting down gracefully...")
			return
		case u := <-mids:
			setter.SetPrice(u.symbol, u.mid)
		case <-ticks:
			logSnapshot(ctx, logger, ex)
		}
	}
}

func logSnapshot(ctx context.Context, logger *slog.Logger, ex execution.Exchange) {
	balances, err := ex.GetBalance(ctx, "")
	if err != nil {
		logger.Warn("Snapshot: balance unavailable", slog.Any("error", err))
		return
	}
	for _, b := range balances {
		logger.Info("Balance",
			slog.String("currency", b.Currency),
			slog.String("total", b.Total.String()),
			slog.String("unrealized_pnl", b.UnrealizedPnL.String()),
			slog.String("equity", b.Equity().String()))
	}

	positions, err := ex.GetPositions(ctx, "")
	if err != nil {
		logger.Warn("Snapshot: positions unavailable", slog.Any("error", err))
		return
	}
	for _, p := range positions {
		logger.Info("Position",
			slog.String("symbol", p.Symbol),
			slog.String("side", string(p.Side)),
			slog.String("quantity", p.Quantity.String()),
			slog.String("entry", p.EntryPrice.String()),
			slog.String("mark", p.MarkPrice.String()),
			slog.String("unrealized_pnl", p.UnrealizedPnL.String()))
	}
}
