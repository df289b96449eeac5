package execution

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecEqual(t *testing.T, want, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, want.Equal(got), append([]any{fmt.Sprintf("want %s, got %s", want, got)}, msgAndArgs...)...)
}

// newTestPaper returns a zero-slippage simulator with deterministic ids.
func newTestPaper(t *testing.T, opts ...PaperOption) *PaperExchange {
	t.Helper()
	cfg := DefaultPaperConfig()
	cfg.SlippageBps = decimal.Zero

	seq := 0
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opts = append([]PaperOption{WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})}, opts...)

	p := NewPaperExchange(cfg, opts...)
	p.newID = func() string {
		seq++
		return fmt.Sprintf("paper-%d", seq)
	}
	require.NoError(t, p.Connect(context.Background()))
	return p
}

func market(symbol string, side domain.OrderSide, qty string) domain.OrderRequest {
	return domain.OrderRequest{Symbol: symbol, Side: side, Type: domain.OrderTypeMarket, Quantity: dec(qty)}
}

func position(t *testing.T, p *PaperExchange, symbol string) *domain.Position {
	t.Helper()
	positions, err := p.GetPositions(context.Background(), symbol)
	require.NoError(t, err)
	if len(positions) == 0 {
		return nil
	}
	require.Len(t, positions, 1)
	return &positions[0]
}

func balance(t *testing.T, p *PaperExchange) decimal.Decimal {
	t.Helper()
	b, err := p.GetBalance(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, b, 1)
	return b[0].Total
}

func TestPaper_BuyThenSellRealizesProfit(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.SetPrice("BTC-PERP", dec("50000"))

	order, err := p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "1"))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, order.Status)
	assertDecEqual(t, dec("1"), order.FilledQuantity)
	assertDecEqual(t, dec("50000"), order.AverageFillPrice)

	pos := position(t, p, "BTC-PERP")
	require.NotNil(t, pos)
	assert.Equal(t, domain.PositionLong, pos.Side)
	assertDecEqual(t, dec("50000"), pos.EntryPrice)
	assertDecEqual(t, dec("10000"), balance(t, p))

	p.SetPrice("BTC-PERP", dec("51000"))
	pos = position(t, p, "BTC-PERP")
	assertDecEqual(t, dec("1000"), pos.UnrealizedPnL)

	_, err = p.PlaceOrder(ctx, market("BTC-PERP", domain.SideSell, "1"))
	require.NoError(t, err)

	assertDecEqual(t, dec("1000"), p.RealizedPnL())
	assertDecEqual(t, dec("11000"), balance(t, p))
	assert.Nil(t, position(t, p, "BTC-PERP"), "flat position is removed")
}

func TestPaper_WeightedAverageEntry(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.SetPrice("BTC-PERP", dec("50000"))

	_, err := p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "2"))
	require.NoError(t, err)

	p.SetPrice("BTC-PERP", dec("52000"))
	_, err = p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "1"))
	require.NoError(t, err)

	pos := position(t, p, "BTC-PERP")
	require.NotNil(t, pos)
	assertDecEqual(t, dec("3"), pos.Quantity)
	want := dec("2").Mul(dec("50000")).Add(dec("52000")).Div(dec("3"))
	assertDecEqual(t, want, pos.EntryPrice)
	assertDecEqual(t, decimal.Zero, p.RealizedPnL(), "adding never realizes")
}

func TestPaper_WeightedAverageProperty(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.cfg.InitialBalance = dec("100000000")
	p.Reset(ctx)

	rng := rand.New(rand.NewSource(7))
	sumSize, sumNotional := decimal.Zero, decimal.Zero
	for i := 0; i < 20; i++ {
		size := decimal.NewFromInt(int64(rng.Intn(9) + 1))
		price := decimal.NewFromInt(int64(rng.Intn(1000) + 100))
		p.SetPrice("ETH-PERP", price)

		_, err := p.PlaceOrder(ctx, market("ETH-PERP", domain.SideSell, size.String()))
		require.NoError(t, err)
		sumSize = sumSize.Add(size)
		sumNotional = sumNotional.Add(size.Mul(price))
	}

	pos := position(t, p, "ETH-PERP")
	require.NotNil(t, pos)
	assert.Equal(t, domain.PositionShort, pos.Side)
	assertDecEqual(t, sumSize, pos.Quantity)
	diff := pos.EntryPrice.Sub(sumNotional.Div(sumSize)).Abs()
	assert.True(t, diff.LessThan(dec("0.000001")), "entry %s drifted by %s", pos.EntryPrice, diff)
}

func TestPaper_SignedQuantityIsRunningSum(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.cfg.InitialBalance = dec("100000000")
	p.Reset(ctx)

	rng := rand.New(rand.NewSource(42))
	running := decimal.Zero
	for i := 0; i < 200; i++ {
		side := domain.SideBuy
		if rng.Intn(2) == 0 {
			side = domain.SideSell
		}
		qty := decimal.NewFromInt(int64(rng.Intn(500) + 1)).Div(decimal.NewFromInt(100))
		p.SetPrice("SOL-PERP", decimal.NewFromInt(int64(rng.Intn(50)+80)))

		_, err := p.PlaceOrder(ctx, market("SOL-PERP", side, qty.String()))
		require.NoError(t, err)
		running = running.Add(qty.Mul(side.Sign()))

		pos := position(t, p, "SOL-PERP")
		if domain.IsFlat(running) {
			assert.Nil(t, pos, "step %d", i)
			continue
		}
		require.NotNil(t, pos, "step %d", i)
		assert.True(t, pos.SignedQuantity().Sub(running).Abs().LessThan(domain.Epsilon), "step %d: %s != %s", i, pos.SignedQuantity(), running)
	}
}

func TestPaper_RoundTripAtSamePrice(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.SetPrice("ETH-PERP", dec("3000"))

	_, err := p.PlaceOrder(ctx, market("ETH-PERP", domain.SideSell, "2.5"))
	require.NoError(t, err)
	_, err = p.PlaceOrder(ctx, market("ETH-PERP", domain.SideBuy, "2.5"))
	require.NoError(t, err)

	assertDecEqual(t, decimal.Zero, p.RealizedPnL())
	assertDecEqual(t, dec("10000"), balance(t, p))
	assert.Nil(t, position(t, p, "ETH-PERP"))
}

func TestPaper_FlipShortToLong(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.SetPrice("ETH-PERP", dec("3000"))

	_, err := p.PlaceOrder(ctx, market("ETH-PERP", domain.SideSell, "5"))
	require.NoError(t, err)

	p.SetPrice("ETH-PERP", dec("2900"))
	order, err := p.PlaceOrder(ctx, market("ETH-PERP", domain.SideBuy, "8"))
	require.NoError(t, err)

	pos := position(t, p, "ETH-PERP")
	require.NotNil(t, pos)
	assert.Equal(t, domain.PositionLong, pos.Side)
	assertDecEqual(t, dec("3"), pos.Quantity)
	assertDecEqual(t, order.AverageFillPrice, pos.EntryPrice)

	// Closing the 5 unit short 100 lower.
	assertDecEqual(t, dec("500"), p.RealizedPnL())
	assertDecEqual(t, dec("10500"), balance(t, p))
}

func TestPaper_PartialClose(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.SetPrice("BTC-PERP", dec("40000"))

	_, err := p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "2"))
	require.NoError(t, err)

	p.SetPrice("BTC-PERP", dec("39000"))
	_, err = p.PlaceOrder(ctx, market("BTC-PERP", domain.SideSell, "0.5"))
	require.NoError(t, err)

	pos := position(t, p, "BTC-PERP")
	require.NotNil(t, pos)
	assert.Equal(t, domain.PositionLong, pos.Side)
	assertDecEqual(t, dec("1.5"), pos.Quantity)
	assertDecEqual(t, dec("40000"), pos.EntryPrice, "reducing keeps the cost basis")
	assertDecEqual(t, dec("-500"), pos.RealizedPnL)
	assertDecEqual(t, dec("9500"), balance(t, p))
}

func TestPaper_Slippage(t *testing.T) {
	ctx := context.Background()
	p := NewPaperExchange(DefaultPaperConfig())
	p.SetPrice("BTC-PERP", dec("50000"))

	buy, err := p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "0.1"))
	require.NoError(t, err)
	assertDecEqual(t, dec("50025"), buy.AverageFillPrice, "5 bps above reference")

	sell, err := p.PlaceOrder(ctx, market("BTC-PERP", domain.SideSell, "0.1"))
	require.NoError(t, err)
	assertDecEqual(t, dec("49975"), sell.AverageFillPrice, "5 bps below reference")
}

func TestPaper_LimitFillsAtLimitPrice(t *testing.T) {
	ctx := context.Background()
	p := NewPaperExchange(DefaultPaperConfig())
	p.SetPrice("BTC-PERP", dec("50000"))

	order, err := p.PlaceOrder(ctx, domain.OrderRequest{
		Symbol: "BTC-PERP", Side: domain.SideBuy, Type: domain.OrderTypeLimit,
		Quantity: dec("0.1"), Price: dec("48000"),
	})
	require.NoError(t, err)
	assertDecEqual(t, dec("48000"), order.AverageFillPrice)
	assert.Equal(t, domain.TimeInForceGTC, order.TimeInForce)
}

func TestPaper_SeedsMissingReferencePrice(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)

	_, ok := p.Price("SOL-PERP")
	require.False(t, ok)

	order, err := p.PlaceOrder(ctx, market("SOL-PERP", domain.SideBuy, "1"))
	require.NoError(t, err)
	assertDecEqual(t, dec("100"), order.AverageFillPrice, "default price seeds the reference")

	px, ok := p.Price("SOL-PERP")
	require.True(t, ok)
	assertDecEqual(t, dec("100"), px)

	_, err = p.PlaceOrder(ctx, domain.OrderRequest{
		Symbol: "AVAX-PERP", Side: domain.SideBuy, Type: domain.OrderTypeStopMarket,
		Quantity: dec("1"), StopPrice: dec("35"),
	})
	require.NoError(t, err)
	px, _ = p.Price("AVAX-PERP")
	assertDecEqual(t, dec("35"), px, "stop price seeds when no price is given")
}

func TestPaper_InsufficientBalanceLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.SetPrice("BTC-PERP", dec("50000"))

	_, err := p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "1"))
	require.NoError(t, err)

	before := p.AccountSummary()
	posBefore := position(t, p, "BTC-PERP")

	// 3 BTC at 50000 with 10x leverage needs 15000 margin.
	_, err = p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "3"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.ErrorIs(t, err, domain.ErrExchange)

	after := p.AccountSummary()
	assertDecEqual(t, before.Balance, after.Balance)
	assertDecEqual(t, before.RealizedPnL, after.RealizedPnL)
	assert.Equal(t, before.TradeCount, after.TradeCount)

	posAfter := position(t, p, "BTC-PERP")
	require.NotNil(t, posAfter)
	assertDecEqual(t, posBefore.Quantity, posAfter.Quantity)
	assertDecEqual(t, posBefore.EntryPrice, posAfter.EntryPrice)
	assert.Len(t, p.TradeHistory(), 1)

	// Unpriced symbols are not seeded by a rejected order.
	_, err = p.PlaceOrder(ctx, domain.OrderRequest{
		Symbol: "ETH-PERP", Side: domain.SideBuy, Type: domain.OrderTypeLimit,
		Quantity: dec("1000"), Price: dec("3000"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	_, ok := p.Price("ETH-PERP")
	assert.False(t, ok)
}

func TestPaper_MarginBoundary(t *testing.T) {
	ctx := context.Background()

	// 2 BTC at 50000 with 10x leverage needs the whole 10000.
	p := newTestPaper(t)
	p.SetPrice("BTC-PERP", dec("50000"))
	order, err := p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "2"))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, order.Status)

	over := newTestPaper(t)
	over.SetPrice("BTC-PERP", dec("50000"))
	_, err = over.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "2.0001"))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Nil(t, position(t, over, "BTC-PERP"))
}

func TestPaper_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)

	tests := []struct {
		name string
		req  domain.OrderRequest
	}{
		{"zero quantity", market("BTC-PERP", domain.SideBuy, "0")},
		{"negative quantity", market("BTC-PERP", domain.SideBuy, "-1")},
		{"limit without price", domain.OrderRequest{Symbol: "BTC-PERP", Side: domain.SideBuy, Type: domain.OrderTypeLimit, Quantity: dec("1")}},
		{"stop without trigger", domain.OrderRequest{Symbol: "BTC-PERP", Side: domain.SideSell, Type: domain.OrderTypeStopMarket, Quantity: dec("1")}},
		{"stop limit without price", domain.OrderRequest{Symbol: "BTC-PERP", Side: domain.SideSell, Type: domain.OrderTypeStopLimit, Quantity: dec("1"), StopPrice: dec("1")}},
		{"bad side", domain.OrderRequest{Symbol: "BTC-PERP", Side: "hold", Type: domain.OrderTypeMarket, Quantity: dec("1")}},
		{"no symbol", market("", domain.SideBuy, "1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.PlaceOrder(ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrOrder)
		})
	}

	assert.Empty(t, p.TradeHistory())
	assertDecEqual(t, dec("10000"), balance(t, p))
}

func TestPaper_ReduceOnly(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.SetPrice("BTC-PERP", dec("50000"))

	reduce := market("BTC-PERP", domain.SideSell, "1")
	reduce.ReduceOnly = true

	_, err := p.PlaceOrder(ctx, reduce)
	require.ErrorIs(t, err, domain.ErrOrder, "nothing to reduce")

	_, err = p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "1"))
	require.NoError(t, err)

	sameSide := market("BTC-PERP", domain.SideBuy, "0.5")
	sameSide.ReduceOnly = true
	_, err = p.PlaceOrder(ctx, sameSide)
	require.ErrorIs(t, err, domain.ErrOrder, "would increase exposure")

	tooBig := market("BTC-PERP", domain.SideSell, "2")
	tooBig.ReduceOnly = true
	_, err = p.PlaceOrder(ctx, tooBig)
	require.ErrorIs(t, err, domain.ErrOrder, "would flip")

	// Reduce-only skips the margin check even when the balance is short.
	p.balance = decimal.Zero
	_, err = p.PlaceOrder(ctx, reduce)
	require.NoError(t, err)
	assert.Nil(t, position(t, p, "BTC-PERP"))
}

func TestPaper_CancelAndLookup(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.SetPrice("BTC-PERP", dec("50000"))

	_, err := p.CancelOrder(ctx, "missing", "BTC-PERP")
	require.ErrorIs(t, err, domain.ErrOrder)

	order, err := p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "0.1"))
	require.NoError(t, err)

	_, err = p.CancelOrder(ctx, order.ID, "")
	require.ErrorIs(t, err, domain.ErrOrder, "filled orders cannot be cancelled")

	got, err := p.GetOrder(ctx, order.ID, "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, order, *got)

	got.Status = domain.OrderStatusCancelled
	again, _ := p.GetOrder(ctx, order.ID, "")
	assert.Equal(t, domain.OrderStatusFilled, again.Status, "callers get copies")

	none, err := p.GetOrder(ctx, "missing", "")
	require.NoError(t, err)
	assert.Nil(t, none)

	open, err := p.GetOpenOrders(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, open)

	cancelled, err := p.CancelAllOrders(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, cancelled)
}

func TestPaper_CancelOpenOrder(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.orders["resting"] = &domain.Order{ID: "resting", Symbol: "BTC-PERP", Status: domain.OrderStatusOpen}

	out, err := p.CancelOrder(ctx, "resting", "BTC-PERP")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, out.Status)

	_, err = p.CancelOrder(ctx, "resting", "BTC-PERP")
	require.ErrorIs(t, err, domain.ErrOrder)
}

func TestPaper_ClosePosition(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.SetPrice("ETH-PERP", dec("3000"))

	none, err := p.ClosePosition(ctx, "ETH-PERP")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = p.PlaceOrder(ctx, market("ETH-PERP", domain.SideSell, "2"))
	require.NoError(t, err)

	p.SetPrice("ETH-PERP", dec("3100"))
	closed, err := p.ClosePosition(ctx, "ETH-PERP")
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.Equal(t, domain.SideBuy, closed.Side)
	assert.True(t, closed.ReduceOnly)
	assert.Equal(t, domain.OrderTypeMarket, closed.Type)
	assertDecEqual(t, dec("2"), closed.Quantity)

	assert.Nil(t, position(t, p, "ETH-PERP"))
	assertDecEqual(t, dec("-200"), p.RealizedPnL())
}

func TestPaper_BalanceAndMarkets(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	p.SetPrice("BTC-PERP", dec("50000"))
	_, err := p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "0.1"))
	require.NoError(t, err)
	p.SetPrice("BTC-PERP", dec("49000"))

	balances, err := p.GetBalance(ctx, "USD")
	require.NoError(t, err)
	require.Len(t, balances, 1)
	b := balances[0]
	assertDecEqual(t, dec("-100"), b.UnrealizedPnL)
	assertDecEqual(t, b.Total, b.Available.Add(b.Locked))
	assertDecEqual(t, dec("9900"), b.Equity())

	other, err := p.GetBalance(ctx, "EUR")
	require.NoError(t, err)
	assert.Empty(t, other)

	markets, err := p.GetMarkets(ctx)
	require.NoError(t, err)
	assert.Len(t, markets, 3)

	m, err := p.GetMarket(ctx, "ETH-PERP")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "ETH", m.BaseAsset)

	missing, err := p.GetMarket(ctx, "DOGE-PERP")
	require.NoError(t, err)
	assert.Nil(t, missing)

	summary := p.AccountSummary()
	assert.Equal(t, 1, summary.OpenPositions)
	assert.Equal(t, 1, summary.TradeCount)
	assertDecEqual(t, dec("9900"), summary.Equity)
}

func TestPaper_ConnectIdempotentAndReset(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	j, err := storage.OpenJSONL(path)
	require.NoError(t, err)

	p := newTestPaper(t, WithJournal(j))
	require.NoError(t, p.Connect(ctx))
	assert.True(t, p.IsConnected())

	p.SetPrice("BTC-PERP", dec("50000"))
	_, err = p.PlaceOrder(ctx, market("BTC-PERP", domain.SideBuy, "1"))
	require.NoError(t, err)
	p.SetPrice("BTC-PERP", dec("51000"))
	_, err = p.PlaceOrder(ctx, market("BTC-PERP", domain.SideSell, "1"))
	require.NoError(t, err)

	p.Reset(ctx)
	assertDecEqual(t, dec("10000"), balance(t, p))
	assert.Empty(t, p.TradeHistory())
	assertDecEqual(t, decimal.Zero, p.RealizedPnL())

	require.NoError(t, p.Disconnect(ctx))
	require.NoError(t, p.Disconnect(ctx))
	assert.False(t, p.IsConnected())
	require.NoError(t, j.Close())

	lines, err := storage.ReadJSONL(path)
	require.NoError(t, err)
	require.Len(t, lines, 5, "one CONNECTED, two trades, RESET, one DISCONNECTED")

	assert.Equal(t, "CONNECTED", lines[0]["event"])
	assert.Equal(t, "paper-1", lines[1]["order_id"])
	assert.Equal(t, "buy", lines[1]["side"])
	assert.Equal(t, "50000", lines[1]["price"])
	assert.Equal(t, "0", lines[1]["realized_pnl"])
	assert.Equal(t, "sell", lines[2]["side"])
	assert.Equal(t, "11000", lines[2]["balance_after"])
	assert.Equal(t, "1000", lines[2]["realized_pnl"])
	assert.Equal(t, "RESET", lines[3]["event"])
	assert.Equal(t, "DISCONNECTED", lines[4]["event"])
}

func TestPaper_ImplementsInterfaces(t *testing.T) {
	var _ Exchange = (*PaperExchange)(nil) // Compile-time check
	var _ PriceSetter = (*PaperExchange)(nil)
}
