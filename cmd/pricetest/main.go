package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"tradecore/internal/infra/hyperliquid"

	"github.com/shopspring/decimal"
)

// Fetches venue mids once and prints the aggressive limit prices a market
// order would be sent with. Read-only: no key needed.
func main() {
	testnet := flag.Bool("testnet", true, "query testnet instead of mainnet")
	symbols := flag.String("symbols", "BTC-PERP,ETH-PERP,SOL-PERP", "comma separated symbols")
	slippage := flag.String("slippage", "0.05", "market order slippage fraction")
	flag.Parse()

	slip, err := decimal.NewFromString(*slippage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid slippage: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := hyperliquid.NewClient(hyperliquid.Options{Testnet: *testnet})
	fmt.Printf("=== Venue mid prices (%s) ===\n\n", client.BaseURL())

	meta, err := client.Meta(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "meta: %v\n", err)
		os.Exit(1)
	}
	szDecimals := make(map[string]int32, len(meta.Universe))
	for _, a := range meta.Universe {
		szDecimals[a.Name] = a.SzDecimals
	}

	mids, err := client.AllMids(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "allMids: %v\n", err)
		os.Exit(1)
	}

	for _, symbol := range strings.Split(*symbols, ",") {
		coin := hyperliquid.CoinFromSymbol(strings.TrimSpace(symbol))
		mid, ok := mids[coin]
		sz, known := szDecimals[coin]
		if !ok || !known {
			fmt.Printf("📊 %-10s NO_DATA\n", coin)
			continue
		}
		buy := hyperliquid.SlippagePrice(mid, true, slip, sz)
		sell := hyperliquid.SlippagePrice(mid, false, slip, sz)
		fmt.Printf("📊 %-10s mid %-14s market buy @ %-14s market sell @ %-14s (szDecimals %d)\n",
			coin, mid, buy, sell, sz)
	}
	fmt.Println()
	fmt.Println("✅ All prices handled as decimals, no float64.")
}
